package astfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"setl2/internal/diag"
	"setl2/internal/lexer"
	"setl2/internal/names"
	"setl2/internal/parser"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// flatten renders a tree shape for comparison.
func flatten(n *parser.Node) []string {
	var out []string
	var walk func(n *parser.Node, depth int)
	walk = func(n *parser.Node, depth int) {
		for ; n != nil; n = n.Next {
			entry := n.Type.String()
			if n.Name != nil {
				entry += ":" + n.Name.Text
			}
			out = append(out, entry)
			if n.Child != nil {
				walk(n.Child, depth+1)
			}
			out = append(out, "^")
		}
	}
	walk(n, 0)
	return out
}

func parseBody(t *testing.T, src string) (*parser.Node, *parser.Pool) {
	t.Helper()
	d := diag.NewCollector()
	nt := names.NewTable()
	toks := lexer.NewScanner(src, nt, d).ScanTokens()
	pool := parser.NewPool()
	units := parser.NewParser(toks, nt, d, pool).ParseUnits()
	require.Equal(t, 0, d.UnitErrors(), "parse errors: %v", d.Messages())
	require.Len(t, units, 1)
	return units[0].Body, pool
}

func TestRoundTripIdentity(t *testing.T) {
	body, _ := parseBody(t, `
program p;
x := 5;
if x > 0 then y := {1, 2, x}; else y := [x, x + 1]; end if;
for e in y loop z := z + e; end loop;
end p;`)

	store := NewStore()
	var buf bytes.Buffer
	require.NoError(t, store.Write(&buf, body))

	readPool := parser.NewPool()
	got, err := store.Read(&buf, readPool)
	require.NoError(t, err)

	if diff := cmp.Diff(flatten(body), flatten(got)); diff != "" {
		t.Errorf("round trip changed the tree (-want +got):\n%s", diff)
	}
}

func TestRoundTripSingleNode(t *testing.T) {
	pool := parser.NewPool()
	root := pool.New(parser.NodeStop, diag.Pos{Line: 3, Column: 7})

	store := NewStore()
	var buf bytes.Buffer
	require.NoError(t, store.Write(&buf, root))
	got, err := store.Read(&buf, parser.NewPool())
	require.NoError(t, err)
	require.Equal(t, parser.NodeStop, got.Type)
	require.Equal(t, 3, got.Pos.Line)
	require.Equal(t, 7, got.Pos.Column)
}

func TestRecordsAreChildrenFirst(t *testing.T) {
	pool := parser.NewPool()
	root := pool.New(parser.NodeStmtList, diag.Pos{})
	child := pool.New(parser.NodeStop, diag.Pos{})
	root.Child = child

	store := NewStore()
	var buf bytes.Buffer
	require.NoError(t, store.Write(&buf, root))
	// two records of 40 bytes; the child comes first and the root carries
	// self index 1 in its record
	require.Equal(t, 80, buf.Len())
	var recs [2]record
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()), binary.LittleEndian, &recs))
	require.Equal(t, int32(2), recs[0].SelfIndex)
	require.Equal(t, int32(1), recs[0].ParentIndex)
	require.Equal(t, int32(1), recs[1].SelfIndex)
}

func TestTruncatedFileReported(t *testing.T) {
	pool := parser.NewPool()
	root := pool.New(parser.NodeStmtList, diag.Pos{})
	root.Child = pool.New(parser.NodeStop, diag.Pos{})

	store := NewStore()
	var buf bytes.Buffer
	require.NoError(t, store.Write(&buf, root))
	trunc := buf.Bytes()[:40]
	_, err := store.Read(bytes.NewReader(trunc), parser.NewPool())
	require.Error(t, err)
}

func TestScratchPathUsesTmpDir(t *testing.T) {
	t.Setenv("SETL2_TMPDIR", "/tmp/setl2test")
	p := ScratchPath()
	require.Contains(t, p, "/tmp/setl2test/")
	q := ScratchPath()
	require.NotEqual(t, p, q, "scratch names must be unique")
}
