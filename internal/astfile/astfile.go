// Package astfile stores AST subtrees in the compiler's intermediate file:
// a flat sequence of fixed-size records in DFS postorder, children before
// parents, so the reader rebuilds the tree with a stack and no recursion.
// Name, symbol and literal handles are indexed through side tables owned by
// the store, which lives exactly as long as the compilation that wrote it.
package astfile

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/parser"
	"setl2/internal/symtab"
	"setl2/internal/value"
)

// Attachment codes: how a record hangs off the record that points at it.
const (
	// NextChild attaches via the pointing node's sibling chain.
	NextChild int32 = 1
	// ChildChild attaches as the pointing node's first child.
	ChildChild int32 = 2
)

// record is the on-disk form of one AST node. All fields are int32 and the
// encoding is little endian, so every record is exactly 40 bytes.
type record struct {
	Type        int32
	Line        int32
	Column      int32
	NameIdx     int32
	ExtIdx      int32
	SymIdx      int32
	LitIdx      int32
	SelfIndex   int32
	ParentIndex int32
	WhichChild  int32
}

// Store translates handles to side-table indices while writing and back
// while reading. One store serves one compilation.
type Store struct {
	names   []*names.Name
	nameIdx map[*names.Name]int32
	syms    []*symtab.Symbol
	symIdx  map[*symtab.Symbol]int32
	lits    []value.Specifier
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nameIdx: map[*names.Name]int32{},
		symIdx:  map[*symtab.Symbol]int32{},
	}
}

// ScratchPath builds a fresh scratch-file path under SETL2_TMPDIR, or the
// system temp directory when unset.
func ScratchPath() string {
	dir := os.Getenv("SETL2_TMPDIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "setl2-ast-"+uuid.NewString()+".tmp")
}

func (s *Store) nameIndex(n *names.Name) int32 {
	if n == nil {
		return -1
	}
	if i, ok := s.nameIdx[n]; ok {
		return i
	}
	i := int32(len(s.names))
	s.names = append(s.names, n)
	s.nameIdx[n] = i
	return i
}

func (s *Store) symIndex(sym *symtab.Symbol) int32 {
	if sym == nil {
		return -1
	}
	if i, ok := s.symIdx[sym]; ok {
		return i
	}
	i := int32(len(s.syms))
	s.syms = append(s.syms, sym)
	s.symIdx[sym] = i
	return i
}

func (s *Store) litIndex(l value.Specifier) int32 {
	if l == nil {
		return -1
	}
	i := int32(len(s.lits))
	s.lits = append(s.lits, l)
	return i
}

// Write stores the subtree at root. Records go out in postorder: every
// sibling chain emits its child subtrees left to right and then the
// siblings themselves right to left, so each record's pointer holder
// always follows it. The subtree root goes last with self index 1.
func (s *Store) Write(w io.Writer, root *parser.Node) error {
	index := map[*parser.Node]int32{}
	next := int32(1)
	var number func(n *parser.Node)
	number = func(n *parser.Node) {
		for ; n != nil; n = n.Next {
			index[n] = next
			next++
			if n.Child != nil {
				number(n.Child)
			}
		}
	}
	index[root] = 1
	next = 2
	if root.Child != nil {
		number(root.Child)
	}

	if root.Child != nil {
		if err := s.writeChain(w, root.Child, 1, ChildChild, index); err != nil {
			return err
		}
	}
	return errors.Wrap(s.writeRecord(w, root, 1, 0, 0), "writing ast record")
}

// writeChain emits one sibling chain: child subtrees first, then the
// siblings back to front. The first sibling attaches to holder via which;
// every later sibling attaches to its predecessor's sibling chain.
func (s *Store) writeChain(w io.Writer, first *parser.Node, holder int32, which int32, index map[*parser.Node]int32) error {
	var chain []*parser.Node
	for n := first; n != nil; n = n.Next {
		chain = append(chain, n)
	}
	for _, n := range chain {
		if n.Child != nil {
			if err := s.writeChain(w, n.Child, index[n], ChildChild, index); err != nil {
				return err
			}
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		parent, attach := holder, which
		if i > 0 {
			parent, attach = index[chain[i-1]], NextChild
		}
		if err := s.writeRecord(w, n, index[n], parent, attach); err != nil {
			return errors.Wrap(err, "writing ast record")
		}
	}
	return nil
}

func (s *Store) writeRecord(w io.Writer, n *parser.Node, self, parent, which int32) error {
	rec := record{
		Type:        int32(n.Type),
		Line:        int32(n.Pos.Line),
		Column:      int32(n.Pos.Column),
		NameIdx:     s.nameIndex(n.Name),
		ExtIdx:      s.nameIndex(n.Ext),
		SymIdx:      s.symIndex(n.Sym),
		LitIdx:      s.litIndex(n.Lit),
		SelfIndex:   self,
		ParentIndex: parent,
		WhichChild:  which,
	}
	return binary.Write(w, binary.LittleEndian, &rec)
}

// Read rebuilds one stored subtree. Records accumulate on a stack; when an
// incoming record's self index matches a stacked record's parent index,
// the stacked node attaches to the incoming one. The record with self
// index 1 completes the subtree.
func (s *Store) Read(r io.Reader, pool *parser.Pool) (*parser.Node, error) {
	type pending struct {
		node   *parser.Node
		parent int32
		which  int32
	}
	var stack []pending
	for {
		var rec record
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, errors.New("ast file ended before its subtree root")
			}
			return nil, errors.Wrap(err, "reading ast record")
		}
		n := pool.New(parser.NodeType(rec.Type), diag.Pos{Line: int(rec.Line), Column: int(rec.Column)})
		if rec.NameIdx >= 0 && int(rec.NameIdx) < len(s.names) {
			n.Name = s.names[rec.NameIdx]
		}
		if rec.ExtIdx >= 0 && int(rec.ExtIdx) < len(s.names) {
			n.Ext = s.names[rec.ExtIdx]
		}
		if rec.SymIdx >= 0 && int(rec.SymIdx) < len(s.syms) {
			n.Sym = s.syms[rec.SymIdx]
		}
		if rec.LitIdx >= 0 && int(rec.LitIdx) < len(s.lits) {
			n.Lit = s.lits[rec.LitIdx]
		}

		for len(stack) > 0 && stack[len(stack)-1].parent == rec.SelfIndex {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch top.which {
			case ChildChild:
				n.Child = top.node
			case NextChild:
				n.Next = top.node
			default:
				return nil, errors.Errorf("corrupt ast record: attachment %d", top.which)
			}
		}
		if rec.SelfIndex == 1 {
			if len(stack) != 0 {
				return nil, errors.New("corrupt ast file: unattached records remain")
			}
			return n, nil
		}
		stack = append(stack, pending{node: n, parent: rec.ParentIndex, which: rec.WhichChild})
	}
}
