package symtab

import (
	"testing"

	"setl2/internal/diag"
	"setl2/internal/names"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture() (*Table, *names.Table, *diag.Collector) {
	d := diag.NewCollector()
	return NewTable(d), names.NewTable(), d
}

func TestDeclareAndLookup(t *testing.T) {
	tbl, nt, d := newFixture()
	prog := tbl.NewProcedure(nt.Intern("P"), KindProgram, diag.Pos{})

	x := tbl.Declare(nt.Intern("X"), prog, diag.Pos{Line: 1, Column: 1})
	require.NotNil(t, x)
	assert.Equal(t, 0, d.UnitErrors())
	assert.Same(t, x, tbl.LookupVisible(nt.Intern("X")))
	assert.Nil(t, tbl.LookupVisible(nt.Intern("Y")))
}

func TestDuplicateDeclaration(t *testing.T) {
	tbl, nt, d := newFixture()
	prog := tbl.NewProcedure(nt.Intern("P"), KindProgram, diag.Pos{})

	first := tbl.Declare(nt.Intern("X"), prog, diag.Pos{Line: 1})
	dup := tbl.Declare(nt.Intern("X"), prog, diag.Pos{Line: 2})
	assert.NotNil(t, first)
	assert.Nil(t, dup)
	assert.Equal(t, 1, d.UnitErrors())
}

func TestVisibilityStackNewestFirst(t *testing.T) {
	tbl, nt, _ := newFixture()
	outer := tbl.NewProcedure(nt.Intern("OUTER"), KindProgram, diag.Pos{})
	inner := tbl.NewProcedure(nt.Intern("INNER"), KindProcedure, diag.Pos{})

	name := nt.Intern("X")
	ox := tbl.Declare(name, outer, diag.Pos{})
	ix := tbl.Declare(name, inner, diag.Pos{})
	require.NotNil(t, ix)

	assert.Same(t, ix, tbl.LookupVisible(name), "innermost declaration wins")

	tbl.Detach(inner)
	assert.Same(t, ox, tbl.LookupVisible(name), "detaching the scope exposes the outer symbol")
}

func TestHiddenSkipped(t *testing.T) {
	tbl, nt, _ := newFixture()
	p := tbl.NewProcedure(nt.Intern("P"), KindProgram, diag.Pos{})
	q := tbl.NewProcedure(nt.Intern("Q"), KindProcedure, diag.Pos{})

	name := nt.Intern("X")
	sx := tbl.Declare(name, p, diag.Pos{})
	hx := tbl.Declare(name, q, diag.Pos{})
	hx.Flags |= Hidden

	assert.Same(t, sx, tbl.LookupVisible(name))
}

func TestMergeScope(t *testing.T) {
	tbl, nt, _ := newFixture()
	outer := tbl.NewProcedure(nt.Intern("P"), KindProgram, diag.Pos{})
	iter := tbl.NewProcedure(nt.Intern("ITER"), KindProcedure, diag.Pos{})

	bound := tbl.Declare(nt.Intern("I"), iter, diag.Pos{})
	require.NotNil(t, bound)
	tbl.MergeScope(iter, outer)

	assert.Same(t, outer, bound.Owner)
	assert.Same(t, bound, tbl.LookupVisible(nt.Intern("I")))

	var count int
	outer.Symbols(func(*Symbol) bool { count++; return true })
	assert.Equal(t, 1, count)
}

func TestProcedureTree(t *testing.T) {
	tbl, nt, _ := newFixture()
	prog := tbl.NewProcedure(nt.Intern("P"), KindProgram, diag.Pos{})
	a := tbl.NewProcedure(nt.Intern("A"), KindProcedure, diag.Pos{})
	b := tbl.NewProcedure(nt.Intern("B"), KindProcedure, diag.Pos{})
	prog.AddChild(a)
	prog.AddChild(b)

	assert.Same(t, a, prog.Child)
	assert.Same(t, b, prog.Child.Next)
	assert.Same(t, prog, a.Parent)
	assert.NotEqual(t, a.Unit, b.Unit)
}
