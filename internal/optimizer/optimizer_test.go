package optimizer

import (
	"testing"

	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/quads"
	"setl2/internal/symtab"
	"setl2/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProc() (*symtab.Procedure, *symtab.Table, *names.Table) {
	d := diag.NewCollector()
	st := symtab.NewTable(d)
	nt := names.NewTable()
	return st.NewProcedure(nt.Intern("P"), symtab.KindProgram, diag.Pos{}), st, nt
}

func emptyBlocks() (*quads.Block, *quads.Block) {
	return quads.NewBlock(), quads.NewBlock()
}

func TestGotoChainCollapse(t *testing.T) {
	// L1: goto L2; L2: goto L3; L3: x := 1
	proc, st, nt := newProc()
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})
	body := quads.NewBlock()
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(1))
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(2))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(2))
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(3))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(3))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(1)))

	init, slot := emptyBlocks()
	out := Optimize(proc, init, slot, body)

	require.Equal(t, 1, out.Len(), "only the assignment survives: %s", out.Dump())
	assert.Equal(t, quads.OpAssign, out.Quads[0].Op)
}

func TestBranchReferencesFollowChain(t *testing.T) {
	// a branch into the chain head must land on the final target's offset
	proc, st, nt := newProc()
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})
	c := st.Declare(nt.Intern("C"), proc, diag.Pos{})
	body := quads.NewBlock()
	body.Emit(quads.OpGoTrue, diag.Pos{}, quads.LabelRef(1), quads.Sym(c))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(0)))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(1))
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(2))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(2))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(1)))

	init, slot := emptyBlocks()
	out := Optimize(proc, init, slot, body)

	// gotrue, assign 0, assign 1 -- both gotos vanished
	require.Equal(t, 3, out.Len(), out.Dump())
	assert.Equal(t, quads.OpGoTrue, out.Quads[0].Op)
	assert.Equal(t, 2, out.Quads[0].Operands[0].Label, "branch must resolve to the final assignment's offset")
}

func TestConditionalBranchToNextDeleted(t *testing.T) {
	proc, st, nt := newProc()
	c := st.Declare(nt.Intern("C"), proc, diag.Pos{})
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})
	body := quads.NewBlock()
	body.Emit(quads.OpGoFalse, diag.Pos{}, quads.LabelRef(1), quads.Sym(c))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(1))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(1)))

	init, slot := emptyBlocks()
	out := Optimize(proc, init, slot, body)
	require.Equal(t, 1, out.Len(), out.Dump())
	assert.Equal(t, quads.OpAssign, out.Quads[0].Op)
}

func TestConsecutiveGotosOnlyFirstSurvives(t *testing.T) {
	proc, _, _ := newProc()
	body := quads.NewBlock()
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(9))
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(9))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(9))
	body.Emit(quads.OpStop, diag.Pos{})

	init, slot := emptyBlocks()
	out := Optimize(proc, init, slot, body)
	gotos := 0
	for _, q := range out.Quads {
		if q.Op == quads.OpGo {
			gotos++
		}
	}
	assert.Equal(t, 1, gotos, "only the first goto survives: %s", out.Dump())
	assert.Equal(t, quads.OpGo, out.Quads[0].Op)
	assert.Equal(t, 1, out.Quads[0].Operands[0].Label)
}

func TestNeedsStoredFlag(t *testing.T) {
	proc, st, nt := newProc()
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})
	y := st.Declare(nt.Intern("Y"), proc, diag.Pos{})
	unused := st.Declare(nt.Intern("Z"), proc, diag.Pos{})
	body := quads.NewBlock()
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Sym(y))

	init, slot := emptyBlocks()
	Optimize(proc, init, slot, body)
	assert.True(t, x.Flags.Has(symtab.NeedsStored))
	assert.True(t, y.Flags.Has(symtab.NeedsStored))
	assert.False(t, unused.Flags.Has(symtab.NeedsStored))
}

func TestLabelSymbolOffsets(t *testing.T) {
	proc, st, nt := newProc()
	lab := st.Declare(nt.Intern("L"), proc, diag.Pos{})
	lab.Kind = symtab.KindLabel
	lab.LabelNum = 5
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})

	body := quads.NewBlock()
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(1)))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(5))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(2)))

	init, slot := emptyBlocks()
	Optimize(proc, init, slot, body)
	assert.Equal(t, int32(1), lab.Offset)
}

func TestInitSegmentBiasesBodyOffsets(t *testing.T) {
	proc, st, nt := newProc()
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})
	initBlock := quads.NewBlock()
	initBlock.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(0)))
	slot := quads.NewBlock()
	body := quads.NewBlock()
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(1))
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(2))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(1)))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(2))
	body.Emit(quads.OpStop, diag.Pos{})

	out := Optimize(proc, initBlock, slot, body)
	// layout: [init assign][go][assign][stop]; label 2 resolves past init
	require.Equal(t, 4, out.Len(), out.Dump())
	assert.Equal(t, quads.OpGo, out.Quads[1].Op)
	assert.Equal(t, 3, out.Quads[1].Operands[0].Label)
}

func TestOptimizeIdempotent(t *testing.T) {
	proc, st, nt := newProc()
	x := st.Declare(nt.Intern("X"), proc, diag.Pos{})
	c := st.Declare(nt.Intern("C"), proc, diag.Pos{})
	body := quads.NewBlock()
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(0))
	body.Emit(quads.OpGoTrue, diag.Pos{}, quads.LabelRef(1), quads.Sym(c))
	body.Emit(quads.OpAssign, diag.Pos{}, quads.Sym(x), quads.Spec(value.Short(1)))
	body.Emit(quads.OpGo, diag.Pos{}, quads.LabelRef(0))
	body.Emit(quads.OpLabel, diag.Pos{}, quads.LabelRef(1))
	body.Emit(quads.OpStop, diag.Pos{})

	init, slot := emptyBlocks()
	first := Optimize(proc, init, slot, body)

	second := Optimize(proc, quads.NewBlock(), quads.NewBlock(), first)
	require.Equal(t, first.Len(), second.Len())
	for i := range first.Quads {
		assert.Equal(t, first.Quads[i].String(), second.Quads[i].String(), "quad %d", i)
	}
}
