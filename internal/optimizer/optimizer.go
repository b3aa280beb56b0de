// Package optimizer runs the per-procedure quadruple passes: stored-flag
// propagation, goto-chain collapse, dead-branch elimination and label
// resolution. The output is the procedure's combined, address-resolved
// stream in [init | slot-init | body] order.
package optimizer

import (
	"setl2/internal/quads"
	"setl2/internal/symtab"
)

// Optimize rewrites one procedure's segments into a single resolved block.
// Running it again on its own output changes nothing: with no label quads
// left there is nothing to collapse or resolve.
func Optimize(proc *symtab.Procedure, init, slot, body *quads.Block) *quads.Block {
	combined := make([]quads.Quad, 0, init.Len()+slot.Len()+body.Len())
	combined = append(combined, init.Quads...)
	combined = append(combined, slot.Quads...)
	combined = append(combined, body.Quads...)

	flagStored(combined)
	collapseGotoChains(combined)
	for {
		trimmed := deleteDeadQuads(combined)
		if len(trimmed) == len(combined) {
			break
		}
		combined = trimmed
	}
	resolved, offsets := resolveLabels(combined)
	setLabelSymbolOffsets(proc, offsets)

	proc.InitCount = init.Len()
	proc.SlotCount = slot.Len()
	proc.BodyCount = body.Len()
	return &quads.Block{Quads: resolved}
}

// flagStored marks every symbol operand as needing a storage location.
func flagStored(code []quads.Quad) {
	for i := range code {
		for j := range code[i].Operands {
			if code[i].Operands[j].Kind == quads.OperandSym && code[i].Operands[j].Sym != nil {
				code[i].Operands[j].Sym.Flags |= symtab.NeedsStored
			}
		}
	}
}

// collapseGotoChains maps every label that leads, through nothing but other
// labels, to an unconditional goto onto that goto's final target, then
// rewrites every branch operand through the transitive closure.
func collapseGotoChains(code []quads.Quad) {
	direct := map[int]int{}
	for i, q := range code {
		if q.Op != quads.OpLabel {
			continue
		}
		j := i + 1
		for j < len(code) && code[j].Op == quads.OpLabel {
			j++
		}
		if j < len(code) && code[j].Op == quads.OpGo {
			direct[q.Operands[0].Label] = code[j].Operands[0].Label
		}
	}

	closure := func(l int) int {
		seen := map[int]bool{}
		for {
			next, ok := direct[l]
			if !ok || seen[l] || next == l {
				return l
			}
			seen[l] = true
			l = next
		}
	}

	for i := range code {
		if code[i].Op == quads.OpLabel {
			continue
		}
		for j := range code[i].Operands {
			if code[i].Operands[j].Kind == quads.OperandLabel {
				code[i].Operands[j].Label = closure(code[i].Operands[j].Label)
			}
		}
	}
}

// deleteDeadQuads removes unconditional gotos shadowed by a preceding goto
// and conditional branches whose target is the textually next instruction.
func deleteDeadQuads(code []quads.Quad) []quads.Quad {
	out := make([]quads.Quad, 0, len(code))
	afterGo := false
	for i, q := range code {
		switch q.Op {
		case quads.OpLabel:
			afterGo = false
		case quads.OpGo:
			if afterGo {
				continue
			}
			if branchTargetIsNext(code, i, q.Operands[0].Label) {
				continue
			}
			afterGo = true
		case quads.OpGoTrue, quads.OpGoFalse:
			if branchTargetIsNext(code, i, q.Operands[0].Label) {
				continue
			}
		default:
		}
		if q.Op != quads.OpGo && q.Op != quads.OpLabel {
			afterGo = false
		}
		out = append(out, q)
	}
	return out
}

// branchTargetIsNext reports whether the branch at index i falls through to
// its own target: every quad between it and the target's label is itself a
// label.
func branchTargetIsNext(code []quads.Quad, i, target int) bool {
	for j := i + 1; j < len(code); j++ {
		if code[j].Op != quads.OpLabel {
			return false
		}
		if code[j].Operands[0].Label == target {
			return true
		}
	}
	return false
}

// resolveLabels assigns each label its final linear offset, strips the
// label quads, and rewrites surviving label operands to offsets. Operands
// whose label number was never defined in this stream are left alone,
// which is what makes a second run a no-op.
func resolveLabels(code []quads.Quad) ([]quads.Quad, map[int]int32) {
	offsets := map[int]int32{}
	var off int32
	for _, q := range code {
		if q.Op == quads.OpLabel {
			offsets[q.Operands[0].Label] = off
			continue
		}
		off++
	}
	out := make([]quads.Quad, 0, len(code))
	for _, q := range code {
		if q.Op == quads.OpLabel {
			continue
		}
		for j := range q.Operands {
			if q.Operands[j].Kind == quads.OperandLabel {
				if o, ok := offsets[q.Operands[j].Label]; ok {
					q.Operands[j].Label = int(o)
				}
			}
		}
		out = append(out, q)
	}
	return out, offsets
}

// setLabelSymbolOffsets gives every label symbol its resolved quadruple
// offset.
func setLabelSymbolOffsets(proc *symtab.Procedure, offsets map[int]int32) {
	proc.Symbols(func(s *symtab.Symbol) bool {
		if s.Kind == symtab.KindLabel {
			if o, ok := offsets[s.LabelNum]; ok {
				s.Offset = o
			}
		}
		return true
	})
}
