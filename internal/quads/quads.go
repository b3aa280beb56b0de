// Package quads defines the three-address intermediate form the code
// generator emits and the optimizer rewrites. A quadruple is an opcode and
// up to three typed operands.
package quads

import (
	"fmt"
	"strings"

	"setl2/internal/diag"
	"setl2/internal/symtab"
	"setl2/internal/value"
)

// Op is a quadruple opcode.
type Op int

const (
	OpNoop Op = iota

	// control flow
	OpLabel
	OpGo
	OpGoTrue
	OpGoFalse

	// moves
	OpAssign

	// binary operations
	OpAdd
	OpSub
	OpMult
	OpDiv
	OpExpon
	OpMod
	OpMin
	OpMax
	OpWith
	OpLess
	OpLessF
	OpNpow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpNotIn
	OpSubset
	OpIncs
	OpQuestion

	// unary operations
	OpUminus
	OpNot
	OpNelt
	OpArb
	OpPow
	OpDomain
	OpRange

	// selection and application
	OpOf
	OpOfA
	OpSlice
	OpSliceEnd
	OpOfAssign
	OpOfAAssign
	OpSliceAssign

	// extraction
	OpFrom
	OpFromB
	OpFromE

	// constructors
	OpPush
	OpSet
	OpTuple

	// iteration
	OpIterOpen
	OpIterNext

	// calls and termination
	OpCall
	OpReturn
	OpStop
	OpAssert

	// objects
	OpInitObj
	OpSlotOf
	OpSlotCall
	OpSelf
)

var opNames = map[Op]string{
	OpNoop: "noop", OpLabel: "label", OpGo: "go", OpGoTrue: "gotrue",
	OpGoFalse: "gofalse", OpAssign: "assign", OpAdd: "add", OpSub: "sub",
	OpMult: "mult", OpDiv: "div", OpExpon: "expon", OpMod: "mod",
	OpMin: "min", OpMax: "max", OpWith: "with", OpLess: "less",
	OpLessF: "lessf", OpNpow: "npow", OpEq: "eq", OpNe: "ne", OpLt: "lt",
	OpLe: "le", OpGt: "gt", OpGe: "ge", OpIn: "in", OpNotIn: "notin",
	OpSubset: "subset", OpIncs: "incs", OpQuestion: "question",
	OpUminus: "uminus", OpNot: "not", OpNelt: "nelt", OpArb: "arb",
	OpPow: "pow", OpDomain: "domain", OpRange: "range", OpOf: "of",
	OpOfA: "ofa", OpSlice: "slice", OpSliceEnd: "sliceend",
	OpOfAssign: "ofassign", OpOfAAssign: "ofaassign",
	OpSliceAssign: "sliceassign", OpFrom: "from", OpFromB: "fromb",
	OpFromE: "frome", OpPush: "push", OpSet: "set", OpTuple: "tuple",
	OpIterOpen: "iteropen", OpIterNext: "iternext", OpCall: "call",
	OpReturn: "return", OpStop: "stop", OpAssert: "assert",
	OpInitObj: "initobj", OpSlotOf: "slotof", OpSlotCall: "slotcall",
	OpSelf: "self",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "unknown"
}

// OperandKind discriminates quadruple operands.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandSpec
	OperandSym
	OperandLabel
	OperandInt
	OperandStr
)

// Operand is one typed quadruple operand.
type Operand struct {
	Kind  OperandKind
	Spec  value.Specifier
	Sym   *symtab.Symbol
	Label int
	Int   int
	Str   string
}

// None is the absent operand.
var None = Operand{}

// Spec wraps a specifier operand.
func Spec(s value.Specifier) Operand {
	return Operand{Kind: OperandSpec, Spec: s}
}

// Sym wraps a symbol operand.
func Sym(s *symtab.Symbol) Operand {
	return Operand{Kind: OperandSym, Sym: s}
}

// LabelRef wraps a label-number operand.
func LabelRef(n int) Operand {
	return Operand{Kind: OperandLabel, Label: n}
}

// Int wraps an integer operand.
func Int(n int) Operand {
	return Operand{Kind: OperandInt, Int: n}
}

// Str wraps a string operand.
func Str(s string) Operand {
	return Operand{Kind: OperandStr, Str: s}
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandNone:
		return "_"
	case OperandSpec:
		return fmt.Sprintf("lit:%v", o.Spec)
	case OperandSym:
		if o.Sym.Name != nil {
			return o.Sym.Name.Text
		}
		return fmt.Sprintf("t%d", o.Sym.Offset)
	case OperandLabel:
		return fmt.Sprintf("L%d", o.Label)
	case OperandInt:
		return fmt.Sprintf("%d", o.Int)
	case OperandStr:
		return fmt.Sprintf("%q", o.Str)
	}
	return "?"
}

// Quad is one three-address instruction.
type Quad struct {
	Op       Op
	Operands [3]Operand
	Pos      diag.Pos
}

func (q Quad) String() string {
	parts := []string{q.Op.String()}
	for _, op := range q.Operands {
		if op.Kind != OperandNone {
			parts = append(parts, op.String())
		}
	}
	return strings.Join(parts, " ")
}

// Block is a growable quadruple sequence with the emit helpers the code
// generator uses.
type Block struct {
	Quads []Quad
}

// NewBlock creates an empty block.
func NewBlock() *Block {
	return &Block{}
}

// Emit appends a quadruple.
func (b *Block) Emit(op Op, pos diag.Pos, operands ...Operand) {
	q := Quad{Op: op, Pos: pos}
	copy(q.Operands[:], operands)
	b.Quads = append(b.Quads, q)
}

// Len returns the number of quadruples.
func (b *Block) Len() int {
	return len(b.Quads)
}

// Dump renders the block one quadruple per line.
func (b *Block) Dump() string {
	var sb strings.Builder
	for i, q := range b.Quads {
		fmt.Fprintf(&sb, "%4d  %s\n", i, q)
	}
	return sb.String()
}
