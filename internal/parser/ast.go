package parser

import (
	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/symtab"
	"setl2/internal/value"
)

// NodeType tags an AST node. The interpretation of Child depends on the
// tag; Next chains siblings within a list.
type NodeType int32

const (
	NodeNull NodeType = iota
	NodeList
	NodeName   // unresolved name reference
	NodeSymtab // resolved symbol reference
	NodeLiteral
	NodeDot

	// binary operators
	NodeAdd
	NodeSub
	NodeMult
	NodeDiv
	NodeExpon
	NodeMod
	NodeMin
	NodeMax
	NodeWith
	NodeLess
	NodeLessF
	NodeNpow
	NodeEq
	NodeNe
	NodeLt
	NodeLe
	NodeGt
	NodeGe
	NodeIn
	NodeNotIn
	NodeSubset
	NodeIncs
	NodeAnd
	NodeOr
	NodeQuestion

	// unary operators
	NodeUminus
	NodeNot
	NodeNelt
	NodeArb
	NodePow
	NodeDomain
	NodeRange

	// assignment and extraction
	NodeAssign
	NodeAssignOp // compound <op>:= ; Name holds the base operator name
	NodeFrom
	NodeFromB
	NodeFromE

	// application forms
	NodeOf    // f(args) before resolution; map/tuple/string selection after
	NodeOfA   // f{args} multi-map selection
	NodeCall  // resolved procedure call
	NodeSlice // s(i..j)
	NodeEnd   // s(i..)

	// reductions
	NodeUnApply  // op/ e
	NodeBinApply // e1 op/ e2

	// formers and iteration
	NodeSetFormer
	NodeTupleFormer
	NodeEnumSet
	NodeEnumTup
	NodeIterList
	NodeIterIn     // bv in source
	NodeIterRange  // lo .. hi, optionally with a second element giving the step
	NodeSuchThat   // iter-list | condition
	NodeExists
	NodeForall

	// statements
	NodeStmtList
	NodeIf
	NodeWhile
	NodeUntil
	NodeLoop
	NodeFor
	NodeCase
	NodeWhen
	NodeExit
	NodeContinue
	NodeStop
	NodeReturn
	NodeAssert

	// declarations
	NodeVarDecl
	NodeConstDecl
	NodeSelDecl

	// object and slot forms
	NodeSlot
	NodeSlotOf
	NodeSlotCall
	NodeInitObj
	NodeMenviron
	NodePenviron
	NodeSelf
)

var nodeTypeNames = map[NodeType]string{
	NodeNull: "null", NodeList: "list", NodeName: "name",
	NodeSymtab: "symtab", NodeLiteral: "literal", NodeDot: "dot",
	NodeAdd: "add", NodeSub: "sub", NodeMult: "mult", NodeDiv: "div",
	NodeExpon: "expon", NodeMod: "mod", NodeMin: "min", NodeMax: "max",
	NodeWith: "with", NodeLess: "less", NodeLessF: "lessf",
	NodeNpow: "npow", NodeEq: "eq", NodeNe: "ne", NodeLt: "lt",
	NodeLe: "le", NodeGt: "gt", NodeGe: "ge", NodeIn: "in",
	NodeNotIn: "notin", NodeSubset: "subset", NodeIncs: "incs",
	NodeAnd: "and", NodeOr: "or", NodeQuestion: "question",
	NodeUminus: "uminus", NodeNot: "not", NodeNelt: "nelt",
	NodeArb: "arb", NodePow: "pow", NodeDomain: "domain",
	NodeRange: "range", NodeAssign: "assign", NodeAssignOp: "assignop",
	NodeFrom: "from", NodeFromB: "fromb", NodeFromE: "frome",
	NodeOf: "of", NodeOfA: "ofa", NodeCall: "call", NodeSlice: "slice",
	NodeEnd: "end", NodeUnApply: "unapply", NodeBinApply: "binapply",
	NodeSetFormer: "setformer", NodeTupleFormer: "tupleformer",
	NodeEnumSet: "enumset", NodeEnumTup: "enumtup",
	NodeIterList: "iterlist", NodeIterIn: "iterin",
	NodeIterRange: "iterrange",
	NodeSuchThat: "suchthat", NodeExists: "exists", NodeForall: "forall",
	NodeStmtList: "stmtlist", NodeIf: "if", NodeWhile: "while",
	NodeUntil: "until", NodeLoop: "loop", NodeFor: "for",
	NodeCase: "case", NodeWhen: "when", NodeExit: "exit",
	NodeContinue: "continue", NodeStop: "stop", NodeReturn: "return",
	NodeAssert: "assert", NodeVarDecl: "vardecl",
	NodeConstDecl: "constdecl", NodeSelDecl: "seldecl",
	NodeSlot: "slot", NodeSlotOf: "slotof", NodeSlotCall: "slotcall",
	NodeInitObj: "initobj", NodeMenviron: "menviron",
	NodePenviron: "penviron", NodeSelf: "self",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Node is one AST node. Nodes are allocated from the unit's pool and freed
// in bulk when code generation for the unit finishes.
type Node struct {
	Type  NodeType
	Child *Node
	Next  *Node
	Pos   diag.Pos

	// Name is the referenced name for NodeName and the base operator name
	// for NodeAssignOp; Ext records an overloaded operator name so a binary
	// or unary operator can be rewritten into a method call during
	// resolution.
	Name *names.Name
	Ext  *names.Name

	// Sym is filled in when resolution rewrites a name to NodeSymtab.
	Sym *symtab.Symbol

	// Lit holds literal values.
	Lit value.Specifier
}

// Pool allocates AST nodes in blocks. A unit's whole tree returns to the
// free list in one call when the unit is done.
type Pool struct {
	blocks [][]Node
	next   int
}

const poolBlockSize = 200

// NewPool creates an empty node pool.
func NewPool() *Pool {
	return &Pool{}
}

// New allocates a node.
func (p *Pool) New(t NodeType, pos diag.Pos) *Node {
	if len(p.blocks) == 0 || p.next == poolBlockSize {
		p.blocks = append(p.blocks, make([]Node, poolBlockSize))
		p.next = 0
	}
	blk := p.blocks[len(p.blocks)-1]
	n := &blk[p.next]
	p.next++
	*n = Node{Type: t, Pos: pos}
	return n
}

// Release frees every node the pool handed out. Holding a *Node across a
// Release is a bug in the caller.
func (p *Pool) Release() {
	p.blocks = p.blocks[:0]
	p.next = 0
}

// appendChild adds c to the end of n's child list.
func appendChild(n *Node, c *Node) {
	if n.Child == nil {
		n.Child = c
		return
	}
	last := n.Child
	for last.Next != nil {
		last = last.Next
	}
	last.Next = c
}

// NumChildren counts n's direct children.
func (n *Node) NumChildren() int {
	count := 0
	for c := n.Child; c != nil; c = c.Next {
		count++
	}
	return count
}

// Children walks n's direct children.
func (n *Node) Children(fn func(*Node) bool) {
	for c := n.Child; c != nil; c = c.Next {
		if !fn(c) {
			return
		}
	}
}

// FormalMode is the parameter passing mode.
type FormalMode int

const (
	FormalRW FormalMode = iota
	FormalRD
	FormalWR
)

func (m FormalMode) String() string {
	switch m {
	case FormalRD:
		return "rd"
	case FormalWR:
		return "wr"
	}
	return "rw"
}

// Formal is one declared parameter.
type Formal struct {
	Name *names.Name
	Mode FormalMode
	Pos  diag.Pos
}

// Routine is one procedure or method definition.
type Routine struct {
	Name     *names.Name
	Pos      diag.Pos
	Formals  []*Formal
	VarArgs  bool
	Decls    *Node
	Body     *Node
	Routines []*Routine
}

// Unit is one compilation unit.
type Unit struct {
	Kind     symtab.Kind
	IsBody   bool
	Name     *names.Name
	Pos      diag.Pos
	Uses     []*names.Name
	Inherits []*names.Name
	Decls    *Node
	Body     *Node
	Routines []*Routine
}
