// Package codegen lowers resolved ASTs to quadruples. Each procedure gets
// three segments: initialization code, slot initialization (classes and
// processes) and body code. Label operands stay symbolic until the
// optimizer resolves them to offsets.
package codegen

import (
	"setl2/internal/diag"
	"setl2/internal/lexer"
	"setl2/internal/parser"
	"setl2/internal/quads"
	"setl2/internal/symtab"
	"setl2/internal/value"
)

// ProcCode is the generated code for one procedure.
type ProcCode struct {
	Proc *symtab.Procedure
	Init *quads.Block
	Slot *quads.Block
	Body *quads.Block
}

// UnitCode is the generated code for one compilation unit: the unit's own
// procedure first, then every nested routine in declaration order.
type UnitCode struct {
	Unit   *parser.Unit
	Procs  []*ProcCode
	ByProc map[*symtab.Procedure]*ProcCode
}

// Generator lowers one unit at a time.
type Generator struct {
	diags *diag.Collector

	cur       *ProcCode
	seg       *quads.Block
	tempCount int
	loops     []loopLabels
}

type loopLabels struct {
	exitLabel     int
	continueLabel int
}

// NewGenerator creates a generator reporting into diags.
func NewGenerator(diags *diag.Collector) *Generator {
	return &Generator{diags: diags}
}

// binaryOps maps AST operators to quadruple opcodes.
var binaryOps = map[parser.NodeType]quads.Op{
	parser.NodeAdd: quads.OpAdd, parser.NodeSub: quads.OpSub,
	parser.NodeMult: quads.OpMult, parser.NodeDiv: quads.OpDiv,
	parser.NodeExpon: quads.OpExpon, parser.NodeMod: quads.OpMod,
	parser.NodeMin: quads.OpMin, parser.NodeMax: quads.OpMax,
	parser.NodeWith: quads.OpWith, parser.NodeLess: quads.OpLess,
	parser.NodeLessF: quads.OpLessF, parser.NodeNpow: quads.OpNpow,
	parser.NodeEq: quads.OpEq, parser.NodeNe: quads.OpNe,
	parser.NodeLt: quads.OpLt, parser.NodeLe: quads.OpLe,
	parser.NodeGt: quads.OpGt, parser.NodeGe: quads.OpGe,
	parser.NodeIn: quads.OpIn, parser.NodeNotIn: quads.OpNotIn,
	parser.NodeSubset: quads.OpSubset, parser.NodeIncs: quads.OpIncs,
	parser.NodeQuestion: quads.OpQuestion,
}

var unaryOps = map[parser.NodeType]quads.Op{
	parser.NodeUminus: quads.OpUminus, parser.NodeNot: quads.OpNot,
	parser.NodeNelt: quads.OpNelt, parser.NodeArb: quads.OpArb,
	parser.NodePow: quads.OpPow, parser.NodeDomain: quads.OpDomain,
	parser.NodeRange: quads.OpRange,
}

// tokenOps maps base operator tokens to opcodes, for compound assignments
// and reductions.
var tokenOps = map[lexer.TokenType]quads.Op{
	lexer.TokenPlus: quads.OpAdd, lexer.TokenDash: quads.OpSub,
	lexer.TokenQuestion: quads.OpQuestion, lexer.TokenMult: quads.OpMult,
	lexer.TokenSlash: quads.OpDiv, lexer.TokenMod: quads.OpMod,
	lexer.TokenMin: quads.OpMin, lexer.TokenMax: quads.OpMax,
	lexer.TokenWith: quads.OpWith, lexer.TokenLess: quads.OpLess,
	lexer.TokenLessF: quads.OpLessF, lexer.TokenNpow: quads.OpNpow,
	lexer.TokenEq: quads.OpEq, lexer.TokenNe: quads.OpNe,
	lexer.TokenLt: quads.OpLt, lexer.TokenLe: quads.OpLe,
	lexer.TokenGt: quads.OpGt, lexer.TokenGe: quads.OpGe,
	lexer.TokenIn: quads.OpIn, lexer.TokenNotIn: quads.OpNotIn,
	lexer.TokenSubset: quads.OpSubset, lexer.TokenIncs: quads.OpIncs,
}

// Generate lowers a resolved unit whose symbol pass produced root.
func (g *Generator) Generate(u *parser.Unit, root *symtab.Procedure) *UnitCode {
	uc := &UnitCode{Unit: u, ByProc: map[*symtab.Procedure]*ProcCode{}}

	rootCode := g.openProc(root)
	uc.Procs = append(uc.Procs, rootCode)
	uc.ByProc[root] = rootCode

	slots := u.Kind == symtab.KindClass || u.Kind == symtab.KindProcess
	g.genDeclInits(u.Decls, slots)
	if u.Body != nil {
		g.seg = rootCode.Body
		g.genStmtList(u.Body)
	}
	g.finishProc(rootCode)

	g.genRoutines(u.Routines, root, uc)
	return uc
}

func (g *Generator) genRoutines(routines []*parser.Routine, parent *symtab.Procedure, uc *UnitCode) {
	child := parent.Child
	for _, r := range routines {
		for child != nil && child.Name != r.Name {
			child = child.Next
		}
		if child == nil {
			return
		}
		saved, savedSeg, savedTemps := g.cur, g.seg, g.tempCount
		pc := g.openProc(child)
		uc.Procs = append(uc.Procs, pc)
		uc.ByProc[child] = pc
		g.genDeclInits(r.Decls, false)
		if r.Body != nil {
			g.seg = pc.Body
			g.genStmtList(r.Body)
		}
		g.finishProc(pc)
		g.genRoutines(r.Routines, child, uc)
		g.cur, g.seg, g.tempCount = saved, savedSeg, savedTemps
		child = child.Next
	}
}

func (g *Generator) openProc(p *symtab.Procedure) *ProcCode {
	pc := &ProcCode{
		Proc: p,
		Init: quads.NewBlock(),
		Slot: quads.NewBlock(),
		Body: quads.NewBlock(),
	}
	g.cur = pc
	g.seg = pc.Body
	g.tempCount = 0
	return pc
}

func (g *Generator) finishProc(pc *ProcCode) {
	pc.Proc.InitCount = pc.Init.Len()
	pc.Proc.SlotCount = pc.Slot.Len()
	pc.Proc.BodyCount = pc.Body.Len()
}

// genDeclInits emits var and const initializers into the init segment, or
// the slot segment for class and process slots.
func (g *Generator) genDeclInits(decls *parser.Node, slots bool) {
	if decls == nil {
		return
	}
	decls.Children(func(group *parser.Node) bool {
		if group.Type != parser.NodeVarDecl && group.Type != parser.NodeConstDecl {
			return true
		}
		target := g.cur.Init
		if slots && group.Type == parser.NodeVarDecl {
			target = g.cur.Slot
		}
		saved := g.seg
		g.seg = target
		group.Children(func(item *parser.Node) bool {
			if item.Type == parser.NodeAssign {
				g.genStmt(item)
			}
			return true
		})
		g.seg = saved
		return true
	})
}

func (g *Generator) newTemp() *symtab.Symbol {
	g.tempCount++
	return &symtab.Symbol{
		Kind:   symtab.KindID,
		Owner:  g.cur.Proc,
		Offset: int32(g.tempCount),
		Flags:  symtab.IsTemp | symtab.HasLValue | symtab.HasRValue,
	}
}

func (g *Generator) newLabel() int {
	return g.cur.Proc.NextLabel()
}

func (g *Generator) emit(op quads.Op, pos diag.Pos, operands ...quads.Operand) {
	g.seg.Emit(op, pos, operands...)
}

func (g *Generator) label(n int, pos diag.Pos) {
	g.emit(quads.OpLabel, pos, quads.LabelRef(n))
}

func (g *Generator) genStmtList(list *parser.Node) {
	list.Children(func(stmt *parser.Node) bool {
		g.genStmt(stmt)
		return true
	})
}

func (g *Generator) genStmt(n *parser.Node) {
	switch n.Type {
	case parser.NodeAssign:
		g.genAssign(n)
	case parser.NodeAssignOp:
		g.genAssignOp(n)
	case parser.NodeFrom, parser.NodeFromB, parser.NodeFromE:
		g.genFrom(n)
	case parser.NodeIf:
		g.genIf(n)
	case parser.NodeWhile:
		g.genWhile(n)
	case parser.NodeUntil:
		g.genUntil(n)
	case parser.NodeLoop:
		g.genLoop(n)
	case parser.NodeFor:
		g.genFor(n)
	case parser.NodeCase:
		g.genCase(n)
	case parser.NodeExit:
		if len(g.loops) > 0 {
			g.emit(quads.OpGo, n.Pos, quads.LabelRef(g.loops[len(g.loops)-1].exitLabel))
		}
	case parser.NodeContinue:
		if len(g.loops) > 0 {
			g.emit(quads.OpGo, n.Pos, quads.LabelRef(g.loops[len(g.loops)-1].continueLabel))
		}
	case parser.NodeStop:
		g.emit(quads.OpStop, n.Pos)
	case parser.NodeReturn:
		if n.Child != nil {
			v := g.genExpr(n.Child)
			g.emit(quads.OpReturn, n.Pos, v)
		} else {
			g.emit(quads.OpReturn, n.Pos)
		}
	case parser.NodeAssert:
		v := g.genExpr(n.Child)
		g.emit(quads.OpAssert, n.Pos, v)
	case parser.NodeStmtList:
		g.genStmtList(n)
	default:
		// expression statement: a call or other value discarded
		g.genExpr(n)
	}
}

func (g *Generator) genAssign(n *parser.Node) quads.Operand {
	lhs := n.Child
	rhs := lhs.Next
	v := g.genExpr(rhs)
	g.genStore(lhs, v, n.Pos)
	return v
}

// genStore writes v into the target denoted by lhs.
func (g *Generator) genStore(lhs *parser.Node, v quads.Operand, pos diag.Pos) {
	switch lhs.Type {
	case parser.NodeSymtab:
		g.emit(quads.OpAssign, pos, quads.Sym(lhs.Sym), v)
	case parser.NodeOf:
		base := g.genExpr(lhs.Child)
		idx := g.genIndex(lhs.Child.Next, pos)
		g.emit(quads.OpOfAssign, pos, base, idx, v)
	case parser.NodeOfA:
		base := g.genExpr(lhs.Child)
		idx := g.genIndex(lhs.Child.Next, pos)
		g.emit(quads.OpOfAAssign, pos, base, idx, v)
	case parser.NodeSlice:
		base := g.genExpr(lhs.Child)
		lo := g.genExpr(lhs.Child.Next)
		hi := g.genExpr(lhs.Child.Next.Next)
		g.emit(quads.OpPush, pos, hi)
		g.emit(quads.OpSliceAssign, pos, base, lo, v)
	case parser.NodeEnd:
		base := g.genExpr(lhs.Child)
		lo := g.genExpr(lhs.Child.Next)
		g.emit(quads.OpPush, pos, quads.Spec(value.Omega{}))
		g.emit(quads.OpSliceAssign, pos, base, lo, v)
	case parser.NodeEnumTup:
		// tuple destructuring: component i of the source lands in target i
		i := 1
		lhs.Children(func(el *parser.Node) bool {
			t := g.newTemp()
			g.emit(quads.OpOf, pos, quads.Sym(t), v, quads.Spec(value.Short(int32(i))))
			g.genStore(el, quads.Sym(t), pos)
			i++
			return true
		})
	case parser.NodeSlot:
		obj := g.genExpr(lhs.Child)
		g.emit(quads.OpSlotOf, pos, obj, quads.Sym(lhs.Child.Next.Sym), v)
	default:
		g.diags.Errorf(pos, diag.MsgExpectedLHS, lhs.Type.String())
	}
}

// genIndex evaluates an index list; multiple indices are packed into a
// tuple so the selection sees one value.
func (g *Generator) genIndex(first *parser.Node, pos diag.Pos) quads.Operand {
	if first == nil {
		return quads.Spec(value.Omega{})
	}
	if first.Next == nil {
		return g.genExpr(first)
	}
	count := 0
	for arg := first; arg != nil; arg = arg.Next {
		v := g.genExpr(arg)
		g.emit(quads.OpPush, pos, v)
		count++
	}
	t := g.newTemp()
	g.emit(quads.OpTuple, pos, quads.Sym(t), quads.Int(count))
	return quads.Sym(t)
}

func (g *Generator) genAssignOp(n *parser.Node) quads.Operand {
	lhs := n.Child
	rhs := lhs.Next
	op := quads.OpNoop
	if n.Name != nil {
		op = tokenOps[lexer.TokenType(n.Name.TokenType).BaseOp()]
	}
	v := g.genExpr(rhs)
	switch lhs.Type {
	case parser.NodeSymtab:
		g.emit(op, n.Pos, quads.Sym(lhs.Sym), quads.Sym(lhs.Sym), v)
		return quads.Sym(lhs.Sym)
	default:
		// indexed target: load, combine, store back through the same index
		old := g.genExpr(lhs)
		t := g.newTemp()
		g.emit(op, n.Pos, quads.Sym(t), old, v)
		g.genStore(lhs, quads.Sym(t), n.Pos)
		return quads.Sym(t)
	}
}

func (g *Generator) genFrom(n *parser.Node) quads.Operand {
	var op quads.Op
	switch n.Type {
	case parser.NodeFrom:
		op = quads.OpFrom
	case parser.NodeFromB:
		op = quads.OpFromB
	default:
		op = quads.OpFromE
	}
	target := g.genExpr(n.Child)
	source := g.genExpr(n.Child.Next)
	g.emit(op, n.Pos, target, source)
	return target
}

func (g *Generator) genIf(n *parser.Node) {
	cond := g.genExpr(n.Child)
	elseLabel := g.newLabel()
	g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(elseLabel), cond)
	g.genStmtList(n.Child.Next)
	if elsePart := n.Child.Next.Next; elsePart != nil {
		endLabel := g.newLabel()
		g.emit(quads.OpGo, n.Pos, quads.LabelRef(endLabel))
		g.label(elseLabel, n.Pos)
		g.genStmtList(elsePart)
		g.label(endLabel, n.Pos)
	} else {
		g.label(elseLabel, n.Pos)
	}
}

func (g *Generator) genWhile(n *parser.Node) {
	top := g.newLabel()
	end := g.newLabel()
	g.label(top, n.Pos)
	cond := g.genExpr(n.Child)
	g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(end), cond)
	g.pushLoop(end, top)
	g.genStmtList(n.Child.Next)
	g.popLoop()
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(top))
	g.label(end, n.Pos)
}

func (g *Generator) genUntil(n *parser.Node) {
	top := g.newLabel()
	check := g.newLabel()
	end := g.newLabel()
	g.label(top, n.Pos)
	g.pushLoop(end, check)
	g.genStmtList(n.Child.Next)
	g.popLoop()
	g.label(check, n.Pos)
	cond := g.genExpr(n.Child)
	g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(top), cond)
	g.label(end, n.Pos)
}

func (g *Generator) genLoop(n *parser.Node) {
	top := g.newLabel()
	end := g.newLabel()
	g.label(top, n.Pos)
	g.pushLoop(end, top)
	g.genStmtList(n.Child)
	g.popLoop()
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(top))
	g.label(end, n.Pos)
}

func (g *Generator) genFor(n *parser.Node) {
	end := g.newLabel()
	iters, cond := splitIterators(n.Child)
	g.genIterLoop(iters.Child, cond, end, n.Pos, func() {
		g.genStmtList(n.Child.Next)
	})
	g.label(end, n.Pos)
}

// splitIterators unwraps an optional such-that node into the iterator list
// and the filter condition.
func splitIterators(n *parser.Node) (*parser.Node, *parser.Node) {
	if n.Type == parser.NodeSuchThat {
		return n.Child, n.Child.Next
	}
	return n, nil
}

// genIterLoop nests one loop per iterator; the innermost level checks the
// filter and runs body. Exit transfers to endLabel; continue re-enters the
// innermost iteration.
func (g *Generator) genIterLoop(iter *parser.Node, cond *parser.Node, endLabel int, pos diag.Pos, body func()) {
	if iter == nil {
		if cond != nil {
			next := g.loops[len(g.loops)-1].continueLabel
			cv := g.genExpr(cond)
			g.emit(quads.OpGoFalse, pos, quads.LabelRef(next), cv)
		}
		body()
		return
	}
	source := g.genExpr(iter.Child.Next)
	it := g.newTemp()
	g.emit(quads.OpIterOpen, pos, quads.Sym(it), source)
	top := g.newLabel()
	done := g.newLabel()
	g.label(top, pos)

	target := iter.Child
	if target.Type == parser.NodeSymtab {
		g.emit(quads.OpIterNext, pos, quads.Sym(target.Sym), quads.Sym(it), quads.LabelRef(done))
	} else {
		t := g.newTemp()
		g.emit(quads.OpIterNext, pos, quads.Sym(t), quads.Sym(it), quads.LabelRef(done))
		g.genStore(target, quads.Sym(t), pos)
	}

	inner := iter.Next == nil
	if inner {
		g.pushLoop(endLabel, top)
		g.genIterLoop(nil, cond, endLabel, pos, body)
		g.popLoop()
	} else {
		g.genIterLoop(iter.Next, cond, endLabel, pos, body)
	}
	g.emit(quads.OpGo, pos, quads.LabelRef(top))
	g.label(done, pos)
}

func (g *Generator) genCase(n *parser.Node) {
	subject := g.genExpr(n.Child)
	end := g.newLabel()
	type armInfo struct {
		label int
		body  *parser.Node
	}
	var arms []armInfo
	var otherwise *parser.Node
	for arm := n.Child.Next; arm != nil; arm = arm.Next {
		switch arm.Type {
		case parser.NodeWhen:
			armLabel := g.newLabel()
			arm.Child.Children(func(lab *parser.Node) bool {
				lv := g.genExpr(lab)
				t := g.newTemp()
				g.emit(quads.OpEq, arm.Pos, quads.Sym(t), subject, lv)
				g.emit(quads.OpGoTrue, arm.Pos, quads.LabelRef(armLabel), quads.Sym(t))
				return true
			})
			arms = append(arms, armInfo{label: armLabel, body: arm.Child.Next})
		case parser.NodeList:
			otherwise = arm.Child
		}
	}
	if otherwise != nil {
		g.genStmtList(otherwise)
	}
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(end))
	for _, arm := range arms {
		g.label(arm.label, n.Pos)
		g.genStmtList(arm.body)
		g.emit(quads.OpGo, n.Pos, quads.LabelRef(end))
	}
	g.label(end, n.Pos)
}

func (g *Generator) pushLoop(exit, cont int) {
	g.loops = append(g.loops, loopLabels{exitLabel: exit, continueLabel: cont})
}

func (g *Generator) popLoop() {
	g.loops = g.loops[:len(g.loops)-1]
}

// genExpr lowers an expression and returns the operand holding its value.
func (g *Generator) genExpr(n *parser.Node) quads.Operand {
	switch n.Type {
	case parser.NodeLiteral:
		return quads.Spec(n.Lit)
	case parser.NodeSymtab:
		if n.Sym != nil && n.Sym.Flags.Has(symtab.Initialized) && n.Sym.Value != nil {
			return quads.Spec(n.Sym.Value)
		}
		return quads.Sym(n.Sym)
	case parser.NodeAssign:
		return g.genAssign(n)
	case parser.NodeAssignOp:
		return g.genAssignOp(n)
	case parser.NodeFrom, parser.NodeFromB, parser.NodeFromE:
		return g.genFrom(n)
	case parser.NodeAnd:
		return g.genShortCircuit(n, true)
	case parser.NodeOr:
		return g.genShortCircuit(n, false)
	case parser.NodeSelf:
		t := g.newTemp()
		g.emit(quads.OpSelf, n.Pos, quads.Sym(t))
		return quads.Sym(t)
	case parser.NodeOf:
		base := g.genExpr(n.Child)
		idx := g.genIndex(n.Child.Next, n.Pos)
		t := g.newTemp()
		g.emit(quads.OpOf, n.Pos, quads.Sym(t), base, idx)
		return quads.Sym(t)
	case parser.NodeOfA:
		base := g.genExpr(n.Child)
		idx := g.genIndex(n.Child.Next, n.Pos)
		t := g.newTemp()
		g.emit(quads.OpOfA, n.Pos, quads.Sym(t), base, idx)
		return quads.Sym(t)
	case parser.NodeCall:
		return g.genCall(n, quads.OpCall)
	case parser.NodeInitObj:
		return g.genCall(n, quads.OpInitObj)
	case parser.NodeSlotCall:
		return g.genCall(n, quads.OpSlotCall)
	case parser.NodeSlotOf, parser.NodeSlot:
		obj := g.genExpr(n.Child)
		t := g.newTemp()
		g.emit(quads.OpSlotOf, n.Pos, quads.Sym(t), obj, quads.Sym(n.Child.Next.Sym))
		return quads.Sym(t)
	case parser.NodeSlice:
		base := g.genExpr(n.Child)
		lo := g.genExpr(n.Child.Next)
		hi := g.genExpr(n.Child.Next.Next)
		t := g.newTemp()
		g.emit(quads.OpPush, n.Pos, hi)
		g.emit(quads.OpSlice, n.Pos, quads.Sym(t), base, lo)
		return quads.Sym(t)
	case parser.NodeEnd:
		base := g.genExpr(n.Child)
		lo := g.genExpr(n.Child.Next)
		t := g.newTemp()
		g.emit(quads.OpSliceEnd, n.Pos, quads.Sym(t), base, lo)
		return quads.Sym(t)
	case parser.NodeEnumSet:
		return g.genEnum(n, quads.OpSet)
	case parser.NodeEnumTup:
		return g.genEnum(n, quads.OpTuple)
	case parser.NodeSetFormer:
		return g.genFormer(n, quads.OpSet)
	case parser.NodeTupleFormer:
		return g.genFormer(n, quads.OpTuple)
	case parser.NodeExists:
		return g.genQuantifier(n, true)
	case parser.NodeForall:
		return g.genQuantifier(n, false)
	case parser.NodeUnApply, parser.NodeBinApply:
		return g.genReduction(n)
	case parser.NodeStop:
		g.emit(quads.OpStop, n.Pos)
		return quads.Spec(value.Omega{})
	}
	if op, ok := binaryOps[n.Type]; ok {
		l := g.genExpr(n.Child)
		r := g.genExpr(n.Child.Next)
		t := g.newTemp()
		g.emit(op, n.Pos, quads.Sym(t), l, r)
		return quads.Sym(t)
	}
	if op, ok := unaryOps[n.Type]; ok {
		v := g.genExpr(n.Child)
		t := g.newTemp()
		g.emit(op, n.Pos, quads.Sym(t), v)
		return quads.Sym(t)
	}
	g.diags.Errorf(n.Pos, "Cannot generate code for => %s", n.Type)
	return quads.Spec(value.Omega{})
}

// genShortCircuit lowers and/or with branches so the right operand only
// evaluates when needed.
func (g *Generator) genShortCircuit(n *parser.Node, isAnd bool) quads.Operand {
	t := g.newTemp()
	short := g.newLabel()
	end := g.newLabel()
	l := g.genExpr(n.Child)
	if isAnd {
		g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(short), l)
	} else {
		g.emit(quads.OpGoTrue, n.Pos, quads.LabelRef(short), l)
	}
	r := g.genExpr(n.Child.Next)
	g.emit(quads.OpAssign, n.Pos, quads.Sym(t), r)
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(end))
	g.label(short, n.Pos)
	g.emit(quads.OpAssign, n.Pos, quads.Sym(t), l)
	g.label(end, n.Pos)
	return quads.Sym(t)
}

func (g *Generator) genCall(n *parser.Node, op quads.Op) quads.Operand {
	callee := g.genExpr(n.Child)
	count := 0
	for arg := n.Child.Next; arg != nil; arg = arg.Next {
		v := g.genExpr(arg)
		g.emit(quads.OpPush, n.Pos, v)
		count++
	}
	t := g.newTemp()
	g.emit(op, n.Pos, quads.Sym(t), callee, quads.Int(count))
	return quads.Sym(t)
}

func (g *Generator) genEnum(n *parser.Node, op quads.Op) quads.Operand {
	count := 0
	n.Children(func(el *parser.Node) bool {
		v := g.genExpr(el)
		g.emit(quads.OpPush, n.Pos, v)
		count++
		return true
	})
	t := g.newTemp()
	g.emit(op, n.Pos, quads.Sym(t), quads.Int(count))
	return quads.Sym(t)
}

// genFormer lowers {expr : iters | cond} and its tuple twin into an empty
// container plus an iterator loop accumulating with `with`.
func (g *Generator) genFormer(n *parser.Node, op quads.Op) quads.Operand {
	t := g.newTemp()
	g.emit(op, n.Pos, quads.Sym(t), quads.Int(0))

	if n.Child.Type == parser.NodeIterRange {
		return g.genRangeFormer(n, t)
	}

	end := g.newLabel()
	iters, cond := splitIterators(n.Child.Next)
	g.genIterLoop(iters.Child, cond, end, n.Pos, func() {
		v := g.genExpr(n.Child)
		g.emit(quads.OpWith, n.Pos, quads.Sym(t), quads.Sym(t), v)
	})
	g.label(end, n.Pos)
	return quads.Sym(t)
}

// genRangeFormer lowers {lo..hi} and {lo, next..hi}. The step is the
// difference between the first two elements, one by default.
func (g *Generator) genRangeFormer(n *parser.Node, t *symtab.Symbol) quads.Operand {
	rng := n.Child
	lo := g.genExpr(rng.Child)
	var step quads.Operand
	var hi quads.Operand
	if rng.Child.Next.Next != nil {
		second := g.genExpr(rng.Child.Next)
		hi = g.genExpr(rng.Child.Next.Next)
		st := g.newTemp()
		g.emit(quads.OpSub, n.Pos, quads.Sym(st), second, lo)
		step = quads.Sym(st)
	} else {
		hi = g.genExpr(rng.Child.Next)
		step = quads.Spec(value.Short(1))
	}

	cur := g.newTemp()
	g.emit(quads.OpAssign, n.Pos, quads.Sym(cur), lo)
	top := g.newLabel()
	end := g.newLabel()
	g.label(top, n.Pos)
	cmp := g.newTemp()
	g.emit(quads.OpLe, n.Pos, quads.Sym(cmp), quads.Sym(cur), hi)
	g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(end), quads.Sym(cmp))
	g.emit(quads.OpWith, n.Pos, quads.Sym(t), quads.Sym(t), quads.Sym(cur))
	g.emit(quads.OpAdd, n.Pos, quads.Sym(cur), quads.Sym(cur), step)
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(top))
	g.label(end, n.Pos)
	return quads.Sym(t)
}

// genQuantifier lowers exists/forall to a search loop over the iterators.
func (g *Generator) genQuantifier(n *parser.Node, exists bool) quads.Operand {
	t := g.newTemp()
	initial, found := value.False, value.True
	if !exists {
		initial, found = value.True, value.False
	}
	g.emit(quads.OpAssign, n.Pos, quads.Sym(t), quads.Spec(initial))

	end := g.newLabel()
	iters, cond := splitIterators(n.Child)
	if cond == nil {
		// the checker has already rejected a condition-less quantifier
		return quads.Sym(t)
	}
	g.genIterLoop(iters.Child, nil, end, n.Pos, func() {
		cv := g.genExpr(cond)
		if exists {
			g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(g.loops[len(g.loops)-1].continueLabel), cv)
		} else {
			g.emit(quads.OpGoTrue, n.Pos, quads.LabelRef(g.loops[len(g.loops)-1].continueLabel), cv)
		}
		g.emit(quads.OpAssign, n.Pos, quads.Sym(t), quads.Spec(found))
		g.emit(quads.OpGo, n.Pos, quads.LabelRef(end))
	})
	g.label(end, n.Pos)
	return quads.Sym(t)
}

// genReduction lowers op/ e and e1 op/ e2: the operator folds across the
// operand's elements left to right.
func (g *Generator) genReduction(n *parser.Node) quads.Operand {
	op := quads.OpNoop
	if n.Name != nil {
		op = tokenOps[lexer.TokenType(n.Name.TokenType).BaseOp()]
	}
	acc := g.newTemp()
	haveAcc := g.newTemp()

	var sourceNode *parser.Node
	if n.Type == parser.NodeBinApply {
		first := g.genExpr(n.Child)
		g.emit(quads.OpAssign, n.Pos, quads.Sym(acc), first)
		g.emit(quads.OpAssign, n.Pos, quads.Sym(haveAcc), quads.Spec(value.True))
		sourceNode = n.Child.Next
	} else {
		g.emit(quads.OpAssign, n.Pos, quads.Sym(acc), quads.Spec(value.Omega{}))
		g.emit(quads.OpAssign, n.Pos, quads.Sym(haveAcc), quads.Spec(value.False))
		sourceNode = n.Child
	}

	source := g.genExpr(sourceNode)
	it := g.newTemp()
	g.emit(quads.OpIterOpen, n.Pos, quads.Sym(it), source)
	top := g.newLabel()
	done := g.newLabel()
	first := g.newLabel()
	next := g.newLabel()
	g.label(top, n.Pos)
	el := g.newTemp()
	g.emit(quads.OpIterNext, n.Pos, quads.Sym(el), quads.Sym(it), quads.LabelRef(done))
	g.emit(quads.OpGoFalse, n.Pos, quads.LabelRef(first), quads.Sym(haveAcc))
	g.emit(op, n.Pos, quads.Sym(acc), quads.Sym(acc), quads.Sym(el))
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(next))
	g.label(first, n.Pos)
	g.emit(quads.OpAssign, n.Pos, quads.Sym(acc), quads.Sym(el))
	g.emit(quads.OpAssign, n.Pos, quads.Sym(haveAcc), quads.Spec(value.True))
	g.label(next, n.Pos)
	g.emit(quads.OpGo, n.Pos, quads.LabelRef(top))
	g.label(done, n.Pos)
	return quads.Sym(acc)
}
