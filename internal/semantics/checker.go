// Package semantics resolves names to symbols and validates every subtree
// against its context: statement, left-hand side, right-hand side, bound
// variable or constant. The pass rewrites the tree as it goes — name nodes
// become symbol references, dotted qualifiers become selection trees, and
// calls take their final form.
package semantics

import (
	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/parser"
	"setl2/internal/symtab"
	"setl2/internal/value"
)

// Context is the bitmask handed down the tree.
type Context uint32

const (
	// CtxStmt marks a subtree that should be a statement.
	CtxStmt Context = 1 << iota
	// CtxLHSGen is an unrestricted left-hand side.
	CtxLHSGen
	// CtxLHSBV is an iterator bound variable, declared on first sight.
	CtxLHSBV
	// CtxLHSMap is an indexed left-hand side.
	CtxLHSMap
	// CtxRHSVal requires a value.
	CtxRHSVal
	// CtxRHSCond requires a condition.
	CtxRHSCond
	// CtxRHSCall allows a bare procedure reference.
	CtxRHSCall
	// CtxConst requires a constant expression.
	CtxConst
)

const ctxAnyLHS = CtxLHSGen | CtxLHSBV | CtxLHSMap
const ctxAnyRHS = CtxRHSVal | CtxRHSCond | CtxRHSCall

// Checker runs the semantic pass for one compilation unit at a time. It
// owns no global state: everything lives on the compiler instance that
// created it.
type Checker struct {
	nt    *names.Table
	st    *symtab.Table
	diags *diag.Collector
	pool  *parser.Pool

	// ImplicitDecls enables declaration-on-use for plain identifiers.
	ImplicitDecls bool

	units map[*names.Name]*symtab.Procedure

	proc      *symtab.Procedure
	inClass   bool
	loopDepth int
	procDepth int
}

// NewChecker creates a checker over the instance's tables.
func NewChecker(nt *names.Table, st *symtab.Table, diags *diag.Collector, pool *parser.Pool) *Checker {
	return &Checker{
		nt:            nt,
		st:            st,
		diags:         diags,
		pool:          pool,
		ImplicitDecls: true,
		units:         map[*names.Name]*symtab.Procedure{},
	}
}

// CheckUnit resolves one unit and returns its procedure record. The unit's
// symbols are detached (scope closed) before returning; they stay threaded
// on the procedure for the code generator.
func (c *Checker) CheckUnit(u *parser.Unit) *symtab.Procedure {
	root := c.st.NewProcedure(u.Name, u.Kind, u.Pos)
	c.units[u.Name] = root
	c.proc = root
	c.inClass = (u.Kind == symtab.KindClass || u.Kind == symtab.KindProcess) && u.IsBody
	c.loopDepth = 0
	c.procDepth = 0

	for _, use := range u.Uses {
		if s := c.st.Declare(use, root, u.Pos); s != nil {
			s.Kind = symtab.KindUse
		}
	}
	for _, inh := range u.Inherits {
		if s := c.st.Declare(inh, root, u.Pos); s != nil {
			s.Kind = symtab.KindInherit
		}
	}

	c.checkDecls(u.Decls, u.Kind == symtab.KindClass || u.Kind == symtab.KindProcess)
	c.declareRoutines(u.Routines, root, c.inClass)
	if u.Body != nil {
		c.checkStmtList(u.Body)
	}
	c.checkRoutineBodies(u.Routines, root)

	c.st.Detach(root)
	return root
}

// checkDecls declares var/const/sel groups in the current scope. In a
// class or process spec, var declarations declare slots.
func (c *Checker) checkDecls(decls *parser.Node, slots bool) {
	if decls == nil {
		return
	}
	slotNum := 1
	decls.Children(func(group *parser.Node) bool {
		switch group.Type {
		case parser.NodeVarDecl:
			group.Children(func(item *parser.Node) bool {
				nameNode := item
				if item.Type == parser.NodeAssign {
					nameNode = item.Child
				}
				sym := c.st.Declare(nameNode.Name, c.proc, nameNode.Pos)
				if sym == nil {
					return true
				}
				sym.Flags |= symtab.HasLValue | symtab.HasRValue
				if slots {
					sym.Kind = symtab.KindSlot
					sym.Flags |= symtab.VisibleSlot
					sym.SlotNum = slotNum
					slotNum++
				}
				nameNode.Type = parser.NodeSymtab
				nameNode.Sym = sym
				if item.Type == parser.NodeAssign {
					c.checkNode(item.Child.Next, CtxRHSVal)
				}
				return true
			})
		case parser.NodeConstDecl:
			group.Children(func(item *parser.Node) bool {
				if item.Type != parser.NodeAssign {
					c.diags.Errorf(item.Pos, diag.MsgExpectedConst, item.Type.String())
					return true
				}
				nameNode := item.Child
				sym := c.st.Declare(nameNode.Name, c.proc, nameNode.Pos)
				if sym == nil {
					return true
				}
				sym.Flags |= symtab.HasRValue
				nameNode.Type = parser.NodeSymtab
				nameNode.Sym = sym
				rhs := item.Child.Next
				c.checkNode(rhs, CtxRHSVal|CtxConst)
				if rhs.Type == parser.NodeLiteral {
					sym.Value = rhs.Lit
					sym.Flags |= symtab.Initialized
				}
				return true
			})
		case parser.NodeSelDecl:
			group.Children(func(item *parser.Node) bool {
				sym := c.st.Declare(item.Name, c.proc, item.Pos)
				if sym == nil {
					return true
				}
				sym.Kind = symtab.KindSelector
				if lit, ok := item.Child.Lit.(value.Short); ok {
					sym.SlotNum = int(lit)
				}
				item.Type = parser.NodeSymtab
				item.Sym = sym
				return true
			})
		}
		return true
	})
}

// declareRoutines installs procedure symbols ahead of body checking so
// mutual references resolve.
func (c *Checker) declareRoutines(routines []*parser.Routine, parent *symtab.Procedure, methods bool) {
	for _, r := range routines {
		proc := c.st.NewProcedure(r.Name, symtab.KindProcedure, r.Pos)
		if methods {
			proc.Kind = symtab.KindMethod
		}
		proc.FormalCount = len(r.Formals)
		proc.VarArgs = r.VarArgs
		parent.AddChild(proc)
		sym := c.st.Declare(r.Name, parent, r.Pos)
		if sym != nil {
			sym.Kind = symtab.KindProcedure
			if methods {
				sym.Kind = symtab.KindMethod
			}
			sym.Flags |= symtab.HasRValue
			sym.Proc = proc
		}
	}
}

// checkRoutineBodies resolves each routine's scope after every sibling has
// been declared.
func (c *Checker) checkRoutineBodies(routines []*parser.Routine, parent *symtab.Procedure) {
	child := parent.Child
	for _, r := range routines {
		// find the procedure record declared for r
		for child != nil && child.Name != r.Name {
			child = child.Next
		}
		if child == nil {
			break
		}
		c.checkRoutine(r, child)
		child = child.Next
	}
}

func (c *Checker) checkRoutine(r *parser.Routine, proc *symtab.Procedure) {
	saved := c.proc
	c.proc = proc
	c.procDepth++

	for _, f := range r.Formals {
		sym := c.st.Declare(f.Name, proc, f.Pos)
		if sym == nil {
			continue
		}
		sym.Flags |= symtab.HasLValue | symtab.HasRValue
		switch f.Mode {
		case parser.FormalRD:
			sym.Flags |= symtab.ReadParam
		case parser.FormalWR:
			sym.Flags |= symtab.WriteParam
		default:
			sym.Flags |= symtab.ReadParam | symtab.WriteParam
		}
	}
	c.checkDecls(r.Decls, false)
	c.declareRoutines(r.Routines, proc, false)
	if r.Body != nil {
		c.checkStmtList(r.Body)
	}
	c.checkRoutineBodies(r.Routines, proc)

	c.st.Detach(proc)
	c.procDepth--
	c.proc = saved
}

func (c *Checker) checkStmtList(list *parser.Node) {
	list.Children(func(stmt *parser.Node) bool {
		c.checkNode(stmt, CtxStmt)
		return true
	})
}

// checkNode validates n against ctx, recursing with transformed masks and
// rewriting the tree in place.
func (c *Checker) checkNode(n *parser.Node, ctx Context) {
	if n == nil {
		return
	}
	switch n.Type {
	case parser.NodeName:
		c.checkName(n, ctx)
	case parser.NodeSymtab:
		c.checkSymtabRef(n, ctx)
	case parser.NodeLiteral:
		if ctx&ctxAnyLHS != 0 && ctx&CtxLHSBV == 0 {
			c.diags.Errorf(n.Pos, diag.MsgExpectedLHS, n.Type.String())
		} else if ctx == CtxStmt {
			c.diags.Errorf(n.Pos, diag.MsgRHSAsStatement)
		}
	case parser.NodeDot:
		c.checkDot(n, ctx)
	case parser.NodeAssign:
		c.checkAssign(n, ctx)
	case parser.NodeAssignOp:
		c.checkAssignOp(n, ctx)
	case parser.NodeFrom, parser.NodeFromB, parser.NodeFromE:
		// both sides are modified
		c.checkNode(n.Child, CtxLHSGen)
		c.checkNode(n.Child.Next, CtxLHSGen)
		if ctx&CtxConst != 0 {
			c.diags.Errorf(n.Pos, diag.MsgExpectedConst, n.Type.String())
		}
	case parser.NodeAdd, parser.NodeSub, parser.NodeMult, parser.NodeDiv,
		parser.NodeExpon, parser.NodeMod, parser.NodeMin, parser.NodeMax,
		parser.NodeWith, parser.NodeLess, parser.NodeLessF, parser.NodeNpow,
		parser.NodeQuestion:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSVal|ctx&CtxConst)
		c.checkNode(n.Child.Next, CtxRHSVal|ctx&CtxConst)
	case parser.NodeEq, parser.NodeNe, parser.NodeLt, parser.NodeLe,
		parser.NodeGt, parser.NodeGe, parser.NodeIn, parser.NodeNotIn,
		parser.NodeSubset, parser.NodeIncs:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSVal|ctx&CtxConst)
		c.checkNode(n.Child.Next, CtxRHSVal|ctx&CtxConst)
	case parser.NodeAnd, parser.NodeOr:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSCond|ctx&CtxConst)
		c.checkNode(n.Child.Next, CtxRHSCond|ctx&CtxConst)
	case parser.NodeNot:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSCond|ctx&CtxConst)
	case parser.NodeUminus, parser.NodeNelt, parser.NodeArb, parser.NodePow,
		parser.NodeDomain, parser.NodeRange:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSVal|ctx&CtxConst)
	case parser.NodeUnApply:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSVal)
	case parser.NodeBinApply:
		c.requireValue(n, ctx)
		c.checkNode(n.Child, CtxRHSVal)
		c.checkNode(n.Child.Next, CtxRHSVal)
	case parser.NodeOf:
		c.checkOf(n, ctx)
	case parser.NodeOfA:
		c.checkOfA(n, ctx)
	case parser.NodeSlice:
		c.checkNode(n.Child, CtxRHSVal|ctx&ctxAnyLHS)
		c.checkNode(n.Child.Next, CtxRHSVal)
		c.checkNode(n.Child.Next.Next, CtxRHSVal)
	case parser.NodeEnd:
		c.checkNode(n.Child, CtxRHSVal|ctx&ctxAnyLHS)
		c.checkNode(n.Child.Next, CtxRHSVal)
	case parser.NodeEnumSet:
		if ctx&ctxAnyLHS != 0 {
			c.diags.Errorf(n.Pos, diag.MsgExpectedLHS, n.Type.String())
			return
		}
		n.Children(func(el *parser.Node) bool {
			c.checkNode(el, CtxRHSVal|ctx&CtxConst)
			return true
		})
	case parser.NodeEnumTup:
		if ctx&ctxAnyLHS != 0 {
			// tuple destructuring target: every component is itself a LHS
			n.Children(func(el *parser.Node) bool {
				c.checkNode(el, ctx)
				return true
			})
			return
		}
		n.Children(func(el *parser.Node) bool {
			c.checkNode(el, CtxRHSVal|ctx&CtxConst)
			return true
		})
	case parser.NodeSetFormer, parser.NodeTupleFormer:
		c.requireValue(n, ctx)
		c.checkFormer(n)
	case parser.NodeExists, parser.NodeForall:
		c.requireValue(n, ctx)
		c.checkQuantifier(n)
	case parser.NodeIterRange:
		n.Children(func(el *parser.Node) bool {
			c.checkNode(el, CtxRHSVal)
			return true
		})
	case parser.NodeSelf:
		if !c.inClass {
			c.diags.Errorf(n.Pos, diag.MsgBadSelf)
		}
		if ctx&(ctxAnyLHS|CtxConst) != 0 || ctx == CtxStmt {
			c.diags.Errorf(n.Pos, diag.MsgBadSelf)
		}
	case parser.NodeStmtList:
		c.checkStmtList(n)
	case parser.NodeIf:
		c.checkNode(n.Child, CtxRHSCond)
		c.checkStmtList(n.Child.Next)
		if n.Child.Next.Next != nil {
			c.checkStmtList(n.Child.Next.Next)
		}
	case parser.NodeWhile, parser.NodeUntil:
		c.checkNode(n.Child, CtxRHSCond)
		c.loopDepth++
		c.checkStmtList(n.Child.Next)
		c.loopDepth--
	case parser.NodeLoop:
		c.loopDepth++
		c.checkStmtList(n.Child)
		c.loopDepth--
	case parser.NodeFor:
		temp := c.openIterScope()
		c.checkIterators(n.Child)
		c.loopDepth++
		c.checkStmtList(n.Child.Next)
		c.loopDepth--
		c.closeIterScope(temp)
	case parser.NodeCase:
		c.checkCase(n)
	case parser.NodeExit:
		if c.loopDepth == 0 {
			c.diags.Errorf(n.Pos, diag.MsgBadExit)
		}
	case parser.NodeContinue:
		if c.loopDepth == 0 {
			c.diags.Errorf(n.Pos, diag.MsgBadContinue)
		}
	case parser.NodeStop:
		if ctx != CtxStmt {
			c.diags.Errorf(n.Pos, diag.MsgStopAsRHS)
		}
	case parser.NodeReturn:
		if c.procDepth == 0 {
			c.diags.Errorf(n.Pos, diag.MsgReturnFromProg)
		}
		if n.Child != nil {
			c.checkNode(n.Child, CtxRHSVal)
		}
	case parser.NodeAssert:
		c.checkNode(n.Child, CtxRHSCond)
	case parser.NodeCall, parser.NodeInitObj, parser.NodeSlot,
		parser.NodeSlotOf, parser.NodeSlotCall:
		// already rewritten; nothing further to validate
	case parser.NodeNull:
	default:
		c.diags.Errorf(n.Pos, "Unexpected node in resolution => %s", n.Type)
	}
}

// checkName resolves a name reference. Unknown names declare implicitly in
// the current procedure when the option is on; bound-variable context
// always declares on first sight.
func (c *Checker) checkName(n *parser.Node, ctx Context) {
	sym := c.st.LookupVisible(n.Name)
	if sym == nil {
		if ctx&CtxLHSBV != 0 || c.ImplicitDecls {
			sym = c.st.Declare(n.Name, c.proc, n.Pos)
			if sym == nil {
				return
			}
			sym.Flags |= symtab.HasLValue | symtab.HasRValue
		} else {
			c.diags.Errorf(n.Pos, diag.MsgUndeclared, n.Name.Text)
			return
		}
	}
	n.Type = parser.NodeSymtab
	n.Sym = sym
	c.checkSymtabRef(n, ctx)
}

// checkSymtabRef validates a resolved symbol against the context.
func (c *Checker) checkSymtabRef(n *parser.Node, ctx Context) {
	sym := n.Sym
	if sym == nil {
		return
	}
	if ctx&(CtxLHSGen|CtxLHSMap) != 0 {
		if !sym.Flags.Has(symtab.HasLValue) {
			c.diags.Errorf(n.Pos, diag.MsgExpectedLHS, sym.Name.Text)
			return
		}
	}
	if ctx&CtxConst != 0 && !sym.Flags.Has(symtab.Initialized) {
		c.diags.Errorf(n.Pos, diag.MsgExpectedConst, sym.Name.Text)
	}
	if ctx == CtxStmt {
		c.diags.Errorf(n.Pos, diag.MsgRHSAsStatement)
	}
	if ctx&ctxAnyRHS != 0 {
		switch sym.Kind {
		case symtab.KindProcedure, symtab.KindMethod:
			if ctx&CtxRHSCall == 0 && ctx&CtxRHSVal == 0 {
				c.diags.Errorf(n.Pos, diag.MsgExpectedRHS, sym.Name.Text)
			}
		}
	}
}

// checkDot resolves a dotted qualifier chain left to right.
func (c *Checker) checkDot(n *parser.Node, ctx Context) {
	left := n.Child
	selNode := n.Child.Next

	// a unit qualifier resolves the member inside that unit's scope
	if left.Type == parser.NodeName {
		if unitSym := c.st.LookupVisible(left.Name); unitSym != nil {
			switch unitSym.Kind {
			case symtab.KindUse, symtab.KindPackage, symtab.KindClass, symtab.KindProcess:
				member := c.lookupUnitMember(left.Name, selNode.Name)
				if member == nil {
					c.diags.Errorf(selNode.Pos, diag.MsgBadQualifier, selNode.Name.Text)
					return
				}
				n.Type = parser.NodeSymtab
				n.Child = nil
				n.Sym = member
				c.checkSymtabRef(n, ctx)
				return
			}
		}
	}

	c.checkNode(left, CtxRHSVal)

	sym := c.st.LookupVisible(selNode.Name)
	if sym == nil {
		c.diags.Errorf(selNode.Pos, diag.MsgBadQualifier, selNode.Name.Text)
		return
	}
	switch sym.Kind {
	case symtab.KindSelector:
		// selector application becomes an of tree over the slot number
		selNode.Type = parser.NodeSymtab
		selNode.Sym = sym
		n.Type = parser.NodeOf
		n.Child = selNode
		selNode.Next = left
		left.Next = nil
	case symtab.KindSlot:
		selNode.Type = parser.NodeSymtab
		selNode.Sym = sym
		n.Type = parser.NodeSlot
	default:
		c.diags.Errorf(selNode.Pos, diag.MsgBadQualifier, selNode.Name.Text)
	}
}

// lookupUnitMember finds a symbol by name on a unit's procedure record.
func (c *Checker) lookupUnitMember(unit, member *names.Name) *symtab.Symbol {
	proc, ok := c.units[unit]
	if !ok {
		return nil
	}
	var found *symtab.Symbol
	proc.Symbols(func(s *symtab.Symbol) bool {
		if s.Name == member {
			found = s
			return false
		}
		return true
	})
	return found
}

// checkOf handles calls and indexing. A literal procedure callee becomes a
// call with its arity checked; a class or process becomes an initobj; a
// slot reference becomes a slotcall; everything else stays an of node for
// map/tuple/string selection.
func (c *Checker) checkOf(n *parser.Node, ctx Context) {
	callee := n.Child
	c.checkNode(callee, CtxRHSVal|CtxRHSCall|ctx&ctxAnyLHS)
	actuals := 0
	for arg := callee.Next; arg != nil; arg = arg.Next {
		c.checkNode(arg, CtxRHSVal)
		actuals++
	}
	if callee.Type != parser.NodeSymtab || callee.Sym == nil {
		return
	}
	sym := callee.Sym
	switch sym.Kind {
	case symtab.KindProcedure, symtab.KindMethod:
		if sym.Proc != nil {
			formals := sym.Proc.FormalCount
			if sym.Proc.VarArgs {
				if actuals < formals {
					c.diags.Errorf(n.Pos, diag.MsgWrongParmCount, sym.Name.Text)
				}
			} else if actuals != formals {
				c.diags.Errorf(n.Pos, diag.MsgWrongParmCount, sym.Name.Text)
			}
		}
		n.Type = parser.NodeCall
		if ctx&ctxAnyLHS != 0 {
			c.diags.Errorf(n.Pos, diag.MsgExpectedLHS, sym.Name.Text)
		}
	case symtab.KindClass, symtab.KindProcess:
		// a class callee is an object creation: route through the class's
		// create method and initialization
		n.Type = parser.NodeInitObj
	case symtab.KindSlot:
		if actuals > 0 {
			n.Type = parser.NodeSlotCall
		} else {
			n.Type = parser.NodeSlotOf
		}
	case symtab.KindSelector:
		if actuals != 1 {
			c.diags.Errorf(n.Pos, diag.MsgWrongParmCount, sym.Name.Text)
		}
	}
}

func (c *Checker) checkOfA(n *parser.Node, ctx Context) {
	c.checkNode(n.Child, CtxRHSVal|ctx&ctxAnyLHS)
	for arg := n.Child.Next; arg != nil; arg = arg.Next {
		c.checkNode(arg, CtxRHSVal)
	}
}

func (c *Checker) checkAssign(n *parser.Node, ctx Context) {
	if ctx&CtxConst != 0 {
		c.diags.Errorf(n.Pos, diag.MsgExpectedConst, n.Type.String())
	}
	lhs := n.Child
	c.checkLHS(lhs)
	c.checkNode(lhs.Next, CtxRHSVal)
}

// checkLHS validates the target of an assignment, dispatching indexed
// targets into map-LHS context.
func (c *Checker) checkLHS(lhs *parser.Node) {
	switch lhs.Type {
	case parser.NodeOf, parser.NodeOfA, parser.NodeSlice, parser.NodeEnd:
		c.checkNode(lhs, CtxLHSMap)
	default:
		c.checkNode(lhs, CtxLHSGen)
	}
}

// checkAssignOp validates a compound assignment. When the target is an
// indexed form with more than one index, the index list is wrapped in an
// enumerated tuple so it evaluates once and is reused for the store.
func (c *Checker) checkAssignOp(n *parser.Node, ctx Context) {
	if ctx&CtxConst != 0 {
		c.diags.Errorf(n.Pos, diag.MsgExpectedConst, n.Type.String())
	}
	lhs := n.Child
	c.checkLHS(lhs)
	c.checkNode(lhs.Next, CtxRHSVal)

	if lhs.Type == parser.NodeOf || lhs.Type == parser.NodeOfA {
		callee := lhs.Child
		if callee.Next != nil && callee.Next.Next != nil {
			enum := c.pool.New(parser.NodeEnumTup, lhs.Pos)
			enum.Child = callee.Next
			callee.Next = enum
			enum.Next = nil
		}
	}
}

// checkFormer resolves a set or tuple former: the element expression and
// iterators live in their own scope.
func (c *Checker) checkFormer(n *parser.Node) {
	if n.Child != nil && n.Child.Type == parser.NodeIterRange {
		c.checkNode(n.Child, CtxRHSVal)
		return
	}
	temp := c.openIterScope()
	c.checkIterators(n.Child.Next)
	c.checkNode(n.Child, CtxRHSVal)
	c.closeIterScope(temp)
}

func (c *Checker) checkQuantifier(n *parser.Node) {
	if n.Child == nil || n.Child.Type != parser.NodeSuchThat {
		c.diags.Errorf(n.Pos, diag.MsgBadIterator)
		return
	}
	temp := c.openIterScope()
	c.checkIterators(n.Child)
	c.closeIterScope(temp)
}

// checkIterators resolves an iterator list or a such-that wrapper.
func (c *Checker) checkIterators(iters *parser.Node) {
	if iters == nil {
		return
	}
	if iters.Type == parser.NodeSuchThat {
		c.checkIterators(iters.Child)
		c.checkNode(iters.Child.Next, CtxRHSCond)
		return
	}
	if iters.Type != parser.NodeIterList {
		c.diags.Errorf(iters.Pos, diag.MsgBadIterator)
		return
	}
	iters.Children(func(iter *parser.Node) bool {
		if iter.Type != parser.NodeIterIn {
			c.diags.Errorf(iter.Pos, diag.MsgBadIterator)
			return true
		}
		target := iter.Child
		switch target.Type {
		case parser.NodeName, parser.NodeSymtab, parser.NodeEnumTup:
			c.checkNode(target, CtxLHSBV)
		default:
			c.diags.Errorf(target.Pos, diag.MsgBadIterLHS)
		}
		c.checkNode(target.Next, CtxRHSVal)
		return true
	})
}

// checkCase validates a case statement: the subject yields a value, when
// labels are constants, and duplicate labels are reported.
func (c *Checker) checkCase(n *parser.Node) {
	subject := n.Child
	c.checkNode(subject, CtxRHSVal)
	var seen []*parser.Node
	for arm := subject.Next; arm != nil; arm = arm.Next {
		switch arm.Type {
		case parser.NodeWhen:
			labels := arm.Child
			labels.Children(func(label *parser.Node) bool {
				c.checkNode(label, CtxRHSVal|CtxConst)
				if label.Type == parser.NodeLiteral {
					for _, prev := range seen {
						if value.Equal(prev.Lit, label.Lit) {
							c.diags.Errorf(label.Pos, "%s => %s", diag.MsgDupCaseLabel, value.String(label.Lit))
							return true
						}
					}
					seen = append(seen, label)
				}
				return true
			})
			c.checkStmtList(labels.Next)
		case parser.NodeList:
			// otherwise arm
			c.checkStmtList(arm.Child)
		}
	}
}

func (c *Checker) requireValue(n *parser.Node, ctx Context) {
	if ctx&ctxAnyLHS != 0 {
		c.diags.Errorf(n.Pos, diag.MsgExpectedLHS, n.Type.String())
	}
	if ctx == CtxStmt {
		c.diags.Errorf(n.Pos, diag.MsgRHSAsStatement)
	}
}

var iterScopeName = "$ITER"

// openIterScope opens a temporary procedure scope for iterator bound
// variables.
func (c *Checker) openIterScope() *symtab.Procedure {
	temp := c.st.NewProcedure(c.nt.Intern(iterScopeName), symtab.KindProcedure, diag.Pos{})
	saved := c.proc
	temp.Parent = saved
	c.proc = temp
	return saved
}

// closeIterScope merges the bound variables back into the enclosing
// procedure and frees the temporary scope.
func (c *Checker) closeIterScope(saved *symtab.Procedure) {
	temp := c.proc
	c.proc = saved
	c.st.MergeScope(temp, saved)
}
