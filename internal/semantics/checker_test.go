package semantics

import (
	"strings"
	"testing"

	"setl2/internal/diag"
	"setl2/internal/lexer"
	"setl2/internal/names"
	"setl2/internal/parser"
	"setl2/internal/symtab"
)

type fixture struct {
	nt    *names.Table
	st    *symtab.Table
	diags *diag.Collector
	units []*parser.Unit
	roots []*symtab.Procedure
}

func check(t *testing.T, src string, implicit bool) *fixture {
	t.Helper()
	f := &fixture{
		nt:    names.NewTable(),
		diags: diag.NewCollector(),
	}
	f.st = symtab.NewTable(f.diags)
	toks := lexer.NewScanner(src, f.nt, f.diags).ScanTokens()
	pool := parser.NewPool()
	f.units = parser.NewParser(toks, f.nt, f.diags, pool).ParseUnits()
	if f.diags.UnitErrors() > 0 {
		t.Fatalf("parse errors: %v", f.diags.Messages())
	}
	c := NewChecker(f.nt, f.st, f.diags, pool)
	c.ImplicitDecls = implicit
	for _, u := range f.units {
		f.roots = append(f.roots, c.CheckUnit(u))
	}
	return f
}

func hasError(f *fixture, substr string) bool {
	for _, m := range f.diags.Messages() {
		if m.Severity == diag.Error && strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

func findSymbol(root *symtab.Procedure, name string) *symtab.Symbol {
	var found *symtab.Symbol
	root.Symbols(func(s *symtab.Symbol) bool {
		if s.Name != nil && s.Name.Text == name {
			found = s
			return false
		}
		return true
	})
	return found
}

func TestImplicitDeclarationOnLHS(t *testing.T) {
	// program p; x := 5; end p; with implicit declarations: x lands in the
	// program's symbol table with both value flags and no initialization
	f := check(t, "program p; x := 5; end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
	x := findSymbol(f.roots[0], "X")
	if x == nil {
		t.Fatal("x not declared")
	}
	if x.Kind != symtab.KindID {
		t.Errorf("kind = %v", x.Kind)
	}
	if !x.Flags.Has(symtab.HasLValue) || !x.Flags.Has(symtab.HasRValue) {
		t.Error("x must carry both value flags")
	}
	if x.Flags.Has(symtab.Initialized) {
		t.Error("x must not be marked initialized")
	}
	stmt := f.units[0].Body.Child
	if stmt.Child.Type != parser.NodeSymtab || stmt.Child.Sym != x {
		t.Error("name node not rewritten to the symbol")
	}
}

func TestUndeclaredWithoutImplicit(t *testing.T) {
	f := check(t, "program p; x := 5; end p;", false)
	if !hasError(f, "Undeclared identifier") {
		t.Errorf("expected undeclared error, got %v", f.diags.Messages())
	}
}

func TestDeclaredVariableResolves(t *testing.T) {
	f := check(t, "program p; var x; x := 5; end p;", false)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
}

func TestDuplicateCaseLabel(t *testing.T) {
	f := check(t, `
program p;
case x when 1 => y := 1; when 1 => y := 2; end case;
end p;`, true)
	if !hasError(f, "Duplicate case label => 1") {
		t.Errorf("expected duplicate case label, got %v", f.diags.Messages())
	}
}

func TestDistinctCaseLabelsOK(t *testing.T) {
	f := check(t, `
program p;
case x when 1 => y := 1; when 2 => y := 2; otherwise => y := 3; end case;
end p;`, true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
}

func TestExitOutsideLoop(t *testing.T) {
	f := check(t, "program p; exit; end p;", true)
	if !hasError(f, "EXIT") {
		t.Errorf("expected bad exit, got %v", f.diags.Messages())
	}
}

func TestContinueOutsideLoop(t *testing.T) {
	f := check(t, "program p; continue; end p;", true)
	if !hasError(f, "CONTINUE") {
		t.Errorf("expected bad continue, got %v", f.diags.Messages())
	}
}

func TestReturnFromProgram(t *testing.T) {
	f := check(t, "program p; return; end p;", true)
	if !hasError(f, "RETURN") {
		t.Errorf("expected bad return, got %v", f.diags.Messages())
	}
}

func TestReturnInsideProcedureOK(t *testing.T) {
	f := check(t, "program p; procedure f; return 1; end f; end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
}

func TestExpressionAsStatement(t *testing.T) {
	f := check(t, "program p; x + 1; end p;", true)
	if !hasError(f, "statement") {
		t.Errorf("expected rhs-as-statement, got %v", f.diags.Messages())
	}
}

func TestCallStatementAllowed(t *testing.T) {
	f := check(t, "program p; procedure f(a); end f; f(1); end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
	call := findStmtOfType(f.units[0].Body, parser.NodeCall)
	if call == nil {
		t.Error("of node not rewritten to call")
	}
}

func TestArityChecking(t *testing.T) {
	f := check(t, "program p; procedure f(a, b); end f; f(1); end p;", true)
	if !hasError(f, "Wrong number of parameters") {
		t.Errorf("expected arity error, got %v", f.diags.Messages())
	}
}

func TestVarArgsArity(t *testing.T) {
	f := check(t, "program p; procedure f(a, b(*)); end f; f(1,2); f(1,2,3,4); end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("variable arity must accept actual >= formals: %v", f.diags.Messages())
	}
	f = check(t, "program p; procedure f(a, b(*)); end f; f(1); end p;", true)
	if !hasError(f, "Wrong number of parameters") {
		t.Errorf("expected arity error, got %v", f.diags.Messages())
	}
}

func TestSelfOutsideClass(t *testing.T) {
	f := check(t, "program p; x := self; end p;", true)
	if !hasError(f, "SELF") {
		t.Errorf("expected bad self, got %v", f.diags.Messages())
	}
}

func TestSelfInClassBody(t *testing.T) {
	f := check(t, "class body c; procedure m; x := self; end m; end c;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
}

func TestStopAsExpression(t *testing.T) {
	f := check(t, "program p; x := stop; end p;", true)
	if !hasError(f, "STOP") {
		t.Errorf("expected stop-as-rhs, got %v", f.diags.Messages())
	}
}

func TestConstRequiresConstant(t *testing.T) {
	f := check(t, "program p; var y; const k := y; end p;", true)
	if !hasError(f, "constant") {
		t.Errorf("expected const error, got %v", f.diags.Messages())
	}
}

func TestConstLiteralElaborated(t *testing.T) {
	f := check(t, "program p; const k := 42; x := k; end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
	k := findSymbol(f.roots[0], "K")
	if k == nil || !k.Flags.Has(symtab.Initialized) || k.Value == nil {
		t.Error("constant not elaborated")
	}
}

func TestIteratorBoundVariableScope(t *testing.T) {
	f := check(t, "program p; for e in s loop x := e; end loop; end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
	// the bound variable merges back into the program scope on close
	e := findSymbol(f.roots[0], "E")
	if e == nil {
		t.Error("bound variable not merged into enclosing procedure")
	}
}

func TestQuantifierRequiresCondition(t *testing.T) {
	f := check(t, "program p; b := exists e in s; end p;", true)
	if !hasError(f, "iterator") {
		t.Errorf("expected bad iterator, got %v", f.diags.Messages())
	}
}

func TestLiteralAsLHS(t *testing.T) {
	f := check(t, "program p; 5 := x; end p;", true)
	if !hasError(f, "left hand side") {
		t.Errorf("expected lhs error, got %v", f.diags.Messages())
	}
}

func TestSelectorRewritesDotToOf(t *testing.T) {
	f := check(t, "program p; sel hd(1); x := y.hd; end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
	of := findStmtExpr(f.units[0].Body, parser.NodeOf)
	if of == nil {
		t.Fatal("dot not rewritten to of")
	}
	if of.Child.Type != parser.NodeSymtab || of.Child.Sym.Kind != symtab.KindSelector {
		t.Error("of callee must be the selector symbol")
	}
}

func TestCompoundAssignIndexWrapping(t *testing.T) {
	f := check(t, "program p; m(1, 2) +:= 5; end p;", true)
	if f.diags.UnitErrors() != 0 {
		t.Fatalf("errors: %v", f.diags.Messages())
	}
	asn := f.units[0].Body.Child
	if asn.Type != parser.NodeAssignOp {
		t.Fatalf("stmt = %v", asn.Type)
	}
	lhs := asn.Child
	if lhs.Type != parser.NodeOf {
		t.Fatalf("lhs = %v", lhs.Type)
	}
	if lhs.Child.Next == nil || lhs.Child.Next.Type != parser.NodeEnumTup {
		t.Error("multi-index target must wrap its indices in an enumerated tuple")
	}
}

func findStmtOfType(body *parser.Node, tt parser.NodeType) *parser.Node {
	var found *parser.Node
	body.Children(func(stmt *parser.Node) bool {
		if stmt.Type == tt {
			found = stmt
			return false
		}
		return true
	})
	return found
}

func findStmtExpr(body *parser.Node, tt parser.NodeType) *parser.Node {
	var found *parser.Node
	body.Children(func(stmt *parser.Node) bool {
		if stmt.Type == parser.NodeAssign && stmt.Child.Next.Type == tt {
			found = stmt.Child.Next
			return false
		}
		return true
	})
	return found
}
