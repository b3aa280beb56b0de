package lexer

import (
	"testing"

	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/value"
)

func scan(input string) ([]Token, *diag.Collector) {
	d := diag.NewCollector()
	nt := names.NewTable()
	s := NewScanner(input, nt, d)
	return s.ScanTokens(), d
}

func kinds(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func expectTypes(t *testing.T, input string, want ...TokenType) []Token {
	t.Helper()
	toks, d := scan(input)
	if d.UnitErrors() > 0 {
		t.Fatalf("%q: unexpected errors: %v", input, d.Messages())
	}
	want = append(want, TokenEOF)
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("%q: got %d tokens %v, want %d", input, len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d = %v, want %v", input, i, got[i], want[i])
		}
	}
	return toks
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := expectTypes(t, "program p; x := 5; end p;",
		TokenProgram, TokenID, TokenSemi,
		TokenID, TokenAssign, TokenIntLit, TokenSemi,
		TokenEnd, TokenID, TokenSemi)
	if toks[1].Lexeme != "P" {
		t.Errorf("identifier not uppercase folded: %q", toks[1].Lexeme)
	}
	if toks[1].Name == nil {
		t.Error("identifier token carries no name handle")
	}
}

func TestKeywordCaseInsensitive(t *testing.T) {
	expectTypes(t, "Program WHILE While end", TokenProgram, TokenWhile, TokenWhile, TokenEnd)
}

func TestOperators(t *testing.T) {
	expectTypes(t, "+ - * / ** = /= < <= > >= # ? ^ |",
		TokenPlus, TokenDash, TokenMult, TokenSlash, TokenExpon,
		TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenNelt, TokenQuestion, TokenCaret, TokenSuchThat)
}

func TestPunctuation(t *testing.T) {
	expectTypes(t, "; , : ( ) [ ] { } . .. := =>",
		TokenSemi, TokenComma, TokenColon, TokenLParen, TokenRParen,
		TokenLBracket, TokenRBracket, TokenLBrace, TokenRBrace,
		TokenDot, TokenDotDot, TokenAssign, TokenRArrow)
}

func TestCompositeAssignFolding(t *testing.T) {
	toks := expectTypes(t, "x +:= 1;", TokenID, TokenAsnPlus, TokenIntLit, TokenSemi)
	if toks[1].Lexeme != "+:=" {
		t.Errorf("composite lexeme = %q", toks[1].Lexeme)
	}
	expectTypes(t, "x MOD:= 2;", TokenID, TokenAsnMod, TokenIntLit, TokenSemi)
	expectTypes(t, "x WITH:= 3;", TokenID, TokenAsnWith, TokenIntLit, TokenSemi)
}

func TestCompositeApplyFolding(t *testing.T) {
	expectTypes(t, "y := +/ t;", TokenID, TokenAssign, TokenAppPlus, TokenID, TokenSemi)
	expectTypes(t, "y := */ t;", TokenID, TokenAssign, TokenAppMult, TokenID, TokenSemi)
	toks := expectTypes(t, "y := or/ t;", TokenID, TokenAssign, TokenAppOr, TokenID, TokenSemi)
	if toks[2].Lexeme != "OR/" {
		t.Errorf("composite lexeme = %q", toks[2].Lexeme)
	}
}

func TestCompositeBaseOp(t *testing.T) {
	if TokenAsnPlus.BaseOp() != TokenPlus {
		t.Error("BaseOp(+:=) != +")
	}
	if TokenAppMod.BaseOp() != TokenMod {
		t.Error("BaseOp(MOD/) != MOD")
	}
	if !TokenAsnWith.IsAssignOp() || TokenAsnWith.IsApplyOp() {
		t.Error("assign-op classification wrong")
	}
}

func TestIntegerLiterals(t *testing.T) {
	toks := expectTypes(t, "42", TokenIntLit)
	if !value.Equal(toks[0].Value, value.Short(42)) {
		t.Errorf("42 parsed as %v", toks[0].Value)
	}
	toks = expectTypes(t, "16#ff#", TokenIntLit)
	if !value.Equal(toks[0].Value, value.Short(255)) {
		t.Errorf("16#ff# parsed as %v", toks[0].Value)
	}
	toks = expectTypes(t, "2#1010#", TokenIntLit)
	if !value.Equal(toks[0].Value, value.Short(10)) {
		t.Errorf("2#1010# parsed as %v", toks[0].Value)
	}
	toks = expectTypes(t, "99999999999999999999", TokenIntLit)
	if _, ok := toks[0].Value.(*value.LongValue); !ok {
		t.Errorf("huge literal not promoted to long: %T", toks[0].Value)
	}
}

func TestRealLiterals(t *testing.T) {
	toks := expectTypes(t, "2.5", TokenRealLit)
	if !value.Equal(toks[0].Value, value.Real(2.5)) {
		t.Errorf("2.5 parsed as %v", toks[0].Value)
	}
	expectTypes(t, "1.5e10", TokenRealLit)
	expectTypes(t, "1e5", TokenRealLit)
	expectTypes(t, "3.0E-2", TokenRealLit)
}

func TestDotDotAfterInteger(t *testing.T) {
	expectTypes(t, "1..10", TokenIntLit, TokenDotDot, TokenIntLit)
}

func TestStringLiterals(t *testing.T) {
	toks := expectTypes(t, `"hello"`, TokenStringLit)
	sv := toks[0].Value.(*value.StringValue)
	if sv.Data != "hello" {
		t.Errorf("string value %q", sv.Data)
	}
	toks = expectTypes(t, `"a\n\t\"b\\\x41"`, TokenStringLit)
	sv = toks[0].Value.(*value.StringValue)
	if sv.Data != "a\n\t\"b\\A" {
		t.Errorf("escaped string value %q", sv.Data)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks, d := scan("\"abc\nx := 1;")
	if d.UnitErrors() == 0 {
		t.Fatal("unterminated string not reported")
	}
	// scanner resynchronizes and keeps going
	sawAssign := false
	for _, tok := range toks {
		if tok.Type == TokenAssign {
			sawAssign = true
		}
	}
	if !sawAssign {
		t.Error("scanner did not resynchronize after bad literal")
	}
}

func TestInvalidBase(t *testing.T) {
	_, d := scan("1#101#")
	if d.UnitErrors() == 0 {
		t.Fatal("base 1 accepted")
	}
	_, d = scan("37#zz#")
	if d.UnitErrors() == 0 {
		t.Fatal("base 37 accepted")
	}
}

func TestInvalidDigitForBase(t *testing.T) {
	_, d := scan("2#102#")
	if d.UnitErrors() == 0 {
		t.Fatal("digit 2 accepted in base 2")
	}
}

func TestInvalidLeadCharacter(t *testing.T) {
	_, d := scan("x := %;")
	if d.UnitErrors() == 0 {
		t.Fatal("invalid character not reported")
	}
}

func TestExtensionCharacters(t *testing.T) {
	toks, d := scan("!foo $bar &baz")
	if d.UnitErrors() > 0 {
		t.Fatalf("errors: %v", d.Messages())
	}
	want := []string{"BANG_FOO", "DOLL_BAR", "AMP_BAZ"}
	for i, w := range want {
		if toks[i].Type != TokenID || toks[i].Lexeme != w {
			t.Errorf("token %d = %v %q, want ID %q", i, toks[i].Type, toks[i].Lexeme, w)
		}
	}
}

func TestComments(t *testing.T) {
	expectTypes(t, "x -- comment to end of line\ny", TokenID, TokenID)
}

func TestLineAndColumnTracking(t *testing.T) {
	toks, _ := scan("x\n  y\tz")
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("x at %v", toks[0].Pos)
	}
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 3 {
		t.Errorf("y at %v", toks[1].Pos)
	}
	if toks[2].Pos.Line != 2 || toks[2].Pos.Column != 9 {
		t.Errorf("z after tab at %v, want column 9", toks[2].Pos)
	}
}

func TestCRLFLineEndings(t *testing.T) {
	toks, _ := scan("x\r\ny\rz")
	if toks[1].Pos.Line != 2 {
		t.Errorf("y at line %d, want 2", toks[1].Pos.Line)
	}
	if toks[2].Pos.Line != 3 {
		t.Errorf("z at line %d, want 3", toks[2].Pos.Line)
	}
}
