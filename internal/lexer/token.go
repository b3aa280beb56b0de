package lexer

import (
	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/value"
)

// TokenType enumerates every token the scanner can produce. Composite
// assignment and reduction operators are first-class tokens: the scanner
// folds `+` `:=` into TokenAsnPlus when the spelling "+:=" is installed in
// the name table.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenID
	TokenIntLit
	TokenRealLit
	TokenStringLit

	// keywords
	TokenAnd
	TokenAssert
	TokenBody
	TokenCase
	TokenClass
	TokenConst
	TokenContinue
	TokenElse
	TokenElseIf
	TokenEnd
	TokenExit
	TokenFor
	TokenIf
	TokenInherit
	TokenLambda
	TokenLoop
	TokenNative
	TokenNot
	TokenNull
	TokenOr
	TokenOtherwise
	TokenPackage
	TokenProcedure
	TokenProcess
	TokenProgram
	TokenRd
	TokenReturn
	TokenRw
	TokenSel
	TokenSelf
	TokenStop
	TokenThen
	TokenUntil
	TokenUse
	TokenVar
	TokenWhen
	TokenWhile
	TokenWr

	// operator keywords
	TokenPow
	TokenArb
	TokenDomain
	TokenRange
	TokenMod
	TokenMin
	TokenMax
	TokenWith
	TokenLess
	TokenLessF
	TokenNpow
	TokenIn
	TokenNotIn
	TokenSubset
	TokenIncs
	TokenFrom
	TokenFromB
	TokenFromE
	TokenExists
	TokenForall

	// punctuation
	TokenSemi
	TokenComma
	TokenColon
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenDot
	TokenDotDot
	TokenAssign
	TokenSuchThat
	TokenRArrow
	TokenCaret
	TokenNelt
	TokenQuestion

	// operators
	TokenPlus
	TokenDash
	TokenMult
	TokenSlash
	TokenExpon
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe

	// composite assignment operators <op>:= ; the block parallels
	// compositeBase below
	TokenAsnPlus
	TokenAsnSub
	TokenAsnQuestion
	TokenAsnMult
	TokenAsnSlash
	TokenAsnMod
	TokenAsnMin
	TokenAsnMax
	TokenAsnWith
	TokenAsnLess
	TokenAsnLessF
	TokenAsnNpow
	TokenAsnEq
	TokenAsnNe
	TokenAsnLt
	TokenAsnLe
	TokenAsnGt
	TokenAsnGe
	TokenAsnIn
	TokenAsnNotIn
	TokenAsnSubset
	TokenAsnIncs
	TokenAsnAnd
	TokenAsnOr

	// composite reduction operators <op>/
	TokenAppPlus
	TokenAppSub
	TokenAppQuestion
	TokenAppMult
	TokenAppSlash
	TokenAppMod
	TokenAppMin
	TokenAppMax
	TokenAppWith
	TokenAppLess
	TokenAppLessF
	TokenAppNpow
	TokenAppEq
	TokenAppNe
	TokenAppLt
	TokenAppLe
	TokenAppGt
	TokenAppGe
	TokenAppIn
	TokenAppNotIn
	TokenAppSubset
	TokenAppIncs
	TokenAppAnd
	TokenAppOr
)

// compositeBase lists the base operator for each composite block entry, in
// the block's order.
var compositeBase = []TokenType{
	TokenPlus, TokenDash, TokenQuestion, TokenMult, TokenSlash, TokenMod,
	TokenMin, TokenMax, TokenWith, TokenLess, TokenLessF, TokenNpow,
	TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe, TokenIn,
	TokenNotIn, TokenSubset, TokenIncs, TokenAnd, TokenOr,
}

// IsAssignOp reports whether t is a composite <op>:= token.
func (t TokenType) IsAssignOp() bool {
	return t >= TokenAsnPlus && t <= TokenAsnOr
}

// IsApplyOp reports whether t is a composite <op>/ reduction token.
func (t TokenType) IsApplyOp() bool {
	return t >= TokenAppPlus && t <= TokenAppOr
}

// BaseOp returns the underlying binary operator of a composite token, or t
// itself for plain tokens.
func (t TokenType) BaseOp() TokenType {
	switch {
	case t.IsAssignOp():
		return compositeBase[t-TokenAsnPlus]
	case t.IsApplyOp():
		return compositeBase[t-TokenAppPlus]
	}
	return t
}

// Token is one lexical token. Literal tokens carry their parsed value as a
// specifier; identifier and keyword tokens carry the interned name.
type Token struct {
	Type   TokenType
	Lexeme string
	Name   *names.Name
	Value  value.Specifier
	Pos    diag.Pos
}

func (t Token) String() string {
	return t.Lexeme
}

// reservedWord pairs a spelling with its token type and method code for the
// name table.
type reservedWord struct {
	text   string
	tok    TokenType
	method names.MethodCode
}

var reservedWords = []reservedWord{
	{"AND", TokenAnd, names.MethodUser},
	{"ASSERT", TokenAssert, names.MethodUser},
	{"BODY", TokenBody, names.MethodUser},
	{"CASE", TokenCase, names.MethodUser},
	{"CLASS", TokenClass, names.MethodUser},
	{"CONST", TokenConst, names.MethodUser},
	{"CONTINUE", TokenContinue, names.MethodUser},
	{"ELSE", TokenElse, names.MethodUser},
	{"ELSEIF", TokenElseIf, names.MethodUser},
	{"END", TokenEnd, names.MethodUser},
	{"EXIT", TokenExit, names.MethodUser},
	{"FOR", TokenFor, names.MethodUser},
	{"IF", TokenIf, names.MethodUser},
	{"INHERIT", TokenInherit, names.MethodUser},
	{"LAMBDA", TokenLambda, names.MethodUser},
	{"LOOP", TokenLoop, names.MethodUser},
	{"NATIVE", TokenNative, names.MethodUser},
	{"NOT", TokenNot, names.MethodUser},
	{"NULL", TokenNull, names.MethodUser},
	{"OR", TokenOr, names.MethodUser},
	{"OTHERWISE", TokenOtherwise, names.MethodUser},
	{"PACKAGE", TokenPackage, names.MethodUser},
	{"PROCEDURE", TokenProcedure, names.MethodUser},
	{"PROCESS", TokenProcess, names.MethodUser},
	{"PROGRAM", TokenProgram, names.MethodUser},
	{"RD", TokenRd, names.MethodUser},
	{"RETURN", TokenReturn, names.MethodUser},
	{"RW", TokenRw, names.MethodUser},
	{"SEL", TokenSel, names.MethodUser},
	{"SELF", TokenSelf, names.MethodUser},
	{"STOP", TokenStop, names.MethodUser},
	{"THEN", TokenThen, names.MethodUser},
	{"UNTIL", TokenUntil, names.MethodUser},
	{"USE", TokenUse, names.MethodUser},
	{"VAR", TokenVar, names.MethodUser},
	{"WHEN", TokenWhen, names.MethodUser},
	{"WHILE", TokenWhile, names.MethodUser},
	{"WR", TokenWr, names.MethodUser},

	{"POW", TokenPow, names.MethodPow},
	{"ARB", TokenArb, names.MethodArb},
	{"DOMAIN", TokenDomain, names.MethodDomain},
	{"RANGE", TokenRange, names.MethodRange},
	{"MOD", TokenMod, names.MethodMod},
	{"MIN", TokenMin, names.MethodMin},
	{"MAX", TokenMax, names.MethodMax},
	{"WITH", TokenWith, names.MethodWith},
	{"LESS", TokenLess, names.MethodLess},
	{"LESSF", TokenLessF, names.MethodLessF},
	{"NPOW", TokenNpow, names.MethodNpow},
	{"IN", TokenIn, names.MethodIn},
	{"NOTIN", TokenNotIn, names.MethodUser},
	{"SUBSET", TokenSubset, names.MethodUser},
	{"INCS", TokenIncs, names.MethodUser},
	{"FROM", TokenFrom, names.MethodFrom},
	{"FROMB", TokenFromB, names.MethodFromB},
	{"FROME", TokenFromE, names.MethodFromE},
	{"EXISTS", TokenExists, names.MethodUser},
	{"FORALL", TokenForall, names.MethodUser},

	{"+", TokenPlus, names.MethodAdd},
	{"-", TokenDash, names.MethodSub},
	{"?", TokenQuestion, names.MethodUser},
	{"*", TokenMult, names.MethodMult},
	{"/", TokenSlash, names.MethodDiv},
	{"**", TokenExpon, names.MethodExp},
	{"=", TokenEq, names.MethodUser},
	{"/=", TokenNe, names.MethodUser},
	{"<", TokenLt, names.MethodLt},
	{"<=", TokenLe, names.MethodLe},
	{">", TokenGt, names.MethodUser},
	{">=", TokenGe, names.MethodUser},
	{"#", TokenNelt, names.MethodNelt},
}

// compositeSpelling returns the canonical text of a composite operator
// formed from the base spelling.
func compositeSpelling(base string, apply bool) string {
	if apply {
		return base + "/"
	}
	return base + ":="
}

// compositeTokens maps base token -> (assign token, apply token) using the
// parallel blocks.
func compositeTokens(base TokenType) (TokenType, TokenType, bool) {
	for i, b := range compositeBase {
		if b == base {
			return TokenAsnPlus + TokenType(i), TokenAppPlus + TokenType(i), true
		}
	}
	return 0, 0, false
}

// InstallReserved loads the reserved words, operator names and composite
// operator spellings into the name table. The scanner calls this once per
// compiler instance.
func InstallReserved(nt *names.Table) {
	spelling := map[TokenType]string{}
	for _, rw := range reservedWords {
		nt.Install(rw.text, int(rw.tok), rw.method)
		spelling[rw.tok] = rw.text
	}
	for i, base := range compositeBase {
		text, ok := spelling[base]
		if !ok {
			continue
		}
		method := nt.Lookup(text).Method
		nt.Install(compositeSpelling(text, false), int(TokenAsnPlus+TokenType(i)), method)
		nt.Install(compositeSpelling(text, true), int(TokenAppPlus+TokenType(i)), method)
	}
}
