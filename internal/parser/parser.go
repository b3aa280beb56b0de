package parser

import (
	"fmt"

	"setl2/internal/diag"
	"setl2/internal/lexer"
	"setl2/internal/names"
	"setl2/internal/symtab"
)

// Parser builds ASTs by recursive descent over the scanner's token slice.
// Identifiers in expressions become name-reference stubs; resolution to
// symbols is deferred to the semantic pass.
type Parser struct {
	tokens  []lexer.Token
	current int
	nt      *names.Table
	diags   *diag.Collector
	pool    *Pool
}

// parseAbort carries a syntax error up to the statement-level recovery
// point.
type parseAbort struct {
	pos diag.Pos
	msg string
}

// NewParser creates a parser over tokens.
func NewParser(tokens []lexer.Token, nt *names.Table, diags *diag.Collector, pool *Pool) *Parser {
	return &Parser{tokens: tokens, nt: nt, diags: diags, pool: pool}
}

// ParseUnits parses every compilation unit in the input.
func (p *Parser) ParseUnits() []*Unit {
	var units []*Unit
	for !p.isAtEnd() {
		u := p.parseUnitRecover()
		if u != nil {
			units = append(units, u)
		}
	}
	return units
}

// parseUnitRecover parses one unit, converting a syntax panic into a
// collected diagnostic and a resync to the next unit keyword.
func (p *Parser) parseUnitRecover() (u *Unit) {
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(parseAbort)
			if !ok {
				panic(r)
			}
			p.diags.Errorf(abort.pos, "%s", abort.msg)
			p.resyncUnit()
			u = nil
		}
	}()
	return p.parseUnit()
}

func (p *Parser) parseUnit() *Unit {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenProgram:
		p.advance()
		return p.parseUnitRest(symtab.KindProgram, true, tok.Pos)
	case lexer.TokenPackage:
		p.advance()
		isBody := p.match(lexer.TokenBody)
		return p.parseUnitRest(symtab.KindPackage, isBody, tok.Pos)
	case lexer.TokenClass:
		p.advance()
		isBody := p.match(lexer.TokenBody)
		return p.parseUnitRest(symtab.KindClass, isBody, tok.Pos)
	case lexer.TokenProcess:
		p.advance()
		isBody := p.match(lexer.TokenBody)
		return p.parseUnitRest(symtab.KindProcess, isBody, tok.Pos)
	case lexer.TokenNative:
		p.advance()
		p.consume(lexer.TokenPackage, "PACKAGE")
		u := p.parseUnitRest(symtab.KindPackage, false, tok.Pos)
		return u
	}
	p.abort(tok.Pos, "Expected compilation unit, found => %s", p.describe(tok))
	return nil
}

// parseUnitRest parses "name ; contents end [name] ;" shared by every unit
// form. For a program, isBody is always true.
func (p *Parser) parseUnitRest(kind symtab.Kind, isBody bool, pos diag.Pos) *Unit {
	if !p.check(lexer.TokenID) {
		p.abort(p.peek().Pos, diag.MsgBadUnitName)
	}
	nameTok := p.advance()
	p.consume(lexer.TokenSemi, ";")
	u := &Unit{Kind: kind, IsBody: isBody, Name: nameTok.Name, Pos: pos}
	p.parseUnitContents(u)
	p.parseEnd(u.Name)
	return u
}

// parseUnitContents collects use/inherit clauses, declarations, body
// statements and routines up to the closing END.
func (p *Parser) parseUnitContents(u *Unit) {
	for {
		tok := p.peek()
		switch tok.Type {
		case lexer.TokenUse:
			p.advance()
			for {
				id := p.consumeID(diag.MsgMissingID)
				u.Uses = append(u.Uses, id.Name)
				if !p.match(lexer.TokenComma) {
					break
				}
			}
			p.consume(lexer.TokenSemi, ";")
		case lexer.TokenInherit:
			p.advance()
			for {
				id := p.consumeID(diag.MsgMissingID)
				u.Inherits = append(u.Inherits, id.Name)
				if !p.match(lexer.TokenComma) {
					break
				}
			}
			p.consume(lexer.TokenSemi, ";")
		case lexer.TokenVar, lexer.TokenConst, lexer.TokenSel:
			decl := p.parseDeclaration()
			if u.Decls == nil {
				u.Decls = p.pool.New(NodeList, decl.Pos)
			}
			appendChild(u.Decls, decl)
		case lexer.TokenProcedure:
			u.Routines = append(u.Routines, p.parseRoutine())
		case lexer.TokenEnd, lexer.TokenEOF:
			return
		default:
			before := p.current
			stmts := p.parseStmtList()
			if u.Body == nil {
				u.Body = stmts
			} else {
				for c := stmts.Child; c != nil; {
					next := c.Next
					c.Next = nil
					appendChild(u.Body, c)
					c = next
				}
			}
			if p.current == before {
				bad := p.advance()
				p.diags.Errorf(bad.Pos, "Unexpected token => %s", p.describe(bad))
			}
		}
	}
}

// parseDeclaration parses one var/const/sel declaration statement.
func (p *Parser) parseDeclaration() *Node {
	tok := p.advance()
	var decl *Node
	switch tok.Type {
	case lexer.TokenVar:
		decl = p.pool.New(NodeVarDecl, tok.Pos)
		for {
			item := p.parseDeclItem(true)
			appendChild(decl, item)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	case lexer.TokenConst:
		decl = p.pool.New(NodeConstDecl, tok.Pos)
		for {
			item := p.parseDeclItem(false)
			appendChild(decl, item)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	case lexer.TokenSel:
		decl = p.pool.New(NodeSelDecl, tok.Pos)
		for {
			id := p.consumeID(diag.MsgMissingID)
			sel := p.pool.New(NodeName, id.Pos)
			sel.Name = id.Name
			p.consume(lexer.TokenLParen, "(")
			num := p.consume(lexer.TokenIntLit, "slot number")
			lit := p.pool.New(NodeLiteral, num.Pos)
			lit.Lit = num.Value
			sel.Child = lit
			p.consume(lexer.TokenRParen, ")")
			appendChild(decl, sel)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenSemi, ";")
	return decl
}

// parseDeclItem parses "name" or "name := expr". Constants require the
// initializer.
func (p *Parser) parseDeclItem(initOptional bool) *Node {
	id := p.consumeID(diag.MsgMissingID)
	nameNode := p.pool.New(NodeName, id.Pos)
	nameNode.Name = id.Name
	if p.check(lexer.TokenAssign) || !initOptional {
		asn := p.consume(lexer.TokenAssign, ":=")
		rhs := p.parseExpression()
		node := p.pool.New(NodeAssign, asn.Pos)
		node.Child = nameNode
		nameNode.Next = rhs
		return node
	}
	return nameNode
}

// parseRoutine parses a procedure definition, including nested procedures.
func (p *Parser) parseRoutine() *Routine {
	procTok := p.consume(lexer.TokenProcedure, "PROCEDURE")
	nameTok := p.consumeID(diag.MsgMissingID)
	r := &Routine{Name: nameTok.Name, Pos: procTok.Pos}
	if p.match(lexer.TokenLParen) {
		if !p.check(lexer.TokenRParen) {
			for {
				mode := FormalRW
				switch {
				case p.match(lexer.TokenRd):
					mode = FormalRD
				case p.match(lexer.TokenWr):
					mode = FormalWR
				case p.match(lexer.TokenRw):
					mode = FormalRW
				}
				id := p.consumeID(diag.MsgMissingID)
				r.Formals = append(r.Formals, &Formal{Name: id.Name, Mode: mode, Pos: id.Pos})
				if p.check(lexer.TokenLParen) && p.peekNext().Type == lexer.TokenMult {
					p.advance()
					p.advance()
					p.consume(lexer.TokenRParen, ")")
					r.VarArgs = true
					break
				}
				if !p.match(lexer.TokenComma) {
					break
				}
			}
		}
		p.consume(lexer.TokenRParen, ")")
	}
	p.consume(lexer.TokenSemi, ";")
	for {
		tok := p.peek()
		switch tok.Type {
		case lexer.TokenVar, lexer.TokenConst, lexer.TokenSel:
			decl := p.parseDeclaration()
			if r.Decls == nil {
				r.Decls = p.pool.New(NodeList, decl.Pos)
			}
			appendChild(r.Decls, decl)
		case lexer.TokenProcedure:
			r.Routines = append(r.Routines, p.parseRoutine())
		case lexer.TokenEnd, lexer.TokenEOF:
			p.parseEnd(r.Name)
			return r
		default:
			before := p.current
			stmts := p.parseStmtList()
			if r.Body == nil {
				r.Body = stmts
			} else {
				for c := stmts.Child; c != nil; {
					next := c.Next
					c.Next = nil
					appendChild(r.Body, c)
					c = next
				}
			}
			if p.current == before {
				bad := p.advance()
				p.diags.Errorf(bad.Pos, "Unexpected token => %s", p.describe(bad))
			}
		}
	}
}

// parseEnd consumes "end [name] ;" and checks the trailing name.
func (p *Parser) parseEnd(name *names.Name) {
	endTok := p.consume(lexer.TokenEnd, "END")
	if p.check(lexer.TokenID) {
		id := p.advance()
		if name != nil && id.Name != name {
			p.diags.Errorf(endTok.Pos, diag.MsgMissingEndName, id.Lexeme)
		}
	}
	p.consume(lexer.TokenSemi, ";")
}

// resyncUnit skips to the next token that could start a compilation unit.
func (p *Parser) resyncUnit() {
	for !p.isAtEnd() {
		switch p.peek().Type {
		case lexer.TokenProgram, lexer.TokenPackage, lexer.TokenClass,
			lexer.TokenProcess, lexer.TokenNative:
			return
		}
		p.advance()
	}
}

// resyncStmt skips past the next statement terminator.
func (p *Parser) resyncStmt() {
	for !p.isAtEnd() {
		if p.advance().Type == lexer.TokenSemi {
			return
		}
		switch p.peek().Type {
		case lexer.TokenEnd, lexer.TokenProcedure, lexer.TokenProgram,
			lexer.TokenPackage, lexer.TokenClass, lexer.TokenProcess:
			return
		}
	}
}

// --- token plumbing ---

func (p *Parser) abort(pos diag.Pos, format string, args ...any) {
	panic(parseAbort{pos: pos, msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) describe(tok lexer.Token) string {
	if tok.Type == lexer.TokenEOF {
		return "end of file"
	}
	return tok.Lexeme
}

func (p *Parser) consume(t lexer.TokenType, what string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	tok := p.peek()
	p.abort(tok.Pos, diag.MsgExpectedToken, what, p.describe(tok))
	return lexer.Token{}
}

func (p *Parser) consumeID(format string) lexer.Token {
	if p.check(lexer.TokenID) {
		return p.advance()
	}
	tok := p.peek()
	p.abort(tok.Pos, format, p.describe(tok))
	return lexer.Token{}
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) peekNext() lexer.Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}
