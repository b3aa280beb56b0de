package parser

import (
	"setl2/internal/diag"
	"setl2/internal/lexer"
)

// stmtListDone reports the tokens that terminate a statement list without
// belonging to it.
func stmtListDone(t lexer.TokenType) bool {
	switch t {
	case lexer.TokenEnd, lexer.TokenEOF, lexer.TokenProcedure,
		lexer.TokenElse, lexer.TokenElseIf, lexer.TokenWhen,
		lexer.TokenOtherwise, lexer.TokenVar, lexer.TokenConst,
		lexer.TokenSel:
		return true
	}
	return false
}

// parseStmtList parses statements until a closer. Each statement recovers
// locally: a syntax error is collected and the parser skips to the next
// terminator.
func (p *Parser) parseStmtList() *Node {
	list := p.pool.New(NodeStmtList, p.peek().Pos)
	for !stmtListDone(p.peek().Type) {
		before := p.current
		stmt := p.parseStatementRecover()
		if stmt != nil {
			appendChild(list, stmt)
		}
		if p.current == before {
			// no progress; drop the offending token rather than loop
			p.advance()
		}
	}
	return list
}

func (p *Parser) parseStatementRecover() (stmt *Node) {
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(parseAbort)
			if !ok {
				panic(r)
			}
			p.diags.Errorf(abort.pos, "%s", abort.msg)
			p.resyncStmt()
			stmt = nil
		}
	}()
	return p.parseStatement()
}

func (p *Parser) parseStatement() *Node {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenUntil:
		return p.parseUntil()
	case lexer.TokenLoop:
		return p.parseLoop()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenCase:
		return p.parseCase()
	case lexer.TokenExit:
		p.advance()
		p.consume(lexer.TokenSemi, ";")
		return p.pool.New(NodeExit, tok.Pos)
	case lexer.TokenContinue:
		p.advance()
		p.consume(lexer.TokenSemi, ";")
		return p.pool.New(NodeContinue, tok.Pos)
	case lexer.TokenStop:
		p.advance()
		p.consume(lexer.TokenSemi, ";")
		return p.pool.New(NodeStop, tok.Pos)
	case lexer.TokenReturn:
		p.advance()
		node := p.pool.New(NodeReturn, tok.Pos)
		if !p.check(lexer.TokenSemi) {
			node.Child = p.parseExpression()
		}
		p.consume(lexer.TokenSemi, ";")
		return node
	case lexer.TokenAssert:
		p.advance()
		node := p.pool.New(NodeAssert, tok.Pos)
		node.Child = p.parseExpression()
		p.consume(lexer.TokenSemi, ";")
		return node
	case lexer.TokenSemi:
		// empty statement
		p.advance()
		return nil
	}
	expr := p.parseExpression()
	p.consume(lexer.TokenSemi, ";")
	return expr
}

// parseIf parses "if c then ... {elseif c then ...} [else ...] end if;".
// The node's children are condition, then-list and an optional else-list;
// an elseif chain nests another NodeIf as the else-list's only statement.
func (p *Parser) parseIf() *Node {
	tok := p.consume(lexer.TokenIf, "IF")
	node := p.parseIfRest(tok.Pos)
	p.parseEndConstruct(lexer.TokenIf, "IF")
	return node
}

func (p *Parser) parseIfRest(pos diag.Pos) *Node {
	node := p.pool.New(NodeIf, pos)
	cond := p.parseExpression()
	p.consume(lexer.TokenThen, "THEN")
	then := p.parseStmtList()
	node.Child = cond
	cond.Next = then
	switch {
	case p.check(lexer.TokenElseIf):
		elseifTok := p.advance()
		nested := p.parseIfRest(elseifTok.Pos)
		wrapper := p.pool.New(NodeStmtList, elseifTok.Pos)
		wrapper.Child = nested
		then.Next = wrapper
	case p.match(lexer.TokenElse):
		then.Next = p.parseStmtList()
	}
	return node
}

func (p *Parser) parseWhile() *Node {
	tok := p.consume(lexer.TokenWhile, "WHILE")
	node := p.pool.New(NodeWhile, tok.Pos)
	cond := p.parseExpression()
	p.consume(lexer.TokenLoop, "LOOP")
	body := p.parseStmtList()
	node.Child = cond
	cond.Next = body
	p.parseEndConstruct(lexer.TokenLoop, "LOOP")
	return node
}

func (p *Parser) parseUntil() *Node {
	tok := p.consume(lexer.TokenUntil, "UNTIL")
	node := p.pool.New(NodeUntil, tok.Pos)
	cond := p.parseExpression()
	p.consume(lexer.TokenLoop, "LOOP")
	body := p.parseStmtList()
	node.Child = cond
	cond.Next = body
	p.parseEndConstruct(lexer.TokenLoop, "LOOP")
	return node
}

func (p *Parser) parseLoop() *Node {
	tok := p.consume(lexer.TokenLoop, "LOOP")
	node := p.pool.New(NodeLoop, tok.Pos)
	node.Child = p.parseStmtList()
	p.parseEndConstruct(lexer.TokenLoop, "LOOP")
	return node
}

func (p *Parser) parseFor() *Node {
	tok := p.consume(lexer.TokenFor, "FOR")
	node := p.pool.New(NodeFor, tok.Pos)
	iters := p.parseIterList()
	p.consume(lexer.TokenLoop, "LOOP")
	body := p.parseStmtList()
	node.Child = iters
	iters.Next = body
	p.parseEndConstruct(lexer.TokenLoop, "LOOP")
	return node
}

// parseCase parses "case e when v1, v2 => stmts ... otherwise => stmts
// end case;".
func (p *Parser) parseCase() *Node {
	tok := p.consume(lexer.TokenCase, "CASE")
	node := p.pool.New(NodeCase, tok.Pos)
	subject := p.parseExpression()
	node.Child = subject
	tail := subject
	for p.check(lexer.TokenWhen) {
		whenTok := p.advance()
		when := p.pool.New(NodeWhen, whenTok.Pos)
		labels := p.pool.New(NodeList, whenTok.Pos)
		for {
			appendChild(labels, p.parseExpression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		p.consume(lexer.TokenRArrow, "=>")
		body := p.parseStmtList()
		when.Child = labels
		labels.Next = body
		tail.Next = when
		tail = when
	}
	if p.match(lexer.TokenOtherwise) {
		p.consume(lexer.TokenRArrow, "=>")
		body := p.parseStmtList()
		other := p.pool.New(NodeList, body.Pos)
		other.Child = body
		tail.Next = other
	}
	p.parseEndConstruct(lexer.TokenCase, "CASE")
	return node
}

// parseEndConstruct consumes "end <keyword> ;" closing a statement
// construct. The keyword may be omitted.
func (p *Parser) parseEndConstruct(kw lexer.TokenType, what string) {
	p.consume(lexer.TokenEnd, "END")
	if p.check(kw) {
		p.advance()
	} else if p.check(lexer.TokenIf) || p.check(lexer.TokenLoop) || p.check(lexer.TokenCase) {
		// a mismatched closer reads better as its own diagnostic
		tok := p.advance()
		p.diags.Errorf(tok.Pos, "END %s closes a %s construct", tok.Lexeme, what)
	}
	p.consume(lexer.TokenSemi, ";")
}

// parseIterList parses "iter {, iter} [| cond]". Each iterator is
// "bv in source" where bv may be a tuple pattern.
func (p *Parser) parseIterList() *Node {
	first := p.peek()
	list := p.pool.New(NodeIterList, first.Pos)
	for {
		appendChild(list, p.parseIterator())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if p.check(lexer.TokenSuchThat) {
		bar := p.advance()
		cond := p.parseExpression()
		st := p.pool.New(NodeSuchThat, bar.Pos)
		st.Child = list
		list.Next = cond
		return st
	}
	return list
}

func (p *Parser) parseIterator() *Node {
	target := p.parseUnaryExpr()
	tok := p.peek()
	if tok.Type != lexer.TokenIn {
		p.abort(tok.Pos, "Expected IN, found => %s", p.describe(tok))
	}
	p.advance()
	source := p.parseExpression()
	iter := p.pool.New(NodeIterIn, tok.Pos)
	iter.Child = target
	target.Next = source
	return iter
}
