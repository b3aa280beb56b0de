package parser

import (
	"setl2/internal/lexer"
	"setl2/internal/value"
)

// Expression parsing. The ladder runs assignment (and the from-operators)
// at the bottom, then or, and, not, relationals, additive, multiplicative,
// exponentiation, unaries and postfix application.

func (p *Parser) parseExpression() *Node {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() *Node {
	left := p.parseOrExpr()
	tok := p.peek()
	switch {
	case tok.Type == lexer.TokenAssign:
		p.advance()
		right := p.parseAssignment()
		node := p.pool.New(NodeAssign, tok.Pos)
		node.Child = left
		left.Next = right
		return node
	case tok.Type.IsAssignOp():
		p.advance()
		right := p.parseAssignment()
		node := p.pool.New(NodeAssignOp, tok.Pos)
		node.Name = tok.Name
		node.Ext = tok.Name
		node.Child = left
		left.Next = right
		return node
	case tok.Type == lexer.TokenFrom || tok.Type == lexer.TokenFromB || tok.Type == lexer.TokenFromE:
		p.advance()
		right := p.parseOrExpr()
		var nt NodeType
		switch tok.Type {
		case lexer.TokenFrom:
			nt = NodeFrom
		case lexer.TokenFromB:
			nt = NodeFromB
		default:
			nt = NodeFromE
		}
		node := p.pool.New(nt, tok.Pos)
		node.Ext = tok.Name
		node.Child = left
		left.Next = right
		return node
	}
	return left
}

func (p *Parser) parseOrExpr() *Node {
	left := p.parseAndExpr()
	for p.check(lexer.TokenOr) {
		tok := p.advance()
		right := p.parseAndExpr()
		left = p.binary(NodeOr, tok, left, right)
	}
	return left
}

func (p *Parser) parseAndExpr() *Node {
	left := p.parseNotExpr()
	for p.check(lexer.TokenAnd) {
		tok := p.advance()
		right := p.parseNotExpr()
		left = p.binary(NodeAnd, tok, left, right)
	}
	return left
}

func (p *Parser) parseNotExpr() *Node {
	if p.check(lexer.TokenNot) {
		tok := p.advance()
		operand := p.parseNotExpr()
		node := p.pool.New(NodeNot, tok.Pos)
		node.Child = operand
		return node
	}
	return p.parseRelational()
}

var relationalNodes = map[lexer.TokenType]NodeType{
	lexer.TokenEq:     NodeEq,
	lexer.TokenNe:     NodeNe,
	lexer.TokenLt:     NodeLt,
	lexer.TokenLe:     NodeLe,
	lexer.TokenGt:     NodeGt,
	lexer.TokenGe:     NodeGe,
	lexer.TokenIn:     NodeIn,
	lexer.TokenNotIn:  NodeNotIn,
	lexer.TokenSubset: NodeSubset,
	lexer.TokenIncs:   NodeIncs,
}

func (p *Parser) parseRelational() *Node {
	left := p.parseAdditive()
	for {
		tok := p.peek()
		nt, ok := relationalNodes[tok.Type]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = p.binary(nt, tok, left, right)
	}
}

var additiveNodes = map[lexer.TokenType]NodeType{
	lexer.TokenPlus:     NodeAdd,
	lexer.TokenDash:     NodeSub,
	lexer.TokenQuestion: NodeQuestion,
	lexer.TokenMax:      NodeMax,
	lexer.TokenMin:      NodeMin,
	lexer.TokenWith:     NodeWith,
	lexer.TokenLess:     NodeLess,
	lexer.TokenLessF:    NodeLessF,
}

func (p *Parser) parseAdditive() *Node {
	left := p.parseMultiplicative()
	for {
		tok := p.peek()
		if nt, ok := additiveNodes[tok.Type]; ok {
			p.advance()
			right := p.parseMultiplicative()
			left = p.binary(nt, tok, left, right)
			continue
		}
		if tok.Type.IsApplyOp() {
			// e1 op/ e2 is a reduction with a left-hand start value
			p.advance()
			right := p.parseMultiplicative()
			node := p.pool.New(NodeBinApply, tok.Pos)
			node.Name = tok.Name
			node.Ext = tok.Name
			node.Child = left
			left.Next = right
			left = node
			continue
		}
		return left
	}
}

var multiplicativeNodes = map[lexer.TokenType]NodeType{
	lexer.TokenMult:  NodeMult,
	lexer.TokenSlash: NodeDiv,
	lexer.TokenMod:   NodeMod,
	lexer.TokenNpow:  NodeNpow,
}

func (p *Parser) parseMultiplicative() *Node {
	left := p.parseExponent()
	for {
		tok := p.peek()
		nt, ok := multiplicativeNodes[tok.Type]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseExponent()
		left = p.binary(nt, tok, left, right)
	}
}

func (p *Parser) parseExponent() *Node {
	left := p.parseUnaryExpr()
	if p.check(lexer.TokenExpon) {
		tok := p.advance()
		right := p.parseExponent() // right associative
		return p.binary(NodeExpon, tok, left, right)
	}
	return left
}

var unaryNodes = map[lexer.TokenType]NodeType{
	lexer.TokenDash:   NodeUminus,
	lexer.TokenNelt:   NodeNelt,
	lexer.TokenArb:    NodeArb,
	lexer.TokenPow:    NodePow,
	lexer.TokenDomain: NodeDomain,
	lexer.TokenRange:  NodeRange,
}

func (p *Parser) parseUnaryExpr() *Node {
	tok := p.peek()
	if nt, ok := unaryNodes[tok.Type]; ok {
		p.advance()
		operand := p.parseUnaryExpr()
		node := p.pool.New(nt, tok.Pos)
		node.Ext = tok.Name
		node.Child = operand
		return node
	}
	if tok.Type.IsApplyOp() {
		// op/ e reduces e over the bare operator
		p.advance()
		operand := p.parseUnaryExpr()
		node := p.pool.New(NodeUnApply, tok.Pos)
		node.Name = tok.Name
		node.Ext = tok.Name
		node.Child = operand
		return node
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *Node {
	node := p.parsePrimary()
	for {
		tok := p.peek()
		switch tok.Type {
		case lexer.TokenLParen:
			p.advance()
			node = p.finishOf(node, tok)
		case lexer.TokenLBrace:
			p.advance()
			ofa := p.pool.New(NodeOfA, tok.Pos)
			ofa.Child = node
			tail := node
			if !p.check(lexer.TokenRBrace) {
				for {
					arg := p.parseExpression()
					tail.Next = arg
					tail = arg
					if !p.match(lexer.TokenComma) {
						break
					}
				}
			}
			p.consume(lexer.TokenRBrace, "}")
			node = ofa
		case lexer.TokenDot:
			p.advance()
			id := p.consumeID("Missing identifier => %s")
			dot := p.pool.New(NodeDot, tok.Pos)
			sel := p.pool.New(NodeName, id.Pos)
			sel.Name = id.Name
			dot.Child = node
			node.Next = sel
			node = dot
		default:
			return node
		}
	}
}

// finishOf parses the rest of "f(...)": a call or indexing argument list, a
// slice i..j, or an end-slice i.. .
func (p *Parser) finishOf(callee *Node, tok lexer.Token) *Node {
	if p.check(lexer.TokenRParen) {
		p.advance()
		of := p.pool.New(NodeOf, tok.Pos)
		of.Child = callee
		return of
	}
	first := p.parseExpression()
	if p.check(lexer.TokenDotDot) {
		p.advance()
		if p.check(lexer.TokenRParen) {
			p.advance()
			node := p.pool.New(NodeEnd, tok.Pos)
			node.Child = callee
			callee.Next = first
			return node
		}
		hi := p.parseExpression()
		p.consume(lexer.TokenRParen, ")")
		node := p.pool.New(NodeSlice, tok.Pos)
		node.Child = callee
		callee.Next = first
		first.Next = hi
		return node
	}
	of := p.pool.New(NodeOf, tok.Pos)
	of.Child = callee
	tail := callee
	tail.Next = first
	tail = first
	for p.match(lexer.TokenComma) {
		arg := p.parseExpression()
		tail.Next = arg
		tail = arg
	}
	p.consume(lexer.TokenRParen, ")")
	return of
}

func (p *Parser) parsePrimary() *Node {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenIntLit, lexer.TokenRealLit, lexer.TokenStringLit:
		node := p.pool.New(NodeLiteral, tok.Pos)
		node.Lit = tok.Value
		return node
	case lexer.TokenNull:
		node := p.pool.New(NodeLiteral, tok.Pos)
		node.Lit = value.Omega{}
		return node
	case lexer.TokenID:
		node := p.pool.New(NodeName, tok.Pos)
		node.Name = tok.Name
		return node
	case lexer.TokenSelf:
		return p.pool.New(NodeSelf, tok.Pos)
	case lexer.TokenLParen:
		expr := p.parseExpression()
		p.consume(lexer.TokenRParen, ")")
		return expr
	case lexer.TokenLBrace:
		return p.parseFormer(tok, NodeSetFormer, NodeEnumSet, lexer.TokenRBrace, "}")
	case lexer.TokenLBracket:
		return p.parseFormer(tok, NodeTupleFormer, NodeEnumTup, lexer.TokenRBracket, "]")
	case lexer.TokenExists:
		return p.parseQuantifier(NodeExists, tok)
	case lexer.TokenForall:
		return p.parseQuantifier(NodeForall, tok)
	case lexer.TokenStop:
		// diagnosed by the checker when it lands in value position
		return p.pool.New(NodeStop, tok.Pos)
	}
	if tok.Type != lexer.TokenEOF {
		p.current-- // leave the offending token for the recovery scan
	}
	p.abort(tok.Pos, "Expected expression, found => %s", p.describe(tok))
	return nil
}

// parseFormer parses set and tuple formers after the opening bracket:
// enumerations {a, b}, arithmetic ranges {lo..hi} and {lo, next..hi}, and
// iterator formers {expr : iter-list | cond}.
func (p *Parser) parseFormer(tok lexer.Token, former, enum NodeType, closer lexer.TokenType, closeText string) *Node {
	if p.check(closer) {
		p.advance()
		return p.pool.New(enum, tok.Pos)
	}
	first := p.parseExpression()
	switch {
	case p.check(lexer.TokenColon):
		p.advance()
		iters := p.parseIterList()
		p.consume(closer, closeText)
		node := p.pool.New(former, tok.Pos)
		node.Child = first
		first.Next = iters
		return node
	case p.check(lexer.TokenDotDot):
		p.advance()
		hi := p.parseExpression()
		p.consume(closer, closeText)
		rng := p.pool.New(NodeIterRange, tok.Pos)
		rng.Child = first
		first.Next = hi
		node := p.pool.New(former, tok.Pos)
		node.Child = rng
		return node
	}
	node := p.pool.New(enum, tok.Pos)
	appendChild(node, first)
	for p.match(lexer.TokenComma) {
		next := p.parseExpression()
		if p.check(lexer.TokenDotDot) {
			ddTok := p.advance()
			if node.Child.Next != nil {
				p.abort(ddTok.Pos, "Arithmetic former takes one element before ..")
			}
			hi := p.parseExpression()
			p.consume(closer, closeText)
			rng := p.pool.New(NodeIterRange, tok.Pos)
			lo := node.Child
			lo.Next = next
			next.Next = hi
			rng.Child = lo
			fnode := p.pool.New(former, tok.Pos)
			fnode.Child = rng
			return fnode
		}
		appendChild(node, next)
	}
	p.consume(closer, closeText)
	return node
}

func (p *Parser) parseQuantifier(nt NodeType, tok lexer.Token) *Node {
	iters := p.parseIterList()
	node := p.pool.New(nt, tok.Pos)
	node.Child = iters
	return node
}

func (p *Parser) binary(nt NodeType, tok lexer.Token, left, right *Node) *Node {
	node := p.pool.New(nt, tok.Pos)
	node.Ext = tok.Name
	node.Child = left
	left.Next = right
	return node
}
