package parser

import (
	"strconv"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
)

// precedence levels, low to high, per spec.md §4.2. Higher binds tighter.
type precedence int

const (
	precNone precedence = iota
	precOr
	precAnd
	precNot
	precEquality // =, IS, IS NOT, IS DISTINCT FROM, IN, LIKE, GLOB, MATCH, REGEXP, BETWEEN
	precComparison
	precBitOr
	precBitAnd
	precShift
	precAddSub
	precMulDivMod
	precConcat
	precUnary
	precPostfix
	precPrimary
)

// parseExpr parses a full expression at the lowest precedence (OR).
func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(precOr)
}

// parseBinary implements Pratt-style precedence climbing: parse a unary/
// primary expression, then repeatedly fold in infix operators whose
// precedence is at or above min.
func (p *Parser) parseBinary(min precedence) ast.Expr {
	left := p.parseUnary()
	for {
		opTok, prec, rightAssocBump := p.peekInfixOperator()
		if prec < min || prec == precNone {
			return left
		}
		left = p.continueInfix(left, opTok, prec, rightAssocBump)
	}
}

// continueInfix consumes the already-peeked infix operator and parses its
// right-hand side, dispatching to the handful of non-uniform forms (BETWEEN,
// IN, IS [NOT] DISTINCT FROM, postfix ESCAPE) that don't fit a plain
// left-recurse-right-recurse binary shape.
func (p *Parser) continueInfix(left ast.Expr, opTok lexer.Token, prec precedence, nextMin precedence) ast.Expr {
	switch {
	case opTok.Kind == lexer.KindKeyword && opTok.Text == "BETWEEN":
		return p.parseBetween(left, false)
	case opTok.Kind == lexer.KindKeyword && opTok.Text == "NOT" && p.peekAt(1).Text == "BETWEEN":
		p.advance() // NOT
		return p.parseBetween(left, true)
	case opTok.Kind == lexer.KindKeyword && opTok.Text == "IN":
		p.advance()
		return p.parseIn(left, false)
	case opTok.Kind == lexer.KindKeyword && opTok.Text == "NOT" && p.peekAt(1).Text == "IN":
		p.advance() // NOT
		p.advance() // IN
		return p.parseIn(left, true)
	case opTok.Kind == lexer.KindKeyword && opTok.Text == "IS":
		p.advance()
		return p.parseIs(left)
	case opTok.Kind == lexer.KindKeyword && (opTok.Text == "LIKE" || opTok.Text == "GLOB" || opTok.Text == "MATCH" || opTok.Text == "REGEXP"):
		p.advance()
		op := opTok.Text
		right := p.parseBinary(nextMin)
		bin := &ast.BinaryExpr{Op: op, Left: left, Right: right, Sp: lexer.SpanBetween(firstTok(left), lastTokOf(right))}
		if p.matchKeyword("ESCAPE") {
			p.advance()
			esc := p.parseBinary(precUnary)
			return &ast.EscapeExpr{Like: bin, Escape: esc, Sp: bin.Sp}
		}
		return bin
	case opTok.Kind == lexer.KindKeyword && opTok.Text == "NOT" && isLikeFamily(p.peekAt(1).Text):
		p.advance() // NOT
		opText := p.advance().Text
		right := p.parseBinary(nextMin)
		bin := &ast.BinaryExpr{Op: "NOT " + opText, Left: left, Right: right, Sp: lexer.SpanBetween(firstTok(left), lastTokOf(right))}
		if p.matchKeyword("ESCAPE") {
			p.advance()
			esc := p.parseBinary(precUnary)
			return &ast.EscapeExpr{Like: bin, Escape: esc, Sp: bin.Sp}
		}
		return bin
	default:
		p.advance()
		right := p.parseBinary(nextMin)
		return &ast.BinaryExpr{Op: canonicalOp(opTok), Left: left, Right: right, Sp: lexer.SpanBetween(firstTok(left), lastTokOf(right))}
	}
}

func isLikeFamily(s string) bool {
	switch s {
	case "LIKE", "GLOB", "MATCH", "REGEXP":
		return true
	default:
		return false
	}
}

// peekInfixOperator inspects the current token and reports whether it
// begins an infix operator, its precedence, and the minimum precedence
// the right-hand operand should be parsed at (prec+1 for every
// left-associative operator; COLLATE is the one exception and returns
// precPostfix for both).
func (p *Parser) peekInfixOperator() (lexer.Token, precedence, precedence) {
	tok := p.current()
	if tok.Kind == lexer.KindKeyword {
		switch tok.Text {
		case "OR":
			return tok, precOr, precOr + 1
		case "AND":
			return tok, precAnd, precAnd + 1
		case "IS", "IN", "LIKE", "GLOB", "MATCH", "REGEXP", "BETWEEN":
			return tok, precEquality, precEquality + 1
		case "NOT":
			if n := p.peekAt(1).Text; n == "BETWEEN" || n == "IN" || isLikeFamily(n) {
				return tok, precEquality, precEquality + 1
			}
			return lexer.Token{}, precNone, precNone
		case "COLLATE":
			return tok, precPostfix, precPostfix
		}
		return lexer.Token{}, precNone, precNone
	}
	if tok.Kind != lexer.KindSymbol {
		return lexer.Token{}, precNone, precNone
	}
	switch tok.Text {
	case "=", "==", "!=", "<>":
		return tok, precEquality, precEquality + 1
	case "<", "<=", ">", ">=":
		return tok, precComparison, precComparison + 1
	case "|":
		return tok, precBitOr, precBitOr + 1
	case "&":
		return tok, precBitAnd, precBitAnd + 1
	case "<<", ">>":
		return tok, precShift, precShift + 1
	case "+", "-":
		return tok, precAddSub, precAddSub + 1
	case "*", "/", "%":
		return tok, precMulDivMod, precMulDivMod + 1
	case "||":
		return tok, precConcat, precConcat + 1
	case "->", "->>":
		return tok, precConcat, precConcat + 1
	}
	return lexer.Token{}, precNone, precNone
}

func canonicalOp(tok lexer.Token) string { return tok.Text }

// parseUnary handles prefix -, +, ~, NOT, then defers to postfix handling.
func (p *Parser) parseUnary() ast.Expr {
	tok := p.current()
	if tok.Kind == lexer.KindSymbol && (tok.Text == "-" || tok.Text == "+" || tok.Text == "~") {
		p.advance()
		operand := p.parseUnary()
		return p.parsePostfix(&ast.UnaryExpr{Op: tok.Text, Operand: operand, Sp: lexer.SpanBetween(tok, lastTokOf(operand))})
	}
	if tok.Kind == lexer.KindKeyword && tok.Text == "NOT" {
		p.advance()
		operand := p.parseBinary(precNot)
		return &ast.UnaryExpr{Op: "NOT", Operand: operand, Sp: lexer.SpanBetween(tok, lastTokOf(operand))}
	}
	if tok.Kind == lexer.KindKeyword && tok.Text == "EXISTS" {
		return p.parseExists(false)
	}
	if tok.Kind == lexer.KindKeyword && tok.Text == "NOT" && p.peekAt(1).Text == "EXISTS" {
		p.advance()
		return p.parseExists(true)
	}
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix handles the ISNULL/NOTNULL/NOT NULL suffixes, which bind
// tighter than any binary operator but looser than a primary. COLLATE and
// IS [NOT] NULL go through the infix path (peekInfixOperator).
func (p *Parser) parsePostfix(e ast.Expr) ast.Expr {
	for {
		tok := p.current()
		switch {
		case tok.Kind == lexer.KindKeyword && tok.Text == "ISNULL":
			p.advance()
			e = &ast.PostfixExpr{Op: "ISNULL", Operand: e, Sp: lexer.SpanBetween(firstTok(e), tok)}
		case tok.Kind == lexer.KindKeyword && tok.Text == "NOTNULL":
			p.advance()
			e = &ast.PostfixExpr{Op: "NOTNULL", Operand: e, Sp: lexer.SpanBetween(firstTok(e), tok)}
		case tok.Kind == lexer.KindKeyword && tok.Text == "NOT" && p.peekAt(1).Text == "NULL":
			p.advance()
			end := p.advance()
			e = &ast.PostfixExpr{Op: "NOT NULL", Operand: e, Sp: lexer.SpanBetween(firstTok(e), end)}
		default:
			return e
		}
	}
}

func (p *Parser) parseExists(not bool) ast.Expr {
	start := p.current()
	p.advance() // EXISTS
	if _, ok := p.expectSymbol("("); !ok {
		return &ast.Literal{Kind: ast.LiteralNull, Sp: lexer.NewSpan(start)}
	}
	sub := p.parseSelectStmt()
	end, _ := p.expectSymbol(")")
	return &ast.ExistsExpr{Not: not, Subquery: sub, Sp: lexer.SpanBetween(start, end)}
}

func (p *Parser) parseBetween(operand ast.Expr, not bool) ast.Expr {
	p.advance() // BETWEEN
	low := p.parseBinary(precComparison + 1)
	p.expectKeyword("AND")
	high := p.parseBinary(precComparison + 1)
	return &ast.BetweenExpr{Operand: operand, Not: not, Low: low, High: high, Sp: lexer.SpanBetween(firstTok(operand), lastTokOf(high))}
}

func (p *Parser) parseIn(operand ast.Expr, not bool) ast.Expr {
	if e, ok := p.maybeParseInParam(operand, not); ok {
		return e
	}
	start, _ := p.expectSymbol("(")
	in := &ast.InExpr{Operand: operand, Not: not}
	if p.matchKeyword("SELECT") || p.matchKeyword("WITH") {
		in.Subquery = p.parseSelectStmt()
	} else {
		for !p.matchSymbol(")") && !p.isEOF() {
			in.List = append(in.List, p.parseExpr())
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
	}
	end, _ := p.expectSymbol(")")
	in.Sp = lexer.SpanBetween(firstTok(operand), end)
	_ = start
	return in
}

// maybeParseInParam handles the `expr IN ?` form, where the parenthesized list
// is replaced by a single bind parameter bound to a variadic scheme.
func (p *Parser) maybeParseInParam(operand ast.Expr, not bool) (ast.Expr, bool) {
	if p.current().Kind != lexer.KindParam {
		return nil, false
	}
	tok := p.advance()
	param := p.tokenToParam(tok)
	return &ast.InExpr{Operand: operand, Not: not, ParamRHS: param, Sp: lexer.SpanBetween(firstTok(operand), tok)}, true
}

func (p *Parser) parseIs(left ast.Expr) ast.Expr {
	not := false
	if p.matchKeyword("NOT") {
		p.advance()
		not = true
	}
	if p.matchKeyword("DISTINCT") {
		p.advance()
		p.expectKeyword("FROM")
		right := p.parseBinary(precEquality + 1)
		return &ast.IsDistinctExpr{Not: not, Left: left, Right: right, Sp: lexer.SpanBetween(firstTok(left), lastTokOf(right))}
	}
	if p.matchKeyword("NULL") {
		end := p.advance()
		op := "IS NULL"
		if not {
			op = "IS NOT NULL"
		}
		return &ast.PostfixExpr{Op: op, Operand: left, Sp: lexer.SpanBetween(firstTok(left), end)}
	}
	right := p.parseBinary(precEquality + 1)
	op := "IS"
	if not {
		op = "IS NOT"
	}
	return &ast.BinaryExpr{Op: op, Left: left, Right: right, Sp: lexer.SpanBetween(firstTok(left), lastTokOf(right))}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch {
	case tok.Kind == lexer.KindNumber:
		p.advance()
		kind := ast.LiteralInteger
		if isDecimalOrExp(tok.Text) {
			kind = ast.LiteralDecimal
		}
		return &ast.Literal{Kind: kind, Text: tok.Text, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindString:
		p.advance()
		return &ast.Literal{Kind: ast.LiteralString, Text: tok.Text, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindBlob:
		p.advance()
		return &ast.Literal{Kind: ast.LiteralBlob, Text: tok.Text, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindParam:
		p.advance()
		return p.tokenToParam(tok)
	case tok.Kind == lexer.KindKeyword && tok.Text == "NULL":
		p.advance()
		return &ast.Literal{Kind: ast.LiteralNull, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindKeyword && (tok.Text == "TRUE"):
		p.advance()
		return &ast.Literal{Kind: ast.LiteralTrue, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindKeyword && (tok.Text == "FALSE"):
		p.advance()
		return &ast.Literal{Kind: ast.LiteralFalse, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindKeyword && tok.Text == "CURRENT_TIME":
		p.advance()
		return &ast.Literal{Kind: ast.LiteralCurrentTime, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindKeyword && tok.Text == "CURRENT_DATE":
		p.advance()
		return &ast.Literal{Kind: ast.LiteralCurrentDate, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindKeyword && tok.Text == "CURRENT_TIMESTAMP":
		p.advance()
		return &ast.Literal{Kind: ast.LiteralCurrentTimestamp, Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindKeyword && tok.Text == "CAST":
		return p.parseCast()
	case tok.Kind == lexer.KindKeyword && tok.Text == "CASE":
		return p.parseCase()
	case tok.Kind == lexer.KindKeyword && tok.Text == "RAISE":
		return p.parseRaise()
	case tok.Kind == lexer.KindSymbol && tok.Text == "*":
		p.advance()
		return &ast.StarExpr{Sp: lexer.NewSpan(tok)}
	case tok.Kind == lexer.KindSymbol && tok.Text == "(":
		return p.parseParenOrSubquery()
	case tok.Kind == lexer.KindIdentifier || tok.Kind == lexer.KindKeyword:
		return p.parseIdentOrCall()
	default:
		p.errorf(tok, "unexpected token %q in expression", tok.Text)
		p.advance()
		return &ast.Literal{Kind: ast.LiteralNull, Sp: lexer.NewSpan(tok)}
	}
}

func (p *Parser) tokenToParam(tok lexer.Token) *ast.Param {
	switch tok.Text[0] {
	case '?':
		if len(tok.Text) == 1 {
			return &ast.Param{Style: ast.ParamAnonymous, RawText: tok.Text, Sp: lexer.NewSpan(tok)}
		}
		n, _ := strconv.Atoi(tok.Text[1:])
		return &ast.Param{Style: ast.ParamPositional, Index: n, RawText: tok.Text, Sp: lexer.NewSpan(tok)}
	default:
		return &ast.Param{Style: ast.ParamNamed, Name: tok.Text[1:], RawText: tok.Text, Sp: lexer.NewSpan(tok)}
	}
}

func (p *Parser) parseCast() ast.Expr {
	start := p.current()
	p.advance() // CAST
	p.expectSymbol("(")
	inner := p.parseExpr()
	p.expectKeyword("AS")
	ty := p.parseTypeName()
	end, _ := p.expectSymbol(")")
	return &ast.CastExpr{Operand: inner, Type: ty, Sp: lexer.SpanBetween(start, end)}
}

func (p *Parser) parseCase() ast.Expr {
	start := p.current()
	p.advance() // CASE
	ce := &ast.CaseExpr{}
	if !p.matchKeyword("WHEN") {
		ce.Operand = p.parseExpr()
	}
	for p.matchKeyword("WHEN") {
		p.advance()
		when := p.parseExpr()
		p.expectKeyword("THEN")
		then := p.parseExpr()
		ce.Whens = append(ce.Whens, ast.CaseWhen{When: when, Then: then})
	}
	if p.matchKeyword("ELSE") {
		p.advance()
		ce.Else = p.parseExpr()
	}
	end, _ := p.expectKeyword("END")
	ce.Sp = lexer.SpanBetween(start, end)
	return ce
}

func (p *Parser) parseRaise() ast.Expr {
	start := p.current()
	p.advance() // RAISE
	p.expectSymbol("(")
	action, _, _ := p.expectIdentifier()
	msg := ""
	if p.matchSymbol(",") {
		p.advance()
		if p.current().Kind == lexer.KindString {
			msg = p.advance().Text
		}
	}
	end, _ := p.expectSymbol(")")
	return &ast.RaiseExpr{Action: action, Message: msg, Sp: lexer.SpanBetween(start, end)}
}

func (p *Parser) parseParenOrSubquery() ast.Expr {
	start := p.current()
	p.advance() // (
	if p.matchKeyword("SELECT") || p.matchKeyword("WITH") || p.matchKeyword("VALUES") {
		sel := p.parseSelectStmt()
		end, _ := p.expectSymbol(")")
		return &ast.SubqueryExpr{Select: sel, Sp: lexer.SpanBetween(start, end)}
	}
	inner := p.parseExpr()
	end, _ := p.expectSymbol(")")
	return &ast.ParenExpr{Inner: inner, Sp: lexer.SpanBetween(start, end)}
}

// parseIdentOrCall parses a (possibly dotted) identifier, then checks for a
// trailing `(` to recognize a function call, including the `f(*)`,
// `f(DISTINCT expr)`, and `f(...) OVER (...)` forms.
func (p *Parser) parseIdentOrCall() ast.Expr {
	start := p.current()
	ident := p.parseIdent()
	if !p.matchSymbol("(") {
		return ident
	}
	p.advance() // (
	call := &ast.CallExpr{Name: ident.Last()}
	if p.matchSymbol("*") {
		p.advance()
		call.Star = true
	} else {
		if p.matchKeyword("DISTINCT") {
			p.advance()
			call.Distinct = true
		}
		for !p.matchSymbol(")") && !p.isEOF() {
			call.Args = append(call.Args, p.parseExpr())
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
	}
	end, _ := p.expectSymbol(")")
	call.Sp = lexer.SpanBetween(start, end)
	if p.matchKeyword("OVER") {
		call.Over = p.parseWindowSpec()
	}
	return call
}

func (p *Parser) parseWindowSpec() *ast.WindowSpec {
	start := p.advance() // OVER
	p.expectSymbol("(")
	spec := &ast.WindowSpec{}
	if p.matchKeyword("PARTITION") {
		p.advance()
		p.expectKeyword("BY")
		for {
			spec.PartitionBy = append(spec.PartitionBy, p.parseExpr())
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
	}
	if p.matchKeyword("ORDER") {
		p.advance()
		p.expectKeyword("BY")
		spec.OrderBy = p.parseOrderByItems()
	}
	depth := 1
	for depth > 0 && !p.isEOF() {
		if p.matchSymbol("(") {
			depth++
		} else if p.matchSymbol(")") {
			depth--
			if depth == 0 {
				break
			}
		}
		p.advance()
	}
	end, _ := p.expectSymbol(")")
	spec.Sp = lexer.SpanBetween(start, end)
	return spec
}

func isDecimalOrExp(text string) bool {
	for _, r := range text {
		if r == '.' || r == 'e' || r == 'E' {
			return true
		}
	}
	return false
}

func firstTok(e ast.Expr) lexer.Token {
	sp := e.Span()
	return lexer.Token{File: sp.File, Line: sp.StartLine, Column: sp.StartColumn}
}

func lastTokOf(e ast.Expr) lexer.Token {
	sp := e.Span()
	return lexer.Token{File: sp.File, Line: sp.EndLine, Column: sp.EndColumn}
}
