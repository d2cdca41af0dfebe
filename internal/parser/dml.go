package parser

import (
	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
)

func (p *Parser) parseSelectStmt() *ast.SelectStmt {
	start := p.current()
	stmt := &ast.SelectStmt{}
	if p.matchKeyword("WITH") {
		p.advance()
		recursive := false
		if p.matchKeyword("RECURSIVE") {
			p.advance()
			recursive = true
		}
		for {
			stmt.CTEs = append(stmt.CTEs, p.parseCTE(recursive))
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
	}
	stmt.Cores = append(stmt.Cores, p.parseSelectCore())
	for {
		var op ast.SetOp
		switch {
		case p.matchKeyword("UNION"):
			p.advance()
			if p.matchKeyword("ALL") {
				p.advance()
				op = ast.SetOpUnionAll
			} else {
				op = ast.SetOpUnion
			}
		case p.matchKeyword("INTERSECT"):
			p.advance()
			op = ast.SetOpIntersect
		case p.matchKeyword("EXCEPT"):
			p.advance()
			op = ast.SetOpExcept
		default:
			goto postSetOps
		}
		stmt.SetOps = append(stmt.SetOps, op)
		stmt.Cores = append(stmt.Cores, p.parseSelectCore())
	}
postSetOps:
	if p.matchKeyword("ORDER") {
		p.advance()
		p.expectKeyword("BY")
		stmt.OrderBy = p.parseOrderByItems()
	}
	if p.matchKeyword("LIMIT") {
		p.advance()
		stmt.Limit = p.parseBinary(precAddSub)
		if p.matchSymbol(",") {
			p.advance()
			stmt.Offset = p.parseBinary(precAddSub)
		} else if p.matchKeyword("OFFSET") {
			p.advance()
			stmt.Offset = p.parseBinary(precAddSub)
		}
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt
}

func (p *Parser) parseOrderByItems() []ast.OrderItem {
	var items []ast.OrderItem
	for {
		e := p.parseExpr()
		dir := ast.OrderAsc
		if p.matchKeyword("ASC") {
			p.advance()
		} else if p.matchKeyword("DESC") {
			p.advance()
			dir = ast.OrderDesc
		}
		items = append(items, ast.OrderItem{Expr: e, Dir: dir})
		if !p.matchSymbol(",") {
			break
		}
		p.advance()
	}
	return items
}

func (p *Parser) parseCTE(recursive bool) ast.CTE {
	start := p.current()
	name, _, _ := p.expectIdentifier()
	cte := ast.CTE{Name: name, Recursive: recursive}
	if p.matchSymbol("(") {
		p.advance()
		for !p.matchSymbol(")") && !p.isEOF() {
			col, _, _ := p.expectIdentifier()
			cte.Columns = append(cte.Columns, col)
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		p.expectSymbol(")")
	}
	p.expectKeyword("AS")
	p.expectSymbol("(")
	cte.Select = p.parseSelectStmt()
	p.expectSymbol(")")
	cte.Sp = lexer.SpanBetween(start, p.previous())
	return cte
}

func (p *Parser) parseSelectCore() ast.SelectCore {
	start := p.current()
	core := ast.SelectCore{}
	if p.matchKeyword("VALUES") {
		p.advance()
		for {
			p.expectSymbol("(")
			var row []ast.Expr
			for !p.matchSymbol(")") && !p.isEOF() {
				row = append(row, p.parseExpr())
				if !p.matchSymbol(",") {
					break
				}
				p.advance()
			}
			p.expectSymbol(")")
			core.Values = append(core.Values, row)
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		core.Sp = lexer.SpanBetween(start, p.previous())
		return core
	}
	p.expectKeyword("SELECT")
	if p.matchKeyword("DISTINCT") {
		p.advance()
		core.Distinct = true
	} else if p.matchKeyword("ALL") {
		p.advance()
	}
	core.Columns = p.parseResultColumns()
	if p.matchKeyword("FROM") {
		p.advance()
		core.From = p.parseTableExpr()
	}
	if p.matchKeyword("WHERE") {
		p.advance()
		core.Where = p.parseExpr()
	}
	if p.matchKeyword("GROUP") {
		p.advance()
		p.expectKeyword("BY")
		for {
			core.GroupBy = append(core.GroupBy, p.parseExpr())
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		if p.matchKeyword("HAVING") {
			p.advance()
			core.Having = p.parseExpr()
		}
	}
	for p.matchKeyword("WINDOW") {
		p.advance()
		for {
			name, _, _ := p.expectIdentifier()
			p.expectKeyword("AS")
			spec := p.parseWindowSpecBody()
			core.Windows = append(core.Windows, ast.NamedWindow{Name: name, Spec: spec})
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
	}
	core.Sp = lexer.SpanBetween(start, p.previous())
	return core
}

// parseWindowSpecBody parses `(...)` for a WINDOW name AS (...) clause,
// which has the same shape as the body of an OVER (...) but without the
// leading OVER keyword.
func (p *Parser) parseWindowSpecBody() *ast.WindowSpec {
	start := p.current()
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

func (p *Parser) parseResultColumns() []ast.ResultColumn {
	var cols []ast.ResultColumn
	for {
		cols = append(cols, p.parseResultColumn())
		if !p.matchSymbol(",") {
			break
		}
		p.advance()
	}
	return cols
}

func (p *Parser) parseResultColumn() ast.ResultColumn {
	start := p.current()
	if p.matchSymbol("*") {
		p.advance()
		return ast.ResultColumn{Star: &ast.StarExpr{Sp: lexer.NewSpan(start)}, Sp: lexer.NewSpan(start)}
	}
	if p.current().Kind == lexer.KindIdentifier && p.peekAt(1).Kind == lexer.KindSymbol && p.peekAt(1).Text == "." && p.peekAt(2).Kind == lexer.KindSymbol && p.peekAt(2).Text == "*" {
		qualifier := p.advance().Text
		p.advance() // .
		end := p.advance() // *
		return ast.ResultColumn{Star: &ast.StarExpr{Qualifier: []string{qualifier}, Sp: lexer.SpanBetween(start, end)}, Sp: lexer.SpanBetween(start, end)}
	}
	expr := p.parseExpr()
	col := ast.ResultColumn{Expr: expr}
	if p.matchKeyword("AS") {
		p.advance()
		alias, _, _ := p.expectIdentifier()
		col.Alias = alias
	} else if p.current().Kind == lexer.KindIdentifier {
		alias, _, _ := p.expectIdentifier()
		col.Alias = alias
	}
	col.Sp = lexer.SpanBetween(start, p.previous())
	return col
}

// parseTableExpr parses a FROM clause's table-or-subquery tree, handling
// comma-joins and explicit JOIN operators with equal, left-associative
// precedence (join trees nest to the left, matching SQL's textual order).
func (p *Parser) parseTableExpr() ast.TableExpr {
	left := p.parseTableUnit()
	for {
		join, ok := p.tryParseJoinOperator()
		if !ok {
			if p.matchSymbol(",") {
				p.advance()
				right := p.parseTableUnit()
				left = &ast.JoinExpr{Left: left, Right: right, Kind: ast.JoinComma, Sp: lexer.SpanBetween(firstTableTok(left), lastTableTok(right))}
				continue
			}
			return left
		}
		right := p.parseTableUnit()
		je := &ast.JoinExpr{Left: left, Right: right, Kind: join}
		if p.matchKeyword("ON") {
			p.advance()
			je.On = p.parseExpr()
		} else if p.matchKeyword("USING") {
			p.advance()
			p.expectSymbol("(")
			for !p.matchSymbol(")") && !p.isEOF() {
				col, _, _ := p.expectIdentifier()
				je.UsingCols = append(je.UsingCols, col)
				if !p.matchSymbol(",") {
					break
				}
				p.advance()
			}
			p.expectSymbol(")")
		}
		je.Sp = lexer.SpanBetween(firstTableTok(left), lastTableTok(right))
		left = je
	}
}

func (p *Parser) tryParseJoinOperator() (ast.JoinKind, bool) {
	natural := false
	if p.matchKeyword("NATURAL") {
		p.advance()
		natural = true
	}
	switch {
	case p.matchKeyword("JOIN"):
		p.advance()
		if natural {
			return ast.JoinNatural, true
		}
		return ast.JoinInner, true
	case p.matchKeyword("INNER"):
		p.advance()
		p.expectKeyword("JOIN")
		return ast.JoinInner, true
	case p.matchKeyword("CROSS"):
		p.advance()
		p.expectKeyword("JOIN")
		return ast.JoinCross, true
	case p.matchKeyword("LEFT"):
		p.advance()
		outer := p.matchKeyword("OUTER")
		if outer {
			p.advance()
		}
		p.expectKeyword("JOIN")
		if outer {
			return ast.JoinLeftOuter, true
		}
		return ast.JoinLeft, true
	case p.matchKeyword("RIGHT"):
		p.advance()
		outer := p.matchKeyword("OUTER")
		if outer {
			p.advance()
		}
		p.expectKeyword("JOIN")
		if outer {
			return ast.JoinRightOuter, true
		}
		return ast.JoinRight, true
	case p.matchKeyword("FULL"):
		p.advance()
		outer := p.matchKeyword("OUTER")
		if outer {
			p.advance()
		}
		p.expectKeyword("JOIN")
		if outer {
			return ast.JoinFullOuter, true
		}
		return ast.JoinFull, true
	default:
		if natural {
			p.errorf(p.current(), "expected JOIN after NATURAL")
		}
		return ast.JoinInner, false
	}
}

func (p *Parser) parseTableUnit() ast.TableExpr {
	start := p.current()
	if p.matchSymbol("(") {
		p.advance()
		if p.matchKeyword("SELECT") || p.matchKeyword("WITH") || p.matchKeyword("VALUES") {
			sel := p.parseSelectStmt()
			end, _ := p.expectSymbol(")")
			st := &ast.SubqueryTable{Select: sel, Sp: lexer.SpanBetween(start, end)}
			if p.matchKeyword("AS") {
				p.advance()
			}
			if p.current().Kind == lexer.KindIdentifier {
				alias, _, _ := p.expectIdentifier()
				st.Alias = alias
			}
			return st
		}
		var items []ast.TableExpr
		for !p.matchSymbol(")") && !p.isEOF() {
			items = append(items, p.parseTableExpr())
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		end, _ := p.expectSymbol(")")
		return &ast.ParenTable{Items: items, Sp: lexer.SpanBetween(start, end)}
	}
	name := p.parseIdent()
	tn := &ast.TableName{Name: name}
	if p.matchKeyword("AS") {
		p.advance()
		alias, _, _ := p.expectIdentifier()
		tn.Alias = alias
	} else if p.current().Kind == lexer.KindIdentifier {
		alias, _, _ := p.expectIdentifier()
		tn.Alias = alias
	}
	if p.matchKeyword("INDEXED") {
		p.advance()
		p.expectKeyword("BY")
		idx, _, _ := p.expectIdentifier()
		tn.Indexed = idx
	} else if p.matchKeyword("NOT") && p.peekAt(1).Text == "INDEXED" {
		p.advance()
		p.advance()
		tn.NotIndexed = true
	}
	tn.Sp = lexer.SpanBetween(start, p.previous())
	return tn
}

func firstTableTok(t ast.TableExpr) lexer.Token {
	sp := t.Span()
	return lexer.Token{File: sp.File, Line: sp.StartLine, Column: sp.StartColumn}
}

func lastTableTok(t ast.TableExpr) lexer.Token {
	sp := t.Span()
	return lexer.Token{File: sp.File, Line: sp.EndLine, Column: sp.EndColumn}
}

func (p *Parser) parseInsertMode() ast.InsertMode {
	p.advance() // INSERT
	if p.matchKeyword("OR") {
		p.advance()
		switch {
		case p.matchKeyword("REPLACE"):
			p.advance()
			return ast.InsertOrReplace
		case p.matchKeyword("ROLLBACK"):
			p.advance()
			return ast.InsertOrRollback
		case p.matchKeyword("ABORT"):
			p.advance()
			return ast.InsertOrAbort
		case p.matchKeyword("FAIL"):
			p.advance()
			return ast.InsertOrFail
		case p.matchKeyword("IGNORE"):
			p.advance()
			return ast.InsertOrIgnore
		}
	}
	return ast.InsertNormal
}

func (p *Parser) parseInsert() *ast.InsertStmt {
	start := p.current()
	mode := p.parseInsertMode()
	if mode == ast.InsertNormal && p.matchKeyword("REPLACE") {
		p.advance()
		mode = ast.InsertOrReplace
	} else {
		p.expectKeyword("INTO")
	}
	stmt := &ast.InsertStmt{Mode: mode, Table: p.parseIdent()}
	if p.matchSymbol("(") {
		p.advance()
		for !p.matchSymbol(")") && !p.isEOF() {
			col, _, _ := p.expectIdentifier()
			stmt.Columns = append(stmt.Columns, col)
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		p.expectSymbol(")")
	}
	switch {
	case p.matchKeyword("VALUES"):
		p.advance()
		for {
			p.expectSymbol("(")
			var row []ast.Expr
			for !p.matchSymbol(")") && !p.isEOF() {
				row = append(row, p.parseExpr())
				if !p.matchSymbol(",") {
					break
				}
				p.advance()
			}
			p.expectSymbol(")")
			stmt.Values = append(stmt.Values, row)
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
	case p.matchKeyword("SELECT") || p.matchKeyword("WITH"):
		stmt.Select = p.parseSelectStmt()
	case p.matchKeyword("DEFAULT"):
		p.advance()
		p.expectKeyword("VALUES")
	default:
		p.errorf(p.current(), "expected VALUES, SELECT, or DEFAULT VALUES in INSERT")
	}
	if p.matchKeyword("ON") {
		stmt.Conflict = p.parseOnConflict()
	}
	if p.matchKeyword("RETURNING") {
		p.advance()
		stmt.Returning = p.parseResultColumns()
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt
}

func (p *Parser) parseOnConflict() *ast.OnConflictClause {
	start := p.advance() // ON
	p.expectKeyword("CONFLICT")
	oc := &ast.OnConflictClause{}
	if p.matchSymbol("(") {
		p.advance()
		for !p.matchSymbol(")") && !p.isEOF() {
			col, _, _ := p.expectIdentifier()
			oc.TargetColumns = append(oc.TargetColumns, col)
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		p.expectSymbol(")")
		if p.matchKeyword("WHERE") {
			p.advance()
			oc.TargetWhere = p.parseExpr()
		}
	}
	p.expectKeyword("DO")
	if p.matchKeyword("NOTHING") {
		p.advance()
		oc.DoNothing = true
		oc.Sp = lexer.SpanBetween(start, p.previous())
		return oc
	}
	p.expectKeyword("UPDATE")
	p.expectKeyword("SET")
	oc.Assignments = p.parseAssignments()
	if p.matchKeyword("WHERE") {
		p.advance()
		oc.UpdateWhere = p.parseExpr()
	}
	oc.Sp = lexer.SpanBetween(start, p.previous())
	return oc
}

func (p *Parser) parseAssignments() []ast.Assignment {
	var out []ast.Assignment
	for {
		start := p.current()
		var a ast.Assignment
		if p.matchSymbol("(") {
			p.advance()
			for !p.matchSymbol(")") && !p.isEOF() {
				col, _, _ := p.expectIdentifier()
				a.Columns = append(a.Columns, col)
				if !p.matchSymbol(",") {
					break
				}
				p.advance()
			}
			p.expectSymbol(")")
			p.expectSymbol("=")
			p.expectSymbol("(")
			for !p.matchSymbol(")") && !p.isEOF() {
				a.Values = append(a.Values, p.parseExpr())
				if !p.matchSymbol(",") {
					break
				}
				p.advance()
			}
			p.expectSymbol(")")
		} else {
			col, _, _ := p.expectIdentifier()
			a.Columns = []string{col}
			p.expectSymbol("=")
			a.Values = []ast.Expr{p.parseExpr()}
		}
		a.Sp = lexer.SpanBetween(start, p.previous())
		out = append(out, a)
		if !p.matchSymbol(",") {
			break
		}
		p.advance()
	}
	return out
}

func (p *Parser) parseUpdate() *ast.UpdateStmt {
	start := p.advance() // UPDATE
	mode := ast.InsertNormal
	if p.matchKeyword("OR") {
		p.advance()
		switch {
		case p.matchKeyword("REPLACE"):
			p.advance()
			mode = ast.InsertOrReplace
		case p.matchKeyword("ROLLBACK"):
			p.advance()
			mode = ast.InsertOrRollback
		case p.matchKeyword("ABORT"):
			p.advance()
			mode = ast.InsertOrAbort
		case p.matchKeyword("FAIL"):
			p.advance()
			mode = ast.InsertOrFail
		case p.matchKeyword("IGNORE"):
			p.advance()
			mode = ast.InsertOrIgnore
		}
	}
	stmt := &ast.UpdateStmt{Table: p.parseIdent(), Mode: mode}
	p.expectKeyword("SET")
	stmt.Assignments = p.parseAssignments()
	if p.matchKeyword("FROM") {
		p.advance()
		stmt.From = p.parseTableExpr()
	}
	if p.matchKeyword("WHERE") {
		p.advance()
		stmt.Where = p.parseExpr()
	}
	if p.matchKeyword("RETURNING") {
		p.advance()
		stmt.Returning = p.parseResultColumns()
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt
}

func (p *Parser) parseDelete() *ast.DeleteStmt {
	start := p.advance() // DELETE
	p.expectKeyword("FROM")
	stmt := &ast.DeleteStmt{Table: p.parseIdent()}
	if p.matchKeyword("WHERE") {
		p.advance()
		stmt.Where = p.parseExpr()
	}
	if p.matchKeyword("RETURNING") {
		p.advance()
		stmt.Returning = p.parseResultColumns()
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt
}
