package parser

import (
	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
)

func (p *Parser) parseCreate() (ast.Stmt, bool) {
	start := p.advance() // CREATE
	temporary := false
	for p.matchKeyword("TEMP") || p.matchKeyword("TEMPORARY") {
		p.advance()
		temporary = true
	}
	switch {
	case p.matchKeyword("TABLE"):
		p.advance()
		return p.parseCreateTable(start, temporary)
	case p.matchKeyword("UNIQUE"):
		p.advance()
		p.expectKeyword("INDEX")
		return p.parseCreateIndex(start, true)
	case p.matchKeyword("INDEX"):
		p.advance()
		return p.parseCreateIndex(start, false)
	case p.matchKeyword("VIEW"):
		p.advance()
		return p.parseCreateView(start)
	case p.matchKeyword("TRIGGER"):
		p.advance()
		return p.parseCreateTrigger(start)
	default:
		p.errorf(p.current(), "expected TABLE, INDEX, VIEW, or TRIGGER after CREATE")
		p.sync()
		return nil, false
	}
}

func (p *Parser) parseIfNotExists() bool {
	if p.matchKeyword("IF") {
		p.advance()
		p.expectKeyword("NOT")
		p.expectKeyword("EXISTS")
		return true
	}
	return false
}

func (p *Parser) parseIfExists() bool {
	if p.matchKeyword("IF") {
		p.advance()
		p.expectKeyword("EXISTS")
		return true
	}
	return false
}

func (p *Parser) parseCreateTable(start lexer.Token, temporary bool) (ast.Stmt, bool) {
	ifNotExists := p.parseIfNotExists()
	name := p.parseIdent()
	stmt := &ast.CreateTableStmt{Name: name, Temporary: temporary, IfNotExists: ifNotExists}

	if p.matchKeyword("AS") {
		p.advance()
		stmt.AsSelect = p.parseSelectStmt()
		stmt.Sp = lexer.SpanBetween(start, p.previous())
		return stmt, true
	}

	if _, ok := p.expectSymbol("("); !ok {
		p.sync()
		return stmt, false
	}
	for !p.matchSymbol(")") && !p.isEOF() {
		if p.matchKeyword("CONSTRAINT") || p.matchKeyword("PRIMARY") || p.matchKeyword("UNIQUE") || p.matchKeyword("FOREIGN") || p.matchKeyword("CHECK") {
			stmt.TableConstraints = append(stmt.TableConstraints, p.parseTableConstraint())
		} else {
			stmt.Columns = append(stmt.Columns, p.parseColumnDef())
		}
		if p.matchSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectSymbol(")")
	for {
		switch {
		case p.matchKeyword("STRICT"):
			p.advance()
			stmt.Strict = true
		case p.matchKeyword("WITHOUT"):
			p.advance()
			p.expectKeyword("ROWID")
			stmt.WithoutRowID = true
		default:
			stmt.Sp = lexer.SpanBetween(start, p.previous())
			return stmt, true
		}
		if p.matchSymbol(",") {
			p.advance()
		}
	}
}

func (p *Parser) parseColumnDef() ast.ColumnDef {
	start := p.current()
	name, _, _ := p.expectIdentifier()
	col := ast.ColumnDef{Name: name}
	col.Type = p.parseTypeName()
	for {
		c, ok := p.tryParseColumnConstraint()
		if !ok {
			break
		}
		col.Constraints = append(col.Constraints, c)
	}
	col.Sp = lexer.SpanBetween(start, p.previous())
	return col
}

func (p *Parser) parseTypeName() ast.TypeName {
	start := p.current()
	name, _, _ := p.expectIdentifier()
	ty := ast.TypeName{Name: name}
	if p.matchSymbol("(") {
		p.advance()
		for !p.matchSymbol(")") && !p.isEOF() {
			if p.current().Kind == lexer.KindNumber {
				n := parseIntLiteral(p.advance().Text)
				ty.Args = append(ty.Args, n)
			} else {
				p.advance()
			}
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		p.expectSymbol(")")
	}
	if p.matchKeyword("AS") {
		p.advance()
		hostName, _, _ := p.expectIdentifier()
		ty.AsName = hostName
	}
	if p.matchKeyword("USING") {
		p.advance()
		adapterName, _, _ := p.expectIdentifier()
		ty.Adapter = adapterName
	}
	ty.Sp = lexer.SpanBetween(start, p.previous())
	return ty
}

func parseIntLiteral(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func (p *Parser) parseConflictClause() ast.ConflictClause {
	if !p.matchKeyword("ON") {
		return ast.ConflictNone
	}
	p.advance()
	p.expectKeyword("CONFLICT")
	switch {
	case p.matchKeyword("ROLLBACK"):
		p.advance()
		return ast.ConflictRollback
	case p.matchKeyword("ABORT"):
		p.advance()
		return ast.ConflictAbort
	case p.matchKeyword("FAIL"):
		p.advance()
		return ast.ConflictFail
	case p.matchKeyword("IGNORE"):
		p.advance()
		return ast.ConflictIgnore
	case p.matchKeyword("REPLACE"):
		p.advance()
		return ast.ConflictReplace
	default:
		return ast.ConflictNone
	}
}

func (p *Parser) tryParseColumnConstraint() (ast.ColumnConstraint, bool) {
	name := ""
	if p.matchKeyword("CONSTRAINT") {
		p.advance()
		name, _, _ = p.expectIdentifier()
	}
	switch {
	case p.matchKeyword("PRIMARY"):
		p.advance()
		p.expectKeyword("KEY")
		dir := ast.OrderAsc
		if p.matchKeyword("ASC") {
			p.advance()
		} else if p.matchKeyword("DESC") {
			p.advance()
			dir = ast.OrderDesc
		}
		conflict := p.parseConflictClause()
		auto := false
		if p.matchKeyword("AUTOINCREMENT") {
			p.advance()
			auto = true
		}
		return ast.ColumnConstraint{Kind: ast.ConstraintPrimaryKey, Name: name, Order: dir, Conflict: conflict, AutoIncrement: auto}, true
	case p.matchKeyword("NOT"):
		p.advance()
		p.expectKeyword("NULL")
		conflict := p.parseConflictClause()
		return ast.ColumnConstraint{Kind: ast.ConstraintNotNull, Name: name, Conflict: conflict}, true
	case p.matchKeyword("UNIQUE"):
		p.advance()
		conflict := p.parseConflictClause()
		return ast.ColumnConstraint{Kind: ast.ConstraintUnique, Name: name, Conflict: conflict}, true
	case p.matchKeyword("CHECK"):
		p.advance()
		p.expectSymbol("(")
		expr := p.parseExpr()
		p.expectSymbol(")")
		return ast.ColumnConstraint{Kind: ast.ConstraintCheck, Name: name, CheckExpr: expr}, true
	case p.matchKeyword("DEFAULT"):
		p.advance()
		if p.matchSymbol("(") {
			p.advance()
			expr := p.parseExpr()
			p.expectSymbol(")")
			return ast.ColumnConstraint{Kind: ast.ConstraintDefault, Name: name, DefaultExpr: expr, DefaultIsParen: true}, true
		}
		expr := p.parseUnary()
		return ast.ColumnConstraint{Kind: ast.ConstraintDefault, Name: name, DefaultExpr: expr}, true
	case p.matchKeyword("COLLATE"):
		p.advance()
		coll, _, _ := p.expectIdentifier()
		return ast.ColumnConstraint{Kind: ast.ConstraintCollate, Name: name, CollationName: coll}, true
	case p.matchKeyword("REFERENCES"):
		p.advance()
		fk := p.parseForeignKeyClause()
		return ast.ColumnConstraint{Kind: ast.ConstraintReferences, Name: name, References: fk}, true
	case p.matchKeyword("GENERATED"):
		p.advance()
		p.expectKeyword("ALWAYS")
		p.expectKeyword("AS")
		p.expectSymbol("(")
		expr := p.parseExpr()
		p.expectSymbol(")")
		stored := p.parseStoredOrVirtual()
		return ast.ColumnConstraint{Kind: ast.ConstraintGenerated, Name: name, GeneratedExpr: expr, GeneratedAlways: true, Stored: stored}, true
	case p.matchKeyword("AS"):
		p.advance()
		p.expectSymbol("(")
		expr := p.parseExpr()
		p.expectSymbol(")")
		stored := p.parseStoredOrVirtual()
		return ast.ColumnConstraint{Kind: ast.ConstraintGenerated, Name: name, GeneratedExpr: expr, Stored: stored}, true
	default:
		return ast.ColumnConstraint{}, false
	}
}

func (p *Parser) parseStoredOrVirtual() bool {
	if p.matchKeyword("STORED") {
		p.advance()
		return true
	}
	if p.matchKeyword("VIRTUAL") {
		p.advance()
	}
	return false
}

func (p *Parser) parseForeignKeyClause() *ast.ForeignKeyClause {
	start := p.current()
	table := p.parseIdent()
	fk := &ast.ForeignKeyClause{Table: table}
	if p.matchSymbol("(") {
		p.advance()
		for !p.matchSymbol(")") && !p.isEOF() {
			col, _, _ := p.expectIdentifier()
			fk.Columns = append(fk.Columns, col)
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		p.expectSymbol(")")
	}
	for p.matchKeyword("ON") || p.matchKeyword("DEFERRABLE") {
		if p.matchKeyword("DEFERRABLE") {
			p.advance()
			fk.Deferrable = true
			continue
		}
		p.advance() // ON
		action := ""
		switch {
		case p.matchKeyword("DELETE"):
			p.advance()
			action = "DELETE"
		case p.matchKeyword("UPDATE"):
			p.advance()
			action = "UPDATE"
		}
		clause := p.parseReferentialAction()
		if action == "DELETE" {
			fk.OnDelete = clause
		} else {
			fk.OnUpdate = clause
		}
	}
	fk.Sp = lexer.SpanBetween(start, p.previous())
	return fk
}

func (p *Parser) parseReferentialAction() string {
	switch {
	case p.matchKeyword("CASCADE"):
		p.advance()
		return "CASCADE"
	case p.matchKeyword("RESTRICT"):
		p.advance()
		return "RESTRICT"
	case p.matchKeyword("NO"):
		p.advance()
		p.expectKeyword("ACTION")
		return "NO ACTION"
	case p.matchKeyword("SET"):
		p.advance()
		if p.matchKeyword("NULL") {
			p.advance()
			return "SET NULL"
		}
		p.expectKeyword("DEFAULT")
		return "SET DEFAULT"
	default:
		return ""
	}
}

func (p *Parser) parseTableConstraint() ast.TableConstraint {
	start := p.current()
	name := ""
	if p.matchKeyword("CONSTRAINT") {
		p.advance()
		name, _, _ = p.expectIdentifier()
	}
	switch {
	case p.matchKeyword("PRIMARY"):
		p.advance()
		p.expectKeyword("KEY")
		cols := p.parseIndexedColumnNames()
		conflict := p.parseConflictClause()
		return ast.TableConstraint{Kind: ast.TableConstraintPrimaryKey, Name: name, Columns: cols, Conflict: conflict, Sp: lexer.SpanBetween(start, p.previous())}
	case p.matchKeyword("UNIQUE"):
		p.advance()
		cols := p.parseIndexedColumnNames()
		conflict := p.parseConflictClause()
		return ast.TableConstraint{Kind: ast.TableConstraintUnique, Name: name, Columns: cols, Conflict: conflict, Sp: lexer.SpanBetween(start, p.previous())}
	case p.matchKeyword("CHECK"):
		p.advance()
		p.expectSymbol("(")
		expr := p.parseExpr()
		p.expectSymbol(")")
		return ast.TableConstraint{Kind: ast.TableConstraintCheck, Name: name, CheckExpr: expr, Sp: lexer.SpanBetween(start, p.previous())}
	case p.matchKeyword("FOREIGN"):
		p.advance()
		p.expectKeyword("KEY")
		cols := p.parseIndexedColumnNames()
		p.expectKeyword("REFERENCES")
		fk := p.parseForeignKeyClause()
		return ast.TableConstraint{Kind: ast.TableConstraintForeignKey, Name: name, Columns: cols, References: fk, Sp: lexer.SpanBetween(start, p.previous())}
	default:
		p.errorf(p.current(), "expected a table constraint")
		p.advance()
		return ast.TableConstraint{Sp: lexer.NewSpan(start)}
	}
}

func (p *Parser) parseIndexedColumnNames() []string {
	var cols []string
	if _, ok := p.expectSymbol("("); !ok {
		return cols
	}
	for !p.matchSymbol(")") && !p.isEOF() {
		col, _, _ := p.expectIdentifier()
		cols = append(cols, col)
		if p.matchKeyword("ASC") || p.matchKeyword("DESC") {
			p.advance()
		}
		if !p.matchSymbol(",") {
			break
		}
		p.advance()
	}
	p.expectSymbol(")")
	return cols
}

func (p *Parser) parseAlterTable() (ast.Stmt, bool) {
	start := p.advance() // ALTER
	p.expectKeyword("TABLE")
	table := p.parseIdent()
	stmt := &ast.AlterTableStmt{Table: table}
	switch {
	case p.matchKeyword("RENAME"):
		p.advance()
		if p.matchKeyword("TO") {
			p.advance()
			newName, _, _ := p.expectIdentifier()
			stmt.Action = ast.AlterRenameTable
			stmt.NewName = newName
		} else {
			if p.matchKeyword("COLUMN") {
				p.advance()
			}
			oldName, _, _ := p.expectIdentifier()
			p.expectKeyword("TO")
			newName, _, _ := p.expectIdentifier()
			stmt.Action = ast.AlterRenameColumn
			stmt.OldName = oldName
			stmt.NewName = newName
		}
	case p.matchKeyword("ADD"):
		p.advance()
		if p.matchKeyword("COLUMN") {
			p.advance()
		}
		col := p.parseColumnDef()
		stmt.Action = ast.AlterAddColumn
		stmt.AddColumn = &col
	case p.matchKeyword("DROP"):
		p.advance()
		if p.matchKeyword("COLUMN") {
			p.advance()
		}
		oldName, _, _ := p.expectIdentifier()
		stmt.Action = ast.AlterDropColumn
		stmt.OldName = oldName
	default:
		p.errorf(p.current(), "expected RENAME, ADD, or DROP after ALTER TABLE")
		p.sync()
		return stmt, false
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt, true
}

func (p *Parser) parseDrop() (ast.Stmt, bool) {
	start := p.advance() // DROP
	switch {
	case p.matchKeyword("TABLE"):
		p.advance()
		ifExists := p.parseIfExists()
		name := p.parseIdent()
		return &ast.DropTableStmt{Name: name, IfExists: ifExists, Sp: lexer.SpanBetween(start, p.previous())}, true
	case p.matchKeyword("INDEX"):
		p.advance()
		ifExists := p.parseIfExists()
		name := p.parseIdent()
		return &ast.DropIndexStmt{Name: name, IfExists: ifExists, Sp: lexer.SpanBetween(start, p.previous())}, true
	case p.matchKeyword("VIEW"):
		p.advance()
		ifExists := p.parseIfExists()
		name := p.parseIdent()
		return &ast.DropViewStmt{Name: name, IfExists: ifExists, Sp: lexer.SpanBetween(start, p.previous())}, true
	case p.matchKeyword("TRIGGER"):
		p.advance()
		ifExists := p.parseIfExists()
		name := p.parseIdent()
		return &ast.DropTriggerStmt{Name: name, IfExists: ifExists, Sp: lexer.SpanBetween(start, p.previous())}, true
	default:
		p.errorf(p.current(), "expected TABLE, INDEX, VIEW, or TRIGGER after DROP")
		p.sync()
		return nil, false
	}
}

func (p *Parser) parseCreateIndex(start lexer.Token, unique bool) (ast.Stmt, bool) {
	ifNotExists := p.parseIfNotExists()
	name := p.parseIdent()
	p.expectKeyword("ON")
	table := p.parseIdent()
	stmt := &ast.CreateIndexStmt{Name: name, Table: table, Unique: unique, IfNotExists: ifNotExists}
	p.expectSymbol("(")
	for !p.matchSymbol(")") && !p.isEOF() {
		col := ast.IndexedColumn{}
		if p.current().Kind == lexer.KindIdentifier && p.peekAt(1).Text != "(" {
			col.Name, _, _ = p.expectIdentifier()
		} else {
			col.Expr = p.parseExpr()
		}
		if p.matchKeyword("ASC") {
			p.advance()
		} else if p.matchKeyword("DESC") {
			p.advance()
			col.Dir = ast.OrderDesc
		}
		stmt.Columns = append(stmt.Columns, col)
		if !p.matchSymbol(",") {
			break
		}
		p.advance()
	}
	p.expectSymbol(")")
	if p.matchKeyword("WHERE") {
		p.advance()
		stmt.Where = p.parseExpr()
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt, true
}

func (p *Parser) parseCreateView(start lexer.Token) (ast.Stmt, bool) {
	ifNotExists := p.parseIfNotExists()
	name := p.parseIdent()
	stmt := &ast.CreateViewStmt{Name: name, IfNotExists: ifNotExists}
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
	p.expectKeyword("AS")
	stmt.Select = p.parseSelectStmt()
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt, true
}

func (p *Parser) parseCreateTrigger(start lexer.Token) (ast.Stmt, bool) {
	ifNotExists := p.parseIfNotExists()
	name := p.parseIdent()
	stmt := &ast.CreateTriggerStmt{Name: name, IfNotExists: ifNotExists}
	switch {
	case p.matchKeyword("BEFORE"):
		p.advance()
		stmt.Timing = "BEFORE"
	case p.matchKeyword("AFTER"):
		p.advance()
		stmt.Timing = "AFTER"
	case p.matchKeyword("INSTEAD"):
		p.advance()
		p.expectKeyword("OF")
		stmt.Timing = "INSTEAD OF"
	}
	switch {
	case p.matchKeyword("INSERT"):
		p.advance()
		stmt.Event = "INSERT"
	case p.matchKeyword("UPDATE"):
		p.advance()
		stmt.Event = "UPDATE"
		if p.matchKeyword("OF") {
			p.advance()
			for {
				col, _, _ := p.expectIdentifier()
				stmt.UpdateOf = append(stmt.UpdateOf, col)
				if !p.matchSymbol(",") {
					break
				}
				p.advance()
			}
		}
	case p.matchKeyword("DELETE"):
		p.advance()
		stmt.Event = "DELETE"
	default:
		p.errorf(p.current(), "expected INSERT, UPDATE, or DELETE in trigger definition")
	}
	p.expectKeyword("ON")
	stmt.Table = p.parseIdent()
	if p.matchKeyword("FOR") {
		p.advance()
		p.expectKeyword("EACH")
		p.expectKeyword("ROW")
	}
	if p.matchKeyword("WHEN") {
		p.advance()
		stmt.When = p.parseExpr()
	}
	p.expectKeyword("BEGIN")
	for !p.matchKeyword("END") && !p.isEOF() {
		if p.matchSymbol(";") {
			p.advance()
			continue
		}
		inner, ok := p.parseStatement()
		if ok && inner != nil {
			stmt.Body = append(stmt.Body, inner)
		}
		if !p.matchSymbol(";") && !p.matchKeyword("END") {
			p.advance()
		}
	}
	end, _ := p.expectKeyword("END")
	stmt.Sp = lexer.SpanBetween(start, end)
	return stmt, true
}

func (p *Parser) parsePragma() (ast.Stmt, bool) {
	start := p.advance() // PRAGMA
	name, _, _ := p.expectIdentifier()
	stmt := &ast.PragmaStmt{Name: name}
	if p.matchSymbol("=") {
		p.advance()
		stmt.Value = p.parseUnary()
	} else if p.matchSymbol("(") {
		p.advance()
		stmt.Value = p.parseExpr()
		p.expectSymbol(")")
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt, true
}

func (p *Parser) parseReindex() (ast.Stmt, bool) {
	start := p.advance() // REINDEX
	stmt := &ast.ReindexStmt{}
	if p.current().Kind == lexer.KindIdentifier {
		stmt.Name = p.parseIdent()
	}
	stmt.Sp = lexer.SpanBetween(start, p.previous())
	return stmt, true
}
