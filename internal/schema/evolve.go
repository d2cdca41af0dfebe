package schema

import (
	"fmt"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/typesystem"
)

// Severity mirrors the parser's leaf taxonomy so this package stays
// independent of internal/diagnostics' formatting concerns.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a schema-evolution error or warning, attached to a span.
type Diagnostic struct {
	Span     lexer.Span
	Message  string
	Severity Severity
}

// Evolver folds a sequence of migration files' DDL statements into a single
// current-state Catalog, strictly in file order (spec.md §5: the
// schema-building phase is never parallelized, unlike query analysis).
type Evolver struct {
	catalog      *Catalog
	diagnostics  []Diagnostic
	requireStrict bool
}

// NewEvolver returns an Evolver starting from an empty catalog.
func NewEvolver() *Evolver {
	return &Evolver{catalog: NewCatalog()}
}

// RequireStrictTables toggles the require_strict_tables pragma's effect:
// once set, every CREATE TABLE processed afterward must declare STRICT.
func (e *Evolver) RequireStrictTables(v bool) { e.requireStrict = v }

// Catalog returns the catalog as evolved so far.
func (e *Evolver) Catalog() *Catalog { return e.catalog }

// Diagnostics returns all diagnostics accumulated across every ApplyFile call.
func (e *Evolver) Diagnostics() []Diagnostic { return e.diagnostics }

// ApplyFile folds one file's statements into the catalog in order. Multiple
// files must be applied in numeric filename-prefix order by the caller (the
// driver package owns that ordering; this method just applies what it's
// given).
func (e *Evolver) ApplyFile(file *ast.File) {
	for _, stmt := range file.Statements {
		e.applyStmt(stmt)
	}
}

func (e *Evolver) errorf(sp lexer.Span, format string, args ...any) {
	e.diagnostics = append(e.diagnostics, Diagnostic{Span: sp, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (e *Evolver) warnf(sp lexer.Span, format string, args ...any) {
	e.diagnostics = append(e.diagnostics, Diagnostic{Span: sp, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

func (e *Evolver) applyStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		e.applyCreateTable(s)
	case *ast.AlterTableStmt:
		e.applyAlterTable(s)
	case *ast.DropTableStmt:
		e.applyDropTable(s)
	case *ast.CreateIndexStmt:
		e.applyCreateIndex(s)
	case *ast.DropIndexStmt:
		delete(e.catalog.Indexes, s.Name.Last())
	case *ast.CreateViewStmt:
		e.applyCreateView(s)
	case *ast.DropViewStmt:
		delete(e.catalog.Views, s.Name.Last())
	case *ast.CreateTriggerStmt:
		e.applyCreateTrigger(s)
	case *ast.DropTriggerStmt:
		delete(e.catalog.Triggers, s.Name.Last())
	case *ast.ReindexStmt:
		// No catalog effect: REINDEX rebuilds index data, it never changes shape.
	case *ast.PragmaStmt:
		e.applyPragma(s)
	default:
		// SELECT/INSERT/UPDATE/DELETE/QueryDef are query-analysis concerns,
		// not schema-evolution ones; the driver routes those to the analyzer
		// instead of to ApplyFile.
	}
}

func (e *Evolver) applyPragma(s *ast.PragmaStmt) {
	if s.Name != "require_strict_tables" {
		return
	}
	lit, ok := s.Value.(*ast.Literal)
	if !ok {
		e.errorf(s.Sp, "pragma require_strict_tables requires a literal boolean or integer value")
		return
	}
	switch lit.Text {
	case "1", "true", "TRUE", "on", "ON":
		e.requireStrict = true
	case "0", "false", "FALSE", "off", "OFF":
		e.requireStrict = false
	default:
		e.errorf(lit.Sp, "pragma require_strict_tables: unrecognized value %q", lit.Text)
	}
}

func (e *Evolver) applyCreateTable(s *ast.CreateTableStmt) {
	name := s.Name.Last()
	if _, exists := e.catalog.Tables[name]; exists {
		if s.IfNotExists {
			return
		}
		e.errorf(s.Sp, "table %q already exists", name)
		return
	}
	if e.requireStrict && !s.Strict && s.AsSelect == nil {
		e.errorf(s.Sp, "table %q must declare STRICT (require_strict_tables is set)", name)
	}
	t := &Table{Name: name, Strict: s.Strict, WithoutRowID: s.WithoutRowID, Span: s.Sp}

	if s.AsSelect != nil {
		// CREATE TABLE AS SELECT synthesizes its columns from the SELECT's
		// result shape; that shape is only known after type inference, so
		// this table is left column-less here and completed by the analyzer
		// once it resolves the AS SELECT query (see package analyzer).
		e.catalog.Tables[name] = t
		return
	}

	seen := make(map[string]bool)
	for _, cd := range s.Columns {
		if seen[cd.Name] {
			e.errorf(cd.Sp, "duplicate column %q in table %q", cd.Name, name)
			continue
		}
		seen[cd.Name] = true
		col := e.resolveColumn(name, cd, t.Strict)
		t.Columns = append(t.Columns, col)
		for _, c := range cd.Constraints {
			switch c.Kind {
			case ast.ConstraintPrimaryKey:
				t.PrimaryKey = append(t.PrimaryKey, cd.Name)
			case ast.ConstraintUnique:
				t.UniqueKeys = append(t.UniqueKeys, []string{cd.Name})
			case ast.ConstraintReferences:
				if c.References != nil {
					t.ForeignKeys = append(t.ForeignKeys, &ForeignKey{
						Columns:    []string{cd.Name},
						RefTable:   c.References.Table.Last(),
						RefColumns: c.References.Columns,
						Span:       c.References.Sp,
					})
				}
			}
		}
	}
	for _, tc := range s.TableConstraints {
		switch tc.Kind {
		case ast.TableConstraintPrimaryKey:
			t.PrimaryKey = append(t.PrimaryKey, tc.Columns...)
		case ast.TableConstraintUnique:
			t.UniqueKeys = append(t.UniqueKeys, tc.Columns)
		case ast.TableConstraintForeignKey:
			if tc.References != nil {
				t.ForeignKeys = append(t.ForeignKeys, &ForeignKey{
					Columns:    tc.Columns,
					RefTable:   tc.References.Table.Last(),
					RefColumns: tc.References.Columns,
					Span:       tc.Sp,
				})
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		if _, ok := e.catalog.Tables[fk.RefTable]; !ok {
			e.errorf(fk.Span, "foreign key references unknown table %q", fk.RefTable)
		}
	}
	e.catalog.Tables[name] = t
}

// resolveColumn turns a parsed ColumnDef into a normalized Column, deriving
// nullability from the presence of a NOT NULL constraint and validating any
// USING <adapter> tag against the column's declared storage type.
func (e *Evolver) resolveColumn(table string, cd ast.ColumnDef, strict bool) *Column {
	typeName := cd.Type.Name
	if strict {
		if _, ok := typesystem.StrictTypeNames[typeName]; !ok && typeName != "" {
			e.warnf(cd.Sp, "column %q.%q: %q is not one of the STRICT table type names", table, cd.Name, typeName)
		}
	}
	base := typesystem.Nominal(typeName)
	if cd.Type.Adapter != "" {
		adapter, ok := typesystem.LookupAdapter(cd.Type.Adapter)
		if !ok {
			e.errorf(cd.Sp, "column %q.%q: unknown adapter %q", table, cd.Name, cd.Type.Adapter)
		} else {
			if err := typesystem.ValidateAdapterStorage(cd.Type.Adapter, typeName); err != nil {
				e.errorf(cd.Sp, "column %q.%q: %s", table, cd.Name, err)
			}
			base = typesystem.NominalWithAdapter(typeName, &adapter)
		}
	}

	nullable := true
	generated, stored := false, false
	for _, c := range cd.Constraints {
		switch c.Kind {
		case ast.ConstraintNotNull, ast.ConstraintPrimaryKey:
			nullable = false
		case ast.ConstraintGenerated:
			generated = true
			stored = c.Stored
		}
	}
	typ := base
	if nullable {
		typ = typesystem.Opt(base)
	}
	return &Column{
		Name:      cd.Name,
		Type:      typ,
		Adapter:   cd.Type.Adapter,
		Generated: generated,
		Stored:    stored,
		Span:      cd.Sp,
	}
}

func (e *Evolver) applyAlterTable(s *ast.AlterTableStmt) {
	name := s.Table.Last()
	t, ok := e.catalog.Tables[name]
	if !ok {
		e.errorf(s.Sp, "ALTER TABLE: unknown table %q", name)
		return
	}
	switch s.Action {
	case ast.AlterRenameTable:
		delete(e.catalog.Tables, name)
		t.Name = s.NewName
		e.catalog.Tables[s.NewName] = t
	case ast.AlterRenameColumn:
		col := t.ColumnByName(s.OldName)
		if col == nil {
			e.errorf(s.Sp, "ALTER TABLE %q RENAME COLUMN: unknown column %q", name, s.OldName)
			return
		}
		col.Name = s.NewName
	case ast.AlterAddColumn:
		if s.AddColumn == nil {
			return
		}
		if t.ColumnByName(s.AddColumn.Name) != nil {
			e.errorf(s.Sp, "ALTER TABLE %q ADD COLUMN: %q already exists", name, s.AddColumn.Name)
			return
		}
		t.Columns = append(t.Columns, e.resolveColumn(name, *s.AddColumn, t.Strict))
	case ast.AlterDropColumn:
		idx := -1
		for i, c := range t.Columns {
			if c.Name == s.OldName {
				idx = i
				break
			}
		}
		if idx < 0 {
			e.errorf(s.Sp, "ALTER TABLE %q DROP COLUMN: unknown column %q", name, s.OldName)
			return
		}
		t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	}
}

func (e *Evolver) applyDropTable(s *ast.DropTableStmt) {
	name := s.Name.Last()
	if _, ok := e.catalog.Tables[name]; !ok {
		if s.IfExists {
			return
		}
		e.errorf(s.Sp, "DROP TABLE: unknown table %q", name)
		return
	}
	delete(e.catalog.Tables, name)
}

func (e *Evolver) applyCreateIndex(s *ast.CreateIndexStmt) {
	name := s.Name.Last()
	table := s.Table.Last()
	if _, ok := e.catalog.Tables[table]; !ok {
		e.errorf(s.Sp, "CREATE INDEX %q: unknown table %q", name, table)
		return
	}
	if _, exists := e.catalog.Indexes[name]; exists && !s.IfNotExists {
		e.errorf(s.Sp, "index %q already exists", name)
		return
	}
	idx := &Index{Name: name, Table: table, Unique: s.Unique, Span: s.Sp}
	for _, col := range s.Columns {
		if col.Name != "" {
			idx.Columns = append(idx.Columns, col.Name)
		}
	}
	e.catalog.Indexes[name] = idx
}

func (e *Evolver) applyCreateView(s *ast.CreateViewStmt) {
	name := s.Name.Last()
	if _, exists := e.catalog.Views[name]; exists {
		if s.IfNotExists {
			return
		}
		e.errorf(s.Sp, "view %q already exists", name)
		return
	}
	e.catalog.Views[name] = &View{Name: name, Columns: s.Columns, Select: s.Select, Span: s.Sp}
}

func (e *Evolver) applyCreateTrigger(s *ast.CreateTriggerStmt) {
	name := s.Name.Last()
	if _, exists := e.catalog.Triggers[name]; exists {
		if s.IfNotExists {
			return
		}
		e.errorf(s.Sp, "trigger %q already exists", name)
		return
	}
	table := s.Table.Last()
	if _, ok := e.catalog.Tables[table]; !ok {
		e.errorf(s.Sp, "CREATE TRIGGER %q: unknown table %q", name, table)
	}
	for _, bodyStmt := range s.Body {
		e.checkTriggerBodyTables(name, bodyStmt)
	}
	e.catalog.Triggers[name] = &Trigger{Name: name, Table: table, Timing: s.Timing, Event: s.Event, Span: s.Sp}
}

// checkTriggerBodyTables validates only that tables a trigger body
// statement references exist; per spec.md's non-goals the body's
// expressions are not otherwise type-checked.
func (e *Evolver) checkTriggerBodyTables(trigger string, stmt ast.Stmt) {
	var table *ast.Ident
	switch s := stmt.(type) {
	case *ast.InsertStmt:
		table = s.Table
	case *ast.UpdateStmt:
		table = s.Table
	case *ast.DeleteStmt:
		table = s.Table
	default:
		return
	}
	if table == nil {
		return
	}
	if _, ok := e.catalog.Tables[table.Last()]; !ok {
		e.errorf(stmt.Span(), "trigger %q body references unknown table %q", trigger, table.Last())
	}
}
