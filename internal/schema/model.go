// Package schema builds and evolves a normalized catalog of tables, views,
// indexes, and triggers by folding migration files' DDL statements in
// filename order, per the left-fold evolution model.
package schema

import (
	"cmp"
	"slices"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/typesystem"
)

// Catalog is the accumulated, current-state schema after folding every
// migration file in order. It is read-only once handed to query analysis:
// each analyzer worker holds a `*Catalog` reference and never mutates it.
type Catalog struct {
	Tables   map[string]*Table
	Views    map[string]*View
	Indexes  map[string]*Index
	Triggers map[string]*Trigger
}

// NewCatalog returns an empty catalog with initialized maps.
func NewCatalog() *Catalog {
	return &Catalog{
		Tables:   make(map[string]*Table),
		Views:    make(map[string]*View),
		Indexes:  make(map[string]*Index),
		Triggers: make(map[string]*Trigger),
	}
}

// Clone returns a deep-enough copy of the catalog for a schema-evolution
// step to mutate without disturbing the snapshot an in-flight query-analysis
// worker may still be holding.
func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	for k, v := range c.Tables {
		t := *v
		t.Columns = append([]*Column(nil), v.Columns...)
		out.Tables[k] = &t
	}
	for k, v := range c.Views {
		vv := *v
		out.Views[k] = &vv
	}
	for k, v := range c.Indexes {
		iv := *v
		out.Indexes[k] = &iv
	}
	for k, v := range c.Triggers {
		tv := *v
		out.Triggers[k] = &tv
	}
	return out
}

// Table is a normalized table definition, generalizing the parser's
// CreateTableStmt into the shape the type-checker and IR assembler consume:
// every column carries its resolved type, not just its source TypeName.
type Table struct {
	Name         string
	Columns      []*Column
	PrimaryKey   []string
	UniqueKeys   [][]string
	ForeignKeys  []*ForeignKey
	Strict       bool
	WithoutRowID bool
	Span         lexer.Span
}

// Column describes one column's resolved type, nullability, and optional
// adapter tag.
type Column struct {
	Name      string
	Type      typesystem.Type // Optional(T) when nullable, else bare Nominal(T)
	Adapter   string          // set when `USING <adapter>` tagged the column
	Generated bool
	Stored    bool
	Span      lexer.Span
}

// ForeignKey records a table-level or inline REFERENCES relationship,
// validated to point at a table that exists at the time it was declared.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	Span       lexer.Span
}

// View is a CREATE VIEW definition; its SELECT is re-analyzed lazily by the
// analyzer the first time a query references it, since views may be defined
// before all of their dependency tables exist within the same fold step.
type View struct {
	Name    string
	Columns []string
	Select  *ast.SelectStmt
	Span    lexer.Span
}

// Index is a CREATE INDEX definition.
type Index struct {
	Name    string
	Table   string
	Unique  bool
	Columns []string
	Span    lexer.Span
}

// Trigger is a CREATE TRIGGER definition. Per spec.md's non-goals, trigger
// bodies are not deeply type-checked; evolution only verifies the trigger's
// target table (and any tables its body statements reference) exist.
type Trigger struct {
	Name   string
	Table  string
	Timing string
	Event  string
	Span   lexer.Span
}

// SortTableNames returns the catalog's table names in deterministic order,
// used anywhere diagnostics or IR output must not depend on map iteration
// order.
func (c *Catalog) SortTableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for n := range c.Tables {
		names = append(names, n)
	}
	slices.SortFunc(names, cmp.Compare[string])
	return names
}

// ColumnByName returns a table's column by name, or nil.
func (t *Table) ColumnByName(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}
