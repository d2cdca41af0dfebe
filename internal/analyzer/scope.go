// Package analyzer resolves a parsed query against a schema catalog: it
// builds the per-statement Environment (spec.md §4.4), infers expression
// types via internal/typesystem unification, applies the statement-level
// type-checking rules for SELECT/INSERT/UPDATE/DELETE (§4.5), determines
// result cardinality (§4.6), and assigns deterministic parameter names.
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/schema"
	"github.com/sqlweave/sqlweave/internal/typesystem"
)

// Severity mirrors the rest of the pipeline's leaf taxonomy.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is an analysis-time error or warning.
type Diagnostic struct {
	Span     lexer.Span
	Message  string
	Severity Severity
}

// scopeColumn is one column visible at some point in a FROM clause,
// annotated with the table alias (or name) that introduced it so ambiguous
// bare references can be reported precisely.
type scopeColumn struct {
	owner string
	name  string
	typ   typesystem.Type
	// table is the real base-table name this column came from, empty when
	// the owner is a subquery/view/CTE alias rather than a base table.
	// internal/ir uses it to bind a `table.*` expansion's chunk to a
	// QualifiedName, per spec.md §4.7.
	table string
}

// Environment is the name-resolution context built from a statement's FROM
// clause (and CTEs): an ordered list of table-scoped column sets, plus a
// flattened lookup from bare column name to the column(s) that provide it.
//
// Duplicate column names across joined tables are legal until a bare
// (unqualified) reference to one is actually made — at that point the
// scheme attached to the name is `ambiguous` and resolving it is a type
// error unless the reference is qualified.
type Environment struct {
	tables   map[string][]scopeColumn // keyed by alias/table name
	order    []string
	byName   map[string][]scopeColumn // bare name -> every candidate column
	nullable map[string]bool          // alias -> nulled out by an outer join
	// parent is the enclosing statement's Environment, set only when this
	// Environment belongs to a correlated subquery (WHERE EXISTS/IN/scalar
	// subquery); lookups fall back to it so the subquery can reference the
	// outer query's columns.
	parent *Environment
}

func newEnvironment() *Environment {
	return &Environment{tables: make(map[string][]scopeColumn), byName: make(map[string][]scopeColumn), nullable: make(map[string]bool)}
}

// markNullable flags every alias in aliases as the nulled-out side of an
// outer join, so expandStar can set Chunk.nullable_as_whole (spec.md §4.7).
func (e *Environment) markNullable(aliases []string) {
	for _, a := range aliases {
		e.nullable[a] = true
	}
}

func (e *Environment) addTable(alias string, cols []scopeColumn) {
	if _, exists := e.tables[alias]; !exists {
		e.order = append(e.order, alias)
	}
	e.tables[alias] = append(e.tables[alias], cols...)
	for _, c := range cols {
		e.byName[c.name] = append(e.byName[c.name], c)
	}
}

// lookupQualified resolves `owner.name`, falling back to the enclosing
// query's Environment for a correlated subquery.
func (e *Environment) lookupQualified(owner, name string) (typesystem.Type, error) {
	cols, ok := e.tables[owner]
	if !ok {
		if e.parent != nil {
			return e.parent.lookupQualified(owner, name)
		}
		return typesystem.ErrorType, fmt.Errorf("unknown table or alias %q", owner)
	}
	for _, c := range cols {
		if c.name == name {
			return c.typ, nil
		}
	}
	return typesystem.ErrorType, fmt.Errorf("column %q not found on %q", name, owner)
}

// lookupBare resolves an unqualified column reference, reporting ambiguity
// when more than one table in scope provides a column by that name. Falls
// back to the enclosing query's Environment only when this scope has no
// candidate at all, per normal SQL correlated-subquery scoping.
func (e *Environment) lookupBare(name string) (typesystem.Type, error) {
	cols, ok := e.byName[name]
	if !ok || len(cols) == 0 {
		if e.parent != nil {
			return e.parent.lookupBare(name)
		}
		return typesystem.ErrorType, fmt.Errorf("unknown column %q", name)
	}
	if len(cols) > 1 {
		owners := make([]string, 0, len(cols))
		for _, c := range cols {
			owners = append(owners, c.owner)
		}
		sort.Strings(owners)
		return typesystem.ErrorType, fmt.Errorf("ambiguous column %q (present on %s)", name, strings.Join(owners, ", "))
	}
	return cols[0].typ, nil
}

// buildEnvironment walks a FROM-clause TableExpr, resolving base table
// references against the catalog and flattening join trees left to right.
// Subqueries contribute their own inferred output row as a scope entry.
// parent is non-nil only when this Environment belongs to a correlated
// subquery, so bare/qualified lookups can fall back to the outer query.
func (a *Analyzer) buildEnvironment(from ast.TableExpr, parent *Environment) (*Environment, []Diagnostic) {
	env := newEnvironment()
	env.parent = parent
	var diags []Diagnostic
	if from == nil {
		return env, diags
	}
	a.collectTableExpr(from, env, &diags)
	return env, diags
}

// collectTableExpr resolves te into env and returns the aliases it
// introduced, so JoinExpr can mark the nulled-out side of an outer join.
func (a *Analyzer) collectTableExpr(te ast.TableExpr, env *Environment, diags *[]Diagnostic) []string {
	switch t := te.(type) {
	case *ast.TableName:
		return a.collectBaseTable(t, env, diags)
	case *ast.SubqueryTable:
		sub := a.AnalyzeSelect(t.Select)
		*diags = append(*diags, sub.Diagnostics...)
		alias := t.Alias
		if alias == "" {
			alias = "<subquery>"
		}
		cols := make([]scopeColumn, 0, len(sub.Columns))
		for _, c := range sub.Columns {
			cols = append(cols, scopeColumn{owner: alias, name: c.Name, typ: c.Type})
		}
		env.addTable(alias, cols)
		return []string{alias}
	case *ast.ParenTable:
		var all []string
		for _, item := range t.Items {
			all = append(all, a.collectTableExpr(item, env, diags)...)
		}
		return all
	case *ast.JoinExpr:
		left := a.collectTableExpr(t.Left, env, diags)
		right := a.collectTableExpr(t.Right, env, diags)
		if t.On != nil {
			u := typesystem.NewUnifier()
			if _, err := a.inferExpr(t.On, env, u, nil); err != nil {
				*diags = append(*diags, Diagnostic{Span: t.On.Span(), Message: err.Error(), Severity: SeverityError})
			}
		}
		switch t.Kind {
		case ast.JoinLeft, ast.JoinLeftOuter:
			env.markNullable(right)
		case ast.JoinRight, ast.JoinRightOuter:
			env.markNullable(left)
		case ast.JoinFull, ast.JoinFullOuter:
			env.markNullable(left)
			env.markNullable(right)
		}
		return append(left, right...)
	}
	return nil
}

func (a *Analyzer) collectBaseTable(t *ast.TableName, env *Environment, diags *[]Diagnostic) []string {
	name := t.Name.Last()
	tbl, ok := a.Catalog.Tables[name]
	if !ok {
		if v, okv := a.Catalog.Views[name]; okv {
			return a.collectView(v, t, env, diags)
		}
		*diags = append(*diags, Diagnostic{Span: t.Sp, Message: fmt.Sprintf("unknown table %q", name), Severity: SeverityError})
		return nil
	}
	alias := t.Alias
	if alias == "" {
		alias = name
	}
	cols := make([]scopeColumn, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		cols = append(cols, scopeColumn{owner: alias, name: c.Name, typ: c.Type, table: tbl.Name})
	}
	env.addTable(alias, cols)
	return []string{alias}
}

func (a *Analyzer) collectView(v *schema.View, t *ast.TableName, env *Environment, diags *[]Diagnostic) []string {
	sub := a.AnalyzeSelect(v.Select)
	*diags = append(*diags, sub.Diagnostics...)
	alias := t.Alias
	if alias == "" {
		alias = v.Name
	}
	cols := make([]scopeColumn, 0, len(sub.Columns))
	for _, c := range sub.Columns {
		cols = append(cols, scopeColumn{owner: alias, name: c.Name, typ: c.Type})
	}
	env.addTable(alias, cols)
	return []string{alias}
}
