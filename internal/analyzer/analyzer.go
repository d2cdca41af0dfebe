package analyzer

import (
	"fmt"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/schema"
	"github.com/sqlweave/sqlweave/internal/typesystem"
)

// Analyzer validates and resolves queries against a schema catalog. A
// single Analyzer is safe to share read-only across the concurrent
// per-file workers spec.md §5 describes, since it never mutates Catalog.
type Analyzer struct {
	Catalog  *schema.Catalog
	Builtins *typesystem.Builtins
}

// New returns an Analyzer bound to catalog, with the standard builtin
// operator/function catalog.
func New(catalog *schema.Catalog) *Analyzer {
	return &Analyzer{Catalog: catalog, Builtins: typesystem.NewBuiltins()}
}

// Cardinality classifies how many rows a query statement returns, per
// spec.md §4.6.
type Cardinality int

const (
	CardinalityExec Cardinality = iota
	CardinalityExecResult
	CardinalityOne
	CardinalityMany
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityExec:
		return "exec"
	case CardinalityExecResult:
		return "execresult"
	case CardinalityOne:
		return "one"
	case CardinalityMany:
		return "many"
	default:
		return "unknown"
	}
}

// ResultColumn is one column of a query's inferred output row. SourceTable
// and NullableAsWhole are set only for columns produced by a `table.*`
// expansion — internal/ir groups consecutive same-SourceTable columns into
// one Chunk per spec.md §4.7; everything else forms "free" chunks.
type ResultColumn struct {
	Name            string
	Type            typesystem.Type
	SourceTable     string
	NullableAsWhole bool
}

// Param is one deterministically-named input parameter, with its
// inference-unified type across every occurrence in the statement.
type Param struct {
	Name  string
	Style ast.ParamStyle
	Type  typesystem.Type
}

// Result is everything the IR assembler needs to describe one query.
type Result struct {
	Columns     []ResultColumn
	Params      []Param
	Cardinality Cardinality
	Diagnostics []Diagnostic
}

func (a *Analyzer) errorf(diags *[]Diagnostic, sp lexer.Span, format string, args ...any) {
	*diags = append(*diags, Diagnostic{Span: sp, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

// AnalyzeStatement dispatches to the statement-specific rule set and
// returns the fully-resolved Result, including cardinality and parameter
// naming.
func (a *Analyzer) AnalyzeStatement(stmt ast.Stmt, explicitCommand ast.QueryCommand) Result {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		res := a.AnalyzeSelect(s)
		res.Cardinality = a.selectCardinality(s, explicitCommand, &res.Diagnostics)
		return res
	case *ast.InsertStmt:
		return a.analyzeInsert(s, explicitCommand)
	case *ast.UpdateStmt:
		return a.analyzeUpdate(s, explicitCommand)
	case *ast.DeleteStmt:
		return a.analyzeDelete(s, explicitCommand)
	default:
		return Result{Diagnostics: []Diagnostic{{Span: stmt.Span(), Message: "unsupported statement in query definition", Severity: SeverityError}}}
	}
}

// selectCardinality implements spec.md §4.6: a SELECT with LIMIT 1 (a
// literal `1`) or whose WHERE pins every primary-key column of its sole FROM
// table is CardinalityOne; everything else is CardinalityMany. An explicit
// command tag overrides inference; a `:one` tag on a query inferred to return
// many rows is reported as a warning rather than silently accepted.
func (a *Analyzer) selectCardinality(s *ast.SelectStmt, explicit ast.QueryCommand, diags *[]Diagnostic) Cardinality {
	inferred := CardinalityMany
	if lit, ok := s.Limit.(*ast.Literal); ok && lit.Kind == ast.LiteralInteger && lit.Text == "1" {
		inferred = CardinalityOne
	} else if a.wherePinsPrimaryKey(s) {
		inferred = CardinalityOne
	}
	return reconcileCardinality(inferred, explicit, s.Sp, diags)
}

// wherePinsPrimaryKey implements the second clause of spec.md §4.6: a
// single-table query whose WHERE is an AND-only conjunction of `col = expr`
// equalities covering every primary-key column returns at most one row.
func (a *Analyzer) wherePinsPrimaryKey(s *ast.SelectStmt) bool {
	if len(s.Cores) != 1 {
		return false
	}
	core := s.Cores[0]
	tn, ok := core.From.(*ast.TableName)
	if !ok || core.Where == nil {
		return false
	}
	tbl, ok := a.Catalog.Tables[tn.Name.Last()]
	if !ok {
		return false
	}
	return wherePinsPrimaryKeyForTable(tbl.PrimaryKey, core.Where)
}

// wherePinsPrimaryKeyForTable is the table-scoped core of the same rule,
// shared with UPDATE/DELETE ... RETURNING, which inherit SELECT's single/many
// distinction applied to their (single) target table per spec.md §4.6.
func wherePinsPrimaryKeyForTable(primaryKey []string, where ast.Expr) bool {
	if len(primaryKey) == 0 || where == nil {
		return false
	}
	equated := make(map[string]bool)
	if !collectEqualityConjuncts(where, equated) {
		return false
	}
	for _, pk := range primaryKey {
		if !equated[pk] {
			return false
		}
	}
	return true
}

// collectEqualityConjuncts walks an AND-only conjunction tree, recording the
// bare column name of every top-level `col = expr` (or `expr = col`)
// equality into equated. Returns false if any conjunct isn't such an
// equality, which means the WHERE can't be proven to pin a row by key.
func collectEqualityConjuncts(e ast.Expr, equated map[string]bool) bool {
	if b, ok := e.(*ast.BinaryExpr); ok {
		switch b.Op {
		case "AND":
			return collectEqualityConjuncts(b.Left, equated) && collectEqualityConjuncts(b.Right, equated)
		case "=":
			if id, ok := b.Left.(*ast.Ident); ok {
				equated[id.Last()] = true
				return true
			}
			if id, ok := b.Right.(*ast.Ident); ok {
				equated[id.Last()] = true
				return true
			}
		}
	}
	return false
}

func reconcileCardinality(inferred Cardinality, explicit ast.QueryCommand, sp lexer.Span, diags *[]Diagnostic) Cardinality {
	switch explicit {
	case ast.CommandUnspecified:
		return inferred
	case ast.CommandOne:
		if inferred != CardinalityOne {
			*diags = append(*diags, Diagnostic{Span: sp, Message: "query tagged :one but its shape suggests it may return more than one row", Severity: SeverityWarning})
		}
		return CardinalityOne
	case ast.CommandMany:
		return CardinalityMany
	case ast.CommandExec:
		return CardinalityExec
	case ast.CommandExecResult:
		return CardinalityExecResult
	default:
		return inferred
	}
}

// AnalyzeSelect infers a SELECT's output row shape and parameter list. It is
// exported because FROM-clause subqueries and views recurse into it via
// buildEnvironment.
func (a *Analyzer) AnalyzeSelect(s *ast.SelectStmt) Result {
	return a.analyzeSelectCorrelated(s, nil)
}

// analyzeSelectCorrelated is AnalyzeSelect's implementation, taking the
// enclosing statement's Environment when s is a correlated subquery (WHERE
// EXISTS/IN/scalar subquery) so bare/qualified references can resolve
// against the outer query, per standard SQL scoping rules.
func (a *Analyzer) analyzeSelectCorrelated(s *ast.SelectStmt, parent *Environment) Result {
	var diags []Diagnostic
	pc := newParamCollector(&diags)
	if len(s.Cores) == 0 {
		return Result{Diagnostics: diags}
	}
	first := a.analyzeSelectCore(s.Cores[0], parent, pc, &diags)
	for i := 1; i < len(s.Cores); i++ {
		next := a.analyzeSelectCore(s.Cores[i], parent, pc, &diags)
		if len(next) != len(first) {
			a.errorf(&diags, s.Sp, "set-operation arms return %d and %d columns, which must match", len(first), len(next))
			continue
		}
		u := typesystem.NewUnifier()
		for i := range first {
			if err := u.Unify(first[i].Type, next[i].Type); err != nil {
				a.errorf(&diags, s.Sp, "set-operation column %d: %s", i+1, err)
				continue
			}
			first[i].Type = typesystem.Widen(first[i].Type, next[i].Type)
		}
	}
	if s.OrderBy != nil || s.Limit != nil || s.Offset != nil {
		env, envDiags := a.buildEnvironment(s.Cores[len(s.Cores)-1].From, parent)
		diags = append(diags, envDiags...)
		u := typesystem.NewUnifier()
		for _, item := range s.OrderBy {
			if _, err := a.inferExpr(item.Expr, env, u, pc); err != nil {
				a.errorf(&diags, item.Expr.Span(), "%s", err)
			}
		}
		if s.Limit != nil {
			if _, err := a.inferExpr(s.Limit, env, u, pc); err != nil {
				a.errorf(&diags, s.Limit.Span(), "%s", err)
			}
		}
		if s.Offset != nil {
			if _, err := a.inferExpr(s.Offset, env, u, pc); err != nil {
				a.errorf(&diags, s.Offset.Span(), "%s", err)
			}
		}
	}
	return Result{Columns: first, Params: pc.finish(), Diagnostics: diags}
}

func (a *Analyzer) analyzeSelectCore(core ast.SelectCore, parent *Environment, pc *paramCollector, diags *[]Diagnostic) []ResultColumn {
	if core.Values != nil {
		return a.analyzeValuesCore(core, pc, diags)
	}
	env, envDiags := a.buildEnvironment(core.From, parent)
	*diags = append(*diags, envDiags...)
	u := typesystem.NewUnifier()

	if core.Where != nil {
		if t, err := a.inferExpr(core.Where, env, u, pc); err != nil {
			a.errorf(diags, core.Where.Span(), "%s", err)
		} else if !isBooleanish(t) {
			a.errorf(diags, core.Where.Span(), "WHERE condition must be boolean-valued, got %s", t)
		}
	}
	for _, g := range core.GroupBy {
		if _, err := a.inferExpr(g, env, u, pc); err != nil {
			a.errorf(diags, g.Span(), "%s", err)
		}
	}
	if core.Having != nil {
		if _, err := a.inferExpr(core.Having, env, u, pc); err != nil {
			a.errorf(diags, core.Having.Span(), "%s", err)
		}
	}
	for _, w := range core.Windows {
		for _, p := range w.Spec.PartitionBy {
			if _, err := a.inferExpr(p, env, u, pc); err != nil {
				a.errorf(diags, p.Span(), "%s", err)
			}
		}
	}

	var out []ResultColumn
	for _, col := range core.Columns {
		if col.Star != nil {
			out = append(out, a.expandStar(col.Star, env, diags)...)
			continue
		}
		t, err := a.inferExpr(col.Expr, env, u, pc)
		if err != nil {
			a.errorf(diags, col.Expr.Span(), "%s", err)
			t = typesystem.ErrorType
		}
		name := col.Alias
		if name == "" {
			name = resultColumnName(col.Expr)
		}
		out = append(out, ResultColumn{Name: name, Type: t})
	}
	return out
}

func (a *Analyzer) analyzeValuesCore(core ast.SelectCore, pc *paramCollector, diags *[]Diagnostic) []ResultColumn {
	if len(core.Values) == 0 {
		return nil
	}
	u := typesystem.NewUnifier()
	width := len(core.Values[0])
	types := make([]typesystem.Type, width)
	for i, row := range core.Values {
		if len(row) != width {
			a.errorf(diags, core.Sp, "VALUES row %d has %d columns, want %d", i+1, len(row), width)
			continue
		}
		for j, e := range row {
			t, err := a.inferExpr(e, nil, u, pc)
			if err != nil {
				a.errorf(diags, e.Span(), "%s", err)
				continue
			}
			if i == 0 {
				types[j] = t
			} else if err := u.Unify(types[j], t); err != nil {
				a.errorf(diags, e.Span(), "VALUES column %d: %s", j+1, err)
			} else {
				types[j] = typesystem.Widen(types[j], t)
			}
		}
	}
	out := make([]ResultColumn, width)
	for i, t := range types {
		out[i] = ResultColumn{Name: fmt.Sprintf("column%d", i+1), Type: t}
	}
	return out
}

func (a *Analyzer) expandStar(star *ast.StarExpr, env *Environment, diags *[]Diagnostic) []ResultColumn {
	var out []ResultColumn
	if len(star.Qualifier) > 0 {
		owner := star.Qualifier[0]
		cols, ok := env.tables[owner]
		if !ok {
			a.errorf(diags, star.Sp, "unknown table or alias %q in %s.*", owner, owner)
			return nil
		}
		nullable := env.nullable[owner]
		for _, c := range cols {
			out = append(out, ResultColumn{Name: c.name, Type: c.typ, SourceTable: c.table, NullableAsWhole: nullable})
		}
		return out
	}
	for _, alias := range env.order {
		nullable := env.nullable[alias]
		for _, c := range env.tables[alias] {
			out = append(out, ResultColumn{Name: c.name, Type: c.typ, SourceTable: c.table, NullableAsWhole: nullable})
		}
	}
	return out
}

func resultColumnName(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Last()
	case *ast.CallExpr:
		return v.Name
	default:
		return "column1"
	}
}

func isBooleanish(t typesystem.Type) bool {
	if t.IsError() {
		return true
	}
	u := t.Underlying()
	return u.Kind == typesystem.KindNominal && (u.Name == typesystem.Integer || u.Name == typesystem.Any)
}
