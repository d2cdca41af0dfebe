package analyzer

import (
	"fmt"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/typesystem"
)

// tableEnvironment builds a single-table Environment for INSERT/UPDATE/
// DELETE target resolution, without going through the FROM-clause join
// logic buildEnvironment implements for SELECT.
func (a *Analyzer) tableEnvironment(name *ast.Ident, diags *[]Diagnostic) *Environment {
	env := newEnvironment()
	tbl, ok := a.Catalog.Tables[name.Last()]
	if !ok {
		a.errorf(diags, name.Sp, "unknown table %q", name.Last())
		return env
	}
	cols := make([]scopeColumn, 0, len(tbl.Columns))
	for _, c := range tbl.Columns {
		cols = append(cols, scopeColumn{owner: tbl.Name, name: c.Name, typ: c.Type})
	}
	env.addTable(tbl.Name, cols)
	return env
}

func (a *Analyzer) analyzeInsert(s *ast.InsertStmt, explicit ast.QueryCommand) Result {
	var diags []Diagnostic
	pc := newParamCollector(&diags)
	tbl, ok := a.Catalog.Tables[s.Table.Last()]
	if !ok {
		a.errorf(&diags, s.Table.Sp, "unknown table %q", s.Table.Last())
		return Result{Diagnostics: diags}
	}
	targetCols := s.Columns
	if len(targetCols) == 0 {
		for _, c := range tbl.Columns {
			targetCols = append(targetCols, c.Name)
		}
	}
	colType := func(name string) (typesystem.Type, error) {
		c := tbl.ColumnByName(name)
		if c == nil {
			return typesystem.ErrorType, fmt.Errorf("unknown column %q on table %q", name, tbl.Name)
		}
		return c.Type, nil
	}

	u := typesystem.NewUnifier()
	for _, row := range s.Values {
		if len(row) != len(targetCols) {
			a.errorf(&diags, s.Sp, "INSERT row has %d values, want %d columns", len(row), len(targetCols))
			continue
		}
		for i, expr := range row {
			ct, err := colType(targetCols[i])
			if err != nil {
				a.errorf(&diags, expr.Span(), "%s", err)
				continue
			}
			vt, err := a.inferExpr(expr, nil, u, pc)
			if err != nil {
				a.errorf(&diags, expr.Span(), "%s", err)
				continue
			}
			if err := u.Unify(ct, vt); err != nil {
				a.errorf(&diags, expr.Span(), "column %q: %s", targetCols[i], err)
			}
		}
	}
	if s.Select != nil {
		sub := a.AnalyzeSelect(s.Select)
		diags = append(diags, sub.Diagnostics...)
		for _, p := range sub.Params {
			mergeParamTypeOnly(pc, p, u)
		}
		if len(sub.Columns) != len(targetCols) {
			a.errorf(&diags, s.Sp, "INSERT ... SELECT returns %d columns, want %d", len(sub.Columns), len(targetCols))
		} else {
			for i, col := range sub.Columns {
				ct, err := colType(targetCols[i])
				if err != nil {
					a.errorf(&diags, s.Sp, "%s", err)
					continue
				}
				if err := u.Unify(ct, col.Type); err != nil {
					a.errorf(&diags, s.Sp, "column %q: %s", targetCols[i], err)
				}
			}
		}
	}

	env := a.tableEnvironment(s.Table, &diags)
	if s.Conflict != nil {
		a.analyzeOnConflict(s.Conflict, env, u, pc, &diags)
	}

	cols := a.analyzeReturning(s.Returning, env, u, pc, &diags)
	cardinality := CardinalityExec
	if cols != nil {
		cardinality = CardinalityMany
		if s.Select == nil && len(s.Values) <= 1 {
			cardinality = CardinalityOne
		}
	}
	return Result{
		Columns:     cols,
		Params:      pc.finish(),
		Cardinality: reconcileCardinality(cardinality, explicit, s.Sp, &diags),
		Diagnostics: diags,
	}
}

func (a *Analyzer) analyzeOnConflict(oc *ast.OnConflictClause, env *Environment, u *typesystem.Unifier, pc *paramCollector, diags *[]Diagnostic) {
	if oc.TargetWhere != nil {
		if _, err := a.inferExpr(oc.TargetWhere, env, u, pc); err != nil {
			a.errorf(diags, oc.TargetWhere.Span(), "%s", err)
		}
	}
	for _, assign := range oc.Assignments {
		a.analyzeAssignment(assign, env, u, pc, diags)
	}
	if oc.UpdateWhere != nil {
		if _, err := a.inferExpr(oc.UpdateWhere, env, u, pc); err != nil {
			a.errorf(diags, oc.UpdateWhere.Span(), "%s", err)
		}
	}
}

func (a *Analyzer) analyzeAssignment(assign ast.Assignment, env *Environment, u *typesystem.Unifier, pc *paramCollector, diags *[]Diagnostic) {
	if len(assign.Columns) != len(assign.Values) {
		a.errorf(diags, assign.Sp, "SET has %d column(s) but %d value(s)", len(assign.Columns), len(assign.Values))
		return
	}
	for i, colName := range assign.Columns {
		ct, err := env.lookupBare(colName)
		if err != nil {
			a.errorf(diags, assign.Sp, "%s", err)
			continue
		}
		vt, err := a.inferExpr(assign.Values[i], env, u, pc)
		if err != nil {
			a.errorf(diags, assign.Values[i].Span(), "%s", err)
			continue
		}
		if err := u.Unify(ct, vt); err != nil {
			a.errorf(diags, assign.Values[i].Span(), "SET %q: %s", colName, err)
		}
	}
}

func (a *Analyzer) analyzeReturning(returning []ast.ResultColumn, env *Environment, u *typesystem.Unifier, pc *paramCollector, diags *[]Diagnostic) []ResultColumn {
	if len(returning) == 0 {
		return nil
	}
	var out []ResultColumn
	for _, col := range returning {
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

func (a *Analyzer) analyzeUpdate(s *ast.UpdateStmt, explicit ast.QueryCommand) Result {
	var diags []Diagnostic
	pc := newParamCollector(&diags)
	env := a.tableEnvironment(s.Table, &diags)
	if s.From != nil {
		a.collectTableExpr(s.From, env, &diags)
	}
	u := typesystem.NewUnifier()
	for _, assign := range s.Assignments {
		a.analyzeAssignment(assign, env, u, pc, &diags)
	}
	if s.Where != nil {
		if t, err := a.inferExpr(s.Where, env, u, pc); err != nil {
			a.errorf(&diags, s.Where.Span(), "%s", err)
		} else if !isBooleanish(t) {
			a.errorf(&diags, s.Where.Span(), "WHERE condition must be boolean-valued, got %s", t)
		}
	}
	cols := a.analyzeReturning(s.Returning, env, u, pc, &diags)
	cardinality := CardinalityExec
	if cols != nil {
		cardinality = CardinalityMany
		if tbl, ok := a.Catalog.Tables[s.Table.Last()]; ok && wherePinsPrimaryKeyForTable(tbl.PrimaryKey, s.Where) {
			cardinality = CardinalityOne
		}
	}
	return Result{
		Columns:     cols,
		Params:      pc.finish(),
		Cardinality: reconcileCardinality(cardinality, explicit, s.Sp, &diags),
		Diagnostics: diags,
	}
}

func (a *Analyzer) analyzeDelete(s *ast.DeleteStmt, explicit ast.QueryCommand) Result {
	var diags []Diagnostic
	pc := newParamCollector(&diags)
	env := a.tableEnvironment(s.Table, &diags)
	u := typesystem.NewUnifier()
	if s.Where != nil {
		if t, err := a.inferExpr(s.Where, env, u, pc); err != nil {
			a.errorf(&diags, s.Where.Span(), "%s", err)
		} else if !isBooleanish(t) {
			a.errorf(&diags, s.Where.Span(), "WHERE condition must be boolean-valued, got %s", t)
		}
	}
	cols := a.analyzeReturning(s.Returning, env, u, pc, &diags)
	cardinality := CardinalityExec
	if cols != nil {
		cardinality = CardinalityMany
		if tbl, ok := a.Catalog.Tables[s.Table.Last()]; ok && wherePinsPrimaryKeyForTable(tbl.PrimaryKey, s.Where) {
			cardinality = CardinalityOne
		}
	}
	return Result{
		Columns:     cols,
		Params:      pc.finish(),
		Cardinality: reconcileCardinality(cardinality, explicit, s.Sp, &diags),
		Diagnostics: diags,
	}
}
