package analyzer

import (
	"fmt"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/typesystem"
)

// paramCollector assigns deterministic names to bind parameters as they're
// encountered, left to right, and unifies the type of every occurrence of
// the same parameter. Anonymous (`?`) and explicit positional (`?N`)
// parameters share one "argN" namespace keyed by their 1-based position;
// named parameters (`:name`/`@name`/`$name`) are keyed by their literal
// name, stripped of its sigil.
type paramCollector struct {
	order   []string
	byName  map[string]*Param
	nextPos int
	diags   *[]Diagnostic
}

func newParamCollector(diags *[]Diagnostic) *paramCollector {
	return &paramCollector{byName: make(map[string]*Param), nextPos: 1, diags: diags}
}

func (pc *paramCollector) resolve(p *ast.Param, u *typesystem.Unifier) *Param {
	var key string
	switch p.Style {
	case ast.ParamNamed:
		key = p.Name
	case ast.ParamPositional:
		key = fmt.Sprintf("arg%d", p.Index)
	default:
		key = fmt.Sprintf("arg%d", pc.nextPos)
		pc.nextPos++
	}
	existing, ok := pc.byName[key]
	if !ok {
		existing = &Param{Name: key, Style: p.Style, Type: u.Fresh()}
		pc.byName[key] = existing
		pc.order = append(pc.order, key)
	}
	return existing
}

func (pc *paramCollector) finish() []Param {
	out := make([]Param, 0, len(pc.order))
	for _, name := range pc.order {
		out = append(out, *pc.byName[name])
	}
	return out
}

// inferExpr infers an expression's type, recording every bind-parameter
// occurrence into pc (nil when analyzing a context with no parameters, such
// as a view body re-analyzed purely for its output shape) and resolving
// column references against env (nil for a scalar context with no FROM
// clause, e.g. a VALUES row).
func (a *Analyzer) inferExpr(e ast.Expr, env *Environment, u *typesystem.Unifier, pc *paramCollector) (typesystem.Type, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return literalType(n), nil
	case *ast.Param:
		if pc == nil {
			return u.Fresh(), nil
		}
		return pc.resolve(n, u).Type, nil
	case *ast.Ident:
		return a.inferIdent(n, env)
	case *ast.StarExpr:
		return typesystem.ErrorType, fmt.Errorf("* may only appear as a result column, not inside an expression")
	case *ast.ParenExpr:
		return a.inferExpr(n.Inner, env, u, pc)
	case *ast.UnaryExpr:
		ot, err := a.inferExpr(n.Operand, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		ret, _, err := a.applyCall(unaryOpName(n.Op), []typesystem.Type{ot}, u)
		return ret, err
	case *ast.BinaryExpr:
		return a.inferBinary(n, env, u, pc)
	case *ast.PostfixExpr:
		if _, err := a.inferExpr(n.Operand, env, u, pc); err != nil {
			return typesystem.ErrorType, err
		}
		return typesystem.Nominal(typesystem.Integer), nil
	case *ast.CollateExpr:
		return a.inferExpr(n.Operand, env, u, pc)
	case *ast.EscapeExpr:
		t, err := a.inferExpr(n.Like, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		if _, err := a.inferExpr(n.Escape, env, u, pc); err != nil {
			return typesystem.ErrorType, err
		}
		return t, nil
	case *ast.BetweenExpr:
		return a.inferBetween(n, env, u, pc)
	case *ast.InExpr:
		return a.inferIn(n, env, u, pc)
	case *ast.IsDistinctExpr:
		lt, err := a.inferExpr(n.Left, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		rt, err := a.inferExpr(n.Right, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		if err := u.Unify(lt, rt); err != nil {
			return typesystem.ErrorType, fmt.Errorf("IS DISTINCT FROM: %w", err)
		}
		return typesystem.Nominal(typesystem.Integer), nil
	case *ast.CallExpr:
		return a.inferCallExpr(n, env, u, pc)
	case *ast.CastExpr:
		if _, err := a.inferExpr(n.Operand, env, u, pc); err != nil {
			return typesystem.ErrorType, err
		}
		if n.Type.Adapter != "" {
			adapter, ok := typesystem.LookupAdapter(n.Type.Adapter)
			if !ok {
				return typesystem.ErrorType, fmt.Errorf("unknown adapter %q", n.Type.Adapter)
			}
			return typesystem.NominalWithAdapter(n.Type.Name, &adapter), nil
		}
		return typesystem.Nominal(n.Type.Name), nil
	case *ast.CaseExpr:
		return a.inferCase(n, env, u, pc)
	case *ast.ExistsExpr:
		sub := a.analyzeSelectCorrelated(n.Subquery, env)
		if pc != nil {
			for _, p := range sub.Params {
				mergeParamTypeOnly(pc, p, u)
			}
		}
		return typesystem.Nominal(typesystem.Integer), nil
	case *ast.SubqueryExpr:
		sub := a.analyzeSelectCorrelated(n.Select, env)
		if pc != nil {
			for _, p := range sub.Params {
				mergeParamTypeOnly(pc, p, u)
			}
		}
		if len(sub.Columns) != 1 {
			return typesystem.ErrorType, fmt.Errorf("scalar subquery must return exactly one column, got %d", len(sub.Columns))
		}
		return sub.Columns[0].Type, nil
	case *ast.RaiseExpr:
		return typesystem.ErrorType, nil
	default:
		return typesystem.ErrorType, fmt.Errorf("unsupported expression %T", e)
	}
}

// mergeParamTypeOnly folds a subquery's already-named parameters into the
// enclosing statement's parameter set by name, since a correlated subquery
// shares the outer statement's bind-parameter namespace.
func mergeParamTypeOnly(pc *paramCollector, p Param, u *typesystem.Unifier) {
	existing, ok := pc.byName[p.Name]
	if !ok {
		cp := p
		pc.byName[p.Name] = &cp
		pc.order = append(pc.order, p.Name)
		return
	}
	_ = u.Unify(existing.Type, p.Type)
}

func (a *Analyzer) inferIdent(id *ast.Ident, env *Environment) (typesystem.Type, error) {
	if env == nil {
		return typesystem.ErrorType, fmt.Errorf("column reference %q has no FROM clause to resolve against", id.Last())
	}
	if len(id.NormalizedParts) >= 2 {
		owner := id.NormalizedParts[len(id.NormalizedParts)-2]
		t, err := env.lookupQualified(owner, id.Last())
		if err == nil {
			return t, nil
		}
		return typesystem.ErrorType, err
	}
	return env.lookupBare(id.Last())
}

func (a *Analyzer) inferBinary(n *ast.BinaryExpr, env *Environment, u *typesystem.Unifier, pc *paramCollector) (typesystem.Type, error) {
	lt, err := a.inferExpr(n.Left, env, u, pc)
	if err != nil {
		return typesystem.ErrorType, err
	}
	rt, err := a.inferExpr(n.Right, env, u, pc)
	if err != nil {
		return typesystem.ErrorType, err
	}
	ret, warning, err := a.applyCall(n.Op, []typesystem.Type{lt, rt}, u)
	if err != nil {
		return typesystem.ErrorType, err
	}
	if warning != "" {
		a.warn(pc, n.Sp, string(warning))
	}
	if n.Op == "/" && typesystem.IntegerDivisionWarning(u.Resolve(lt), u.Resolve(rt)) {
		a.warn(pc, n.Sp, string(typesystem.WarnIntegerDivision))
	}
	return ret, nil
}

// warn appends a warning-severity diagnostic to the statement's sink, when
// one is attached (it always is in practice; pc is only nil for detached
// callers that have opted out of diagnostics entirely).
func (a *Analyzer) warn(pc *paramCollector, sp lexer.Span, message string) {
	if pc == nil || pc.diags == nil {
		return
	}
	*pc.diags = append(*pc.diags, Diagnostic{Span: sp, Message: message, Severity: SeverityWarning})
}

func (a *Analyzer) inferBetween(n *ast.BetweenExpr, env *Environment, u *typesystem.Unifier, pc *paramCollector) (typesystem.Type, error) {
	ot, err := a.inferExpr(n.Operand, env, u, pc)
	if err != nil {
		return typesystem.ErrorType, err
	}
	lo, err := a.inferExpr(n.Low, env, u, pc)
	if err != nil {
		return typesystem.ErrorType, err
	}
	hi, err := a.inferExpr(n.High, env, u, pc)
	if err != nil {
		return typesystem.ErrorType, err
	}
	if err := u.Unify(ot, lo); err != nil {
		return typesystem.ErrorType, fmt.Errorf("BETWEEN: %w", err)
	}
	if err := u.Unify(ot, hi); err != nil {
		return typesystem.ErrorType, fmt.Errorf("BETWEEN: %w", err)
	}
	return typesystem.Nominal(typesystem.Integer), nil
}

func (a *Analyzer) inferIn(n *ast.InExpr, env *Environment, u *typesystem.Unifier, pc *paramCollector) (typesystem.Type, error) {
	ot, err := a.inferExpr(n.Operand, env, u, pc)
	if err != nil {
		return typesystem.ErrorType, err
	}
	switch {
	case n.ParamRHS != nil:
		if pc != nil {
			p := pc.resolve(n.ParamRHS, u)
			if err := u.Unify(ot, p.Type); err != nil {
				return typesystem.ErrorType, fmt.Errorf("IN: %w", err)
			}
		}
	case n.Subquery != nil:
		sub := a.analyzeSelectCorrelated(n.Subquery, env)
		if pc != nil {
			for _, p := range sub.Params {
				mergeParamTypeOnly(pc, p, u)
			}
		}
		if len(sub.Columns) != 1 {
			return typesystem.ErrorType, fmt.Errorf("IN subquery must return exactly one column, got %d", len(sub.Columns))
		}
		if err := u.Unify(ot, sub.Columns[0].Type); err != nil {
			return typesystem.ErrorType, fmt.Errorf("IN: %w", err)
		}
	default:
		for _, item := range n.List {
			it, err := a.inferExpr(item, env, u, pc)
			if err != nil {
				return typesystem.ErrorType, err
			}
			if err := u.Unify(ot, it); err != nil {
				return typesystem.ErrorType, fmt.Errorf("IN: %w", err)
			}
		}
	}
	return typesystem.Nominal(typesystem.Integer), nil
}

func (a *Analyzer) inferCase(n *ast.CaseExpr, env *Environment, u *typesystem.Unifier, pc *paramCollector) (typesystem.Type, error) {
	var operandType typesystem.Type
	hasOperand := n.Operand != nil
	if hasOperand {
		t, err := a.inferExpr(n.Operand, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		operandType = t
	}
	var result typesystem.Type
	hasResult := false
	for _, w := range n.Whens {
		wt, err := a.inferExpr(w.When, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		if hasOperand {
			if err := u.Unify(operandType, wt); err != nil {
				return typesystem.ErrorType, fmt.Errorf("CASE WHEN: %w", err)
			}
		}
		tt, err := a.inferExpr(w.Then, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		if !hasResult {
			result = tt
			hasResult = true
			continue
		}
		if err := u.Unify(result, tt); err != nil {
			return typesystem.ErrorType, fmt.Errorf("CASE arms: %w", err)
		}
		result = typesystem.Widen(result, tt)
	}
	if n.Else != nil {
		et, err := a.inferExpr(n.Else, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		if !hasResult {
			return et, nil
		}
		if err := u.Unify(result, et); err != nil {
			return typesystem.ErrorType, fmt.Errorf("CASE ELSE: %w", err)
		}
		result = typesystem.Widen(result, et)
	} else if hasResult {
		result = typesystem.Opt(result.Underlying())
	}
	if !hasResult {
		return typesystem.ErrorType, fmt.Errorf("CASE expression has no WHEN/THEN arms")
	}
	return result, nil
}

func (a *Analyzer) inferCallExpr(n *ast.CallExpr, env *Environment, u *typesystem.Unifier, pc *paramCollector) (typesystem.Type, error) {
	if n.Star {
		return typesystem.Nominal(typesystem.Integer), nil
	}
	argTypes := make([]typesystem.Type, 0, len(n.Args))
	for _, arg := range n.Args {
		t, err := a.inferExpr(arg, env, u, pc)
		if err != nil {
			return typesystem.ErrorType, err
		}
		argTypes = append(argTypes, t)
	}
	if n.Over != nil {
		for _, p := range n.Over.PartitionBy {
			if _, err := a.inferExpr(p, env, u, pc); err != nil {
				return typesystem.ErrorType, err
			}
		}
	}
	ret, warning, err := a.applyCall(n.Name, argTypes, u)
	if err != nil {
		return typesystem.ErrorType, err
	}
	if warning != "" {
		a.warn(pc, n.Sp, string(warning))
	}
	return ret, nil
}

// applyCall resolves name/arity against the builtin catalog, unifies every
// argument against the scheme's (possibly variadic-expanded) parameter
// list, and returns the instantiated return type plus the resolved entry's
// warning, if any.
func (a *Analyzer) applyCall(name string, args []typesystem.Type, u *typesystem.Unifier) (typesystem.Type, typesystem.Warning, error) {
	entry, ok := a.Builtins.Lookup(name, len(args))
	if !ok {
		return typesystem.ErrorType, "", fmt.Errorf("unknown function or operator %s/%d", name, len(args))
	}
	fn := entry.Scheme.Instantiate(u)
	params := fn.ApplyVariadic(len(args))
	if len(params) != len(args) {
		return typesystem.ErrorType, "", fmt.Errorf("%s expects %d argument(s), got %d", name, len(params), len(args))
	}
	for i, p := range params {
		if err := u.Unify(p, args[i]); err != nil {
			return typesystem.ErrorType, "", fmt.Errorf("%s argument %d: %w", name, i+1, err)
		}
	}
	if fn.Elem == nil {
		return typesystem.ErrorType, "", fmt.Errorf("%s has no return type", name)
	}
	return *fn.Elem, entry.Warning, nil
}

func unaryOpName(op string) string {
	switch op {
	case "-":
		return "unary-"
	case "+":
		return "unary+"
	default:
		return op
	}
}

func literalType(l *ast.Literal) typesystem.Type {
	switch l.Kind {
	case ast.LiteralInteger:
		return typesystem.Nominal(typesystem.Integer)
	case ast.LiteralDecimal:
		return typesystem.Nominal(typesystem.Real)
	case ast.LiteralString:
		return typesystem.Nominal(typesystem.Text)
	case ast.LiteralBlob:
		return typesystem.Nominal(typesystem.Blob)
	case ast.LiteralTrue, ast.LiteralFalse:
		return typesystem.Nominal(typesystem.Integer)
	case ast.LiteralNull:
		return typesystem.Opt(typesystem.Nominal(typesystem.Any))
	case ast.LiteralCurrentTime, ast.LiteralCurrentDate, ast.LiteralCurrentTimestamp:
		return typesystem.Nominal(typesystem.Text)
	default:
		return typesystem.Nominal(typesystem.Any)
	}
}
