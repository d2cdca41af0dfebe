package typesystem

import "fmt"

// Unifier tracks a union-find substitution over type variables, allocated
// fresh during analysis of a single query. It is not safe for concurrent use;
// each goroutine analyzing a query in parallel (per the schema-is-read-only,
// queries-are-independent split the driver enforces) owns its own Unifier.
type Unifier struct {
	parent map[int]int
	bound  map[int]Type
	next   int
}

// NewUnifier returns an empty unifier.
func NewUnifier() *Unifier {
	return &Unifier{parent: make(map[int]int), bound: make(map[int]Type)}
}

// Fresh allocates a new, currently-unbound type variable.
func (u *Unifier) Fresh() Type {
	id := u.next
	u.next++
	u.parent[id] = id
	return Type{Kind: KindVar, VarID: id}
}

func (u *Unifier) find(id int) int {
	root, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if root == id {
		return id
	}
	root = u.find(root)
	u.parent[id] = root
	return root
}

// Resolve follows variable bindings until it reaches a non-variable type or
// an unbound variable, collapsing any optional-of-optional along the way.
func (u *Unifier) Resolve(t Type) Type {
	for t.Kind == KindVar {
		root := u.find(t.VarID)
		bound, ok := u.bound[root]
		if !ok {
			return Type{Kind: KindVar, VarID: root}
		}
		t = bound
	}
	if t.Kind == KindOptional && t.Elem != nil {
		inner := u.Resolve(*t.Elem)
		return Opt(inner)
	}
	return t
}

// UnifyError reports two types that cannot be made equal.
type UnifyError struct {
	Left, Right Type
	Reason      string
}

func (e *UnifyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot unify %s with %s: %s", e.Left, e.Right, e.Reason)
	}
	return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
}

// Unify makes a and b equal under the current substitution, per spec.md §3:
//   - Error unifies with anything, silently, producing no new constraint.
//   - ANY (the nominal "ANY" storage type) unifies with anything.
//   - a non-null T and Optional(T) unify to Optional(T): nullability widens,
//     it never narrows.
//   - two Optional types unify by unifying their element types, the result
//     stays Optional.
//   - Fn types unify pointwise on parameters (variadic tails first expanded
//     to matching arity by the caller) and on return type.
//   - Row types unify field-by-field; Named rows require matching names,
//     Fixed rows require matching arity.
func (u *Unifier) Unify(a, b Type) error {
	a = u.Resolve(a)
	b = u.Resolve(b)

	if a.IsError() || b.IsError() {
		return nil
	}
	if isAny(a) || isAny(b) {
		return nil
	}

	if a.Kind == KindVar {
		return u.bindVar(a.VarID, b)
	}
	if b.Kind == KindVar {
		return u.bindVar(b.VarID, a)
	}

	if a.Kind == KindOptional || b.Kind == KindOptional {
		ea, oa := unwrapOptional(a)
		eb, ob := unwrapOptional(b)
		if err := u.Unify(ea, eb); err != nil {
			return err
		}
		_ = oa
		_ = ob
		return nil
	}

	if a.Kind != b.Kind {
		return &UnifyError{Left: a, Right: b, Reason: "mismatched type shapes"}
	}

	switch a.Kind {
	case KindNominal:
		if a.Name != b.Name {
			return &UnifyError{Left: a, Right: b, Reason: "distinct storage types"}
		}
		return nil
	case KindFn:
		if len(a.Params) != len(b.Params) {
			return &UnifyError{Left: a, Right: b, Reason: "argument count mismatch"}
		}
		for i := range a.Params {
			if err := u.Unify(a.Params[i], b.Params[i]); err != nil {
				return err
			}
		}
		if a.Elem != nil && b.Elem != nil {
			return u.Unify(*a.Elem, *b.Elem)
		}
		return nil
	case KindRow:
		return u.unifyRows(a.Row, b.Row)
	default:
		return &UnifyError{Left: a, Right: b, Reason: "unsupported unification"}
	}
}

func (u *Unifier) unifyRows(a, b RowShape) error {
	if a.IsNamed() != b.IsNamed() {
		return fmt.Errorf("cannot unify named row with fixed row")
	}
	if a.IsNamed() {
		if len(a.Named) != len(b.Named) {
			return fmt.Errorf("row arity mismatch: %d fields vs %d fields", len(a.Named), len(b.Named))
		}
		for i := range a.Named {
			if a.Named[i].Name != b.Named[i].Name {
				return fmt.Errorf("row field %d name mismatch: %q vs %q", i, a.Named[i].Name, b.Named[i].Name)
			}
			if err := u.Unify(a.Named[i].Type, b.Named[i].Type); err != nil {
				return err
			}
		}
		return nil
	}
	if len(a.Fixed) != len(b.Fixed) {
		return fmt.Errorf("row arity mismatch: %d vs %d", len(a.Fixed), len(b.Fixed))
	}
	for i := range a.Fixed {
		if err := u.Unify(a.Fixed[i], b.Fixed[i]); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unifier) bindVar(id int, t Type) error {
	root := u.find(id)
	if t.Kind == KindVar {
		otherRoot := u.find(t.VarID)
		if otherRoot == root {
			return nil
		}
		if bound, ok := u.bound[otherRoot]; ok {
			u.parent[otherRoot] = root
			return u.bindVar(root, bound)
		}
		u.parent[otherRoot] = root
		return nil
	}
	if occursIn(u, root, t) {
		return &UnifyError{Left: Type{Kind: KindVar, VarID: root}, Right: t, Reason: "occurs check failed"}
	}
	if existing, ok := u.bound[root]; ok {
		return u.Unify(existing, t)
	}
	u.bound[root] = t
	return nil
}

func occursIn(u *Unifier, root int, t Type) bool {
	t = u.Resolve(t)
	switch t.Kind {
	case KindVar:
		return u.find(t.VarID) == root
	case KindOptional:
		return t.Elem != nil && occursIn(u, root, *t.Elem)
	case KindFn:
		for _, p := range t.Params {
			if occursIn(u, root, p) {
				return true
			}
		}
		return t.Elem != nil && occursIn(u, root, *t.Elem)
	case KindRow:
		if t.Row.IsNamed() {
			for _, f := range t.Row.Named {
				if occursIn(u, root, f.Type) {
					return true
				}
			}
			return false
		}
		for _, e := range t.Row.Fixed {
			if occursIn(u, root, e) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func isAny(t Type) bool {
	return t.Kind == KindNominal && t.Name == Any
}

func unwrapOptional(t Type) (elem Type, wasOptional bool) {
	if t.Kind == KindOptional {
		if t.Elem != nil {
			return *t.Elem, true
		}
		return ErrorType, true
	}
	return t, false
}

// Widen returns the nullability-widened join of a and b: if either is
// Optional, the result is Optional. Callers use this after Unify succeeds
// to compute the type that should be recorded for a column or parameter
// touched from more than one branch (e.g. a COALESCE, a UNION arm).
func Widen(a, b Type) Type {
	if a.IsOptional() || b.IsOptional() {
		return Opt(a.Underlying())
	}
	return a
}
