package typesystem

// Scheme is a type scheme: a type generalized over a set of variables, with
// two flags carried alongside per spec.md §3 — Variadic (the final parameter
// repeats to match call-site arity) and Ambiguous (overload resolution could
// not pick a single candidate, so callers should surface a diagnostic rather
// than silently picking one).
type Scheme struct {
	Vars      []int
	Type      Type
	Variadic  bool
	Ambiguous bool
}

// Instantiate replaces every quantified variable in the scheme with a fresh
// variable from u, returning a concrete (but still possibly var-containing)
// type ready for unification against call-site arguments.
func (s Scheme) Instantiate(u *Unifier) Type {
	if len(s.Vars) == 0 {
		return s.Type
	}
	sub := make(map[int]Type, len(s.Vars))
	for _, v := range s.Vars {
		sub[v] = u.Fresh()
	}
	return substitute(s.Type, sub)
}

func substitute(t Type, sub map[int]Type) Type {
	switch t.Kind {
	case KindVar:
		if fresh, ok := sub[t.VarID]; ok {
			return fresh
		}
		return t
	case KindOptional:
		if t.Elem == nil {
			return t
		}
		inner := substitute(*t.Elem, sub)
		return Opt(inner)
	case KindFn:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = substitute(p, sub)
		}
		var ret Type
		if t.Elem != nil {
			ret = substitute(*t.Elem, sub)
		}
		return Fn(params, ret, t.Variadic)
	case KindRow:
		if t.Row.IsNamed() {
			fields := make([]NamedField, len(t.Row.Named))
			for i, f := range t.Row.Named {
				fields[i] = NamedField{Name: f.Name, Type: substitute(f.Type, sub)}
			}
			return Row(NewNamedRow(fields))
		}
		elems := make([]Type, len(t.Row.Fixed))
		for i, e := range t.Row.Fixed {
			elems[i] = substitute(e, sub)
		}
		return Row(NewFixedRow(elems))
	default:
		return t
	}
}

// Mono wraps a concrete type (no bound variables) as a trivial scheme.
func Mono(t Type) Scheme { return Scheme{Type: t} }
