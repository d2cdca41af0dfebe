// Package typesystem implements the Hindley-Milner-style type universe used
// to infer the shape of every expression and statement the analyzer visits:
// base SQL storage types, nullable wrappers, row types, function schemes,
// and a union-find unifier over type variables.
package typesystem

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of Type.
type Kind int

const (
	// KindNominal is a declared SQL storage type or host-language type name.
	KindNominal Kind = iota
	// KindOptional wraps another type to mark it nullable.
	KindOptional
	// KindVar is an unbound inference variable.
	KindVar
	// KindFn is a function signature, possibly variadic.
	KindFn
	// KindRow is a row type, named or positional.
	KindRow
	// KindError is the propagating type used to suppress cascading diagnostics.
	KindError
)

// Type is the inference universe described in spec.md §3. It is an
// immutable value; operations that "change" a type return a new Type.
type Type struct {
	Kind Kind

	// KindNominal
	Name    string
	Adapter *Adapter // non-nil when the column/expression carries USING <Adapter>

	// KindOptional / KindFn (return)
	Elem *Type

	// KindFn
	Params   []Type
	Variadic bool

	// KindRow
	Row RowShape

	// KindVar
	VarID int
}

// Adapter names a host-language type mapping introduced by USING <Name>.
// It is opaque to unification: two Nominal types with different adapters
// but the same storage Name still unify, per spec.md §3.
type Adapter struct {
	Name    string
	GoType  string
	Import  string
	Package string
}

// RowShape is either a named row (column order matters, names are unique
// within the row but duplicates are legal at the unresolved-scope level)
// or a fixed positional row (VALUES tuples, function argument lists).
type RowShape struct {
	Named   []NamedField // nil when Fixed is used
	Fixed   []Type       // nil when Named is used
	isNamed bool
}

// NamedField is one column of a named row type, in declaration order.
type NamedField struct {
	Name string
	Type Type
}

// NewNamedRow builds a RowShape from ordered fields.
func NewNamedRow(fields []NamedField) RowShape {
	return RowShape{Named: fields, isNamed: true}
}

// NewFixedRow builds a positional RowShape.
func NewFixedRow(elems []Type) RowShape {
	return RowShape{Fixed: elems}
}

// IsNamed reports whether the row shape is the named variant.
func (r RowShape) IsNamed() bool { return r.isNamed }

// Built-in nominal storage types (spec.md §3, §4.3's STRICT set).
const (
	Integer = "INTEGER"
	Text    = "TEXT"
	Real    = "REAL"
	Blob    = "BLOB"
	Any     = "ANY"
)

// StrictTypeNames is the fixed set of type names a STRICT table may declare.
var StrictTypeNames = map[string]struct{}{
	Integer: {}, "INT": {}, Text: {}, Blob: {}, Real: {}, Any: {},
}

// Nominal constructs a bare nominal type with no adapter.
func Nominal(name string) Type { return Type{Kind: KindNominal, Name: name} }

// NominalWithAdapter constructs a nominal type carrying a USING <Adapter> tag.
func NominalWithAdapter(name string, adapter *Adapter) Type {
	return Type{Kind: KindNominal, Name: name, Adapter: adapter}
}

// Opt wraps t as Optional(t). Opt(Opt(t)) collapses to Opt(t): Optional is
// idempotent, there is no nested-nullable representation.
func Opt(t Type) Type {
	if t.Kind == KindOptional {
		return t
	}
	return Type{Kind: KindOptional, Elem: &t}
}

// IsOptional reports whether t is Optional(_).
func (t Type) IsOptional() bool { return t.Kind == KindOptional }

// Underlying returns the non-optional type beneath any Optional wrapper.
func (t Type) Underlying() Type {
	if t.Kind == KindOptional && t.Elem != nil {
		return *t.Elem
	}
	return t
}

// ErrorType is the short-circuiting inhabitant: it unifies with anything.
var ErrorType = Type{Kind: KindError}

// IsError reports whether t is the propagating error type.
func (t Type) IsError() bool { return t.Kind == KindError }

// Fn constructs a function type; variadic replicates the final parameter
// type once arity is known (see ApplyVariadic).
func Fn(params []Type, ret Type, variadic bool) Type {
	r := ret
	return Type{Kind: KindFn, Params: params, Elem: &r, Variadic: variadic}
}

// Row constructs a row type from a shape.
func Row(shape RowShape) Type { return Type{Kind: KindRow, Row: shape} }

// ApplyVariadic returns a copy of a variadic function's parameter list
// expanded to arity n by repeating the final declared parameter.
func (t Type) ApplyVariadic(n int) []Type {
	if t.Kind != KindFn || !t.Variadic || len(t.Params) == 0 {
		return t.Params
	}
	if n <= len(t.Params) {
		return t.Params
	}
	last := t.Params[len(t.Params)-1]
	out := make([]Type, 0, n)
	out = append(out, t.Params...)
	for len(out) < n {
		out = append(out, last)
	}
	return out
}

// String renders a type for diagnostics and golden tests.
func (t Type) String() string {
	switch t.Kind {
	case KindNominal:
		if t.Adapter != nil {
			return fmt.Sprintf("%s AS %s USING %s", t.Name, t.Adapter.Name, t.Adapter.Name)
		}
		return t.Name
	case KindOptional:
		if t.Elem == nil {
			return "Optional<?>"
		}
		return "Optional<" + t.Elem.String() + ">"
	case KindVar:
		return fmt.Sprintf("'t%d", t.VarID)
	case KindFn:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		variadic := ""
		if t.Variadic {
			variadic = "..."
		}
		ret := ""
		if t.Elem != nil {
			ret = t.Elem.String()
		}
		return fmt.Sprintf("(%s%s) -> %s", strings.Join(parts, ", "), variadic, ret)
	case KindRow:
		if t.Row.IsNamed() {
			parts := make([]string, len(t.Row.Named))
			for i, f := range t.Row.Named {
				parts[i] = f.Name + ": " + f.Type.String()
			}
			return "{" + strings.Join(parts, ", ") + "}"
		}
		parts := make([]string, len(t.Row.Fixed))
		for i, f := range t.Row.Fixed {
			parts[i] = f.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindError:
		return "<error>"
	default:
		return "<invalid>"
	}
}
