package typesystem

// Warning is a non-fatal note attached to a resolved call, surfaced by the
// analyzer as a diagnostic of severity "warning" rather than "error".
type Warning string

const (
	// WarnStrftimeReturnsText flags strftime('%s', ...), which returns TEXT
	// rather than an integer epoch; unixepoch() is the typed alternative.
	WarnStrftimeReturnsText Warning = "strftime returns TEXT; consider unixepoch() for an integer result"
	// WarnIntegerDivision flags a/b where both operands are INTEGER: SQL
	// truncates, which surprises callers expecting a fractional result.
	WarnIntegerDivision Warning = "integer division truncates; cast an operand to REAL for fractional results"
)

// FuncEntry is one resolvable overload of a built-in operator or function.
type FuncEntry struct {
	Name     string
	Arity    int // -1 marks a variadic entry; ApplyVariadic expands it at the call site
	Scheme   Scheme
	Warning  Warning // non-empty when every successful resolution of this entry warns
	Nullable func(argsNullable []bool) bool
}

// Builtins is the fixed, built-in function/operator catalog. It is indexed
// by (name, arity) with -1 arity reserved for variadic entries; callers look
// up an exact-arity entry first and fall back to the variadic one.
type Builtins struct {
	byName map[string][]FuncEntry
}

// NewBuiltins constructs the catalog described in spec.md §4.2/§4.4: the
// arithmetic, comparison, logical, and string operators the Pratt parser
// desugars into named calls, plus the aggregate and scalar function set the
// SQLite dialect exposes.
func NewBuiltins() *Builtins {
	b := &Builtins{byName: make(map[string][]FuncEntry)}
	b.registerArithmetic()
	b.registerComparison()
	b.registerLogical()
	b.registerStringAndJSON()
	b.registerNullTests()
	b.registerAggregates()
	b.registerScalarFunctions()
	return b
}

func alwaysNullableIfAny(argsNullable []bool) bool {
	for _, n := range argsNullable {
		if n {
			return true
		}
	}
	return false
}

func neverNullable([]bool) bool { return false }

func (b *Builtins) add(e FuncEntry) {
	b.byName[e.Name] = append(b.byName[e.Name], e)
}

func numeric() Type { return Nominal(Real) }
func integer() Type { return Nominal(Integer) }
func text() Type    { return Nominal(Text) }
func boolean() Type { return Nominal(Integer) } // SQLite has no native boolean storage type

func (b *Builtins) registerArithmetic() {
	for _, op := range []string{"+", "-", "*", "/", "%"} {
		op := op
		b.add(FuncEntry{
			Name:   op,
			Arity:  2,
			Scheme: Mono(Fn([]Type{numeric(), numeric()}, numeric(), false)),
			Nullable: func(argsNullable []bool) bool {
				return alwaysNullableIfAny(argsNullable)
			},
		})
	}
	b.add(FuncEntry{
		Name:     "unary-",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{numeric()}, numeric(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "unary+",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{numeric()}, numeric(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "~",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{integer()}, integer(), false)),
		Nullable: alwaysNullableIfAny,
	})
	for _, op := range []string{"&", "|", "<<", ">>"} {
		b.add(FuncEntry{
			Name:     op,
			Arity:    2,
			Scheme:   Mono(Fn([]Type{integer(), integer()}, integer(), false)),
			Nullable: alwaysNullableIfAny,
		})
	}
}

func (b *Builtins) registerComparison() {
	for _, op := range []string{"=", "==", "!=", "<>", "<", "<=", ">", ">="} {
		b.add(FuncEntry{
			Name:     op,
			Arity:    2,
			Scheme:   Mono(Fn([]Type{Nominal(Any), Nominal(Any)}, boolean(), false)),
			Nullable: alwaysNullableIfAny,
		})
	}
	for _, op := range []string{"IS", "IS NOT"} {
		b.add(FuncEntry{
			Name:     op,
			Arity:    2,
			Scheme:   Mono(Fn([]Type{Nominal(Any), Nominal(Any)}, boolean(), false)),
			Nullable: neverNullable,
		})
	}
	for _, op := range []string{"IS DISTINCT FROM", "IS NOT DISTINCT FROM"} {
		b.add(FuncEntry{
			Name:     op,
			Arity:    2,
			Scheme:   Mono(Fn([]Type{Nominal(Any), Nominal(Any)}, boolean(), false)),
			Nullable: neverNullable,
		})
	}
	b.add(FuncEntry{
		Name:     "BETWEEN",
		Arity:    3,
		Scheme:   Mono(Fn([]Type{Nominal(Any), Nominal(Any), Nominal(Any)}, boolean(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "IN",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{Nominal(Any), Nominal(Any)}, boolean(), true), Variadic: true},
		Nullable: alwaysNullableIfAny,
	})
	for _, op := range []string{"LIKE", "GLOB", "MATCH", "REGEXP"} {
		b.add(FuncEntry{
			Name:     op,
			Arity:    2,
			Scheme:   Mono(Fn([]Type{text(), text()}, boolean(), false)),
			Nullable: alwaysNullableIfAny,
		})
	}
	b.add(FuncEntry{
		Name:     "ESCAPE",
		Arity:    2,
		Scheme:   Mono(Fn([]Type{boolean(), text()}, boolean(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "COLLATE",
		Arity:    2,
		Scheme:   Mono(Fn([]Type{Nominal(Any), text()}, Nominal(Any), false)),
		Nullable: func(argsNullable []bool) bool { return len(argsNullable) > 0 && argsNullable[0] },
	})
}

func (b *Builtins) registerLogical() {
	for _, op := range []string{"AND", "OR"} {
		b.add(FuncEntry{
			Name:     op,
			Arity:    2,
			Scheme:   Mono(Fn([]Type{boolean(), boolean()}, boolean(), false)),
			Nullable: alwaysNullableIfAny,
		})
	}
	b.add(FuncEntry{
		Name:     "NOT",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{boolean()}, boolean(), false)),
		Nullable: alwaysNullableIfAny,
	})
}

func (b *Builtins) registerStringAndJSON() {
	b.add(FuncEntry{
		Name:     "||",
		Arity:    2,
		Scheme:   Mono(Fn([]Type{text(), text()}, text(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "->",
		Arity:    2,
		Scheme:   Mono(Fn([]Type{text(), Nominal(Any)}, text(), false)),
		Nullable: func([]bool) bool { return true },
	})
	b.add(FuncEntry{
		Name:     "->>",
		Arity:    2,
		Scheme:   Mono(Fn([]Type{text(), Nominal(Any)}, text(), false)),
		Nullable: func([]bool) bool { return true },
	})
}

func (b *Builtins) registerNullTests() {
	b.add(FuncEntry{
		Name:     "ISNULL",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{Nominal(Any)}, boolean(), false)),
		Nullable: neverNullable,
	})
	b.add(FuncEntry{
		Name:     "NOTNULL",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{Nominal(Any)}, boolean(), false)),
		Nullable: neverNullable,
	})
	b.add(FuncEntry{
		Name:     "IS NULL",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{Nominal(Any)}, boolean(), false)),
		Nullable: neverNullable,
	})
	b.add(FuncEntry{
		Name:     "IS NOT NULL",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{Nominal(Any)}, boolean(), false)),
		Nullable: neverNullable,
	})
}

func (b *Builtins) registerAggregates() {
	aggregates := []string{"COUNT", "SUM", "AVG", "MIN", "MAX", "TOTAL", "GROUP_CONCAT"}
	for _, name := range aggregates {
		name := name
		ret := numeric()
		if name == "GROUP_CONCAT" {
			ret = text()
		}
		if name == "COUNT" {
			ret = integer()
		}
		b.add(FuncEntry{
			Name:     name,
			Arity:    1,
			Scheme:   Mono(Fn([]Type{Nominal(Any)}, ret, false)),
			Nullable: func(argsNullable []bool) bool { return name != "COUNT" },
		})
	}
	// COUNT(*) is arity 0.
	b.add(FuncEntry{
		Name:     "COUNT",
		Arity:    0,
		Scheme:   Mono(Fn(nil, integer(), false)),
		Nullable: neverNullable,
	})
}

func (b *Builtins) registerScalarFunctions() {
	b.add(FuncEntry{
		Name:     "STRFTIME",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{text(), text()}, text(), true), Variadic: true},
		Warning:  WarnStrftimeReturnsText,
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "UNIXEPOCH",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{text()}, integer(), true), Variadic: true},
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "COALESCE",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{Nominal(Any), Nominal(Any)}, Nominal(Any), true), Variadic: true},
		Nullable: func(argsNullable []bool) bool {
			for _, n := range argsNullable {
				if !n {
					return false
				}
			}
			return true
		},
	})
	b.add(FuncEntry{
		Name:     "LENGTH",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{text()}, integer(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "LOWER",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{text()}, text(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "UPPER",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{text()}, text(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "SUBSTR",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{text(), integer(), integer()}, text(), true), Variadic: true},
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "TRIM",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{text(), text()}, text(), true), Variadic: true},
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "ROUND",
		Arity:    -1,
		Scheme:   Scheme{Type: Fn([]Type{numeric(), integer()}, numeric(), true), Variadic: true},
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "ABS",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{numeric()}, numeric(), false)),
		Nullable: alwaysNullableIfAny,
	})
	b.add(FuncEntry{
		Name:     "TYPEOF",
		Arity:    1,
		Scheme:   Mono(Fn([]Type{Nominal(Any)}, text(), false)),
		Nullable: neverNullable,
	})
	b.add(FuncEntry{
		Name:     "IFNULL",
		Arity:    2,
		Scheme:   Mono(Fn([]Type{Nominal(Any), Nominal(Any)}, Nominal(Any), false)),
		Nullable: func(argsNullable []bool) bool { return len(argsNullable) > 1 && argsNullable[1] },
	})
}

// Lookup resolves the best matching entry for name at call-site arity.
// It returns ok=false if no entry matches exactly and no variadic entry
// can be expanded to the requested arity.
func (b *Builtins) Lookup(name string, arity int) (FuncEntry, bool) {
	entries, ok := b.byName[upperASCII(name)]
	if !ok {
		return FuncEntry{}, false
	}
	for _, e := range entries {
		if e.Arity == arity {
			return e, true
		}
	}
	for _, e := range entries {
		if e.Arity == -1 && arity >= len(e.Scheme.Type.Params)-1 {
			return e, true
		}
	}
	return FuncEntry{}, false
}

// IntegerDivisionWarning reports whether a `/` application over two
// non-nullable INTEGER-storage operands should carry WarnIntegerDivision.
// The analyzer calls this once both operand types have resolved.
func IntegerDivisionWarning(left, right Type) bool {
	return left.Kind == KindNominal && left.Name == Integer &&
		right.Kind == KindNominal && right.Name == Integer
}
