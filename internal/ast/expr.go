// Package ast defines the concrete syntax tree produced by internal/parser:
// DDL and DML statement nodes, the expression tree, and the query-definition
// wrapper forms accepted in query files.
package ast

import "github.com/sqlweave/sqlweave/internal/lexer"

// Node is implemented by every syntax tree node; Span reports the source
// range the node covers, used both for diagnostics and for IR provenance.
type Node interface {
	Span() lexer.Span
}

// Expr is the sum type of expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Ident is a possibly schema/table-qualified column or table reference.
// Parts holds the dot-separated components in source order; NormalizedParts
// holds the quote-stripped, case-preserved identifier text for each part.
type Ident struct {
	Parts           []string
	NormalizedParts []string
	Sp              lexer.Span
}

func (i *Ident) Span() lexer.Span { return i.Sp }
func (*Ident) exprNode()          {}

// Last returns the final (rightmost) component of a qualified identifier.
func (i *Ident) Last() string {
	if len(i.NormalizedParts) == 0 {
		return ""
	}
	return i.NormalizedParts[len(i.NormalizedParts)-1]
}

// StarExpr is `*` or `table.*`.
type StarExpr struct {
	Qualifier []string // empty for bare *
	Sp        lexer.Span
}

func (s *StarExpr) Span() lexer.Span { return s.Sp }
func (*StarExpr) exprNode()          {}

// LiteralKind classifies a Literal node.
type LiteralKind int

const (
	LiteralInteger LiteralKind = iota
	LiteralDecimal
	LiteralString
	LiteralBlob
	LiteralTrue
	LiteralFalse
	LiteralNull
	LiteralCurrentTime
	LiteralCurrentDate
	LiteralCurrentTimestamp
)

// Literal is a scalar constant.
type Literal struct {
	Kind LiteralKind
	Text string // raw lexeme, preserved verbatim
	Sp   lexer.Span
}

func (l *Literal) Span() lexer.Span { return l.Sp }
func (*Literal) exprNode()          {}

// ParamStyle classifies a bind parameter's surface syntax.
type ParamStyle int

const (
	// ParamAnonymous is a bare `?`.
	ParamAnonymous ParamStyle = iota
	// ParamPositional is `?N`.
	ParamPositional
	// ParamNamed covers `:name`, `@name`, `$name`.
	ParamNamed
)

// Param is a bind parameter occurrence.
type Param struct {
	Style   ParamStyle
	Name    string // set for ParamNamed
	Index   int    // set for ParamPositional (the explicit N)
	RawText string // original lexeme, e.g. "?3", ":id"
	Sp      lexer.Span
}

func (p *Param) Span() lexer.Span { return p.Sp }
func (*Param) exprNode()          {}

// BinaryExpr covers all left-associative infix operators, including the
// desugared forms of IS/IS NOT/LIKE/GLOB/MATCH/REGEXP/IN.
type BinaryExpr struct {
	Op          string // canonical operator/keyword spelling, e.g. "+", "IS NOT", "LIKE"
	Left, Right Expr
	Sp          lexer.Span
}

func (b *BinaryExpr) Span() lexer.Span { return b.Sp }
func (*BinaryExpr) exprNode()          {}

// UnaryExpr covers prefix -, +, ~, NOT.
type UnaryExpr struct {
	Op      string
	Operand Expr
	Sp      lexer.Span
}

func (u *UnaryExpr) Span() lexer.Span { return u.Sp }
func (*UnaryExpr) exprNode()          {}

// PostfixExpr covers ISNULL, NOTNULL, IS NULL, IS NOT NULL.
type PostfixExpr struct {
	Op      string
	Operand Expr
	Sp      lexer.Span
}

func (p *PostfixExpr) Span() lexer.Span { return p.Sp }
func (*PostfixExpr) exprNode()          {}

// CollateExpr is `expr COLLATE name`.
type CollateExpr struct {
	Operand  Expr
	Collation string
	Sp       lexer.Span
}

func (c *CollateExpr) Span() lexer.Span { return c.Sp }
func (*CollateExpr) exprNode()          {}

// EscapeExpr is `expr LIKE pattern ESCAPE escapeChar`, attached by the
// parser as a wrapper around the LIKE BinaryExpr it modifies.
type EscapeExpr struct {
	Like   Expr
	Escape Expr
	Sp     lexer.Span
}

func (e *EscapeExpr) Span() lexer.Span { return e.Sp }
func (*EscapeExpr) exprNode()          {}

// BetweenExpr is `expr [NOT] BETWEEN low AND high`.
type BetweenExpr struct {
	Operand  Expr
	Not      bool
	Low, High Expr
	Sp       lexer.Span
}

func (b *BetweenExpr) Span() lexer.Span { return b.Sp }
func (*BetweenExpr) exprNode()          {}

// InExpr is `expr [NOT] IN (list)` or `expr [NOT] IN (subquery)` or
// `expr [NOT] IN ?` (a single variadic bind parameter).
type InExpr struct {
	Operand  Expr
	Not      bool
	List     []Expr    // set when the RHS is an explicit value list
	Subquery *SelectStmt // set when the RHS is a subquery
	ParamRHS *Param    // set when the RHS is a single bind parameter
	Sp       lexer.Span
}

func (i *InExpr) Span() lexer.Span { return i.Sp }
func (*InExpr) exprNode()          {}

// IsDistinctExpr is `expr IS [NOT] DISTINCT FROM expr`.
type IsDistinctExpr struct {
	Not         bool
	Left, Right Expr
	Sp          lexer.Span
}

func (d *IsDistinctExpr) Span() lexer.Span { return d.Sp }
func (*IsDistinctExpr) exprNode()          {}

// CallExpr is `name(args...)` or `name(*)` for count(*)-style aggregates.
type CallExpr struct {
	Name     string
	Args     []Expr
	Star     bool // true for f(*)
	Distinct bool // true for f(DISTINCT ...)
	Over     *WindowSpec
	Sp       lexer.Span
}

func (c *CallExpr) Span() lexer.Span { return c.Sp }
func (*CallExpr) exprNode()          {}

// WindowSpec is an `OVER (...)` clause; the contents are parsed structurally
// but not deeply analyzed (frame semantics are out of scope per spec).
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderItem
	RawFrame    string // verbatim frame clause text, if any, kept for emission
	Sp          lexer.Span
}

func (w *WindowSpec) Span() lexer.Span { return w.Sp }

// CastExpr is `CAST(expr AS type)`.
type CastExpr struct {
	Operand Expr
	Type    TypeName
	Sp      lexer.Span
}

func (c *CastExpr) Span() lexer.Span { return c.Sp }
func (*CastExpr) exprNode()          {}

// CaseExpr is `CASE [operand] WHEN cond THEN result ... [ELSE else] END`.
type CaseExpr struct {
	Operand Expr // nil for the searched-CASE form
	Whens   []CaseWhen
	Else    Expr // nil if absent
	Sp      lexer.Span
}

func (c *CaseExpr) Span() lexer.Span { return c.Sp }
func (*CaseExpr) exprNode()          {}

// CaseWhen is one WHEN/THEN arm of a CaseExpr.
type CaseWhen struct {
	When Expr
	Then Expr
}

// ExistsExpr is `[NOT] EXISTS (subquery)`.
type ExistsExpr struct {
	Not      bool
	Subquery *SelectStmt
	Sp       lexer.Span
}

func (e *ExistsExpr) Span() lexer.Span { return e.Sp }
func (*ExistsExpr) exprNode()          {}

// ParenExpr is a parenthesized expression, kept as its own node so source
// ranges stay precise even though it carries no semantic meaning.
type ParenExpr struct {
	Inner Expr
	Sp    lexer.Span
}

func (p *ParenExpr) Span() lexer.Span { return p.Sp }
func (*ParenExpr) exprNode()          {}

// SubqueryExpr wraps a SELECT used as a scalar expression, e.g.
// `(SELECT max(x) FROM t)`.
type SubqueryExpr struct {
	Select *SelectStmt
	Sp     lexer.Span
}

func (s *SubqueryExpr) Span() lexer.Span { return s.Sp }
func (*SubqueryExpr) exprNode()          {}

// RaiseExpr models `RAISE(ABORT|FAIL|IGNORE|ROLLBACK, message)` used in
// trigger bodies; it is parsed structurally, not type-checked.
type RaiseExpr struct {
	Action  string
	Message string
	Sp      lexer.Span
}

func (r *RaiseExpr) Span() lexer.Span { return r.Sp }
func (*RaiseExpr) exprNode()          {}

// TypeName is a parsed type reference: the base storage type plus the
// optional typed-column extension (`AS <host> USING <adapter>`).
type TypeName struct {
	Name      string // e.g. INTEGER, VARCHAR
	Args      []int  // e.g. VARCHAR(255) -> [255]; NUMERIC(10,2) -> [10,2]
	AsName    string // set when `AS <host-type-name>` is present
	Adapter   string // set when `USING <adapter-name>` is present
	Sp        lexer.Span
}

func (t TypeName) Span() lexer.Span { return t.Sp }
