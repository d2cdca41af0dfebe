package ast

import "github.com/sqlweave/sqlweave/internal/lexer"

// Stmt is the sum type of top-level statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// OrderDir is ASC/DESC, defaulting to ASC when unspecified.
type OrderDir int

const (
	OrderAsc OrderDir = iota
	OrderDesc
)

// ConflictClause is the optional `ON CONFLICT ROLLBACK|ABORT|FAIL|IGNORE|REPLACE`
// suffix attached to PRIMARY KEY/NOT NULL/UNIQUE column constraints.
type ConflictClause int

const (
	ConflictNone ConflictClause = iota
	ConflictRollback
	ConflictAbort
	ConflictFail
	ConflictIgnore
	ConflictReplace
)

// ColumnConstraintKind discriminates ColumnConstraint variants.
type ColumnConstraintKind int

const (
	ConstraintPrimaryKey ColumnConstraintKind = iota
	ConstraintNotNull
	ConstraintUnique
	ConstraintCheck
	ConstraintDefault
	ConstraintCollate
	ConstraintReferences
	ConstraintGenerated
)

// ColumnConstraint is one constraint clause attached to a column definition.
type ColumnConstraint struct {
	Kind ColumnConstraintKind
	Name string // optional CONSTRAINT name

	Order    OrderDir       // ConstraintPrimaryKey
	Conflict ConflictClause // PrimaryKey/NotNull/Unique

	AutoIncrement bool // ConstraintPrimaryKey

	CheckExpr Expr // ConstraintCheck

	DefaultExpr    Expr    // ConstraintDefault: expr or literal or signed-number form
	DefaultIsParen bool    // true if the default was written as `DEFAULT (expr)`

	CollationName string // ConstraintCollate

	References *ForeignKeyClause // ConstraintReferences

	GeneratedExpr  Expr // ConstraintGenerated
	GeneratedAlways bool
	Stored          bool // true=STORED, false=VIRTUAL (VIRTUAL is the default)
}

// ForeignKeyClause is `REFERENCES table(col, ...) [ON DELETE action] [ON UPDATE action]`.
type ForeignKeyClause struct {
	Table      *Ident
	Columns    []string
	OnDelete   string // "", "CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT", "NO ACTION"
	OnUpdate   string
	Deferrable bool
	Sp         lexer.Span
}

// ColumnDef is one column declaration inside CREATE TABLE.
type ColumnDef struct {
	Name        string
	Type        TypeName
	Constraints []ColumnConstraint
	Sp          lexer.Span
}

// TableConstraintKind discriminates table-level constraints.
type TableConstraintKind int

const (
	TableConstraintPrimaryKey TableConstraintKind = iota
	TableConstraintUnique
	TableConstraintCheck
	TableConstraintForeignKey
)

// TableConstraint is a table-level constraint clause.
type TableConstraint struct {
	Kind       TableConstraintKind
	Name       string
	Columns    []string // PrimaryKey / Unique / ForeignKey (local side)
	Conflict   ConflictClause
	CheckExpr  Expr
	References *ForeignKeyClause // ForeignKey
	Sp         lexer.Span
}

// CreateTableStmt is `CREATE [TEMP|TEMPORARY] TABLE [IF NOT EXISTS] name (...) [STRICT] [WITHOUT ROWID]`
// or the `CREATE TABLE name AS SELECT ...` form (AsSelect non-nil, Columns/Constraints empty).
type CreateTableStmt struct {
	Name              *Ident
	Temporary         bool
	IfNotExists       bool
	Columns           []ColumnDef
	TableConstraints  []TableConstraint
	Strict            bool
	WithoutRowID      bool
	AsSelect          *SelectStmt
	Sp                lexer.Span
}

func (c *CreateTableStmt) Span() lexer.Span { return c.Sp }
func (*CreateTableStmt) stmtNode()          {}

// AlterTableAction discriminates ALTER TABLE sub-forms.
type AlterTableAction int

const (
	AlterRenameTable AlterTableAction = iota
	AlterRenameColumn
	AlterAddColumn
	AlterDropColumn
)

// AlterTableStmt is any `ALTER TABLE name ...` statement.
type AlterTableStmt struct {
	Table      *Ident
	Action     AlterTableAction
	NewName    string     // AlterRenameTable / AlterRenameColumn (to)
	OldName    string     // AlterRenameColumn (from) / AlterDropColumn
	AddColumn  *ColumnDef // AlterAddColumn
	Sp         lexer.Span
}

func (a *AlterTableStmt) Span() lexer.Span { return a.Sp }
func (*AlterTableStmt) stmtNode()          {}

// DropTableStmt is `DROP TABLE [IF EXISTS] name`.
type DropTableStmt struct {
	Name     *Ident
	IfExists bool
	Sp       lexer.Span
}

func (d *DropTableStmt) Span() lexer.Span { return d.Sp }
func (*DropTableStmt) stmtNode()          {}

// CreateIndexStmt is `CREATE [UNIQUE] INDEX [IF NOT EXISTS] name ON table (cols) [WHERE pred]`.
type CreateIndexStmt struct {
	Name        *Ident
	Table       *Ident
	Unique      bool
	IfNotExists bool
	Columns     []IndexedColumn
	Where       Expr
	Sp          lexer.Span
}

func (c *CreateIndexStmt) Span() lexer.Span { return c.Sp }
func (*CreateIndexStmt) stmtNode()          {}

// IndexedColumn is one column (or expression) participating in an index.
type IndexedColumn struct {
	Name string // set when the indexed term is a bare column reference
	Expr Expr   // set for an indexed expression
	Dir  OrderDir
}

// DropIndexStmt is `DROP INDEX [IF EXISTS] name`.
type DropIndexStmt struct {
	Name     *Ident
	IfExists bool
	Sp       lexer.Span
}

func (d *DropIndexStmt) Span() lexer.Span { return d.Sp }
func (*DropIndexStmt) stmtNode()          {}

// CreateTriggerStmt is `CREATE TRIGGER name [BEFORE|AFTER|INSTEAD OF] event ON table [FOR EACH ROW] [WHEN cond] BEGIN stmts END`.
// Trigger bodies are parsed structurally (the inner statements) but are not
// deeply type-checked per spec.md §1's non-goals; the analyzer only checks
// that every table the body references still exists.
type CreateTriggerStmt struct {
	Name        *Ident
	IfNotExists bool
	Timing      string // "BEFORE", "AFTER", "INSTEAD OF", ""
	Event       string // "INSERT", "UPDATE", "DELETE"
	UpdateOf    []string
	Table       *Ident
	When        Expr
	Body        []Stmt
	Sp          lexer.Span
}

func (c *CreateTriggerStmt) Span() lexer.Span { return c.Sp }
func (*CreateTriggerStmt) stmtNode()          {}

// DropTriggerStmt is `DROP TRIGGER [IF EXISTS] name`.
type DropTriggerStmt struct {
	Name     *Ident
	IfExists bool
	Sp       lexer.Span
}

func (d *DropTriggerStmt) Span() lexer.Span { return d.Sp }
func (*DropTriggerStmt) stmtNode()          {}

// CreateViewStmt is `CREATE VIEW [IF NOT EXISTS] name [(cols)] AS select`.
type CreateViewStmt struct {
	Name        *Ident
	IfNotExists bool
	Columns     []string
	Select      *SelectStmt
	Sp          lexer.Span
}

func (c *CreateViewStmt) Span() lexer.Span { return c.Sp }
func (*CreateViewStmt) stmtNode()          {}

// DropViewStmt is `DROP VIEW [IF EXISTS] name`.
type DropViewStmt struct {
	Name     *Ident
	IfExists bool
	Sp       lexer.Span
}

func (d *DropViewStmt) Span() lexer.Span { return d.Sp }
func (*DropViewStmt) stmtNode()          {}

// ReindexStmt is `REINDEX [name]`; name may refer to a table or an index.
type ReindexStmt struct {
	Name *Ident // nil means reindex everything
	Sp   lexer.Span
}

func (r *ReindexStmt) Span() lexer.Span { return r.Sp }
func (*ReindexStmt) stmtNode()          {}

// PragmaStmt is `PRAGMA name [= value | (value)]`.
type PragmaStmt struct {
	Name  string
	Value Expr // nil if the pragma has no argument
	Sp    lexer.Span
}

func (p *PragmaStmt) Span() lexer.Span { return p.Sp }
func (*PragmaStmt) stmtNode()          {}

// ResultColumn is one item of a SELECT's result-column list.
type ResultColumn struct {
	Star      *StarExpr // set for `*` / `table.*`
	Expr      Expr      // set for a scalar result expression
	Alias     string    // explicit `AS alias`, empty if absent
	Sp        lexer.Span
}

// SetOp chains SELECT cores with UNION/UNION ALL/INTERSECT/EXCEPT.
type SetOp int

const (
	SetOpNone SetOp = iota
	SetOpUnion
	SetOpUnionAll
	SetOpIntersect
	SetOpExcept
)

// SelectCore is one `SELECT ... FROM ... WHERE ...` unit, or a VALUES list.
type SelectCore struct {
	Distinct bool
	Columns  []ResultColumn
	From     TableExpr // nil if FROM is absent
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Windows  []NamedWindow
	Values   [][]Expr // set for the `VALUES (...), (...)` form; Columns/From unused
	Sp       lexer.Span
}

// NamedWindow is one `WINDOW name AS (...)` clause.
type NamedWindow struct {
	Name string
	Spec *WindowSpec
}

// OrderItem is one `expr [ASC|DESC]` entry of an ORDER BY clause.
type OrderItem struct {
	Expr Expr
	Dir  OrderDir
}

// SelectStmt is a full SELECT: one or more SelectCores chained by set
// operators, plus an optional WITH clause, ORDER BY, and LIMIT/OFFSET.
type SelectStmt struct {
	CTEs    []CTE
	Cores   []SelectCore
	SetOps  []SetOp // len(SetOps) == len(Cores)-1
	OrderBy []OrderItem
	Limit   Expr
	Offset  Expr
	Sp      lexer.Span
}

func (s *SelectStmt) Span() lexer.Span { return s.Sp }
func (*SelectStmt) stmtNode()          {}
func (*SelectStmt) exprNode()          {} // usable as a scalar subquery operand too

// CTE is one `name [(cols)] AS (select)` common table expression.
type CTE struct {
	Name      string
	Columns   []string
	Recursive bool
	Select    *SelectStmt
	Sp        lexer.Span
}

// TableExpr is the sum type of FROM-clause items.
type TableExpr interface {
	Node
	tableExprNode()
}

// TableName is a base table reference, optionally aliased.
type TableName struct {
	Name    *Ident
	Alias   string
	Indexed string // INDEXED BY name, if present
	NotIndexed bool
	Sp      lexer.Span
}

func (t *TableName) Span() lexer.Span { return t.Sp }
func (*TableName) tableExprNode()      {}

// SubqueryTable is `(select) [AS alias]`.
type SubqueryTable struct {
	Select *SelectStmt
	Alias  string
	Sp     lexer.Span
}

func (s *SubqueryTable) Span() lexer.Span { return s.Sp }
func (*SubqueryTable) tableExprNode()      {}

// ParenTable is a parenthesized table-or-subquery list: `(items, ...)`,
// which behaves as a cross join of its members.
type ParenTable struct {
	Items []TableExpr
	Sp    lexer.Span
}

func (p *ParenTable) Span() lexer.Span { return p.Sp }
func (*ParenTable) tableExprNode()      {}

// JoinKind enumerates the join operators the grammar accepts.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinLeftOuter
	JoinRight
	JoinRightOuter
	JoinFull
	JoinFullOuter
	JoinCross
	JoinComma // implicit comma-join, equivalent to JoinCross for typing purposes
	JoinNatural
)

// JoinExpr is `left kind JOIN right [ON cond | USING (cols)]`.
type JoinExpr struct {
	Left, Right TableExpr
	Kind        JoinKind
	On          Expr
	UsingCols   []string
	Sp          lexer.Span
}

func (j *JoinExpr) Span() lexer.Span { return j.Sp }
func (*JoinExpr) tableExprNode()      {}

// IsOuter reports whether this join kind nulls out one side's columns.
func (k JoinKind) IsOuter() bool {
	switch k {
	case JoinLeft, JoinLeftOuter, JoinRight, JoinRightOuter, JoinFull, JoinFullOuter:
		return true
	default:
		return false
	}
}

// InsertMode covers the INSERT / INSERT OR REPLACE / REPLACE forms.
type InsertMode int

const (
	InsertNormal InsertMode = iota
	InsertOrReplace
	InsertOrRollback
	InsertOrAbort
	InsertOrFail
	InsertOrIgnore
)

// InsertStmt is `INSERT [mode] INTO table [(cols)] VALUES (...) | SELECT ... [ON CONFLICT ...] [RETURNING ...]`.
type InsertStmt struct {
	Mode       InsertMode
	Table      *Ident
	Columns    []string
	Values     [][]Expr    // set when the source is VALUES
	Select     *SelectStmt // set when the source is SELECT
	Conflict   *OnConflictClause
	Returning  []ResultColumn
	Sp         lexer.Span
}

func (i *InsertStmt) Span() lexer.Span { return i.Sp }
func (*InsertStmt) stmtNode()          {}

// OnConflictClause is `ON CONFLICT [(cols) [WHERE pred]] DO NOTHING | DO UPDATE SET ... [WHERE pred]`.
type OnConflictClause struct {
	TargetColumns []string
	TargetWhere   Expr
	DoNothing     bool
	Assignments   []Assignment
	UpdateWhere   Expr
	Sp            lexer.Span
}

// Assignment is one `col = expr` or `(col, ...) = (expr, ...)` SET entry.
type Assignment struct {
	Columns []string // len 1 for scalar form, >1 for tuple form
	Values  []Expr   // aligned with Columns
	Sp      lexer.Span
}

// UpdateStmt is `UPDATE table SET assignments [FROM ...] [WHERE] [RETURNING]`.
type UpdateStmt struct {
	Table     *Ident
	Mode      InsertMode // OR REPLACE / OR IGNORE / etc. apply to UPDATE too
	Assignments []Assignment
	From      TableExpr
	Where     Expr
	Returning []ResultColumn
	Sp        lexer.Span
}

func (u *UpdateStmt) Span() lexer.Span { return u.Sp }
func (*UpdateStmt) stmtNode()          {}

// DeleteStmt is `DELETE FROM table [WHERE] [RETURNING]`.
type DeleteStmt struct {
	Table     *Ident
	Where     Expr
	Returning []ResultColumn
	Sp        lexer.Span
}

func (d *DeleteStmt) Span() lexer.Span { return d.Sp }
func (*DeleteStmt) stmtNode()          {}

// QueryCommand is the `:one`/`:many`/`:exec`/`:execresult` tag from the
// block query-definition form. When present it overrides the analyzer's
// inferred cardinality (§4.6); a `:one` tag on a query inferred to return
// many rows additionally produces a warning.
type QueryCommand int

const (
	CommandUnspecified QueryCommand = iota
	CommandOne
	CommandMany
	CommandExec
	CommandExecResult
)

// QueryDef is a named user query, accepted in either the `name: <stmt>;`
// block form or the `DEFINE QUERY name(...) AS <stmt>;` wrapped form (both
// are accepted simultaneously in a single file, per spec.md's open question).
type QueryDef struct {
	Name       string
	Command    QueryCommand
	InputType  string // explicit (input: Ty) name, if given
	OutputType string // explicit (output: Ty) name, if given
	Doc        string
	Statement  Stmt // *SelectStmt, *InsertStmt, *UpdateStmt, or *DeleteStmt
	Wrapped    bool // true if written as DEFINE QUERY ... AS ...
	Sp         lexer.Span
}

func (q *QueryDef) Span() lexer.Span { return q.Sp }
func (*QueryDef) stmtNode()          {}

// File is the parsed contents of one source file: an ordered statement list.
type File struct {
	Path       string
	Statements []Stmt
}
