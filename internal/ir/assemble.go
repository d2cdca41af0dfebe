package ir

import (
	"sort"
	"strings"

	"github.com/sqlweave/sqlweave/internal/analyzer"
	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/schema"
)

// AssembleTables freezes a schema catalog's table shapes into the IR form
// handed to a code generator. Tables are sorted by name for determinism.
func AssembleTables(cat *schema.Catalog) []Table {
	names := cat.SortTableNames()
	out := make([]Table, 0, len(names))
	for _, name := range names {
		tbl := cat.Tables[name]
		cols := make([]Column, 0, len(tbl.Columns))
		for _, c := range tbl.Columns {
			cols = append(cols, Column{
				Name:     c.Name,
				Type:     c.Type,
				Adapter:  c.Adapter,
				Nullable: c.Type.IsOptional(),
			})
		}
		out = append(out, Table{Name: tbl.Name, Columns: cols})
	}
	return out
}

// AssembleQuery freezes one analyzed query definition into its final
// QueryIR form, per spec.md §4.7/§6.
func AssembleQuery(qd *ast.QueryDef, res analyzer.Result, statementSource string) Query {
	params := make([]Parameter, 0, len(res.Params))
	for i, p := range res.Params {
		params = append(params, Parameter{
			Index:    i + 1,
			Name:     p.Name,
			Type:     p.Type,
			Nullable: p.Type.IsOptional(),
		})
	}

	return Query{
		Name:           qd.Name,
		InputTypeName:  qd.InputType,
		OutputTypeName: qd.OutputType,
		Parameters:     params,
		OutputChunks:   assembleChunks(res.Columns),
		ObservedTables: observedTables(qd.Statement),
		Cardinality:    convertCardinality(res.Cardinality),
		SourceText:     SanitizeSourceText(statementSource),
	}
}

// assembleChunks groups consecutive ResultColumns sharing a non-empty
// SourceTable into one chunk each (a `table.*` expansion); everything else
// coalesces into adjacent free chunks, per spec.md §4.7.
func assembleChunks(cols []analyzer.ResultColumn) []Chunk {
	var chunks []Chunk
	for _, c := range cols {
		ref := ColumnRef{Name: c.Name, Type: c.Type}
		if c.SourceTable == "" {
			if n := len(chunks); n > 0 && chunks[n-1].SourceTable == "" {
				chunks[n-1].Columns = append(chunks[n-1].Columns, ref)
				continue
			}
			chunks = append(chunks, Chunk{Columns: []ColumnRef{ref}})
			continue
		}
		if n := len(chunks); n > 0 && chunks[n-1].SourceTable == c.SourceTable {
			chunks[n-1].Columns = append(chunks[n-1].Columns, ref)
			continue
		}
		chunks = append(chunks, Chunk{
			Columns:         []ColumnRef{ref},
			SourceTable:     c.SourceTable,
			NullableAsWhole: c.NullableAsWhole,
		})
	}
	return chunks
}

func convertCardinality(c analyzer.Cardinality) Cardinality {
	switch c {
	case analyzer.CardinalityOne:
		return CardinalitySingle
	case analyzer.CardinalityMany, analyzer.CardinalityExecResult:
		return CardinalityMany
	default:
		return CardinalityNone
	}
}

// SanitizeSourceText re-lexes statementSource and rejoins every token's raw
// text with a single space, which strips comments (the lexer never emits
// tokens for them) and normalizes whitespace, per spec.md §6's
// `source_text` field.
func SanitizeSourceText(statementSource string) string {
	toks, _ := lexer.Scan("<query>", []byte(statementSource))
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if t.Kind == lexer.KindEOF {
			continue
		}
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

// observedTables walks stmt for every base table name that appears in a
// FROM clause (including nested subqueries, CTEs, and the expressions that
// embed them) or as an INSERT/UPDATE/DELETE target, per spec.md §4.7.
func observedTables(stmt ast.Stmt) []string {
	seen := make(map[string]bool)
	walkStmt(stmt, seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func walkStmt(stmt ast.Stmt, seen map[string]bool) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		walkSelect(s, seen)
	case *ast.InsertStmt:
		seen[s.Table.Last()] = true
		if s.Select != nil {
			walkSelect(s.Select, seen)
		}
		for _, row := range s.Values {
			for _, e := range row {
				walkExpr(e, seen)
			}
		}
	case *ast.UpdateStmt:
		seen[s.Table.Last()] = true
		if s.From != nil {
			walkTableExpr(s.From, seen)
		}
		for _, a := range s.Assignments {
			for _, v := range a.Values {
				walkExpr(v, seen)
			}
		}
		if s.Where != nil {
			walkExpr(s.Where, seen)
		}
	case *ast.DeleteStmt:
		seen[s.Table.Last()] = true
		if s.Where != nil {
			walkExpr(s.Where, seen)
		}
	}
}

func walkSelect(s *ast.SelectStmt, seen map[string]bool) {
	for _, cte := range s.CTEs {
		walkSelect(cte.Select, seen)
	}
	for _, core := range s.Cores {
		if core.From != nil {
			walkTableExpr(core.From, seen)
		}
		for _, col := range core.Columns {
			if col.Expr != nil {
				walkExpr(col.Expr, seen)
			}
		}
		if core.Where != nil {
			walkExpr(core.Where, seen)
		}
		for _, g := range core.GroupBy {
			walkExpr(g, seen)
		}
		if core.Having != nil {
			walkExpr(core.Having, seen)
		}
		for _, row := range core.Values {
			for _, e := range row {
				walkExpr(e, seen)
			}
		}
	}
}

func walkTableExpr(te ast.TableExpr, seen map[string]bool) {
	switch t := te.(type) {
	case *ast.TableName:
		seen[t.Name.Last()] = true
	case *ast.SubqueryTable:
		walkSelect(t.Select, seen)
	case *ast.ParenTable:
		for _, item := range t.Items {
			walkTableExpr(item, seen)
		}
	case *ast.JoinExpr:
		walkTableExpr(t.Left, seen)
		walkTableExpr(t.Right, seen)
		if t.On != nil {
			walkExpr(t.On, seen)
		}
	}
}

func walkExpr(e ast.Expr, seen map[string]bool) {
	switch n := e.(type) {
	case *ast.ParenExpr:
		walkExpr(n.Inner, seen)
	case *ast.UnaryExpr:
		walkExpr(n.Operand, seen)
	case *ast.PostfixExpr:
		walkExpr(n.Operand, seen)
	case *ast.CollateExpr:
		walkExpr(n.Operand, seen)
	case *ast.EscapeExpr:
		walkExpr(n.Like, seen)
		walkExpr(n.Escape, seen)
	case *ast.BinaryExpr:
		walkExpr(n.Left, seen)
		walkExpr(n.Right, seen)
	case *ast.BetweenExpr:
		walkExpr(n.Operand, seen)
		walkExpr(n.Low, seen)
		walkExpr(n.High, seen)
	case *ast.InExpr:
		walkExpr(n.Operand, seen)
		for _, e := range n.List {
			walkExpr(e, seen)
		}
		if n.Subquery != nil {
			walkSelect(n.Subquery, seen)
		}
	case *ast.IsDistinctExpr:
		walkExpr(n.Left, seen)
		walkExpr(n.Right, seen)
	case *ast.CallExpr:
		for _, a := range n.Args {
			walkExpr(a, seen)
		}
		if n.Over != nil {
			for _, p := range n.Over.PartitionBy {
				walkExpr(p, seen)
			}
		}
	case *ast.CastExpr:
		walkExpr(n.Operand, seen)
	case *ast.CaseExpr:
		if n.Operand != nil {
			walkExpr(n.Operand, seen)
		}
		for _, w := range n.Whens {
			walkExpr(w.When, seen)
			walkExpr(w.Then, seen)
		}
		if n.Else != nil {
			walkExpr(n.Else, seen)
		}
	case *ast.ExistsExpr:
		walkSelect(n.Subquery, seen)
	case *ast.SubqueryExpr:
		walkSelect(n.Select, seen)
	}
}
