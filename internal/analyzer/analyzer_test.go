package analyzer_test

import (
	"testing"

	"github.com/sqlweave/sqlweave/internal/analyzer"
	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/parser"
	"github.com/sqlweave/sqlweave/internal/schema"
)

func buildCatalog(t *testing.T, sql string) *schema.Catalog {
	t.Helper()
	toks, _ := lexer.Scan("schema.sql", []byte(sql))
	f, diags := parser.Parse("schema.sql", toks)
	if len(diags) != 0 {
		t.Fatalf("parse: %v", diags)
	}
	ev := schema.NewEvolver()
	ev.ApplyFile(f)
	if diags := ev.Diagnostics(); len(diags) != 0 {
		t.Fatalf("evolve: %v", diags)
	}
	return ev.Catalog()
}

func parseQuery(t *testing.T, sql string) *ast.QueryDef {
	t.Helper()
	toks, _ := lexer.Scan("q.sql", []byte(sql))
	f, diags := parser.Parse("q.sql", toks)
	if len(diags) != 0 {
		t.Fatalf("parse query: %v", diags)
	}
	if len(f.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(f.Statements))
	}
	qd, ok := f.Statements[0].(*ast.QueryDef)
	if !ok {
		t.Fatalf("statement is %T, want *ast.QueryDef", f.Statements[0])
	}
	return qd
}

func analyze(t *testing.T, cat *schema.Catalog, sql string) analyzer.Result {
	t.Helper()
	qd := parseQuery(t, sql)
	a := analyzer.New(cat)
	return a.AnalyzeStatement(qd.Statement, qd.Command)
}

func TestUnknownColumnIsError(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `bad: SELECT nope FROM users;`)
	if len(res.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic for an unknown column")
	}
	if res.Diagnostics[0].Severity != analyzer.SeverityError {
		t.Fatalf("severity = %v, want error", res.Diagnostics[0].Severity)
	}
}

func TestAmbiguousBareColumnAcrossJoinIsError(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE a (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE b (id INTEGER PRIMARY KEY, name TEXT NOT NULL, a_id INTEGER NOT NULL REFERENCES a(id));
	`)
	res := analyze(t, cat, `bad: SELECT name FROM a JOIN b ON b.a_id = a.id;`)
	if len(res.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic for an ambiguous bare column reference")
	}
}

func TestQualifiedColumnResolvesDespiteAmbiguity(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE a (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE b (id INTEGER PRIMARY KEY, name TEXT NOT NULL, a_id INTEGER NOT NULL REFERENCES a(id));
	`)
	res := analyze(t, cat, `ok: SELECT a.name FROM a JOIN b ON b.a_id = a.id;`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	if len(res.Columns) != 1 || res.Columns[0].Name != "name" {
		t.Fatalf("columns = %+v", res.Columns)
	}
}

func TestOuterJoinStarExpansionMarksNullableAsWhole(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE parent (id INTEGER PRIMARY KEY);
		CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parent(id), label TEXT NOT NULL);
	`)
	res := analyze(t, cat, `ok: SELECT child.* FROM parent LEFT OUTER JOIN child ON child.parent_id = parent.id;`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	if len(res.Columns) == 0 {
		t.Fatal("expected child.* to expand to its columns")
	}
	for _, c := range res.Columns {
		if !c.NullableAsWhole {
			t.Fatalf("column %+v should be NullableAsWhole on the outer-join side", c)
		}
	}
}

func TestParamTypeUnifiesAcrossOccurrences(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `ok: SELECT id FROM users WHERE email = :who OR email = :who;`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	if len(res.Params) != 1 {
		t.Fatalf("expected the two :who occurrences to collapse into one parameter, got %+v", res.Params)
	}
	if res.Params[0].Name != "who" {
		t.Fatalf("param name = %q, want %q", res.Params[0].Name, "who")
	}
}

func TestParamTypeMismatchAcrossOccurrencesIsError(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, age INTEGER NOT NULL, email TEXT NOT NULL);`)
	res := analyze(t, cat, `bad: SELECT id FROM users WHERE age = :who AND email = :who;`)
	if len(res.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic when :who is used at two incompatible types")
	}
}

func TestWherePinsPrimaryKeyInfersOneCardinality(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `byID: SELECT email FROM users WHERE id = :id;`)
	if res.Cardinality != analyzer.CardinalityOne {
		t.Fatalf("cardinality = %v, want one", res.Cardinality)
	}
}

func TestPartialPrimaryKeyWhereInfersManyCardinality(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE members (org_id INTEGER NOT NULL, user_id INTEGER NOT NULL, email TEXT NOT NULL, PRIMARY KEY (org_id, user_id));`)
	res := analyze(t, cat, `byOrg: SELECT email FROM members WHERE org_id = :orgID;`)
	if res.Cardinality != analyzer.CardinalityMany {
		t.Fatalf("cardinality = %v, want many (only part of the composite key is pinned)", res.Cardinality)
	}
}

func TestExplicitOneTagOverridesInferenceWithWarning(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `all :one: SELECT email FROM users;`)
	if res.Cardinality != analyzer.CardinalityOne {
		t.Fatalf("cardinality = %v, want one (explicit tag wins)", res.Cardinality)
	}
	if len(res.Diagnostics) == 0 || res.Diagnostics[0].Severity != analyzer.SeverityWarning {
		t.Fatalf("expected a warning when :one contradicts the inferred shape, got %+v", res.Diagnostics)
	}
}

func TestExecCardinalityForDML(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `touch: UPDATE users SET email = :email WHERE id = :id;`)
	if res.Cardinality != analyzer.CardinalityExec {
		t.Fatalf("cardinality = %v, want exec", res.Cardinality)
	}
}

func TestReturningOnUpdatePinsCardinalityByPrimaryKey(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `touch: UPDATE users SET email = :email WHERE id = :id RETURNING id, email;`)
	if res.Cardinality != analyzer.CardinalityOne {
		t.Fatalf("cardinality = %v, want one for a RETURNING update pinned by primary key", res.Cardinality)
	}
}

func TestCorrelatedSubqueryResolvesOuterColumn(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL);
		CREATE TABLE users (id INTEGER PRIMARY KEY);
	`)
	res := analyze(t, cat, `ok: SELECT id FROM orders WHERE EXISTS (SELECT 1 FROM users WHERE users.id = orders.user_id);`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
}

func TestSetOperationColumnCountMismatchIsError(t *testing.T) {
	cat := buildCatalog(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`)
	res := analyze(t, cat, `bad: SELECT id FROM users UNION SELECT id, email FROM users;`)
	if len(res.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic for mismatched set-operation arity")
	}
}

func TestUnsupportedStatementKindIsError(t *testing.T) {
	a := analyzer.New(schema.NewEvolver().Catalog())
	res := a.AnalyzeStatement(&ast.CreateTableStmt{}, ast.CommandUnspecified)
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != analyzer.SeverityError {
		t.Fatalf("diagnostics = %+v, want one error diagnostic", res.Diagnostics)
	}
}
