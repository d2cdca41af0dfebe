package schema_test

import (
	"testing"

	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/parser"
	"github.com/sqlweave/sqlweave/internal/schema"
)

func TestEvolveCreateTableThenAddColumn(t *testing.T) {
	toks1, _ := lexer.Scan("001_init.sql", []byte(`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);`))
	f1, diags1 := parser.Parse("001_init.sql", toks1)
	if len(diags1) != 0 {
		t.Fatalf("parse 1: %v", diags1)
	}
	toks2, _ := lexer.Scan("002_add_bio.sql", []byte(`ALTER TABLE users ADD COLUMN bio TEXT;`))
	f2, diags2 := parser.Parse("002_add_bio.sql", toks2)
	if len(diags2) != 0 {
		t.Fatalf("parse 2: %v", diags2)
	}

	ev := schema.NewEvolver()
	ev.ApplyFile(f1)
	ev.ApplyFile(f2)
	if diags := ev.Diagnostics(); len(diags) != 0 {
		t.Fatalf("evolution diagnostics: %v", diags)
	}
	tbl := ev.Catalog().Tables["users"]
	if tbl == nil {
		t.Fatalf("table users not found")
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(tbl.Columns))
	}
	email := tbl.ColumnByName("email")
	if email == nil || email.Type.IsOptional() {
		t.Fatalf("email should be NOT NULL (non-optional): %+v", email)
	}
	bio := tbl.ColumnByName("bio")
	if bio == nil || !bio.Type.IsOptional() {
		t.Fatalf("bio should be nullable (optional): %+v", bio)
	}
}

func TestEvolveForeignKeyToUnknownTableIsError(t *testing.T) {
	toks, _ := lexer.Scan("t.sql", []byte(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id)
	);`))
	f, diags := parser.Parse("t.sql", toks)
	if len(diags) != 0 {
		t.Fatalf("parse: %v", diags)
	}
	ev := schema.NewEvolver()
	ev.ApplyFile(f)
	if len(ev.Diagnostics()) == 0 {
		t.Fatalf("expected a diagnostic for the dangling foreign key")
	}
}

func TestEvolveDropTableRemovesIt(t *testing.T) {
	toks1, _ := lexer.Scan("a.sql", []byte(`CREATE TABLE t (id INTEGER PRIMARY KEY);`))
	f1, _ := parser.Parse("a.sql", toks1)
	toks2, _ := lexer.Scan("b.sql", []byte(`DROP TABLE t;`))
	f2, _ := parser.Parse("b.sql", toks2)

	ev := schema.NewEvolver()
	ev.ApplyFile(f1)
	ev.ApplyFile(f2)
	if _, ok := ev.Catalog().Tables["t"]; ok {
		t.Fatalf("table t should have been dropped")
	}
}

func TestEvolveRequireStrictTablesPragmaRejectsNonStrictTable(t *testing.T) {
	toks, _ := lexer.Scan("t.sql", []byte(`PRAGMA require_strict_tables = 1;
		CREATE TABLE loose (id INTEGER PRIMARY KEY);`))
	f, diags := parser.Parse("t.sql", toks)
	if len(diags) != 0 {
		t.Fatalf("parse: %v", diags)
	}
	ev := schema.NewEvolver()
	ev.ApplyFile(f)
	if len(ev.Diagnostics()) == 0 {
		t.Fatalf("expected a diagnostic: require_strict_tables is set but CREATE TABLE loose doesn't declare STRICT")
	}
}
