package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sqlweave/sqlweave/internal/driver"
)

func writeFixture(b *testing.B, dir string) string {
	b.Helper()

	migrations := filepath.Join(dir, "migrations")
	queries := filepath.Join(dir, "queries")
	if err := os.MkdirAll(migrations, 0o755); err != nil {
		b.Fatalf("mkdir migrations: %v", err)
	}
	if err := os.MkdirAll(queries, 0o755); err != nil {
		b.Fatalf("mkdir queries: %v", err)
	}

	schema := `
CREATE TABLE users (
  id INTEGER PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  bio TEXT
);

CREATE TABLE posts (
  id INTEGER PRIMARY KEY,
  author_id INTEGER NOT NULL REFERENCES users(id),
  title TEXT NOT NULL,
  body TEXT
);
`
	if err := os.WriteFile(filepath.Join(migrations, "0001_init.sql"), []byte(schema), 0o644); err != nil {
		b.Fatalf("write migration: %v", err)
	}

	queryText := `
GetUser: SELECT id, username, email, bio FROM users WHERE id = :id;
ListUsers: SELECT id, username FROM users;
ListPostsByAuthor: SELECT posts.id, posts.title, users.username FROM posts JOIN users ON users.id = posts.author_id WHERE posts.author_id = :authorID;
DEFINE QUERY CountPosts(output: Count) AS SELECT COUNT(*) AS total FROM posts;
`
	if err := os.WriteFile(filepath.Join(queries, "users.sql"), []byte(queryText), 0o644); err != nil {
		b.Fatalf("write queries: %v", err)
	}

	manifest := `
migrations = "migrations"
queries = "queries"
`
	configPath := filepath.Join(dir, "sqlweave.toml")
	if err := os.WriteFile(configPath, []byte(manifest), 0o644); err != nil {
		b.Fatalf("write manifest: %v", err)
	}

	return configPath
}

func BenchmarkDriverRun(b *testing.B) {
	configPath := writeFixture(b, b.TempDir())
	ctx := context.Background()
	d := driver.Driver{}

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		summary, err := d.Run(ctx, driver.RunOptions{ConfigPath: configPath})
		if err != nil {
			b.Fatalf("run: %v", err)
		}
		if summary.Diagnostics.HasErrors() {
			b.Fatalf("unexpected errors: %v", summary.Diagnostics.Errors())
		}
	}
}

func BenchmarkDriverRunBoundedConcurrency(b *testing.B) {
	configPath := writeFixture(b, b.TempDir())
	ctx := context.Background()
	d := driver.Driver{}

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		summary, err := d.Run(ctx, driver.RunOptions{ConfigPath: configPath, Concurrency: 2})
		if err != nil {
			b.Fatalf("run: %v", err)
		}
		if summary.Diagnostics.HasErrors() {
			b.Fatalf("unexpected errors: %v", summary.Diagnostics.Errors())
		}
	}
}
