package diagnostics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqlweave/sqlweave/internal/analyzer"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/parser"
	"github.com/sqlweave/sqlweave/internal/schema"
)

func span(file string, line, col int) lexer.Span {
	return lexer.Span{File: file, StartLine: line, StartColumn: col, EndLine: line, EndColumn: col}
}

func TestFromAnalyzer(t *testing.T) {
	tests := []struct {
		name     string
		input    analyzer.Diagnostic
		expected Diagnostic
	}{
		{
			name: "error severity",
			input: analyzer.Diagnostic{
				Span:     span("test.sql", 10, 5),
				Message:  "test error",
				Severity: analyzer.SeverityError,
			},
			expected: Diagnostic{
				Severity: SeverityError,
				Message:  "test error",
				Location: Location{Path: "test.sql", Line: 10, Column: 5},
				Source:   "analyzer",
			},
		},
		{
			name: "warning severity",
			input: analyzer.Diagnostic{
				Span:     span("test.sql", 10, 5),
				Message:  "test warning",
				Severity: analyzer.SeverityWarning,
			},
			expected: Diagnostic{
				Severity: SeverityWarning,
				Message:  "test warning",
				Location: Location{Path: "test.sql", Line: 10, Column: 5},
				Source:   "analyzer",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAnalyzer(tt.input)
			if got.Severity != tt.expected.Severity {
				t.Errorf("Severity = %v, want %v", got.Severity, tt.expected.Severity)
			}
			if got.Message != tt.expected.Message {
				t.Errorf("Message = %q, want %q", got.Message, tt.expected.Message)
			}
			if got.Location != tt.expected.Location {
				t.Errorf("Location = %+v, want %+v", got.Location, tt.expected.Location)
			}
			if got.Source != tt.expected.Source {
				t.Errorf("Source = %q, want %q", got.Source, tt.expected.Source)
			}
		})
	}
}

func TestFromParser(t *testing.T) {
	input := parser.Diagnostic{
		Span:     span("queries.sql", 5, 10),
		Message:  "unexpected token",
		Severity: parser.SeverityError,
	}

	got := FromParser(input)

	if got.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", got.Severity, SeverityError)
	}
	if got.Source != "parser" {
		t.Errorf("Source = %q, want %q", got.Source, "parser")
	}
	if got.Code != ErrQueryInvalidSyntax {
		t.Errorf("Code = %q, want %q", got.Code, ErrQueryInvalidSyntax)
	}
}

func TestFromSchema(t *testing.T) {
	input := schema.Diagnostic{
		Span:     span("schema.sql", 3, 15),
		Message:  "duplicate table \"users\"",
		Severity: schema.SeverityError,
	}

	got := FromSchema(input)

	if got.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", got.Severity, SeverityError)
	}
	if got.Source != "schema" {
		t.Errorf("Source = %q, want %q", got.Source, "schema")
	}
	if got.Code != ErrSchemaDuplicateTable {
		t.Errorf("Code = %q, want %q", got.Code, ErrSchemaDuplicateTable)
	}
}

func TestCollectionFromAnalyzer(t *testing.T) {
	inputs := []analyzer.Diagnostic{
		{Span: span("a.sql", 1, 1), Message: "error 1", Severity: analyzer.SeverityError},
		{Span: span("b.sql", 2, 1), Message: "warning 1", Severity: analyzer.SeverityWarning},
	}

	c := CollectionFromAnalyzer(inputs)

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	errs := c.Errors()
	if len(errs) != 1 {
		t.Errorf("Errors() = %d, want 1", len(errs))
	}
}

func TestCollectionFromParser(t *testing.T) {
	inputs := []parser.Diagnostic{
		{Span: span("a.sql", 1, 1), Message: "syntax error", Severity: parser.SeverityError},
	}
	c := CollectionFromParser(inputs)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCollectionFromSchema(t *testing.T) {
	inputs := []schema.Diagnostic{
		{Span: span("schema.sql", 1, 1), Message: "unknown table \"x\"", Severity: schema.SeverityError},
	}
	c := CollectionFromSchema(inputs)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if c.All()[0].Code != ErrSchemaUnknownTable {
		t.Errorf("Code = %q, want %q", c.All()[0].Code, ErrSchemaUnknownTable)
	}
}

func TestEnrichWithContext(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.sql")
	content := "SELECT col1\nFROM users\nWHERE id = ?"
	if err := os.WriteFile(tmpFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	c := NewCollection()
	c.Add(Error("test error").At(tmpFile, 2, 5).Build())

	extractor := NewContextExtractor()
	EnrichWithContext(c, extractor, 1)

	all := c.All()
	if len(all) != 1 {
		t.Fatal("Expected 1 diagnostic")
	}

	if all[0].Context == "" {
		t.Error("Expected context to be enriched")
	}

	if !strings.Contains(all[0].Context, "FROM users") {
		t.Errorf("Context should contain 'FROM users', got: %s", all[0].Context)
	}
}

func TestEnrichWithContextNoLocation(t *testing.T) {
	c := NewCollection()
	c.Add(Error("test error").Build()) // No location

	extractor := NewContextExtractor()
	EnrichWithContext(c, extractor, 1)

	all := c.All()
	if all[0].Context != "" {
		t.Error("Expected no context for diagnostic without location")
	}
}

func TestEnrichWithContextExistingContext(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.sql")
	if err := os.WriteFile(tmpFile, []byte("SELECT 1"), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	c := NewCollection()
	c.Add(Error("test error").At(tmpFile, 1, 1).WithContext("existing context").Build())

	extractor := NewContextExtractor()
	EnrichWithContext(c, extractor, 1)

	all := c.All()
	if all[0].Context != "existing context" {
		t.Error("Should not overwrite existing context")
	}
}

func TestAddSuggestions(t *testing.T) {
	tests := []struct {
		name             string
		message          string
		expectSuggestion bool
		expectNote       bool
	}{
		{
			name:             "unknown column",
			message:          "unknown column 'foo'",
			expectSuggestion: true,
			expectNote:       true,
		},
		{
			name:             "unknown table",
			message:          "unknown table 'users'",
			expectSuggestion: true,
			expectNote:       true,
		},
		{
			name:             "ambiguous column",
			message:          "ambiguous column 'id'",
			expectSuggestion: true,
			expectNote:       true,
		},
		{
			name:             "requires alias",
			message:          "aggregate requires an alias",
			expectSuggestion: true,
			expectNote:       true,
		},
		{
			name:             "no match",
			message:          "some other error",
			expectSuggestion: false,
			expectNote:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Error(tt.message).Build()
			enriched := addSuggestions(d)

			hasSuggestion := len(enriched.Suggestions) > 0
			if hasSuggestion != tt.expectSuggestion {
				t.Errorf("hasSuggestion = %v, want %v", hasSuggestion, tt.expectSuggestion)
			}

			hasNote := len(enriched.Notes) > 0
			if hasNote != tt.expectNote {
				t.Errorf("hasNote = %v, want %v", hasNote, tt.expectNote)
			}
		})
	}
}

func TestEnrichWithSuggestions(t *testing.T) {
	c := NewCollection()
	c.Add(Error("unknown column 'foo'").Build())
	c.Add(Error("some other error").Build())

	EnrichWithSuggestions(c)

	all := c.All()
	if len(all) != 2 {
		t.Fatal("Expected 2 diagnostics")
	}

	if len(all[0].Suggestions) == 0 {
		t.Error("Expected first diagnostic to have suggestions")
	}

	if len(all[1].Suggestions) > 0 {
		t.Error("Expected second diagnostic to have no suggestions")
	}
}

func TestEditorFormat(t *testing.T) {
	d := Error("unknown column").At("q.sql", 3, 7).Build()
	want := "q.sql:3:7: error: unknown column"
	if got := d.EditorFormat(); got != want {
		t.Errorf("EditorFormat() = %q, want %q", got, want)
	}

	noLoc := Warning("deprecated").Build()
	if got := noLoc.EditorFormat(); got != "warning: deprecated" {
		t.Errorf("EditorFormat() = %q, want %q", got, "warning: deprecated")
	}
}
