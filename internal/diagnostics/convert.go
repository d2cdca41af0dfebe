// Package diagnostics provides rich diagnostic information for sqlweave.
package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/sqlweave/sqlweave/internal/analyzer"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/parser"
	"github.com/sqlweave/sqlweave/internal/schema"
)

func locationFromSpan(sp lexer.Span) Location {
	return Location{Path: sp.File, Line: sp.StartLine, Column: sp.StartColumn}
}

// FromAnalyzer converts a query analyzer diagnostic to a rich diagnostic.
func FromAnalyzer(d analyzer.Diagnostic) Diagnostic {
	severity := SeverityWarning
	if d.Severity == analyzer.SeverityError {
		severity = SeverityError
	}
	return Diagnostic{
		Severity: severity,
		Message:  d.Message,
		Code:     classifyQueryAnalyzerError(d.Message),
		Location: locationFromSpan(d.Span),
		Source:   "analyzer",
	}
}

// FromParser converts a parser diagnostic to a rich diagnostic.
func FromParser(d parser.Diagnostic) Diagnostic {
	severity := SeverityWarning
	if d.Severity == parser.SeverityError {
		severity = SeverityError
	}
	return Diagnostic{
		Severity: severity,
		Message:  d.Message,
		Code:     classifyQueryParserError(d.Message),
		Location: locationFromSpan(d.Span),
		Source:   "parser",
	}
}

// FromSchema converts a schema-evolution diagnostic to a rich diagnostic.
func FromSchema(d schema.Diagnostic) Diagnostic {
	severity := SeverityWarning
	if d.Severity == schema.SeverityError {
		severity = SeverityError
	}
	return Diagnostic{
		Severity: severity,
		Message:  d.Message,
		Code:     classifySchemaParserError(d.Message),
		Location: locationFromSpan(d.Span),
		Source:   "schema",
	}
}

// CollectionFromAnalyzer converts a slice of analyzer diagnostics to a collection.
func CollectionFromAnalyzer(diags []analyzer.Diagnostic) *Collection {
	c := NewCollection()
	for _, d := range diags {
		c.Add(FromAnalyzer(d))
	}
	return c
}

// CollectionFromParser converts a slice of parser diagnostics to a collection.
func CollectionFromParser(diags []parser.Diagnostic) *Collection {
	c := NewCollection()
	for _, d := range diags {
		c.Add(FromParser(d))
	}
	return c
}

// CollectionFromSchema converts a slice of schema diagnostics to a collection.
func CollectionFromSchema(diags []schema.Diagnostic) *Collection {
	c := NewCollection()
	for _, d := range diags {
		c.Add(FromSchema(d))
	}
	return c
}

// EnrichWithContext adds code context to diagnostics that have file locations.
func EnrichWithContext(c *Collection, extractor *ContextExtractor, contextLines int) {
	all := c.All()
	c.diagnostics = c.diagnostics[:0] // Clear but keep capacity

	for _, d := range all {
		if d.HasLocation() && d.Context == "" {
			ctx, err := extractor.ExtractContext(d.Location.Path, d.Location.Line, d.Location.Column, contextLines)
			if err == nil && !ctx.IsEmpty() {
				d.Context = ctx.Format()
			}
		}
		c.Add(d)
	}
}

// EnrichWithSuggestions adds suggestions to common error patterns.
func EnrichWithSuggestions(c *Collection) {
	all := c.All()
	c.diagnostics = c.diagnostics[:0]

	for _, d := range all {
		d = addSuggestions(d)
		c.Add(d)
	}
}

func addSuggestions(d Diagnostic) Diagnostic {
	msg := strings.ToLower(d.Message)

	if strings.Contains(msg, "unknown column") {
		if len(d.Suggestions) == 0 {
			d.Suggestions = append(d.Suggestions, Suggestion{
				Message: "Check the column name for typos",
			})
		}
		d.Notes = append(d.Notes, "Column names are case-insensitive in SQLite")
		d.Notes = append(d.Notes, "Use schema files to define tables and columns")
	}

	if strings.Contains(msg, "unknown table") || strings.Contains(msg, "unknown relation") {
		if len(d.Suggestions) == 0 {
			d.Suggestions = append(d.Suggestions, Suggestion{
				Message: "Verify the table name is correct",
			})
		}
		d.Notes = append(d.Notes, "Ensure the table is defined in your schema files")
		d.Notes = append(d.Notes, "Check that the schema file is included in the 'migrations' config")
	}

	if strings.Contains(msg, "ambiguous") {
		if len(d.Suggestions) == 0 {
			d.Suggestions = append(d.Suggestions, Suggestion{
				Message:     "Add a table alias to disambiguate",
				Replacement: "table.column",
			})
		}
		d.Notes = append(d.Notes, "When multiple tables have the same column name, qualify with table alias")
	}

	if strings.Contains(msg, "requires an alias") {
		if len(d.Suggestions) == 0 {
			d.Suggestions = append(d.Suggestions, Suggestion{
				Message:     "Add an alias using AS",
				Replacement: "AS alias_name",
			})
		}
		d.Notes = append(d.Notes, "Aggregates and expressions in SELECT must have an alias for result naming")
	}

	if strings.Contains(msg, "cte") {
		if strings.Contains(msg, "missing") {
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Ensure CTE has a SELECT body"})
		}
		if strings.Contains(msg, "column") {
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Check that CTE column list matches SELECT columns"})
		}
	}

	if strings.Contains(msg, "parameter") {
		if strings.Contains(msg, "conflicting") {
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Use consistent parameter names for the same value"})
		}
		if strings.Contains(msg, "duplicate") {
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Remove duplicate parameter references"})
		}
	}

	if strings.Contains(msg, "duplicate") {
		if strings.Contains(msg, "table") {
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Remove duplicate table definition or rename"})
		}
		if strings.Contains(msg, "column") {
			d.Suggestions = append(d.Suggestions, Suggestion{Message: "Remove duplicate column or rename"})
		}
	}

	if strings.Contains(msg, "foreign key") {
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Ensure referenced table and column exist"})
		d.Notes = append(d.Notes, "Foreign keys must reference existing tables and columns")
	}

	if strings.Contains(msg, "defaulting to") && strings.Contains(msg, "interface{}") {
		d.Suggestions = append(d.Suggestions, Suggestion{Message: "Add explicit type casting or use a typed column"})
		d.Notes = append(d.Notes, "Type inference works best with schema-defined tables")
	}

	return d
}

// classifyQueryAnalyzerError determines the appropriate error code for analyzer messages.
func classifyQueryAnalyzerError(msg string) string {
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "unknown table") || strings.Contains(msgLower, "unknown relation"):
		return ErrQueryUnknownTable
	case strings.Contains(msgLower, "unknown column"):
		return ErrQueryUnknownColumn
	case strings.Contains(msgLower, "ambiguous"):
		return ErrQueryAmbiguousCol
	case strings.Contains(msgLower, "requires an alias"):
		return ErrQueryMissingAlias
	case strings.Contains(msgLower, "cte"):
		return ErrQueryInvalidCTE
	case strings.Contains(msgLower, "type") && strings.Contains(msgLower, "infer"):
		return WarnTypeInference
	default:
		return ""
	}
}

// classifyQueryParserError determines the appropriate error code for parser messages.
func classifyQueryParserError(msg string) string {
	msgLower := strings.ToLower(msg)
	// "cte" must be a whole word: "unexpected" contains it too.
	isCTE := false
	for _, w := range strings.FieldsFunc(msgLower, func(r rune) bool { return r < 'a' || r > 'z' }) {
		if w == "cte" {
			isCTE = true
		}
	}

	switch {
	case strings.Contains(msgLower, "unsupported"):
		return ErrQueryInvalidVerb
	case strings.Contains(msgLower, "parameter"):
		return ErrQueryInvalidParam
	case isCTE || strings.Contains(msgLower, "with clause"):
		return ErrQueryInvalidCTE
	case strings.Contains(msgLower, "alias"):
		return ErrQueryMissingAlias
	case strings.Contains(msgLower, "expected") || strings.Contains(msgLower, "unexpected"):
		return ErrQueryInvalidSyntax
	default:
		return ""
	}
}

// classifySchemaParserError determines the appropriate error code for schema messages.
func classifySchemaParserError(msg string) string {
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "duplicate table"):
		return ErrSchemaDuplicateTable
	case strings.Contains(msgLower, "duplicate view"):
		return ErrSchemaDuplicateView
	case strings.Contains(msgLower, "duplicate column"):
		return ErrSchemaDuplicateCol
	case strings.Contains(msgLower, "unknown table"):
		return ErrSchemaUnknownTable
	case strings.Contains(msgLower, "unknown column"):
		return ErrSchemaUnknownColumn
	case strings.Contains(msgLower, "foreign key"):
		return ErrSchemaInvalidFK
	case strings.Contains(msgLower, "primary key"):
		return ErrSchemaInvalidPK
	case strings.Contains(msgLower, "index"):
		return ErrSchemaInvalidIndex
	case strings.Contains(msgLower, "type"):
		return ErrSchemaInvalidType
	default:
		return ""
	}
}

// CreateConfigError creates a rich diagnostic for configuration errors.
func CreateConfigError(path string, line, column int, message string) Diagnostic {
	code := classifyConfigError(message)
	return Error(message).
		WithCode(code).
		At(path, line, column).
		WithSource("config").
		Build()
}

// classifyConfigError determines the appropriate error code for config messages.
func classifyConfigError(msg string) string {
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "package"):
		return ErrConfigMissingPackage
	case strings.Contains(msgLower, "out"):
		return ErrConfigMissingOut
	case strings.Contains(msgLower, "path"):
		return ErrConfigInvalidPath
	case strings.Contains(msgLower, "unknown") && strings.Contains(msgLower, "key"):
		return ErrConfigUnknownKey
	case strings.Contains(msgLower, "driver"):
		return ErrConfigInvalidDriver
	case strings.Contains(msgLower, "language"):
		return ErrConfigInvalidLang
	case strings.Contains(msgLower, "database"):
		return ErrConfigInvalidDB
	default:
		return ErrConfigInvalid
	}
}

// EnrichDiagnostic adds context and suggestions to a single diagnostic.
func EnrichDiagnostic(d Diagnostic, extractor *ContextExtractor, contextLines int) Diagnostic {
	if d.HasLocation() && d.Context == "" && extractor != nil {
		ctx, err := extractor.ExtractContext(d.Location.Path, d.Location.Line, d.Location.Column, contextLines)
		if err == nil && !ctx.IsEmpty() {
			d.Context = ctx.Format()
		}
	}
	return addSuggestions(d)
}

// BatchEnrich enriches all diagnostics in a collection with context and suggestions.
func BatchEnrich(c *Collection, extractor *ContextExtractor, contextLines int) {
	EnrichWithSuggestions(c)
	if extractor != nil {
		EnrichWithContext(c, extractor, contextLines)
	}
}

// FormatForTerminal formats diagnostics for terminal output with colors.
func FormatForTerminal(c *Collection, verbose bool) string {
	var formatter *Formatter
	if verbose {
		formatter = NewVerboseFormatter()
	} else {
		formatter = NewFormatter()
		formatter.ShowContext = false
		formatter.ShowSuggestions = true
		formatter.ShowNotes = false
		formatter.ShowRelated = false
	}
	formatter.Colorize = true

	return formatter.FormatAll(c)
}

// PrintToWriter prints formatted diagnostics to a writer.
func PrintToWriter(w io.Writer, c *Collection, verbose bool) error {
	output := FormatForTerminal(c, verbose)
	if output != "" {
		_, err := fmt.Fprintln(w, output)
		return err
	}
	return nil
}
