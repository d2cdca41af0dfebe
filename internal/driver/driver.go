// Package driver orchestrates the compiler front end end to end: it loads
// the project manifest, applies every migration file to build the frozen
// schema catalog, analyzes every query definition against that catalog, and
// assembles the resulting intermediate representation, aggregating
// diagnostics from every phase along the way.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sqlweave/sqlweave/internal/analyzer"
	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/config"
	"github.com/sqlweave/sqlweave/internal/diagnostics"
	"github.com/sqlweave/sqlweave/internal/fileset"
	"github.com/sqlweave/sqlweave/internal/ir"
	"github.com/sqlweave/sqlweave/internal/lexer"
	"github.com/sqlweave/sqlweave/internal/parser"
	"github.com/sqlweave/sqlweave/internal/schema"
)

const maxFileSize = 100 * 1024 * 1024 // 100MB, mirrors the config-layer guard

// Environment captures the external dependencies a Driver run needs.
type Environment struct {
	FSResolver func(string) (fileset.Resolver, error)
}

// Driver runs the load -> schema -> analyze -> assemble pipeline.
type Driver struct {
	Env Environment
}

// RunOptions configures a single compilation run.
type RunOptions struct {
	ConfigPath   string
	OutOverride  string
	StrictConfig bool
	// Concurrency bounds the number of query files analyzed in parallel.
	// Zero or a negative value means no bound: every file is analyzed in its
	// own goroutine at once.
	Concurrency int
}

// Summary is everything a caller needs after a run: the frozen IR (only
// meaningful when no diagnostic reached error severity) and every
// diagnostic collected across every phase, sorted by source location.
type Summary struct {
	IR                ir.IR
	Output            string
	DatabaseName      string
	AdditionalImports []string
	Diagnostics       *diagnostics.Collection
}

// Run executes one compilation according to opts.
func (d *Driver) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	summary := Summary{Diagnostics: diagnostics.NewCollection()}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = "sqlweave.toml"
	}
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return summary, fmt.Errorf("resolve config path: %w", err)
	}

	baseDir := filepath.Dir(absConfigPath)
	resolverFn := d.Env.FSResolver
	if resolverFn == nil {
		resolverFn = fileset.NewOSResolver
	}
	resolver, err := resolverFn(baseDir)
	if err != nil {
		return summary, fmt.Errorf("resolve filesystem: %w", err)
	}

	loadResult, err := config.Load(absConfigPath, config.LoadOptions{Strict: opts.StrictConfig, Resolver: &resolver})
	if err != nil {
		return summary, fmt.Errorf("load config: %w", err)
	}
	for _, warning := range loadResult.Warnings {
		summary.Diagnostics.Add(diagnostics.Warning(warning).WithSource("config").Build())
	}

	plan := loadResult.Plan
	output := plan.Output
	if opts.OutOverride != "" {
		output = opts.OutOverride
	}
	summary.Output = output
	summary.DatabaseName = plan.DatabaseName
	summary.AdditionalImports = plan.AdditionalImports

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	catalog, err := d.buildSchema(plan.MigrationFiles, summary.Diagnostics)
	if err != nil {
		return summary, err
	}

	if summary.Diagnostics.HasErrors() {
		summary.Diagnostics.SortByLocation()
		return summary, nil
	}

	queries, err := d.analyzeQueries(ctx, catalog, plan.QueryFiles, opts.Concurrency, summary.Diagnostics)
	if err != nil {
		return summary, err
	}

	summary.Diagnostics.SortByLocation()
	if summary.Diagnostics.HasErrors() {
		return summary, nil
	}

	summary.IR = ir.IR{
		Tables:  ir.AssembleTables(catalog),
		Queries: queries,
	}
	return summary, nil
}

// buildSchema applies every migration file, in numeric-filename-prefix
// order, to a single schema.Evolver and returns the resulting catalog.
// Migration application is strictly sequential: later files can alter or
// drop tables earlier files created, so order matters in a way query
// analysis never does.
func (d *Driver) buildSchema(files []string, diags *diagnostics.Collection) (*schema.Catalog, error) {
	ordered, err := orderMigrationFiles(files)
	if err != nil {
		diags.Add(diagnostics.Error(err.Error()).WithSource("driver").Build())
		return schema.NewCatalog(), nil
	}

	evolver := schema.NewEvolver()
	for _, path := range ordered {
		contents, readErr := readFile(path)
		if readErr != nil {
			diags.Add(diagnostics.Error(readErr.Error()).At(path, 1, 1).WithSource("driver").Build())
			continue
		}

		tokens, scanErr := lexer.Scan(path, contents)
		if scanErr != nil {
			diags.Add(diagnostics.Error(scanErr.Error()).At(path, 1, 1).WithSource("lexer").Build())
			continue
		}

		file, parseDiags := parser.Parse(path, tokens)
		for _, pd := range parseDiags {
			diags.Add(diagnostics.FromParser(pd))
		}

		evolver.ApplyFile(file)
	}

	for _, sd := range evolver.Diagnostics() {
		diags.Add(diagnostics.FromSchema(sd))
	}

	return evolver.Catalog(), nil
}

// orderMigrationFiles sorts migration files by the leading numeric prefix
// of their base filename (e.g. "0002_add_books.sql" sorts before
// "0010_add_index.sql" even though that isn't lexicographic order). A file
// whose basename doesn't start with a digit is a configuration error.
func orderMigrationFiles(files []string) ([]string, error) {
	type numbered struct {
		path   string
		number int
	}
	entries := make([]numbered, 0, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		digits := leadingDigits(base)
		if digits == "" {
			return nil, fmt.Errorf("migration %q does not start with a numeric prefix", base)
		}
		n := 0
		for _, r := range digits {
			n = n*10 + int(r-'0')
		}
		entries = append(entries, numbered{path: path, number: n})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].number < entries[j].number })

	ordered := make([]string, len(entries))
	for i, e := range entries {
		ordered[i] = e.path
	}
	return ordered, nil
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// fileAnalysis is the outcome of analyzing every query definition in one
// query file.
type fileAnalysis struct {
	queries []ir.Query
	diags   []diagnostics.Diagnostic
}

// analyzeQueries parses and analyzes every query file against catalog,
// fanning out one goroutine per file (spec.md §5), at most concurrency at a
// time when concurrency is positive, since the Analyzer never mutates its
// catalog and is safe to share read-only.
func (d *Driver) analyzeQueries(ctx context.Context, catalog *schema.Catalog, files []string, concurrency int, diags *diagnostics.Collection) ([]ir.Query, error) {
	results := make([]fileAnalysis, len(files))

	group, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}

	for i, path := range files {
		i, path := i, path
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeQueryFile(catalog, path)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	queries := make([]ir.Query, 0, len(files))
	seenNames := make(map[string]string, len(files))
	for i := range results {
		for _, d := range results[i].diags {
			diags.Add(d)
		}
		for _, q := range results[i].queries {
			if prev, ok := seenNames[q.Name]; ok {
				diags.Add(diagnostics.Error(fmt.Sprintf("duplicate query name %q (previously defined in %s)", q.Name, prev)).WithSource("driver").Build())
				continue
			}
			seenNames[q.Name] = files[i]
			queries = append(queries, q)
		}
	}

	return queries, nil
}

// analyzeQueryFile parses and analyzes every query definition in one file.
// It never mutates catalog and returns its findings rather than touching
// shared state, so callers can invoke it concurrently across files.
func analyzeQueryFile(catalog *schema.Catalog, path string) fileAnalysis {
	var out fileAnalysis

	contents, err := readFile(path)
	if err != nil {
		out.diags = append(out.diags, diagnostics.Error(err.Error()).At(path, 1, 1).WithSource("driver").Build())
		return out
	}

	tokens, scanErr := lexer.Scan(path, contents)
	if scanErr != nil {
		out.diags = append(out.diags, diagnostics.Error(scanErr.Error()).At(path, 1, 1).WithSource("lexer").Build())
		return out
	}

	file, parseDiags := parser.Parse(path, tokens)
	for _, pd := range parseDiags {
		out.diags = append(out.diags, diagnostics.FromParser(pd))
	}

	lines := strings.Split(string(contents), "\n")
	a := analyzer.New(catalog)

	for _, stmt := range file.Statements {
		qd, ok := stmt.(*ast.QueryDef)
		if !ok {
			out.diags = append(out.diags, diagnostics.Error("expected a named query definition").
				At(path, stmt.Span().StartLine, stmt.Span().StartColumn).WithSource("driver").Build())
			continue
		}

		res := a.AnalyzeStatement(qd.Statement, qd.Command)
		for _, rd := range res.Diagnostics {
			out.diags = append(out.diags, diagnostics.FromAnalyzer(rd))
		}

		source := sliceSpan(lines, qd.Statement.Span())
		out.queries = append(out.queries, ir.AssembleQuery(qd, res, source))
	}

	return out
}

// sliceSpan extracts the raw source text a span covers from lines (already
// split on "\n"), trimming to the span's start/end columns on its first and
// last line respectively.
func sliceSpan(lines []string, sp lexer.Span) string {
	if sp.StartLine < 1 || sp.EndLine < sp.StartLine || sp.EndLine > len(lines) {
		return ""
	}

	if sp.StartLine == sp.EndLine {
		line := lines[sp.StartLine-1]
		return clampSlice(line, sp.StartColumn-1, sp.EndColumn-1)
	}

	var b strings.Builder
	first := lines[sp.StartLine-1]
	b.WriteString(clampSlice(first, sp.StartColumn-1, len(first)))
	for i := sp.StartLine; i < sp.EndLine-1; i++ {
		b.WriteString("\n")
		b.WriteString(lines[i])
	}
	b.WriteString("\n")
	last := lines[sp.EndLine-1]
	b.WriteString(clampSlice(last, 0, sp.EndColumn-1))
	return b.String()
}

func clampSlice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		return ""
	}
	return s[start:end]
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", path, maxFileSize)
	}
	return os.ReadFile(filepath.Clean(path))
}
