// Command sqlweave is the CLI front end for the sqlweave compiler: it turns
// a directory of SQL migrations and query definitions into diagnostics and
// a frozen intermediate representation, ready for a downstream code
// generator this repository does not itself implement.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sqlweave/sqlweave/internal/cli"
	"github.com/sqlweave/sqlweave/internal/config"
	"github.com/sqlweave/sqlweave/internal/diagnostics"
	"github.com/sqlweave/sqlweave/internal/driver"
)

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	switch opts.Command {
	case cli.CommandGenerate:
		return runGenerate(ctx, opts, stdout, stderr)
	case cli.CommandInit:
		return runInit(opts, stdout, stderr)
	case cli.CommandMigrateAdd:
		return runMigrateAdd(opts, stdout, stderr)
	case cli.CommandQueriesAdd:
		return runQueriesAdd(opts, stdout, stderr)
	default:
		_, _ = fmt.Fprintln(stderr, "no command specified")
		return 1
	}
}

func runGenerate(ctx context.Context, opts cli.Options, stdout, stderr io.Writer) int {
	start := time.Now()

	manifestPath, err := config.FindManifest(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	d := driver.Driver{}
	summary, err := d.Run(ctx, driver.RunOptions{
		ConfigPath:  manifestPath,
		OutOverride: opts.OverrideOutput,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}

	printDiagnostics(stderr, summary.Diagnostics, opts)

	if opts.Time {
		_, _ = fmt.Fprintf(stderr, "generate: %s\n", time.Since(start))
	}

	if summary.Diagnostics.HasErrors() {
		return 2 //nolint:mnd // exit code for diagnostic-severity-error, per spec
	}

	if opts.Dump {
		dumpIR(stdout, summary)
	}

	if summary.Output != "" && !opts.Dump {
		if !opts.SkipDirectoryCreate {
			if err := os.MkdirAll(filepath.Dir(resolvePath(opts.Path, summary.Output)), 0o750); err != nil {
				_, _ = fmt.Fprintf(stderr, "fatal: create output directory: %v\n", err)
				return 1
			}
		}
	}

	return 0
}

func printDiagnostics(w io.Writer, diags *diagnostics.Collection, opts cli.Options) {
	if diags.Len() == 0 {
		return
	}

	if opts.XcodeDiagnosticReporter {
		for _, d := range diags.All() {
			_, _ = fmt.Fprintln(w, d.EditorFormat())
		}
		return
	}

	formatter := diagnostics.NewFormatter()
	formatter.Colorize = !opts.DontColorize
	for _, d := range diags.All() {
		_, _ = fmt.Fprintln(w, formatter.Format(d))
	}
	formatter.PrintSummary(w, diags)
}

func dumpIR(w io.Writer, summary driver.Summary) {
	payload := struct {
		DatabaseName      string      `json:"databaseName"`
		AdditionalImports []string    `json:"additionalImports"`
		Tables            interface{} `json:"tables"`
		Queries           interface{} `json:"queries"`
	}{
		DatabaseName:      summary.DatabaseName,
		AdditionalImports: summary.AdditionalImports,
		Tables:            summary.IR.Tables,
		Queries:           summary.IR.Queries,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func runInit(opts cli.Options, stdout, stderr io.Writer) int {
	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}

	path, err := config.WriteTemplate(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", path)

	if !opts.SkipDirectoryCreate {
		for _, dir := range []string{"migrations", "queries"} {
			full := filepath.Join(opts.Path, dir)
			if err := os.MkdirAll(full, 0o750); err != nil {
				_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
				return 1
			}
			_, _ = fmt.Fprintf(stdout, "created %s\n", full)
		}
	}

	return 0
}

func runMigrateAdd(opts cli.Options, stdout, stderr io.Writer) int {
	manifestPath, err := config.FindManifest(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	manifest, err := config.ReadManifest(manifestPath)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	migrationsDir := resolvePath(filepath.Dir(manifestPath), manifest.Migrations)
	if err := os.MkdirAll(migrationsDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}

	name := fmt.Sprintf("%s_migration.sql", time.Now().UTC().Format("20060102150405"))
	path := filepath.Join(migrationsDir, name)
	if err := os.WriteFile(path, []byte("-- migration\n"), 0o644); err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "created %s\n", path)
	return 0
}

func runQueriesAdd(opts cli.Options, stdout, stderr io.Writer) int {
	manifestPath, err := config.FindManifest(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	manifest, err := config.ReadManifest(manifestPath)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	queriesDir := resolvePath(filepath.Dir(manifestPath), manifest.Queries)
	if err := os.MkdirAll(queriesDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}

	path := filepath.Join(queriesDir, opts.QueryName+".sql")
	if _, err := os.Stat(path); err == nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %s already exists\n", path)
		return 1
	}
	if err := os.WriteFile(path, []byte("-- "+opts.QueryName+"\n"), 0o644); err != nil {
		_, _ = fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "created %s\n", path)
	return 0
}
