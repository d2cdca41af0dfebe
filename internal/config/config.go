// Package config loads and validates the sqlweave project manifest
// (spec.md §6): the migrations directory, the queries directory, and the
// handful of fields a downstream code generator would need.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/sqlweave/sqlweave/internal/fileset"
)

// defaultDatabaseName is the record name for the generated database handle
// when the manifest omits databaseName, per spec.md §6.
const defaultDatabaseName = "DB"

// Manifest mirrors the project manifest's four fields plus databaseName,
// in whichever of the two supported serializations (TOML or YAML) the
// project root's manifest file uses.
type Manifest struct {
	Migrations        string   `toml:"migrations" yaml:"migrations"`
	Queries           string   `toml:"queries" yaml:"queries"`
	Output            string   `toml:"output" yaml:"output"`
	DatabaseName      string   `toml:"databaseName" yaml:"databaseName"`
	AdditionalImports []string `toml:"additionalImports" yaml:"additionalImports"`
}

// JobPlan is the fully-resolved configuration handed to the driver.
type JobPlan struct {
	MigrationFiles    []string
	QueryFiles        []string
	Output            string // "" means stdout, per spec.md §6
	DatabaseName      string
	AdditionalImports []string
}

// LoadOptions tunes manifest loading behavior.
type LoadOptions struct {
	Strict   bool
	Resolver *fileset.Resolver
	// Logger receives warning messages. If nil, warnings are only added to Result.Warnings.
	Logger *slog.Logger
}

// Result wraps a loaded job plan alongside any non-fatal warnings.
type Result struct {
	Plan     JobPlan
	Warnings []string
}

// format identifies which serialization a manifest file uses.
type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatFromPath(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatTOML
	}
}

// Load reads, validates, and resolves a sqlweave project manifest.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	manifestFormat := formatFromPath(path)

	var manifest Manifest
	if err := unmarshal(manifestFormat, data, &manifest); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	unknownKeys, err := collectUnknownKeys(manifestFormat, data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknownKeys) > 0 {
		slices.Sort(unknownKeys)
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknownKeys, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		if opts.Logger != nil {
			opts.Logger.Warn("unknown configuration keys", "path", path, "keys", unknownKeys)
		}
		res.Warnings = append(res.Warnings, message)
	}

	if err := validateRequired(path, "migrations", manifest.Migrations); err != nil {
		return res, err
	}
	if err := validateRequired(path, "queries", manifest.Queries); err != nil {
		return res, err
	}

	baseDir := filepath.Dir(path)

	var resolver fileset.Resolver
	if opts.Resolver != nil {
		resolver = *opts.Resolver
	} else {
		resolver, err = fileset.NewOSResolver(baseDir)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}

	migrationFiles, err := resolvePatterns(resolver, "migrations", []string{filepath.Join(manifest.Migrations, "*.sql")})
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	queryFiles, err := resolvePatterns(resolver, "queries", []string{filepath.Join(manifest.Queries, "*.sql")})
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	databaseName := manifest.DatabaseName
	if databaseName == "" {
		databaseName = defaultDatabaseName
	}

	res.Plan = JobPlan{
		MigrationFiles:    migrationFiles,
		QueryFiles:        queryFiles,
		Output:            manifest.Output,
		DatabaseName:      databaseName,
		AdditionalImports: manifest.AdditionalImports,
	}

	return res, nil
}

func unmarshal(f format, data []byte, manifest *Manifest) error {
	switch f {
	case formatYAML:
		return yaml.Unmarshal(data, manifest)
	default:
		return toml.Unmarshal(data, manifest)
	}
}

var knownManifestKeys = map[string]struct{}{
	"migrations":        {},
	"queries":           {},
	"output":            {},
	"databaseName":      {},
	"additionalImports": {},
}

func collectUnknownKeys(f format, data []byte) ([]string, error) {
	var raw map[string]any
	var err error
	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}

	unknown := make([]string, 0)
	for key := range raw {
		if _, ok := knownManifestKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown, nil
}

func validateRequired(path, field, value string) error {
	if value == "" {
		return fmt.Errorf("%s: %s is required", path, field)
	}
	return nil
}

func resolvePatterns(resolver fileset.Resolver, field string, patterns []string) ([]string, error) {
	paths, err := resolver.Resolve(patterns)
	if err != nil {
		switch {
		case errors.Is(err, fileset.ErrNoPatterns):
			return nil, fmt.Errorf("%s must include at least one pattern", field)
		default:
			var noMatchErr fileset.NoMatchError
			if errors.As(err, &noMatchErr) {
				return nil, fmt.Errorf("%s directory contains no .sql files: %s", field, strings.Join(noMatchErr.Patterns, ", "))
			}

			var patternErr fileset.PatternError
			if errors.As(err, &patternErr) {
				return nil, fmt.Errorf("%s: invalid glob pattern %q: %w", field, patternErr.Pattern, patternErr.Err)
			}

			return nil, fmt.Errorf("%s: %w", field, err)
		}
	}

	return paths, nil
}

// WriteTemplate writes a commented template manifest to dir, for the `init`
// CLI subcommand (spec.md §6).
func WriteTemplate(dir string) (string, error) {
	const template = `# sqlweave project manifest.
# migrations and queries are directories of .sql files; migrations are
# applied in filename numeric-prefix order (spec.md §6).
migrations = "migrations"
queries = "queries"

# output is the path to the emitted bindings file; omit to write to stdout.
# output = "sqlweave_gen.go"

# databaseName is the record name for the generated database handle.
databaseName = "DB"

# additionalImports lists extra module names to emit in the generated
# file's prelude.
additionalImports = []
`
	path := filepath.Join(dir, "sqlweave.toml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadManifest reads and unmarshals a manifest file without resolving its
// migrations/queries directories into file lists, for commands (`migrate
// add`, `queries add`) that only need to know where those directories are.
func ReadManifest(path string) (Manifest, error) {
	var manifest Manifest
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return manifest, fmt.Errorf("read %s: %w", path, err)
	}
	if err := unmarshal(formatFromPath(path), data, &manifest); err != nil {
		return manifest, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

// manifestNames lists the filenames FindManifest looks for, in order.
var manifestNames = []string{"sqlweave.toml", "sqlweave.yaml", "sqlweave.yml"}

// FindManifest locates the project manifest inside dir, trying the TOML
// name first and each YAML extension in turn.
func FindManifest(dir string) (string, error) {
	for _, name := range manifestNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no sqlweave manifest found in %s (expected one of: %s)", dir, strings.Join(manifestNames, ", "))
}
