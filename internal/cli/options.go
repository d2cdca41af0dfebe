// Package cli provides the command-line interface logic for sqlweave.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Command identifies which sqlweave subcommand was invoked.
type Command int

const (
	// CommandNone is the zero value, never returned by a successful Parse.
	CommandNone Command = iota
	CommandGenerate
	CommandInit
	CommandMigrateAdd
	CommandQueriesAdd
)

func (c Command) String() string {
	switch c {
	case CommandGenerate:
		return "generate"
	case CommandInit:
		return "init"
	case CommandMigrateAdd:
		return "migrate add"
	case CommandQueriesAdd:
		return "queries add"
	default:
		return "none"
	}
}

// Options holds the configuration derived from command-line arguments.
type Options struct {
	Command Command

	// Path is the project directory, shared by every subcommand: it holds
	// (or will hold) the manifest, migrations/, and queries/ directories.
	Path string

	// generate-specific flags.
	OverrideOutput          string
	DontColorize            bool
	Time                    bool
	SkipDirectoryCreate     bool
	XcodeDiagnosticReporter bool
	Dump                    bool

	// queries add <name>.
	QueryName string

	Args []string
}

// Parse processes command-line arguments and returns the options.
func Parse(args []string) (Options, error) {
	if len(args) == 0 {
		return Options{}, fmt.Errorf("%w\n\n%s", flag.ErrHelp, topLevelUsage())
	}

	switch args[0] {
	case "generate":
		return parseGenerate(args[1:])
	case "init":
		return parseInit(args[1:])
	case "migrate":
		return parseMigrate(args[1:])
	case "queries":
		return parseQueries(args[1:])
	case "-h", "--help", "help":
		return Options{}, fmt.Errorf("%w\n\n%s", flag.ErrHelp, topLevelUsage())
	default:
		return Options{}, fmt.Errorf("unknown command %q\n\n%s", args[0], topLevelUsage())
	}
}

func topLevelUsage() string {
	return strings.Join([]string{
		"Usage: sqlweave <command> [arguments]",
		"",
		"Commands:",
		"  generate   analyze migrations and queries, emitting diagnostics and an IR dump",
		"  init       write a template project manifest",
		"  migrate add   create a new empty migration file",
		"  queries add <name>   create a new empty query file",
	}, "\n")
}

func parseGenerate(args []string) (Options, error) {
	opts := Options{Command: CommandGenerate, Path: "."}

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Path, "path", opts.Path, "project directory containing the manifest")
	fs.StringVar(&opts.OverrideOutput, "override-output", "", "override the manifest's configured output path")
	fs.BoolVar(&opts.DontColorize, "dont-colorize", false, "disable ANSI color in human-readable diagnostic output")
	fs.BoolVar(&opts.Time, "time", false, "print the total elapsed time to stderr")
	fs.BoolVar(&opts.SkipDirectoryCreate, "skip-directory-create", false, "don't create the output directory if missing")
	fs.BoolVar(&opts.XcodeDiagnosticReporter, "xcode-diagnostic-reporter", false, "emit diagnostics in single-line editor format instead of human-readable format")
	fs.BoolVar(&opts.Dump, "dump", false, "print the assembled IR instead of generating output")

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	opts.Args = fs.Args()
	return opts, nil
}

func parseInit(args []string) (Options, error) {
	opts := Options{Command: CommandInit, Path: "."}

	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Path, "path", opts.Path, "project directory to write the template manifest into")
	fs.BoolVar(&opts.SkipDirectoryCreate, "skip-directory-create", false, "don't create migrations/ and queries/ directories")

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	opts.Args = fs.Args()
	return opts, nil
}

func parseMigrate(args []string) (Options, error) {
	if len(args) == 0 || args[0] != "add" {
		return Options{}, errors.New("usage: sqlweave migrate add")
	}

	opts := Options{Command: CommandMigrateAdd, Path: "."}
	fs := flag.NewFlagSet("migrate add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Path, "path", opts.Path, "project directory containing the migrations directory")

	if err := fs.Parse(args[1:]); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	opts.Args = fs.Args()
	return opts, nil
}

func parseQueries(args []string) (Options, error) {
	if len(args) == 0 || args[0] != "add" {
		return Options{}, errors.New("usage: sqlweave queries add <name>")
	}

	opts := Options{Command: CommandQueriesAdd, Path: "."}
	fs := flag.NewFlagSet("queries add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Path, "path", opts.Path, "project directory containing the queries directory")

	if err := fs.Parse(args[1:]); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	opts.Args = fs.Args()
	if len(opts.Args) == 0 {
		return Options{}, errors.New("usage: sqlweave queries add <name>")
	}
	opts.QueryName = opts.Args[0]
	return opts, nil
}

// Usage returns the usage string for a subcommand's flag set.
func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	_, _ = fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
