// Package main is the entry point for the quizedit command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dshills/quizedit/internal/config"
	"github.com/dshills/quizedit/internal/logging"
	"github.com/dshills/quizedit/internal/store"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errUsage reports a command line error; usage has already been printed.
var errUsage = errors.New("usage error")

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error
}

var commands = []command{
	{"locate", "<file> <snippet>", "find a snippet and print its range", runLocate},
	{"apply", "<file> <suggestions.json>", "apply suggestions and print a diff", runApply},
	{"check", "<file>", "review a document and print the findings", runCheck},
	{"parse", "<file>", "print the structure of a document", runParse},
	{"generate", "<file>", "append a generated single-choice task", runGenerate},
	{"paste", "<file>", "write the clipboard into a file", runPaste},
	{"copy", "<file>", "copy a file to the clipboard", runCopy},
	{"prompts", "[show|export|import <file>|reset]", "manage the stored prompts", runPrompts},
	{"serve", "<file>", "serve the HTTP editing API for a file", runServe},
}

// app carries what every command needs.
type app struct {
	cfg    config.Config
	log    *logging.Logger
	store  store.Store
	stdout io.Writer
	stderr io.Writer
	color  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quizedit", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(stderr)

	var (
		configPath  string
		logLevel    string
		showVersion bool
		noColor     bool
	)
	fs.StringVarP(&configPath, "config", "c", "", "path to configuration file")
	fs.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVarP(&showVersion, "version", "v", false, "show version information")
	fs.BoolVar(&noColor, "no-color", false, "disable coloured output")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "quizedit %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := findCommand(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	if configPath == "" {
		configPath = os.Getenv("QUIZEDIT_CONFIG")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		name, ok := config.ParseLevelName(logLevel)
		if !ok {
			fmt.Fprintf(stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", logLevel)
			return 2
		}
		cfg.Logging.Level = name
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: stderr,
		Prefix: "quizedit",
		JSON:   cfg.Logging.JSON,
	})
	logging.SetDefault(log)

	a := &app{
		cfg:    cfg,
		log:    log,
		store:  openStore(cfg.Store.Path),
		stdout: stdout,
		stderr: stderr,
		color:  !noColor && isTerminal(stdout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, a, a.flags(cmd), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "quizedit - review and edit quiz and lesson markdown\n\n")
	fmt.Fprintf(w, "Usage: quizedit [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %-36s %s\n", c.name, c.args, c.summary)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  quizedit locate quiz.md \"Das Lot schmilzt\"\n")
	fmt.Fprintf(w, "  quizedit parse --as tasks --format yaml quiz.md\n")
	fmt.Fprintf(w, "  quizedit serve --watch quiz.md\n")
}

// openStore returns the file store at path, or an in-memory store when no
// path is configured.
func openStore(path string) store.Store {
	if path == "" {
		return store.NewMemoryStore()
	}
	return store.NewFileStore(path)
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
