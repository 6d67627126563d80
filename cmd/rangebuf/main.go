// Package main is the entry point for the rangebuf tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/rangebuf/internal/config"
	"github.com/dshills/rangebuf/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errUsage reports a bad command line; usage has already been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env is what every command runs with.
type env struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rangebuf", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration file (.toml or .yaml)")
	fs.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "rangebuf - range-tree buffer engine tools\n\n")
		fmt.Fprintf(stderr, "Usage: rangebuf [options] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  cat FILE...          Write files to stdout through the file cache\n")
		fmt.Fprintf(stderr, "  stat FILE            Show text metrics and tree statistics\n")
		fmt.Fprintf(stderr, "  run SCRIPT FILE      Run a Lua edit script against FILE\n")
		fmt.Fprintf(stderr, "  view FILE            Page through FILE in the terminal\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "rangebuf %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: loading config: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	e := &env{
		cfg:    cfg,
		log:    logging.New(cfg.Log.Level, cfg.Log.Format, stderr),
		stdout: stdout,
		stderr: stderr,
	}
	if cfg.Path != "" {
		e.log.Debug("configuration loaded", "path", cfg.Path)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		fs.Usage()
		return 2
	}

	if err := cmd(ctx, e, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
