package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/rangebuf/internal/engine/buffer"
	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/logging"
	"github.com/dshills/rangebuf/internal/script"
	"github.com/dshills/rangebuf/internal/view"
)

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"cat":  catCmd,
	"stat": statCmd,
	"run":  runCmd,
	"view": viewCmd,
}

// open opens path with the configured engine settings.
func (e *env) open(path string, opts ...buffer.Option) (*buffer.Document, error) {
	return buffer.Open(path, append(e.cfg.DocumentOptions(e.log), opts...)...)
}

func catCmd(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	// One budget for every file, so cat of many files stays bounded.
	budget := filecache.NewBudget(e.cfg.Engine.MaxCacheBytes)
	for _, path := range args {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := e.open(path, buffer.WithBudget(budget), buffer.WithWatch(false))
		if err != nil {
			return err
		}
		_, werr := doc.WriteTo(e.stdout)
		cerr := doc.Close()
		if werr != nil {
			return fmt.Errorf("writing %s: %w", path, werr)
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

func statCmd(_ context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	doc, err := e.open(args[0], buffer.WithWatch(false))
	if err != nil {
		return err
	}
	defer doc.Close()

	st := doc.Stats()
	sum := st.Summary

	w := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "path\t%s\n", doc.Path())
	fmt.Fprintf(w, "bytes\t%d\n", sum.Bytes)
	fmt.Fprintf(w, "lines\t%d\n", doc.LineCount())
	fmt.Fprintf(w, "longest line\t%d\n", sum.LongestLine)
	fmt.Fprintf(w, "runes\t%d\n", sum.Runes)
	fmt.Fprintf(w, "utf-16 units\t%d\n", sum.UTF16Units)
	fmt.Fprintf(w, "line ending\t%s\n", doc.LineEnding())
	fmt.Fprintf(w, "leaves\t%d\n", st.Leaves)
	fmt.Fprintf(w, "depth\t%d\n", st.Depth)
	if c := st.Cache; c != nil {
		fmt.Fprintf(w, "cache hits\t%d\n", c.Hits)
		fmt.Fprintf(w, "cache misses\t%d\n", c.Misses)
		fmt.Fprintf(w, "cache evictions\t%d\n", c.Evictions)
		fmt.Fprintf(w, "resident bytes\t%d\n", c.ResidentBytes)
	}
	return w.Flush()
}

func runCmd(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	scriptPath, path := args[0], args[1]

	doc, err := e.open(path, buffer.WithWatch(false))
	if err != nil {
		return err
	}
	defer doc.Close()

	r := script.New(doc, script.WithOutput(e.stdout), script.WithLogger(e.log))
	defer r.Close()

	return r.RunFile(ctx, scriptPath)
}

func viewCmd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	// The terminal belongs to the pager while it runs.
	quiet := logging.Discard()
	doc, err := e.open(args[0], buffer.WithLogger(quiet))
	if err != nil {
		return err
	}
	defer doc.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer screen.Fini()

	err = view.New(screen, doc, view.WithLogger(quiet)).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
