package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/rangebuf/internal/engine/buffer"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 30 * time.Second

// Runner executes Lua scripts against one document.
//
// A Runner is not safe for concurrent use; gopher-lua states are single
// threaded. The document itself may still be read from other goroutines.
type Runner struct {
	mu sync.Mutex

	L       *lua.LState
	doc     *buffer.Document
	out     io.Writer
	log     *slog.Logger
	timeout time.Duration

	clips  map[*clip]struct{}
	closed bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where print writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// New creates a runner bound to doc.
func New(doc *buffer.Document, opts ...Option) *Runner {
	r := &Runner{
		doc:     doc,
		out:     os.Stdout,
		log:     slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
		clips:   make(map[*clip]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "script")

	r.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(r.L)
	r.installPrint()
	r.registerBuffer()
	return r
}

// openSafeLibraries opens only the Lua libraries that cannot reach the
// host system.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// installPrint replaces print with one writing to the runner's output.
func (r *Runner) installPrint() {
	r.L.SetGlobal("print", r.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fmt.Fprintln(r.out, strings.Join(parts, "\t"))
		return 0
	}))
}

// Run executes code. name labels the chunk in error messages.
func (r *Runner) Run(ctx context.Context, name, code string) error {
	fn, err := r.compile(name, code)
	if err != nil {
		return err
	}
	return r.call(ctx, name, fn)
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return r.Run(ctx, path, string(code))
}

func (r *Runner) compile(name, code string) (*lua.LFunction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRunnerClosed
	}
	fn, err := r.L.Load(strings.NewReader(code), name)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	return fn, nil
}

func (r *Runner) call(ctx context.Context, name string, fn *lua.LFunction) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic in %s: %v", name, p)
		}
	}()

	start := time.Now()
	rev := r.doc.RevisionID()
	defer r.L.SetTop(0)
	r.L.Push(fn)
	if err := r.L.PCall(0, lua.MultRet, nil); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return fmt.Errorf("running %s: %w", name, err)
	}

	r.log.Debug("script finished", "name", name,
		"elapsed", time.Since(start), "modified", r.doc.RevisionID() != rev)
	return nil
}

// Close releases the Lua state and any clips scripts left alive.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for c := range r.clips {
		c.release()
	}
	r.clips = nil
	r.L.Close()
	return nil
}
