package filecache

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports external changes to a cache's backing file. It watches the
// containing directory so that editors that save by rename are noticed too.
//
// Notifications arrive on a background goroutine; the watcher only records
// them. The owner of the document polls Changed (or drains Changes) from its
// own goroutine and decides whether to mark caches invalid.
type Watcher struct {
	fsw  *fsnotify.Watcher
	name string
	log  *slog.Logger

	changed atomic.Bool
	changes chan fsnotify.Op

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// Watch starts watching the file behind c.
func Watch(c *Cache, log *slog.Logger) (*Watcher, error) {
	return WatchPath(c.Path(), log)
}

// WatchPath starts watching path.
func WatchPath(path string, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", abs, err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	w := &Watcher{
		fsw:     fsw,
		name:    abs,
		log:     log.With("component", "filecache.watch", "path", abs),
		changes: make(chan fsnotify.Op, 1),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Changed reports whether a change has been observed since the last Reset.
func (w *Watcher) Changed() bool {
	return w.changed.Load()
}

// Reset clears the changed flag.
func (w *Watcher) Reset() {
	w.changed.Store(false)
}

// Changes delivers coalesced change notifications. At most one notification
// is buffered; later ones are dropped until it is received.
func (w *Watcher) Changes() <-chan fsnotify.Op {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.name {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Create) {
		return
	}
	w.changed.Store(true)
	w.log.Info("backing file changed", "op", ev.Op.String())
	select {
	case w.changes <- ev.Op:
	default:
	}
}
