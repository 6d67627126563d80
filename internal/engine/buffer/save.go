package buffer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Save writes the document to path, or to the path it was opened from when
// path is empty. The content goes to a temporary file in the same directory
// that is then renamed over the target, so a crash never leaves a partial
// file behind.
//
// Afterwards the document reads from the saved file: edits held in memory
// are dropped and the tree is rebuilt over the new file. Snapshots taken
// earlier keep reading the old content.
func (d *Document) Save(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if path == "" {
		path = d.path
	}
	if path == "" {
		return ErrNoPath
	}

	if err := writeFileAtomic(path, d.tree); err != nil {
		return err
	}
	d.log.Info("document saved", "path", path, "bytes", d.tree.Len())
	return d.attach(path)
}

// Reload discards all edits and reopens the backing file.
func (d *Document) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.path == "" {
		return ErrNoPath
	}
	return d.attach(d.path)
}

// Detach copies every file-backed part of the document into memory and
// closes the file cache, so later changes to the file cannot affect the
// document. The path is kept for Save.
func (d *Document) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache == nil {
		return
	}
	d.tree.MarkCacheInvalid(d.cache)
	if d.watcher != nil {
		_ = d.watcher.Close()
		d.watcher = nil
	}
	if err := d.cache.Close(); err != nil {
		d.log.Warn("closing file cache", "error", err)
	}
	d.cache = nil
	d.log.Debug("document detached from file", "path", d.path)
}

// ChangedOnDisk reports whether the backing file was modified since it was
// opened or last saved. It is advisory; the document keeps working either
// way, reading through the descriptor it opened.
func (d *Document) ChangedOnDisk() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache == nil {
		return false
	}
	changed := d.cache.Modified()
	if !changed && d.watcher != nil {
		d.watcher.Reset()
	}
	return changed
}

func writeFileAtomic(path string, src io.WriterTo) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	name := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("saving %s: %w", path, err)
	}

	w := bufio.NewWriterSize(tmp, 64*1024)
	if _, err := src.WriteTo(w); err != nil {
		return fail(err)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
