package buffer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/rangebuf/internal/engine/augment"
	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/engine/rangetree"
)

// Tree is the range tree type documents are built on.
type Tree = rangetree.Tree[augment.Summary]

// Document is an editable text buffer, optionally backed by a file that is
// paged in through a bounded cache. All methods are thread-safe.
type Document struct {
	mu   sync.Mutex
	opts options
	log  *slog.Logger

	tree    *Tree
	cache   *filecache.Cache   // nil for memory-only documents
	watcher *filecache.Watcher // nil unless watching

	path       string
	revisionID RevisionID
	lineEnding LineEnding
	closed     bool
}

// New creates an empty in-memory document.
func New(opts ...Option) *Document {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Document{
		opts:       o,
		log:        o.log.With("component", "buffer"),
		revisionID: NewRevisionID(),
	}
	d.tree = rangetree.New[augment.Summary](augment.Lines{}, o.treeOptions()...)
	return d
}

// FromString creates an in-memory document with initial content.
func FromString(s string, opts ...Option) *Document {
	d := New(opts...)
	if s != "" {
		d.tree = rangetree.FromBytes[augment.Summary](augment.Lines{}, []byte(s), d.opts.treeOptions()...)
	}
	d.lineEnding = DetectLineEnding(d.tree.Raw(0, lineEndingSample))
	return d
}

// FromReader creates an in-memory document from everything r yields.
func FromReader(r io.Reader, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return FromString(string(data), opts...), nil
}

// Open opens path as a file-backed document. Only the pages needed to
// measure the file are read, and they are released as soon as they are
// summarized, so memory stays within the cache limit however large the
// file is.
func Open(path string, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.attach(path); err != nil {
		return nil, err
	}
	d.log.Info("document opened", "path", path, "bytes", d.tree.Len(), "leaves", d.tree.LeafCount())
	return d, nil
}

// attach replaces the document content with the file at path.
func (d *Document) attach(path string) error {
	c, err := filecache.Open(path, d.opts.cacheOptions()...)
	if err != nil {
		return err
	}
	tree := rangetree.FromFile[augment.Summary](augment.Lines{}, c, d.opts.treeOptions()...)

	var w *filecache.Watcher
	if d.opts.watch {
		if w, err = filecache.Watch(c, d.log); err != nil {
			d.log.Warn("file watch unavailable", "path", path, "error", err)
			w = nil
		}
	}

	if err := d.detach(); err != nil {
		d.log.Warn("releasing previous file", "error", err)
	}
	d.tree, d.cache, d.watcher, d.path = tree, c, w, path
	d.lineEnding = DetectLineEnding(tree.Raw(0, lineEndingSample))
	d.revisionID = NewRevisionID()
	return nil
}

// detach drops the watcher and cache and empties the tree.
func (d *Document) detach() error {
	var errs []error
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing watcher: %w", err))
		}
		d.watcher = nil
	}
	d.tree.Release()
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			errs = append(errs, err)
		}
		d.cache = nil
	}
	return errors.Join(errs...)
}

// Close releases the document's content and backing file. Further edits
// fail with ErrClosed and reads see an empty document. The error reports a
// failure to release the file; the document is closed regardless.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	err := d.detach()
	d.closed = true
	d.log.Debug("document closed", "path", d.path)
	return err
}

// Read Operations

// Text returns the full document content as a string.
// For large documents, prefer TextRange or WriteTo.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.tree.Raw(0, d.tree.Len()))
}

// TextRange returns text in the given byte range, clamped to the document.
func (d *Document) TextRange(start, end ByteOffset) string {
	return string(d.Slice(start, end))
}

// Slice returns a copy of the bytes in the given range, clamped to the
// document.
func (d *Document) Slice(start, end ByteOffset) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.Raw(clampOffset(start), clampOffset(end))
}

// Len returns the total byte length of the document.
func (d *Document) Len() ByteOffset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.length()
}

func (d *Document) length() ByteOffset {
	return ByteOffset(d.tree.Len())
}

// IsEmpty returns true if the document is empty.
func (d *Document) IsEmpty() bool {
	return d.Len() == 0
}

// ByteAt returns the byte at the given offset.
func (d *Document) ByteAt(offset ByteOffset) (byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 || offset >= d.length() {
		return 0, false
	}
	c, ok := d.tree.IterAt(uint64(offset)).Next()
	return c, ok
}

// RuneAt returns the rune at the given byte offset.
// Returns utf8.RuneError and size 0 if offset is out of range.
func (d *Document) RuneAt(offset ByteOffset) (rune, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 || offset >= d.length() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRune(d.tree.Raw(uint64(offset), uint64(offset)+utf8.UTFMax))
}

// Summary returns the text metrics of the whole document.
func (d *Document) Summary() augment.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.Aggregate()
}

// WriteTo writes the whole document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.WriteTo(w)
}

// Write Operations

// Insert inserts text at the given offset.
// Returns the end position of the inserted text.
func (d *Document) Insert(offset ByteOffset, text string) (ByteOffset, error) {
	return d.InsertGroup(offset, text, rangetree.NoGroup)
}

// InsertGroup inserts text tagged with a fuse group. Text inserted under one
// group stays apart from neighbors with other groups, so a span such as a
// pasted block or a highlight can later be found leaf by leaf. Inserting
// empty text with a group leaves a zero-width marker.
func (d *Document) InsertGroup(offset ByteOffset, text string, group rangetree.FuseGroup) (ByteOffset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	if offset < 0 || offset > d.length() {
		return 0, ErrOffsetOutOfRange
	}

	d.tree.InsertBytes(uint64(offset), []byte(text), group)
	d.revisionID = NewRevisionID()
	return offset + ByteOffset(len(text)), nil
}

// Delete removes text in the given range.
func (d *Document) Delete(start, end ByteOffset) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if !(Range{start, end}).within(d.length()) {
		return ErrRangeInvalid
	}

	d.tree.Delete(uint64(start), uint64(end-start))
	d.revisionID = NewRevisionID()
	return nil
}

// Replace replaces text in the given range with new text.
// Returns the end position of the replacement text.
func (d *Document) Replace(start, end ByteOffset, text string) (ByteOffset, error) {
	res, err := d.ApplyEdit(Edit{Range: Range{start, end}, NewText: text})
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// ApplyEdit applies a single edit to the document.
func (d *Document) ApplyEdit(edit Edit) (EditResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return EditResult{}, ErrClosed
	}
	if !edit.Range.within(d.length()) {
		return EditResult{}, ErrRangeInvalid
	}

	old := d.tree.Raw(uint64(edit.Range.Start), uint64(edit.Range.End))
	d.replace(edit)
	d.revisionID = NewRevisionID()

	return EditResult{
		OldRange: edit.Range,
		NewRange: Range{Start: edit.Range.Start, End: edit.Range.Start + ByteOffset(len(edit.NewText))},
		OldText:  string(old),
		Delta:    edit.Delta(),
	}, nil
}

// ApplyEdits applies multiple edits atomically.
// Edits must be in reverse order (highest offset first) to maintain validity.
func (d *Document) ApplyEdits(edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	for i := 1; i < len(edits); i++ {
		if edits[i].Range.End > edits[i-1].Range.Start {
			return ErrEditsOverlap
		}
	}
	n := d.length()
	for _, edit := range edits {
		if !edit.Range.within(n) {
			return ErrRangeInvalid
		}
	}

	for _, edit := range edits {
		d.replace(edit)
	}
	d.revisionID = NewRevisionID()
	return nil
}

func (d *Document) replace(edit Edit) {
	start := uint64(edit.Range.Start)
	d.tree.Delete(start, uint64(edit.Range.Len()))
	d.tree.InsertBytes(start, []byte(edit.NewText), rangetree.NoGroup)
}

// Copy returns a snapshot of the given range. The snapshot shares storage
// with the document; no bytes are copied.
func (d *Document) Copy(start, end ByteOffset) (*Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if !(Range{start, end}).within(d.length()) {
		return nil, ErrRangeInvalid
	}
	return newSnapshot(d.tree.Copy(uint64(start), uint64(end-start)), d.revisionID), nil
}

// Paste inserts the content of s at offset, keeping the fuse groups it was
// copied with. The snapshot stays usable and must still be released.
// Returns the end position of the pasted text.
func (d *Document) Paste(offset ByteOffset, s *Snapshot) (ByteOffset, error) {
	sub := s.clone()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		sub.Release()
		return 0, ErrClosed
	}
	if offset < 0 || offset > d.length() {
		sub.Release()
		return 0, ErrOffsetOutOfRange
	}

	n := ByteOffset(sub.Len())
	d.tree.Paste(sub, uint64(offset))
	d.revisionID = NewRevisionID()
	return offset + n, nil
}

// Snapshot returns a read-only copy of the whole document. Taking it copies
// no bytes, and it stays valid after the document changes or closes.
func (d *Document) Snapshot() *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return newSnapshot(d.tree.Copy(0, d.tree.Len()), d.revisionID)
}

// Fuse merges adjacent leaves in the given range where their groups allow.
// Content is unchanged.
func (d *Document) Fuse(start, end ByteOffset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tree.FuseRange(clampOffset(start), clampOffset(end))
}

// Document State

// RevisionID returns the current revision ID.
func (d *Document) RevisionID() RevisionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revisionID
}

// Path returns the file the document was opened from or last saved to.
func (d *Document) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// LineEnding returns the line ending style detected in the content.
func (d *Document) LineEnding() LineEnding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lineEnding
}

// Changes delivers a notification each time the backing file changes on
// disk. It returns nil, which blocks forever in a select, when the document
// is not watching a file.
func (d *Document) Changes() <-chan fsnotify.Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher == nil {
		return nil
	}
	return d.watcher.Changes()
}

// Stats describes the document's storage.
type Stats struct {
	Summary augment.Summary
	Leaves  int
	Depth   int
	Cache   *filecache.Stats // nil for memory-only documents
}

// Stats returns storage statistics.
func (d *Document) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Stats{
		Summary: d.tree.Aggregate(),
		Leaves:  d.tree.LeafCount(),
		Depth:   d.tree.Depth(),
	}
	if d.cache != nil {
		cs := d.cache.Stats()
		st.Cache = &cs
	}
	return st
}

// Check verifies the internal consistency of the document's tree.
func (d *Document) Check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.Check()
}

func clampOffset(off ByteOffset) uint64 {
	if off < 0 {
		return 0
	}
	return uint64(off)
}
