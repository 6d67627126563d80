package buffer

import (
	"io"
	"sync"

	"github.com/dshills/rangebuf/internal/engine/augment"
)

// Snapshot is a read-only copy of a document or a range of one. It shares
// storage with the document it came from, which may keep changing, and it
// holds that storage alive until Release. Snapshots double as the clipboard:
// Document.Paste inserts one.
//
// A Snapshot is safe for concurrent reads.
type Snapshot struct {
	mu         sync.RWMutex
	tree       *Tree
	revisionID RevisionID
}

func newSnapshot(tree *Tree, rev RevisionID) *Snapshot {
	return &Snapshot{tree: tree, revisionID: rev}
}

// Text returns the full snapshot content as a string.
func (s *Snapshot) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.tree.Raw(0, s.tree.Len()))
}

// TextRange returns text in the given byte range, clamped to the snapshot.
func (s *Snapshot) TextRange(start, end ByteOffset) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.tree.Raw(clampOffset(start), clampOffset(end)))
}

// Len returns the total byte length of the snapshot.
func (s *Snapshot) Len() ByteOffset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ByteOffset(s.tree.Len())
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Aggregate().Lines + 1
}

// Summary returns the text metrics of the snapshot.
func (s *Snapshot) Summary() augment.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Aggregate()
}

// RevisionID returns the document revision the snapshot was taken at.
func (s *Snapshot) RevisionID() RevisionID {
	return s.revisionID
}

// WriteTo writes the snapshot content to w.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.WriteTo(w)
}

// Release drops the snapshot's hold on shared storage. The snapshot reads as
// empty afterwards.
func (s *Snapshot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Release()
}

// clone returns an independent tree with the snapshot's content.
func (s *Snapshot) clone() *Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Copy(0, s.tree.Len())
}
