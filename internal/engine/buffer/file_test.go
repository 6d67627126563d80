package buffer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/rangebuf/internal/engine/filecache"
)

// numberedLines returns n lines of the form "line 0000\n".
func numberedLines(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "line %04d\n", i)
	}
	return sb.String()
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestOpen(t *testing.T) {
	content := numberedLines(1000)
	path := writeDoc(t, content)

	d, err := Open(path, WithPageSize(1024), WithMaxCacheBytes(4096))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer d.Close()

	if d.Path() != path {
		t.Errorf("expected path %q, got %q", path, d.Path())
	}
	if d.Len() != int64(len(content)) {
		t.Errorf("expected length %d, got %d", len(content), d.Len())
	}
	if d.LineCount() != 1001 {
		t.Errorf("expected 1001 lines, got %d", d.LineCount())
	}
	if got := d.LineText(500); got != "line 0500" {
		t.Errorf("LineText(500) = %q", got)
	}
	if got := d.PointToOffset(Point{Line: 999, Column: 5}); got != 9995 {
		t.Errorf("PointToOffset = %d, want 9995", got)
	}

	st := d.Stats()
	if st.Cache == nil {
		t.Fatal("file-backed document should report cache stats")
	}
	if st.Cache.ResidentBytes > 4096 {
		t.Errorf("resident bytes %d exceed the cache limit", st.Cache.ResidentBytes)
	}
	if st.Leaves != 10 {
		t.Errorf("expected one leaf per page, got %d", st.Leaves)
	}
	if d.Text() != content {
		t.Error("content mismatch")
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestSaveInPlace(t *testing.T) {
	path := writeDoc(t, "alpha\nbeta\ngamma\n")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := Open(path, WithPageSize(4))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	snap := d.Snapshot()
	defer snap.Release()

	if _, err := d.Insert(0, "header\n"); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(13, 18); err != nil { // "beta\n"
		t.Fatal(err)
	}
	want := "header\nalpha\ngamma\n"
	if d.Text() != want {
		t.Fatalf("before save: %q", d.Text())
	}

	if err := d.Save(""); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got := readFile(t, path); got != want {
		t.Errorf("file content %q, want %q", got, want)
	}
	if d.Text() != want {
		t.Errorf("document content after save %q", d.Text())
	}
	if d.ChangedOnDisk() {
		t.Error("saving should not count as an external change")
	}
	if snap.Text() != "alpha\nbeta\ngamma\n" {
		t.Errorf("snapshot should keep the old content, got %q", snap.Text())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("save should keep permissions, got %v", info.Mode().Perm())
	}
	if err := d.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveMemoryDocument(t *testing.T) {
	d := FromString("from memory\n")
	defer d.Close()

	if err := d.Save(""); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "new.txt")
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "from memory\n" {
		t.Errorf("file content %q", got)
	}
	if d.Path() != path {
		t.Errorf("document should now be backed by %q, got %q", path, d.Path())
	}
	if d.Stats().Cache == nil {
		t.Error("saved document should read through a file cache")
	}
}

func TestChangedOnDiskAndReload(t *testing.T) {
	path := writeDoc(t, "original\n")

	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if d.ChangedOnDisk() {
		t.Error("fresh document should not be changed on disk")
	}
	if err := os.WriteFile(path, []byte("rewritten by someone else\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !d.ChangedOnDisk() {
		t.Error("expected external write to be detected")
	}

	if err := d.Reload(); err != nil {
		t.Fatal(err)
	}
	if d.Text() != "rewritten by someone else\n" {
		t.Errorf("after reload: %q", d.Text())
	}
	if d.ChangedOnDisk() {
		t.Error("reload should clear the changed state")
	}
}

func TestReloadMemoryDocument(t *testing.T) {
	d := FromString("x")
	if err := d.Reload(); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

func TestDetach(t *testing.T) {
	path := writeDoc(t, numberedLines(50))

	d, err := Open(path, WithPageSize(64))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	d.Detach()
	if d.Stats().Cache != nil {
		t.Error("detached document should have no cache")
	}
	if err := os.WriteFile(path, []byte("clobbered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if d.Text() != numberedLines(50) {
		t.Error("detached document should keep its content")
	}
	if d.ChangedOnDisk() {
		t.Error("detached document does not track the file")
	}

	if err := d.Save(""); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != numberedLines(50) {
		t.Error("save should restore the detached content")
	}
}

func TestCopyPasteFromFile(t *testing.T) {
	path := writeDoc(t, numberedLines(100))

	src, err := Open(path, WithPageSize(256))
	if err != nil {
		t.Fatal(err)
	}
	dst := FromString("<>")

	start := src.LineStartOffset(10)
	clip, err := src.Copy(start, src.LineStartOffset(20))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dst.Paste(1, clip); err != nil {
		t.Fatal(err)
	}
	clip.Release()
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}

	want := "<" + strings.Join(strings.SplitAfter(numberedLines(100), "\n")[10:20], "") + ">"
	if dst.Text() != want {
		t.Errorf("pasted content mismatch:\n%q\n%q", dst.Text(), want)
	}
	if dst.LineCount() != 11 {
		t.Errorf("expected 11 lines, got %d", dst.LineCount())
	}
}

func TestSharedBudget(t *testing.T) {
	budget := filecache.NewBudget(8 * 1024)
	a, err := Open(writeDoc(t, numberedLines(3000)), WithPageSize(1024), WithBudget(budget))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Open(writeDoc(t, numberedLines(3000)), WithPageSize(1024), WithBudget(budget))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if a.Text() != b.Text() {
		t.Error("documents should match")
	}
	if budget.Used() > budget.Limit() {
		t.Errorf("budget overrun: %d > %d", budget.Used(), budget.Limit())
	}
}

func TestWatchNotifiesChanges(t *testing.T) {
	path := writeDoc(t, "watched\n")

	d, err := Open(path, WithWatch(true))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	changes := d.Changes()
	if changes == nil {
		t.Skip("file watching unavailable")
	}
	if err := os.WriteFile(path, []byte("changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	if !d.ChangedOnDisk() {
		t.Error("expected ChangedOnDisk after notification")
	}
}

func TestChangesWithoutWatch(t *testing.T) {
	d := FromString("x")
	if d.Changes() != nil {
		t.Error("memory document should have no change channel")
	}
}
