package drive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// recordingLog captures activity lines for assertions.
type recordingLog struct {
	lines []string
}

func (r *recordingLog) Append(line string) { r.lines = append(r.lines, line) }

func newTestOps(t *testing.T, maxBytes int64) (*FileOps, *StorageTree, *recordingLog) {
	t.Helper()
	tree := newTestTree(t)
	log := &recordingLog{}
	return NewFileOps(tree, NewQuotaTracker(maxBytes), log), tree, log
}

func sourceFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.bin")
	writeFile(t, path, size)
	return path
}

func TestCreateFolder(t *testing.T) {
	ops, tree, log := newTestOps(t, 1000)
	ctx := context.Background()

	if err := ops.CreateFolder(ctx, "  "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name: expected ErrInvalidName, got %v", err)
	}

	if err := ops.CreateFolder(ctx, "Notes"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	entries, err := NewCatalog(tree).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "Notes" || entries[0].Kind != KindFolder {
		t.Errorf("expected Notes folder in listing, got %+v", entries)
	}

	if err := ops.CreateFolder(ctx, "Notes"); !errors.Is(err, ErrIOFailure) {
		t.Errorf("duplicate folder: expected ErrIOFailure, got %v", err)
	}

	if len(log.lines) != 1 || log.lines[0] != "Created folder: Notes" {
		t.Errorf("expected exactly one activity line, got %v", log.lines)
	}
}

func TestUploadQuotaScenario(t *testing.T) {
	ops, tree, log := newTestOps(t, 10)
	ctx := context.Background()
	quota := NewQuotaTracker(10)

	usedBytes := func() int64 {
		used, err := quota.UsedBytes(ctx, tree.Root())
		if err != nil {
			t.Fatal(err)
		}
		return used
	}

	if err := ops.Upload(ctx, sourceFile(t, 6), "a.bin"); err != nil {
		t.Fatalf("upload A (6 of 10): %v", err)
	}
	if got := usedBytes(); got != 6 {
		t.Fatalf("expected 6 used, got %d", got)
	}

	if err := ops.Upload(ctx, sourceFile(t, 5), "b.bin"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("upload B (6+5 over 10): expected ErrQuotaExceeded, got %v", err)
	}
	if got := usedBytes(); got != 6 {
		t.Errorf("rejected upload mutated storage: %d used", got)
	}
	if _, err := os.Lstat(filepath.Join(tree.Root(), "b.bin")); !os.IsNotExist(err) {
		t.Error("rejected upload left a destination file behind")
	}

	if err := ops.Upload(ctx, sourceFile(t, 4), "c.bin"); err != nil {
		t.Fatalf("upload C (6+4 = 10 exactly): %v", err)
	}
	if got := usedBytes(); got != 10 {
		t.Fatalf("expected 10 used, got %d", got)
	}

	if err := ops.Upload(ctx, sourceFile(t, 1), "d.bin"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("upload D (10+1 over 10): expected ErrQuotaExceeded, got %v", err)
	}

	if len(log.lines) != 2 {
		t.Errorf("expected 2 activity lines for 2 successful uploads, got %v", log.lines)
	}
}

func TestUploadErrors(t *testing.T) {
	ops, tree, _ := newTestOps(t, 1000)
	ctx := context.Background()

	if err := ops.Upload(ctx, filepath.Join(t.TempDir(), "missing.bin"), "x.bin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing source: expected ErrNotFound, got %v", err)
	}

	src := sourceFile(t, 3)
	if err := ops.Upload(ctx, src, "x.bin"); err != nil {
		t.Fatal(err)
	}
	if err := ops.Upload(ctx, src, "x.bin"); !errors.Is(err, ErrIOFailure) {
		t.Errorf("existing destination: expected ErrIOFailure, got %v", err)
	}

	if err := ops.Upload(ctx, src, "in/valid"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("separator in name: expected ErrInvalidName, got %v", err)
	}

	// No temp files may remain after any of the above.
	entries, err := os.ReadDir(tree.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "x.bin" {
			t.Errorf("unexpected leftover entry %s", e.Name())
		}
	}
}

func TestDownload(t *testing.T) {
	ops, tree, log := newTestOps(t, 1000)
	ctx := context.Background()

	if err := os.Mkdir(filepath.Join(tree.Root(), "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	content := []byte("hello minidrive")
	if err := os.WriteFile(filepath.Join(tree.Root(), "a.txt"), content, 0644); err != nil {
		t.Fatal(err)
	}

	if err := ops.Download(ctx, "docs", filepath.Join(t.TempDir(), "out")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("download folder: expected ErrInvalidName, got %v", err)
	}
	if err := ops.Download(ctx, "missing.txt", filepath.Join(t.TempDir(), "out")); !errors.Is(err, ErrNotFound) {
		t.Errorf("download missing: expected ErrNotFound, got %v", err)
	}

	dest := filepath.Join(t.TempDir(), "a-copy.txt")
	if err := ops.Download(ctx, "a.txt", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("downloaded content mismatch: %q", got)
	}

	if len(log.lines) != 1 || log.lines[0] != "Downloaded file: a.txt" {
		t.Errorf("expected one download activity line, got %v", log.lines)
	}
}

func TestDeleteRecursive(t *testing.T) {
	ops, tree, log := newTestOps(t, 1000)
	ctx := context.Background()

	// albums/ with 2 files and a subfolder holding another file.
	root := tree.Root()
	if err := os.MkdirAll(filepath.Join(root, "albums", "summer"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "albums", "one.jpg"), 5)
	writeFile(t, filepath.Join(root, "albums", "two.jpg"), 5)
	writeFile(t, filepath.Join(root, "albums", "summer", "three.jpg"), 5)
	writeFile(t, filepath.Join(root, "keep.txt"), 5)

	if err := ops.Delete(ctx, "albums"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, err := NewCatalog(tree).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "keep.txt" {
		t.Errorf("expected only keep.txt to survive, got %+v", entries)
	}

	if err := ops.Delete(ctx, "albums"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing: expected ErrNotFound, got %v", err)
	}

	if len(log.lines) != 1 || log.lines[0] != "Deleted: albums" {
		t.Errorf("expected one delete activity line, got %v", log.lines)
	}
}

func TestDeletePartialFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("read-only directory bits do not block deletes on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	ops, tree, log := newTestOps(t, 1000)
	ctx := context.Background()

	// albums/free.jpg is removable; albums/locked/pinned.jpg is not, because
	// its parent directory is read-only.
	root := tree.Root()
	locked := filepath.Join(root, "albums", "locked")
	if err := os.MkdirAll(locked, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "albums", "free.jpg"), 4)
	writeFile(t, filepath.Join(locked, "pinned.jpg"), 4)
	if err := os.Chmod(locked, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	err := ops.Delete(ctx, "albums")
	if err == nil {
		t.Fatal("Delete with an unremovable descendant should fail")
	}
	var partial *PartialDeleteError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialDeleteError, got %v", err)
	}
	if !errors.Is(err, ErrIOFailure) {
		t.Errorf("partial delete must wrap ErrIOFailure, got %v", err)
	}

	if len(partial.Removed) != 1 || partial.Removed[0] != filepath.Join("albums", "free.jpg") {
		t.Errorf("removed = %v, want [albums/free.jpg]", partial.Removed)
	}
	wantRemaining := []string{
		"albums",
		filepath.Join("albums", "locked"),
		filepath.Join("albums", "locked", "pinned.jpg"),
	}
	if len(partial.Remaining) != len(wantRemaining) {
		t.Fatalf("remaining = %v, want %v", partial.Remaining, wantRemaining)
	}
	for i, want := range wantRemaining {
		if partial.Remaining[i] != want {
			t.Errorf("remaining[%d] = %s, want %s", i, partial.Remaining[i], want)
		}
	}

	if len(log.lines) != 0 {
		t.Errorf("failed delete must not append an activity line, got %v", log.lines)
	}
}

func TestPartialDeleteErrorReportsBothSides(t *testing.T) {
	err := &PartialDeleteError{
		Target:    "albums",
		Removed:   []string{"albums/one.jpg"},
		Remaining: []string{"albums", "albums/two.jpg"},
		Cause:     errors.New("permission denied"),
	}

	if !errors.Is(err, ErrIOFailure) {
		t.Error("PartialDeleteError must wrap ErrIOFailure")
	}
	msg := err.Error()
	for _, want := range []string{"albums/two.jpg", "removed 1", "permission denied"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestNavigateAndListScenario(t *testing.T) {
	ops, tree, _ := newTestOps(t, 1000)
	ctx := context.Background()
	catalog := NewCatalog(tree)

	if err := ops.CreateFolder(ctx, "Notes"); err != nil {
		t.Fatal(err)
	}
	if err := tree.Enter("Notes"); err != nil {
		t.Fatal(err)
	}
	if err := ops.Upload(ctx, sourceFile(t, 4), "a.txt"); err != nil {
		t.Fatal(err)
	}

	if !tree.Up() {
		t.Fatal("Up from /Notes should move")
	}

	entries, err := catalog.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 root entry, got %d", len(entries))
	}
	if entries[0].Name != "Notes" || entries[0].Kind != KindFolder {
		t.Errorf("expected Notes folder at root, got %+v", entries[0])
	}
}
