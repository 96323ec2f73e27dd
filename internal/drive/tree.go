package drive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StorageTree owns the root boundary of one user's storage area and the
// current-location cursor. The cursor is always the root itself or a
// descendant of it; both are kept canonical (cleaned, symlinks resolved) so
// the boundary check cannot be defeated by ".." segments or symlink escapes.
//
// A tree is created once per authenticated session and holds no file handles,
// only paths, so it needs no teardown.
type StorageTree struct {
	root    string
	current string
}

// NewStorageTree creates a tree rooted at rootPath. The root directory does
// not need to exist yet; call EnsureRoot before navigating.
func NewStorageTree(rootPath string) (*StorageTree, error) {
	abs, err := filepath.Abs(filepath.Clean(rootPath))
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootPath, ErrIOFailure)
	}
	return &StorageTree{root: abs, current: abs}, nil
}

// RootFor returns the storage root path for a username under basePath.
// This username -> directory mapping is the only persisted layout the
// store depends on.
func RootFor(basePath, username string) string {
	return filepath.Join(basePath, username)
}

// EnsureRoot creates the root directory if it is missing. Idempotent: an
// existing root is not an error.
func (t *StorageTree) EnsureRoot() error {
	if err := os.MkdirAll(t.root, 0755); err != nil {
		return fmt.Errorf("create root %s: %v: %w", t.root, err, ErrIOFailure)
	}
	// Canonicalize now that the directory exists, so descendant checks
	// compare resolved paths.
	canonical, err := filepath.EvalSymlinks(t.root)
	if err != nil {
		return fmt.Errorf("canonicalize root %s: %v: %w", t.root, err, ErrIOFailure)
	}
	if t.current == t.root {
		t.current = canonical
	}
	t.root = canonical
	return nil
}

// Root returns the canonical root path.
func (t *StorageTree) Root() string { return t.root }

// Current returns the canonical path of the current folder.
func (t *StorageTree) Current() string { return t.current }

// RelativePath returns the cursor's path relative to the root, "/" at root.
func (t *StorageTree) RelativePath() string {
	if t.current == t.root {
		return "/"
	}
	rel, err := filepath.Rel(t.root, t.current)
	if err != nil {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// Enter descends into the named folder under the current location. The name
// must resolve to an existing directory that stays inside the root once
// symlinks are resolved.
func (t *StorageTree) Enter(name string) error {
	path, err := t.Resolve(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("enter %s: %w", name, ErrNotFound)
	}
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("enter %s: %w", name, ErrNotFound)
	}
	if !t.contains(canonical) {
		// Symlinked folder pointing outside the storage area.
		return fmt.Errorf("enter %s: resolves outside storage root: %w", name, ErrNotFound)
	}
	t.current = canonical
	return nil
}

// Up moves the cursor to its parent folder and reports whether a move
// occurred. At the root it is a no-op: navigation never escapes the root.
func (t *StorageTree) Up() bool {
	if t.current == t.root {
		return false
	}
	t.current = filepath.Dir(t.current)
	return true
}

// Resolve returns the canonical path for name under the current folder.
// Names containing path separators, blank names, and the "." and ".."
// pseudo-entries are rejected so a name can never address anything outside
// the current folder.
func (t *StorageTree) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("blank name: %w", ErrInvalidName)
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("name %q: %w", name, ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("name %q contains path separator: %w", name, ErrInvalidName)
	}
	return filepath.Join(t.current, name), nil
}

func (t *StorageTree) contains(path string) bool {
	return path == t.root || strings.HasPrefix(path, t.root+string(os.PathSeparator))
}
