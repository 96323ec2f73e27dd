package drive

import (
	"github.com/minidrive/minidrive/internal/activity"
)

// Session bundles the per-user store state: the tree rooted at the user's
// storage area plus the catalog, quota tracker, and file operations bound to
// it. One session is created per authenticated user and lives until the
// caller discards it.
type Session struct {
	Username string
	Tree     *StorageTree
	Quota    *QuotaTracker
	Catalog  *Catalog
	Ops      *FileOps
}

// OpenSession creates the user's storage root if needed and wires the store
// components over it.
func OpenSession(username, basePath string, maxBytes int64, log activity.Log) (*Session, error) {
	tree, err := NewStorageTree(RootFor(basePath, username))
	if err != nil {
		return nil, err
	}
	if err := tree.EnsureRoot(); err != nil {
		return nil, err
	}

	quota := NewQuotaTracker(maxBytes)
	return &Session{
		Username: username,
		Tree:     tree,
		Quota:    quota,
		Catalog:  NewCatalog(tree),
		Ops:      NewFileOps(tree, quota, log),
	}, nil
}
