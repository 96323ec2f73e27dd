package drive

import (
	"fmt"
	"os"
	"strings"
)

// Catalog lists and filters the entries of a tree's current folder. It holds
// no state of its own: every call re-reads the directory and re-stats sizes,
// so listings always reflect the storage as it is now.
type Catalog struct {
	tree *StorageTree
}

// NewCatalog creates a catalog over the given tree.
func NewCatalog(tree *StorageTree) *Catalog {
	return &Catalog{tree: tree}
}

// List returns the entries directly inside the current folder, in the order
// the filesystem yields them. Callers that want a stable order sort in
// presentation.
func (c *Catalog) List() ([]Entry, error) {
	return c.Filter("")
}

// Filter returns the entries of the current folder whose name contains query
// as a case-insensitive substring. An empty query matches everything, so
// Filter("") and List agree. The call never mutates the underlying folder.
func (c *Catalog) Filter(query string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.tree.Current())
	if err != nil {
		return nil, fmt.Errorf("list %s: %v: %w", c.tree.RelativePath(), err, ErrIOFailure)
	}

	needle := strings.ToLower(query)
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if needle != "" && !strings.Contains(strings.ToLower(de.Name()), needle) {
			continue
		}
		e := Entry{Name: de.Name(), Kind: KindFile}
		if de.IsDir() {
			e.Kind = KindFolder
		} else if info, err := de.Info(); err == nil {
			e.SizeBytes = info.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}
