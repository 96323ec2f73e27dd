// Package drive implements the quota-bounded per-user file store: a storage
// tree rooted at one user's directory, entry listing and filtering, and the
// create/upload/download/delete operations over it.
package drive

// Kind distinguishes files from folders in a listing.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Entry describes one filesystem object inside the storage tree. Entries are
// values materialized per listing call; sizes are never cached across calls.
type Entry struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	SizeBytes int64  `json:"size_bytes"` // 0 for folders
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool { return e.Kind == KindFolder }
