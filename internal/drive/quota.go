package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxBytes is the default per-root storage quota (50 MiB).
const DefaultMaxBytes int64 = 50 * 1024 * 1024

// QuotaTracker computes recursive subtree usage and gates size-increasing
// mutations against a single per-root byte limit. The limit applies to the
// whole tree, not per folder.
type QuotaTracker struct {
	maxBytes int64
}

// NewQuotaTracker creates a tracker with the given limit. maxBytes <= 0 means
// unlimited.
func NewQuotaTracker(maxBytes int64) *QuotaTracker {
	return &QuotaTracker{maxBytes: maxBytes}
}

// MaxBytes returns the configured limit.
func (q *QuotaTracker) MaxBytes() int64 { return q.maxBytes }

// UsedBytes recursively sums the sizes of all regular files under root.
// Directory symlinks are never followed, and a real directory seen twice
// (however reached) contributes nothing the second time, so the walk always
// terminates even on cyclic layouts.
func (q *QuotaTracker) UsedBytes(ctx context.Context, root string) (int64, error) {
	visited := make(map[string]struct{})
	used, err := sumTree(ctx, root, visited)
	if err != nil {
		return 0, err
	}
	return used, nil
}

func sumTree(ctx context.Context, dir string, visited map[string]struct{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("size walk canceled: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return 0, fmt.Errorf("canonicalize %s: %v: %w", dir, err, ErrIOFailure)
	}
	if _, seen := visited[canonical]; seen {
		return 0, nil
	}
	visited[canonical] = struct{}{}

	entries, err := os.ReadDir(canonical)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %v: %w", dir, err, ErrIOFailure)
	}

	var total int64
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			// Symlinks are not followed for accounting; their targets are
			// either elsewhere in the tree (counted there) or outside it.
			continue
		}
		if entry.IsDir() {
			sub, err := sumTree(ctx, filepath.Join(canonical, entry.Name()), visited)
			if err != nil {
				return 0, err
			}
			total += sub
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, fmt.Errorf("stat %s: %v: %w", entry.Name(), err, ErrIOFailure)
		}
		total += info.Size()
	}
	return total, nil
}

// WouldExceed reports whether adding additionalBytes to the tree under root
// would push usage strictly above the limit. Pure predicate, no mutation.
func (q *QuotaTracker) WouldExceed(ctx context.Context, root string, additionalBytes int64) (bool, error) {
	if q.maxBytes <= 0 {
		return false, nil
	}
	used, err := q.UsedBytes(ctx, root)
	if err != nil {
		return false, err
	}
	return used+additionalBytes > q.maxBytes, nil
}

// PercentUsed returns floor(used*100/max) clamped to [0, 100]. The clamp is
// for display only: usage can exceed the limit internally if the quota was
// lowered after files were stored, and WouldExceed keeps gating on the real
// numbers.
func (q *QuotaTracker) PercentUsed(ctx context.Context, root string) (int, error) {
	if q.maxBytes <= 0 {
		return 0, nil
	}
	used, err := q.UsedBytes(ctx, root)
	if err != nil {
		return 0, err
	}
	percent := int(used * 100 / q.maxBytes)
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent, nil
}
