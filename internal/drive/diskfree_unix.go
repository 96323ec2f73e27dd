//go:build unix

package drive

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes returns the free space on the volume holding path. Used for
// display next to quota figures; the quota itself never depends on it.
func FreeBytes(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %v: %w", path, err, ErrIOFailure)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
