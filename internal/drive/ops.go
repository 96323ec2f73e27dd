package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/minidrive/minidrive/internal/activity"
	"github.com/minidrive/minidrive/internal/logging"
	"github.com/minidrive/minidrive/internal/metrics"
)

// FileOps performs the mutating operations (create folder, upload, delete)
// and downloads against one storage tree. Mutations on a root are serialized
// behind a single mutex held across the quota gate and the mutation itself,
// so two uploads cannot both pass WouldExceed against a stale usage figure.
//
// Every operation that succeeds appends exactly one line to the activity log;
// failed operations append nothing. Activity writes are best effort and never
// abort the operation that triggered them.
type FileOps struct {
	mu    sync.Mutex
	tree  *StorageTree
	quota *QuotaTracker
	log   activity.Log
}

// NewFileOps wires file operations over a tree with quota enforcement and an
// activity sink.
func NewFileOps(tree *StorageTree, quota *QuotaTracker, log activity.Log) *FileOps {
	return &FileOps{tree: tree, quota: quota, log: log}
}

// CreateFolder creates a new folder under the current location. Blank names
// are rejected; an already existing entry of either kind is an I/O failure.
func (o *FileOps) CreateFolder(ctx context.Context, name string) error {
	path, err := o.tree.Resolve(name)
	if err != nil {
		metrics.RecordOperation("create_folder", false)
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := os.Mkdir(path, 0755); err != nil {
		metrics.RecordOperation("create_folder", false)
		return fmt.Errorf("create folder %s: %v: %w", name, err, ErrIOFailure)
	}

	logging.Info("folder created",
		zap.String("name", name),
		zap.String("path", o.tree.RelativePath()))
	metrics.RecordOperation("create_folder", true)
	o.log.Append("Created folder: " + name)
	return nil
}

// Upload copies the file at sourcePath into the current folder as destName.
// The quota gate runs before any byte is written: a rejected upload leaves
// the storage area untouched. The copy itself goes through a temp file and a
// rename, so a failure mid-copy never leaves a partial destination behind.
func (o *FileOps) Upload(ctx context.Context, sourcePath, destName string) error {
	dest, err := o.tree.Resolve(destName)
	if err != nil {
		metrics.RecordOperation("upload", false)
		return err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		metrics.RecordOperation("upload", false)
		if os.IsNotExist(err) {
			return fmt.Errorf("upload source %s: %w", sourcePath, ErrNotFound)
		}
		return fmt.Errorf("stat upload source %s: %v: %w", sourcePath, err, ErrIOFailure)
	}
	if info.IsDir() {
		metrics.RecordOperation("upload", false)
		return fmt.Errorf("upload source %s is a folder: %w", sourcePath, ErrInvalidName)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	exceeded, err := o.quota.WouldExceed(ctx, o.tree.Root(), info.Size())
	if err != nil {
		metrics.RecordOperation("upload", false)
		return err
	}
	if exceeded {
		metrics.RecordOperation("upload", false)
		return fmt.Errorf("upload %s (%d bytes): %w", destName, info.Size(), ErrQuotaExceeded)
	}

	if _, err := os.Lstat(dest); err == nil {
		metrics.RecordOperation("upload", false)
		return fmt.Errorf("upload %s: destination already exists: %w", destName, ErrIOFailure)
	}

	if err := copyAtomic(ctx, sourcePath, dest); err != nil {
		metrics.RecordOperation("upload", false)
		return fmt.Errorf("upload %s: %v: %w", destName, err, ErrIOFailure)
	}

	logging.Info("file uploaded",
		zap.String("name", destName),
		zap.String("path", o.tree.RelativePath()),
		zap.Int64("size", info.Size()))
	metrics.RecordOperation("upload", true)
	metrics.AddBytesUploaded(info.Size())
	o.refreshQuotaGauges(ctx)
	o.log.Append("Uploaded file: " + destName)
	return nil
}

// Download copies the named file byte-for-byte to destinationPath. Folders
// are never downloadable. The destination is caller-owned and outside the
// storage area, so no cleanup is attempted there on failure.
func (o *FileOps) Download(ctx context.Context, name, destinationPath string) error {
	src, err := o.tree.Resolve(name)
	if err != nil {
		metrics.RecordOperation("download", false)
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		metrics.RecordOperation("download", false)
		return fmt.Errorf("download %s: %w", name, ErrNotFound)
	}
	if info.IsDir() {
		metrics.RecordOperation("download", false)
		return fmt.Errorf("download %s: folders are not downloadable: %w", name, ErrInvalidName)
	}

	in, err := os.Open(src)
	if err != nil {
		metrics.RecordOperation("download", false)
		return fmt.Errorf("open %s: %v: %w", name, err, ErrIOFailure)
	}
	defer in.Close()

	out, err := os.Create(destinationPath)
	if err != nil {
		metrics.RecordOperation("download", false)
		return fmt.Errorf("create %s: %v: %w", destinationPath, err, ErrIOFailure)
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		metrics.RecordOperation("download", false)
		return fmt.Errorf("copy %s -> %s: %v: %w", name, destinationPath, err, ErrIOFailure)
	}

	logging.Info("file downloaded",
		zap.String("name", name),
		zap.String("destination", destinationPath),
		zap.Int64("size", n))
	metrics.RecordOperation("download", true)
	metrics.AddBytesDownloaded(n)
	o.log.Append("Downloaded file: " + name)
	return nil
}

// Delete removes the named entry under the current location. Folders are
// deleted depth-first. If any descendant cannot be removed the operation
// fails with a PartialDeleteError listing what was and was not removed;
// partial deletion is an acceptable terminal state but is never reported as
// success.
func (o *FileOps) Delete(ctx context.Context, name string) error {
	path, err := o.tree.Resolve(name)
	if err != nil {
		metrics.RecordOperation("delete", false)
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	info, err := os.Lstat(path)
	if err != nil {
		metrics.RecordOperation("delete", false)
		return fmt.Errorf("delete %s: %w", name, ErrNotFound)
	}

	if !info.IsDir() {
		if err := os.Remove(path); err != nil {
			metrics.RecordOperation("delete", false)
			return fmt.Errorf("delete %s: %v: %w", name, err, ErrIOFailure)
		}
	} else {
		var removed, remaining []string
		cause := deleteTree(ctx, path, name, &removed, &remaining)
		if cause != nil {
			metrics.RecordOperation("delete", false)
			sort.Strings(remaining)
			return &PartialDeleteError{
				Target:    name,
				Removed:   removed,
				Remaining: remaining,
				Cause:     cause,
			}
		}
	}

	logging.Info("entry deleted",
		zap.String("name", name),
		zap.String("path", o.tree.RelativePath()))
	metrics.RecordOperation("delete", true)
	o.refreshQuotaGauges(ctx)
	o.log.Append("Deleted: " + name)
	return nil
}

// deleteTree removes dir and everything under it depth-first, recording each
// outcome under its path relative to the delete target. It keeps going after
// individual failures so the final report is complete, and returns the first
// failure encountered.
func deleteTree(ctx context.Context, dir, rel string, removed, remaining *[]string) error {
	if err := ctx.Err(); err != nil {
		*remaining = append(*remaining, rel)
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		*remaining = append(*remaining, rel)
		return err
	}

	var first error
	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())
		childRel := filepath.Join(rel, entry.Name())

		// Symlinked directories are removed as links, never descended into.
		if entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			if err := deleteTree(ctx, childPath, childRel, removed, remaining); err != nil && first == nil {
				first = err
			}
			continue
		}
		if err := os.Remove(childPath); err != nil {
			*remaining = append(*remaining, childRel)
			if first == nil {
				first = err
			}
			continue
		}
		*removed = append(*removed, childRel)
	}

	if first != nil {
		// The folder itself cannot go while children remain.
		*remaining = append(*remaining, rel)
		return first
	}
	if err := os.Remove(dir); err != nil {
		*remaining = append(*remaining, rel)
		return err
	}
	*removed = append(*removed, rel)
	return nil
}

// copyAtomic copies src into dest's directory via a temp file and renames it
// into place, removing the temp file on any failure.
func copyAtomic(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %v", err)
	}
	defer in.Close()

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".minidrive-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %v", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %v", err)
	}
	return nil
}

func (o *FileOps) refreshQuotaGauges(ctx context.Context) {
	used, err := o.quota.UsedBytes(ctx, o.tree.Root())
	if err != nil {
		logging.Warn("quota gauge refresh failed", zap.Error(err))
		return
	}
	percent := 0
	if max := o.quota.MaxBytes(); max > 0 {
		percent = int(used * 100 / max)
		if percent > 100 {
			percent = 100
		}
	}
	metrics.SetQuotaUsage(used, percent)
}
