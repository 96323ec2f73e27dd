//go:build !unix

package drive

// FreeBytes is unsupported on this platform.
func FreeBytes(path string) (int64, error) {
	return 0, nil
}
