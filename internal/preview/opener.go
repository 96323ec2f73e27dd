package preview

import (
	"fmt"
	"os/exec"
	"runtime"
)

// PlatformOpener opens files with the operating system's default application.
type PlatformOpener struct{}

// OpenExternally hands the file to the platform opener and returns once the
// launch command has been started.
func (PlatformOpener) OpenExternally(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch opener for %s: %w", path, err)
	}
	// Detach: the viewer owns the file from here.
	go cmd.Wait()
	return nil
}
