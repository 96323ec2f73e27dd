// Package activity provides the append-only activity log the file operations
// report into: one human-readable line per completed operation, in call
// order. Sinks are best effort; a failed write never aborts the operation
// that produced the line.
package activity

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minidrive/minidrive/internal/logging"
	"github.com/minidrive/minidrive/internal/metrics"
)

// Log is the sink for completed-operation lines.
type Log interface {
	Append(line string)
}

// Discard is a Log that drops everything.
var Discard Log = discard{}

type discard struct{}

func (discard) Append(string) {}

// FileLog appends timestamped lines to a file. Writes are serialized and
// best effort: failures are logged at warn and swallowed.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates a file-backed activity log at path.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Append writes one line with a timestamp prefix.
func (l *FileLog) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logging.Warn("activity log open failed", zap.String("path", l.path), zap.Error(err))
		return
	}
	defer f.Close()

	stamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "%s %s\n", stamp, line); err != nil {
		logging.Warn("activity log write failed", zap.String("path", l.path), zap.Error(err))
		return
	}
	metrics.RecordActivityLine()
}

// Tail returns up to the last n lines of the log, oldest first. A log file
// that does not exist yet yields no lines and no error.
func (l *FileLog) Tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Multi fans one Append out to several sinks in order.
func Multi(logs ...Log) Log {
	return multiLog(logs)
}

type multiLog []Log

func (m multiLog) Append(line string) {
	for _, l := range m {
		l.Append(line)
	}
}
