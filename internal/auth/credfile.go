package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/minidrive/minidrive/internal/logging"
	"github.com/minidrive/minidrive/internal/metrics"
)

// CredentialFile authenticates against a line-delimited credential file with
// one `username,bcrypt-hash` record per line. Blank lines and lines starting
// with '#' are ignored.
type CredentialFile struct {
	path string
}

// NewCredentialFile creates a credential store backed by the file at path.
// The file does not need to exist yet; AddUser creates it.
func NewCredentialFile(path string) *CredentialFile {
	return &CredentialFile{path: path}
}

// Authenticate reports whether the username/password pair matches a stored
// record. A missing file or unknown user is a plain "no", not an error.
func (c *CredentialFile) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		metrics.RecordAuthAttempt(false)
		return false, nil
	}

	records, err := c.load()
	if err != nil {
		if os.IsNotExist(err) {
			metrics.RecordAuthAttempt(false)
			return false, nil
		}
		return false, fmt.Errorf("read credentials %s: %w", c.path, err)
	}

	hash, ok := records[username]
	if !ok {
		metrics.RecordAuthAttempt(false)
		logging.Warn("login failed: unknown user", zap.String("username", username))
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		metrics.RecordAuthAttempt(false)
		logging.Warn("login failed: invalid password", zap.String("username", username))
		return false, nil
	}

	metrics.RecordAuthAttempt(true)
	logging.Info("login successful", zap.String("username", username))
	return true, nil
}

// AddUser creates or replaces the record for username with a bcrypt hash of
// password. The file is rewritten atomically.
func (c *CredentialFile) AddUser(username, password string) error {
	if strings.TrimSpace(username) == "" || strings.ContainsAny(username, ",\n") {
		return fmt.Errorf("invalid username %q", username)
	}
	if password == "" {
		return fmt.Errorf("empty password for %s", username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	records, err := c.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read credentials %s: %w", c.path, err)
	}
	if records == nil {
		records = make(map[string]string)
	}
	records[username] = string(hashed)

	if err := c.store(records); err != nil {
		return fmt.Errorf("write credentials %s: %w", c.path, err)
	}
	logging.Info("user record written", zap.String("username", username))
	return nil
}

func (c *CredentialFile) load() (map[string]string, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		records[parts[0]] = parts[1]
	}
	return records, scanner.Err()
}

func (c *CredentialFile) store(records map[string]string) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	for username, hash := range records {
		if _, err := fmt.Fprintf(tmp, "%s,%s\n", username, hash); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, c.path)
}
