// MiniDrive CLI
//
// A quota-bounded per-user file store:
// - login with hashed credentials (file or PostgreSQL store)
// - navigate a storage tree with list/filter, create/upload/download/delete
// - type-aware previews (bounded text, 250x250 images, external opener)
// - activity log, Prometheus metrics, structured logging (zap)
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/minidrive/minidrive/internal/activity"
	"github.com/minidrive/minidrive/internal/auth"
	"github.com/minidrive/minidrive/internal/config"
	"github.com/minidrive/minidrive/internal/drive"
	"github.com/minidrive/minidrive/internal/logging"
	"github.com/minidrive/minidrive/internal/metrics"
	"github.com/minidrive/minidrive/internal/preview"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	authenticator, cleanup, err := buildAuthenticator(cfg)
	if err != nil {
		logging.Fatal("auth store error", zap.Error(err))
	}
	defer cleanup()

	ctx := context.Background()

	switch {
	case len(os.Args) > 1 && os.Args[1] == "login":
		if err := runLogin(ctx, cfg, authenticator); err != nil {
			fmt.Fprintln(os.Stderr, "login failed:", err)
			os.Exit(1)
		}
	case len(os.Args) > 1 && os.Args[1] == "help":
		printUsage()
	default:
		username, err := currentUser(ctx, cfg, authenticator)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := runShell(ctx, cfg, username); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Println(`usage: minidrive [command]

commands:
  login    authenticate and save a session token
  help     show this help
  (none)   open the interactive shell for the logged-in user`)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logging.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Error("metrics server stopped", zap.Error(err))
	}
}

// buildAuthenticator selects the credential store from configuration.
func buildAuthenticator(cfg *config.Config) (auth.Authenticator, func(), error) {
	if cfg.AuthBackend == "postgres" {
		store, err := auth.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return auth.NewCredentialFile(cfg.UsersFile), func() {}, nil
}

// runLogin prompts for credentials, verifies them, and persists a session
// token when a signing secret is configured.
func runLogin(ctx context.Context, cfg *config.Config, authenticator auth.Authenticator) error {
	username, password, err := promptCredentials()
	if err != nil {
		return err
	}

	ok, err := authenticator.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("invalid credentials")
	}

	if cfg.JWTSecret == "" {
		fmt.Println("logged in (no JWT_SECRET set, session will not be saved)")
		return runShell(ctx, cfg, username)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL())
	token, expires, err := issuer.Issue(username)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SessionFile), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(cfg.SessionFile, []byte(token), 0600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Printf("logged in as %s (session valid until %s)\n", username, expires.Format("2006-01-02 15:04"))
	return nil
}

// currentUser resolves the logged-in username from the saved session token.
func currentUser(ctx context.Context, cfg *config.Config, authenticator auth.Authenticator) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("not logged in: run `minidrive login` (set JWT_SECRET to persist sessions)")
	}
	data, err := os.ReadFile(cfg.SessionFile)
	if err != nil {
		return "", errors.New("not logged in: run `minidrive login`")
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL())
	username, err := issuer.Verify(strings.TrimSpace(string(data)))
	if err != nil {
		return "", errors.New("session expired: run `minidrive login`")
	}
	return username, nil
}

func promptCredentials() (string, string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	fmt.Print("password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(username), string(password), nil
}

// runShell opens the user's storage session and drives it interactively.
// The shell is a thin caller: every command maps to one store operation.
func runShell(ctx context.Context, cfg *config.Config, username string) error {
	fileLog := activity.NewFileLog(drive.RootFor(cfg.BaseStoragePath, username) + cfg.ActivityLogFile)
	feed := activity.NewBroadcaster()
	session, err := drive.OpenSession(username, cfg.BaseStoragePath, cfg.MaxStorageBytes, activity.Multi(fileLog, feed))
	if err != nil {
		return err
	}

	dispatcher := preview.NewDispatcher(preview.PlatformOpener{}, preview.Options{
		MaxTextBytes: cfg.TextPreviewMaxBytes,
		ImageSize:    cfg.PreviewImageSize,
	})

	lines := feed.Subscribe()
	defer feed.Unsubscribe(lines)

	fmt.Printf("MiniDrive — %s (type `help` for commands)\n", username)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s:%s> ", username, session.Tree.RelativePath())
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		if cmd == "exit" || cmd == "quit" {
			return nil
		}
		if err := runCommand(ctx, session, dispatcher, fileLog, lines, cmd, args); err != nil {
			fmt.Println("error:", shortError(err))
		}
	}
}

// logTailLines bounds how much history the log command replays.
const logTailLines = 20

func runCommand(ctx context.Context, s *drive.Session, dispatcher *preview.Dispatcher, fileLog *activity.FileLog, feed chan string, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Println(`ls | find <query> | cd <name> | up | pwd
mkdir <name> | upload <source> [name] | download <name> <dest> | rm <name>
open <name> | quota | log | exit`)
		return nil

	case "pwd":
		fmt.Println(s.Tree.RelativePath())
		return nil

	case "ls":
		return printEntries(s.Catalog.List())

	case "find":
		if len(args) != 1 {
			return errors.New("usage: find <query>")
		}
		return printEntries(s.Catalog.Filter(args[0]))

	case "cd":
		if len(args) != 1 {
			return errors.New("usage: cd <name>")
		}
		if err := s.Tree.Enter(args[0]); err != nil {
			return err
		}
		fileLog.Append("Opened folder: " + args[0])
		return nil

	case "up":
		if s.Tree.Up() {
			fileLog.Append("Went back")
		} else {
			fmt.Println("already at storage root")
		}
		return nil

	case "mkdir":
		if len(args) != 1 {
			return errors.New("usage: mkdir <name>")
		}
		return s.Ops.CreateFolder(ctx, args[0])

	case "upload":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: upload <source> [name]")
		}
		name := filepath.Base(args[0])
		if len(args) == 2 {
			name = args[1]
		}
		return s.Ops.Upload(ctx, args[0], name)

	case "download":
		if len(args) != 2 {
			return errors.New("usage: download <name> <dest>")
		}
		return s.Ops.Download(ctx, args[0], args[1])

	case "rm":
		if len(args) != 1 {
			return errors.New("usage: rm <name>")
		}
		return s.Ops.Delete(ctx, args[0])

	case "open":
		if len(args) != 1 {
			return errors.New("usage: open <name>")
		}
		return openPreview(ctx, s, dispatcher, fileLog, args[0])

	case "quota":
		return printQuota(ctx, s)

	case "log":
		// The file holds the full history; every line on the feed was
		// written there first, so the feed is just drained.
		lines, err := fileLog.Tail(logTailLines)
		if err != nil {
			return fmt.Errorf("read activity log: %v: %w", err, drive.ErrIOFailure)
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		for {
			select {
			case <-feed:
			default:
				return nil
			}
		}

	default:
		return fmt.Errorf("unknown command %q (try `help`)", cmd)
	}
}

func openPreview(ctx context.Context, s *drive.Session, dispatcher *preview.Dispatcher, fileLog activity.Log, name string) error {
	path, err := s.Tree.Resolve(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", name, drive.ErrNotFound)
	}

	result, err := dispatcher.Open(ctx, path)
	if err != nil {
		return err
	}

	switch result.Strategy {
	case preview.StrategyText:
		fmt.Print(result.Text)
		if !strings.HasSuffix(result.Text, "\n") {
			fmt.Println()
		}
		if result.Truncated {
			fmt.Println("[preview truncated]")
		}
	case preview.StrategyImage:
		tmp, err := os.CreateTemp("", "minidrive-preview-*.jpg")
		if err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		if _, err := tmp.Write(result.Image); err != nil {
			tmp.Close()
			return fmt.Errorf("write preview: %w", err)
		}
		tmp.Close()
		fmt.Printf("image preview %dx%d written to %s\n", result.Width, result.Height, tmp.Name())
	default:
		fmt.Println("opened with system default application")
	}

	fileLog.Append("Opened file: " + name)
	return nil
}

func printEntries(entries []drive.Entry, err error) error {
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		if e.IsFolder() {
			fmt.Printf("%-40s folder\n", e.Name)
		} else {
			fmt.Printf("%-40s file  %s\n", e.Name, formatBytes(e.SizeBytes))
		}
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}

func printQuota(ctx context.Context, s *drive.Session) error {
	used, err := s.Quota.UsedBytes(ctx, s.Tree.Root())
	if err != nil {
		return err
	}
	percent, err := s.Quota.PercentUsed(ctx, s.Tree.Root())
	if err != nil {
		return err
	}
	fmt.Printf("used %s of %s (%d%%)\n", formatBytes(used), formatBytes(s.Quota.MaxBytes()), percent)
	if free, err := drive.FreeBytes(s.Tree.Root()); err == nil && free > 0 {
		fmt.Printf("disk free: %s\n", formatBytes(free))
	}
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1024*1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// shortError strips wrapped detail down to the user-facing failure kind when
// one of the taxonomy sentinels is present.
func shortError(err error) string {
	switch {
	case errors.Is(err, drive.ErrInvalidName):
		return "invalid name"
	case errors.Is(err, drive.ErrQuotaExceeded):
		return "storage limit reached"
	case errors.Is(err, drive.ErrNotFound):
		return "not found"
	case errors.Is(err, drive.ErrPreviewUnavailable):
		return "cannot open file"
	default:
		var partial *drive.PartialDeleteError
		if errors.As(err, &partial) {
			return partial.Error()
		}
		return err.Error()
	}
}
