// user-tool manages MiniDrive credential records: it creates or replaces a
// user in the configured store (credential file or PostgreSQL), bcrypt-hashing
// the password. Plaintext passwords are never stored.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/minidrive/minidrive/internal/auth"
	"github.com/minidrive/minidrive/internal/config"
	"github.com/minidrive/minidrive/internal/logging"
)

func main() {
	username := flag.String("username", "", "Username to create or update")
	flag.Parse()

	if err := logging.Init(logging.Config{Level: "info", Format: "console"}); err != nil {
		panic("logging init: " + err.Error())
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("config error", zap.Error(err))
	}

	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: user-tool -username <name>")
		os.Exit(2)
	}

	password, err := promptPassword()
	if err != nil {
		logging.Fatal("password prompt failed", zap.Error(err))
	}

	ctx := context.Background()
	if err := addUser(ctx, cfg, *username, password); err != nil {
		logging.Fatal("user creation failed", zap.Error(err))
	}

	fmt.Printf("user %s written to %s store\n", *username, cfg.AuthBackend)
}

func addUser(ctx context.Context, cfg *config.Config, username, password string) error {
	if cfg.AuthBackend == "postgres" {
		store, err := auth.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		return store.AddUser(ctx, username, password)
	}
	return auth.NewCredentialFile(cfg.UsersFile).AddUser(username, password)
}

func promptPassword() (string, error) {
	fmt.Print("password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	fmt.Print("repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
