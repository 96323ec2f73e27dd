package auth

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/minidrive/minidrive/internal/logging"
	"github.com/minidrive/minidrive/internal/metrics"
)

// PostgresStore authenticates against a `users(username, password)` table
// where password holds a bcrypt hash.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool to the given database URL.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Authenticate reports whether the username/password pair matches a stored
// record. An unknown user is a plain "no", not an error.
func (s *PostgresStore) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		metrics.RecordAuthAttempt(false)
		return false, nil
	}

	var hashed string
	err := s.db.QueryRowContext(ctx,
		`SELECT password FROM users WHERE username = $1`, username).Scan(&hashed)
	if err == sql.ErrNoRows {
		metrics.RecordAuthAttempt(false)
		logging.Warn("login failed: unknown user", zap.String("username", username))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up user %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)); err != nil {
		metrics.RecordAuthAttempt(false)
		logging.Warn("login failed: invalid password", zap.String("username", username))
		return false, nil
	}

	metrics.RecordAuthAttempt(true)
	logging.Info("login successful", zap.String("username", username))
	return true, nil
}

// AddUser creates or replaces the record for username with a bcrypt hash of
// password.
func (s *PostgresStore) AddUser(ctx context.Context, username, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET password = EXCLUDED.password`,
		username, string(hashed))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", username, err)
	}
	logging.Info("user record written", zap.String("username", username))
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
