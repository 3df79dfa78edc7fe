// Package store provides storage backends for SugarGuard.
//
// This file implements an SQLite-backed store for user conversations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/sugarguard/SugarGuard/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists user conversations in a single SQLite database file.
// SQLite allows one writer at a time, so transactional upserts are serialized
// for all users; per-user serializability follows directly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(strings.TrimPrefix(dsn, "file:"))
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	if !strings.Contains(dsn, "_busy_timeout") {
		slog.Warn("SQLite DSN has no busy timeout configured. Concurrent webhook "+
			"deliveries retry on the single-writer lock; consider adding "+
			"'?_busy_timeout=5000' to the connection string.",
			"dsn_example", "file:"+dsn+"?_busy_timeout=5000")
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	slog.Debug("SQLite database opened")

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure tables exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Get retrieves the conversation for a user, or nil if absent.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*models.UserConversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, state, first_contact_at, consent_decided_at, readings, created_at, updated_at
		FROM user_conversations WHERE user_id = ?`, userID)

	conv, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore Get not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore Get failed", "error", err, "userID", userID)
		return nil, unavailable("get user conversation", err)
	}
	slog.Debug("SQLiteStore Get succeeded", "userID", userID, "state", conv.State)
	return conv, nil
}

// Upsert atomically loads, mutates, and writes the conversation for a user.
// The read and the write share one transaction, so a concurrent delivery for
// the same user can never overwrite this call's append or state change.
func (s *SQLiteStore) Upsert(ctx context.Context, userID string, mutate func(*models.UserConversation) error) (*models.UserConversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("SQLiteStore Upsert begin failed", "error", err, "userID", userID)
		return nil, unavailable("begin upsert transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT user_id, state, first_contact_at, consent_decided_at, readings, created_at, updated_at
		FROM user_conversations WHERE user_id = ?`, userID)

	now := time.Now()
	conv, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		conv = &models.UserConversation{
			UserID:         userID,
			FirstContactAt: now,
			CreatedAt:      now,
		}
	} else if err != nil {
		slog.Error("SQLiteStore Upsert read failed", "error", err, "userID", userID)
		return nil, unavailable("read user conversation", err)
	}

	if err := mutate(conv); err != nil {
		return nil, err
	}
	conv.UpdatedAt = now

	readingsJSON, err := marshalReadings(conv.Readings)
	if err != nil {
		slog.Error("SQLiteStore Upsert readings marshal failed", "error", err, "userID", userID)
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_conversations (user_id, state, first_contact_at, consent_decided_at, readings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state = excluded.state,
			consent_decided_at = excluded.consent_decided_at,
			readings = excluded.readings,
			updated_at = excluded.updated_at`,
		conv.UserID, string(conv.State), conv.FirstContactAt, nullableTime(conv.ConsentDecidedAt),
		readingsJSON, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore Upsert write failed", "error", err, "userID", userID)
		return nil, unavailable("write user conversation", err)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore Upsert commit failed", "error", err, "userID", userID)
		return nil, unavailable("commit user conversation", err)
	}
	slog.Debug("SQLiteStore Upsert succeeded", "userID", userID, "state", conv.State, "readings", len(conv.Readings))
	return conv, nil
}

// Delete removes the conversation for a user.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_conversations WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore Delete failed", "error", err, "userID", userID)
		return unavailable("delete user conversation", err)
	}
	slog.Debug("SQLiteStore Delete succeeded", "userID", userID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// scanConversation scans one user_conversations row via the given scan func.
func scanConversation(scan func(dest ...any) error) (*models.UserConversation, error) {
	var conv models.UserConversation
	var state, readingsJSON string
	var consentDecidedAt sql.NullTime

	err := scan(&conv.UserID, &state, &conv.FirstContactAt, &consentDecidedAt,
		&readingsJSON, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	conv.State = models.ConversationState(state)
	if consentDecidedAt.Valid {
		t := consentDecidedAt.Time
		conv.ConsentDecidedAt = &t
	}
	readings, err := unmarshalReadings(readingsJSON)
	if err != nil {
		return nil, err
	}
	conv.Readings = readings
	return &conv, nil
}

// nullableTime maps an optional timestamp to a nullable database value.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
