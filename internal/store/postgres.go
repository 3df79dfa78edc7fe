// Package store provides storage backends for SugarGuard.
//
// This file implements a PostgreSQL-backed store for user conversations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/sugarguard/SugarGuard/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists user conversations in PostgreSQL. Upserts take a
// row-level lock on the user's row, so concurrent deliveries for the same
// user serialize while different users proceed in parallel.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	slog.Debug("Postgres database opened")

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	// Run migrations to ensure tables exist
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// Get retrieves the conversation for a user, or nil if absent.
func (s *PostgresStore) Get(ctx context.Context, userID string) (*models.UserConversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, state, first_contact_at, consent_decided_at, readings, created_at, updated_at
		FROM user_conversations WHERE user_id = $1`, userID)

	conv, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore Get not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore Get failed", "error", err, "userID", userID)
		return nil, unavailable("get user conversation", err)
	}
	slog.Debug("PostgresStore Get succeeded", "userID", userID, "state", conv.State)
	return conv, nil
}

// Upsert atomically loads, mutates, and writes the conversation for a user.
// The row is created if absent, then locked with SELECT ... FOR UPDATE for
// the duration of the transaction.
func (s *PostgresStore) Upsert(ctx context.Context, userID string, mutate func(*models.UserConversation) error) (*models.UserConversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("PostgresStore Upsert begin failed", "error", err, "userID", userID)
		return nil, unavailable("begin upsert transaction", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// Ensure the row exists so FOR UPDATE has something to lock on first
	// contact. The insert is a no-op when the user is already known.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_conversations (user_id, state, first_contact_at, readings, created_at, updated_at)
		VALUES ($1, '', $2, '[]', $2, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, now)
	if err != nil {
		slog.Error("PostgresStore Upsert seed failed", "error", err, "userID", userID)
		return nil, unavailable("seed user conversation", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT user_id, state, first_contact_at, consent_decided_at, readings, created_at, updated_at
		FROM user_conversations WHERE user_id = $1 FOR UPDATE`, userID)

	conv, err := scanConversation(row.Scan)
	if err != nil {
		slog.Error("PostgresStore Upsert read failed", "error", err, "userID", userID)
		return nil, unavailable("read user conversation", err)
	}

	if err := mutate(conv); err != nil {
		return nil, err
	}
	conv.UpdatedAt = now

	readingsJSON, err := marshalReadings(conv.Readings)
	if err != nil {
		slog.Error("PostgresStore Upsert readings marshal failed", "error", err, "userID", userID)
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_conversations
		SET state = $2, consent_decided_at = $3, readings = $4, updated_at = $5
		WHERE user_id = $1`,
		conv.UserID, string(conv.State), nullableTime(conv.ConsentDecidedAt), readingsJSON, conv.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore Upsert write failed", "error", err, "userID", userID)
		return nil, unavailable("write user conversation", err)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore Upsert commit failed", "error", err, "userID", userID)
		return nil, unavailable("commit user conversation", err)
	}
	slog.Debug("PostgresStore Upsert succeeded", "userID", userID, "state", conv.State, "readings", len(conv.Readings))
	return conv, nil
}

// Delete removes the conversation for a user.
func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_conversations WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore Delete failed", "error", err, "userID", userID)
		return unavailable("delete user conversation", err)
	}
	slog.Debug("PostgresStore Delete succeeded", "userID", userID)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
