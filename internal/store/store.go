// Package store provides storage backends for SugarGuard.
//
// It defines the per-user conversation store contract (atomic keyed
// read-modify-write) and includes SQLite, PostgreSQL, and in-memory
// implementations.
package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sugarguard/SugarGuard/internal/models"
)

// Store is the durable keyed storage of per-user conversation state.
//
// Upsert is an atomic read-modify-write scoped to a single user ID: the
// mutator runs against the current persisted record (or a fresh one on first
// contact) and the result is written back in the same transaction. Concurrent
// upserts for the same user are applied as if sequenced one after another;
// upserts for different users do not block each other. A non-nil mutator
// error aborts the write and is returned unchanged.
type Store interface {
	// Get retrieves the conversation for a user, or nil if absent.
	Get(ctx context.Context, userID string) (*models.UserConversation, error)

	// Upsert atomically loads, mutates, and writes the conversation for a
	// user, creating it on first contact. Returns the stored result.
	Upsert(ctx context.Context, userID string, mutate func(*models.UserConversation) error) (*models.UserConversation, error)

	// Delete removes the conversation for a user. Deleting an absent user is
	// not an error.
	Delete(ctx context.Context, userID string) error

	// Close releases the underlying resources.
	Close() error
}

// DedupRepo defines the interface for inbound event deduplication.
//
// An event counts as a duplicate only once it has been recorded AND marked
// processed. A row whose processing never completed (the attempt failed after
// RecordInbound) is resurrected by the next RecordInbound call, so a platform
// redelivery can pick the event up again instead of being dropped.
type DedupRepo interface {
	// RecordInbound claims an inbound event for processing. Returns false only
	// if the event was already recorded and fully processed; unprocessed rows
	// from a failed earlier attempt are re-claimed and reported fresh.
	RecordInbound(ctx context.Context, eventID, userID string) (bool, error)

	// MarkProcessed sets the processed_at timestamp for an event, closing its
	// dedup window.
	MarkProcessed(ctx context.Context, eventID string) error
}

// DedupRecord represents an inbound event deduplication record.
type DedupRecord struct {
	EventID     string     `json:"event_id"`
	UserID      string     `json:"user_id"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Opts holds configuration options for store construction.
type Opts struct {
	DSN string // database connection string
}

// Option defines a configuration option for store construction.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a non-durable Store and DedupRepo for tests and local
// development. Mutations are serialized per user via a keyed mutex so the
// Upsert contract matches the durable backends.
type InMemoryStore struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	users map[string]models.UserConversation
	seen  map[string]DedupRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		locks: make(map[string]*sync.Mutex),
		users: make(map[string]models.UserConversation),
		seen:  make(map[string]DedupRecord),
	}
}

// userLock returns the mutex serializing operations for one user.
func (s *InMemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Get retrieves a copy of the conversation for a user, or nil if absent.
func (s *InMemoryStore) Get(ctx context.Context, userID string) (*models.UserConversation, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	conv, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return cloneConversation(&conv), nil
}

// Upsert atomically applies the mutator to the stored conversation.
func (s *InMemoryStore) Upsert(ctx context.Context, userID string, mutate func(*models.UserConversation) error) (*models.UserConversation, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	now := time.Now()
	conv, ok := s.users[userID]
	if !ok {
		conv = models.UserConversation{
			UserID:         userID,
			FirstContactAt: now,
			CreatedAt:      now,
		}
	}

	working := cloneConversation(&conv)
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = now

	s.users[userID] = *cloneConversation(working)
	slog.Debug("InMemoryStore Upsert succeeded", "userID", userID, "state", working.State, "readings", len(working.Readings))
	return working, nil
}

// Delete removes the conversation for a user.
func (s *InMemoryStore) Delete(ctx context.Context, userID string) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	delete(s.users, userID)
	slog.Debug("InMemoryStore Delete succeeded", "userID", userID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// Compile-time check that InMemoryStore implements Store and DedupRepo.
var (
	_ Store     = (*InMemoryStore)(nil)
	_ DedupRepo = (*InMemoryStore)(nil)
)

// RecordInbound claims an inbound event. Rows never marked processed are
// re-claimed so a redelivery after a failed attempt is not treated as a
// duplicate.
func (s *InMemoryStore) RecordInbound(ctx context.Context, eventID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.seen[eventID]; ok && rec.ProcessedAt != nil {
		return false, nil
	}
	s.seen[eventID] = DedupRecord{EventID: eventID, UserID: userID, ReceivedAt: time.Now()}
	return true, nil
}

// MarkProcessed sets the processed timestamp for an event.
func (s *InMemoryStore) MarkProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.seen[eventID]
	if !ok {
		return nil
	}
	now := time.Now()
	rec.ProcessedAt = &now
	s.seen[eventID] = rec
	return nil
}

// cloneConversation deep-copies a conversation so callers cannot alias the
// stored readings slice.
func cloneConversation(c *models.UserConversation) *models.UserConversation {
	out := *c
	if c.ConsentDecidedAt != nil {
		t := *c.ConsentDecidedAt
		out.ConsentDecidedAt = &t
	}
	if len(c.Readings) > 0 {
		out.Readings = make([]models.Reading, len(c.Readings))
		copy(out.Readings, c.Readings)
	}
	return &out
}
