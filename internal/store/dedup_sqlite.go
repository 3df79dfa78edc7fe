package store

import (
	"context"
	"log/slog"
	"time"
)

// Compile-time check that SQLiteStore implements DedupRepo.
var _ DedupRepo = (*SQLiteStore)(nil)

// RecordInbound claims an inbound event for processing. Returns false only if
// the event was already recorded and marked processed; a row whose earlier
// attempt failed before MarkProcessed is re-claimed so the redelivery is not
// dropped.
func (s *SQLiteStore) RecordInbound(ctx context.Context, eventID, userID string) (bool, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO inbound_dedup (event_id, user_id, received_at) VALUES (?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET received_at = excluded.received_at
		WHERE inbound_dedup.processed_at IS NULL`,
		eventID, userID, now,
	)
	if err != nil {
		slog.Error("SQLiteStore RecordInbound failed", "error", err, "eventID", eventID)
		return false, unavailable("record inbound event", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("dedup rows affected check", err)
	}
	return n > 0, nil
}

// MarkProcessed sets the processed_at timestamp for an event.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE inbound_dedup SET processed_at = ? WHERE event_id = ?`,
		now, eventID,
	)
	if err != nil {
		slog.Error("SQLiteStore MarkProcessed failed", "error", err, "eventID", eventID)
		return unavailable("mark event processed", err)
	}
	return nil
}
