package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sugarguard/SugarGuard/internal/line"
	"github.com/sugarguard/SugarGuard/internal/models"
)

// handleWebhook processes one LINE webhook delivery. It always acknowledges
// with 200 so a transient internal fault does not trigger a platform retry
// storm; failures are logged and classified internally.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	events, err := s.parser.ParseRequest(r)
	if err != nil {
		slog.Error("Webhook parse failed", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	slog.Debug("Webhook received", "events", len(events))

	for _, ev := range line.Normalize(events) {
		s.processEvent(r.Context(), ev)
	}
	w.WriteHeader(http.StatusOK)
}

// processEvent runs one normalized event through the engine and sends the
// single reply batch it produces.
func (s *Server) processEvent(ctx context.Context, ev models.InboundEvent) {
	ctx, cancel := context.WithTimeout(ctx, DefaultEventTimeout)
	defer cancel()

	intents, err := s.engine.HandleEvent(ctx, ev)
	switch {
	case errors.Is(err, models.ErrMalformedEvent):
		slog.Warn("Dropping malformed event", "error", err)
		return
	case errors.Is(err, models.ErrStorageUnavailable):
		// No state change was applied; ask the user to try again.
		slog.Error("Storage unavailable while handling event", "error", err, "userID", ev.UserID)
		intents = []models.OutboundIntent{{Kind: models.IntentServiceUnavailable}}
	case err != nil:
		slog.Error("Unexpected engine failure", "error", err, "userID", ev.UserID)
		intents = []models.OutboundIntent{{Kind: models.IntentServiceUnavailable}}
	}

	if len(intents) == 0 || ev.ReplyToken == "" {
		return
	}

	msgs := s.renderer.Render(intents)
	if len(msgs) == 0 {
		return
	}
	if err := s.sender.Reply(ctx, ev.ReplyToken, msgs); err != nil {
		// The state mutation has already committed; durability takes
		// priority over reply delivery.
		slog.Error("Reply delivery failed after state commit", "error", err, "userID", ev.UserID)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
