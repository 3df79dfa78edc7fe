package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarguard/SugarGuard/internal/conversation"
	"github.com/sugarguard/SugarGuard/internal/models"
	"github.com/sugarguard/SugarGuard/internal/store"
)

// fakeParser skips signature verification and returns canned events.
type fakeParser struct {
	events []*linebot.Event
	err    error
}

func (f *fakeParser) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return f.events, f.err
}

// fakeSender records every reply batch.
type fakeSender struct {
	mu      sync.Mutex
	batches [][]linebot.SendingMessage
	tokens  []string
	err     error
}

func (f *fakeSender) Reply(ctx context.Context, replyToken string, msgs []linebot.SendingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, replyToken)
	f.batches = append(f.batches, msgs)
	return f.err
}

func textMessageEvent(userID, eventID, replyToken, text string) *linebot.Event {
	return &linebot.Event{
		Type:           linebot.EventTypeMessage,
		WebhookEventID: eventID,
		ReplyToken:     replyToken,
		Source:         &linebot.EventSource{UserID: userID},
		Message:        &linebot.TextMessage{Text: text},
	}
}

func postWebhook(t *testing.T, srv *Server) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(`{"events":[]}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestWebhookHappyPath(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := conversation.NewEngine(st, conversation.WithDedup(st))
	sender := &fakeSender{}
	parser := &fakeParser{events: []*linebot.Event{
		textMessageEvent("U1", "evt-1", "rt-1", "hello"),
	}}
	srv := NewServer(engine, parser, sender)

	rec := postWebhook(t, srv)
	assert.Equal(t, http.StatusOK, rec.Code)

	// First contact: the terms card goes out as one reply batch.
	require.Len(t, sender.batches, 1)
	assert.Equal(t, "rt-1", sender.tokens[0])
	require.Len(t, sender.batches[0], 1)
	_, ok := sender.batches[0][0].(*linebot.FlexMessage)
	assert.True(t, ok, "terms reply should be a flex message")

	conv, err := st.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, models.StatePending, conv.State)
}

func TestWebhookMultiMessageBatch(t *testing.T) {
	st := store.NewInMemoryStore()
	_, err := st.Upsert(context.Background(), "U1", func(c *models.UserConversation) error {
		c.State = models.StatePending
		return nil
	})
	require.NoError(t, err)

	engine := conversation.NewEngine(st, conversation.WithDedup(st))
	sender := &fakeSender{}
	parser := &fakeParser{events: []*linebot.Event{
		textMessageEvent("U1", "evt-1", "rt-1", "同意"),
	}}
	srv := NewServer(engine, parser, sender)

	rec := postWebhook(t, srv)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Consent produces the welcome card plus the button check in one call.
	require.Len(t, sender.batches, 1)
	assert.Len(t, sender.batches[0], 2)
}

func TestWebhookParseFailureAcked(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := conversation.NewEngine(st)
	sender := &fakeSender{}
	parser := &fakeParser{err: linebot.ErrInvalidSignature}
	srv := NewServer(engine, parser, sender)

	rec := postWebhook(t, srv)
	// A bad request must not trigger platform retries.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sender.batches)
}

// failingStore simulates a storage outage.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, userID string) (*models.UserConversation, error) {
	return nil, models.ErrStorageUnavailable
}

func (failingStore) Upsert(ctx context.Context, userID string, mutate func(*models.UserConversation) error) (*models.UserConversation, error) {
	return nil, models.ErrStorageUnavailable
}

func (failingStore) Delete(ctx context.Context, userID string) error {
	return models.ErrStorageUnavailable
}

func (failingStore) Close() error { return nil }

func TestWebhookStorageFailureRepliesTryAgain(t *testing.T) {
	engine := conversation.NewEngine(failingStore{})
	sender := &fakeSender{}
	parser := &fakeParser{events: []*linebot.Event{
		textMessageEvent("U1", "evt-1", "rt-1", "120"),
	}}
	srv := NewServer(engine, parser, sender)

	rec := postWebhook(t, srv)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sender.batches, 1)
	require.Len(t, sender.batches[0], 1)
	text, ok := sender.batches[0][0].(*linebot.TextMessage)
	require.True(t, ok)
	assert.Contains(t, text.Text, "稍後再試")
}

func TestWebhookDeliveryFailureStillAcked(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := conversation.NewEngine(st, conversation.WithDedup(st))
	sender := &fakeSender{err: errors.New("line api down")}
	parser := &fakeParser{events: []*linebot.Event{
		textMessageEvent("U1", "evt-1", "rt-1", "hello"),
	}}
	srv := NewServer(engine, parser, sender)

	rec := postWebhook(t, srv)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The state change committed even though the reply never made it out.
	conv, err := st.Get(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, models.StatePending, conv.State)
}

func TestWebhookNoReplyTokenSkipsSend(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := conversation.NewEngine(st, conversation.WithDedup(st))
	sender := &fakeSender{}
	parser := &fakeParser{events: []*linebot.Event{
		{
			Type:   linebot.EventTypeUnfollow,
			Source: &linebot.EventSource{UserID: "U1"},
		},
	}}
	srv := NewServer(engine, parser, sender)

	rec := postWebhook(t, srv)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sender.batches)
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(conversation.NewEngine(store.NewInMemoryStore()), &fakeParser{}, &fakeSender{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
