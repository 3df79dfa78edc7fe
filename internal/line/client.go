// Package line wraps the LINE Messaging API SDK for SugarGuard.
//
// It normalizes webhook events into the platform-agnostic inbound shape and
// renders outbound intents into LINE message payloads.
package line

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sugarguard/SugarGuard/internal/models"
)

// Sender sends one reply batch for one inbound event. The reply token
// authorizes exactly one batch.
type Sender interface {
	Reply(ctx context.Context, replyToken string, msgs []linebot.SendingMessage) error
}

// Client wraps the LINE bot client for modular use.
type Client struct {
	bot *linebot.Client
}

// NewClient creates a LINE client from the channel credentials.
func NewClient(channelSecret, channelToken string) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, fmt.Errorf("LINE channel secret and access token are required")
	}
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		slog.Error("Failed to create LINE client", "error", err)
		return nil, fmt.Errorf("failed to create LINE client: %w", err)
	}
	slog.Debug("LINE client created")
	return &Client{bot: bot}, nil
}

// ParseRequest validates and decodes a webhook request into LINE events.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.bot.ParseRequest(r)
}

// Reply sends one reply batch. Failures are wrapped in ErrDeliveryFailure so
// callers can distinguish them from storage errors; by then any state
// mutation has already committed and is not rolled back.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs []linebot.SendingMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if _, err := c.bot.ReplyMessage(replyToken, msgs...).WithContext(ctx).Do(); err != nil {
		slog.Error("LINE reply failed", "error", err)
		return fmt.Errorf("%w: %v", models.ErrDeliveryFailure, err)
	}
	slog.Debug("LINE reply sent", "messages", len(msgs))
	return nil
}

// Compile-time check that Client implements Sender.
var _ Sender = (*Client)(nil)
