package line

import (
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sugarguard/SugarGuard/internal/models"
)

// Normalize maps raw LINE webhook events into the platform-agnostic inbound
// shape consumed by the conversation engine. Events without a user ID are
// kept (the engine rejects them as malformed); events without a reply token
// are accepted but produce no reply.
func Normalize(events []*linebot.Event) []models.InboundEvent {
	out := make([]models.InboundEvent, 0, len(events))
	for _, ev := range events {
		ne := models.InboundEvent{
			EventID:    ev.WebhookEventID,
			ReplyToken: ev.ReplyToken,
			Kind:       models.EventKindOther,
			Redelivery: ev.DeliveryContext.IsRedelivery,
		}
		if ev.Source != nil {
			ne.UserID = ev.Source.UserID
		}

		switch ev.Type {
		case linebot.EventTypeFollow:
			ne.Kind = models.EventKindFollow
		case linebot.EventTypeUnfollow:
			ne.Kind = models.EventKindUnfollow
		case linebot.EventTypeMessage:
			if text, ok := ev.Message.(*linebot.TextMessage); ok {
				ne.Kind = models.EventKindText
				ne.Text = text.Text
			} else {
				ne.Kind = models.EventKindMedia
			}
		}
		out = append(out, ne)
	}
	return out
}
