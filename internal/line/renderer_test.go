package line

import (
	"strings"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sugarguard/SugarGuard/internal/models"
)

func TestRenderCoversEveryIntentKind(t *testing.T) {
	r := NewRenderer()
	all := []models.IntentKind{
		models.IntentTermsPrompt, models.IntentConsentCompleted, models.IntentButtonCheck,
		models.IntentConsentReprompt, models.IntentOptOutAck, models.IntentConsentReminder,
		models.IntentTutorialOffer, models.IntentUIExplainer, models.IntentButtonCheckReprompt,
		models.IntentFeatureCarousel, models.IntentTutorialSkipAck, models.IntentTutorialChoiceReprompt,
		models.IntentTopicDetail, models.IntentReadingRecorded, models.IntentReadingSummary,
		models.IntentNoReadingsYet, models.IntentGenericReply, models.IntentMediaUnsupported,
		models.IntentServiceUnavailable,
	}
	for _, kind := range all {
		if m := r.renderOne(models.OutboundIntent{Kind: kind}); m == nil {
			t.Errorf("renderOne(%q) = nil, want a message", kind)
		}
	}
}

func TestRenderDropsUnknownKind(t *testing.T) {
	r := NewRenderer()
	msgs := r.Render([]models.OutboundIntent{
		{Kind: models.IntentKind("bogus")},
		{Kind: models.IntentNoReadingsYet},
	})
	if len(msgs) != 1 {
		t.Fatalf("Render returned %d messages, want 1 (unknown kind dropped)", len(msgs))
	}
}

func TestRenderReadingRecorded(t *testing.T) {
	r := NewRenderer()
	msg := r.renderOne(models.OutboundIntent{
		Kind:    models.IntentReadingRecorded,
		Reading: &models.Reading{ID: "r1", RawValue: "血糖 120"},
		Count:   3,
	})
	text, ok := msg.(*linebot.TextMessage)
	if !ok {
		t.Fatalf("reading ack is %T, want *linebot.TextMessage", msg)
	}
	if !strings.Contains(text.Text, "血糖 120") {
		t.Errorf("reading ack %q does not echo the raw value", text.Text)
	}
	if !strings.Contains(text.Text, "第 3 筆") {
		t.Errorf("reading ack %q does not include the running count", text.Text)
	}
}

func TestRenderReadingSummary(t *testing.T) {
	r := NewRenderer()
	recent := []models.Reading{
		{RawValue: "95", RecordedAt: time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)},
		{RawValue: "142", RecordedAt: time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)},
	}
	msg := r.renderOne(models.OutboundIntent{
		Kind:   models.IntentReadingSummary,
		Recent: recent,
		Count:  7,
	})
	text, ok := msg.(*linebot.TextMessage)
	if !ok {
		t.Fatalf("summary is %T, want *linebot.TextMessage", msg)
	}
	for _, want := range []string{"• 95 (2026-08-29)", "• 142 (2026-08-30)", "最近2筆", "總共已記錄 7 筆"} {
		if !strings.Contains(text.Text, want) {
			t.Errorf("summary %q missing %q", text.Text, want)
		}
	}
}

func TestRenderGenericReply(t *testing.T) {
	r := NewRenderer()

	msg := r.renderOne(models.OutboundIntent{Kind: models.IntentGenericReply, Echo: "你好"})
	text := msg.(*linebot.TextMessage)
	if !strings.Contains(text.Text, "你好") {
		t.Errorf("generic reply %q does not echo the input", text.Text)
	}

	// Empty echo (e.g. a follow event routed through the fallback) still gets
	// a sensible line rather than an echo of nothing.
	msg = r.renderOne(models.OutboundIntent{Kind: models.IntentGenericReply})
	text = msg.(*linebot.TextMessage)
	if strings.Contains(text.Text, "收到您的訊息") {
		t.Errorf("empty-echo reply %q should not claim to echo a message", text.Text)
	}
}

func TestRenderTopicDetails(t *testing.T) {
	r := NewRenderer()
	topics := []models.TutorialTopic{
		models.TopicRecording, models.TopicReports, models.TopicConsulting, models.TopicImaging,
	}
	seen := make(map[string]bool)
	for _, topic := range topics {
		msg := r.renderOne(models.OutboundIntent{Kind: models.IntentTopicDetail, Topic: topic})
		text, ok := msg.(*linebot.TextMessage)
		if !ok {
			t.Fatalf("topic detail for %q is %T, want *linebot.TextMessage", topic, msg)
		}
		if text.Text == "" {
			t.Errorf("topic detail for %q is empty", topic)
		}
		if seen[text.Text] {
			t.Errorf("topic detail for %q duplicates another topic", topic)
		}
		seen[text.Text] = true
	}
}

func TestRenderTermsCard(t *testing.T) {
	r := NewRenderer()
	msg := r.renderOne(models.OutboundIntent{Kind: models.IntentTermsPrompt})
	flex, ok := msg.(*linebot.FlexMessage)
	if !ok {
		t.Fatalf("terms card is %T, want *linebot.FlexMessage", msg)
	}
	if flex.AltText == "" {
		t.Error("terms card has no alt text")
	}
	if _, ok := flex.Contents.(*linebot.BubbleContainer); !ok {
		t.Errorf("terms card contents is %T, want *linebot.BubbleContainer", flex.Contents)
	}
}

func TestRenderFeatureCarousel(t *testing.T) {
	r := NewRenderer()
	msg := r.renderOne(models.OutboundIntent{Kind: models.IntentFeatureCarousel})
	flex, ok := msg.(*linebot.FlexMessage)
	if !ok {
		t.Fatalf("carousel is %T, want *linebot.FlexMessage", msg)
	}
	carousel, ok := flex.Contents.(*linebot.CarouselContainer)
	if !ok {
		t.Fatalf("carousel contents is %T, want *linebot.CarouselContainer", flex.Contents)
	}
	if len(carousel.Contents) != 4 {
		t.Errorf("carousel has %d cards, want 4", len(carousel.Contents))
	}
}
