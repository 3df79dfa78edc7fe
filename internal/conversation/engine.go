package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sugarguard/SugarGuard/internal/models"
	"github.com/sugarguard/SugarGuard/internal/store"
)

// Recognized user inputs. Matching is exact after trimming surrounding
// whitespace; unrecognized input re-prompts and keeps the current state.
const (
	inputAgree        = "同意"
	inputDisagree     = "不同意"
	inputYes          = "是"
	inputNo           = "否"
	inputWantTutorial = "我要教學"
	inputSkipTutorial = "跳過教學"
	inputShowTutorial = "功能教學"
	inputRestart      = "重新開始"
)

// tutorialTopics maps the carousel topic keywords to tutorial topics.
var tutorialTopics = map[string]models.TutorialTopic{
	"記錄血糖": models.TopicRecording,
	"查看報表": models.TopicReports,
	"健康諮詢": models.TopicConsulting,
	"圖片上傳": models.TopicImaging,
}

// summaryLimit is how many recent readings a summary reply lists.
const summaryLimit = 5

// errRestartRequested aborts the regular upsert so the caller can run the
// delete-and-recreate restart path instead. Never escapes HandleEvent.
var errRestartRequested = errors.New("restart requested")

// Engine is the conversation state machine. Each inbound event is applied as
// exactly one atomic store upsert; the returned intents describe the single
// reply batch for that event.
type Engine struct {
	store store.Store
	dedup store.DedupRepo
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDedup enables duplicate-delivery gating through the given repo.
// Without it, redelivered events are re-applied (at-least-once semantics).
func WithDedup(d store.DedupRepo) EngineOption {
	return func(e *Engine) {
		e.dedup = d
	}
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(st store.Store, opts ...EngineOption) *Engine {
	e := &Engine{store: st}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleEvent advances the user's conversation for one inbound event and
// returns the outbound intents to reply with. On a storage error no state
// change has been applied and the caller should fall back to a generic
// try-again reply.
func (e *Engine) HandleEvent(ctx context.Context, ev models.InboundEvent) ([]models.OutboundIntent, error) {
	if ev.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", models.ErrMalformedEvent)
	}

	if ev.Kind == models.EventKindUnfollow {
		// No reply handle exists; the record is kept so a re-follow resumes
		// where the user left off.
		slog.Info("Engine user unfollowed", "userID", ev.UserID)
		return nil, nil
	}
	if ev.Kind == models.EventKindOther {
		slog.Debug("Engine ignoring unsupported event kind", "userID", ev.UserID)
		return nil, nil
	}

	if ev.EventID != "" && e.dedup != nil {
		// Only fully processed events count as duplicates. A claim left open
		// by a failed earlier attempt is re-claimed here, so the redelivery
		// the platform owes us is not dropped.
		fresh, err := e.dedup.RecordInbound(ctx, ev.EventID, ev.UserID)
		if err != nil {
			// At-least-once is the platform baseline; a dedup outage must not
			// drop live traffic.
			slog.Warn("Engine dedup unavailable, processing without gate", "error", err, "eventID", ev.EventID)
		} else if !fresh {
			slog.Info("Engine skipped duplicate delivery", "eventID", ev.EventID, "userID", ev.UserID, "redelivery", ev.Redelivery)
			return nil, nil
		}
	}

	now := time.Now()
	var intents []models.OutboundIntent
	_, err := e.store.Upsert(ctx, ev.UserID, func(c *models.UserConversation) error {
		var applyErr error
		intents, applyErr = e.apply(c, ev, now)
		return applyErr
	})
	switch {
	case errors.Is(err, errRestartRequested):
		intents, err = e.restart(ctx, ev)
		if err != nil {
			return nil, err
		}
	case err != nil:
		slog.Error("Engine HandleEvent upsert failed", "error", err, "userID", ev.UserID)
		return nil, err
	}

	e.markProcessed(ctx, ev)

	slog.Debug("Engine HandleEvent succeeded", "userID", ev.UserID, "intents", len(intents))
	return intents, nil
}

// markProcessed closes the dedup window for an event after its state change
// committed. Until this runs the event stays claimable, so a failure anywhere
// earlier leaves the redelivery processable instead of stranding the message.
func (e *Engine) markProcessed(ctx context.Context, ev models.InboundEvent) {
	if ev.EventID == "" || e.dedup == nil {
		return
	}
	if err := e.dedup.MarkProcessed(ctx, ev.EventID); err != nil {
		slog.Warn("Engine failed to mark event processed", "error", err, "eventID", ev.EventID)
	}
}

// restart handles the explicit restart request from the disagreed state:
// the record is fully removed, then the next upsert recreates it fresh and
// the terms card is sent again.
func (e *Engine) restart(ctx context.Context, ev models.InboundEvent) ([]models.OutboundIntent, error) {
	slog.Info("Engine restarting user conversation", "userID", ev.UserID)
	if err := e.store.Delete(ctx, ev.UserID); err != nil {
		return nil, err
	}

	var intents []models.OutboundIntent
	_, err := e.store.Upsert(ctx, ev.UserID, func(c *models.UserConversation) error {
		c.State = models.StatePending
		intents = []models.OutboundIntent{{Kind: models.IntentTermsPrompt}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return intents, nil
}

// apply is the transition function: given the current persisted conversation
// and one normalized event it mutates the conversation and returns the reply
// intents. Every (state, input) pair maps to exactly one outcome.
func (e *Engine) apply(c *models.UserConversation, ev models.InboundEvent, now time.Time) ([]models.OutboundIntent, error) {
	// First-ever contact: any event creates the record and sends the terms.
	if c.State == "" {
		c.State = models.StatePending
		return []models.OutboundIntent{{Kind: models.IntentTermsPrompt}}, nil
	}

	// Non-text input past the consent gate gets the fixed placeholder reply
	// and never moves the state machine. Before the gate it falls through to
	// the unrecognized-input row of the current state.
	if ev.Kind == models.EventKindMedia && models.HasConsented(c.State) {
		return []models.OutboundIntent{{Kind: models.IntentMediaUnsupported}}, nil
	}

	text := strings.TrimSpace(ev.Text)

	switch c.State {
	case models.StatePending:
		return e.applyPending(c, text, now), nil
	case models.StateAwaitingButtonConfirm:
		return e.applyButtonConfirm(c, text), nil
	case models.StateAwaitingTutorialChoice:
		return e.applyTutorialChoice(c, text), nil
	case models.StateTutorialShown:
		return e.applyTutorialShown(c, text, ev.Text, now), nil
	case models.StateDetailedTutorial:
		// A topic detail was just shown; whatever comes next belongs to the
		// active flow and is evaluated there in this same call.
		c.State = models.StateActive
		return e.applyActive(c, text, ev.Text, now), nil
	case models.StateDisagreed:
		if text == inputRestart {
			return nil, errRestartRequested
		}
		return []models.OutboundIntent{{Kind: models.IntentConsentReminder}}, nil
	case models.StateActive:
		return e.applyActive(c, text, ev.Text, now), nil
	default:
		// Unknown persisted state: recover by re-running consent.
		slog.Error("Engine found invalid persisted state, resetting to pending", "userID", c.UserID, "state", c.State)
		c.State = models.StatePending
		return []models.OutboundIntent{{Kind: models.IntentTermsPrompt}}, nil
	}
}

func (e *Engine) applyPending(c *models.UserConversation, text string, now time.Time) []models.OutboundIntent {
	switch text {
	case inputAgree:
		c.State = models.StateAwaitingButtonConfirm
		c.ConsentDecidedAt = &now
		return []models.OutboundIntent{
			{Kind: models.IntentConsentCompleted},
			{Kind: models.IntentButtonCheck},
		}
	case inputDisagree:
		c.State = models.StateDisagreed
		c.ConsentDecidedAt = &now
		return []models.OutboundIntent{{Kind: models.IntentOptOutAck}}
	default:
		return []models.OutboundIntent{{Kind: models.IntentConsentReprompt}}
	}
}

func (e *Engine) applyButtonConfirm(c *models.UserConversation, text string) []models.OutboundIntent {
	switch text {
	case inputYes:
		c.State = models.StateAwaitingTutorialChoice
		return []models.OutboundIntent{{Kind: models.IntentTutorialOffer}}
	case inputNo:
		return []models.OutboundIntent{{Kind: models.IntentUIExplainer}}
	default:
		return []models.OutboundIntent{{Kind: models.IntentButtonCheckReprompt}}
	}
}

func (e *Engine) applyTutorialChoice(c *models.UserConversation, text string) []models.OutboundIntent {
	switch text {
	case inputWantTutorial:
		c.State = models.StateTutorialShown
		return []models.OutboundIntent{{Kind: models.IntentFeatureCarousel}}
	case inputSkipTutorial:
		c.State = models.StateActive
		return []models.OutboundIntent{{Kind: models.IntentTutorialSkipAck}}
	default:
		return []models.OutboundIntent{{Kind: models.IntentTutorialChoiceReprompt}}
	}
}

func (e *Engine) applyTutorialShown(c *models.UserConversation, text, rawText string, now time.Time) []models.OutboundIntent {
	if topic, ok := tutorialTopics[text]; ok {
		c.State = models.StateDetailedTutorial
		return []models.OutboundIntent{{Kind: models.IntentTopicDetail, Topic: topic}}
	}
	// Anything else is the user's real next message, not a tutorial
	// dismissal: enter the active flow and evaluate it there immediately so
	// a first reading is not swallowed.
	c.State = models.StateActive
	return e.applyActive(c, text, rawText, now)
}

func (e *Engine) applyActive(c *models.UserConversation, text, rawText string, now time.Time) []models.OutboundIntent {
	if text == inputShowTutorial {
		c.State = models.StateTutorialShown
		return []models.OutboundIntent{{Kind: models.IntentFeatureCarousel}}
	}

	switch Classify(text) {
	case ClassificationReading:
		reading := models.Reading{
			ID:         uuid.NewString(),
			RawValue:   rawText,
			RecordedAt: now,
		}
		c.Readings = append(c.Readings, reading)
		slog.Debug("Engine recorded reading", "userID", c.UserID, "count", len(c.Readings))
		return []models.OutboundIntent{{
			Kind:    models.IntentReadingRecorded,
			Reading: &reading,
			Count:   len(c.Readings),
		}}
	case ClassificationSummary:
		if len(c.Readings) == 0 {
			return []models.OutboundIntent{{Kind: models.IntentNoReadingsYet}}
		}
		return []models.OutboundIntent{{
			Kind:   models.IntentReadingSummary,
			Recent: c.RecentReadings(summaryLimit),
			Count:  len(c.Readings),
		}}
	default:
		return []models.OutboundIntent{{Kind: models.IntentGenericReply, Echo: text}}
	}
}
