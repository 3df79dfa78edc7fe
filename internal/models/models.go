// Package models defines the core data structures for SugarGuard.
//
// It includes the inbound event and outbound intent types shared between the
// webhook boundary, the conversation engine, and the LINE adapter.
package models

import (
	"errors"
	"time"
)

// EventKind classifies a normalized inbound platform event.
type EventKind string

const (
	// EventKindFollow indicates the user added (or re-added) the bot.
	EventKindFollow EventKind = "follow"
	// EventKindUnfollow indicates the user blocked or removed the bot.
	EventKindUnfollow EventKind = "unfollow"
	// EventKindText indicates a text message from the user.
	EventKindText EventKind = "text"
	// EventKindMedia indicates a non-text message (image, sticker, audio, ...).
	EventKindMedia EventKind = "media"
	// EventKindOther indicates an event type the bot does not act on.
	EventKindOther EventKind = "other"
)

// InboundEvent is the normalized representation of one platform notification
// for one user. EventID is the platform's webhook event identifier when the
// platform supplies one; it gates duplicate deliveries.
type InboundEvent struct {
	EventID    string    `json:"event_id,omitempty"`
	UserID     string    `json:"user_id"`
	ReplyToken string    `json:"reply_token,omitempty"`
	Kind       EventKind `json:"kind"`
	Text       string    `json:"text,omitempty"`
	Redelivery bool      `json:"redelivery,omitempty"`
}

// Error variables for better error handling and testability
var (
	// ErrMalformedEvent indicates an inbound payload missing required fields.
	ErrMalformedEvent = errors.New("malformed inbound event")
	// ErrStorageUnavailable indicates the durable store could not be reached;
	// no state mutation has been applied.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDeliveryFailure indicates the outbound reply failed after the state
	// mutation already committed.
	ErrDeliveryFailure = errors.New("reply delivery failed")
)

// IntentKind identifies a logical reply to send, independent of how the
// platform renders it.
type IntentKind string

const (
	// IntentTermsPrompt presents the terms-of-service card.
	IntentTermsPrompt IntentKind = "terms_prompt"
	// IntentConsentCompleted acknowledges a completed consent.
	IntentConsentCompleted IntentKind = "consent_completed"
	// IntentButtonCheck asks whether the user can see the reply buttons.
	IntentButtonCheck IntentKind = "button_check"
	// IntentConsentReprompt re-sends the instruction to use the consent buttons.
	IntentConsentReprompt IntentKind = "consent_reprompt"
	// IntentOptOutAck acknowledges a declined consent.
	IntentOptOutAck IntentKind = "opt_out_ack"
	// IntentConsentReminder reminds a declined user that consent is required.
	IntentConsentReminder IntentKind = "consent_reminder"
	// IntentTutorialOffer asks whether the user wants the tutorial.
	IntentTutorialOffer IntentKind = "tutorial_offer"
	// IntentUIExplainer explains the chat UI to users who cannot see buttons.
	IntentUIExplainer IntentKind = "ui_explainer"
	// IntentButtonCheckReprompt re-asks the yes/no button question.
	IntentButtonCheckReprompt IntentKind = "button_check_reprompt"
	// IntentFeatureCarousel sends the feature-overview carousel.
	IntentFeatureCarousel IntentKind = "feature_carousel"
	// IntentTutorialSkipAck acknowledges skipping the tutorial.
	IntentTutorialSkipAck IntentKind = "tutorial_skip_ack"
	// IntentTutorialChoiceReprompt re-asks the tutorial choice.
	IntentTutorialChoiceReprompt IntentKind = "tutorial_choice_reprompt"
	// IntentTopicDetail sends the detailed tutorial for one topic.
	IntentTopicDetail IntentKind = "topic_detail"
	// IntentReadingRecorded acknowledges a recorded reading with the running count.
	IntentReadingRecorded IntentKind = "reading_recorded"
	// IntentReadingSummary lists the most recent readings with the total count.
	IntentReadingSummary IntentKind = "reading_summary"
	// IntentNoReadingsYet tells the user the log is still empty.
	IntentNoReadingsYet IntentKind = "no_readings_yet"
	// IntentGenericReply is the fallback reply for unclassified text.
	IntentGenericReply IntentKind = "generic_reply"
	// IntentMediaUnsupported tells the user non-text input is not available yet.
	IntentMediaUnsupported IntentKind = "media_unsupported"
	// IntentServiceUnavailable asks the user to try again later.
	IntentServiceUnavailable IntentKind = "service_unavailable"
)

// TutorialTopic identifies one topic of the feature-overview tutorial.
type TutorialTopic string

const (
	// TopicRecording covers recording daily glucose values.
	TopicRecording TutorialTopic = "recording"
	// TopicReports covers viewing the personal reading report.
	TopicReports TutorialTopic = "reports"
	// TopicConsulting covers asking health questions.
	TopicConsulting TutorialTopic = "consulting"
	// TopicImaging covers uploading medical report images.
	TopicImaging TutorialTopic = "imaging"
)

// OutboundIntent is a platform-agnostic description of one reply item.
// Only the fields relevant to Kind are populated.
type OutboundIntent struct {
	Kind IntentKind `json:"kind"`
	// Echo carries the user's original text for acknowledgement replies.
	Echo string `json:"echo,omitempty"`
	// Topic selects the detailed tutorial content for IntentTopicDetail.
	Topic TutorialTopic `json:"topic,omitempty"`
	// Reading is the appended reading for IntentReadingRecorded.
	Reading *Reading `json:"reading,omitempty"`
	// Count is the total number of stored readings.
	Count int `json:"count,omitempty"`
	// Recent holds the most recent readings for IntentReadingSummary.
	Recent []Reading `json:"recent,omitempty"`
}

// Reading is one captured glucose entry. RawValue preserves exactly what the
// user typed; it is never parsed or range-checked.
type Reading struct {
	ID         string    `json:"id"`
	RawValue   string    `json:"raw_value"`
	RecordedAt time.Time `json:"recorded_at"`
}
