// Package models defines state management structures for SugarGuard conversations.
package models

import "time"

// ConversationState is the single current state of a user's conversation.
type ConversationState string

const (
	// StatePending means the terms card has been sent and consent is awaited.
	StatePending ConversationState = "pending"
	// StateAwaitingButtonConfirm means consent is given and the bot is
	// checking that the user can see reply buttons.
	StateAwaitingButtonConfirm ConversationState = "awaiting_button_confirm"
	// StateAwaitingTutorialChoice means the bot asked whether to run the tutorial.
	StateAwaitingTutorialChoice ConversationState = "awaiting_tutorial_choice"
	// StateTutorialShown means the feature-overview carousel is on screen.
	StateTutorialShown ConversationState = "tutorial_shown"
	// StateDetailedTutorial means a topic-specific tutorial was just sent.
	StateDetailedTutorial ConversationState = "detailed_tutorial"
	// StateActive is the steady post-onboarding state where free text is
	// classified into readings, summary requests, or generic replies.
	StateActive ConversationState = "active"
	// StateDisagreed means the user declined the terms of service.
	StateDisagreed ConversationState = "disagreed"
)

// IsValidState checks if the given conversation state is one of the
// enumerated states.
func IsValidState(s ConversationState) bool {
	switch s {
	case StatePending, StateAwaitingButtonConfirm, StateAwaitingTutorialChoice,
		StateTutorialShown, StateDetailedTutorial, StateActive, StateDisagreed:
		return true
	default:
		return false
	}
}

// HasConsented reports whether the state is past the consent gate.
func HasConsented(s ConversationState) bool {
	switch s {
	case StateAwaitingButtonConfirm, StateAwaitingTutorialChoice,
		StateTutorialShown, StateDetailedTutorial, StateActive:
		return true
	default:
		return false
	}
}

// UserConversation holds the full persisted record for one platform user.
// Readings is append-only; insertion order is chronological order.
type UserConversation struct {
	UserID           string            `json:"user_id"`
	State            ConversationState `json:"state"`
	FirstContactAt   time.Time         `json:"first_contact_at"`
	ConsentDecidedAt *time.Time        `json:"consent_decided_at,omitempty"`
	Readings         []Reading         `json:"readings,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// RecentReadings returns up to n readings from the end of the log, most
// recent last (log order preserved).
func (c *UserConversation) RecentReadings(n int) []Reading {
	if n <= 0 || len(c.Readings) == 0 {
		return nil
	}
	if len(c.Readings) <= n {
		return c.Readings
	}
	return c.Readings[len(c.Readings)-n:]
}
