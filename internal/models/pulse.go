package models

import "time"

// UserPulse is the per-user interaction aggregate.
type UserPulse struct {
	UserID           string                 `json:"userId"`
	InteractionCount int64                  `json:"interactionCount"`
	LastIntent       Intent                 `json:"lastIntent,omitempty"`
	LastUpdated      time.Time              `json:"lastUpdated"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// IntentLogEntry is one append-only audit record of a classified turn.
type IntentLogEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Intent     Intent    `json:"intent"`
	Confidence float64   `json:"confidence"`
	RawInput   string    `json:"rawInput"`
	Timestamp  time.Time `json:"timestamp"`
}
