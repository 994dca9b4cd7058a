// Package telemetry emits security events (revocations, conflicts, overrides)
// to a message broker, best-effort, and exposes service metrics. Nothing here
// may affect a request's outcome.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the session authority and its collaborators.
const (
	EventSessionRevoked   = "session.revoked"
	EventSessionConflict  = "session.conflict"
	EventSessionOverride  = "session.override"
	EventAccountSuspended = "account.suspended"
)

// Event is a single security event. Serialized as JSON onto the events topic;
// the worker derives Loki labels from orgId, eventType, and source.
type Event struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	OrgID     string `json:"orgId,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Source    string `json:"source"`
	CreatedAt string `json:"createdAt"` // RFC3339Nano
}

// NewEvent builds an event with a fresh ID and the current timestamp.
func NewEvent(eventType string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		EventType: eventType,
		Source:    "session-authority",
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
