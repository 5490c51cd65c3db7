package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/donor-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPrincipalSignedUp   EventType = "principal_signed_up"
	EventPrincipalLoggedIn   EventType = "principal_logged_in"
	EventLoginRejected       EventType = "login_rejected"
	EventPrincipalLoggedOut  EventType = "principal_logged_out"
	EventAvailabilityChanged EventType = "availability_changed"
)

// AllEventTypes lists every event the account service emits.
var AllEventTypes = []EventType{
	EventPrincipalSignedUp,
	EventPrincipalLoggedIn,
	EventLoginRejected,
	EventPrincipalLoggedOut,
	EventAvailabilityChanged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	PrincipalID string      `json:"principal_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, principalID string, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		PrincipalID: principalID,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
}

// SignedUpPayload payload.
type SignedUpPayload struct {
	AccountType domain.AccountType `json:"account_type"`
}

// LoginRejectedPayload payload.
type LoginRejectedPayload struct {
	Reason string `json:"reason"`
}

// LoggedOutPayload payload.
type LoggedOutPayload struct {
	Revoked bool `json:"revoked"`
}

// AvailabilityChangedPayload payload.
type AvailabilityChangedPayload struct {
	Available bool `json:"available"`
}
