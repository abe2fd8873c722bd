package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated    EventType = "request_created"
	EventRequestClassified EventType = "request_classified"
	EventRequestAssigned   EventType = "request_assigned"
	EventStatusChanged     EventType = "request_status_changed"
	EventFeedbackSubmitted EventType = "request_feedback_submitted"
	EventRequestTrashed    EventType = "request_trashed"
)

// Actor identifies who triggered an event.
type Actor struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	Title      string                 `json:"title"`
	Type       domain.RequestType     `json:"type"`
	Priority   domain.RequestPriority `json:"priority"`
	Channel    domain.RequestChannel  `json:"channel"`
	Department []string               `json:"department"`
}

// RequestClassifiedPayload payload.
type RequestClassifiedPayload struct {
	Level    int                    `json:"level"`
	Priority domain.RequestPriority `json:"priority"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssignedTo     string     `json:"assigned_to"`
	AssignedToName string     `json:"assigned_to_name"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	EstimatedDue   *time.Time `json:"estimated_due,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Comment   string               `json:"comment,omitempty"`
	Reopened  bool                 `json:"reopened,omitempty"`
}

// FeedbackSubmittedPayload payload.
type FeedbackSubmittedPayload struct {
	Rating domain.FeedbackRating `json:"rating"`
}

// RequestTrashedPayload payload.
type RequestTrashedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
