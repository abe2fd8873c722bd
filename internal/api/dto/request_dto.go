package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// CreateRequestPayload is the request creation body. Level, assignment and
// estimates are honored only for admin callers.
type CreateRequestPayload struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    domain.RequestPriority `json:"priority"`
	Type        domain.RequestType     `json:"type"`
	Channel     domain.RequestChannel  `json:"channel"`
	Department  []string               `json:"department"`
	RequestedAt *time.Time             `json:"requested_at"`

	Level          *int       `json:"level"`
	AssignedTo     *string    `json:"assigned_to"`
	EstimatedHours *float64   `json:"estimated_hours"`
	EstimatedDue   *time.Time `json:"estimated_due"`
}

// ClassifyRequestPayload sets level and priority.
type ClassifyRequestPayload struct {
	Level    int                    `json:"level"`
	Priority domain.RequestPriority `json:"priority"`
}

// AssignRequestPayload sets the assignee and estimates.
type AssignRequestPayload struct {
	AssignedTo     string     `json:"assigned_to"`
	EstimatedHours *float64   `json:"estimated_hours"`
	EstimatedDue   *time.Time `json:"estimated_due"`
}

// TransitionRequestPayload applies a status change.
type TransitionRequestPayload struct {
	Status       domain.RequestStatus `json:"status"`
	Comment      string               `json:"comment"`
	EvidenceLink string               `json:"evidence_link"`
}

// FeedbackPayload records the post-completion verdict.
type FeedbackPayload struct {
	Rating  domain.FeedbackRating `json:"rating"`
	Comment *string               `json:"comment"`
}

// PageEnvelope wraps a paginated listing response.
type PageEnvelope struct {
	Data any           `json:"data"`
	Meta util.PageMeta `json:"meta"`
}
