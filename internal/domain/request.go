package domain

import "time"

// RequestStatus enumerates lifecycle states for helpdesk requests.
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusInReview   RequestStatus = "IN_REVIEW"
	StatusFinalized  RequestStatus = "FINALIZED"
	StatusRejected   RequestStatus = "REJECTED"
)

// AllowedTransitions is the workflow allow-list. Terminal states map to an
// empty set; anything not listed is rejected.
var AllowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusInReview},
	StatusInReview:   {StatusFinalized, StatusInProgress},
	StatusFinalized:  {},
	StatusRejected:   {},
}

// OpenStates are the non-terminal statuses.
var OpenStates = []RequestStatus{StatusPending, StatusInProgress, StatusInReview}

// CanTransition reports whether old -> new is in the allow-list.
func CanTransition(old, new RequestStatus) bool {
	for _, candidate := range AllowedTransitions[old] {
		if candidate == new {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s RequestStatus) IsTerminal() bool {
	return len(AllowedTransitions[s]) == 0
}

// IsOpen reports whether the status counts as open work.
func (s RequestStatus) IsOpen() bool {
	for _, open := range OpenStates {
		if s == open {
			return true
		}
	}
	return false
}

// RequestPriority enumerates SLA urgency.
type RequestPriority string

const (
	PriorityHigh   RequestPriority = "HIGH"
	PriorityMedium RequestPriority = "MEDIUM"
	PriorityLow    RequestPriority = "LOW"
)

// RequestType enumerates what kind of work is requested.
type RequestType string

const (
	TypeSupport     RequestType = "SUPPORT"
	TypeImprovement RequestType = "IMPROVEMENT"
	TypeDevelopment RequestType = "DEVELOPMENT"
	TypeTraining    RequestType = "TRAINING"
)

// RequestChannel enumerates how the request arrived.
type RequestChannel string

const (
	ChannelWhatsApp RequestChannel = "WHATSAPP"
	ChannelEmail    RequestChannel = "EMAIL"
	ChannelSystem   RequestChannel = "SYSTEM"
)

// FeedbackRating is a thumbs up/down verdict.
type FeedbackRating string

const (
	RatingUp   FeedbackRating = "up"
	RatingDown FeedbackRating = "down"
)

// StateEvent is one entry of a request's append-only state history.
// FromStatus is nil only for the creation event.
type StateEvent struct {
	FromStatus *RequestStatus `json:"from_status"`
	ToStatus   RequestStatus  `json:"to_status"`
	At         time.Time      `json:"at"`
	ByUserID   string         `json:"by_user_id"`
	ByUserName string         `json:"by_user_name"`
}

// Feedback is the single post-completion verdict attached to a request.
type Feedback struct {
	Rating     FeedbackRating `json:"rating"`
	Comment    *string        `json:"comment,omitempty"`
	At         time.Time      `json:"at"`
	ByUserID   string         `json:"by_user_id"`
	ByUserName string         `json:"by_user_name"`
}

// ReviewEvidence records the proof link attached when entering review.
type ReviewEvidence struct {
	Type     string    `json:"type"`
	URL      string    `json:"url"`
	ByUserID string    `json:"by"`
	At       time.Time `json:"at"`
}

// Request is the aggregate for helpdesk tickets.
type Request struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Priority        RequestPriority `json:"priority"`
	Type            RequestType     `json:"type"`
	Channel         RequestChannel  `json:"channel"`
	Level           *int            `json:"level,omitempty"`
	Status          RequestStatus   `json:"status"`
	RequesterID     string          `json:"requester_id"`
	RequesterName   string          `json:"requester_name"`
	Department      []string        `json:"department"`
	AssignedTo      *string         `json:"assigned_to,omitempty"`
	AssignedToName  *string         `json:"assigned_to_name,omitempty"`
	EstimatedHours  *float64        `json:"estimated_hours,omitempty"`
	EstimatedDue    *time.Time      `json:"estimated_due,omitempty"`
	RequestedAt     time.Time       `json:"requested_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletionDate  *time.Time      `json:"completion_date,omitempty"`
	StateHistory    []StateEvent    `json:"state_history"`
	Feedback        *Feedback       `json:"feedback,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	ReviewEvidence  *ReviewEvidence `json:"review_evidence,omitempty"`
	ReopenCount     int             `json:"reopen_count"`
	WorklogHours    float64         `json:"worklog_hours"`
}
