package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// RequestService enforces the request state machine and keeps the audit
// trail consistent.
type RequestService struct {
	requests   repository.RequestRepository
	users      repository.UserRepository
	audit      repository.StatusEventRepository
	dispatcher events.Dispatcher
	// listing page size cap, from configuration
	maxPageSize int
	now         func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	UserRepo    repository.UserRepository
	AuditRepo   repository.StatusEventRepository
	Dispatcher  events.Dispatcher
	MaxPageSize int
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	maxPageSize := deps.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = 50
	}
	return &RequestService{
		requests:    deps.RequestRepo,
		users:       deps.UserRepo,
		audit:       deps.AuditRepo,
		dispatcher:  deps.Dispatcher,
		maxPageSize: maxPageSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RequestCreateInput describes request creation payload. The privileged
// fields are honored only for admin callers.
type RequestCreateInput struct {
	Title       string
	Description string
	Priority    domain.RequestPriority
	Type        domain.RequestType
	Channel     domain.RequestChannel
	Department  []string
	RequestedAt *time.Time

	// Privileged fields, applied only when the actor is an admin. They
	// bypass the usual classify/assign operations at creation time.
	Level          *int
	AssignedTo     *string
	EstimatedHours *float64
	EstimatedDue   *time.Time
}

// RequestListInput describes listing parameters.
type RequestListInput struct {
	Status        *domain.RequestStatus
	Department    *string
	Type          *domain.RequestType
	Level         *int
	AssignedTo    *string
	Channel       *domain.RequestChannel
	RequestedFrom *time.Time
	RequestedTo   *time.Time
	Search        *string
	SortField     string
	SortDesc      bool
	Page          int
	PageSize      int
}

// TransitionInput carries the optional fields attached to a status change.
type TransitionInput struct {
	ToStatus     domain.RequestStatus
	Comment      string
	EvidenceLink string
}

// Create registers a new request in Pending with its initial history event.
func (s *RequestService) Create(ctx context.Context, actor *domain.User, input RequestCreateInput) (*domain.Request, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	if input.Priority != "" && !validPriority(input.Priority) {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if input.Type != "" && !validType(input.Type) {
		return nil, util.NewValidationError("unknown type", map[string]any{"type": input.Type})
	}
	if input.Channel != "" && !validChannel(input.Channel) {
		return nil, util.NewValidationError("unknown channel", map[string]any{"channel": input.Channel})
	}

	now := s.now()
	requestedAt := now
	if input.RequestedAt != nil {
		requestedAt = input.RequestedAt.UTC()
	}

	req := &domain.Request{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Priority:      input.Priority,
		Type:          input.Type,
		Channel:       input.Channel,
		Status:        domain.StatusPending,
		RequesterID:   actor.ID,
		RequesterName: actor.FullName,
		Department:    input.Department,
		RequestedAt:   requestedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
		ReopenCount:   0,
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if req.Type == "" {
		req.Type = domain.TypeSupport
	}
	if req.Channel == "" {
		req.Channel = domain.ChannelSystem
	}
	if req.Department == nil {
		req.Department = []string{}
	}
	if len(req.Department) == 0 && len(actor.Department) > 0 {
		req.Department = actor.Department
	}

	if actor.IsAdmin() {
		if input.Level != nil {
			if err := validateLevel(*input.Level); err != nil {
				return nil, err
			}
			req.Level = input.Level
		}
		if input.AssignedTo != nil {
			target, err := s.users.GetByID(ctx, *input.AssignedTo)
			if err != nil {
				return nil, util.NewNotFound("user", map[string]any{"id": *input.AssignedTo})
			}
			req.AssignedTo = &target.ID
			req.AssignedToName = &target.FullName
		}
		if input.EstimatedHours != nil {
			if *input.EstimatedHours <= 0 {
				return nil, util.NewValidationError("estimated_hours must be positive", nil)
			}
			req.EstimatedHours = input.EstimatedHours
		}
		req.EstimatedDue = input.EstimatedDue
	}

	req.StateHistory = []domain.StateEvent{{
		FromStatus: nil,
		ToStatus:   domain.StatusPending,
		At:         now,
		ByUserID:   actor.ID,
		ByUserName: actor.FullName,
	}}

	audit := domain.StatusEvent{
		ID:        uuid.NewString(),
		TicketID:  req.ID,
		Status:    domain.StatusPending,
		ChangedBy: actor.ID,
		ChangedAt: now,
	}
	if err := s.requests.Create(ctx, req, audit); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		Actor:     actorOf(actor),
		Payload: events.RequestCreatedPayload{
			Title:      req.Title,
			Type:       req.Type,
			Priority:   req.Priority,
			Channel:    req.Channel,
			Department: req.Department,
		},
	})
	return req, nil
}

// Get fetches a request, restricting employees to their own submissions.
func (s *RequestService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && req.RequesterID != actor.ID {
		return nil, util.NewForbidden("request belongs to another user")
	}
	return req, nil
}

// List returns a page of requests. Employees only ever see their own.
func (s *RequestService) List(ctx context.Context, actor *domain.User, input RequestListInput) ([]domain.Request, util.PageMeta, error) {
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	page := input.Page
	if page < 1 {
		page = 1
	}

	filter := repository.RequestFilter{
		Status:        input.Status,
		Department:    input.Department,
		Type:          input.Type,
		Level:         input.Level,
		AssignedTo:    input.AssignedTo,
		Channel:       input.Channel,
		RequestedFrom: input.RequestedFrom,
		RequestedTo:   input.RequestedTo,
		Search:        input.Search,
		SortField:     input.SortField,
		SortDesc:      input.SortDesc,
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}
	if !actor.IsStaff() {
		requesterID := actor.ID
		filter.RequesterID = &requesterID
	}

	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, util.PageMeta{}, err
	}
	meta := util.PaginationMeta(total, page, pageSize)
	if meta.Page != page {
		// requested page was past the end; re-read the clamped page
		filter.Offset = meta.Offset()
		if items, _, err = s.requests.List(ctx, filter); err != nil {
			return nil, util.PageMeta{}, err
		}
	}
	if items == nil {
		items = []domain.Request{}
	}
	return items, meta, nil
}

// Classify sets level and priority. Status is untouched, so no transition
// check applies.
func (s *RequestService) Classify(ctx context.Context, actor *domain.User, id string, level int, priority domain.RequestPriority) (*domain.Request, error) {
	if !actor.IsAdmin() {
		return nil, util.NewForbidden("only an admin may classify requests")
	}
	if err := validateLevel(level); err != nil {
		return nil, err
	}
	if !validPriority(priority) {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.requests.Classify(ctx, id, level, priority, s.now()); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestClassified,
		RequestID: req.ID,
		Actor:     actorOf(actor),
		Payload:   events.RequestClassifiedPayload{Level: level, Priority: priority},
	})
	return req, nil
}

// Assign sets the assignee and estimate fields. The requester attribution is
// overwritten to the acting admin; see DESIGN.md before changing this.
func (s *RequestService) Assign(ctx context.Context, actor *domain.User, id, targetUserID string, estimatedHours *float64, estimatedDue *time.Time) (*domain.Request, error) {
	if estimatedHours != nil && *estimatedHours <= 0 {
		return nil, util.NewValidationError("estimated_hours must be positive", nil)
	}
	// an absent assignee means the acting admin takes the request
	if targetUserID == "" {
		targetUserID = actor.ID
	}
	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return nil, util.NewNotFound("user", map[string]any{"id": targetUserID})
	}
	if !target.IsStaff() {
		return nil, util.NewValidationError("assignee must be support or admin", map[string]any{"id": targetUserID})
	}
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return nil, err
	}

	upd := repository.AssignUpdate{
		AssignedTo:     target.ID,
		AssignedToName: target.FullName,
		EstimatedHours: estimatedHours,
		EstimatedDue:   estimatedDue,
		RequesterID:    actor.ID,
		RequesterName:  actor.FullName,
		UpdatedAt:      s.now(),
	}
	if err := s.requests.Assign(ctx, id, upd); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: req.ID,
		Actor:     actorOf(actor),
		Payload: events.RequestAssignedPayload{
			AssignedTo:     target.ID,
			AssignedToName: target.FullName,
			EstimatedHours: estimatedHours,
			EstimatedDue:   estimatedDue,
		},
	})
	return req, nil
}

// Transition applies a validated status change with its per-destination
// rules, appends the history event, and writes the audit record in the same
// transaction. A lost conditional update surfaces as a conflict; callers
// re-read and retry.
func (s *RequestService) Transition(ctx context.Context, actor *domain.User, id string, input TransitionInput) (*domain.Request, error) {
	if !actor.IsStaff() {
		return nil, util.NewForbidden("only support or admin may change request status")
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := req.Status
	to := input.ToStatus
	if err := ensureTransition(from, to); err != nil {
		return nil, err
	}

	now := s.now()
	mut := repository.TransitionMutation{
		RequestID:  req.ID,
		FromStatus: from,
		ToStatus:   to,
		Event: domain.StateEvent{
			FromStatus: &from,
			ToStatus:   to,
			At:         now,
			ByUserID:   actor.ID,
			ByUserName: actor.FullName,
		},
		Audit: domain.StatusEvent{
			ID:        uuid.NewString(),
			TicketID:  req.ID,
			Status:    to,
			ChangedBy: actor.ID,
			ChangedAt: now,
		},
	}

	if to == domain.StatusRejected {
		comment := strings.TrimSpace(input.Comment)
		if comment == "" {
			return nil, util.NewValidationError("rejection requires a comment", nil)
		}
		mut.RejectionReason = &comment
	}

	if to == domain.StatusInReview {
		if !canRequestReview(actor, req) {
			return nil, util.NewForbidden("only the assignee, the requester, or an admin may request review")
		}
		link := strings.TrimSpace(input.EvidenceLink)
		if link == "" {
			return nil, util.NewValidationError("review requires an evidence link", nil)
		}
		mut.ReviewEvidence = &domain.ReviewEvidence{
			Type:     "link",
			URL:      link,
			ByUserID: actor.ID,
			At:       now,
		}
	}

	if to.IsTerminal() {
		completion := now
		mut.CompletionDate = &completion
	}

	reopened := from == domain.StatusFinalized && to.IsOpen()
	mut.IncrementReopen = reopened

	if err := s.requests.ApplyTransition(ctx, mut); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, util.NewConflict("request status changed concurrently", map[string]any{
				"id":       req.ID,
				"expected": from,
			})
		}
		return nil, err
	}

	updated, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventStatusChanged,
		RequestID: req.ID,
		Actor:     actorOf(actor),
		Payload: events.StatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Comment:   strings.TrimSpace(input.Comment),
			Reopened:  reopened,
		},
	})
	return updated, nil
}

// SubmitFeedback records the single post-completion verdict.
func (s *RequestService) SubmitFeedback(ctx context.Context, actor *domain.User, id string, rating domain.FeedbackRating, comment *string) (*domain.Request, error) {
	if rating != domain.RatingUp && rating != domain.RatingDown {
		return nil, util.NewValidationError("rating must be up or down", map[string]any{"rating": rating})
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actor.ID && !actor.IsAdmin() {
		return nil, util.NewForbidden("only the requester or an admin may submit feedback")
	}
	if req.Status != domain.StatusFinalized {
		return nil, util.NewInvalidState("feedback is only accepted on finalized requests")
	}
	if req.Feedback != nil {
		return nil, util.NewAlreadyExists("feedback already submitted", map[string]any{"id": req.ID})
	}

	fb := domain.Feedback{
		Rating:     rating,
		Comment:    comment,
		At:         s.now(),
		ByUserID:   actor.ID,
		ByUserName: actor.FullName,
	}
	if err := s.requests.SetFeedback(ctx, id, fb); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, util.NewAlreadyExists("feedback already submitted", map[string]any{"id": req.ID})
		}
		return nil, err
	}
	req.Feedback = &fb

	s.publishEvent(ctx, events.Event{
		Type:      events.EventFeedbackSubmitted,
		RequestID: req.ID,
		Actor:     actorOf(actor),
		Payload:   events.FeedbackSubmittedPayload{Rating: rating},
	})
	return req, nil
}

// History returns the audit stream rows for one request.
func (s *RequestService) History(ctx context.Context, actor *domain.User, id string) ([]domain.StatusEvent, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && req.RequesterID != actor.ID {
		return nil, util.NewForbidden("request belongs to another user")
	}
	return s.audit.ListByTicket(ctx, id)
}

// ensureTransition is a pure lookup against the workflow allow-list.
func ensureTransition(from, to domain.RequestStatus) error {
	if !domain.CanTransition(from, to) {
		return util.NewInvalidTransition(string(from), string(to))
	}
	return nil
}

func canRequestReview(actor *domain.User, req *domain.Request) bool {
	if actor.IsAdmin() {
		return true
	}
	if req.AssignedTo != nil && *req.AssignedTo == actor.ID {
		return true
	}
	return req.RequesterID == actor.ID
}

func validateLevel(level int) error {
	if level < 1 || level > 3 {
		return util.NewValidationError("level must be between 1 and 3", map[string]any{"level": level})
	}
	return nil
}

func validPriority(p domain.RequestPriority) bool {
	switch p {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return true
	}
	return false
}

func validType(t domain.RequestType) bool {
	switch t {
	case domain.TypeSupport, domain.TypeImprovement, domain.TypeDevelopment, domain.TypeTraining:
		return true
	}
	return false
}

func validChannel(c domain.RequestChannel) bool {
	switch c {
	case domain.ChannelWhatsApp, domain.ChannelEmail, domain.ChannelSystem:
		return true
	}
	return false
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{ID: user.ID, Name: user.FullName, Role: user.Role}
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
