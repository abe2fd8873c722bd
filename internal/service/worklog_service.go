package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// WorklogService records and reads technician hours. The per-request hour
// total is denormalized onto the request row after every write.
type WorklogService struct {
	worklogs repository.WorklogRepository
	requests repository.RequestRepository
	now      func() time.Time
}

// NewWorklogService constructs the service.
func NewWorklogService(worklogs repository.WorklogRepository, requests repository.RequestRepository) *WorklogService {
	return &WorklogService{
		worklogs: worklogs,
		requests: requests,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// DaySum aggregates one user's hours for a calendar day.
type DaySum struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// Add records hours against a request.
func (s *WorklogService) Add(ctx context.Context, actor *domain.User, requestID string, hours float64, note *string, loggedAt *time.Time) (*domain.Worklog, error) {
	if hours <= 0 {
		return nil, util.NewValidationError("hours must be positive", map[string]any{"hours": hours})
	}
	if !actor.IsStaff() {
		return nil, util.NewForbidden("only support or admin may log hours")
	}
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}

	now := s.now()
	when := now
	if loggedAt != nil {
		when = loggedAt.UTC()
	}
	wl := &domain.Worklog{
		ID:        uuid.NewString(),
		TicketID:  requestID,
		UserID:    actor.ID,
		UserName:  actor.FullName,
		Hours:     hours,
		LoggedAt:  when,
		CreatedAt: now,
	}
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		if trimmed != "" {
			wl.Note = &trimmed
		}
	}
	if err := s.worklogs.Create(ctx, wl); err != nil {
		return nil, err
	}

	total, err := s.worklogs.SumHoursByTicket(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.requests.SetWorklogHours(ctx, requestID, total); err != nil {
		return nil, err
	}
	return wl, nil
}

// ListByRequest returns a request's worklogs. Employees may only see logs on
// their own requests.
func (s *WorklogService) ListByRequest(ctx context.Context, actor *domain.User, requestID string) ([]domain.Worklog, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && req.RequesterID != actor.ID {
		return nil, util.NewForbidden("request belongs to another user")
	}
	logs, err := s.worklogs.ListByTicket(ctx, requestID, 200)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []domain.Worklog{}
	}
	return logs, nil
}

// ListMine returns the actor's own worklogs with per-day hour sums.
func (s *WorklogService) ListMine(ctx context.Context, actor *domain.User, from, to *time.Time) ([]domain.Worklog, []DaySum, error) {
	logs, err := s.worklogs.ListByUser(ctx, actor.ID, from, to, 500)
	if err != nil {
		return nil, nil, err
	}
	if logs == nil {
		logs = []domain.Worklog{}
	}

	sums := map[string]float64{}
	order := []string{}
	for _, wl := range logs {
		day := wl.LoggedAt.UTC().Format("2006-01-02")
		if _, seen := sums[day]; !seen {
			order = append(order, day)
		}
		sums[day] += wl.Hours
	}
	daySums := make([]DaySum, 0, len(order))
	for _, day := range order {
		daySums = append(daySums, DaySum{Day: day, Hours: sums[day]})
	}
	return logs, daySums, nil
}
