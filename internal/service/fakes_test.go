package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// fakeStore is an in-memory stand-in for the postgres repositories. It
// mirrors the conditional-update semantics of the real implementation.
type fakeStore struct {
	requests map[string]*domain.Request
	users    map[string]*domain.User
	audits   []domain.StatusEvent
	worklogs []domain.Worklog
	trash    map[string]*domain.TrashEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: map[string]*domain.Request{},
		users:    map[string]*domain.User{},
		trash:    map[string]*domain.TrashEntry{},
	}
}

func (f *fakeStore) addUser(user *domain.User) *domain.User {
	f.users[user.ID] = user
	return user
}

func cloneRequest(req *domain.Request) *domain.Request {
	copied := *req
	copied.StateHistory = append([]domain.StateEvent{}, req.StateHistory...)
	if req.Feedback != nil {
		fb := *req.Feedback
		copied.Feedback = &fb
	}
	if req.ReviewEvidence != nil {
		ev := *req.ReviewEvidence
		copied.ReviewEvidence = &ev
	}
	return &copied
}

// RequestRepository

func (f *fakeStore) Create(_ context.Context, req *domain.Request, audit domain.StatusEvent) error {
	f.requests[req.ID] = cloneRequest(req)
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneRequest(req), nil
}

func (f *fakeStore) Classify(_ context.Context, id string, level int, priority domain.RequestPriority, now time.Time) error {
	req, ok := f.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	req.Level = &level
	req.Priority = priority
	req.UpdatedAt = now
	return nil
}

func (f *fakeStore) Assign(_ context.Context, id string, upd repository.AssignUpdate) error {
	req, ok := f.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	req.AssignedTo = &upd.AssignedTo
	req.AssignedToName = &upd.AssignedToName
	req.EstimatedHours = upd.EstimatedHours
	req.EstimatedDue = upd.EstimatedDue
	req.RequesterID = upd.RequesterID
	req.RequesterName = upd.RequesterName
	req.UpdatedAt = upd.UpdatedAt
	return nil
}

func (f *fakeStore) ApplyTransition(_ context.Context, mut repository.TransitionMutation) error {
	req, ok := f.requests[mut.RequestID]
	if !ok {
		return pgx.ErrNoRows
	}
	if req.Status != mut.FromStatus {
		return repository.ErrStaleStatus
	}
	req.Status = mut.ToStatus
	req.UpdatedAt = mut.Event.At
	if mut.CompletionDate != nil {
		req.CompletionDate = mut.CompletionDate
	}
	if mut.RejectionReason != nil {
		req.RejectionReason = mut.RejectionReason
	}
	if mut.ReviewEvidence != nil {
		req.ReviewEvidence = mut.ReviewEvidence
	}
	req.StateHistory = append(req.StateHistory, mut.Event)
	if mut.IncrementReopen {
		req.ReopenCount++
	}
	f.audits = append(f.audits, mut.Audit)
	return nil
}

func (f *fakeStore) SetFeedback(_ context.Context, id string, fb domain.Feedback) error {
	req, ok := f.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if req.Feedback != nil {
		return repository.ErrStaleStatus
	}
	req.Feedback = &fb
	return nil
}

func (f *fakeStore) SetWorklogHours(_ context.Context, id string, total float64) error {
	req, ok := f.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	req.WorklogHours = total
	return nil
}

func (f *fakeStore) List(_ context.Context, filter repository.RequestFilter) ([]domain.Request, int, error) {
	var matched []domain.Request
	for _, req := range f.requests {
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		matched = append(matched, *cloneRequest(req))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)

	if filter.Offset >= len(matched) {
		return []domain.Request{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (f *fakeStore) CountOpenAssignedTo(_ context.Context, userID string) (int, error) {
	count := 0
	for _, req := range f.requests {
		if req.AssignedTo != nil && *req.AssignedTo == userID && req.Status.IsOpen() {
			count++
		}
	}
	return count, nil
}

// UserRepository

func (f *fakeStore) CreateUser(_ context.Context, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListUsers(_ context.Context, limit int) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CountByRole(_ context.Context, role domain.Role) (int, error) {
	count := 0
	for _, user := range f.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

// StatusEventRepository

func (f *fakeStore) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusEvent, error) {
	var out []domain.StatusEvent
	for _, event := range f.audits {
		if event.TicketID == ticketID {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (f *fakeStore) ListBetween(_ context.Context, start, end time.Time) ([]domain.StatusEvent, error) {
	var out []domain.StatusEvent
	for _, event := range f.audits {
		if !event.ChangedAt.Before(start) && event.ChangedAt.Before(end) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

// userAdapter exposes the fake store under the UserRepository method names.
type userAdapter struct{ store *fakeStore }

func (a userAdapter) Create(ctx context.Context, user *domain.User) error {
	return a.store.CreateUser(ctx, user)
}
func (a userAdapter) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return a.store.GetUserByID(ctx, id)
}
func (a userAdapter) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return a.store.GetByUsername(ctx, username)
}
func (a userAdapter) List(ctx context.Context, limit int) ([]domain.User, error) {
	return a.store.ListUsers(ctx, limit)
}
func (a userAdapter) Update(ctx context.Context, user *domain.User) error {
	return a.store.UpdateUser(ctx, user)
}
func (a userAdapter) Delete(ctx context.Context, id string) error {
	return a.store.DeleteUser(ctx, id)
}
func (a userAdapter) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	return a.store.CountByRole(ctx, role)
}

// fakeMetricsRepo feeds the aggregator canned snapshots and events.
type fakeMetricsRepo struct {
	snapshots []repository.RequestSnapshot
	events    []domain.StatusEvent
	names     map[string]string
}

func (f *fakeMetricsRepo) SnapshotRequests(_ context.Context) ([]repository.RequestSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeMetricsRepo) StatusEventsBetween(_ context.Context, start, end time.Time) ([]domain.StatusEvent, error) {
	var out []domain.StatusEvent
	for _, event := range f.events {
		if !event.ChangedAt.Before(start) && event.ChangedAt.Before(end) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeMetricsRepo) UserNames(_ context.Context) (map[string]string, error) {
	if f.names == nil {
		return map[string]string{}, nil
	}
	return f.names, nil
}

// staticConfig satisfies ConfigProvider with a fixed snapshot.
type staticConfig struct{ cfg domain.AppConfig }

func (s staticConfig) Current(_ context.Context) (domain.AppConfig, error) {
	return s.cfg, nil
}
