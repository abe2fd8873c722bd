package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// TrashService moves requests into the soft-delete holding area and back.
type TrashService struct {
	trash      repository.TrashRepository
	requests   repository.RequestRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	ttl        time.Duration
	maxPage    int
	now        func() time.Time
}

// NewTrashService constructs the service.
func NewTrashService(trash repository.TrashRepository, requests repository.RequestRepository, dispatcher events.Dispatcher, logger *zap.Logger, ttlDays, maxPageSize int) *TrashService {
	if ttlDays <= 0 {
		ttlDays = 14
	}
	if maxPageSize <= 0 {
		maxPageSize = 50
	}
	return &TrashService{
		trash:      trash,
		requests:   requests,
		dispatcher: dispatcher,
		logger:     logger,
		ttl:        time.Duration(ttlDays) * 24 * time.Hour,
		maxPage:    maxPageSize,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SoftDelete snapshots a request into the trash and removes the live row.
// The audit stream is left intact on purpose.
func (s *TrashService) SoftDelete(ctx context.Context, actor *domain.User, requestID string) (*domain.TrashEntry, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := domain.TrashEntry{
		ID:            req.ID,
		Request:       *req,
		DeletedAt:     now,
		DeletedByID:   actor.ID,
		DeletedByName: actor.FullName,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.trash.MoveToTrash(ctx, entry); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRequestTrashed,
			RequestID: req.ID,
			Actor:     actorOf(actor),
			Timestamp: now,
			Payload:   events.RequestTrashedPayload{ExpiresAt: entry.ExpiresAt},
		})
	}
	return &entry, nil
}

// List returns a page of trash entries.
func (s *TrashService) List(ctx context.Context, search *string, page, pageSize int) ([]domain.TrashEntry, util.PageMeta, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > s.maxPage {
		pageSize = s.maxPage
	}
	if page < 1 {
		page = 1
	}

	filter := repository.TrashFilter{
		Search: search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	items, total, err := s.trash.List(ctx, filter)
	if err != nil {
		return nil, util.PageMeta{}, err
	}
	meta := util.PaginationMeta(total, page, pageSize)
	if meta.Page != page {
		filter.Offset = meta.Offset()
		if items, _, err = s.trash.List(ctx, filter); err != nil {
			return nil, util.PageMeta{}, err
		}
	}
	if items == nil {
		items = []domain.TrashEntry{}
	}
	return items, meta, nil
}

// Restore brings a trashed request back to life. A live request with the
// same id wins; the caller gets a conflict.
func (s *TrashService) Restore(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.trash.Restore(ctx, id, s.now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, util.NewConflict("a live request with this id already exists", map[string]any{"id": id})
		}
		return nil, err
	}
	return req, nil
}

// Purge permanently removes one trash entry.
func (s *TrashService) Purge(ctx context.Context, id string) error {
	return s.trash.Purge(ctx, id)
}

// PurgeExpired removes every entry past its expiry. Called by the janitor.
func (s *TrashService) PurgeExpired(ctx context.Context) (int, error) {
	purged, err := s.trash.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("purged expired trash entries", zap.Int("count", purged))
	}
	return purged, nil
}
