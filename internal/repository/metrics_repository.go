package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RequestSnapshot is the read-only projection of a request used by report
// computation. Missing fields from legacy documents are defaulted at scan.
type RequestSnapshot struct {
	ID             string
	Status         domain.RequestStatus
	Priority       domain.RequestPriority
	Type           domain.RequestType
	Level          *int
	Department     []string
	AssignedTo     *string
	AssignedToName *string
	CreatedAt      time.Time
	RequestedAt    time.Time
	CompletionDate *time.Time
	FeedbackRating *domain.FeedbackRating
	History        []domain.StateEvent
}

// MetricsRepository provides snapshot reads for the aggregator. It never
// mutates data.
type MetricsRepository interface {
	SnapshotRequests(ctx context.Context) ([]RequestSnapshot, error)
	StatusEventsBetween(ctx context.Context, start, end time.Time) ([]domain.StatusEvent, error)
	UserNames(ctx context.Context) (map[string]string, error)
}

type metricsRepository struct {
	pool   *pgxpool.Pool
	events StatusEventRepository
}

// NewMetricsRepository builds the repository.
func NewMetricsRepository(pool *pgxpool.Pool) MetricsRepository {
	return &metricsRepository{pool: pool, events: NewStatusEventRepository(pool)}
}

func (r *metricsRepository) SnapshotRequests(ctx context.Context) ([]RequestSnapshot, error) {
	const query = `
        SELECT id, status, COALESCE(priority,''), COALESCE(type,''), level, department,
               assigned_to, assigned_to_name, created_at, requested_at, completion_date,
               feedback->>'rating', state_history
        FROM requests`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RequestSnapshot
	for rows.Next() {
		var (
			snap    RequestSnapshot
			rating  *string
			history []byte
		)
		if err := rows.Scan(
			&snap.ID, &snap.Status, &snap.Priority, &snap.Type, &snap.Level, &snap.Department,
			&snap.AssignedTo, &snap.AssignedToName, &snap.CreatedAt, &snap.RequestedAt,
			&snap.CompletionDate, &rating, &history,
		); err != nil {
			return nil, err
		}

		snap.Status = NormalizeStatus(string(snap.Status))
		if snap.Priority == "" {
			snap.Priority = domain.PriorityMedium
		}
		if snap.Type == "" {
			snap.Type = domain.TypeSupport
		}
		if rating != nil {
			fr := domain.FeedbackRating(*rating)
			if fr == domain.RatingUp || fr == domain.RatingDown {
				snap.FeedbackRating = &fr
			}
		}
		if len(history) > 0 {
			// tolerated: a malformed history drops the segment data but keeps
			// the snapshot usable for the other KPIs
			_ = json.Unmarshal(history, &snap.History)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

func (r *metricsRepository) StatusEventsBetween(ctx context.Context, start, end time.Time) ([]domain.StatusEvent, error) {
	return r.events.ListBetween(ctx, start, end)
}

func (r *metricsRepository) UserNames(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, full_name FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
