package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StatusEventRepository reads the append-only audit stream. Writes happen
// inside request mutations so they stay atomic with the ticket update.
type StatusEventRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusEvent, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]domain.StatusEvent, error)
}

type statusEventRepository struct {
	pool *pgxpool.Pool
}

// NewStatusEventRepository builds the repository.
func NewStatusEventRepository(pool *pgxpool.Pool) StatusEventRepository {
	return &statusEventRepository{pool: pool}
}

func (r *statusEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusEvent, error) {
	const query = `
        SELECT id, ticket_id, status, changed_by, changed_at
        FROM ticket_status_events WHERE ticket_id=$1 ORDER BY changed_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatusEvents(rows)
}

func (r *statusEventRepository) ListBetween(ctx context.Context, start, end time.Time) ([]domain.StatusEvent, error) {
	const query = `
        SELECT id, ticket_id, status, changed_by, changed_at
        FROM ticket_status_events WHERE changed_at >= $1 AND changed_at < $2
        ORDER BY changed_at ASC`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatusEvents(rows)
}

func scanStatusEvents(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.StatusEvent, error) {
	var result []domain.StatusEvent
	for rows.Next() {
		var ev domain.StatusEvent
		if err := rows.Scan(&ev.ID, &ev.TicketID, &ev.Status, &ev.ChangedBy, &ev.ChangedAt); err != nil {
			return nil, err
		}
		ev.Status = NormalizeStatus(string(ev.Status))
		result = append(result, ev)
	}
	return result, rows.Err()
}
