package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// WorklogRepository stores per-ticket hour entries.
type WorklogRepository interface {
	Create(ctx context.Context, wl *domain.Worklog) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.Worklog, error)
	ListByUser(ctx context.Context, userID string, from, to *time.Time, limit int) ([]domain.Worklog, error)
	SumHoursByTicket(ctx context.Context, ticketID string) (float64, error)
}

type worklogRepository struct {
	pool *pgxpool.Pool
}

// NewWorklogRepository builds the repository.
func NewWorklogRepository(pool *pgxpool.Pool) WorklogRepository {
	return &worklogRepository{pool: pool}
}

func (r *worklogRepository) Create(ctx context.Context, wl *domain.Worklog) error {
	const query = `
        INSERT INTO worklogs (id, ticket_id, user_id, user_name, hours, note, logged_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		wl.ID, wl.TicketID, wl.UserID, wl.UserName, wl.Hours, wl.Note, wl.LoggedAt, wl.CreatedAt)
	return err
}

func (r *worklogRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.Worklog, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `
        SELECT id, ticket_id, user_id, user_name, hours, note, logged_at, created_at
        FROM worklogs WHERE ticket_id=$1 ORDER BY logged_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorklogs(rows)
}

func (r *worklogRepository) ListByUser(ctx context.Context, userID string, from, to *time.Time, limit int) ([]domain.Worklog, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
        SELECT id, ticket_id, user_id, user_name, hours, note, logged_at, created_at
        FROM worklogs WHERE user_id=$1`
	args := []any{userID}
	if from != nil {
		args = append(args, *from)
		query += ` AND logged_at >= $2`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND logged_at <= $3`
		} else {
			query += ` AND logged_at <= $2`
		}
	}
	args = append(args, limit)
	switch len(args) {
	case 2:
		query += ` ORDER BY logged_at DESC LIMIT $2`
	case 3:
		query += ` ORDER BY logged_at DESC LIMIT $3`
	default:
		query += ` ORDER BY logged_at DESC LIMIT $4`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorklogs(rows)
}

func (r *worklogRepository) SumHoursByTicket(ctx context.Context, ticketID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) FROM worklogs WHERE ticket_id=$1`
	var total float64
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(&total)
	return total, err
}

func scanWorklogs(rows pgx.Rows) ([]domain.Worklog, error) {
	var result []domain.Worklog
	for rows.Next() {
		var wl domain.Worklog
		if err := rows.Scan(&wl.ID, &wl.TicketID, &wl.UserID, &wl.UserName, &wl.Hours, &wl.Note, &wl.LoggedAt, &wl.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, wl)
	}
	return result, rows.Err()
}
