package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TrashFilter captures trash listing parameters.
type TrashFilter struct {
	Search *string
	Limit  int
	Offset int
}

// TrashRepository manages the soft-delete holding area.
type TrashRepository interface {
	MoveToTrash(ctx context.Context, entry domain.TrashEntry) error
	GetByID(ctx context.Context, id string) (*domain.TrashEntry, error)
	List(ctx context.Context, filter TrashFilter) ([]domain.TrashEntry, int, error)
	Restore(ctx context.Context, id string, restoredAt time.Time) (*domain.Request, error)
	Purge(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type trashRepository struct {
	pool *pgxpool.Pool
}

// NewTrashRepository builds the repository.
func NewTrashRepository(pool *pgxpool.Pool) TrashRepository {
	return &trashRepository{pool: pool}
}

// MoveToTrash snapshots the request into the trash table and removes the live
// row in one transaction. Status events and worklogs are left in place.
func (r *trashRepository) MoveToTrash(ctx context.Context, entry domain.TrashEntry) error {
	doc, err := json.Marshal(entry.Request)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO requests_trash (id, request_doc, deleted_at, deleted_by_id, deleted_by_name, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := tx.Exec(ctx, insert,
		entry.ID, doc, entry.DeletedAt, entry.DeletedByID, entry.DeletedByName, entry.ExpiresAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM requests WHERE id=$1`, entry.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *trashRepository) GetByID(ctx context.Context, id string) (*domain.TrashEntry, error) {
	const query = `
        SELECT id, request_doc, deleted_at, deleted_by_id, deleted_by_name, expires_at
        FROM requests_trash WHERE id=$1`
	return scanTrashEntry(r.pool.QueryRow(ctx, query, id))
}

func (r *trashRepository) List(ctx context.Context, filter TrashFilter) ([]domain.TrashEntry, int, error) {
	where := "1=1"
	args := []any{}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		where += ` AND (LOWER(request_doc->>'title') LIKE $1 OR LOWER(request_doc->>'description') LIKE $1)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests_trash WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, request_doc, deleted_at, deleted_by_id, deleted_by_name, expires_at
        FROM requests_trash WHERE ` + where + ` ORDER BY deleted_at DESC`
	args = append(args, limit, offset)
	switch len(args) {
	case 2:
		query += ` LIMIT $1 OFFSET $2`
	default:
		query += ` LIMIT $2 OFFSET $3`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.TrashEntry
	for rows.Next() {
		entry, err := scanTrashEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *entry)
	}
	return result, total, rows.Err()
}

// Restore reinserts the snapshot as a live request and drops the trash row.
// Fails with pgx.ErrNoRows when the entry is absent.
func (r *trashRepository) Restore(ctx context.Context, id string, restoredAt time.Time) (*domain.Request, error) {
	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req := entry.Request
	req.UpdatedAt = restoredAt

	history, err := json.Marshal(req.StateHistory)
	if err != nil {
		return nil, err
	}
	var feedback, evidence []byte
	if req.Feedback != nil {
		if feedback, err = json.Marshal(req.Feedback); err != nil {
			return nil, err
		}
	}
	if req.ReviewEvidence != nil {
		if evidence, err = json.Marshal(req.ReviewEvidence); err != nil {
			return nil, err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO requests (id, title, description, priority, type, channel, level, status,
            requester_id, requester_name, department, assigned_to, assigned_to_name,
            estimated_hours, estimated_due, requested_at, created_at, updated_at,
            completion_date, state_history, feedback, rejection_reason, review_evidence,
            reopen_count, worklog_hours)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`
	if _, err := tx.Exec(ctx, insert,
		req.ID, req.Title, req.Description, req.Priority, req.Type, req.Channel,
		req.Level, req.Status, req.RequesterID, req.RequesterName, req.Department,
		req.AssignedTo, req.AssignedToName, req.EstimatedHours, req.EstimatedDue,
		req.RequestedAt, req.CreatedAt, req.UpdatedAt, req.CompletionDate,
		history, feedback, req.RejectionReason, evidence,
		req.ReopenCount, req.WorklogHours,
	); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM requests_trash WHERE id=$1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *trashRepository) Purge(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM requests_trash WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *trashRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM requests_trash WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func scanTrashEntry(row pgx.Row) (*domain.TrashEntry, error) {
	var (
		entry domain.TrashEntry
		doc   []byte
	)
	if err := row.Scan(&entry.ID, &doc, &entry.DeletedAt, &entry.DeletedByID, &entry.DeletedByName, &entry.ExpiresAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &entry.Request); err != nil {
		return nil, err
	}
	return &entry, nil
}
