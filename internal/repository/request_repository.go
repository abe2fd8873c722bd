package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrStaleStatus is returned when a conditional status update loses a race.
// The caller must re-read the request and retry explicitly.
var ErrStaleStatus = errors.New("request status changed concurrently")

// RequestFilter captures listing parameters.
type RequestFilter struct {
	RequesterID   *string
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
	Limit         int
	Offset        int
}

// AssignUpdate carries the field set written by an assign operation.
// Requester attribution is overwritten on purpose; see the service layer.
type AssignUpdate struct {
	AssignedTo     string
	AssignedToName string
	EstimatedHours *float64
	EstimatedDue   *time.Time
	RequesterID    string
	RequesterName  string
	UpdatedAt      time.Time
}

// TransitionMutation bundles everything a status change writes. The update is
// conditional on FromStatus and committed together with the audit event.
type TransitionMutation struct {
	RequestID       string
	FromStatus      domain.RequestStatus
	ToStatus        domain.RequestStatus
	Event           domain.StateEvent
	CompletionDate  *time.Time
	RejectionReason *string
	ReviewEvidence  *domain.ReviewEvidence
	IncrementReopen bool
	Audit           domain.StatusEvent
}

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request, audit domain.StatusEvent) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	Classify(ctx context.Context, id string, level int, priority domain.RequestPriority, now time.Time) error
	Assign(ctx context.Context, id string, upd AssignUpdate) error
	ApplyTransition(ctx context.Context, mut TransitionMutation) error
	SetFeedback(ctx context.Context, id string, fb domain.Feedback) error
	SetWorklogHours(ctx context.Context, id string, total float64) error
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, int, error)
	CountOpenAssignedTo(ctx context.Context, userID string) (int, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, title, description, priority, type, channel, level, status,
       requester_id, requester_name, department, assigned_to, assigned_to_name,
       estimated_hours, estimated_due, requested_at, created_at, updated_at,
       completion_date, state_history, feedback, rejection_reason, review_evidence,
       reopen_count, worklog_hours`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request, audit domain.StatusEvent) error {
	history, err := json.Marshal(req.StateHistory)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertRequest = `
        INSERT INTO requests (id, title, description, priority, type, channel, level, status,
            requester_id, requester_name, department, assigned_to, assigned_to_name,
            estimated_hours, estimated_due, requested_at, created_at, updated_at,
            state_history, reopen_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	if _, err := tx.Exec(ctx, insertRequest,
		req.ID, req.Title, req.Description, req.Priority, req.Type, req.Channel,
		req.Level, req.Status, req.RequesterID, req.RequesterName, req.Department,
		req.AssignedTo, req.AssignedToName, req.EstimatedHours, req.EstimatedDue,
		req.RequestedAt, req.CreatedAt, req.UpdatedAt, history, req.ReopenCount,
	); err != nil {
		return err
	}

	if err := appendStatusEvent(ctx, tx, audit); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id=$1`, requestColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanRequest(row)
}

func (r *requestRepository) Classify(ctx context.Context, id string, level int, priority domain.RequestPriority, now time.Time) error {
	const query = `UPDATE requests SET level=$1, priority=$2, updated_at=$3 WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, level, priority, now, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) Assign(ctx context.Context, id string, upd AssignUpdate) error {
	const query = `
        UPDATE requests SET assigned_to=$1, assigned_to_name=$2, estimated_hours=$3,
            estimated_due=$4, requester_id=$5, requester_name=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		upd.AssignedTo, upd.AssignedToName, upd.EstimatedHours, upd.EstimatedDue,
		upd.RequesterID, upd.RequesterName, upd.UpdatedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ApplyTransition performs the conditional status update and the audit-stream
// append in one transaction so metrics readers never observe partial state.
func (r *requestRepository) ApplyTransition(ctx context.Context, mut TransitionMutation) error {
	event, err := json.Marshal(mut.Event)
	if err != nil {
		return err
	}
	var evidence []byte
	if mut.ReviewEvidence != nil {
		if evidence, err = json.Marshal(mut.ReviewEvidence); err != nil {
			return err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	reopenDelta := 0
	if mut.IncrementReopen {
		reopenDelta = 1
	}

	const update = `
        UPDATE requests SET status=$1, updated_at=$2,
            completion_date=COALESCE($3, completion_date),
            rejection_reason=COALESCE($4, rejection_reason),
            review_evidence=COALESCE($5, review_evidence),
            state_history=state_history || $6::jsonb,
            reopen_count=reopen_count + $7
        WHERE id=$8 AND status=$9`
	cmd, err := tx.Exec(ctx, update,
		mut.ToStatus, mut.Event.At, mut.CompletionDate, mut.RejectionReason,
		evidence, event, reopenDelta, mut.RequestID, mut.FromStatus)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}

	if err := appendStatusEvent(ctx, tx, mut.Audit); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *requestRepository) SetFeedback(ctx context.Context, id string, fb domain.Feedback) error {
	doc, err := json.Marshal(fb)
	if err != nil {
		return err
	}
	const query = `UPDATE requests SET feedback=$1 WHERE id=$2 AND feedback IS NULL`
	cmd, err := r.pool.Exec(ctx, query, doc, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *requestRepository) SetWorklogHours(ctx context.Context, id string, total float64) error {
	const query = `UPDATE requests SET worklog_hours=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, total, id)
	return err
}

func (r *requestRepository) CountOpenAssignedTo(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE assigned_to=$1 AND status = ANY($2)`
	var count int
	err := r.pool.QueryRow(ctx, query, userID, openStatusStrings()).Scan(&count)
	return count, err
}

var sortableFields = map[string]string{
	"created_at":   "created_at",
	"status":       "status",
	"department":   "department",
	"requested_at": "requested_at",
	"priority":     "priority",
	"level":        "level",
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	addClause := func(condition string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(condition, len(args)))
	}

	if filter.RequesterID != nil {
		addClause("requester_id=$%d", *filter.RequesterID)
	}
	if filter.Status != nil {
		addClause("status=$%d", *filter.Status)
	}
	if filter.Department != nil {
		addClause("$%d = ANY(department)", *filter.Department)
	}
	if filter.Type != nil {
		addClause("type=$%d", *filter.Type)
	}
	if filter.Level != nil {
		addClause("level=$%d", *filter.Level)
	}
	if filter.AssignedTo != nil {
		addClause("assigned_to=$%d", *filter.AssignedTo)
	}
	if filter.Channel != nil {
		addClause("channel=$%d", *filter.Channel)
	}
	if filter.RequestedFrom != nil {
		addClause("requested_at >= $%d", *filter.RequestedFrom)
	}
	if filter.RequestedTo != nil {
		addClause("requested_at <= $%d", *filter.RequestedTo)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM requests WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortField, ok := sortableFields[filter.SortField]
	if !ok {
		sortField = "created_at"
		filter.SortDesc = true
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		requestColumns, where, sortField, direction, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *req)
	}
	return result, total, rows.Err()
}

func appendStatusEvent(ctx context.Context, tx pgx.Tx, audit domain.StatusEvent) error {
	const query = `
        INSERT INTO ticket_status_events (id, ticket_id, status, changed_by, changed_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := tx.Exec(ctx, query, audit.ID, audit.TicketID, audit.Status, audit.ChangedBy, audit.ChangedAt)
	return err
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		req      domain.Request
		history  []byte
		feedback []byte
		evidence []byte
	)
	if err := row.Scan(
		&req.ID, &req.Title, &req.Description, &req.Priority, &req.Type, &req.Channel,
		&req.Level, &req.Status, &req.RequesterID, &req.RequesterName, &req.Department,
		&req.AssignedTo, &req.AssignedToName, &req.EstimatedHours, &req.EstimatedDue,
		&req.RequestedAt, &req.CreatedAt, &req.UpdatedAt, &req.CompletionDate,
		&history, &feedback, &req.RejectionReason, &evidence,
		&req.ReopenCount, &req.WorklogHours,
	); err != nil {
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &req.StateHistory); err != nil {
			return nil, err
		}
	}
	if len(feedback) > 0 {
		req.Feedback = &domain.Feedback{}
		if err := json.Unmarshal(feedback, req.Feedback); err != nil {
			return nil, err
		}
	}
	if len(evidence) > 0 {
		req.ReviewEvidence = &domain.ReviewEvidence{}
		if err := json.Unmarshal(evidence, req.ReviewEvidence); err != nil {
			return nil, err
		}
	}

	normalizeRequest(&req)
	return &req, nil
}

func openStatusStrings() []string {
	out := make([]string, len(domain.OpenStates))
	for i, s := range domain.OpenStates {
		out[i] = string(s)
	}
	return out
}
