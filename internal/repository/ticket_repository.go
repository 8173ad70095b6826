package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-io/support-service/internal/domain"
)

// ErrCapacityExceeded signals that a technician is at the IN_PROGRESS limit.
// The count and the write run under the same per-technician lock, so the
// limit holds under concurrent admission.
var ErrCapacityExceeded = errors.New("technician capacity exceeded")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	ClientID     *string
	TechnicianID *string
	Statuses     []domain.TicketStatus
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	CreateAdmitted(ctx context.Context, ticket *domain.Ticket, maxInProgress int) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	SaveAdmitted(ctx context.Context, ticket *domain.Ticket, maxInProgress int) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByTechnicianAndStatus(ctx context.Context, technicianID string, status domain.TicketStatus) (int, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const insertTicketQuery = `
        INSERT INTO tickets (title, description, status, priority, client_id, category_id, technician_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

const updateTicketQuery = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            client_id=$5, category_id=$6, technician_id=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.insert(ctx, r.pool, ticket)
}

// CreateAdmitted inserts a technician-assigned ticket after re-counting the
// technician's IN_PROGRESS load inside a transaction that holds a
// per-technician advisory lock. Returns ErrCapacityExceeded without writing
// when the count is at the limit.
func (r *ticketRepository) CreateAdmitted(ctx context.Context, ticket *domain.Ticket, maxInProgress int) error {
	if ticket.TechnicianID == nil {
		return r.insert(ctx, r.pool, ticket)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		count, err := r.lockedInProgressCount(ctx, tx, *ticket.TechnicianID, "")
		if err != nil {
			return err
		}
		if count >= maxInProgress {
			return ErrCapacityExceeded
		}
		return r.insert(ctx, tx, ticket)
	})
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	return r.update(ctx, r.pool, ticket)
}

// SaveAdmitted persists an update that puts load on the assigned technician
// (transition into IN_PROGRESS, or reassignment of an IN_PROGRESS ticket)
// under the same serialized count-then-write discipline as CreateAdmitted.
// The ticket's own row is excluded from the count.
func (r *ticketRepository) SaveAdmitted(ctx context.Context, ticket *domain.Ticket, maxInProgress int) error {
	if ticket.TechnicianID == nil {
		return r.update(ctx, r.pool, ticket)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		count, err := r.lockedInProgressCount(ctx, tx, *ticket.TechnicianID, ticket.ID)
		if err != nil {
			return err
		}
		if count >= maxInProgress {
			return ErrCapacityExceeded
		}
		return r.update(ctx, tx, ticket)
	})
}

// lockedInProgressCount serializes concurrent admissions for one technician
// via pg_advisory_xact_lock, then returns a fresh IN_PROGRESS count.
func (r *ticketRepository) lockedInProgressCount(ctx context.Context, tx pgx.Tx, technicianID, excludeTicketID string) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, technicianID); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM tickets WHERE technician_id=$1 AND status=$2`
	args := []any{technicianID, domain.TicketStatusInProgress}
	if excludeTicketID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeTicketID)
	}
	var count int
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ticketRepository) insert(ctx context.Context, q execQuerier, ticket *domain.Ticket) error {
	return q.QueryRow(ctx, insertTicketQuery,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ClientID,
		ticket.CategoryID,
		ticket.TechnicianID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) update(ctx context.Context, q execQuerier, ticket *domain.Ticket) error {
	err := q.QueryRow(ctx, updateTicketQuery,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ClientID,
		ticket.CategoryID,
		ticket.TechnicianID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgx.ErrNoRows
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, priority, client_id, category_id, technician_id, created_at, updated_at
        FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.ClientID,
		&ticket.CategoryID,
		&ticket.TechnicianID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, title, description, status, priority, client_id, category_id, technician_id, created_at, updated_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByTechnicianAndStatus(ctx context.Context, technicianID string, status domain.TicketStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE technician_id=$1 AND status=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, technicianID, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.ClientID,
			&ticket.CategoryID,
			&ticket.TechnicianID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
