package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-kit/queue-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	ServiceID *string
	CitizenID *string
	Statuses  []domain.TicketStatus
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence.
//
// LatestByService and NextPending return (nil, nil) when no row matches;
// an empty queue is a result, not an error.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	LatestByService(ctx context.Context, serviceID string) (*domain.Ticket, error)
	NextPending(ctx context.Context, serviceID string) (*domain.Ticket, error)
	UpdateStatusIf(ctx context.Context, id string, expected, next domain.TicketStatus, at time.Time) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByCitizen(ctx context.Context, citizenID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, the signal that a concurrent creation won the numbering race.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (service_id, citizen_id, number, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ServiceID,
		ticket.CitizenID,
		ticket.Number,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, service_id, citizen_id, number, status, created_at, called_at, finished_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.ServiceID,
		&ticket.CitizenID,
		&ticket.Number,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.CalledAt,
		&ticket.FinishedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Number tiebreaks compare length before text: the suffix is
// zero-padded to four digits, so once a sequence passes 9999 the
// string widens and plain lexicographic order would invert.
func (r *ticketRepository) LatestByService(ctx context.Context, serviceID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, service_id, citizen_id, number, status, created_at, called_at, finished_at
        FROM tickets WHERE service_id=$1
        ORDER BY created_at DESC, length(number) DESC, number DESC
        LIMIT 1`
	return r.fetchOptional(ctx, query, serviceID)
}

func (r *ticketRepository) NextPending(ctx context.Context, serviceID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, service_id, citizen_id, number, status, created_at, called_at, finished_at
        FROM tickets WHERE service_id=$1 AND status=$2
        ORDER BY created_at ASC, length(number) ASC, number ASC, id ASC
        LIMIT 1`
	return r.fetchOptional(ctx, query, serviceID, domain.TicketStatusPending)
}

func (r *ticketRepository) fetchOptional(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.ServiceID,
		&ticket.CitizenID,
		&ticket.Number,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.CalledAt,
		&ticket.FinishedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatusIf performs an atomic compare-and-set on the ticket status.
// The timestamp lands in called_at or finished_at depending on the target
// status. Returns false when the ticket was not in the expected status.
func (r *ticketRepository) UpdateStatusIf(ctx context.Context, id string, expected, next domain.TicketStatus, at time.Time) (bool, error) {
	var query string
	switch next {
	case domain.TicketStatusServing:
		query = `UPDATE tickets SET status=$1, called_at=$2 WHERE id=$3 AND status=$4`
	case domain.TicketStatusCompleted, domain.TicketStatusCancelled:
		query = `UPDATE tickets SET status=$1, finished_at=$2 WHERE id=$3 AND status=$4`
	default:
		return false, fmt.Errorf("unsupported target status %q", next)
	}
	cmd, err := r.pool.Exec(ctx, query, next, at, id, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, service_id, citizen_id, number, status, created_at, called_at, finished_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ServiceID != nil {
		args = append(args, *filter.ServiceID)
		clauses = append(clauses, fmt.Sprintf("service_id=$%d", len(args)))
	}
	if filter.CitizenID != nil {
		args = append(args, *filter.CitizenID)
		clauses = append(clauses, fmt.Sprintf("citizen_id=$%d", len(args)))
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
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByCitizen(ctx context.Context, citizenID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE citizen_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, citizenID).Scan(&count); err != nil {
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
			&ticket.ServiceID,
			&ticket.CitizenID,
			&ticket.Number,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.CalledAt,
			&ticket.FinishedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
