package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civic-kit/queue-service/internal/domain"
)

// AuditRepository persists ticket status change records.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.TicketAudit) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAudit, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.TicketAudit) error {
	const query = `
        INSERT INTO ticket_audit (ticket_id, service_id, citizen_id, actor_staff_id, old_status, new_status, note)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ServiceID,
		entry.CitizenID,
		entry.ActorStaffID,
		entry.OldStatus,
		entry.NewStatus,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAudit, error) {
	const query = `
        SELECT id, ticket_id, service_id, citizen_id, actor_staff_id, old_status, new_status, note, created_at
        FROM ticket_audit WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAudit
	for rows.Next() {
		var entry domain.TicketAudit
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ServiceID,
			&entry.CitizenID,
			&entry.ActorStaffID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
