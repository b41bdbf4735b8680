package dto

import (
	"time"

	"github.com/civic-kit/queue-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ServiceID string `json:"service_id"`
	CitizenID string `json:"citizen_id"`
}

// ServeNextRequest payload.
type ServeNextRequest struct {
	ServiceID string `json:"service_id"`
}

// TicketResponse represents a ticket on the wire.
type TicketResponse struct {
	ID         string              `json:"id"`
	ServiceID  string              `json:"service_id"`
	CitizenID  string              `json:"citizen_id"`
	Number     string              `json:"number"`
	Status     domain.TicketStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	CalledAt   *time.Time          `json:"called_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// TicketAuditResponse represents an audit trail entry.
type TicketAuditResponse struct {
	ID           string              `json:"id"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	ActorStaffID *string             `json:"actor_staff_id,omitempty"`
	Note         string              `json:"note,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}
