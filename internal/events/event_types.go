package events

import (
	"time"

	"github.com/civic-kit/queue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketCalled        EventType = "ticket_called"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ServiceID string      `json:"service_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number    string `json:"number"`
	CitizenID string `json:"citizen_id"`
}

// TicketCalledPayload payload.
type TicketCalledPayload struct {
	Number       string  `json:"number"`
	CitizenID    string  `json:"citizen_id"`
	ActorStaffID *string `json:"actor_staff_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Number       string              `json:"number"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	ActorStaffID *string             `json:"actor_staff_id,omitempty"`
}
