package domain

import "time"

// TicketAudit is an immutable record of a status change. Writing it is
// best effort; a failed audit insert never fails the originating call.
type TicketAudit struct {
	ID           string
	TicketID     string
	ServiceID    string
	CitizenID    string
	ActorStaffID *string
	OldStatus    TicketStatus
	NewStatus    TicketStatus
	Note         string
	CreatedAt    time.Time
}
