package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketStatus enumerates queue lifecycle states.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusServing   TicketStatus = "serving"
	TicketStatusCompleted TicketStatus = "completed"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is a citizen's place in a service queue.
type Ticket struct {
	ID         string
	ServiceID  string
	CitizenID  string
	Number     string
	Status     TicketStatus
	CreatedAt  time.Time
	CalledAt   *time.Time
	FinishedAt *time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:   {TicketStatusServing, TicketStatusCancelled},
	TicketStatusServing:   {TicketStatusCompleted},
	TicketStatusCompleted: {},
	TicketStatusCancelled: {},
}

// CanTransition reports whether a status change is allowed.
// completed and cancelled are terminal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status TicketStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// FormatTicketNumber renders a display number such as "REG-0042".
func FormatTicketNumber(serviceCode string, seq int) string {
	return fmt.Sprintf("%s-%04d", serviceCode, seq)
}

// TicketSequence extracts the numeric suffix of a display number.
// Malformed suffixes yield 0 so numbering restarts at 1 instead of
// propagating a parse fault.
func TicketSequence(number string) int {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0
	}
	seq, err := strconv.Atoi(number[idx+1:])
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}
