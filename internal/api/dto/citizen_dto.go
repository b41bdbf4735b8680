package dto

import "time"

// CitizenRequest payload for create and update.
type CitizenRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	NationalID  string `json:"national_id"`
	PhoneNumber string `json:"phone_number"`
}

// CitizenResponse represents a citizen on the wire.
type CitizenResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	NationalID  string    `json:"national_id"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CitizenTicketsResponse bundles a citizen with their tickets.
type CitizenTicketsResponse struct {
	Citizen     CitizenResponse  `json:"citizen"`
	Tickets     []TicketResponse `json:"tickets"`
	TicketCount int              `json:"ticket_count"`
}
