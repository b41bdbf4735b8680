package domain

import "time"

// Citizen is a registered member of the public requesting services.
type Citizen struct {
	ID          string
	FirstName   string
	LastName    string
	NationalID  string
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName returns the display name used in logs and audit entries.
func (c Citizen) FullName() string {
	return c.FirstName + " " + c.LastName
}
