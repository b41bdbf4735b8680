package domain

import "time"

// Service is an offering citizens can queue for, e.g. passport renewal.
// Code is the short uppercase prefix used in ticket numbers.
type Service struct {
	ID          string
	Name        string
	Code        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
