package domain

import "time"

// StaffRole enumerates office operator roles.
type StaffRole string

const (
	StaffRoleClerk   StaffRole = "CLERK"
	StaffRoleOfficer StaffRole = "OFFICER"
	StaffRoleAdmin   StaffRole = "ADMIN"
)

// StaffUser models a counter clerk, officer or administrator.
type StaffUser struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         StaffRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
