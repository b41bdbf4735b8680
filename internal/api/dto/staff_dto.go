package dto

import (
	"time"

	"github.com/civic-kit/queue-service/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StaffLoginResponse carries the issued token.
type StaffLoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Staff     StaffResponse    `json:"staff"`
	Role      domain.StaffRole `json:"role"`
}

// CreateStaffRequest payload.
type CreateStaffRequest struct {
	FullName string           `json:"full_name"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     domain.StaffRole `json:"role"`
}

// StaffResponse represents a staff account on the wire.
type StaffResponse struct {
	ID       string           `json:"id"`
	FullName string           `json:"full_name"`
	Email    string           `json:"email"`
	Role     domain.StaffRole `json:"role"`
	IsActive bool             `json:"is_active"`
}
