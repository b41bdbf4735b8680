package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civic-kit/queue-service/internal/auth"
	"github.com/civic-kit/queue-service/internal/config"
	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/repository"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

// AuthService handles staff login and account creation.
type AuthService struct {
	staff      repository.StaffRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, staff repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:      staff,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.StaffUser
}

// Login verifies staff credentials and issues a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !staff.IsActive {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Staff: staff}, nil
}

// CreateStaffInput describes a staff account payload.
type CreateStaffInput struct {
	FullName string
	Email    string
	Password string
	Role     domain.StaffRole
}

// CreateStaff registers a staff account. Caller is expected to be admin;
// role enforcement happens at the route level.
func (s *AuthService) CreateStaff(ctx context.Context, input CreateStaffInput) (*domain.StaffUser, error) {
	if strings.TrimSpace(input.FullName) == "" || strings.TrimSpace(input.Email) == "" || len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("full_name, email and a password of 8+ chars required", nil)
	}
	switch input.Role {
	case domain.StaffRoleClerk, domain.StaffRoleOfficer, domain.StaffRoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	staff := &domain.StaffUser{
		FullName:     strings.TrimSpace(input.FullName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": staff.Email})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return staff, nil
}
