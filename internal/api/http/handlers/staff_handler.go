package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/queue-service/internal/api/dto"
	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/service"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

// StaffHandler manages staff authentication endpoints.
type StaffHandler struct {
	authService *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{authService: authService}
}

// Login POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffLoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Staff:     staffResponse(result.Staff),
		Role:      result.Staff.Role,
	}})
}

// Create POST /auth/staff.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staff, err := h.authService.CreateStaff(c.UserContext(), service.CreateStaffInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

func staffResponse(staff *domain.StaffUser) dto.StaffResponse {
	return dto.StaffResponse{
		ID:       staff.ID,
		FullName: staff.FullName,
		Email:    staff.Email,
		Role:     staff.Role,
		IsActive: staff.IsActive,
	}
}
