package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/queue-service/internal/api/dto"
	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/service"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

// CitizensHandler manages citizen registry endpoints.
type CitizensHandler struct {
	citizens *service.CitizenService
}

// NewCitizensHandler constructs handler.
func NewCitizensHandler(citizens *service.CitizenService) *CitizensHandler {
	return &CitizensHandler{citizens: citizens}
}

// Create POST /citizens.
func (h *CitizensHandler) Create(c *fiber.Ctx) error {
	var req dto.CitizenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	citizen, err := h.citizens.Register(c.UserContext(), citizenInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": citizenResponse(citizen)})
}

// Update PUT /citizens/:id.
func (h *CitizensHandler) Update(c *fiber.Ctx) error {
	var req dto.CitizenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	citizen, err := h.citizens.Update(c.UserContext(), c.Params("id"), citizenInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": citizenResponse(citizen)})
}

// Get GET /citizens/:id.
func (h *CitizensHandler) Get(c *fiber.Ctx) error {
	citizen, err := h.citizens.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": citizenResponse(citizen)})
}

// List GET /citizens.
func (h *CitizensHandler) List(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	citizens, err := h.citizens.List(c.UserContext(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.CitizenResponse, 0, len(citizens))
	for i := range citizens {
		items = append(items, citizenResponse(&citizens[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Tickets GET /citizens/:id/tickets.
func (h *CitizensHandler) Tickets(c *fiber.Ctx) error {
	citizen, err := h.citizens.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	tickets, err := h.citizens.Tickets(c.UserContext(), citizen.ID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.CitizenTicketsResponse{
		Citizen:     citizenResponse(citizen),
		Tickets:     items,
		TicketCount: len(items),
	}})
}

// Delete DELETE /citizens/:id.
func (h *CitizensHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.citizens.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "citizen deleted", "citizen_id": id})
}

func citizenInput(req dto.CitizenRequest) service.CitizenInput {
	return service.CitizenInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		NationalID:  req.NationalID,
		PhoneNumber: req.PhoneNumber,
	}
}

func citizenResponse(citizen *domain.Citizen) dto.CitizenResponse {
	return dto.CitizenResponse{
		ID:          citizen.ID,
		FirstName:   citizen.FirstName,
		LastName:    citizen.LastName,
		NationalID:  citizen.NationalID,
		PhoneNumber: citizen.PhoneNumber,
		CreatedAt:   citizen.CreatedAt,
		UpdatedAt:   citizen.UpdatedAt,
	}
}
