package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/civic-kit/queue-service/internal/api/dto"
	"github.com/civic-kit/queue-service/internal/auth"
	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/repository"
	"github.com/civic-kit/queue-service/internal/service"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

// TicketsHandler manages ticket and queue endpoints.
type TicketsHandler struct {
	ledger     *service.LedgerService
	dispatcher *service.DispatcherService
	tickets    repository.TicketRepository
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ledger *service.LedgerService, dispatcher *service.DispatcherService, tickets repository.TicketRepository) *TicketsHandler {
	return &TicketsHandler{ledger: ledger, dispatcher: dispatcher, tickets: tickets}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ServiceID == "" || req.CitizenID == "" {
		return apperrors.NewValidationError("service_id and citizen_id required", nil)
	}

	ticket, err := h.ledger.IssueTicket(c.UserContext(), service.IssueTicketInput{
		ServiceID: req.ServiceID,
		CitizenID: req.CitizenID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// PeekNext GET /tickets/next?service=<id>.
func (h *TicketsHandler) PeekNext(c *fiber.Ctx) error {
	serviceID := c.Query("service")
	if serviceID == "" {
		return apperrors.NewValidationError("service query parameter required", nil)
	}
	ticket, err := h.dispatcher.PeekNext(c.UserContext(), serviceID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ServeNext POST /tickets/serve-next.
func (h *TicketsHandler) ServeNext(c *fiber.Ctx) error {
	var req dto.ServeNextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ServiceID == "" {
		return apperrors.NewValidationError("service_id required", nil)
	}

	ticket, err := h.dispatcher.AdvanceNext(c.UserContext(), req.ServiceID, actorID(c))
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Complete POST /tickets/:id/complete.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	ticket, err := h.dispatcher.Complete(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Cancel POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	ticket, err := h.dispatcher.Cancel(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := repository.TicketFilter{}
	if serviceID := c.Query("service"); serviceID != "" {
		filter.ServiceID = &serviceID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.tickets.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	return c.JSON(fiber.Map{"message": "ticket deleted", "ticket_id": id})
}

func actorID(c *fiber.Ctx) *string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil
	}
	return &principal.Staff.ID
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:         ticket.ID,
		ServiceID:  ticket.ServiceID,
		CitizenID:  ticket.CitizenID,
		Number:     ticket.Number,
		Status:     ticket.Status,
		CreatedAt:  ticket.CreatedAt,
		CalledAt:   ticket.CalledAt,
		FinishedAt: ticket.FinishedAt,
	}
}
