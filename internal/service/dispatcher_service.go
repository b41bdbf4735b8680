package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/events"
	"github.com/civic-kit/queue-service/internal/repository"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

// DispatcherService selects the next eligible ticket for a service and
// moves tickets through the status lifecycle. Claims are serialized by a
// conditional update: a ticket moves pending -> serving only if it is
// still pending at write time, so two racing advance calls never claim
// the same ticket.
type DispatcherService struct {
	tickets       repository.TicketRepository
	services      repository.ServiceRepository
	audit         repository.AuditRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	claimAttempts int
}

// DispatcherDependencies bundles collaborators for the dispatcher.
type DispatcherDependencies struct {
	TicketRepo    repository.TicketRepository
	ServiceRepo   repository.ServiceRepository
	AuditRepo     repository.AuditRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	ClaimAttempts int
}

// NewDispatcherService constructs the service.
func NewDispatcherService(deps DispatcherDependencies) *DispatcherService {
	attempts := deps.ClaimAttempts
	if attempts <= 0 {
		attempts = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatcherService{
		tickets:       deps.TicketRepo,
		services:      deps.ServiceRepo,
		audit:         deps.AuditRepo,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		claimAttempts: attempts,
	}
}

// PeekNext returns the oldest pending ticket for the service without
// mutating anything. A nil ticket with nil error means the queue is empty.
func (s *DispatcherService) PeekNext(ctx context.Context, serviceID string) (*domain.Ticket, error) {
	if err := s.ensureService(ctx, serviceID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.NextPending(ctx, serviceID)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return ticket, nil
}

// AdvanceNext claims the oldest pending ticket for the service, moving it
// to serving. A lost claim race re-selects the next-oldest still-pending
// ticket; the loop is bounded. A nil ticket with nil error means no
// eligible ticket remains.
func (s *DispatcherService) AdvanceNext(ctx context.Context, serviceID string, actorStaffID *string) (*domain.Ticket, error) {
	if err := s.ensureService(ctx, serviceID); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.claimAttempts; attempt++ {
		ticket, err := s.tickets.NextPending(ctx, serviceID)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if ticket == nil {
			return nil, nil
		}

		now := time.Now()
		claimed, err := s.tickets.UpdateStatusIf(ctx, ticket.ID, domain.TicketStatusPending, domain.TicketStatusServing, now)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if !claimed {
			// Another dispatcher won this ticket; pick the next one.
			s.logger.Debug("claim race lost, reselecting",
				zap.String("service_id", serviceID),
				zap.Int("attempt", attempt))
			continue
		}

		old := ticket.Status
		ticket.Status = domain.TicketStatusServing
		ticket.CalledAt = &now
		s.recordAudit(ctx, ticket, old, actorStaffID, "serve_next")
		s.publishCalled(ctx, ticket, actorStaffID)
		return ticket, nil
	}

	return nil, apperrors.NewConflict("could not claim a pending ticket", map[string]any{
		"service_id": serviceID,
		"attempts":   s.claimAttempts,
	})
}

// Complete moves a serving ticket to completed.
func (s *DispatcherService) Complete(ctx context.Context, ticketID string, actorStaffID *string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusCompleted, actorStaffID, "complete")
}

// Cancel withdraws a pending ticket from the queue.
func (s *DispatcherService) Cancel(ctx context.Context, ticketID string, actorStaffID *string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusCancelled, actorStaffID, "cancel")
}

func (s *DispatcherService) transition(ctx context.Context, ticketID string, next domain.TicketStatus, actorStaffID *string, note string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !domain.CanTransition(ticket.Status, next) {
		return nil, apperrors.NewInvalidTransition("status change not allowed", map[string]any{
			"ticket_id": ticketID,
			"from":      ticket.Status,
			"to":        next,
		})
	}

	now := time.Now()
	ok, err := s.tickets.UpdateStatusIf(ctx, ticket.ID, ticket.Status, next, now)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !ok {
		// The ticket moved between our read and the write.
		return nil, apperrors.NewInvalidTransition("ticket status changed concurrently", map[string]any{
			"ticket_id": ticketID,
			"to":        next,
		})
	}

	old := ticket.Status
	ticket.Status = next
	ticket.FinishedAt = &now
	s.recordAudit(ctx, ticket, old, actorStaffID, note)
	s.publishStatusChanged(ctx, ticket, old, actorStaffID)
	return ticket, nil
}

func (s *DispatcherService) ensureService(ctx context.Context, serviceID string) error {
	if _, err := s.services.GetByID(ctx, serviceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("service", map[string]any{"service_id": serviceID})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

// recordAudit is best effort: a failed audit write is logged, never
// surfaced to the caller.
func (s *DispatcherService) recordAudit(ctx context.Context, ticket *domain.Ticket, old domain.TicketStatus, actorStaffID *string, note string) {
	if s.audit == nil {
		return
	}
	entry := &domain.TicketAudit{
		TicketID:     ticket.ID,
		ServiceID:    ticket.ServiceID,
		CitizenID:    ticket.CitizenID,
		ActorStaffID: actorStaffID,
		OldStatus:    old,
		NewStatus:    ticket.Status,
		Note:         note,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func (s *DispatcherService) publishCalled(ctx context.Context, ticket *domain.Ticket, actorStaffID *string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCalled,
		TicketID:  ticket.ID,
		ServiceID: ticket.ServiceID,
		Timestamp: time.Now(),
		Payload: events.TicketCalledPayload{
			Number:       ticket.Number,
			CitizenID:    ticket.CitizenID,
			ActorStaffID: actorStaffID,
		},
	})
}

func (s *DispatcherService) publishStatusChanged(ctx context.Context, ticket *domain.Ticket, old domain.TicketStatus, actorStaffID *string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		ServiceID: ticket.ServiceID,
		Timestamp: time.Now(),
		Payload: events.TicketStatusChangedPayload{
			Number:       ticket.Number,
			OldStatus:    old,
			NewStatus:    ticket.Status,
			ActorStaffID: actorStaffID,
		},
	})
}
