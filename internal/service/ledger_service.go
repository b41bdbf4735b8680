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

// LedgerService assigns ticket numbers and creates tickets. Numbers are
// formatted "<CODE>-<seq>" and are unique per service; the sequence never
// resets. Concurrent creations are serialized by the unique index on
// (service_id, number): the loser of a race retries the read-increment-
// write sequence a bounded number of times.
type LedgerService struct {
	tickets     repository.TicketRepository
	services    repository.ServiceRepository
	citizens    repository.CitizenRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	maxAttempts int
}

// LedgerDependencies bundles collaborators for the ledger.
type LedgerDependencies struct {
	TicketRepo  repository.TicketRepository
	ServiceRepo repository.ServiceRepository
	CitizenRepo repository.CitizenRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	MaxAttempts int
}

// IssueTicketInput describes ticket creation payload.
type IssueTicketInput struct {
	ServiceID string
	CitizenID string
}

// NewLedgerService constructs the service.
func NewLedgerService(deps LedgerDependencies) *LedgerService {
	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		tickets:     deps.TicketRepo,
		services:    deps.ServiceRepo,
		citizens:    deps.CitizenRepo,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		maxAttempts: attempts,
	}
}

// IssueTicket assigns the next number in the service's scope and persists
// a pending ticket.
func (s *LedgerService) IssueTicket(ctx context.Context, input IssueTicketInput) (*domain.Ticket, error) {
	svc, err := s.services.GetByID(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": input.ServiceID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !svc.IsActive {
		return nil, apperrors.NewNotFound("service", map[string]any{"service_id": input.ServiceID, "reason": "inactive"})
	}

	citizen, err := s.citizens.GetByID(ctx, input.CitizenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("citizen", map[string]any{"citizen_id": input.CitizenID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ticket, err := s.tryIssue(ctx, svc, citizen)
		if err == nil {
			s.publishCreated(ctx, ticket)
			return ticket, nil
		}
		if repository.IsUniqueViolation(err) {
			s.logger.Debug("ticket number race lost, retrying",
				zap.String("service_id", svc.ID),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return nil, apperrors.NewConflict("could not assign ticket number", map[string]any{
		"service_id": svc.ID,
		"attempts":   s.maxAttempts,
	})
}

func (s *LedgerService) tryIssue(ctx context.Context, svc *domain.Service, citizen *domain.Citizen) (*domain.Ticket, error) {
	latest, err := s.tickets.LatestByService(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	seq := 1
	if latest != nil {
		// A malformed suffix parses to 0 and numbering restarts at 1.
		seq = domain.TicketSequence(latest.Number) + 1
	}

	ticket := &domain.Ticket{
		ServiceID: svc.ID,
		CitizenID: citizen.ID,
		Number:    domain.FormatTicketNumber(svc.Code, seq),
		Status:    domain.TicketStatusPending,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *LedgerService) publishCreated(ctx context.Context, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		ServiceID: ticket.ServiceID,
		Timestamp: time.Now(),
		Payload: events.TicketCreatedPayload{
			Number:    ticket.Number,
			CitizenID: ticket.CitizenID,
		},
	})
}
