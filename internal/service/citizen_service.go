package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/repository"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

// CitizenService coordinates citizen registry workflows.
type CitizenService struct {
	citizens repository.CitizenRepository
	tickets  repository.TicketRepository
}

// NewCitizenService constructs the service.
func NewCitizenService(citizens repository.CitizenRepository, tickets repository.TicketRepository) *CitizenService {
	return &CitizenService{citizens: citizens, tickets: tickets}
}

// CitizenInput describes registration and update payloads.
type CitizenInput struct {
	FirstName   string
	LastName    string
	NationalID  string
	PhoneNumber string
}

// Register creates a citizen, rejecting duplicate national IDs.
func (s *CitizenService) Register(ctx context.Context, input CitizenInput) (*domain.Citizen, error) {
	if err := validateCitizenInput(input); err != nil {
		return nil, err
	}
	existing, err := s.citizens.GetByNationalID(ctx, input.NationalID)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflict("citizen with this national ID already exists", map[string]any{
			"national_id": input.NationalID,
		})
	}

	citizen := &domain.Citizen{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		NationalID:  strings.TrimSpace(input.NationalID),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
	}
	if err := s.citizens.Create(ctx, citizen); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("citizen with this national ID already exists", map[string]any{
				"national_id": input.NationalID,
			})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return citizen, nil
}

// Update modifies a citizen, keeping the national ID unique.
func (s *CitizenService) Update(ctx context.Context, id string, input CitizenInput) (*domain.Citizen, error) {
	if err := validateCitizenInput(input); err != nil {
		return nil, err
	}
	citizen, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newNationalID := strings.TrimSpace(input.NationalID)
	if newNationalID != citizen.NationalID {
		other, err := s.citizens.GetByNationalID(ctx, newNationalID)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if other != nil {
			return nil, apperrors.NewConflict("another citizen already has this national ID", map[string]any{
				"national_id": newNationalID,
			})
		}
	}

	citizen.FirstName = strings.TrimSpace(input.FirstName)
	citizen.LastName = strings.TrimSpace(input.LastName)
	citizen.NationalID = newNationalID
	citizen.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	if err := s.citizens.Update(ctx, citizen); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return citizen, nil
}

// Get fetches a citizen by ID.
func (s *CitizenService) Get(ctx context.Context, id string) (*domain.Citizen, error) {
	citizen, err := s.citizens.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("citizen", map[string]any{"citizen_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return citizen, nil
}

// List returns paginated citizens.
func (s *CitizenService) List(ctx context.Context, limit, offset int) ([]domain.Citizen, error) {
	citizens, err := s.citizens.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return citizens, nil
}

// Delete removes a citizen unless tickets reference them.
func (s *CitizenService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.tickets.CountByCitizen(ctx, id)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if count > 0 {
		return apperrors.NewValidationError("cannot delete citizen with tickets", map[string]any{
			"ticket_count": count,
		})
	}
	if err := s.citizens.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("citizen", map[string]any{"citizen_id": id})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

// Tickets lists a citizen's tickets, oldest first.
func (s *CitizenService) Tickets(ctx context.Context, id string) ([]domain.Ticket, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{CitizenID: &id, Limit: 100})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return tickets, nil
}

func validateCitizenInput(input CitizenInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.FirstName) == "" {
		details["first_name"] = "required"
	}
	if strings.TrimSpace(input.LastName) == "" {
		details["last_name"] = "required"
	}
	if strings.TrimSpace(input.NationalID) == "" {
		details["national_id"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid citizen payload", details)
	}
	return nil
}
