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

// CatalogService manages the service catalog (the queues citizens can
// join). Codes are normalized to uppercase since they prefix ticket
// numbers.
type CatalogService struct {
	services repository.ServiceRepository
}

// NewCatalogService constructs the service.
func NewCatalogService(services repository.ServiceRepository) *CatalogService {
	return &CatalogService{services: services}
}

// ServiceInput describes create and update payloads.
type ServiceInput struct {
	Name        string
	Code        string
	Description string
	IsActive    *bool
}

// Create adds a service to the catalog.
func (s *CatalogService) Create(ctx context.Context, input ServiceInput) (*domain.Service, error) {
	name, code, err := normalizeServiceInput(input)
	if err != nil {
		return nil, err
	}
	existing, err := s.services.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflict("service code already in use", map[string]any{"code": code})
	}

	svc := &domain.Service{
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}
	if err := s.services.Create(ctx, svc); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("service code already in use", map[string]any{"code": code})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return svc, nil
}

// Update modifies a catalog entry.
func (s *CatalogService) Update(ctx context.Context, id string, input ServiceInput) (*domain.Service, error) {
	name, code, err := normalizeServiceInput(input)
	if err != nil {
		return nil, err
	}
	svc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if code != svc.Code {
		other, err := s.services.GetByCode(ctx, code)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if other != nil {
			return nil, apperrors.NewConflict("service code already in use", map[string]any{"code": code})
		}
	}

	svc.Name = name
	svc.Code = code
	svc.Description = strings.TrimSpace(input.Description)
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return svc, nil
}

// Get fetches a service by ID.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return svc, nil
}

// List returns catalog entries, optionally only active ones.
func (s *CatalogService) List(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	services, err := s.services.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return services, nil
}

// Delete removes a catalog entry.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.services.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("service", map[string]any{"service_id": id})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

func normalizeServiceInput(input ServiceInput) (name, code string, err error) {
	name = strings.TrimSpace(input.Name)
	code = strings.ToUpper(strings.TrimSpace(input.Code))
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if code == "" {
		details["code"] = "required"
	}
	if strings.Contains(code, " ") {
		details["code"] = "must not contain spaces"
	}
	if len(details) > 0 {
		return "", "", apperrors.NewValidationError("invalid service payload", details)
	}
	return name, code, nil
}
