package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/events"
	"github.com/civic-kit/queue-service/internal/repository"
	"github.com/civic-kit/queue-service/pkg/util"
)

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "tickets_service_number_uniq"}
}

// memoryTicketRepo mimics the Postgres repository semantics: a unique
// (service_id, number) constraint and compare-and-set status updates,
// both guarded by a single mutex so concurrent tests exercise real
// interleavings between the read and the write.
type memoryTicketRepo struct {
	mu         sync.Mutex
	tickets    map[string]*domain.Ticket
	nextID     int
	clock      time.Time
	failClaims bool
	createErr  func() error
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{
		tickets: make(map[string]*domain.Ticket),
		clock:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memoryTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		if err := r.createErr(); err != nil {
			return err
		}
	}
	for _, existing := range r.tickets {
		if existing.ServiceID == ticket.ServiceID && existing.Number == ticket.Number {
			return uniqueViolation()
		}
	}
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%04d", r.nextID)
	r.clock = r.clock.Add(time.Millisecond)
	ticket.CreatedAt = r.clock
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *memoryTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *memoryTicketRepo) LatestByService(_ context.Context, serviceID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.ServiceID != serviceID {
			continue
		}
		if latest == nil || ticket.CreatedAt.After(latest.CreatedAt) {
			latest = ticket
			continue
		}
		// Timestamp tie: the higher sequence wins, matching the
		// length-aware ordering the SQL store uses.
		if ticket.CreatedAt.Equal(latest.CreatedAt) &&
			domain.TicketSequence(ticket.Number) > domain.TicketSequence(latest.Number) {
			latest = ticket
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *memoryTicketRepo) NextPending(_ context.Context, serviceID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := make([]*domain.Ticket, 0)
	for _, ticket := range r.tickets {
		if ticket.ServiceID == serviceID && ticket.Status == domain.TicketStatusPending {
			candidates = append(candidates, ticket)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		si, sj := domain.TicketSequence(candidates[i].Number), domain.TicketSequence(candidates[j].Number)
		if si != sj {
			return si < sj
		}
		return candidates[i].ID < candidates[j].ID
	})
	clone := *candidates[0]
	return &clone, nil
}

func (r *memoryTicketRepo) UpdateStatusIf(_ context.Context, id string, expected, next domain.TicketStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failClaims {
		return false, nil
	}
	ticket, ok := r.tickets[id]
	if !ok || ticket.Status != expected {
		return false, nil
	}
	ticket.Status = next
	switch next {
	case domain.TicketStatusServing:
		ticket.CalledAt = &at
	case domain.TicketStatusCompleted, domain.TicketStatusCancelled:
		ticket.FinishedAt = &at
	}
	return true, nil
}

func (r *memoryTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.ServiceID != nil && ticket.ServiceID != *filter.ServiceID {
			continue
		}
		if filter.CitizenID != nil && ticket.CitizenID != *filter.CitizenID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryTicketRepo) CountByCitizen(_ context.Context, citizenID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ticket := range r.tickets {
		if ticket.CitizenID == citizenID {
			count++
		}
	}
	return count, nil
}

func (r *memoryTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

// seed inserts a ticket directly, honoring a caller-provided
// CreatedAt so tests can construct timestamp ties.
func (r *memoryTicketRepo) seed(ticket *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("ticket-%04d", r.nextID)
	}
	if ticket.CreatedAt.IsZero() {
		r.clock = r.clock.Add(time.Millisecond)
		ticket.CreatedAt = r.clock
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
}

func (r *memoryTicketRepo) statusOf(id string) domain.TicketStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id].Status
}

type memoryServiceRepo struct {
	mu       sync.Mutex
	services map[string]*domain.Service
}

func newMemoryServiceRepo(services ...*domain.Service) *memoryServiceRepo {
	repo := &memoryServiceRepo{services: make(map[string]*domain.Service)}
	for _, svc := range services {
		repo.services[svc.ID] = svc
	}
	return repo
}

func (r *memoryServiceRepo) Create(_ context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.services {
		if existing.Code == svc.Code {
			return uniqueViolation()
		}
	}
	svc.ID = fmt.Sprintf("service-%d", len(r.services)+1)
	r.services[svc.ID] = svc
	return nil
}

func (r *memoryServiceRepo) Update(_ context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[svc.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.services[svc.ID] = svc
	return nil
}

func (r *memoryServiceRepo) GetByID(_ context.Context, id string) (*domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *svc
	return &clone, nil
}

func (r *memoryServiceRepo) GetByCode(_ context.Context, code string) (*domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, svc := range r.services {
		if svc.Code == code {
			clone := *svc
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryServiceRepo) List(_ context.Context, activeOnly bool) ([]domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Service
	for _, svc := range r.services {
		if activeOnly && !svc.IsActive {
			continue
		}
		result = append(result, *svc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *memoryServiceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.services, id)
	return nil
}

type memoryCitizenRepo struct {
	mu       sync.Mutex
	citizens map[string]*domain.Citizen
}

func newMemoryCitizenRepo(citizens ...*domain.Citizen) *memoryCitizenRepo {
	repo := &memoryCitizenRepo{citizens: make(map[string]*domain.Citizen)}
	for _, citizen := range citizens {
		repo.citizens[citizen.ID] = citizen
	}
	return repo
}

func (r *memoryCitizenRepo) Create(_ context.Context, citizen *domain.Citizen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.citizens {
		if existing.NationalID == citizen.NationalID {
			return uniqueViolation()
		}
	}
	citizen.ID = fmt.Sprintf("citizen-%d", len(r.citizens)+1)
	r.citizens[citizen.ID] = citizen
	return nil
}

func (r *memoryCitizenRepo) Update(_ context.Context, citizen *domain.Citizen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.citizens[citizen.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.citizens[citizen.ID] = citizen
	return nil
}

func (r *memoryCitizenRepo) GetByID(_ context.Context, id string) (*domain.Citizen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	citizen, ok := r.citizens[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *citizen
	return &clone, nil
}

func (r *memoryCitizenRepo) GetByNationalID(_ context.Context, nationalID string) (*domain.Citizen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, citizen := range r.citizens {
		if citizen.NationalID == nationalID {
			clone := *citizen
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryCitizenRepo) List(_ context.Context, limit, offset int) ([]domain.Citizen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Citizen
	for _, citizen := range r.citizens {
		result = append(result, *citizen)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryCitizenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.citizens[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.citizens, id)
	return nil
}

type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.TicketAudit
}

func (r *memoryAuditRepo) Create(_ context.Context, entry *domain.TicketAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryAuditRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketAudit
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *memoryAuditRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// queueHarness wires a ledger and a dispatcher over the same in-memory
// stores, pre-seeded with one active service and one citizen.
type queueHarness struct {
	tickets    *memoryTicketRepo
	services   *memoryServiceRepo
	citizens   *memoryCitizenRepo
	audit      *memoryAuditRepo
	published  *recordingDispatcher
	ledger     *LedgerService
	dispatcher *DispatcherService
	svc        *domain.Service
	citizen    *domain.Citizen
}

func newQueueHarness(maxAttempts int) *queueHarness {
	svc := &domain.Service{ID: "service-1", Name: "Vehicle Registration", Code: "REG", IsActive: true}
	citizen := &domain.Citizen{ID: "citizen-1", FirstName: "Sara", LastName: "Ahmadi", NationalID: "0012345678"}

	h := &queueHarness{
		tickets:   newMemoryTicketRepo(),
		services:  newMemoryServiceRepo(svc),
		citizens:  newMemoryCitizenRepo(citizen),
		audit:     &memoryAuditRepo{},
		published: &recordingDispatcher{},
		svc:       svc,
		citizen:   citizen,
	}
	h.ledger = NewLedgerService(LedgerDependencies{
		TicketRepo:  h.tickets,
		ServiceRepo: h.services,
		CitizenRepo: h.citizens,
		Dispatcher:  h.published,
		MaxAttempts: maxAttempts,
	})
	h.dispatcher = NewDispatcherService(DispatcherDependencies{
		TicketRepo:    h.tickets,
		ServiceRepo:   h.services,
		AuditRepo:     h.audit,
		Dispatcher:    h.published,
		ClaimAttempts: maxAttempts,
	})
	return h
}

func (h *queueHarness) issue(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.ledger.IssueTicket(context.Background(), IssueTicketInput{
		ServiceID: h.svc.ID,
		CitizenID: h.citizen.ID,
	})
	if err != nil {
		t.Fatalf("issue ticket: %v", err)
	}
	return ticket
}

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var domainErr *util.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return domainErr.Code
}
