package service

import (
	"context"
	"sync"
	"testing"

	"github.com/civic-kit/queue-service/internal/domain"
	"github.com/civic-kit/queue-service/internal/events"
)

func TestPeekNextEmptyQueue(t *testing.T) {
	h := newQueueHarness(3)

	ticket, err := h.dispatcher.PeekNext(context.Background(), h.svc.ID)
	if err != nil {
		t.Fatalf("peek on empty queue: %v", err)
	}
	if ticket != nil {
		t.Fatalf("expected nil ticket on empty queue, got %q", ticket.Number)
	}
}

func TestPeekNextUnknownService(t *testing.T) {
	h := newQueueHarness(3)

	_, err := h.dispatcher.PeekNext(context.Background(), "service-missing")
	if code := domainErrCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("got code %q, want NOT_FOUND", code)
	}
}

func TestPeekNextDoesNotMutate(t *testing.T) {
	h := newQueueHarness(3)
	first := h.issue(t)
	h.issue(t)

	for i := 0; i < 3; i++ {
		ticket, err := h.dispatcher.PeekNext(context.Background(), h.svc.ID)
		if err != nil {
			t.Fatalf("peek %d: %v", i+1, err)
		}
		if ticket == nil || ticket.ID != first.ID {
			t.Fatalf("peek %d: got %+v, want ticket %s", i+1, ticket, first.ID)
		}
		if ticket.Status != domain.TicketStatusPending {
			t.Fatalf("peek %d: status %q, want pending", i+1, ticket.Status)
		}
	}
	if status := h.tickets.statusOf(first.ID); status != domain.TicketStatusPending {
		t.Fatalf("stored status changed to %q after peeks", status)
	}
}

func TestAdvanceNextServesInCreationOrder(t *testing.T) {
	h := newQueueHarness(3)
	issued := []*domain.Ticket{h.issue(t), h.issue(t), h.issue(t)}

	actor := "staff-1"
	for i, expected := range issued {
		ticket, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, &actor)
		if err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
		if ticket == nil || ticket.ID != expected.ID {
			t.Fatalf("advance %d: got %+v, want ticket %s", i+1, ticket, expected.ID)
		}
		if ticket.Status != domain.TicketStatusServing {
			t.Fatalf("advance %d: status %q, want serving", i+1, ticket.Status)
		}
		if ticket.CalledAt == nil {
			t.Fatalf("advance %d: called_at not set", i+1)
		}
	}

	ticket, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, &actor)
	if err != nil {
		t.Fatalf("advance on drained queue: %v", err)
	}
	if ticket != nil {
		t.Fatalf("expected nil ticket on drained queue, got %q", ticket.Number)
	}

	if got := h.audit.len(); got != len(issued) {
		t.Fatalf("got %d audit entries, want %d", got, len(issued))
	}
	if got := len(h.published.byType(events.EventTicketCalled)); got != len(issued) {
		t.Fatalf("got %d called events, want %d", got, len(issued))
	}
}

func TestAdvanceNextConcurrentClaims(t *testing.T) {
	const pending = 5
	const callers = 8

	h := newQueueHarness(callers * 2)
	for i := 0; i < pending; i++ {
		h.issue(t)
	}

	var wg sync.WaitGroup
	claims := make(chan string, callers)
	empties := make(chan struct{}, callers)
	failures := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, nil)
			if err != nil {
				failures <- err
				return
			}
			if ticket == nil {
				empties <- struct{}{}
				return
			}
			claims <- ticket.ID
		}()
	}
	wg.Wait()
	close(claims)
	close(empties)
	close(failures)

	for err := range failures {
		t.Fatalf("concurrent advance failed: %v", err)
	}

	claimed := make(map[string]bool, pending)
	for id := range claims {
		if claimed[id] {
			t.Fatalf("ticket %s claimed twice", id)
		}
		claimed[id] = true
	}
	if len(claimed) != pending {
		t.Fatalf("got %d claims, want %d", len(claimed), pending)
	}
	if got := len(empties); got != callers-pending {
		t.Fatalf("got %d empty results, want %d", got, callers-pending)
	}
}

func TestAdvanceNextConflictWhenClaimsKeepFailing(t *testing.T) {
	h := newQueueHarness(3)
	h.issue(t)
	h.tickets.failClaims = true

	_, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, nil)
	if code := domainErrCode(t, err); code != "CONFLICT" {
		t.Fatalf("got code %q, want CONFLICT", code)
	}
}

func TestCompleteServingTicket(t *testing.T) {
	h := newQueueHarness(3)
	h.issue(t)
	served, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, nil)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}

	done, err := h.dispatcher.Complete(context.Background(), served.ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.TicketStatusCompleted {
		t.Fatalf("status %q, want completed", done.Status)
	}
	if done.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}

	changed := h.published.byType(events.EventTicketStatusChanged)
	if len(changed) != 1 {
		t.Fatalf("got %d status events, want 1", len(changed))
	}
}

func TestTransitionRejections(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, h *queueHarness) string
		act      func(h *queueHarness, id string) error
		wantCode string
	}{
		{
			name: "complete a pending ticket",
			prepare: func(t *testing.T, h *queueHarness) string {
				return h.issue(t).ID
			},
			act: func(h *queueHarness, id string) error {
				_, err := h.dispatcher.Complete(context.Background(), id, nil)
				return err
			},
			wantCode: "INVALID_TRANSITION",
		},
		{
			name: "cancel a serving ticket",
			prepare: func(t *testing.T, h *queueHarness) string {
				h.issue(t)
				served, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, nil)
				if err != nil {
					t.Fatalf("advance: %v", err)
				}
				return served.ID
			},
			act: func(h *queueHarness, id string) error {
				_, err := h.dispatcher.Cancel(context.Background(), id, nil)
				return err
			},
			wantCode: "INVALID_TRANSITION",
		},
		{
			name: "complete twice",
			prepare: func(t *testing.T, h *queueHarness) string {
				h.issue(t)
				served, err := h.dispatcher.AdvanceNext(context.Background(), h.svc.ID, nil)
				if err != nil {
					t.Fatalf("advance: %v", err)
				}
				if _, err := h.dispatcher.Complete(context.Background(), served.ID, nil); err != nil {
					t.Fatalf("first complete: %v", err)
				}
				return served.ID
			},
			act: func(h *queueHarness, id string) error {
				_, err := h.dispatcher.Complete(context.Background(), id, nil)
				return err
			},
			wantCode: "INVALID_TRANSITION",
		},
		{
			name: "cancel a cancelled ticket",
			prepare: func(t *testing.T, h *queueHarness) string {
				ticket := h.issue(t)
				if _, err := h.dispatcher.Cancel(context.Background(), ticket.ID, nil); err != nil {
					t.Fatalf("first cancel: %v", err)
				}
				return ticket.ID
			},
			act: func(h *queueHarness, id string) error {
				_, err := h.dispatcher.Cancel(context.Background(), id, nil)
				return err
			},
			wantCode: "INVALID_TRANSITION",
		},
		{
			name: "complete an unknown ticket",
			prepare: func(_ *testing.T, _ *queueHarness) string {
				return "ticket-missing"
			},
			act: func(h *queueHarness, id string) error {
				_, err := h.dispatcher.Complete(context.Background(), id, nil)
				return err
			},
			wantCode: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newQueueHarness(3)
			id := tt.prepare(t, h)
			err := tt.act(h, id)
			if code := domainErrCode(t, err); code != tt.wantCode {
				t.Fatalf("got code %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestCancelPendingTicketLeavesQueueOrderIntact(t *testing.T) {
	h := newQueueHarness(3)
	first := h.issue(t)
	second := h.issue(t)

	cancelled, err := h.dispatcher.Cancel(context.Background(), first.ID, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.TicketStatusCancelled {
		t.Fatalf("status %q, want cancelled", cancelled.Status)
	}

	next, err := h.dispatcher.PeekNext(context.Background(), h.svc.ID)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("got next %+v, want ticket %s", next, second.ID)
	}
}
