package service

import (
	"context"
	"testing"
)

func TestRegisterCitizenRejectsDuplicateNationalID(t *testing.T) {
	h := newQueueHarness(3)
	citizens := NewCitizenService(h.citizens, h.tickets)

	_, err := citizens.Register(context.Background(), CitizenInput{
		FirstName:  "Reza",
		LastName:   "Moradi",
		NationalID: h.citizen.NationalID,
	})
	if code := domainErrCode(t, err); code != "CONFLICT" {
		t.Fatalf("got code %q, want CONFLICT", code)
	}
}

func TestRegisterCitizenValidation(t *testing.T) {
	h := newQueueHarness(3)
	citizens := NewCitizenService(h.citizens, h.tickets)

	_, err := citizens.Register(context.Background(), CitizenInput{FirstName: "  "})
	if code := domainErrCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("got code %q, want VALIDATION_FAILED", code)
	}
}

func TestDeleteCitizenWithTicketsRefused(t *testing.T) {
	h := newQueueHarness(3)
	citizens := NewCitizenService(h.citizens, h.tickets)
	h.issue(t)

	err := citizens.Delete(context.Background(), h.citizen.ID)
	if code := domainErrCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("got code %q, want VALIDATION_FAILED", code)
	}
}

func TestDeleteCitizenWithoutTickets(t *testing.T) {
	h := newQueueHarness(3)
	citizens := NewCitizenService(h.citizens, h.tickets)

	if err := citizens.Delete(context.Background(), h.citizen.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := citizens.Get(context.Background(), h.citizen.ID)
	if code := domainErrCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("got code %q, want NOT_FOUND", code)
	}
}

func TestCatalogCreateNormalizesCode(t *testing.T) {
	h := newQueueHarness(3)
	catalog := NewCatalogService(h.services)

	svc, err := catalog.Create(context.Background(), ServiceInput{
		Name: "Driving License",
		Code: " lic ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if svc.Code != "LIC" {
		t.Fatalf("code %q, want LIC", svc.Code)
	}
	if !svc.IsActive {
		t.Fatal("new service should default to active")
	}
}

func TestCatalogCreateRejectsDuplicateCode(t *testing.T) {
	h := newQueueHarness(3)
	catalog := NewCatalogService(h.services)

	_, err := catalog.Create(context.Background(), ServiceInput{
		Name: "Duplicate Registration",
		Code: h.svc.Code,
	})
	if code := domainErrCode(t, err); code != "CONFLICT" {
		t.Fatalf("got code %q, want CONFLICT", code)
	}
}
