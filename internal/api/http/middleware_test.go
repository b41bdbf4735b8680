package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civic-kit/queue-service/internal/observability"
	apperrors "github.com/civic-kit/queue-service/pkg/util"
)

func newMiddlewareApp() *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	app.Get("/missing", func(*fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": "ticket-1"})
	})
	app.Get("/boom", func(*fiber.Ctx) error {
		panic("display board unplugged")
	})
	return app
}

func middlewareGet(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	return resp
}

func TestErrorEnvelopeRendersDomainErrors(t *testing.T) {
	app := newMiddlewareApp()

	resp := middlewareGet(t, app, "/missing")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}

	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "NOT_FOUND" {
		t.Fatalf("code %q, want NOT_FOUND", env.Error.Code)
	}
	if env.Error.Details["ticket_id"] != "ticket-1" {
		t.Fatalf("details %v, want ticket_id ticket-1", env.Error.Details)
	}
}

func TestErrorEnvelopeRecoversPanics(t *testing.T) {
	app := newMiddlewareApp()

	resp := middlewareGet(t, app, "/boom")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("code %q, want INTERNAL_ERROR", env.Error.Code)
	}
}
