package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/queue-service/internal/api/http/handlers"
	"github.com/civic-kit/queue-service/internal/auth"
	"github.com/civic-kit/queue-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Citizens       *handlers.CitizensHandler
	Services       *handlers.ServicesHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Ticket creation and the peek endpoint
// stay open for kiosk and display-board hardware; serve-next, cancel and
// all catalog or destructive operations require staff. Citizens have no
// credentials, so cancellation goes through the counter rather than an
// open endpoint anyone could aim at someone else's ticket.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Staff.Login)

	admin := func() []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole(domain.StaffRoleAdmin)}
	}
	staff := func() []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaff()}
	}

	app.Post("/auth/staff", append(admin(), cfg.Staff.Create)...)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/next", cfg.Tickets.PeekNext)
	tickets.Post("/serve-next", append(staff(), cfg.Tickets.ServeNext)...)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/complete", append(staff(), cfg.Tickets.Complete)...)
	tickets.Post("/:id/cancel", append(staff(), cfg.Tickets.Cancel)...)
	tickets.Delete("/:id", append(admin(), cfg.Tickets.Delete)...)

	citizens := app.Group("/citizens")
	citizens.Post("/", cfg.Citizens.Create)
	citizens.Get("/", cfg.Citizens.List)
	citizens.Get("/:id", cfg.Citizens.Get)
	citizens.Get("/:id/tickets", cfg.Citizens.Tickets)
	citizens.Put("/:id", append(staff(), cfg.Citizens.Update)...)
	citizens.Delete("/:id", append(admin(), cfg.Citizens.Delete)...)

	services := app.Group("/services")
	services.Get("/", cfg.Services.List)
	services.Get("/:id", cfg.Services.Get)
	services.Post("/", append(admin(), cfg.Services.Create)...)
	services.Put("/:id", append(admin(), cfg.Services.Update)...)
	services.Delete("/:id", append(admin(), cfg.Services.Delete)...)
}
