package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helpdesk-io/support-service/internal/api/http/handlers"
	"github.com/helpdesk-io/support-service/internal/auth"
	"github.com/helpdesk-io/support-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Clients        *handlers.ClientsHandler
	Technicians    *handlers.TechniciansHandler
	Categories     *handlers.CategoriesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Every guarded route runs the auth
// middleware first (401 on missing/invalid token) and then the policy
// guard for its operation (403 on disallowed role).
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	app.Post("/auth/register", cfg.Auth.Register)
	app.Post("/auth/login", cfg.Auth.Login)

	authed := cfg.AuthMiddleware.Handle

	tickets := app.Group("/tickets", authed)
	tickets.Post("/", auth.Require(auth.OpTicketCreate), cfg.Tickets.Create)
	tickets.Get("/", auth.Require(auth.OpTicketList), cfg.Tickets.List)
	tickets.Get("/client/:id", auth.Require(auth.OpTicketListByClient), cfg.Tickets.ListByClient)
	tickets.Get("/technician/:id", auth.Require(auth.OpTicketListByTechnician), cfg.Tickets.ListByTechnician)
	tickets.Get("/:id", auth.Require(auth.OpTicketGet), cfg.Tickets.Get)
	tickets.Patch("/:id/status", auth.Require(auth.OpTicketUpdateStatus), cfg.Tickets.UpdateStatus)
	tickets.Put("/:id", auth.Require(auth.OpTicketUpdateFields), cfg.Tickets.Update)
	tickets.Delete("/:id", auth.Require(auth.OpTicketDelete), cfg.Tickets.Delete)

	users := app.Group("/users", authed)
	users.Post("/", auth.Require(auth.OpUserWrite), cfg.Users.Create)
	users.Get("/", auth.Require(auth.OpUserRead), cfg.Users.List)
	users.Get("/:id", auth.Require(auth.OpUserRead), cfg.Users.Get)
	users.Put("/:id", auth.Require(auth.OpUserWrite), cfg.Users.Update)
	users.Delete("/:id", auth.Require(auth.OpUserWrite), cfg.Users.Delete)

	clients := app.Group("/clients", authed)
	clients.Post("/", auth.Require(auth.OpDirectoryWrite), cfg.Clients.Create)
	clients.Get("/", auth.Require(auth.OpDirectoryRead), cfg.Clients.List)
	clients.Get("/:id", auth.Require(auth.OpDirectoryRead), cfg.Clients.Get)
	clients.Put("/:id", auth.Require(auth.OpDirectoryWrite), cfg.Clients.Update)
	clients.Delete("/:id", auth.Require(auth.OpDirectoryWrite), cfg.Clients.Delete)

	technicians := app.Group("/technicians", authed)
	technicians.Post("/", auth.Require(auth.OpDirectoryWrite), cfg.Technicians.Create)
	technicians.Get("/", auth.Require(auth.OpDirectoryRead), cfg.Technicians.List)
	technicians.Get("/:id", auth.Require(auth.OpDirectoryRead), cfg.Technicians.Get)
	technicians.Get("/:id/workload", auth.Require(auth.OpDirectoryRead), cfg.Technicians.Workload)
	technicians.Put("/:id", auth.Require(auth.OpDirectoryWrite), cfg.Technicians.Update)
	technicians.Delete("/:id", auth.Require(auth.OpDirectoryWrite), cfg.Technicians.Delete)

	categories := app.Group("/categories", authed)
	categories.Post("/", auth.Require(auth.OpDirectoryWrite), cfg.Categories.Create)
	categories.Get("/", auth.Require(auth.OpDirectoryRead), cfg.Categories.List)
	categories.Get("/:id", auth.Require(auth.OpDirectoryRead), cfg.Categories.Get)
	categories.Put("/:id", auth.Require(auth.OpDirectoryWrite), cfg.Categories.Update)
	categories.Delete("/:id", auth.Require(auth.OpDirectoryWrite), cfg.Categories.Delete)
}
