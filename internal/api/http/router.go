package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Customer       *handlers.CustomerTicketsHandler
	Admin          *handlers.AdminTicketsHandler
	AuthMiddleware *auth.SessionMiddleware
	// CSRF is nil when protection is disabled.
	CSRF            fiber.Handler
	MetricsRegistry *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.MetricsRegistry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{})))
	}

	app.Use(cfg.AuthMiddleware.Handle)
	if cfg.CSRF != nil {
		app.Use(cfg.CSRF)
	}

	app.Get("/", cfg.Auth.Home)
	app.Get("/register/", cfg.Auth.ShowRegister)
	app.Post("/register/", cfg.Auth.Register)
	app.Get("/login/", cfg.Auth.ShowLogin)
	app.Post("/login/", cfg.Auth.Login)
	app.All("/logout/", cfg.Auth.Logout)

	customer := auth.RequireRole(domain.RoleCustomer)
	app.Get("/list/", customer, cfg.Customer.List)
	app.Post("/list/", customer, cfg.Customer.Create)
	app.Get("/tickets/attachment/:id<int>/", auth.RequireLogin(), cfg.Customer.Attachment)

	admin := auth.RequireRole(domain.RoleAdmin)
	app.Get("/admin/view_ticket/", admin, cfg.Admin.List)
	app.Post("/tickets/update/:id<int>/", admin, cfg.Admin.Update)
	app.Get("/tickets/update/:id<int>/", admin, cfg.Admin.BackToList)

	app.Post("/tickets/mark_in_process/:id<int>/",
		auth.RequireRoleJSON(domain.RoleAdmin, fiber.StatusBadRequest, handlers.InvalidRequestMessage),
		cfg.Admin.MarkInProcess)
	app.All("/tickets/mark_in_process/:id<int>/", cfg.Admin.InvalidRequest)

	app.Post("/tickets/ai_reply/:id<int>/",
		auth.RequireRoleJSON(domain.RoleAdmin, fiber.StatusForbidden, "Unauthorized"),
		cfg.Admin.AIReply)
}
