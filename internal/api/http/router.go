package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/donor-auth/internal/api/http/handlers"
	"github.com/spec-kit/donor-auth/internal/auth"
	"github.com/spec-kit/donor-auth/internal/domain"
	"github.com/spec-kit/donor-auth/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Accounts     *handlers.AccountHandler
	Admin        *handlers.AdminHandler
	IdentityGate *auth.IdentityGate
	Metrics      *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Post("/signup", cfg.Accounts.Signup)
	api.Post("/login", cfg.Accounts.Login)
	api.Post("/logout", cfg.Accounts.Logout)
	api.Get("/me", cfg.IdentityGate.Handle, cfg.Accounts.Me)
	api.Put("/update-availability", cfg.IdentityGate.Handle, cfg.Accounts.UpdateAvailability)

	admin := api.Group("/admin", cfg.IdentityGate.Handle, auth.RequireAccountType(domain.AccountTypeAdmin))
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Get("/users", cfg.Admin.Users)
	admin.Get("/donors", cfg.Admin.Donors)
	admin.Get("/hospitals", cfg.Admin.Hospitals)
}
