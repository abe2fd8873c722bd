package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	Worklogs       *handlers.WorklogsHandler
	Trash          *handlers.TrashHandler
	Metrics        *handlers.MetricsHandler
	Config         *handlers.ConfigHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	authenticated := app.Group("", cfg.AuthMiddleware.Authenticate())

	authenticated.Get("/auth/me", cfg.Auth.Me)
	authenticated.Patch("/auth/me", cfg.Auth.UpdateProfile)

	staffOnly := auth.RequireRole(domain.RoleSupport, domain.RoleAdmin)
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	requests := authenticated.Group("/requests")
	requests.Post("", cfg.Requests.Create)
	requests.Get("", cfg.Requests.List)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Get("/:id/history", cfg.Requests.History)
	requests.Patch("/:id/classify", adminOnly, cfg.Requests.Classify)
	requests.Patch("/:id/assign", adminOnly, cfg.Requests.Assign)
	requests.Patch("/:id/status", staffOnly, cfg.Requests.Transition)
	requests.Post("/:id/feedback", cfg.Requests.Feedback)
	requests.Post("/:id/worklogs", staffOnly, cfg.Worklogs.Add)
	requests.Get("/:id/worklogs", cfg.Worklogs.ListByRequest)
	requests.Delete("/:id", adminOnly, cfg.Trash.SoftDelete)

	authenticated.Get("/me/worklogs", staffOnly, cfg.Worklogs.ListMine)

	trash := authenticated.Group("/trash", adminOnly)
	trash.Get("", cfg.Trash.List)
	trash.Post("/:id/restore", cfg.Trash.Restore)
	trash.Delete("/:id", cfg.Trash.Purge)

	metrics := authenticated.Group("/metrics", staffOnly)
	metrics.Get("/summary", cfg.Metrics.Summary)
	metrics.Get("/reopen-rate", cfg.Metrics.ReopenRate)

	authenticated.Get("/departments", cfg.Config.Departments)
	configGroup := authenticated.Group("/config")
	configGroup.Get("", cfg.Config.Get)
	configGroup.Put("", adminOnly, cfg.Config.Replace)
	configGroup.Put("/departments", adminOnly, cfg.Config.ReplaceDepartments)
	configGroup.Put("/request-options", adminOnly, cfg.Config.ReplaceRequestOptions)

	users := authenticated.Group("/users", adminOnly)
	users.Post("", cfg.Users.Create)
	users.Get("", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)
}
