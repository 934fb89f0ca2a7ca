package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Users         *handlers.UsersHandler
	Auth          *handlers.AuthHandler
	Guard         *auth.Guard
	Authenticator *auth.Authenticator
	Metrics       *observability.Metrics
}

// NewApp builds the Fiber app. Paths are unescaped before routing, so the
// owner check and route params see decoded usernames.
func NewApp(appName string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		UnescapePath:          true,
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	adminOnly := cfg.Guard.Require(auth.AdminOnly(cfg.Authenticator))
	ownerOrAdmin := cfg.Guard.Require(auth.OwnerOrAdmin(cfg.Authenticator))

	api := app.Group("/api/v1")
	api.Get("/healthcheck", cfg.Health.Healthcheck)
	api.Get("/status", cfg.Health.Status)
	api.Post("/login", cfg.Auth.Login)

	users := api.Group("/users")
	users.Get("", adminOnly, cfg.Users.List)
	users.Post("", cfg.Users.Create)
	users.Get("/username/:username", ownerOrAdmin, cfg.Users.GetByUsername)
	users.Get("/:id", ownerOrAdmin, cfg.Users.Get)
	users.Patch("/:id", ownerOrAdmin, cfg.Users.Patch)
	users.Delete("/:id", ownerOrAdmin, cfg.Users.Delete)
}
