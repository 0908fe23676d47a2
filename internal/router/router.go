package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gatekeeper-api/internal/config"
	"github.com/noah-isme/gatekeeper-api/internal/handler"
	"github.com/noah-isme/gatekeeper-api/internal/middleware"
	"github.com/noah-isme/gatekeeper-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ApplicationHandler *handler.ApplicationHandler
	ReviewHandler      *handler.ReviewHandler
	SettingsHandler    *handler.SettingsHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Applicant lifecycle, rate limited per user
	if deps.ApplicationHandler != nil {
		applications := app.Group("/api/v2/applications", jwtMiddleware, middleware.RateLimit("applications", 20, time.Minute))
		deps.ApplicationHandler.Register(applications)
	}

	// Review pipeline (staff only)
	if deps.ReviewHandler != nil {
		review := app.Group("/api/v2/review", jwtMiddleware, middleware.RequireRole("reviewer", "admin"))
		deps.ReviewHandler.Register(review)
	}

	// Guild configuration (admin only)
	if deps.SettingsHandler != nil {
		guilds := app.Group("/api/v2/guilds", jwtMiddleware, middleware.RequireRole("admin"))
		deps.SettingsHandler.Register(guilds)
	}
}
