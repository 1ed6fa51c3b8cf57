package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/nsu-cse/autograder-api/internal/config"
	"github.com/nsu-cse/autograder-api/internal/handler"
	"github.com/nsu-cse/autograder-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeHandler    *handler.GradeHandler
	DownloadHandler *handler.DownloadHandler
	EnginePing      func(ctx context.Context) error
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	api.Get("/health", handler.HealthCheck(cfg, deps.EnginePing))

	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(api)
	}

	if deps.DownloadHandler != nil {
		deps.DownloadHandler.Register(api)
	}

	app.Get("/metrics", observability.MetricsHandler())
}
