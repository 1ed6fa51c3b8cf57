package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/nsu-cse/autograder-api/internal/config"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Service string `json:"service"`
	Engine  string `json:"engine,omitempty"`
}

// HealthCheck returns a handler that reports service health. Engine
// reachability is checked best-effort and never fails the endpoint.
func HealthCheck(cfg config.Config, ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:  "ok",
			Message: "Autograder server is running",
			Service: cfg.AppName,
		}

		if ping != nil {
			if err := ping(c.UserContext()); err != nil {
				payload.Engine = "unreachable"
			} else {
				payload.Engine = "ok"
			}
		}

		return c.JSON(payload)
	}
}
