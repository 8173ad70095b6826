package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks a dependency's reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness/readiness probes.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler constructs handler; deps are named readiness checks.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true
	for name, dep := range h.deps {
		if dep == nil {
			checks[name] = "skipped"
			continue
		}
		if err := dep.Ping(c.Context()); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}
	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"checks": checks})
}
