package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/service"
)

// Pinger is a dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to health, readiness and status probes.
type HealthHandler struct {
	serviceName  string
	version      string
	status       *service.StatusService
	dependencies map[string]Pinger
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, status *service.StatusService, dependencies map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, status: status, dependencies: dependencies}
}

// Healthcheck handles GET /healthcheck.
func (h *HealthHandler) Healthcheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Status handles GET /status.
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	st, err := h.status.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.StatusResponse{
		Status:            "ok",
		UpdatedAt:         st.UpdatedAt.Format(time.RFC3339Nano),
		DBVersion:         st.DBVersion,
		MaxConnections:    st.MaxConnections,
		ActiveConnections: st.ActiveConnections,
		Cache:             st.Cache,
	})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
		} else {
			depStatus[name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"detail":       "one or more dependencies unavailable",
		"status_code":  fiber.StatusServiceUnavailable,
		"dependencies": depStatus,
	})
}
