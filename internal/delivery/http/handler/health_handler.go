package handler

import (
	"context"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/pkg/response"
	"github.com/Blaze-0903/NextStepAI/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

// Pinger is a dependency whose reachability /health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   usecase.SnapshotSource
	checks  map[string]Pinger
	started time.Time
	timeout time.Duration
}

func NewHealthHandler(store usecase.SnapshotSource, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{store: store, checks: checks, started: time.Now(), timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

// Health always answers 200. Unreachable optional dependencies are listed as
// "unavailable".
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			deps[name] = "unavailable"
			continue
		}
		deps[name] = "ok"
	}

	data := map[string]any{
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"dependencies": deps,
	}
	if h.store != nil {
		snap := h.store.Snapshot()
		data["ontology_version"] = snap.Version
		data["skills"] = snap.SkillCount()
		data["roles"] = snap.RoleCount()
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}
