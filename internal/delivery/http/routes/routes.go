package routes

import (
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/handler"
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health   *handler.HealthHandler
	resume   *handler.ResumeHandler
	ontology *handler.OntologyHandler
	admin    *handler.AdminHandler
	auth     *middleware.AdminAuthMiddleware
}

func NewRegistry(
	health *handler.HealthHandler,
	resume *handler.ResumeHandler,
	ontology *handler.OntologyHandler,
	admin *handler.AdminHandler,
	auth *middleware.AdminAuthMiddleware,
) *Registry {
	return &Registry{health: health, resume: resume, ontology: ontology, admin: admin, auth: auth}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)
	r.registerAPI(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	r.ontology.RegisterRoutes(api)
	r.resume.RegisterRoutes(api)
	r.admin.RegisterRoutes(api, r.auth.Middleware())
}
