package handler

import (
	"github.com/Blaze-0903/NextStepAI/internal/pkg/response"
	"github.com/Blaze-0903/NextStepAI/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

const bannerMessage = "NextStepAI API - Your Future, Demystified"

type OntologyHandler struct {
	uc usecase.OntologyUsecase
}

func NewOntologyHandler(uc usecase.OntologyUsecase) *OntologyHandler {
	return &OntologyHandler{uc: uc}
}

func (h *OntologyHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.Root)
	r.Get("/ontology", h.Get)
}

func (h *OntologyHandler) Root(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, bannerMessage, nil)
}

func (h *OntologyHandler) Get(c fiber.Ctx) error {
	out, err := h.uc.Overview(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}
