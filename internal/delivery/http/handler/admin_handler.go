package handler

import (
	"fmt"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/dto"
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/middleware"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/response"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/validation"
	"github.com/Blaze-0903/NextStepAI/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type AdminHandler struct {
	uc usecase.AdminUsecase
}

func NewAdminHandler(uc usecase.AdminUsecase) *AdminHandler {
	return &AdminHandler{uc: uc}
}

// RegisterRoutes mounts login openly and everything else behind auth. The
// trigger is also served at /trigger-ontology-update, where the dashboard
// calls it.
func (h *AdminHandler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	if r == nil {
		return
	}
	grp := r.Group("/admin")
	grp.Post("/login", h.Login)
	grp.Get("/pending-updates", auth, h.PendingUpdates)
	grp.Post("/review", auth, h.Review)
	grp.Post("/trigger-ontology-update", auth, h.TriggerUpdate)

	r.Post("/trigger-ontology-update", auth, h.TriggerUpdate)
}

func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if err := validation.Struct(req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	}

	res, err := h.uc.Login(c.Context(), req.Password, req.ReviewerName)
	if err != nil {
		return mapUsecaseError(err)
	}

	out := dto.AdminLoginResponse{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresAt: res.ExpiresAt,
		Reviewer:  res.Reviewer,
	}
	return response.Success(c, fiber.StatusOK, "Login successful", out)
}

func (h *AdminHandler) PendingUpdates(c fiber.Ctx) error {
	items, err := h.uc.PendingUpdates(c.Context())
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.PendingUpdatesResponse{
		PendingUpdates: items,
		Count:          len(items),
	})
}

func (h *AdminHandler) Review(c fiber.Ctx) error {
	var req dto.ReviewRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if err := validation.Struct(req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	}

	reviewer := strings.TrimSpace(req.ReviewerName)
	if reviewer == "" {
		reviewer = middleware.Reviewer(c)
	}

	out, err := h.uc.Review(c.Context(), usecase.ReviewInput{
		UpdateID: req.UpdateID,
		Decision: req.Decision,
		Reviewer: reviewer,
	})
	if err != nil {
		return mapUsecaseError(err)
	}

	msg := fmt.Sprintf("Update %s successfully", out.Update.Status)
	if out.Applied {
		msg += " and ontology has been updated"
	}
	return response.Success(c, fiber.StatusOK, msg, dto.ReviewResponse{
		UpdateID:        out.Update.ID.String(),
		Status:          out.Update.Status,
		Applied:         out.Applied,
		SnapshotVersion: out.Snapshot,
	})
}

func (h *AdminHandler) TriggerUpdate(c fiber.Ctx) error {
	job, err := h.uc.TriggerEvolution(c.Context(), middleware.Reviewer(c))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusAccepted, "Ontology update triggered", dto.TriggerResponse{
		JobID:       job.ID.String(),
		RequestedBy: job.RequestedBy,
		RequestedAt: job.RequestedAt,
	})
}
