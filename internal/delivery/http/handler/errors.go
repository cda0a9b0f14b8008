package handler

import (
	"errors"

	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/middleware"
	"github.com/Blaze-0903/NextStepAI/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

func mapUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, usecase.ErrUnsupportedFormat):
		return middleware.NewAppError(fiber.StatusBadRequest, "Unsupported file type. Please upload PDF or DOCX", nil, err)
	case errors.Is(err, usecase.ErrUnreadableDocument), errors.Is(err, usecase.ErrEmptyText):
		return middleware.NewAppError(fiber.StatusBadRequest, "Could not extract text from file", nil, err)
	case errors.Is(err, usecase.ErrNoSkillsFound):
		return middleware.NewAppError(fiber.StatusBadRequest, "No recognizable skills found in resume", nil, err)
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	case errors.Is(err, usecase.ErrUnauthorized):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Invalid password", nil, err)
	case errors.Is(err, usecase.ErrAdminDisabled):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Admin login is not configured", nil, err)
	case errors.Is(err, usecase.ErrPendingUpdateNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Pending update not found", nil, err)
	case errors.Is(err, usecase.ErrRunInProgress):
		return middleware.NewAppError(fiber.StatusConflict, "Ontology update already running", nil, err)
	case errors.Is(err, usecase.ErrUpstream):
		return middleware.NewAppError(fiber.StatusBadGateway, "", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, "", nil, err)
	}
}
