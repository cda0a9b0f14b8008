package handler

import (
	"io"

	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/dto"
	"github.com/Blaze-0903/NextStepAI/internal/delivery/http/middleware"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/response"
	"github.com/Blaze-0903/NextStepAI/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type ResumeHandler struct {
	uc       usecase.AnalysisUsecase
	maxBytes int64
}

// NewResumeHandler rejects uploads larger than maxBytes; zero means 10 MiB.
func NewResumeHandler(uc usecase.AnalysisUsecase, maxBytes int64) *ResumeHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ResumeHandler{uc: uc, maxBytes: maxBytes}
}

func (h *ResumeHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/upload-resume", h.Upload)
}

func (h *ResumeHandler) Upload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Missing resume file", nil, err)
	}
	if fh.Size > h.maxBytes {
		return middleware.NewAppError(fiber.StatusRequestEntityTooLarge, "", nil, nil)
	}

	f, err := fh.Open()
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Could not read uploaded file", nil, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Could not read uploaded file", nil, err)
	}
	if int64(len(data)) > h.maxBytes {
		return middleware.NewAppError(fiber.StatusRequestEntityTooLarge, "", nil, nil)
	}

	res, err := h.uc.Analyze(c.Context(), usecase.AnalyzeInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
		Experience:  c.FormValue("experience"),
	})
	if err != nil {
		return mapUsecaseError(err)
	}

	out := dto.UploadResumeResponse{
		AnalysisID:       res.AnalysisID.String(),
		UserSkills:       res.UserSkills,
		CareerMatches:    res.CareerMatches,
		TotalSkillsFound: len(res.UserSkills),
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}
