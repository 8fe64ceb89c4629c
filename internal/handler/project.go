package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/pipeline"
	"github.com/reelsmith/api/internal/service"
	"github.com/reelsmith/api/internal/store"
	"github.com/reelsmith/api/pkg/response"
)

type ProjectHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

func NewProjectHandler(svc *service.ProjectService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req model.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.Created(c, model.CreateProjectResponse{Project: project})
}

// Generate handles POST /api/projects/:id/generate
func (h *ProjectHandler) Generate(c *fiber.Ctx) error {
	result, err := h.service.TriggerGenerate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return response.Accepted(c, result)
}

// Status handles GET /api/projects/:id
func (h *ProjectHandler) Status(c *fiber.Ctx) error {
	project, err := h.service.GetProject(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return response.OK(c, model.ProjectStatusResponse{Project: project})
}

// Scenes handles GET /api/projects/:id/scenes
func (h *ProjectHandler) Scenes(c *fiber.Ctx) error {
	result, err := h.service.GetScenes(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return response.OK(c, result)
}

// Logs handles GET /api/projects/:id/logs
func (h *ProjectHandler) Logs(c *fiber.Ctx) error {
	result, err := h.service.GetLogs(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return response.OK(c, result)
}

// Video handles GET /api/projects/:id/video
func (h *ProjectHandler) Video(c *fiber.Ctx) error {
	info, err := h.service.VideoDownload(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return sendDownload(c, info)
}

// Subtitles handles GET /api/projects/:id/subtitles
func (h *ProjectHandler) Subtitles(c *fiber.Ctx) error {
	info, err := h.service.SubtitleDownload(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}
	return sendDownload(c, info)
}

// Voices handles GET /api/voices
func (h *ProjectHandler) Voices(c *fiber.Ctx) error {
	result, err := h.service.ListVoices(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}
	return response.OK(c, result)
}

func sendDownload(c *fiber.Ctx, info *model.DownloadInfo) error {
	if info.URL != "" {
		return c.Redirect(info.URL, fiber.StatusFound)
	}
	return c.SendFile(info.LocalPath)
}

// handleServiceError maps service and pipeline errors to HTTP responses.
func handleServiceError(c *fiber.Ctx, err error) error {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		return response.ValidationError(c, ve.Message, map[string]string{ve.Field: ve.Message})
	}
	if errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, "Project not found")
	}
	var te *pipeline.TransientProviderError
	var fe *pipeline.FatalProviderError
	if errors.As(err, &te) || errors.As(err, &fe) {
		return response.ProviderError(c, err.Error())
	}
	return response.ServiceError(c, err.Error())
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
