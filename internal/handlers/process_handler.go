package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/services"
)

type ProcessHandler struct {
	processor services.Processor
	validate  *validator.Validate
}

func NewProcessHandler(processor services.Processor, validate *validator.Validate) *ProcessHandler {
	return &ProcessHandler{
		processor: processor,
		validate:  validate,
	}
}

// HandleProcess handles POST /ai/process
func (h *ProcessHandler) HandleProcess(c *fiber.Ctx) error {
	var req models.ProcessRequest

	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request payload")
	}

	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "CV ID and model are required")
	}

	resp, err := h.processor.Submit(c.UserContext(), services.SubmitRequest{
		DocumentID: req.CVID,
		ModelName:  req.Model,
		OwnerID:    ownerFrom(c),
	})
	if err != nil {
		return toHTTPError(err, "Internal server error during CV processing")
	}

	// Return job ID immediately
	return c.Status(fiber.StatusAccepted).JSON(resp)
}
