package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-formatter/internal/services"
)

type StatusHandler struct {
	status services.StatusService
}

func NewStatusHandler(status services.StatusService) *StatusHandler {
	return &StatusHandler{
		status: status,
	}
}

// HandleGetStatus handles GET /ai/status/:id
func (h *StatusHandler) HandleGetStatus(c *fiber.Ctx) error {
	resp, err := h.status.GetStatus(c.UserContext(), c.Params("id"), ownerFrom(c))
	if err != nil {
		return toHTTPError(err, "Failed to get processing status")
	}

	return c.JSON(resp)
}
