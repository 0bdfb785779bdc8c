package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/services"
)

// ErrorHandler renders every error as {"error": msg, "code": status}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// toHTTPError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a 500 with a fixed message.
func toHTTPError(err error, fallback string) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.NewError(fiber.StatusBadRequest, ve.Message)
	case errors.Is(err, repositories.ErrCVNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, repositories.ErrCVAlreadyProcessing):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrExecutorStopped), errors.Is(err, services.ErrQueueFull):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Processing is temporarily unavailable, try again later")
	case errors.Is(err, services.ErrIndexDisabled):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, services.ErrUnsupportedFileType), errors.Is(err, services.ErrEmptyContent):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	zap.S().Named("http").Errorw(fallback, "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, fallback)
}
