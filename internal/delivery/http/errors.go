package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/farmbud/backend/internal/domain"
)

// toFiberError maps a domain error to an HTTP status and a user message
func toFiberError(err error) *fiber.Error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}

	msg := domain.UserMessage(err)
	var invalid *domain.ValidationError
	var rejected *domain.ServerRejectedError

	switch {
	case errors.As(err, &invalid):
		if errors.Is(err, domain.ErrValidationIncomplete) {
			return fiber.NewError(fiber.StatusBadRequest, msg)
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, msg)
	case errors.Is(err, domain.ErrNoImage),
		errors.Is(err, domain.ErrInvalidCoordinates):
		return fiber.NewError(fiber.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrGeolocationDenied):
		return fiber.NewError(fiber.StatusUnprocessableEntity, msg)
	case errors.Is(err, domain.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, msg)
	case errors.Is(err, domain.ErrWrongStep),
		errors.Is(err, domain.ErrSoilRequired),
		errors.Is(err, domain.ErrWizardIncomplete):
		return fiber.NewError(fiber.StatusConflict, msg)
	case errors.As(err, &rejected):
		return fiber.NewError(fiber.StatusBadGateway, msg)
	case errors.Is(err, domain.ErrNetworkUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, msg)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	fe := toFiberError(err)
	return c.Status(fe.Code).JSON(fiber.Map{
		"error":   true,
		"message": fe.Message,
	})
}
