package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
)

const (
	msgInternal    = "Internal server error."
	msgInvalidBody = "Invalid request body."
	msgNoUsers     = "User not found."
)

// envelope is the shape of every response body.
type envelope struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Data        any    `json:"data,omitempty"`
	TotalRecord *int64 `json:"totalRecord,omitempty"`
}

// statusFor maps an error kind to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorBadRequest),
		errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrEmptyPreferences),
		errors.Is(err, common.ErrNoMatchingPreference):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// messageFor returns the client-facing text of err. Errors without one get
// a generic message so internals never leak.
func messageFor(err error) string {
	var ce *common.Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return msgInternal
}

// resultError turns a failed validation into an error the facade can map.
func resultError(res models.ValidationResult) error {
	return common.NewError(res.Status, res.Message)
}

func respond(c *fiber.Ctx, status int, message string, data any, total *int64) error {
	c.Locals(localsMessage, message)
	return c.Status(status).JSON(envelope{
		Success:     status < fiber.StatusBadRequest,
		Message:     message,
		Data:        data,
		TotalRecord: total,
	})
}

func ok(c *fiber.Ctx, message string, data any) error {
	return respond(c, fiber.StatusOK, message, data, nil)
}

func okList(c *fiber.Ctx, message string, data any, total int64) error {
	return respond(c, fiber.StatusOK, message, data, &total)
}

func fail(c *fiber.Ctx, err error) error {
	return respond(c, statusFor(err), messageFor(err), nil, nil)
}

func badRequest(c *fiber.Ctx, message string) error {
	return respond(c, fiber.StatusBadRequest, message, nil, nil)
}
