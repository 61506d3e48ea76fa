package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
)

const (
	localsRequestID = "requestid"
	localsMessage   = "response_message"
	localsAuditUser = "audit_user"
)

func corsMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, " + common.RequestIDHeader,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

func requestIDMiddleware() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     common.RequestIDHeader,
		ContextKey: localsRequestID,
	})
}

func recoverMiddleware() fiber.Handler {
	return recover.New()
}

func securityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderStrictTransportSecurity, "max-age=31536000; preload")
		c.Set(fiber.HeaderCacheControl, "max-age=60, must-revalidate")
		return c.Next()
	}
}

// requireJSON rejects mutating requests whose body is not declared as JSON.
func requireJSON() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
			if len(c.Body()) > 0 && !c.Is("json") {
				return fiber.NewError(fiber.StatusUnsupportedMediaType, "Content-Type must be application/json.")
			}
		}
		return c.Next()
	}
}

func requestLogger(l logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		l.Info(c.UserContext(), "request",
			"request_id", requestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

// errorHandler renders errors that escape the handlers (unknown routes,
// middleware rejections, recovered panics) in the response envelope.
func errorHandler(l logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := msgInternal

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		} else {
			l.Error(c.UserContext(), "unhandled error", "request_id", requestID(c), "error", err)
		}

		return c.Status(status).JSON(envelope{Success: false, Message: message})
	}
}
