// Package httpapi is the JSON facade over the user service, served with
// fiber.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/voucher-auth/internal/logging"
)

// NewApp builds the fiber application with its middleware and routes.
func NewApp(h *Handler, l logging.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "voucher-auth",
		Immutable:             true,
		UnescapePath:          true,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(l),
	})

	app.Use(recoverMiddleware())
	app.Use(requestIDMiddleware())
	app.Use(corsMiddleware())
	app.Use(securityHeaders())
	app.Use(requestLogger(l))
	app.Use(requireJSON())

	registerRoutes(app, h)
	return app
}

// registerRoutes mounts the user API. Static segments are registered before
// parameterised ones so /preferences/:tag is not captured by /:id.
func registerRoutes(app *fiber.App, h *Handler) {
	app.Get("/healthz", h.healthz)

	users := app.Group("/api/users")

	users.Get("/", h.listActive)
	users.Post("/", h.create)
	users.Post("/login", h.audited(activityLogin, "User login", h.login))
	users.Patch("/verify/:code", h.verify)
	users.Get("/preferences/:tag", h.listByPreference)

	users.Patch("/:id/resetPassword", h.resetPassword)
	users.Put("/:id", h.audited(activityUpdateUser, "Update user", h.update))
	users.Get("/:id/active", h.audited(activityCheckActive, "Check active user", h.checkActive))
	users.Patch("/:id/preferences", h.audited(activityUpdatePreferences, "Update user preferences", h.addPreferences))
	users.Delete("/:id/preferences", h.audited(activityDeletePreferences, "Delete user preferences", h.deletePreferences))
}

type Server struct {
	address         string
	app             *fiber.App
	shutdownTimeout time.Duration
	logger          logging.Logger
}

func NewServer(address string, h *Handler, shutdownTimeout time.Duration, l logging.Logger) *Server {
	return &Server{
		address:         address,
		app:             NewApp(h, l),
		shutdownTimeout: shutdownTimeout,
		logger:          l.With("module", "http_server"),
	}
}

// Run serves until ctx is done, then drains in-flight requests for at most
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.app.Listen(s.address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	return s.app.ShutdownWithContext(shutdownCtx)
}
