// Package api exposes the assistant over HTTP.
package api

import (
	"context"
	"sync/atomic"
	"time"

	"realestate-assistant/internal/assistant/router"
	"realestate-assistant/internal/common/config"
	"realestate-assistant/internal/common/database"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/common/validation"
	"realestate-assistant/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// TurnHandler runs one assistant turn.
type TurnHandler interface {
	HandleMessage(ctx context.Context, u models.Utterance, s models.Session) router.Turn
}

type Server struct {
	app            *fiber.App
	turns          TurnHandler
	validator      *validation.Validator
	checks         []database.Pinger
	requestTimeout time.Duration
	ready          atomic.Bool
	logger         logger.Logger
}

// NewServer builds the fiber app and registers the routes. checks are the
// backing services reported by /health.
func NewServer(cfg config.ServerConfig, turns TurnHandler, log logger.Logger, checks ...database.Pinger) *Server {
	s := &Server{
		turns:          turns,
		validator:      validation.NewMessageRequestValidator(),
		checks:         checks,
		requestTimeout: config.GetDuration(cfg.RequestTimeout),
		logger:         logger.ForComponent(log, "api"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "realestate-assistant",
		BodyLimit:             cfg.MaxBodyBytes,
		ReadTimeout:           config.GetDuration(cfg.ReadTimeout),
		WriteTimeout:          config.GetDuration(cfg.WriteTimeout),
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.logRequests)

	s.app.Get("/health", s.health)
	s.app.Get("/ready", s.readiness)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.app.Group("/api/assistant")
	v1.Post("/message", s.handleMessage)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetReady flips the /ready probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request", map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
		"requestId":  c.GetRespHeader(fiber.HeaderXRequestID),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return err
}

// handleError renders errors escaping the handlers, including fiber's own
// (unknown route, oversized body), in the response envelope.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	stdErr := apperrors.AsStandardError(err)

	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
		switch {
		case status == fiber.StatusNotFound:
			stdErr = apperrors.NewRouteNotFoundError(c.Method() + " " + c.Path())
		case status < fiber.StatusInternalServerError:
			stdErr = apperrors.NewInvalidMessageRequestError(fe.Message)
		}
	} else {
		status = apperrors.HTTPStatus(stdErr.Code)
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":      c.Path(),
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
	}
	return c.Status(status).JSON(Envelope{Success: false, Error: stdErr})
}
