package api

import (
	"context"
	"encoding/json"
	"strings"

	"realestate-assistant/internal/common/database"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/models"

	"github.com/gofiber/fiber/v2"
)

// MessageRequest is the body of POST /api/assistant/message.
type MessageRequest struct {
	UserID   string                 `json:"userId"`
	Message  string                 `json:"message"`
	Context  *models.Session        `json:"context"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Envelope wraps every API answer.
type Envelope struct {
	Success bool                     `json:"success"`
	Result  interface{}              `json:"result,omitempty"`
	Error   *apperrors.StandardError `json:"error,omitempty"`
}

func (s *Server) handleMessage(c *fiber.Ctx) error {
	result, err := s.validator.ValidateJSON(c.Body())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return apperrors.NewInvalidMessageRequestError(result.Summary())
	}

	var req MessageRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperrors.NewInvalidMessageRequestError(err.Error())
	}
	if strings.TrimSpace(req.UserID) == "" {
		return apperrors.NewInvalidMessageRequestError("userId is required")
	}

	session := models.Session{}
	if req.Context != nil {
		session = *req.Context
	}

	ctx := c.UserContext()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	turn := s.turns.HandleMessage(ctx, models.Utterance{
		UserID:   req.UserID,
		Text:     req.Message,
		Metadata: req.Metadata,
	}, session)

	if turn.Response.Intent == models.IntentSystemError && ctx.Err() != nil {
		return apperrors.NewTurnTimeoutError(req.UserID).Wrap(ctx.Err())
	}

	return c.JSON(Envelope{Success: true, Result: turn})
}

func (s *Server) health(c *fiber.Ctx) error {
	failures := database.CheckAll(c.UserContext(), healthTimeout, s.checks...)
	if len(failures) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"failures": failures,
		})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (s *Server) readiness(c *fiber.Ctx) error {
	if !s.ready.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
