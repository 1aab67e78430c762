package handlemessage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"realestate-assistant/internal/assistant/router"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/common/metrics"
	"realestate-assistant/internal/common/validation"
	"realestate-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assistant-handle-message"
)

var (
	ErrMissingUserID = errors.New("INVALID_MESSAGE_REQUEST")
)

// TurnHandler runs one assistant turn.
type TurnHandler interface {
	HandleMessage(ctx context.Context, u models.Utterance, s models.Session) router.Turn
}

type Handler struct {
	config       *Config
	turns        TurnHandler
	validator    *validation.Validator
	errorHandler *apperrors.JobErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, turns TurnHandler, log logger.Logger) *Handler {
	log = logger.ForComponent(log, "worker").With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		turns:        turns,
		validator:    validation.NewMessageRequestValidator(),
		errorHandler: apperrors.NewJobErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.decode(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) decode(variables string) (*Input, error) {
	result, err := h.validator.ValidateJSON([]byte(variables))
	if err != nil {
		return nil, apperrors.NewInvalidJobVariablesError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidMessageRequestError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidJobVariablesError(err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperrors.NewInvalidMessageRequestError("userId is required").Wrap(ErrMissingUserID)
	}

	session := models.Session{}
	if input.Context != nil {
		session = *input.Context
	}

	turn := h.turns.HandleMessage(ctx, models.Utterance{
		UserID:   input.UserID,
		Text:     input.Message,
		Metadata: input.Metadata,
	}, session)

	// A turn that ran out of job time is retried instead of answering
	// with a system error.
	if turn.Response.Intent == models.IntentSystemError && ctx.Err() != nil {
		return nil, apperrors.NewTurnTimeoutError(input.UserID).Wrap(ctx.Err())
	}

	output := &Output{
		Response:        turn.Response,
		Session:         turn.Session,
		Pulse:           turn.Pulse,
		AssistantIntent: turn.Response.Intent,
		AwaitingReply:   turn.Response.FollowUp != nil && turn.Response.FollowUp.AwaitingReply,
	}

	h.logger.Info("turn handled", map[string]interface{}{
		"userId":        input.UserID,
		"intent":        output.AssistantIntent,
		"confidence":    turn.Response.Confidence,
		"awaitingReply": output.AwaitingReply,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		h.failJob(ctx, client, job, apperrors.NewInternalError(err))
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
