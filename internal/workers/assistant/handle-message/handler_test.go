package handlemessage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"realestate-assistant/internal/assistant/compose"
	"realestate-assistant/internal/assistant/dispatch"
	"realestate-assistant/internal/assistant/pulse"
	"realestate-assistant/internal/assistant/router"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func newTestHandler(t *testing.T) *Handler {
	log := logger.NewTestLogger(t)
	d := dispatch.NewDispatcher(&dispatch.Config{Timeout: time.Second, MaxItems: 5}, dispatch.Collaborators{}, log)
	r := router.New(router.Config{MaxListItems: 5}, d, pulse.NewTracker(pulse.NewMemoryStore(), log), log)
	t.Cleanup(r.Wait)
	return NewHandler(&Config{Timeout: 5 * time.Second}, r, log)
}

// slowTurns answers only after the context is done.
type slowTurns struct{}

func (slowTurns) HandleMessage(ctx context.Context, _ models.Utterance, s models.Session) router.Turn {
	<-ctx.Done()
	return router.Turn{Response: compose.SystemError(), Session: s}
}

// ==========================
// Execute Tests
// ==========================

func TestExecute(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		wantIntent    models.Intent
		wantAwaiting  bool
		wantStep      models.Step
		wantErrorCode apperrors.ErrorCode
	}{
		{
			name:       "greeting",
			input:      &Input{UserID: "agent-1", Message: "مرحبا"},
			wantIntent: models.IntentGreeting,
		},
		{
			name:         "appointment flow starts",
			input:        &Input{UserID: "agent-1", Message: "احجز موعد"},
			wantIntent:   models.IntentManageAppointments,
			wantAwaiting: true,
			wantStep:     models.StepChooseAppointmentType,
		},
		{
			name: "session from the process advances the flow",
			input: &Input{
				UserID:  "agent-1",
				Message: "معاينة عقار",
				Context: &models.Session{Step: func() *models.Step { s := models.StepChooseAppointmentType; return &s }()},
			},
			wantIntent:   models.IntentManageAppointments,
			wantAwaiting: true,
			wantStep:     models.StepSetDate,
		},
		{
			name:          "blank user id",
			input:         &Input{UserID: "   ", Message: "مرحبا"},
			wantErrorCode: apperrors.ErrCodeInvalidMessageRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t)
			out, err := h.execute(context.Background(), tt.input)

			if tt.wantErrorCode != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMissingUserID)
				assert.Equal(t, tt.wantErrorCode, apperrors.AsStandardError(err).Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, out.AssistantIntent)
			assert.Equal(t, tt.wantIntent, out.Response.Intent)
			assert.Equal(t, tt.wantAwaiting, out.AwaitingReply)
			assert.Equal(t, tt.wantStep, out.Session.CurrentStep())
			assert.Equal(t, int64(1), out.Pulse.InteractionCount)
		})
	}
}

func TestExecute_TimeoutIsRetryable(t *testing.T) {
	h := NewHandler(&Config{Timeout: time.Second}, slowTurns{}, logger.NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.execute(ctx, &Input{UserID: "agent-1", Message: "مرحبا"})
	require.Error(t, err)
	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeTurnTimeout, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_OutputVariables(t *testing.T) {
	h := newTestHandler(t)
	out, err := h.execute(context.Background(), &Input{UserID: "agent-1", Message: "مرحبا"})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &vars))
	assert.Equal(t, "greeting", vars["assistantIntent"])
	assert.Equal(t, false, vars["awaitingReply"])
	assert.Contains(t, vars, "response")
	assert.Contains(t, vars, "session")
	assert.Contains(t, vars, "pulse")
}

// ==========================
// Decode Tests
// ==========================

func TestDecode(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name      string
		variables string
		wantCode  apperrors.ErrorCode
	}{
		{"valid with extra process variables", `{"userId":"u1","message":"مرحبا","processStage":"intake"}`, ""},
		{"valid with session", `{"userId":"u1","message":"10:00","context":{"step":"setTime"}}`, ""},
		{"missing message", `{"userId":"u1"}`, apperrors.ErrCodeInvalidMessageRequest},
		{"empty user id", `{"userId":"","message":"hi"}`, apperrors.ErrCodeInvalidMessageRequest},
		{"not json", `{userId`, apperrors.ErrCodeInvalidMessageRequest},
		{"context of wrong type", `{"userId":"u1","message":"hi","context":"setTime"}`, apperrors.ErrCodeInvalidMessageRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.decode(tt.variables)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.AsStandardError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", input.UserID)
		})
	}
}

func TestDecode_Session(t *testing.T) {
	h := newTestHandler(t)
	input, err := h.decode(`{"userId":"u1","message":"10:00","context":{"step":"setTime","appointmentDate":"20/5/2025"}}`)
	require.NoError(t, err)
	require.NotNil(t, input.Context)
	assert.Equal(t, models.StepSetTime, input.Context.CurrentStep())
	assert.Equal(t, "20/5/2025", models.StringValue(input.Context.AppointmentDate))
}

// ==========================
// Benchmark Tests
// ==========================

func BenchmarkExecute(b *testing.B) {
	log := logger.NewNoOpLogger()
	d := dispatch.NewDispatcher(nil, dispatch.Collaborators{}, log)
	r := router.New(router.Config{}, d, pulse.NewTracker(pulse.NewMemoryStore(), log), log)
	h := NewHandler(&Config{Timeout: time.Second}, r, log)
	input := &Input{UserID: "bench", Message: "مرحبا"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.execute(context.Background(), input)
	}
	b.StopTimer()
	r.Wait()
}

// ==========================
// Activity Tests
// ==========================

func TestActivity(t *testing.T) {
	a := Activity(&Config{Timeout: 20 * time.Second}, "1.2.0")
	assert.Equal(t, TaskType, a.TaskType)
	assert.Equal(t, "20s", a.Timeout)
	assert.Equal(t, "1.2.0", a.Version)
	assert.Equal(t, []interface{}{"userId", "message"}, a.InputSchema["required"])
	assert.Contains(t, a.ErrorCodes, "TURN_TIMEOUT")
	assert.Equal(t, 2, a.Retries)
}
