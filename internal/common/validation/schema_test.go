package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRequestValidator(t *testing.T) {
	v := NewMessageRequestValidator()

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantField string
	}{
		{"minimal", `{"userId":"u1","message":"مرحبا"}`, true, ""},
		{"blank message allowed", `{"userId":"u1","message":""}`, true, ""},
		{"with context and metadata", `{"userId":"u1","message":"hi","context":{"step":null},"metadata":{"channel":"web"}}`, true, ""},
		{"null context", `{"userId":"u1","message":"hi","context":null}`, true, ""},
		{"missing user", `{"message":"hi"}`, false, "userId"},
		{"empty user", `{"userId":"","message":"hi"}`, false, "userId"},
		{"message wrong type", `{"userId":"u1","message":42}`, false, "message"},
		{"context wrong type", `{"userId":"u1","message":"hi","context":"x"}`, false, "context"},
		{"not json", `{"userId":`, false, "(root)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.ValidateJSON([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid, res.Summary())
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors)
				assert.Contains(t, res.Summary(), tt.wantField)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	v := NewMessageRequestValidator()

	res, err := v.ValidateInput(map[string]interface{}{"userId": "agent-7", "message": "عملاء"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Summary())

	res, err = v.ValidateInput(map[string]interface{}{"message": "x"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestNewValidator_BadSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
}
