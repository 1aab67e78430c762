package handlemessage

import (
	"encoding/json"

	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/validation"
	"realestate-assistant/pkg/registry"
)

var outputSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"response":        map[string]interface{}{"type": "object"},
		"session":         map[string]interface{}{"type": "object"},
		"pulse":           map[string]interface{}{"type": "object"},
		"assistantIntent": map[string]interface{}{"type": "string"},
		"awaitingReply":   map[string]interface{}{"type": "boolean"},
	},
}

// Activity describes the worker for the activity registry.
func Activity(config *Config, version string) registry.Activity {
	var input map[string]interface{}
	_ = json.Unmarshal([]byte(validation.MessageRequestSchema), &input)

	return registry.Activity{
		TaskType:     TaskType,
		DisplayName:  "Handle assistant message",
		Description:  "Runs one assistant turn and returns the reply with the updated session",
		Category:     "assistant",
		Version:      version,
		Status:       "implemented",
		InputSchema:  input,
		OutputSchema: outputSchema,
		ErrorCodes: []string{
			string(apperrors.ErrCodeInvalidMessageRequest),
			string(apperrors.ErrCodeInvalidJobVariables),
			string(apperrors.ErrCodeTurnTimeout),
			string(apperrors.ErrCodeInternalError),
		},
		Timeout: config.Timeout.String(),
		Retries: apperrors.GetRetryCount(apperrors.ErrCodeTurnTimeout),
		Tags:    []string{"assistant", "conversation"},
	}
}
