package handlemessage

import (
	"realestate-assistant/internal/assistant/router"
	"realestate-assistant/internal/models"
)

type Input struct {
	UserID   string                 `json:"userId"`
	Message  string                 `json:"message"`
	Context  *models.Session        `json:"context"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Output is merged into the process variables. AssistantIntent and
// AwaitingReply are flattened so gateways can branch on them.
type Output struct {
	Response        models.NormalizedResponse `json:"response"`
	Session         models.Session            `json:"session"`
	Pulse           router.PulseSnapshot      `json:"pulse"`
	AssistantIntent models.Intent             `json:"assistantIntent"`
	AwaitingReply   bool                      `json:"awaitingReply"`
}
