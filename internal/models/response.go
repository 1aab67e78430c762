package models

import "math"

// SuggestedAction is a follow-up the UI can offer next to a reply.
type SuggestedAction struct {
	Name   string                 `json:"name"`
	Label  string                 `json:"label"`
	Params map[string]interface{} `json:"params"`
}

// FollowUp describes what the conversation expects after this reply.
type FollowUp struct {
	Confirmed     bool  `json:"confirmed"`
	AwaitingReply bool  `json:"awaitingReply"`
	Step          *Step `json:"step,omitempty"`
}

// NormalizedResponse is the single contract every turn produces.
type NormalizedResponse struct {
	Intent     Intent            `json:"intent"`
	Scope      string            `json:"scope"`
	Confidence float64           `json:"confidence"`
	Data       Payload           `json:"data"`
	Action     Action            `json:"action"`
	Entity     EntityKind        `json:"entity"`
	Reply      string            `json:"reply"`
	ReplyPlain string            `json:"replyPlain"`
	ReplyRich  *string           `json:"replyRich"`
	Actions    []SuggestedAction `json:"actions"`
	FollowUp   *FollowUp         `json:"followUp,omitempty"`
}

// Normalize enforces the response invariants in place: intent, action and
// entity are never empty, confidence stays in [0,1], scope matches the
// entity, actions is never nil and reply texts fall back to each other.
func (r *NormalizedResponse) Normalize() {
	if r.Intent == "" {
		r.Intent = IntentGeneralInquiry
	}
	if r.Action == "" {
		r.Action = ActionHelp
	}
	if r.Entity == "" {
		r.Entity = EntityUnknown
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	r.Scope = r.Entity.Scope()
	if r.Actions == nil {
		r.Actions = []SuggestedAction{}
	}
	for i := range r.Actions {
		if r.Actions[i].Params == nil {
			r.Actions[i].Params = map[string]interface{}{}
		}
	}
	if r.ReplyPlain == "" {
		r.ReplyPlain = r.Reply
	}
	if r.Reply == "" {
		r.Reply = r.ReplyPlain
	}
}
