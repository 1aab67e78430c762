package models

// Step is the active position of a multi-turn flow.
type Step string

const (
	StepChooseAppointmentType Step = "chooseAppointmentType"
	StepSetDate               Step = "setDate"
	StepSetTime               Step = "setTime"
	StepSetGoal               Step = "setGoal"
)

// Utterance is the raw input of a single turn.
type Utterance struct {
	UserID   string                 `json:"userId"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PendingOffer records a yes/no offer made to the user on the previous turn.
type PendingOffer struct {
	Intent Intent `json:"intent"`
	Query  string `json:"query,omitempty"`
}

// Session is the caller-owned conversation state carried between turns.
// A nil Step means no flow is active.
type Session struct {
	Step            *Step         `json:"step"`
	AppointmentType *string       `json:"appointmentType"`
	AppointmentDate *string       `json:"appointmentDate"`
	AppointmentTime *string       `json:"appointmentTime"`
	AppointmentGoal *string       `json:"appointmentGoal"`
	PendingOffer    *PendingOffer `json:"pendingOffer,omitempty"`
}

// InFlow reports whether a multi-turn flow is active.
func (s Session) InFlow() bool {
	return s.Step != nil
}

// CurrentStep returns the active step or "" when idle.
func (s Session) CurrentStep() Step {
	if s.Step == nil {
		return ""
	}
	return *s.Step
}

// WithStep returns a copy of s positioned at step.
func (s Session) WithStep(step Step) Session {
	s.Step = &step
	return s
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
