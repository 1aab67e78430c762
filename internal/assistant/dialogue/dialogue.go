// Package dialogue drives the multi-turn appointment flow. Transitions are
// pure: the input session is never modified and the next session is
// returned alongside the outcome.
package dialogue

import (
	"strings"
	"time"

	"realestate-assistant/internal/assistant/extract"
	"realestate-assistant/internal/models"

	"github.com/google/uuid"
)

// Appointment types offered on the first step.
const (
	TypeViewing = "معاينة عقار"
	TypeMeeting = "اجتماع عميل"
)

var AppointmentTypes = []string{TypeViewing, TypeMeeting}

var cancelWords = map[string]bool{
	"إلغاء": true, "الغاء": true, "cancel": true, "stop": true,
}

// OutcomeKind tells the composer what the transition produced.
type OutcomeKind string

const (
	OutcomePrompt    OutcomeKind = "prompt"
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome describes one transition.
type Outcome struct {
	Kind OutcomeKind
	// Step awaiting input after the transition. Empty once the flow ended.
	Step models.Step
	// Reprompt is set when blank input left the step unchanged.
	Reprompt    bool
	Appointment *models.Appointment
}

// Machine holds the non-deterministic inputs of the flow.
type Machine struct {
	newID func() string
	now   func() time.Time
}

func New() *Machine {
	return &Machine{newID: uuid.NewString, now: time.Now}
}

// NewWithClock is used by tests to make ids and timestamps deterministic.
func NewWithClock(newID func() string, now func() time.Time) *Machine {
	return &Machine{newID: newID, now: now}
}

// Start enters the flow at chooseAppointmentType. Slots start empty.
func (m *Machine) Start() (models.Session, Outcome) {
	next := models.Session{}.WithStep(models.StepChooseAppointmentType)
	return next, Outcome{Kind: OutcomePrompt, Step: models.StepChooseAppointmentType}
}

// Advance fills the slot of the current step with text and moves on.
// Calling it on an idle session starts the flow.
func (m *Machine) Advance(s models.Session, text string) (models.Session, Outcome) {
	if !s.InFlow() {
		return m.Start()
	}

	trimmed := strings.TrimSpace(text)
	step := s.CurrentStep()

	if IsCancel(trimmed) {
		return models.Session{}, Outcome{Kind: OutcomeCancelled}
	}
	if trimmed == "" {
		return s, Outcome{Kind: OutcomePrompt, Step: step, Reprompt: true}
	}

	next := s
	next.PendingOffer = nil

	switch step {
	case models.StepChooseAppointmentType:
		next.AppointmentType = models.StringPtr(normalizeType(trimmed))
		next = next.WithStep(models.StepSetDate)

	case models.StepSetDate:
		next.AppointmentDate = slotValue(extract.Date(trimmed), trimmed)
		next = next.WithStep(models.StepSetTime)

	case models.StepSetTime:
		next.AppointmentTime = slotValue(extract.Time(trimmed), trimmed)
		next = next.WithStep(models.StepSetGoal)

	case models.StepSetGoal:
		appt := &models.Appointment{
			ID:        m.newID(),
			Type:      models.StringValue(s.AppointmentType),
			Date:      models.StringValue(s.AppointmentDate),
			Time:      models.StringValue(s.AppointmentTime),
			Purpose:   trimmed,
			CreatedAt: m.now().UTC(),
		}
		return models.Session{}, Outcome{Kind: OutcomeCompleted, Appointment: appt}

	default:
		// Unknown step from a stale client: restart cleanly.
		return m.Start()
	}

	return next, Outcome{Kind: OutcomePrompt, Step: next.CurrentStep()}
}

// Draft exposes the collected slots of an active flow.
func Draft(s models.Session) models.AppointmentDraft {
	return models.AppointmentDraft{
		Step: s.CurrentStep(),
		Type: s.AppointmentType,
		Date: s.AppointmentDate,
		Time: s.AppointmentTime,
	}
}

// IsCancel reports whether text abandons the flow.
func IsCancel(text string) bool {
	return cancelWords[strings.ToLower(strings.TrimSpace(text))]
}

func slotValue(extracted *string, raw string) *string {
	if extracted != nil {
		return models.StringPtr(*extracted)
	}
	return models.StringPtr(raw)
}

// normalizeType maps a numbered choice onto the offered types and keeps any
// other text verbatim.
func normalizeType(text string) string {
	switch extract.NormalizeDigits(text) {
	case "1":
		return TypeViewing
	case "2":
		return TypeMeeting
	}
	return text
}

var defaultMachine = New()

// Advance runs the default machine.
func Advance(s models.Session, text string) (models.Session, Outcome) {
	return defaultMachine.Advance(s, text)
}
