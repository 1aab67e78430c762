package dialogue

import (
	"testing"
	"time"

	"realestate-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedMachine() *Machine {
	return NewWithClock(
		func() string { return "appt-1" },
		func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) },
	)
}

func TestAdvance_FullFlow(t *testing.T) {
	m := fixedMachine()

	s, out := m.Start()
	assert.Equal(t, OutcomePrompt, out.Kind)
	assert.Equal(t, models.StepChooseAppointmentType, out.Step)
	assert.Nil(t, s.AppointmentType)

	s, out = m.Advance(s, "معاينة عقار")
	assert.Equal(t, models.StepSetDate, out.Step)
	assert.Equal(t, "معاينة عقار", models.StringValue(s.AppointmentType))

	s, out = m.Advance(s, "20/5/2025")
	assert.Equal(t, models.StepSetTime, out.Step)
	assert.Equal(t, "20/5/2025", models.StringValue(s.AppointmentDate))

	s, out = m.Advance(s, "10:00")
	assert.Equal(t, models.StepSetGoal, out.Step)
	assert.Equal(t, "10:00", models.StringValue(s.AppointmentTime))

	s, out = m.Advance(s, "توقيع عقد")
	assert.Equal(t, OutcomeCompleted, out.Kind)
	assert.Empty(t, out.Step)
	require.NotNil(t, out.Appointment)
	assert.Equal(t, models.Appointment{
		ID:        "appt-1",
		Type:      "معاينة عقار",
		Date:      "20/5/2025",
		Time:      "10:00",
		Purpose:   "توقيع عقد",
		CreatedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}, *out.Appointment)

	assert.Equal(t, models.Session{}, s, "completion clears every slot")
	assert.False(t, s.InFlow())
}

func TestAdvance_DoesNotMutateInput(t *testing.T) {
	m := fixedMachine()
	in := models.Session{}.WithStep(models.StepSetDate)
	in.AppointmentType = models.StringPtr(TypeMeeting)
	snapshot := in
	typeValue := *in.AppointmentType

	next, _ := m.Advance(in, "بكرة 1/6/2025")

	assert.Equal(t, snapshot, in)
	assert.Equal(t, typeValue, *in.AppointmentType)
	assert.Equal(t, models.StepSetDate, in.CurrentStep())
	assert.Nil(t, in.AppointmentDate)
	assert.Equal(t, "1/6/2025", models.StringValue(next.AppointmentDate))
}

func TestAdvance_LenientSlots(t *testing.T) {
	m := fixedMachine()

	s := models.Session{}.WithStep(models.StepSetDate)
	s, _ = m.Advance(s, "  بعد بكرة  ")
	assert.Equal(t, "بعد بكرة", models.StringValue(s.AppointmentDate), "unparseable dates are kept verbatim")

	s, _ = m.Advance(s, "العصر الساعة 4:30 م")
	assert.Equal(t, "4:30 م", models.StringValue(s.AppointmentTime))

	s, _ = m.Advance(s, "العصر")
	assert.False(t, s.InFlow())
}

func TestAdvance_BlankReprompts(t *testing.T) {
	m := fixedMachine()
	s := models.Session{}.WithStep(models.StepSetTime)

	next, out := m.Advance(s, "   ")
	assert.Equal(t, OutcomePrompt, out.Kind)
	assert.True(t, out.Reprompt)
	assert.Equal(t, models.StepSetTime, out.Step)
	assert.Equal(t, s, next)
}

func TestAdvance_Cancel(t *testing.T) {
	m := fixedMachine()
	for _, word := range []string{"الغاء", "إلغاء", "Cancel"} {
		t.Run(word, func(t *testing.T) {
			s := models.Session{}.WithStep(models.StepSetGoal)
			s.AppointmentType = models.StringPtr(TypeViewing)

			next, out := m.Advance(s, word)
			assert.Equal(t, OutcomeCancelled, out.Kind)
			assert.Equal(t, models.Session{}, next)
		})
	}
}

func TestAdvance_IdleSessionStartsFlow(t *testing.T) {
	next, out := fixedMachine().Advance(models.Session{}, "أي شي")
	assert.Equal(t, models.StepChooseAppointmentType, out.Step)
	assert.Equal(t, models.StepChooseAppointmentType, next.CurrentStep())
}

func TestAdvance_NumberedType(t *testing.T) {
	m := fixedMachine()
	s := models.Session{}.WithStep(models.StepChooseAppointmentType)

	next, _ := m.Advance(s, "٢")
	assert.Equal(t, TypeMeeting, models.StringValue(next.AppointmentType))

	next, _ = m.Advance(s, "1")
	assert.Equal(t, TypeViewing, models.StringValue(next.AppointmentType))
}

func TestAdvance_UnknownStepRestarts(t *testing.T) {
	s := models.Session{}.WithStep(models.Step("legacyStep"))
	next, out := fixedMachine().Advance(s, "x")
	assert.Equal(t, models.StepChooseAppointmentType, out.Step)
	assert.Equal(t, models.StepChooseAppointmentType, next.CurrentStep())
}

func TestAdvance_DefaultMachineGeneratesIDs(t *testing.T) {
	s := models.Session{}.WithStep(models.StepSetGoal)
	_, out := Advance(s, "تسليم مفاتيح")
	require.NotNil(t, out.Appointment)
	assert.Len(t, out.Appointment.ID, 36)
}

func TestDraft(t *testing.T) {
	s := models.Session{}.WithStep(models.StepSetTime)
	s.AppointmentType = models.StringPtr(TypeViewing)
	s.AppointmentDate = models.StringPtr("20/5/2025")

	d := Draft(s)
	assert.Equal(t, models.StepSetTime, d.Step)
	assert.Equal(t, TypeViewing, *d.Type)
	assert.Nil(t, d.Time)
	assert.Equal(t, models.EntityAppointment, d.Entity())
}
