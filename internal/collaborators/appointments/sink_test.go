package appointments

import (
	"context"
	"errors"
	"testing"

	"realestate-assistant/internal/common/aws"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	saved []models.Appointment
	err   error
}

func (f *fakeRepo) SaveAppointment(_ context.Context, appt models.Appointment) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, appt)
	return nil
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("mail-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sms-1")}, nil
}

var testAppointment = models.Appointment{
	ID: "a1", UserID: "agent-1", Type: "معاينة عقار", Date: "20/5/2025", Time: "10:00", Purpose: "توقيع عقد",
}

var testConfig = Config{
	Persist:   true,
	FromEmail: "assistant@example.com",
	ToEmail:   "office@example.com",
	SenderID:  "Aqar",
	Phone:     "+966501234567",
}

func TestAppointmentCreated_PersistsAndNotifies(t *testing.T) {
	repo := &fakeRepo{}
	mail := &fakeSES{}
	sms := &fakeSNS{}
	sink := NewSink(testConfig, repo, aws.NewSESClientWithAPI(mail), aws.NewSNSClientWithAPI(sms), logger.NewTestLogger(t))

	require.NoError(t, sink.AppointmentCreated(context.Background(), testAppointment))

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "a1", repo.saved[0].ID)

	require.NotNil(t, mail.input)
	assert.Equal(t, []string{"office@example.com"}, mail.input.Destination.ToAddresses)
	assert.Contains(t, awssdk.ToString(mail.input.Message.Body.Text.Data), "توقيع عقد")

	require.NotNil(t, sms.input)
	assert.Equal(t, "+966501234567", awssdk.ToString(sms.input.PhoneNumber))
}

func TestAppointmentCreated_SaveFailureSkipsNotifications(t *testing.T) {
	repo := &fakeRepo{err: errors.New("insert failed")}
	mail := &fakeSES{}
	sink := NewSink(testConfig, repo, aws.NewSESClientWithAPI(mail), nil, logger.NewTestLogger(t))

	err := sink.AppointmentCreated(context.Background(), testAppointment)
	assert.EqualError(t, err, "insert failed")
	assert.Nil(t, mail.input)
}

func TestAppointmentCreated_NotificationFailuresAreJoined(t *testing.T) {
	cause := errors.New("throttled")
	sink := NewSink(testConfig, nil,
		aws.NewSESClientWithAPI(&fakeSES{err: cause}),
		aws.NewSNSClientWithAPI(&fakeSNS{err: cause}),
		logger.NewTestLogger(t))

	err := sink.AppointmentCreated(context.Background(), testAppointment)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
}

func TestAppointmentCreated_PersistDisabled(t *testing.T) {
	repo := &fakeRepo{}
	cfg := testConfig
	cfg.Persist = false
	cfg.ToEmail = ""

	require.NoError(t, NewSink(cfg, repo, nil, nil, logger.NewNoOpLogger()).AppointmentCreated(context.Background(), testAppointment))
	assert.Empty(t, repo.saved)
}

func TestSummary(t *testing.T) {
	s := Summary(testAppointment)
	assert.Contains(t, s, "معاينة عقار")
	assert.Contains(t, s, "20/5/2025")
	assert.Contains(t, s, "10:00")
}
