// Package appointments persists completed appointment flows and sends the
// confirmation notifications.
package appointments

import (
	"context"
	"errors"
	"fmt"

	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

type Repository interface {
	SaveAppointment(ctx context.Context, appt models.Appointment) error
}

type EmailSender interface {
	SendText(ctx context.Context, from, to, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, senderID, text string) (string, error)
}

type Config struct {
	Persist   bool
	FromEmail string
	ToEmail   string
	SenderID  string
	Phone     string
}

// Sink fans a created appointment out to storage and notifications. Nil
// collaborators are skipped.
type Sink struct {
	config Config
	repo   Repository
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewSink(config Config, repo Repository, email EmailSender, sms SMSSender, log logger.Logger) *Sink {
	return &Sink{
		config: config,
		repo:   repo,
		email:  email,
		sms:    sms,
		logger: logger.ForComponent(log, "appointments"),
	}
}

// AppointmentCreated stores appt and notifies the office. A failed save
// skips the notifications; notification failures are joined.
func (s *Sink) AppointmentCreated(ctx context.Context, appt models.Appointment) error {
	if s.config.Persist && s.repo != nil {
		if err := s.repo.SaveAppointment(ctx, appt); err != nil {
			return err
		}
	}

	var errs []error
	text := Summary(appt)

	if s.email != nil && s.config.ToEmail != "" {
		id, err := s.email.SendText(ctx, s.config.FromEmail, s.config.ToEmail, "موعد جديد: "+appt.Type, text)
		if err != nil {
			errs = append(errs, apperrors.NewNotificationSendFailedError(channelEmail, err))
		} else {
			s.logger.Debug("appointment email sent", map[string]interface{}{"appointmentId": appt.ID, "messageId": id})
		}
	}

	if s.sms != nil && s.config.Phone != "" {
		id, err := s.sms.SendSMS(ctx, s.config.Phone, s.config.SenderID, text)
		if err != nil {
			errs = append(errs, apperrors.NewNotificationSendFailedError(channelSMS, err))
		} else {
			s.logger.Debug("appointment sms sent", map[string]interface{}{"appointmentId": appt.ID, "messageId": id})
		}
	}

	return errors.Join(errs...)
}

// Summary is the notification text of an appointment.
func Summary(appt models.Appointment) string {
	return fmt.Sprintf("موعد %s بتاريخ %s الساعة %s\nالهدف: %s\nالمستخدم: %s",
		appt.Type, appt.Date, appt.Time, appt.Purpose, appt.UserID)
}
