// Package email sends transactional mail (verification and password reset)
// through SendGrid.
package email

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers transactional email. Implementations must be safe for
// concurrent use.
type Sender interface {
	SendVerification(toEmail, username, token string) error
	SendPasswordReset(toEmail, username, token string) error
}

type sendgridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	baseURL string
	logger  zerolog.Logger
}

type noopSender struct {
	logger zerolog.Logger
}

// New returns a SendGrid-backed Sender, or a logging no-op when apiKey is
// empty so local development works without credentials.
func New(apiKey, fromEmail, fromName, baseURL string, logger zerolog.Logger) Sender {
	log := logger.With().Str("service", "email").Logger()
	if apiKey == "" {
		log.Warn().Msg("SENDGRID_API_KEY not set, outgoing email disabled")
		return &noopSender{logger: log}
	}
	return &sendgridSender{
		client:  sendgrid.NewSendClient(apiKey),
		from:    mail.NewEmail(fromName, fromEmail),
		baseURL: baseURL,
		logger:  log,
	}
}

func (s *sendgridSender) SendVerification(toEmail, username, token string) error {
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hi %s,\n\nConfirm your email address to activate your account:\n\n%s/verify-email?token=%s\n\nIf you did not sign up, you can ignore this message.\n",
		username, s.baseURL, token,
	)
	return s.send(toEmail, username, subject, body)
}

func (s *sendgridSender) SendPasswordReset(toEmail, username, token string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Hi %s,\n\nUse the link below to choose a new password. It expires in one hour:\n\n%s/reset-password?token=%s\n\nIf you did not request a reset, you can ignore this message.\n",
		username, s.baseURL, token,
	)
	return s.send(toEmail, username, subject, body)
}

func (s *sendgridSender) send(toEmail, toName, subject, body string) error {
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(s.from, subject, to, body, body)

	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status %d", resp.StatusCode)
	}
	s.logger.Info().Str("to", toEmail).Str("subject", subject).Msg("email sent")
	return nil
}

func (s *noopSender) SendVerification(toEmail, _, token string) error {
	s.logger.Info().Str("to", toEmail).Str("token", token).Msg("skipping verification email")
	return nil
}

func (s *noopSender) SendPasswordReset(toEmail, _, token string) error {
	s.logger.Info().Str("to", toEmail).Str("token", token).Msg("skipping password reset email")
	return nil
}
