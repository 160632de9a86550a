package auth

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

// EmailService handles sending emails via SMTP.
type EmailService struct {
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string
	fromEmail    string
	send         func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger       zerolog.Logger
}

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
}

// NewEmailService creates an email service.
func NewEmailService(cfg EmailConfig, logger zerolog.Logger) *EmailService {
	return &EmailService{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUsername: cfg.SMTPUsername,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.FromEmail,
		send:         smtp.SendMail,
		logger:       logger.With().Str("component", "email").Logger(),
	}
}

var twoFactorTemplate = template.Must(template.New("2fa").Parse(`Subject: Your exam sign-in code

Hello,

Your sign-in code is {{.Code}}.

It expires in {{.Minutes}} minutes and can be used once.

If you did not try to sign in, you can ignore this email.
`))

// SendTwoFactorCode mails a one-time sign-in code.
func (e *EmailService) SendTwoFactorCode(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	if e.smtpHost == "" || e.smtpPort == 0 {
		return fmt.Errorf("email service not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := twoFactorTemplate.Execute(&body, map[string]interface{}{
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	}); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)
	var auth smtp.Auth
	if e.smtpUsername != "" {
		auth = smtp.PlainAuth("", e.smtpUsername, e.smtpPassword, e.smtpHost)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\n%s\r\n", e.fromEmail, toEmail, body.String()))

	if err := e.send(addr, auth, e.fromEmail, []string{toEmail}, msg); err != nil {
		e.logger.Error().Err(err).Str("to", toEmail).Msg("failed to send two-factor email")
		return fmt.Errorf("send email: %w", err)
	}

	e.logger.Info().Str("to", toEmail).Msg("two-factor email sent")
	return nil
}
