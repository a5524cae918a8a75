// Package messaging sends customer emails over SMTP and text messages through an HTTP
// SMS gateway.
package messaging

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
)

// Attachment is a file sent with an email
type Attachment struct {
	FileName string
	Content  []byte
}

// Email is one outgoing message
type Email struct {
	To          []string     `json:"to" validate:"required,min=1,dive,email"`
	CC          []string     `json:"cc,omitempty" validate:"omitempty,dive,email"`
	Subject     string       `json:"subject" validate:"required"`
	Body        string       `json:"body" validate:"required"`
	HTML        bool         `json:"html,omitempty"`
	TemplateID  string       `json:"templateId,omitempty"`
	Attachments []Attachment `json:"-"`
}

// EmailSender delivers emails
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) error
}

// SMTPConfig configures the SMTP sender
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	Timeout   time.Duration
}

// SMTPSender implements EmailSender using go-mail
type SMTPSender struct {
	cfg    SMTPConfig
	logger zerolog.Logger
}

// NewSMTPSender creates a sender for the given server
func NewSMTPSender(cfg SMTPConfig, logger zerolog.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPSender{
		cfg:    cfg,
		logger: logger.With().Str("component", "smtp").Logger(),
	}
}

func (s *SMTPSender) SendEmail(ctx context.Context, email Email) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid recipient", err)
	}
	if len(email.CC) > 0 {
		if err := msg.Cc(email.CC...); err != nil {
			return apperr.Wrap(apperr.KindValidation, "invalid cc recipient", err)
		}
	}
	msg.Subject(email.Subject)
	contentType := gomail.TypeTextPlain
	if email.HTML {
		contentType = gomail.TypeTextHTML
	}
	msg.SetBodyString(contentType, email.Body)
	if email.TemplateID != "" {
		msg.SetGenHeader("X-Template-ID", email.TemplateID)
	}
	for _, att := range email.Attachments {
		if err := msg.AttachReader(att.FileName, bytes.NewReader(att.Content)); err != nil {
			return fmt.Errorf("smtp attach %s: %w", att.FileName, err)
		}
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperr.Upstream("email could not be sent", fmt.Errorf("smtp send: %w", err))
	}

	s.logger.Info().Str("to", strings.Join(email.To, ",")).Str("subject", email.Subject).Msg("Email sent")
	return nil
}

// LogEmailSender logs emails instead of sending them, used when SMTP is not configured
type LogEmailSender struct {
	logger zerolog.Logger
}

func NewLogEmailSender(logger zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.With().Str("component", "email").Logger()}
}

func (s *LogEmailSender) SendEmail(_ context.Context, email Email) error {
	s.logger.Info().
		Str("to", strings.Join(email.To, ",")).
		Str("subject", email.Subject).
		Int("body_len", len(email.Body)).
		Msg("Email not sent (SMTP disabled)")
	return nil
}
