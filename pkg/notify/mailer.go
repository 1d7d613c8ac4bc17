package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer sends plain notification e-mails.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer returns an SMTP mailer, or a mailer that only logs when no host is configured.
func NewMailer(cfg Config, logger zerolog.Logger) Mailer {
	if cfg.Host == "" {
		return &logMailer{logger: logger}
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type logMailer struct {
	logger zerolog.Logger
}

func (m *logMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info().Str("to", to).Str("subject", subject).Msg("smtp disabled, email not sent")
	return nil
}
