// Package mail sends transactional email. The only message the system sends
// today is the account verification link.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Send delivers the message via SMTP.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}

	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender logs messages instead of sending them. Used in development and
// tests, and whenever no SMTP host is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.InfoContext(ctx, "mail (not sent, no SMTP configured)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
