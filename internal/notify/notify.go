// Package notify sends outbound email and SMS. Both channels are best-effort
// from the caller's point of view: workflows run them after commit and a
// delivery failure never rolls anything back.
package notify

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks EmailSender,SMSSender

import (
	"context"
	"log/slog"
)

// Email is a single outbound message.
type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// SMS is a single outbound text, fanned out to every recipient number.
type SMS struct {
	Recipients []string
	Body       string
	Sender     string
}

type EmailSender interface {
	SendEmail(ctx context.Context, email Email) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, sms SMS) error
}

// LogEmailSender writes messages to the log instead of delivering them.
// Default wiring for dev environments without an email provider.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s LogEmailSender) SendEmail(ctx context.Context, email Email) error {
	s.Logger.Info("email (log only)",
		"to", email.To,
		"to_name", email.ToName,
		"subject", email.Subject,
		"body_len", len(email.Body),
	)
	return nil
}

// LogSMSSender writes messages to the log instead of delivering them.
type LogSMSSender struct {
	Logger *slog.Logger
}

func (s LogSMSSender) SendSMS(ctx context.Context, sms SMS) error {
	s.Logger.Info("sms (log only)",
		"recipients", len(sms.Recipients),
		"sender", sms.Sender,
		"body_len", len(sms.Body),
	)
	return nil
}
