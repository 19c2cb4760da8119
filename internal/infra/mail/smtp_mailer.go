// Package mail delivers rendered messages over SMTP.
package mail

import (
	"context"
	"log/slog"

	"campuseval/config"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"

	"gopkg.in/gomail.v2"
)

// smtpMailer sends through one SMTP relay, dialing per message.
type smtpMailer struct {
	from   string
	dialer *gomail.Dialer
	logger *slog.Logger
}

func NewSMTPMailer(cfg *config.SMTPConfig, logger *slog.Logger) service.Mailer {
	return &smtpMailer{
		from:   cfg.FromAddress,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (m *smtpMailer) Send(ctx context.Context, email *service.OutboundEmail) error {
	if email.To == "" {
		return errors.New("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	if err := m.dialer.DialAndSend(m.buildMessage(email)); err != nil {
		return errors.Wrap(err, "smtp send")
	}

	m.logger.DebugContext(ctx, "Email sent", slog.String("subject", email.Subject))

	return nil
}

// Ping opens and closes one authenticated SMTP session.
func (m *smtpMailer) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	sender, err := m.dialer.Dial()
	if err != nil {
		return errors.Wrapf(err, "dial smtp %s:%d", m.dialer.Host, m.dialer.Port)
	}

	return errors.WithStack(sender.Close())
}

func (m *smtpMailer) buildMessage(email *service.OutboundEmail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)

	switch {
	case email.HTMLBody != "" && email.TextBody != "":
		msg.SetBody("text/plain", email.TextBody)
		msg.AddAlternative("text/html", email.HTMLBody)
	case email.HTMLBody != "":
		msg.SetBody("text/html", email.HTMLBody)
	default:
		msg.SetBody("text/plain", email.TextBody)
	}

	return msg
}
