package mail

import (
	"context"
	"log/slog"

	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
)

// consoleMailer writes messages to the log instead of sending them. It is
// selected when no SMTP host is configured and must not be used in
// production since reset links are bearer credentials.
type consoleMailer struct {
	logger *slog.Logger
}

func NewConsoleMailer(logger *slog.Logger) service.Mailer {
	return &consoleMailer{logger: logger}
}

func (m *consoleMailer) Send(ctx context.Context, email *service.OutboundEmail) error {
	if email.To == "" {
		return errors.New("no recipient specified")
	}

	m.logger.InfoContext(ctx, "[ConsoleMailer] Email not sent, SMTP disabled",
		slog.String("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("body", email.TextBody),
	)

	return nil
}

func (m *consoleMailer) Ping(context.Context) error {
	return nil
}
