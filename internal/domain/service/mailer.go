package service

import (
	"context"
	"time"
)

// OutboundEmail is a fully rendered message.
type OutboundEmail struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers rendered messages out of band.
type Mailer interface {
	Send(ctx context.Context, email *OutboundEmail) error

	// Ping verifies the transport is reachable. It is called once at startup.
	Ping(ctx context.Context) error
}

// EmailRenderer turns a reset link into a message body.
type EmailRenderer interface {
	RenderPasswordReset(to, link string, validFor time.Duration) (*OutboundEmail, error)
}
