package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "campuseval/internal/delivery/context"
	"campuseval/internal/domain/entity"
	"campuseval/internal/domain/service"

	"github.com/google/uuid"
)

const (
	opRegister     = "register"
	opLogin        = "login"
	opOAuthLink    = "oauth_link"
	opOAuthLogin   = "oauth_login"
	opResetRequest = "reset_request"
	opResetRedeem  = "reset_redeem"
	opRefresh      = "refresh"
	opLogout       = "logout"
	opBootstrap    = "bootstrap"

	outcomeSuccess        = "success"
	outcomeFailure        = "failure"
	outcomeIgnored        = "ignored"
	outcomeDeliveryFailed = "delivery_failed"
)

// auditor counts operation outcomes and publishes auth events. Neither path
// can fail the operation being audited.
type auditor struct {
	publisher service.EventPublisher
	metrics   service.AuthMetrics
	now       func() time.Time
}

func newAuditor(publisher service.EventPublisher, metrics service.AuthMetrics, now func() time.Time) *auditor {
	return &auditor{publisher: publisher, metrics: metrics, now: now}
}

func (a *auditor) observe(operation, outcome string) {
	if a.metrics == nil {
		return
	}
	a.metrics.Observe(operation, outcome)
}

func (a *auditor) publish(ctx context.Context, logger *slog.Logger, eventType entity.AuthEventType, identityID *uuid.UUID) {
	if a.publisher == nil {
		return
	}

	event := &entity.AuthEvent{
		Type:       eventType,
		IdentityID: identityID,
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		OccurredAt: a.now().UTC(),
	}
	if err := a.publisher.PublishAuthEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish auth event",
			slog.String("event_type", string(eventType)),
			slog.Any("error", err))
	}
}
