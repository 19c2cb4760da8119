package usecase

import "context"

type RequestResetInput struct {
	Email string
}

type RedeemResetInput struct {
	Token       string
	NewPassword string
}

// PasswordResetUsecase drives the single-use, time-boxed reset token.
type PasswordResetUsecase interface {
	// RequestReset returns nil for unknown emails so callers cannot probe for
	// accounts. A non-nil error wraps ErrDeliveryFailed or an internal failure
	// and is meant for logs only.
	RequestReset(ctx context.Context, input *RequestResetInput) error

	RedeemReset(ctx context.Context, input *RedeemResetInput) error
}
