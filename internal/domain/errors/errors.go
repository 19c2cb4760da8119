// Package errors defines the user-facing error taxonomy of the auth service.
package errors

import (
	"net/http"

	"campuseval/internal/errors"
)

// AppError is an error that knows how it should be presented to a client.
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Machine-readable code
	Message() string   // Message safe to show to end users
	Details() string   // Optional extra information for 4xx responses
}

// BaseError implements AppError.
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error.
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with an internal context message. The wrapped
// chain still matches the BaseError through errors.Is / errors.As.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

func (e *BaseError) Message() string {
	return e.message
}

func (e *BaseError) Details() string {
	return e.details
}

// Is matches any BaseError with the same code, so a copy made by WithDetails
// still satisfies errors.Is against the predefined error.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode && t.httpCode == e.httpCode
}

// WithDetails returns a copy of e carrying details.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

var (
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"The request is missing required fields or contains invalid values.",
		"",
	)

	ErrDuplicateAccount = NewBaseError(
		http.StatusConflict,
		"DUPLICATE_ACCOUNT",
		"An account with this email already exists.",
		"",
	)

	// ErrInvalidCredentials covers unknown email, wrong password and
	// OAuth-only accounts alike.
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid email or password.",
		"",
	)

	ErrInvalidOrExpiredToken = NewBaseError(
		http.StatusBadRequest,
		"INVALID_OR_EXPIRED_TOKEN",
		"The password reset link is invalid or has expired.",
		"",
	)

	ErrMissingProviderEmail = NewBaseError(
		http.StatusBadRequest,
		"MISSING_PROVIDER_EMAIL",
		"The sign-in provider did not share a verified email address.",
		"",
	)

	ErrDeliveryFailed = NewBaseError(
		http.StatusBadGateway,
		"DELIVERY_FAILED",
		"The message could not be delivered.",
		"",
	)

	ErrHashingFailed = NewBaseError(
		http.StatusInternalServerError,
		"HASHING_FAILED",
		"Internal server error, please try again later.",
		"",
	)

	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"Authentication is required.",
		"",
	)

	ErrInvalidOAuthState = NewBaseError(
		http.StatusBadRequest,
		"INVALID_OAUTH_STATE",
		"The sign-in request has expired, please start again.",
		"",
	)

	ErrOAuthExchangeFailed = NewBaseError(
		http.StatusBadGateway,
		"OAUTH_EXCHANGE_FAILED",
		"The sign-in provider could not be reached.",
		"",
	)

	ErrOAuthNotConfigured = NewBaseError(
		http.StatusNotFound,
		"OAUTH_NOT_CONFIGURED",
		"External sign-in is not available.",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"The requested resource was not found.",
		"",
	)

	ErrInternal = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error, please try again later.",
		"",
	)
)

// DatabaseExecuteError marks a store failure. It renders as a generic 500.
type DatabaseExecuteError struct {
	*BaseError
	cause error
}

// NewDatabaseExecuteError wraps a driver error with an operation description.
func NewDatabaseExecuteError(cause error, operation string) error {
	return errors.WithStack(&DatabaseExecuteError{
		BaseError: NewBaseError(
			http.StatusInternalServerError,
			"DATABASE_ERROR",
			"Internal server error, please try again later.",
			operation,
		),
		cause: cause,
	})
}

func (e *DatabaseExecuteError) Error() string {
	if e.cause == nil {
		return e.details
	}

	return e.details + ": " + e.cause.Error()
}

func (e *DatabaseExecuteError) Unwrap() error {
	return e.cause
}
