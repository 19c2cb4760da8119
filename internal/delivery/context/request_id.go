// Package context carries per-request values from the delivery layer down to
// the use cases without the use cases depending on echo.
package context

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
)

// HeaderXRequestID is echoed back on every response.
const HeaderXRequestID = echo.HeaderXRequestID

type scopeKey struct{}

// requestScope is everything the request id middleware attaches.
type requestScope struct {
	requestID string
	logger    *slog.Logger
}

// WithRequestScope attaches the request id and the logger bound to it.
func WithRequestScope(ctx context.Context, requestID string, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, scopeKey{}, &requestScope{requestID: requestID, logger: logger})
}

func scopeFrom(ctx context.Context) *requestScope {
	if ctx == nil {
		return nil
	}
	scope, _ := ctx.Value(scopeKey{}).(*requestScope)

	return scope
}

// GetRequestIDFromContext returns the request id, or "" outside a request.
func GetRequestIDFromContext(ctx context.Context) string {
	if scope := scopeFrom(ctx); scope != nil {
		return scope.requestID
	}

	return ""
}

// GetRequestID returns the id of the request being served. It falls back to
// the response header for handlers that run before the scope is attached.
func GetRequestID(c echo.Context) string {
	if id := GetRequestIDFromContext(c.Request().Context()); id != "" {
		return id
	}

	return c.Response().Header().Get(HeaderXRequestID)
}

// GetLogger returns the request-scoped logger, or nil outside a request.
func GetLogger(ctx context.Context) *slog.Logger {
	if scope := scopeFrom(ctx); scope != nil {
		return scope.logger
	}

	return nil
}

// GetLoggerOrDefault is GetLogger with a fallback for background work.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := GetLogger(ctx); logger != nil {
		return logger
	}

	return fallback
}
