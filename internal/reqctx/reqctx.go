// Package reqctx provides the request-context middleware: request ID
// assignment, tenant resolution (header + optional JWT bearer claim),
// structured per-request logging, and JSON response request_id
// injection.
package reqctx

import (
	"context"
	"log/slog"
	"regexp"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	tenantKey    ctxKey = "tenant"
	loggerKey    ctxKey = "logger"
)

// AnonymousTenant is used when no tenant can be resolved and
// AuthRequireTenant is false.
const AnonymousTenant = "_anon_"

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// WithRequestID returns a context carrying requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithTenant returns a context carrying the resolved tenant.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// Tenant returns the tenant stored in ctx, defaulting to
// AnonymousTenant if none was resolved.
func Tenant(ctx context.Context) string {
	v, ok := ctx.Value(tenantKey).(string)
	if !ok || v == "" {
		return AnonymousTenant
	}
	return v
}

// WithLogger returns a context carrying a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request-scoped logger stored in ctx, falling
// back to the default logger if none was attached.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ValidTenantHeader reports whether header matches the tenant ID
// pattern the original enforces: 1-64 chars of [A-Za-z0-9_-].
func ValidTenantHeader(header string) bool {
	return tenantPattern.MatchString(header)
}
