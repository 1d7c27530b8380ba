package reqctx

import (
	"context"
	"log/slog"
	"time"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey int

const (
	keyRequestMeta ctxKey = iota
	keyScope
)

// RequestMeta holds per-request metadata set by HTTP middleware.
type RequestMeta struct {
	// RequestID is a unique identifier for this request.
	RequestID string

	// ClientIP may come from X-Forwarded-For or the direct connection.
	ClientIP string

	UserAgent string

	RequestedAt time.Time
}

// WithRequestMeta stores RequestMeta in the context.
func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, keyRequestMeta, meta)
}

// RequestMetaFromContext retrieves RequestMeta from the context.
// Returns nil, false if not set.
func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(keyRequestMeta).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns the request ID, or "" if RequestMeta is not set.
func RequestIDFromContext(ctx context.Context) string {
	meta, ok := RequestMetaFromContext(ctx)
	if !ok {
		return ""
	}
	return meta.RequestID
}

// WithScope stores the resolved facility scope of the acting staff member.
func WithScope(ctx context.Context, scope model.Scope) context.Context {
	return context.WithValue(ctx, keyScope, scope)
}

// ScopeFromContext returns the scope set by WithScope.
func ScopeFromContext(ctx context.Context) (model.Scope, bool) {
	scope, ok := ctx.Value(keyScope).(model.Scope)
	return scope, ok
}

// LogAttrs returns the request id and scope of ctx as slog attributes.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if scope, ok := ScopeFromContext(ctx); ok {
		attrs = append(attrs,
			slog.String("facility_id", scope.FacilityID),
			slog.String("staff_id", scope.StaffID),
		)
	}
	return attrs
}
