package reqctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

func TestRequestMeta(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestIDFromContext(ctx))

	_, ok := RequestMetaFromContext(WithRequestMeta(ctx, nil))
	assert.False(t, ok)

	ctx = WithRequestMeta(ctx, &RequestMeta{RequestID: "req-1"})
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestScopeAndLogAttrs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, LogAttrs(ctx))

	_, ok := ScopeFromContext(ctx)
	assert.False(t, ok)

	ctx = WithRequestMeta(ctx, &RequestMeta{RequestID: "req-1"})
	ctx = WithScope(ctx, model.Scope{FacilityID: "f1", StaffID: "s1"})

	scope, ok := ScopeFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "f1", scope.FacilityID)

	assert.Equal(t, []any{
		slog.String("request_id", "req-1"),
		slog.String("facility_id", "f1"),
		slog.String("staff_id", "s1"),
	}, LogAttrs(ctx))
}
