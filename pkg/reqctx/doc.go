// Package reqctx carries request-scoped values through context.Context.
//
// HTTP middleware stores the request metadata and, once the acting staff
// member has been resolved, the facility scope:
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: id})
//	ctx = reqctx.WithScope(ctx, model.Scope{FacilityID: f, StaffID: s})
//
// Services read them back without depending on fiber:
//
//	scope, ok := reqctx.ScopeFromContext(ctx)
//	logger.InfoContext(ctx, "schedule created", reqctx.LogAttrs(ctx)...)
//
// RequestMeta is set for every HTTP request. Scope is set only on routes
// behind the facility scope middleware.
package reqctx
