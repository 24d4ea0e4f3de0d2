package testutil

import (
	"context"
	"net/http"

	"lingkod/internal/platform/middleware"
)

// WithActor stamps an authenticated actor onto the request context, the way
// the auth middleware would after validating a token.
func WithActor(req *http.Request, actorID, lineID string) *http.Request {
	ctx := req.Context()
	if actorID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyActorID, actorID)
	}
	if lineID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyLineID, lineID)
	}
	return req.WithContext(ctx)
}

// WithRole adds a role claim on top of WithActor.
func WithRole(req *http.Request, role string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRole, role)
	return req.WithContext(ctx)
}
