// Package identity carries the authenticated submitter through a request context.
package identity

import (
	"context"

	"portops/internal/model"
)

type contextKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext returns the actor stored in ctx. ok is false when no
// authenticated user is present.
func FromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(model.Actor)
	if !ok || !actor.Authenticated() {
		return model.Actor{}, false
	}
	return actor, true
}
