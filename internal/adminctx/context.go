package adminctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// AuthKind tells which credential authenticated the request.
const (
	AuthSession = "session"
	AuthAPIKey  = "api_key"
)

// Actor is the authenticated principal acting on the admin API.
type Actor struct {
	ID       snowflake.ID
	Email    string
	Role     string
	AuthKind string
	Scopes   []string
}

// ActorContextKey is the request context key for the authenticated actor.
type ActorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, actor)
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ActorContextKey{}).(Actor)
	if !ok || actor.ID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// HasScope reports whether an API-key actor carries the given scope.
// Session actors are scoped by role capabilities instead and always pass.
func (a Actor) HasScope(scope string) bool {
	if a.AuthKind != AuthAPIKey {
		return true
	}
	for _, s := range a.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}
