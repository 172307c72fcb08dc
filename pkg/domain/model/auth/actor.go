package auth

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// Actor is the caller identity asserted by the identity provider. The core trusts it and
// performs its own role and ownership checks.
type Actor struct {
	ID   string
	Role types.Role
}

type ctxActorKey struct{}

// ContextWithActor returns a new context carrying actor
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey{}, actor)
}

// ActorFromContext returns the actor of ctx or model.ErrUnauthenticated
func ActorFromContext(ctx context.Context) (*Actor, error) {
	actor, ok := ctx.Value(ctxActorKey{}).(*Actor)
	if !ok || actor == nil || actor.ID == "" {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "actor is required")
	}
	return actor, nil
}

// RequireRole returns the actor of ctx when its role satisfies allowed
func RequireRole(ctx context.Context, allowed func(types.Role) bool) (*Actor, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed(actor.Role) {
		return nil, goerr.Wrap(model.ErrRoleRequired, "role is not allowed for this operation",
			goerr.V(model.UserIDKey, actor.ID), goerr.V("role", actor.Role))
	}
	return actor, nil
}
