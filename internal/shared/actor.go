package shared

import (
	"context"
	"errors"
)

// Actor identifies who performs an operation and for which tenant. It is
// passed explicitly into every engine call.
type Actor struct {
	CompanyID int64
	UserID    int64
	Role      string
}

// ErrActorRequired indicates a call without tenant or user.
var ErrActorRequired = errors.New("actor company and user required")

// Validate ensures the actor carries a tenant and a user.
func (a Actor) Validate() error {
	if a.CompanyID <= 0 || a.UserID <= 0 {
		return ErrActorRequired
	}
	return nil
}

type actorKey struct{}

// ContextWithActor stores the actor on ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by ContextWithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
