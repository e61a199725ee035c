package ctxutil

import (
	"context"

	"github.com/google/uuid"

	"github.com/tracebind/passport-backend/internal/domain/identity"
)

type actorKey struct{}

// Actor is the resolved request identity: the authenticated user plus the
// single ACTIVE tenant membership acting on their behalf. It is resolved
// once by the auth middleware and passed explicitly into services; nothing
// below the HTTP layer reads ambient identity.
type Actor struct {
	UserID         uuid.UUID
	ActingTenantID uuid.UUID
	TenantType     identity.TenantType
	TenantSlug     string
	MemberRole     identity.MemberRole
	IPAddress      string
}

func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.ActingTenantID != uuid.Nil
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func GetActor(ctx context.Context) (Actor, bool) {
	val := ctx.Value(actorKey{})
	actor, ok := val.(Actor)
	return actor, ok
}
