package services

import (
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

// requireActor rejects requests whose auth middleware failed to attach a
// resolved identity.
func requireActor(actor ctxutil.Actor) error {
	if !actor.Valid() {
		return apierr.Unauthorized("missing actor context")
	}
	return nil
}

// requireBrandActor gates brand-side operations: supplier-only tenants may
// not manage address books, products, or reviews.
func requireBrandActor(actor ctxutil.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.TenantType != types.TenantTypeBrand && actor.TenantType != types.TenantTypeHybrid {
		return apierr.Forbidden("action restricted to brand accounts")
	}
	return nil
}
