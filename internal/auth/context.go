package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type contextKey string

const identityContextKey contextKey = "authenticatedIdentity"

// WithIdentity stores the authenticated identity in the provided context.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the authenticated identity if present.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	if ctx == nil {
		return models.Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey).(models.Identity)
	return identity, ok
}

// CallerID returns the authenticated identity id or the nil ID for anonymous requests.
func CallerID(ctx context.Context) models.ID {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return models.NilID
	}
	return identity.ID
}
