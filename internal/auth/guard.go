package auth

import (
	"context"
	"errors"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
)

// AccessValidator verifies access tokens.
type AccessValidator interface {
	ValidateAccess(token string) (models.ID, error)
}

// IdentityFinder loads identities by id.
type IdentityFinder interface {
	FindUserByID(ctx context.Context, id models.ID) (models.Identity, error)
}

// Guard resolves the caller identity behind a presented credential.
type Guard struct {
	Tokens     AccessValidator
	Identities IdentityFinder
}

// Resolve validates credential and returns the sanitized identity it belongs to.
// Deleted accounts are reported exactly like invalid tokens.
func (g Guard) Resolve(ctx context.Context, credential string) (models.Identity, error) {
	if credential == "" {
		return models.Identity{}, apperr.AuthRequired("unauthorized request")
	}
	if g.Tokens == nil || g.Identities == nil {
		return models.Identity{}, apperr.Internal(errors.New("guard dependencies unavailable"), "authentication services unavailable")
	}

	identityID, err := g.Tokens.ValidateAccess(credential)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindAuthInvalid {
			return models.Identity{}, err
		}
		return models.Identity{}, apperr.AuthInvalid(err, "invalid access token")
	}

	identity, err := g.Identities.FindUserByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Identity{}, apperr.AuthInvalid(err, "invalid access token")
		}
		return models.Identity{}, apperr.Internal(err, "failed to resolve identity")
	}

	return identity.Sanitized(), nil
}
