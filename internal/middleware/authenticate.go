package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// AccessTokenCookie carries the access token for browser clients.
const AccessTokenCookie = "accessToken"

// IdentityResolver turns a bearer credential into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (models.Identity, error)
}

// ErrorWriter renders a failed request.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Authenticate rejects requests without a valid access token and stores the caller
// identity in the request context.
func Authenticate(resolver IdentityResolver, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Context(), Credential(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuthenticate resolves the caller when a valid credential is present and
// otherwise lets the request through anonymously.
func OptionalAuthenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := Credential(r)
			if credential == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					logging.FromContext(r.Context()).Error("optional authentication failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Credential extracts the access token from the Authorization header, falling
// back to the access token cookie.
func Credential(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func withIdentity(ctx context.Context, identity models.Identity) context.Context {
	ctx = auth.WithIdentity(ctx, identity)
	return logging.With(ctx, "identity_id", identity.ID.String())
}
