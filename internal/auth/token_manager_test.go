package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

func newManager(t *testing.T) (*auth.Manager, *repositories.MemoryStore, models.Identity) {
	t.Helper()
	store := repositories.NewMemoryStore()
	identity := models.Identity{ID: models.NewID(), Username: "alice", Email: "alice@example.com", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := store.CreateUser(context.Background(), identity); err != nil {
		t.Fatalf("create user: %v", err)
	}

	manager, err := auth.NewManager(auth.TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"}, store)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, store, identity
}

func TestNewManagerRejectsBadSecrets(t *testing.T) {
	store := repositories.NewMemoryStore()

	if _, err := auth.NewManager(auth.TokenConfig{RefreshSecret: "r"}, store); !errors.Is(err, auth.ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := auth.NewManager(auth.TokenConfig{AccessSecret: "same", RefreshSecret: "same"}, store); err == nil {
		t.Fatal("expected error when secrets are equal")
	}
}

func TestIssueAndValidate(t *testing.T) {
	manager, store, identity := newManager(t)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := manager.ValidateAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if got != identity.ID {
		t.Fatalf("expected subject %s, got %s", identity.ID, got)
	}

	stored, err := store.FindUserByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.RefreshToken != tokens.RefreshToken {
		t.Fatal("expected refresh token to be persisted on the identity")
	}

	if _, err := manager.ValidateAccess(tokens.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}
}

func TestIssueTwiceProducesDistinctPairs(t *testing.T) {
	manager, _, identity := newManager(t)
	ctx := context.Background()

	first, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if first.RefreshToken == second.RefreshToken || first.AccessToken == second.AccessToken {
		t.Fatal("expected distinct token pairs")
	}
}

func TestRotateRejectsSupersededToken(t *testing.T) {
	manager, _, identity := newManager(t)
	ctx := context.Background()

	a, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}

	if _, err := manager.Rotate(ctx, a.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected superseded token to fail, got %v", err)
	}

	c, err := manager.Rotate(ctx, b.RefreshToken)
	if err != nil {
		t.Fatalf("rotate b: %v", err)
	}
	if _, err := manager.Rotate(ctx, b.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}
	if _, err := manager.Rotate(ctx, c.RefreshToken); err != nil {
		t.Fatalf("rotate c: %v", err)
	}
}

func TestRevokeBlocksRotation(t *testing.T) {
	manager, _, identity := newManager(t)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(ctx, identity.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := manager.Rotate(ctx, tokens.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if err := manager.Revoke(ctx, models.NewID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found revoking unknown identity, got %v", err)
	}
}

func TestExpiredTokensAreRejected(t *testing.T) {
	manager, _, identity := newManager(t)
	ctx := context.Background()

	issuedAt := time.Now().UTC()
	manager.WithClock(func() time.Time { return issuedAt })

	tokens, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.WithClock(func() time.Time { return issuedAt.Add(16 * time.Minute) })
	if _, err := manager.ValidateAccess(tokens.AccessToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected expired access token to fail, got %v", err)
	}
	if _, err := manager.Rotate(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("expected refresh token to outlive access token: %v", err)
	}

	manager.WithClock(func() time.Time { return issuedAt.Add(11 * 24 * time.Hour) })
	latest, err := manager.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue latest: %v", err)
	}
	manager.WithClock(func() time.Time { return issuedAt.Add(22 * 24 * time.Hour) })
	if _, err := manager.Rotate(ctx, latest.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected expired refresh token to fail, got %v", err)
	}
}

func TestTokensFromOtherSecretsAreRejected(t *testing.T) {
	manager, store, identity := newManager(t)
	ctx := context.Background()

	foreign, err := auth.NewManager(auth.TokenConfig{AccessSecret: "other-access", RefreshSecret: "other-refresh"}, store)
	if err != nil {
		t.Fatalf("new foreign manager: %v", err)
	}
	tokens, err := foreign.Issue(ctx, identity.ID)
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}

	if _, err := manager.ValidateAccess(tokens.AccessToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected foreign access token to fail, got %v", err)
	}
	if _, err := manager.Rotate(ctx, tokens.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected foreign refresh token to fail, got %v", err)
	}
	if _, err := manager.ValidateAccess(""); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Fatalf("expected empty token to require auth, got %v", err)
	}
	if _, err := manager.ValidateAccess("not.a.jwt"); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}
}

func TestIssueForMissingIdentity(t *testing.T) {
	manager, _, _ := newManager(t)

	if _, err := manager.Issue(context.Background(), models.NewID()); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected auth invalid for missing identity, got %v", err)
	}
}
