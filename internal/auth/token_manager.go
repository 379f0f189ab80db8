package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrTokenStale indicates the presented refresh token is not the one currently stored.
	ErrTokenStale = errors.New("refresh token superseded")
	// ErrMissingSecret indicates the manager was configured without signing secrets.
	ErrMissingSecret = errors.New("token secret must not be empty")
)

// RefreshTokenStore persists the single active refresh token of each identity.
type RefreshTokenStore interface {
	// SetRefreshToken overwrites the stored token. It fails with apperr.ErrNotFound
	// when the identity does not exist.
	SetRefreshToken(ctx context.Context, identityID models.ID, token string) error
	// SwapRefreshToken replaces current with next atomically. It fails with ErrTokenStale
	// when the identity does not exist or its stored token differs from current.
	SwapRefreshToken(ctx context.Context, identityID models.ID, current, next string) error
	// ClearRefreshToken removes any stored token.
	ClearRefreshToken(ctx context.Context, identityID models.ID) error
}

// TokenConfig controls signing and lifetimes of issued tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Manager issues, validates and rotates access/refresh token pairs.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string

	store RefreshTokenStore
	now   func() time.Time
}

type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager constructs a Manager backed by the provided refresh token store.
func NewManager(cfg TokenConfig, store RefreshTokenStore) (*Manager, error) {
	if store == nil {
		panic("auth: refresh token store must not be nil")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 10 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "vidtube"
	}
	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		store:         store,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue creates a new token pair and stores its refresh token, replacing any previous one.
func (m *Manager) Issue(ctx context.Context, identityID models.ID) (models.SessionTokens, error) {
	if identityID.IsZero() {
		return models.SessionTokens{}, apperr.Validation("identity id must be provided")
	}

	tokens, err := m.mint(identityID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SetRefreshToken(ctx, identityID, tokens.RefreshToken); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.SessionTokens{}, apperr.AuthInvalid(err, "identity no longer exists")
		}
		return models.SessionTokens{}, apperr.Internal(err, "failed to store refresh token")
	}

	return tokens, nil
}

// ValidateAccess verifies an access token and returns the identity it was issued to.
func (m *Manager) ValidateAccess(token string) (models.ID, error) {
	return m.parse(token, tokenTypeAccess, m.accessSecret)
}

// Rotate exchanges the currently stored refresh token for a new pair. Superseded,
// revoked, expired or forged tokens are rejected with apperr.ErrAuthInvalid and leave
// the stored token untouched.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	ctx, span := logging.StartSpan(ctx, "auth.rotate")
	defer span.End()

	identityID, err := m.parse(refreshToken, tokenTypeRefresh, m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens, err := m.mint(identityID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SwapRefreshToken(ctx, identityID, refreshToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, ErrTokenStale) || errors.Is(err, apperr.ErrNotFound) {
			logging.FromContext(ctx).Warn("refresh token reuse or unknown identity", "identityId", identityID.String())
			return models.SessionTokens{}, apperr.AuthInvalid(err, "refresh token is expired or used")
		}
		return models.SessionTokens{}, apperr.Internal(err, "failed to rotate refresh token")
	}

	return tokens, nil
}

// Revoke clears the stored refresh token so it can no longer be rotated.
func (m *Manager) Revoke(ctx context.Context, identityID models.ID) error {
	if err := m.store.ClearRefreshToken(ctx, identityID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("identity not found")
		}
		return apperr.Internal(err, "failed to revoke refresh token")
	}
	return nil
}

func (m *Manager) mint(identityID models.ID) (models.SessionTokens, error) {
	now := m.now()

	accessToken, err := m.sign(identityID, tokenTypeAccess, m.accessSecret, now, m.accessTTL)
	if err != nil {
		return models.SessionTokens{}, apperr.Internal(err, "token generation failed")
	}
	refreshToken, err := m.sign(identityID, tokenTypeRefresh, m.refreshSecret, now, m.refreshTTL)
	if err != nil {
		return models.SessionTokens{}, apperr.Internal(err, "token generation failed")
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}, nil
}

func (m *Manager) sign(identityID models.ID, typ string, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   identityID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) parse(token, typ string, secret []byte) (models.ID, error) {
	if token == "" {
		return models.NilID, apperr.AuthRequired("token is required")
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return models.NilID, apperr.AuthInvalid(err, "invalid %s token", typ)
	}
	if !parsed.Valid || claims.Type != typ {
		return models.NilID, apperr.AuthInvalid(fmt.Errorf("unexpected token type %q", claims.Type), "invalid %s token", typ)
	}

	identityID, err := models.ParseID(claims.Subject)
	if err != nil {
		return models.NilID, apperr.AuthInvalid(err, "invalid %s token", typ)
	}
	return identityID, nil
}
