// Package accounts implements registration, login and profile maintenance for
// identities. Token issuance and rotation are delegated to auth.Manager.
package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/storage"
)

// Store persists identities.
type Store interface {
	CreateUser(ctx context.Context, user models.Identity) error
	FindUserByID(ctx context.Context, id models.ID) (models.Identity, error)
	FindUserByLogin(ctx context.Context, username, email string) (models.Identity, error)

	// Each update writes only its own columns.
	UpdateUserDetails(ctx context.Context, id models.ID, fullName, email string, at time.Time) error
	UpdateUserPassword(ctx context.Context, id models.ID, digest string, at time.Time) error
	UpdateUserImage(ctx context.Context, id models.ID, image models.ProfileImage, url, publicID string, at time.Time) (previousPublicID string, err error)
}

// MediaStore uploads and removes avatar and cover images.
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (storage.Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// Hasher digests and verifies passwords.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Tokens issues and rotates session tokens.
type Tokens interface {
	Issue(ctx context.Context, identityID models.ID) (models.SessionTokens, error)
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, identityID models.ID) error
}

// RegisterInput carries the registration form. AvatarPath and CoverPath point at
// temporary local files.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	AvatarPath string
	CoverPath  string
}

// LoginInput identifies an account by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Service coordinates account workflows.
type Service struct {
	store  Store
	media  MediaStore
	hasher Hasher
	tokens Tokens
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, media MediaStore, hasher Hasher, tokens Tokens) *Service {
	if store == nil || media == nil || hasher == nil || tokens == nil {
		panic("accounts: dependencies must not be nil")
	}
	return &Service{
		store:  store,
		media:  media,
		hasher: hasher,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an identity. The avatar is mandatory, the cover image optional.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Identity, error) {
	fullName := strings.TrimSpace(in.FullName)
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || fullName == "" || in.Password == "" {
		return models.Identity{}, apperr.Validation("all fields are required")
	}
	username, err := models.CanonicalUsername(in.Username)
	if err != nil {
		return models.Identity{}, apperr.Validation("username is invalid")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.Identity{}, err
	}
	if len(in.Password) < auth.MinPasswordLength {
		return models.Identity{}, apperr.Validation("password must be at least %d characters", auth.MinPasswordLength)
	}
	if strings.TrimSpace(in.AvatarPath) == "" {
		return models.Identity{}, apperr.Validation("avatar file is required")
	}

	if _, err := s.store.FindUserByLogin(ctx, username, email); err == nil {
		return models.Identity{}, apperr.Conflict("user with email or username already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.Identity{}, apperr.Internal(err, "failed to check existing users")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Identity{}, apperr.Internal(err, "failed to hash password")
	}

	avatar, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		return models.Identity{}, err
	}
	var cover storage.Asset
	if strings.TrimSpace(in.CoverPath) != "" {
		if cover, err = s.media.Upload(ctx, in.CoverPath); err != nil {
			s.discard(ctx, avatar.PublicID)
			return models.Identity{}, err
		}
	}

	now := s.now()
	user := models.Identity{
		ID:             models.NewID(),
		Username:       username,
		Email:          email,
		FullName:       fullName,
		PasswordHash:   digest,
		Avatar:         avatar.URL,
		AvatarPublicID: avatar.PublicID,
		CoverImage:     cover.URL,
		CoverPublicID:  cover.PublicID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.discard(ctx, avatar.PublicID, cover.PublicID)
		if errors.Is(err, apperr.ErrConflict) {
			return models.Identity{}, apperr.Conflict("user with email or username already exists")
		}
		return models.Identity{}, apperr.Internal(err, "failed to create user")
	}

	logging.FromContext(ctx).Info("identity registered", "identity_id", user.ID.String(), "username", user.Username)
	return user.Sanitized(), nil
}

// Login verifies the password and issues a fresh token pair. The previous refresh
// token of the identity stops working.
func (s *Service) Login(ctx context.Context, in LoginInput) (models.Identity, models.SessionTokens, error) {
	if strings.TrimSpace(in.Username) == "" && strings.TrimSpace(in.Email) == "" {
		return models.Identity{}, models.SessionTokens{}, apperr.Validation("username or email is required")
	}
	if in.Password == "" {
		return models.Identity{}, models.SessionTokens{}, apperr.Validation("password is required")
	}

	var username, email string
	if strings.TrimSpace(in.Username) != "" {
		if canonical, err := models.CanonicalUsername(in.Username); err == nil {
			username = canonical
		}
	}
	if strings.TrimSpace(in.Email) != "" {
		email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if username == "" && email == "" {
		return models.Identity{}, models.SessionTokens{}, apperr.AuthInvalid(nil, "invalid user credentials")
	}

	user, err := s.store.FindUserByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Identity{}, models.SessionTokens{}, apperr.AuthInvalid(err, "invalid user credentials")
		}
		return models.Identity{}, models.SessionTokens{}, apperr.Internal(err, "failed to load user")
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return models.Identity{}, models.SessionTokens{}, apperr.AuthInvalid(nil, "invalid user credentials")
	}

	tokens, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return models.Identity{}, models.SessionTokens{}, err
	}

	logging.FromContext(ctx).Info("identity logged in", "identity_id", user.ID.String())
	return user.Sanitized(), tokens, nil
}

// Logout revokes the stored refresh token.
func (s *Service) Logout(ctx context.Context, identityID models.ID) error {
	if identityID.IsZero() {
		return apperr.AuthRequired("unauthorized request")
	}
	return s.tokens.Revoke(ctx, identityID)
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return models.SessionTokens{}, apperr.AuthRequired("unauthorized request")
	}
	return s.tokens.Rotate(ctx, refreshToken)
}

// ChangePassword replaces the password digest after verifying the old password.
// Issued tokens remain valid.
func (s *Service) ChangePassword(ctx context.Context, identityID models.ID, oldPassword, newPassword string) error {
	if len(newPassword) < auth.MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", auth.MinPasswordLength)
	}

	user, err := s.load(ctx, identityID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return apperr.Validation("invalid old password")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err, "failed to hash password")
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, digest, s.now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err, "failed to update password")
	}
	return nil
}

// Current returns the sanitized identity.
func (s *Service) Current(ctx context.Context, identityID models.ID) (models.Identity, error) {
	user, err := s.load(ctx, identityID)
	if err != nil {
		return models.Identity{}, err
	}
	return user.Sanitized(), nil
}

// UpdateDetails replaces the full name and email.
func (s *Service) UpdateDetails(ctx context.Context, identityID models.ID, fullName, email string) (models.Identity, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" || strings.TrimSpace(email) == "" {
		return models.Identity{}, apperr.Validation("all fields are required")
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return models.Identity{}, err
	}

	if identityID.IsZero() {
		return models.Identity{}, apperr.AuthRequired("unauthorized request")
	}
	if err := s.store.UpdateUserDetails(ctx, identityID, fullName, normalized, s.now()); err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			return models.Identity{}, apperr.Conflict("email is already in use")
		case errors.Is(err, apperr.ErrNotFound):
			return models.Identity{}, apperr.NotFound("user not found")
		}
		return models.Identity{}, apperr.Internal(err, "failed to update account details")
	}
	return s.Current(ctx, identityID)
}

// UpdateAvatar uploads a new avatar and removes the previous one.
func (s *Service) UpdateAvatar(ctx context.Context, identityID models.ID, localPath string) (models.Identity, error) {
	return s.replaceImage(ctx, identityID, localPath, models.ImageAvatar)
}

// UpdateCoverImage uploads a new cover image and removes the previous one.
func (s *Service) UpdateCoverImage(ctx context.Context, identityID models.ID, localPath string) (models.Identity, error) {
	return s.replaceImage(ctx, identityID, localPath, models.ImageCover)
}

func (s *Service) replaceImage(ctx context.Context, identityID models.ID, localPath string, image models.ProfileImage) (models.Identity, error) {
	if strings.TrimSpace(localPath) == "" {
		return models.Identity{}, apperr.Validation("%s file is missing", image)
	}
	if _, err := s.load(ctx, identityID); err != nil {
		return models.Identity{}, err
	}

	asset, err := s.media.Upload(ctx, localPath)
	if err != nil {
		return models.Identity{}, err
	}

	previous, err := s.store.UpdateUserImage(ctx, identityID, image, asset.URL, asset.PublicID, s.now())
	if err != nil {
		s.discard(ctx, asset.PublicID)
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Identity{}, apperr.NotFound("user not found")
		}
		return models.Identity{}, apperr.Internal(err, "failed to update %s", image)
	}
	s.discard(ctx, previous)
	return s.Current(ctx, identityID)
}

func (s *Service) load(ctx context.Context, identityID models.ID) (models.Identity, error) {
	if identityID.IsZero() {
		return models.Identity{}, apperr.AuthRequired("unauthorized request")
	}
	user, err := s.store.FindUserByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Identity{}, apperr.NotFound("user not found")
		}
		return models.Identity{}, apperr.Internal(err, "failed to load user")
	}
	return user, nil
}

// discard removes media that is no longer referenced. Failures are logged and
// otherwise ignored.
func (s *Service) discard(ctx context.Context, publicIDs ...string) {
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := s.media.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("failed to delete media", "public_id", id, "error", err)
		}
	}
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", apperr.Validation("email is invalid")
	}
	return strings.ToLower(addr.Address), nil
}
