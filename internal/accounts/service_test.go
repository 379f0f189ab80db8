package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

type fakeMedia struct {
	mu       sync.Mutex
	uploads  []string
	deleted  []string
	failNext bool

	// onUpload runs before the upload returns, outside the lock.
	onUpload func()
}

func (f *fakeMedia) Upload(_ context.Context, localPath string) (storage.Asset, error) {
	if hook := f.onUpload; hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return storage.Asset{}, apperr.UploadFailed(errors.New("boom"), "media upload failed")
	}
	f.uploads = append(f.uploads, localPath)
	id := fmt.Sprintf("media/%d", len(f.uploads))
	return storage.Asset{URL: "https://cdn.test/" + id, PublicID: id, Size: 1}, nil
}

func (f *fakeMedia) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

type fixture struct {
	svc   *Service
	store *repositories.MemoryStore
	media *fakeMedia
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	tokens, err := auth.NewManager(auth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, store)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	media := &fakeMedia{}
	return fixture{
		svc:   NewService(store, media, auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens),
		store: store,
		media: media,
	}
}

func (f fixture) register(t *testing.T, username, email string) models.Identity {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username:   username,
		Email:      email,
		FullName:   "Test User",
		Password:   "correct-horse",
		AvatarPath: "/tmp/avatar.png",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func TestRegisterNormalizesAndSanitizes(t *testing.T) {
	f := newFixture(t)

	user := f.register(t, "Alice", " Alice@Example.com ")
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("expected canonical username and email, got %q %q", user.Username, user.Email)
	}
	if user.PasswordHash != "" || user.RefreshToken != "" {
		t.Fatal("expected secret fields to be stripped")
	}
	if user.Avatar == "" || user.CoverImage != "" {
		t.Fatalf("unexpected media fields: %+v", user)
	}

	stored, err := f.store.FindUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "correct-horse" {
		t.Fatal("expected password to be stored as a digest")
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.register(t, "taken", "taken@example.com")

	valid := RegisterInput{Username: "bob", Email: "bob@example.com", FullName: "Bob", Password: "long-enough", AvatarPath: "/tmp/a.png"}
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   error
	}{
		{"missing full name", func(in *RegisterInput) { in.FullName = " " }, apperr.ErrValidation},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, apperr.ErrValidation},
		{"display name email", func(in *RegisterInput) { in.Email = "Bob <bob@example.com>" }, apperr.ErrValidation},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, apperr.ErrValidation},
		{"missing avatar", func(in *RegisterInput) { in.AvatarPath = "" }, apperr.ErrValidation},
		{"duplicate username", func(in *RegisterInput) { in.Username = "TAKEN" }, apperr.ErrConflict},
		{"duplicate email", func(in *RegisterInput) { in.Email = "Taken@example.com" }, apperr.ErrConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRegisterUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.media.failNext = true

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "carol", Email: "carol@example.com", FullName: "Carol", Password: "long-enough", AvatarPath: "/tmp/a.png",
	})
	if !errors.Is(err, apperr.ErrUploadFailed) {
		t.Fatalf("expected upload failure, got %v", err)
	}
	if _, err := f.store.FindUserByUsername(context.Background(), "carol"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected no identity to be created, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dave", "dave@example.com")

	tests := []struct {
		name string
		in   LoginInput
		want error
	}{
		{"no login", LoginInput{Password: "correct-horse"}, apperr.ErrValidation},
		{"no password", LoginInput{Username: "dave"}, apperr.ErrValidation},
		{"unknown user", LoginInput{Username: "nobody", Password: "correct-horse"}, apperr.ErrAuthInvalid},
		{"wrong password", LoginInput{Email: "dave@example.com", Password: "wrong-horse"}, apperr.ErrAuthInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := f.svc.Login(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "erin", "erin@example.com")

	user, first, err := f.svc.Login(ctx, LoginInput{Username: "Erin", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("first rotation: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected reused refresh token to be rejected, got %v", err)
	}

	if err := f.svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, second.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected refresh after logout to be rejected, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, ""); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Fatalf("expected missing token to require auth, got %v", err)
	}
}

func TestLoginInvalidatesPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "frank", "frank@example.com")

	_, first, err := f.svc.Login(ctx, LoginInput{Username: "frank", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, _, err := f.svc.Login(ctx, LoginInput{Email: "FRANK@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected earlier refresh token to be superseded, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "grace", "grace@example.com")

	if err := f.svc.ChangePassword(ctx, user.ID, "wrong-horse", "new-password"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected invalid old password, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, user.ID, "correct-horse", "short"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected short password rejection, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, user.ID, "correct-horse", "new-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, _, err := f.svc.Login(ctx, LoginInput{Username: "grace", Password: "correct-horse"}); !errors.Is(err, apperr.ErrAuthInvalid) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}
	if _, _, err := f.svc.Login(ctx, LoginInput{Username: "grace", Password: "new-password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "heidi", "heidi@example.com")
	f.register(t, "ivan", "ivan@example.com")

	updated, err := f.svc.UpdateDetails(ctx, user.ID, "Heidi H", "Heidi.H@example.com")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if updated.FullName != "Heidi H" || updated.Email != "heidi.h@example.com" {
		t.Fatalf("unexpected details %+v", updated)
	}

	if _, err := f.svc.UpdateDetails(ctx, user.ID, "Heidi", "ivan@example.com"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if _, err := f.svc.UpdateDetails(ctx, user.ID, "", "heidi@example.com"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestUpdateAvatarRemovesPreviousMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "judy", "judy@example.com")

	stored, _ := f.store.FindUserByID(ctx, user.ID)
	previous := stored.AvatarPublicID

	updated, err := f.svc.UpdateAvatar(ctx, user.ID, "/tmp/new-avatar.png")
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if updated.Avatar == user.Avatar {
		t.Fatal("expected avatar url to change")
	}
	if len(f.media.deleted) != 1 || f.media.deleted[0] != previous {
		t.Fatalf("expected previous avatar %q to be deleted, got %v", previous, f.media.deleted)
	}

	cover, err := f.svc.UpdateCoverImage(ctx, user.ID, "/tmp/cover.png")
	if err != nil {
		t.Fatalf("update cover: %v", err)
	}
	if cover.CoverImage == "" {
		t.Fatal("expected cover image to be set")
	}
	if len(f.media.deleted) != 1 {
		t.Fatalf("expected no delete for missing previous cover, got %v", f.media.deleted)
	}

	if _, err := f.svc.UpdateAvatar(ctx, user.ID, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected missing file rejection, got %v", err)
	}
}

func TestImageUpdateKeepsConcurrentPasswordChange(t *testing.T) {
	for _, tc := range []struct {
		name   string
		update func(*Service, context.Context, models.ID) (models.Identity, error)
	}{
		{"avatar", func(s *Service, ctx context.Context, id models.ID) (models.Identity, error) {
			return s.UpdateAvatar(ctx, id, "/tmp/avatar-2.png")
		}},
		{"cover", func(s *Service, ctx context.Context, id models.ID) (models.Identity, error) {
			return s.UpdateCoverImage(ctx, id, "/tmp/cover-2.png")
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			user := f.register(t, "mallory", "mallory@example.com")

			f.media.onUpload = func() {
				f.media.onUpload = nil
				if err := f.svc.ChangePassword(ctx, user.ID, "correct-horse", "brand-new-secret"); err != nil {
					t.Errorf("change password: %v", err)
				}
			}
			if _, err := tc.update(f.svc, ctx, user.ID); err != nil {
				t.Fatalf("update %s: %v", tc.name, err)
			}

			if _, _, err := f.svc.Login(ctx, LoginInput{Username: "mallory", Password: "correct-horse"}); !errors.Is(err, apperr.ErrAuthInvalid) {
				t.Fatalf("expected old password to stay rejected, got %v", err)
			}
			if _, _, err := f.svc.Login(ctx, LoginInput{Username: "mallory", Password: "brand-new-secret"}); err != nil {
				t.Fatalf("login with new password: %v", err)
			}
		})
	}
}

func TestDetailsUpdateKeepsPasswordAndImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "niaj", "niaj@example.com")
	if err := f.svc.ChangePassword(ctx, user.ID, "correct-horse", "brand-new-secret"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	before, _ := f.store.FindUserByID(ctx, user.ID)

	if _, err := f.svc.UpdateDetails(ctx, user.ID, "Niaj N", "niaj.n@example.com"); err != nil {
		t.Fatalf("update details: %v", err)
	}
	after, _ := f.store.FindUserByID(ctx, user.ID)
	if after.PasswordHash != before.PasswordHash || after.AvatarPublicID != before.AvatarPublicID {
		t.Fatalf("expected only name and email to change, got %+v", after)
	}
}

func TestCurrentUnknownIdentity(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Current(context.Background(), models.NewID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Current(context.Background(), models.NilID); !errors.Is(err, apperr.ErrAuthRequired) {
		t.Fatalf("expected auth required, got %v", err)
	}
}
