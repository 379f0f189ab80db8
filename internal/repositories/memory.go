package repositories

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// MemoryStore keeps every entity in process memory. All writes are serialized on a
// single mutex and it enforces the same uniqueness and reference rules as the SQL schema.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[models.ID]models.Identity
	videos    map[models.ID]models.Video
	comments  map[models.ID]models.Comment
	tweets    map[models.ID]models.Tweet
	playlists map[models.ID]models.Playlist
	relations map[models.RelationKey]models.Relation
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[models.ID]models.Identity),
		videos:    make(map[models.ID]models.Video),
		comments:  make(map[models.ID]models.Comment),
		tweets:    make(map[models.ID]models.Tweet),
		playlists: make(map[models.ID]models.Playlist),
		relations: make(map[models.RelationKey]models.Relation),
	}
}

// CreateUser stores a new identity. Username and email are unique.
func (s *MemoryStore) CreateUser(_ context.Context, user models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
	}
	user.WatchHistory = slices.Clone(user.WatchHistory)
	s.users[user.ID] = user
	return nil
}

// FindUserByID returns the stored identity including secret fields.
func (s *MemoryStore) FindUserByID(_ context.Context, id models.ID) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.Identity{}, ErrNotFound
	}
	user.WatchHistory = slices.Clone(user.WatchHistory)
	return user, nil
}

// FindUserByUsername looks an identity up by its canonical username.
func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			user.WatchHistory = slices.Clone(user.WatchHistory)
			return user, nil
		}
	}
	return models.Identity{}, ErrNotFound
}

// FindUserByLogin matches either the username or the email; empty values never match.
func (s *MemoryStore) FindUserByLogin(_ context.Context, username, email string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && strings.EqualFold(user.Email, email)) {
			user.WatchHistory = slices.Clone(user.WatchHistory)
			return user, nil
		}
	}
	return models.Identity{}, ErrNotFound
}

// UpdateUserDetails sets the full name and email. Emails stay unique.
func (s *MemoryStore) UpdateUserDetails(_ context.Context, id models.ID, fullName, email string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for other, existing := range s.users {
		if other != id && strings.EqualFold(existing.Email, email) {
			return ErrConflict
		}
	}
	current.FullName = fullName
	current.Email = email
	current.UpdatedAt = at
	s.users[id] = current
	return nil
}

// UpdateUserPassword replaces only the password digest.
func (s *MemoryStore) UpdateUserPassword(_ context.Context, id models.ID, digest string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	current.PasswordHash = digest
	current.UpdatedAt = at
	s.users[id] = current
	return nil
}

// UpdateUserImage points image at a new asset and returns the public id it replaced.
func (s *MemoryStore) UpdateUserImage(_ context.Context, id models.ID, image models.ProfileImage, url, publicID string, at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return "", ErrNotFound
	}
	var previous string
	switch image {
	case models.ImageAvatar:
		previous = current.AvatarPublicID
		current.Avatar, current.AvatarPublicID = url, publicID
	case models.ImageCover:
		previous = current.CoverPublicID
		current.CoverImage, current.CoverPublicID = url, publicID
	default:
		return "", fmt.Errorf("unknown profile image %q", image)
	}
	current.UpdatedAt = at
	s.users[id] = current
	return previous, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (s *MemoryStore) SetRefreshToken(_ context.Context, id models.ID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = token
	s.users[id] = user
	return nil
}

// SwapRefreshToken replaces current with next when current is still the stored token.
func (s *MemoryStore) SwapRefreshToken(_ context.Context, id models.ID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.RefreshToken == "" || user.RefreshToken != current {
		return auth.ErrTokenStale
	}
	user.RefreshToken = next
	s.users[id] = user
	return nil
}

// ClearRefreshToken removes the stored refresh token.
func (s *MemoryStore) ClearRefreshToken(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = ""
	s.users[id] = user
	return nil
}

// RecordWatch moves videoID to the end of the identity's watch history.
func (s *MemoryStore) RecordWatch(_ context.Context, userID, videoID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.videos[videoID]; !ok {
		return ErrNotFound
	}
	history := slices.DeleteFunc(slices.Clone(user.WatchHistory), func(id models.ID) bool { return id == videoID })
	user.WatchHistory = append(history, videoID)
	s.users[userID] = user
	return nil
}

func (s *MemoryStore) profile(id models.ID) models.Profile {
	user, ok := s.users[id]
	if !ok {
		return models.Profile{ID: id}
	}
	return user.Profile()
}

// newestFirst orders by creation time descending with the id as tiebreaker.
func newestFirst[T any](items []T, key func(T) (int64, string)) {
	slices.SortFunc(items, func(a, b T) int {
		at, aid := key(a)
		bt, bid := key(b)
		if c := cmp.Compare(bt, at); c != 0 {
			return c
		}
		return cmp.Compare(aid, bid)
	})
}

func paginate[T any](items []T, page models.PageRequest) ([]T, int64) {
	start, end := page.Window(len(items))
	return slices.Clone(items[start:end]), int64(len(items))
}

var (
	_ auth.RefreshTokenStore = (*MemoryStore)(nil)
	_ auth.IdentityFinder    = (*MemoryStore)(nil)
)
