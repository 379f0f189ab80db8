// Package catalog implements the owner-facing mutations on videos, comments,
// tweets and playlists. Every mutation loads the resource first and checks
// ownership before writing.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/storage"
)

// Store is the persistence surface the catalog writes through.
type Store interface {
	FindUserByID(ctx context.Context, id models.ID) (models.Identity, error)
	RecordWatch(ctx context.Context, userID, videoID models.ID) error

	CreateVideo(ctx context.Context, video models.Video) error
	FindVideo(ctx context.Context, id models.ID) (models.Video, error)
	UpdateVideo(ctx context.Context, video models.Video) error
	DeleteVideo(ctx context.Context, id models.ID) error
	IncrementVideoViews(ctx context.Context, id models.ID) error

	CreateComment(ctx context.Context, comment models.Comment) error
	FindComment(ctx context.Context, id models.ID) (models.Comment, error)
	UpdateComment(ctx context.Context, comment models.Comment) error
	DeleteComment(ctx context.Context, id models.ID) error

	CreateTweet(ctx context.Context, tweet models.Tweet) error
	FindTweet(ctx context.Context, id models.ID) (models.Tweet, error)
	UpdateTweet(ctx context.Context, tweet models.Tweet) error
	DeleteTweet(ctx context.Context, id models.ID) error

	CreatePlaylist(ctx context.Context, playlist models.Playlist) error
	FindPlaylist(ctx context.Context, id models.ID) (models.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist models.Playlist) error
	DeletePlaylist(ctx context.Context, id models.ID) error
	AddPlaylistVideo(ctx context.Context, playlistID, videoID models.ID) error
	RemovePlaylistVideo(ctx context.Context, playlistID, videoID models.ID) (bool, error)
}

// MediaStore uploads and removes video files and thumbnails.
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (storage.Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// Service applies catalog mutations.
type Service struct {
	store Store
	media MediaStore
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, media MediaStore) *Service {
	if store == nil || media == nil {
		panic("catalog: dependencies must not be nil")
	}
	return &Service{store: store, media: media, now: func() time.Time { return time.Now().UTC() }}
}

func requireCaller(caller models.ID) error {
	if caller.IsZero() {
		return apperr.AuthRequired("unauthorized request")
	}
	return nil
}

// lookupError converts a storage failure on a load into the service taxonomy.
func lookupError(err error, what string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return apperr.Internal(err, "failed to load %s", what)
}

// writeError converts a storage failure on a write into the service taxonomy.
func writeError(err error, what string) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, apperr.ErrConflict):
		return apperr.Conflict("%s already exists", what)
	default:
		return apperr.Internal(err, "failed to save %s", what)
	}
}

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

func required(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	return trimmed, trimmed != ""
}
