package catalog

import (
	"context"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/policy"
)

// CreatePlaylist stores an empty playlist owned by caller.
func (s *Service) CreatePlaylist(ctx context.Context, caller models.ID, name, description string) (models.Playlist, error) {
	if err := requireCaller(caller); err != nil {
		return models.Playlist{}, err
	}
	name, okName := required(name)
	description, okDescription := required(description)
	if !okName || !okDescription {
		return models.Playlist{}, apperr.Validation("name and description are required")
	}

	now := s.now()
	playlist := models.Playlist{
		ID:          models.NewID(),
		OwnerID:     caller,
		Name:        name,
		Description: description,
		VideoIDs:    []models.ID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
		return models.Playlist{}, writeError(err, "playlist")
	}
	return playlist, nil
}

// UpdatePlaylist renames or re-describes a playlist. At least one field must be given.
func (s *Service) UpdatePlaylist(ctx context.Context, caller, playlistID models.ID, name, description string) (models.Playlist, error) {
	if err := requireCaller(caller); err != nil {
		return models.Playlist{}, err
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" && description == "" {
		return models.Playlist{}, apperr.Validation("name or description is required")
	}

	playlist, err := s.ownedPlaylist(ctx, caller, playlistID, "update this playlist")
	if err != nil {
		return models.Playlist{}, err
	}
	if name != "" {
		playlist.Name = name
	}
	if description != "" {
		playlist.Description = description
	}
	playlist.UpdatedAt = s.now()

	if err := s.store.UpdatePlaylist(ctx, playlist); err != nil {
		return models.Playlist{}, writeError(err, "playlist")
	}
	return playlist, nil
}

// DeletePlaylist removes a playlist owned by caller. The videos are untouched.
func (s *Service) DeletePlaylist(ctx context.Context, caller, playlistID models.ID) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	playlist, err := s.ownedPlaylist(ctx, caller, playlistID, "delete this playlist")
	if err != nil {
		return err
	}
	if err := s.store.DeletePlaylist(ctx, playlist.ID); err != nil {
		return writeError(err, "playlist")
	}
	return nil
}

// AddVideoToPlaylist appends a video. Adding a video already present is a no-op.
func (s *Service) AddVideoToPlaylist(ctx context.Context, caller, playlistID, videoID models.ID) (models.Playlist, error) {
	if err := requireCaller(caller); err != nil {
		return models.Playlist{}, err
	}
	playlist, err := s.ownedPlaylist(ctx, caller, playlistID, "modify this playlist")
	if err != nil {
		return models.Playlist{}, err
	}
	if _, err := s.store.FindVideo(ctx, videoID); err != nil {
		return models.Playlist{}, lookupError(err, "video")
	}

	if err := s.store.AddPlaylistVideo(ctx, playlist.ID, videoID); err != nil {
		return models.Playlist{}, writeError(err, "playlist")
	}
	if !playlist.Contains(videoID) {
		playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	}
	return playlist, nil
}

// RemoveVideoFromPlaylist drops a video. Removing a video that is not in the
// playlist fails with apperr.ErrNotFound.
func (s *Service) RemoveVideoFromPlaylist(ctx context.Context, caller, playlistID, videoID models.ID) (models.Playlist, error) {
	if err := requireCaller(caller); err != nil {
		return models.Playlist{}, err
	}
	playlist, err := s.ownedPlaylist(ctx, caller, playlistID, "modify this playlist")
	if err != nil {
		return models.Playlist{}, err
	}

	removed, err := s.store.RemovePlaylistVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return models.Playlist{}, writeError(err, "playlist")
	}
	if !removed {
		return models.Playlist{}, apperr.NotFound("video is not in the playlist")
	}

	kept := playlist.VideoIDs[:0]
	for _, id := range playlist.VideoIDs {
		if id != videoID {
			kept = append(kept, id)
		}
	}
	playlist.VideoIDs = kept
	return playlist, nil
}

func (s *Service) ownedPlaylist(ctx context.Context, caller, playlistID models.ID, action string) (models.Playlist, error) {
	playlist, err := s.store.FindPlaylist(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, lookupError(err, "playlist")
	}
	if err := policy.RequireOwner(caller, playlist, action); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}
