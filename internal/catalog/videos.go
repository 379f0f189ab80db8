package catalog

import (
	"context"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/policy"
	"github.com/vidtube/backend/internal/storage"
)

// PublishInput describes a new upload. VideoPath and ThumbnailPath point at
// temporary local files; the thumbnail is optional.
type PublishInput struct {
	Title         string
	Description   string
	Duration      float64
	VideoPath     string
	ThumbnailPath string
}

// UpdateVideoInput lists the editable fields of a video. Empty values are left unchanged.
type UpdateVideoInput struct {
	Title         string
	Description   string
	ThumbnailPath string
}

// PublishVideo uploads the media and stores a published video owned by caller.
func (s *Service) PublishVideo(ctx context.Context, caller models.ID, in PublishInput) (models.Video, error) {
	if err := requireCaller(caller); err != nil {
		return models.Video{}, err
	}
	title, okTitle := required(in.Title)
	description, okDescription := required(in.Description)
	if !okTitle || !okDescription {
		return models.Video{}, apperr.Validation("title and description are required")
	}
	if strings.TrimSpace(in.VideoPath) == "" {
		return models.Video{}, apperr.Validation("video file is required")
	}
	if in.Duration < 0 {
		return models.Video{}, apperr.Validation("duration must not be negative")
	}

	file, err := s.media.Upload(ctx, in.VideoPath)
	if err != nil {
		return models.Video{}, err
	}
	var thumbnail storage.Asset
	if strings.TrimSpace(in.ThumbnailPath) != "" {
		if thumbnail, err = s.media.Upload(ctx, in.ThumbnailPath); err != nil {
			s.discard(ctx, file.PublicID)
			return models.Video{}, err
		}
	}

	now := s.now()
	video := models.Video{
		ID:                models.NewID(),
		OwnerID:           caller,
		Title:             title,
		Description:       description,
		VideoFile:         file.URL,
		VideoPublicID:     file.PublicID,
		Thumbnail:         thumbnail.URL,
		ThumbnailPublicID: thumbnail.PublicID,
		Duration:          in.Duration,
		IsPublished:       true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateVideo(ctx, video); err != nil {
		s.discard(ctx, file.PublicID, thumbnail.PublicID)
		return models.Video{}, writeError(err, "video")
	}

	logging.FromContext(ctx).Info("video published", "video_id", video.ID.String(), "owner_id", caller.String())
	return video, nil
}

// GetVideo returns a video with its owner's profile and records the view. Unpublished
// videos are visible to their owner only. Authenticated viewers get the video moved
// to the end of their watch history.
func (s *Service) GetVideo(ctx context.Context, caller, videoID models.ID) (models.VideoView, error) {
	video, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return models.VideoView{}, lookupError(err, "video")
	}
	if !video.IsPublished && !policy.IsAuthorized(caller, video) {
		return models.VideoView{}, apperr.Forbidden("video is not published")
	}

	owner, err := s.store.FindUserByID(ctx, video.OwnerID)
	if err != nil {
		return models.VideoView{}, lookupError(err, "video owner")
	}

	if err := s.store.IncrementVideoViews(ctx, video.ID); err != nil {
		return models.VideoView{}, writeError(err, "video")
	}
	video.Views++

	if !caller.IsZero() {
		if err := s.store.RecordWatch(ctx, caller, video.ID); err != nil {
			return models.VideoView{}, writeError(err, "watch history")
		}
	}

	return models.VideoView{Video: video, OwnerProfile: owner.Profile()}, nil
}

// UpdateVideo edits title, description and thumbnail. At least one must be given.
func (s *Service) UpdateVideo(ctx context.Context, caller, videoID models.ID, in UpdateVideoInput) (models.Video, error) {
	if err := requireCaller(caller); err != nil {
		return models.Video{}, err
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" && description == "" && strings.TrimSpace(in.ThumbnailPath) == "" {
		return models.Video{}, apperr.Validation("at least one field is required")
	}

	video, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return models.Video{}, lookupError(err, "video")
	}
	if err := policy.RequireOwner(caller, video, "update this video"); err != nil {
		return models.Video{}, err
	}

	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}
	var uploaded, previousThumbnail string
	if strings.TrimSpace(in.ThumbnailPath) != "" {
		thumbnail, err := s.media.Upload(ctx, in.ThumbnailPath)
		if err != nil {
			return models.Video{}, err
		}
		uploaded, previousThumbnail = thumbnail.PublicID, video.ThumbnailPublicID
		video.Thumbnail, video.ThumbnailPublicID = thumbnail.URL, thumbnail.PublicID
	}
	video.UpdatedAt = s.now()

	if err := s.store.UpdateVideo(ctx, video); err != nil {
		s.discard(ctx, uploaded)
		return models.Video{}, writeError(err, "video")
	}
	s.discard(ctx, previousThumbnail)
	return video, nil
}

// DeleteVideo removes a video with its comments, likes and playlist entries, then
// deletes its media.
func (s *Service) DeleteVideo(ctx context.Context, caller, videoID models.ID) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	video, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return lookupError(err, "video")
	}
	if err := policy.RequireOwner(caller, video, "delete this video"); err != nil {
		return err
	}

	if err := s.store.DeleteVideo(ctx, video.ID); err != nil {
		return writeError(err, "video")
	}
	s.discard(ctx, video.VideoPublicID, video.ThumbnailPublicID)

	logging.FromContext(ctx).Info("video deleted", "video_id", video.ID.String())
	return nil
}

// TogglePublish flips the published flag.
func (s *Service) TogglePublish(ctx context.Context, caller, videoID models.ID) (models.Video, error) {
	if err := requireCaller(caller); err != nil {
		return models.Video{}, err
	}
	video, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return models.Video{}, lookupError(err, "video")
	}
	if err := policy.RequireOwner(caller, video, "change this video"); err != nil {
		return models.Video{}, err
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = s.now()
	if err := s.store.UpdateVideo(ctx, video); err != nil {
		return models.Video{}, writeError(err, "video")
	}
	return video, nil
}
