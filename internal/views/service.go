// Package views computes read-side projections: channel pages, dashboards and
// paginated listings joined with owner profiles. Nothing is cached; every call
// recomputes its counts from storage.
package views

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// Store is the read surface the service aggregates over.
type Store interface {
	FindUserByID(ctx context.Context, id models.ID) (models.Identity, error)
	FindUserByUsername(ctx context.Context, username string) (models.Identity, error)
	FindVideo(ctx context.Context, id models.ID) (models.Video, error)
	FindPlaylist(ctx context.Context, id models.ID) (models.Playlist, error)

	HasRelation(ctx context.Context, key models.RelationKey) (bool, error)
	CountSubscribers(ctx context.Context, channelID models.ID) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID models.ID) (int64, error)
	CountVideos(ctx context.Context, ownerID models.ID) (int64, error)
	SumVideoViews(ctx context.Context, ownerID models.ID) (int64, error)
	CountVideoLikes(ctx context.Context, ownerID models.ID) (int64, error)

	ListVideos(ctx context.Context, filter models.VideoFilter, page models.PageRequest) ([]models.VideoView, int64, error)
	ListVideoComments(ctx context.Context, videoID models.ID, page models.PageRequest) ([]models.CommentView, int64, error)
	ListUserTweets(ctx context.Context, ownerID models.ID, page models.PageRequest) ([]models.TweetView, int64, error)
	ListUserPlaylists(ctx context.Context, ownerID models.ID, page models.PageRequest) ([]models.PlaylistView, int64, error)
	ListPlaylistVideos(ctx context.Context, playlistID models.ID) ([]models.Video, error)
	ListWatchHistory(ctx context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error)
	ListLikedVideos(ctx context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error)
	ListSubscribers(ctx context.Context, channelID models.ID, page models.PageRequest) ([]models.Profile, int64, error)
	ListSubscriptions(ctx context.Context, subscriberID models.ID, page models.PageRequest) ([]models.Profile, int64, error)
}

// Service answers aggregation queries.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	if store == nil {
		panic("views: store must not be nil")
	}
	return &Service{store: store}
}

// ChannelProfile returns the public channel page for username. IsSubscribed is
// computed for viewerID and is false for anonymous viewers.
func (s *Service) ChannelProfile(ctx context.Context, username string, viewerID models.ID) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_profile")
	defer span.End()

	canonical, err := models.CanonicalUsername(username)
	if err != nil {
		return models.ChannelProfile{}, apperr.Validation("username is invalid")
	}

	channel, err := s.store.FindUserByUsername(ctx, canonical)
	if err != nil {
		return models.ChannelProfile{}, s.anchorError(span, err, "channel")
	}

	profile := models.ChannelProfile{
		Profile:    channel.Profile(),
		Email:      channel.Email,
		CoverImage: channel.CoverImage,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile.SubscriberCount, err = s.store.CountSubscribers(gctx, channel.ID)
		return err
	})
	g.Go(func() (err error) {
		profile.SubscribedToCount, err = s.store.CountSubscriptions(gctx, channel.ID)
		return err
	})
	if !viewerID.IsZero() {
		g.Go(func() (err error) {
			key := models.RelationKey{ActorID: viewerID, Target: models.Target{Kind: models.TargetChannel, ID: channel.ID}}
			profile.IsSubscribed, err = s.store.HasRelation(gctx, key)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.Fail(err)
		return models.ChannelProfile{}, apperr.Internal(err, "failed to load channel profile")
	}

	return profile, nil
}

// ChannelStats returns the dashboard counters for channelID.
func (s *Service) ChannelStats(ctx context.Context, channelID models.ID) (models.ChannelStats, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_stats")
	defer span.End()

	if _, err := s.store.FindUserByID(ctx, channelID); err != nil {
		return models.ChannelStats{}, s.anchorError(span, err, "channel")
	}

	var stats models.ChannelStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalVideos, err = s.store.CountVideos(gctx, channelID)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalViews, err = s.store.SumVideoViews(gctx, channelID)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalLikes, err = s.store.CountVideoLikes(gctx, channelID)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalSubscribers, err = s.store.CountSubscribers(gctx, channelID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.Fail(err)
		return models.ChannelStats{}, apperr.Internal(err, "failed to load channel stats")
	}

	return stats, nil
}

// WatchHistory lists the identity's watched videos, oldest entry first.
func (s *Service) WatchHistory(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.VideoView], error) {
	ctx, span := logging.StartSpan(ctx, "views.watch_history")
	defer span.End()

	page = normalize(page)
	items, total, err := s.store.ListWatchHistory(ctx, userID, page)
	if err != nil {
		return models.Page[models.VideoView]{}, s.anchorError(span, err, "user")
	}
	return models.NewPage(page, items, total), nil
}

// LikedVideos lists the videos userID liked, most recent first.
func (s *Service) LikedVideos(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.VideoView], error) {
	ctx, span := logging.StartSpan(ctx, "views.liked_videos")
	defer span.End()

	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return models.Page[models.VideoView]{}, s.anchorError(span, err, "user")
	}

	page = normalize(page)
	items, total, err := s.store.ListLikedVideos(ctx, userID, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.VideoView]{}, apperr.Internal(err, "failed to load liked videos")
	}
	return models.NewPage(page, items, total), nil
}

// Videos searches the catalog. Unpublished videos are only listed for their owner.
func (s *Service) Videos(ctx context.Context, filter models.VideoFilter, page models.PageRequest) (models.Page[models.VideoView], error) {
	ctx, span := logging.StartSpan(ctx, "views.videos")
	defer span.End()

	if !filter.OwnerID.IsZero() {
		if _, err := s.store.FindUserByID(ctx, filter.OwnerID); err != nil {
			return models.Page[models.VideoView]{}, s.anchorError(span, err, "user")
		}
	}

	filter.PublishedOnly = true
	page = normalize(page)
	items, total, err := s.store.ListVideos(ctx, filter, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.VideoView]{}, apperr.Internal(err, "failed to list videos")
	}
	return models.NewPage(page, items, total), nil
}

// ChannelVideos lists a channel's videos newest first. The channel owner also sees
// unpublished uploads.
func (s *Service) ChannelVideos(ctx context.Context, channelID, viewerID models.ID, page models.PageRequest) (models.Page[models.VideoView], error) {
	return s.Videos(ctx, models.VideoFilter{OwnerID: channelID, ViewerID: viewerID}, page)
}

// VideoComments lists comments on a video, newest first.
func (s *Service) VideoComments(ctx context.Context, videoID models.ID, page models.PageRequest) (models.Page[models.CommentView], error) {
	ctx, span := logging.StartSpan(ctx, "views.video_comments")
	defer span.End()

	if _, err := s.store.FindVideo(ctx, videoID); err != nil {
		return models.Page[models.CommentView]{}, s.anchorError(span, err, "video")
	}

	page = normalize(page)
	items, total, err := s.store.ListVideoComments(ctx, videoID, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.CommentView]{}, apperr.Internal(err, "failed to load comments")
	}
	return models.NewPage(page, items, total), nil
}

// UserTweets lists a user's tweets, newest first.
func (s *Service) UserTweets(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.TweetView], error) {
	ctx, span := logging.StartSpan(ctx, "views.user_tweets")
	defer span.End()

	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return models.Page[models.TweetView]{}, s.anchorError(span, err, "user")
	}

	page = normalize(page)
	items, total, err := s.store.ListUserTweets(ctx, userID, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.TweetView]{}, apperr.Internal(err, "failed to load tweets")
	}
	return models.NewPage(page, items, total), nil
}

// UserPlaylists lists a user's playlists, newest first.
func (s *Service) UserPlaylists(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.PlaylistView], error) {
	ctx, span := logging.StartSpan(ctx, "views.user_playlists")
	defer span.End()

	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return models.Page[models.PlaylistView]{}, s.anchorError(span, err, "user")
	}

	page = normalize(page)
	items, total, err := s.store.ListUserPlaylists(ctx, userID, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.PlaylistView]{}, apperr.Internal(err, "failed to load playlists")
	}
	return models.NewPage(page, items, total), nil
}

// Playlist returns a playlist with its owner and videos in stored order. An empty
// playlist is a valid result.
func (s *Service) Playlist(ctx context.Context, playlistID models.ID) (models.PlaylistView, error) {
	ctx, span := logging.StartSpan(ctx, "views.playlist")
	defer span.End()

	playlist, err := s.store.FindPlaylist(ctx, playlistID)
	if err != nil {
		return models.PlaylistView{}, s.anchorError(span, err, "playlist")
	}

	view := models.PlaylistView{Playlist: playlist, Videos: []models.Video{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		owner, err := s.store.FindUserByID(gctx, playlist.OwnerID)
		if err != nil {
			return err
		}
		view.OwnerProfile = owner.Profile()
		return nil
	})
	g.Go(func() error {
		videos, err := s.store.ListPlaylistVideos(gctx, playlistID)
		if err != nil {
			return err
		}
		if videos != nil {
			view.Videos = videos
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.PlaylistView{}, apperr.NotFound("playlist not found")
		}
		span.Fail(err)
		return models.PlaylistView{}, apperr.Internal(err, "failed to load playlist")
	}

	return view, nil
}

// ChannelSubscribers lists the profiles subscribed to channelID.
func (s *Service) ChannelSubscribers(ctx context.Context, channelID models.ID, page models.PageRequest) (models.Page[models.Profile], error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_subscribers")
	defer span.End()

	if _, err := s.store.FindUserByID(ctx, channelID); err != nil {
		return models.Page[models.Profile]{}, s.anchorError(span, err, "channel")
	}

	page = normalize(page)
	items, total, err := s.store.ListSubscribers(ctx, channelID, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.Profile]{}, apperr.Internal(err, "failed to load subscribers")
	}
	return models.NewPage(page, items, total), nil
}

// SubscribedChannels lists the channels subscriberID follows.
func (s *Service) SubscribedChannels(ctx context.Context, subscriberID models.ID, page models.PageRequest) (models.Page[models.Profile], error) {
	ctx, span := logging.StartSpan(ctx, "views.subscribed_channels")
	defer span.End()

	if _, err := s.store.FindUserByID(ctx, subscriberID); err != nil {
		return models.Page[models.Profile]{}, s.anchorError(span, err, "user")
	}

	page = normalize(page)
	items, total, err := s.store.ListSubscriptions(ctx, subscriberID, page)
	if err != nil {
		span.Fail(err)
		return models.Page[models.Profile]{}, apperr.Internal(err, "failed to load subscriptions")
	}
	return models.NewPage(page, items, total), nil
}

// anchorError maps a failed anchor lookup to NotFound or Internal.
func (s *Service) anchorError(span *logging.Span, err error, what string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	span.Fail(err)
	return apperr.Internal(err, "failed to load %s", what)
}

func normalize(page models.PageRequest) models.PageRequest {
	return models.NewPageRequest(page.Page, page.Limit)
}
