package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/catalog"
	"github.com/vidtube/backend/internal/engagement"
	"github.com/vidtube/backend/internal/models"
)

// AccountService captures the identity workflows used by the account handlers.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (models.Identity, error)
	Login(ctx context.Context, in accounts.LoginInput) (models.Identity, models.SessionTokens, error)
	Logout(ctx context.Context, identityID models.ID) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, identityID models.ID, oldPassword, newPassword string) error
	Current(ctx context.Context, identityID models.ID) (models.Identity, error)
	UpdateDetails(ctx context.Context, identityID models.ID, fullName, email string) (models.Identity, error)
	UpdateAvatar(ctx context.Context, identityID models.ID, localPath string) (models.Identity, error)
	UpdateCoverImage(ctx context.Context, identityID models.ID, localPath string) (models.Identity, error)
}

// CatalogService captures the content mutations.
type CatalogService interface {
	PublishVideo(ctx context.Context, caller models.ID, in catalog.PublishInput) (models.Video, error)
	GetVideo(ctx context.Context, caller, videoID models.ID) (models.VideoView, error)
	UpdateVideo(ctx context.Context, caller, videoID models.ID, in catalog.UpdateVideoInput) (models.Video, error)
	DeleteVideo(ctx context.Context, caller, videoID models.ID) error
	TogglePublish(ctx context.Context, caller, videoID models.ID) (models.Video, error)

	AddComment(ctx context.Context, caller, videoID models.ID, content string) (models.Comment, error)
	UpdateComment(ctx context.Context, caller, commentID models.ID, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, caller, videoID, commentID models.ID) error

	CreateTweet(ctx context.Context, caller models.ID, content string) (models.Tweet, error)
	UpdateTweet(ctx context.Context, caller, tweetID models.ID, content string) (models.Tweet, error)
	DeleteTweet(ctx context.Context, caller, tweetID models.ID) error

	CreatePlaylist(ctx context.Context, caller models.ID, name, description string) (models.Playlist, error)
	UpdatePlaylist(ctx context.Context, caller, playlistID models.ID, name, description string) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, caller, playlistID models.ID) error
	AddVideoToPlaylist(ctx context.Context, caller, playlistID, videoID models.ID) (models.Playlist, error)
	RemoveVideoFromPlaylist(ctx context.Context, caller, playlistID, videoID models.ID) (models.Playlist, error)
}

// ViewService captures the read-side projections.
type ViewService interface {
	ChannelProfile(ctx context.Context, username string, viewerID models.ID) (models.ChannelProfile, error)
	ChannelStats(ctx context.Context, channelID models.ID) (models.ChannelStats, error)
	WatchHistory(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.VideoView], error)
	LikedVideos(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.VideoView], error)
	Videos(ctx context.Context, filter models.VideoFilter, page models.PageRequest) (models.Page[models.VideoView], error)
	ChannelVideos(ctx context.Context, channelID, viewerID models.ID, page models.PageRequest) (models.Page[models.VideoView], error)
	VideoComments(ctx context.Context, videoID models.ID, page models.PageRequest) (models.Page[models.CommentView], error)
	UserTweets(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.TweetView], error)
	UserPlaylists(ctx context.Context, userID models.ID, page models.PageRequest) (models.Page[models.PlaylistView], error)
	Playlist(ctx context.Context, playlistID models.ID) (models.PlaylistView, error)
	ChannelSubscribers(ctx context.Context, channelID models.ID, page models.PageRequest) (models.Page[models.Profile], error)
	SubscribedChannels(ctx context.Context, subscriberID models.ID, page models.PageRequest) (models.Page[models.Profile], error)
}

// EngagementService toggles likes and subscriptions.
type EngagementService interface {
	ToggleLike(ctx context.Context, actorID models.ID, kind models.TargetKind, targetID models.ID) (engagement.Result, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID models.ID) (engagement.Result, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
