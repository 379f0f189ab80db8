package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts   AccountService
	Catalog    CatalogService
	Views      ViewService
	Engagement EngagementService
	Guard      middleware.IdentityResolver
	// Limiter throttles credential endpoints; nil disables throttling.
	Limiter      middleware.RateLimiter
	Health       map[string]HealthChecker
	Uploads      config.UploadConfig
	CookieSecure bool
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checks: deps.Health}
	accounts := AccountHandler{Accounts: deps.Accounts, Views: deps.Views, Uploads: deps.Uploads, CookieSecure: deps.CookieSecure}
	videos := VideoHandler{Catalog: deps.Catalog, Views: deps.Views, Uploads: deps.Uploads}
	tweets := TweetHandler{Catalog: deps.Catalog, Views: deps.Views}
	playlists := PlaylistHandler{Catalog: deps.Catalog, Views: deps.Views}
	engagement := EngagementHandler{Engagement: deps.Engagement, Views: deps.Views}

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Authenticate(deps.Guard, writeError)(h)
	}
	optional := func(h http.HandlerFunc) http.Handler {
		return middleware.OptionalAuthenticate(deps.Guard)(h)
	}
	limited := func(scope string, h http.Handler) http.Handler {
		return middleware.RateLimit(deps.Limiter, scope, writeRateLimited)(h)
	}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("GET /api/v1/healthcheck", health.Handle)

	mux.Handle("POST /api/v1/users/register", limited("register", http.HandlerFunc(accounts.Register)))
	mux.Handle("POST /api/v1/users/login", limited("login", http.HandlerFunc(accounts.Login)))
	mux.Handle("POST /api/v1/users/refresh-token", limited("refresh", http.HandlerFunc(accounts.Refresh)))
	mux.Handle("POST /api/v1/users/logout", authed(accounts.Logout))
	mux.Handle("POST /api/v1/users/change-password", authed(accounts.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", authed(accounts.Current))
	mux.Handle("PATCH /api/v1/users/update-account", authed(accounts.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", authed(accounts.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", authed(accounts.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/c/{username}", optional(accounts.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", authed(accounts.WatchHistory))

	mux.Handle("GET /api/v1/videos", optional(videos.List))
	mux.Handle("POST /api/v1/videos", authed(videos.Publish))
	mux.Handle("GET /api/v1/videos/{videoId}", optional(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", authed(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", authed(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/toggle/publish/{videoId}", authed(videos.TogglePublish))
	mux.Handle("GET /api/v1/videos/{videoId}/comments", optional(videos.Comments))
	mux.Handle("POST /api/v1/videos/{videoId}/comments", authed(videos.AddComment))
	mux.Handle("PATCH /api/v1/videos/{videoId}/comments/{commentId}", authed(videos.UpdateComment))
	mux.Handle("DELETE /api/v1/videos/{videoId}/comments/{commentId}", authed(videos.DeleteComment))

	mux.Handle("POST /api/v1/tweets", authed(tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", optional(tweets.ListForUser))
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", authed(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", authed(tweets.Delete))

	mux.Handle("POST /api/v1/playlists", authed(playlists.Create))
	mux.Handle("GET /api/v1/playlists/user/{userId}", optional(playlists.ListForUser))
	mux.Handle("GET /api/v1/playlists/{playlistId}", optional(playlists.Get))
	mux.Handle("PATCH /api/v1/playlists/{playlistId}", authed(playlists.Update))
	mux.Handle("DELETE /api/v1/playlists/{playlistId}", authed(playlists.Delete))
	mux.Handle("POST /api/v1/playlists/{playlistId}/videos/{videoId}", authed(playlists.AddVideo))
	mux.Handle("DELETE /api/v1/playlists/{playlistId}/videos/{videoId}", authed(playlists.RemoveVideo))

	mux.Handle("POST /api/v1/likes/{kind}/{targetId}", authed(engagement.ToggleLike))
	mux.Handle("GET /api/v1/likes/videos", authed(engagement.LikedVideos))

	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", authed(engagement.ToggleSubscription))
	mux.Handle("GET /api/v1/subscriptions/c/{channelId}/subscribers", authed(engagement.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/u/{subscriberId}/channels", authed(engagement.Subscriptions))

	mux.Handle("GET /api/v1/dashboard/channels/{channelId}/stats", authed(engagement.ChannelStats))
	mux.Handle("GET /api/v1/dashboard/channels/{channelId}/videos", authed(engagement.ChannelVideos))
}
