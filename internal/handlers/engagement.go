package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// EngagementHandler implements like, subscription and dashboard endpoints.
type EngagementHandler struct {
	Engagement EngagementService
	Views      ViewService
}

type likeResponse struct {
	IsLiked bool          `json:"isLiked"`
	Target  models.Target `json:"target"`
}

type subscriptionResponse struct {
	IsSubscribed bool      `json:"isSubscribed"`
	ChannelID    models.ID `json:"channelId"`
}

// ToggleLike handles POST /api/v1/likes/{kind}/{targetId}.
func (h EngagementHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseTargetKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, apperr.Validation("%s", err.Error()))
		return
	}
	targetID, err := pathID(r, "targetId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.Engagement.ToggleLike(r.Context(), auth.CallerID(r.Context()), kind, targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	message := string(kind) + " unliked"
	if result.Active {
		message = string(kind) + " liked"
	}
	respond(r.Context(), w, http.StatusOK, likeResponse{IsLiked: result.Active, Target: result.Target}, message)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h EngagementHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	page, err := h.Views.LikedVideos(r.Context(), auth.CallerID(r.Context()), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "liked videos fetched successfully")
}

// ToggleSubscription handles POST /api/v1/subscriptions/c/{channelId}.
func (h EngagementHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.Engagement.ToggleSubscription(r.Context(), auth.CallerID(r.Context()), channelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	message := "unsubscribed successfully"
	if result.Active {
		message = "subscribed successfully"
	}
	respond(r.Context(), w, http.StatusOK, subscriptionResponse{IsSubscribed: result.Active, ChannelID: channelID}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}/subscribers.
func (h EngagementHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Views.ChannelSubscribers(r.Context(), channelID, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "subscribers fetched successfully")
}

// Subscriptions handles GET /api/v1/subscriptions/u/{subscriberId}/channels.
func (h EngagementHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Views.SubscribedChannels(r.Context(), subscriberID, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "subscribed channels fetched successfully")
}

// ChannelStats handles GET /api/v1/dashboard/channels/{channelId}/stats.
func (h EngagementHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.Views.ChannelStats(r.Context(), channelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, stats, "channel stats fetched successfully")
}

// ChannelVideos handles GET /api/v1/dashboard/channels/{channelId}/videos.
func (h EngagementHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Views.ChannelVideos(r.Context(), channelID, auth.CallerID(r.Context()), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "channel videos fetched successfully")
}
