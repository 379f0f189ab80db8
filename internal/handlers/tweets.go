package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
)

// TweetHandler implements tweet endpoints.
type TweetHandler struct {
	Catalog CatalogService
	Views   ViewService
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tweet, err := h.Catalog.CreateTweet(r.Context(), auth.CallerID(r.Context()), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusCreated, tweet, "tweet created successfully")
}

// ListForUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Views.UserTweets(r.Context(), userID, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tweet, err := h.Catalog.UpdateTweet(r.Context(), auth.CallerID(r.Context()), tweetID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, tweet, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeleteTweet(r.Context(), auth.CallerID(r.Context()), tweetID); err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, struct{}{}, "tweet deleted successfully")
}
