package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/auth"
)

// PlaylistHandler implements playlist endpoints.
type PlaylistHandler struct {
	Catalog CatalogService
	Views   ViewService
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := h.Catalog.CreatePlaylist(r.Context(), auth.CallerID(r.Context()), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusCreated, playlist, "playlist created successfully")
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Views.UserPlaylists(r.Context(), userID, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "playlists fetched successfully")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := h.Views.Playlist(r.Context(), playlistID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, playlist, "playlist fetched successfully")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := h.Catalog.UpdatePlaylist(r.Context(), auth.CallerID(r.Context()), playlistID, req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, playlist, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeletePlaylist(r.Context(), auth.CallerID(r.Context()), playlistID); err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// AddVideo handles POST /api/v1/playlists/{playlistId}/videos/{videoId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	h.changeMembership(w, r, true)
}

// RemoveVideo handles DELETE /api/v1/playlists/{playlistId}/videos/{videoId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	h.changeMembership(w, r, false)
}

func (h PlaylistHandler) changeMembership(w http.ResponseWriter, r *http.Request, add bool) {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	caller := auth.CallerID(r.Context())
	if add {
		playlist, err := h.Catalog.AddVideoToPlaylist(r.Context(), caller, playlistID, videoID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(r.Context(), w, http.StatusOK, playlist, "video added to playlist")
		return
	}

	playlist, err := h.Catalog.RemoveVideoFromPlaylist(r.Context(), caller, playlistID, videoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, playlist, "video removed from playlist")
}
