package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/catalog"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/models"
)

// VideoHandler implements video and comment endpoints.
type VideoHandler struct {
	Catalog CatalogService
	Views   ViewService
	Uploads config.UploadConfig
}

type contentRequest struct {
	Content string `json:"content"`
}

// List handles GET /api/v1/videos?query=&sortBy=&sortType=&userId=&page=&limit=.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.VideoFilter{
		Query:     q.Get("query"),
		SortBy:    models.ParseVideoSort(q.Get("sortBy")),
		Ascending: strings.EqualFold(q.Get("sortType"), "asc"),
		ViewerID:  auth.CallerID(r.Context()),
	}
	if raw := strings.TrimSpace(q.Get("userId")); raw != "" {
		ownerID, err := models.ParseID(raw)
		if err != nil {
			writeError(w, r, apperr.Validation("invalid userId"))
			return
		}
		filter.OwnerID = ownerID
	}

	page, err := h.Views.Videos(r.Context(), filter, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos (multipart with videoFile and optional thumbnail).
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	upload, err := parseMultipart(w, r, h.Uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer upload.cleanup()

	videoFile, err := upload.file("videoFile")
	if err != nil {
		writeError(w, r, err)
		return
	}
	thumbnail, err := upload.file("thumbnail")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var duration float64
	if raw := upload.value("duration"); raw != "" {
		if duration, err = strconv.ParseFloat(raw, 64); err != nil {
			writeError(w, r, apperr.Validation("invalid duration"))
			return
		}
	}

	video, err := h.Catalog.PublishVideo(r.Context(), auth.CallerID(r.Context()), catalog.PublishInput{
		Title:         upload.value("title"),
		Description:   upload.value("description"),
		Duration:      duration,
		VideoPath:     videoFile,
		ThumbnailPath: thumbnail,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	video, err := h.Catalog.GetVideo(r.Context(), auth.CallerID(r.Context()), videoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId} (multipart with optional thumbnail).
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	upload, err := parseMultipart(w, r, h.Uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer upload.cleanup()

	thumbnail, err := upload.file("thumbnail")
	if err != nil {
		writeError(w, r, err)
		return
	}

	video, err := h.Catalog.UpdateVideo(r.Context(), auth.CallerID(r.Context()), videoID, catalog.UpdateVideoInput{
		Title:         upload.value("title"),
		Description:   upload.value("description"),
		ThumbnailPath: thumbnail,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeleteVideo(r.Context(), auth.CallerID(r.Context()), videoID); err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	video, err := h.Catalog.TogglePublish(r.Context(), auth.CallerID(r.Context()), videoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, video, "publish status toggled successfully")
}

// Comments handles GET /api/v1/videos/{videoId}/comments.
func (h VideoHandler) Comments(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Views.VideoComments(r.Context(), videoID, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "comments fetched successfully")
}

// AddComment handles POST /api/v1/videos/{videoId}/comments.
func (h VideoHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	comment, err := h.Catalog.AddComment(r.Context(), auth.CallerID(r.Context()), videoID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusCreated, comment, "comment added successfully")
}

// UpdateComment handles PATCH /api/v1/videos/{videoId}/comments/{commentId}.
func (h VideoHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "commentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	comment, err := h.Catalog.UpdateComment(r.Context(), auth.CallerID(r.Context()), commentID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, comment, "comment updated successfully")
}

// DeleteComment handles DELETE /api/v1/videos/{videoId}/comments/{commentId}.
func (h VideoHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.DeleteComment(r.Context(), auth.CallerID(r.Context()), videoID, commentID); err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, struct{}{}, "comment deleted successfully")
}
