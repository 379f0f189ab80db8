package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// envelope is the body shape of every API response.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthRequired, apperr.KindAuthInvalid:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := envelope{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

// writeError renders err with the status of its kind. Internal causes are logged and
// never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusFor(err)
	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "error", err)
	default:
		logger.Warn("request returned client error", "status", status, "error", err)
	}
	respond(ctx, w, status, nil, apperr.MessageOf(err))
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	respond(r.Context(), w, http.StatusTooManyRequests, nil, "too many requests, try again later")
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

// pathID parses the named path wildcard as an id.
func pathID(r *http.Request, name string) (models.ID, error) {
	id, err := models.ParseID(strings.TrimSpace(r.PathValue(name)))
	if err != nil {
		return models.NilID, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

func pageFrom(r *http.Request) models.PageRequest {
	q := r.URL.Query()
	return models.ParsePageRequest(q.Get("page"), q.Get("limit"))
}
