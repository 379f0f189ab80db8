package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
)

const refreshTokenCookie = "refreshToken"

// AccountHandler implements registration, session and profile endpoints.
type AccountHandler struct {
	Accounts     AccountService
	Views        ViewService
	Uploads      config.UploadConfig
	CookieSecure bool
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User         models.Identity `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register (multipart with avatar and optional coverImage).
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	upload, err := parseMultipart(w, r, h.Uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer upload.cleanup()

	avatar, err := upload.file("avatar")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cover, err := upload.file("coverImage")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Accounts.Register(r.Context(), accounts.RegisterInput{
		Username:   upload.value("username"),
		Email:      upload.value("email"),
		FullName:   upload.value("fullName"),
		Password:   upload.value("password"),
		AvatarPath: avatar,
		CoverPath:  cover,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, tokens, err := h.Accounts.Login(r.Context(), accounts.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond(r.Context(), w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.Logout(r.Context(), auth.CallerID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	h.clearSessionCookies(w)
	respond(r.Context(), w, http.StatusOK, struct{}{}, "user logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The token comes from the cookie
// or the JSON body.
func (h AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}

	tokens, err := h.Accounts.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond(r.Context(), w, http.StatusOK, tokens, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Accounts.ChangePassword(r.Context(), auth.CallerID(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, struct{}{}, "password changed successfully")
}

// Current handles GET /api/v1/users/current-user.
func (h AccountHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, err := h.Accounts.Current(r.Context(), auth.CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Accounts.UpdateDetails(r.Context(), auth.CallerID(r.Context()), req.FullName, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, user, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, identityID models.ID, localPath string) (models.Identity, error)

func (h AccountHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater) {
	upload, err := parseMultipart(w, r, h.Uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer upload.cleanup()

	path, err := upload.file(field)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if path == "" {
		writeError(w, r, apperr.Validation("%s file is missing", field))
		return
	}

	user, err := update(r.Context(), auth.CallerID(r.Context()), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, user, field+" updated successfully")
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h AccountHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Views.ChannelProfile(r.Context(), r.PathValue("username"), auth.CallerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h AccountHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	page, err := h.Views.WatchHistory(r.Context(), auth.CallerID(r.Context()), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(r.Context(), w, http.StatusOK, page, "watch history fetched successfully")
}

func (h AccountHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h AccountHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		cookie := h.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (h AccountHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
