package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/catalog"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/engagement"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/views"
)

// fakeMedia consumes uploaded files like the real stores do and hands out fake URLs.
type fakeMedia struct {
	mu    sync.Mutex
	count int
}

func (f *fakeMedia) Upload(_ context.Context, localPath string) (storage.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = os.Remove(localPath)
	f.count++
	id := fmt.Sprintf("media/%d", f.count)
	return storage.Asset{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (f *fakeMedia) Delete(context.Context, string) error { return nil }

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *repositories.MemoryStore
}

// newTestServer wires the full route table over an in-memory store. Options may
// adjust the dependencies before routes are registered.
func newTestServer(t *testing.T, opts ...func(*Dependencies)) *testServer {
	t.Helper()

	store := repositories.NewMemoryStore()
	tokens, err := auth.NewManager(auth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, store)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	media := &fakeMedia{}

	deps := Dependencies{
		Accounts:   accounts.NewService(store, media, auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens),
		Catalog:    catalog.NewService(store, media),
		Views:      views.NewService(store),
		Engagement: engagement.NewEngine(store, store),
		Guard:      auth.Guard{Tokens: tokens, Identities: store},
		Uploads:    config.UploadConfig{TempDir: t.TempDir(), MaxBytes: 1 << 20},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)
	return &testServer{t: t, handler: mux, store: store}
}

type apiResponse struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func (s *testServer) do(req *http.Request) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			s.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func (s *testServer) json(method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *testServer) multipart(method, path, token string, fields map[string]string, files map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			s.t.Fatalf("write field: %v", err)
		}
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			s.t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("file contents")); err != nil {
			s.t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		s.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

type session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// signUp registers and logs in username, returning its tokens.
func (s *testServer) signUp(username string) session {
	s.t.Helper()
	rec, resp := s.multipart(http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"fullName": "User " + username,
		"password": "correct-horse",
	}, map[string]string{"avatar": "avatar.png"})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s: status %d %s", username, rec.Code, resp.Message)
	}

	rec, resp = s.json(http.MethodPost, "/api/v1/users/login", "", map[string]string{"username": username, "password": "correct-horse"})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: status %d %s", username, rec.Code, resp.Message)
	}
	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(s.t, resp, &data)
	return session{UserID: data.User.ID, AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}
}

func decodeData(t *testing.T, resp apiResponse, dst any) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
}
