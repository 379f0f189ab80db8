package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// contractStore is the surface exercised against every backend.
type contractStore interface {
	CreateUser(ctx context.Context, user models.Identity) error
	FindUserByID(ctx context.Context, id models.ID) (models.Identity, error)
	FindUserByUsername(ctx context.Context, username string) (models.Identity, error)
	FindUserByLogin(ctx context.Context, username, email string) (models.Identity, error)
	UpdateUserDetails(ctx context.Context, id models.ID, fullName, email string, at time.Time) error
	UpdateUserPassword(ctx context.Context, id models.ID, digest string, at time.Time) error
	UpdateUserImage(ctx context.Context, id models.ID, image models.ProfileImage, url, publicID string, at time.Time) (string, error)
	SetRefreshToken(ctx context.Context, id models.ID, token string) error
	SwapRefreshToken(ctx context.Context, id models.ID, current, next string) error
	ClearRefreshToken(ctx context.Context, id models.ID) error
	RecordWatch(ctx context.Context, userID, videoID models.ID) error

	CreateVideo(ctx context.Context, video models.Video) error
	FindVideo(ctx context.Context, id models.ID) (models.Video, error)
	UpdateVideo(ctx context.Context, video models.Video) error
	IncrementVideoViews(ctx context.Context, id models.ID) error
	DeleteVideo(ctx context.Context, id models.ID) error
	ListVideos(ctx context.Context, filter models.VideoFilter, page models.PageRequest) ([]models.VideoView, int64, error)

	CreateComment(ctx context.Context, comment models.Comment) error
	FindComment(ctx context.Context, id models.ID) (models.Comment, error)
	ListVideoComments(ctx context.Context, videoID models.ID, page models.PageRequest) ([]models.CommentView, int64, error)
	CreateTweet(ctx context.Context, tweet models.Tweet) error
	DeleteTweet(ctx context.Context, id models.ID) error

	CreatePlaylist(ctx context.Context, playlist models.Playlist) error
	FindPlaylist(ctx context.Context, id models.ID) (models.Playlist, error)
	AddPlaylistVideo(ctx context.Context, playlistID, videoID models.ID) error
	RemovePlaylistVideo(ctx context.Context, playlistID, videoID models.ID) (bool, error)
	ListPlaylistVideos(ctx context.Context, playlistID models.ID) ([]models.Video, error)

	HasRelation(ctx context.Context, key models.RelationKey) (bool, error)
	CreateRelation(ctx context.Context, relation models.Relation) error
	DeleteRelation(ctx context.Context, key models.RelationKey) (bool, error)
	TargetExists(ctx context.Context, target models.Target) (bool, error)
	CountSubscribers(ctx context.Context, channelID models.ID) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID models.ID) (int64, error)
	CountVideos(ctx context.Context, ownerID models.ID) (int64, error)
	SumVideoViews(ctx context.Context, ownerID models.ID) (int64, error)
	CountVideoLikes(ctx context.Context, ownerID models.ID) (int64, error)
	ListWatchHistory(ctx context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error)
	ListLikedVideos(ctx context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error)
	ListSubscribers(ctx context.Context, channelID models.ID, page models.PageRequest) ([]models.Profile, int64, error)
}

var (
	_ contractStore = (*MemoryStore)(nil)
	_ contractStore = (*PostgresStore)(nil)
)

// runStoreContract checks the behaviour every backend must share. open returns a
// store with no rows.
func runStoreContract(t *testing.T, open func(t *testing.T) contractStore) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("refresh tokens", func(t *testing.T) { testRefreshTokens(t, open(t)) })
	t.Run("videos", func(t *testing.T) { testVideos(t, open(t)) })
	t.Run("relations", func(t *testing.T) { testRelations(t, open(t)) })
	t.Run("playlists", func(t *testing.T) { testPlaylists(t, open(t)) })
	t.Run("watch history", func(t *testing.T) { testWatchHistory(t, open(t)) })
}

var fixtureClock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newUser(t *testing.T, s contractStore, username string) models.Identity {
	t.Helper()
	user := models.Identity{
		ID:             models.NewID(),
		Username:       username,
		Email:          username + "@example.com",
		FullName:       "User " + username,
		PasswordHash:   "hash",
		Avatar:         "https://cdn.test/" + username,
		AvatarPublicID: "avatars/" + username,
		CreatedAt:      fixtureClock,
		UpdatedAt:      fixtureClock,
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func newVideo(t *testing.T, s contractStore, owner models.ID, title string, offset time.Duration, published bool) models.Video {
	t.Helper()
	video := models.Video{
		ID:          models.NewID(),
		OwnerID:     owner,
		Title:       title,
		Description: "about " + title,
		VideoFile:   "https://cdn.test/" + title,
		Duration:    10,
		IsPublished: published,
		CreatedAt:   fixtureClock.Add(offset),
		UpdatedAt:   fixtureClock.Add(offset),
	}
	if err := s.CreateVideo(context.Background(), video); err != nil {
		t.Fatalf("create video %s: %v", title, err)
	}
	return video
}

func testUsers(t *testing.T, s contractStore) {
	ctx := context.Background()
	alice := newUser(t, s, "alice")

	dup := alice
	dup.ID = models.NewID()
	dup.Email = "other@example.com"
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}
	dup.Username = "other"
	dup.Email = alice.Email
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	byLogin, err := s.FindUserByLogin(ctx, "", alice.Email)
	if err != nil || byLogin.ID != alice.ID {
		t.Fatalf("find by email: %+v %v", byLogin, err)
	}
	byLogin, err = s.FindUserByLogin(ctx, "alice", "")
	if err != nil || byLogin.ID != alice.ID || byLogin.PasswordHash != "hash" {
		t.Fatalf("find by username: %+v %v", byLogin, err)
	}
	if _, err := s.FindUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	later := fixtureClock.Add(time.Hour)
	if err := s.UpdateUserDetails(ctx, alice.ID, "Alice A", "alice.a@example.com", later); err != nil {
		t.Fatalf("update details: %v", err)
	}
	if err := s.UpdateUserPassword(ctx, alice.ID, "hash-2", later); err != nil {
		t.Fatalf("update password: %v", err)
	}
	previous, err := s.UpdateUserImage(ctx, alice.ID, models.ImageAvatar, "https://cdn.test/a2", "a2", later)
	if err != nil || previous != alice.AvatarPublicID {
		t.Fatalf("expected previous avatar %q, got %q %v", alice.AvatarPublicID, previous, err)
	}
	if previous, err := s.UpdateUserImage(ctx, alice.ID, models.ImageCover, "https://cdn.test/c1", "c1", later); err != nil || previous != alice.CoverPublicID {
		t.Fatalf("expected previous cover %q, got %q %v", alice.CoverPublicID, previous, err)
	}

	got, err := s.FindUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if got.FullName != "Alice A" || got.Email != "alice.a@example.com" || got.PasswordHash != "hash-2" {
		t.Fatalf("expected details and password to persist, got %+v", got)
	}
	if got.Avatar != "https://cdn.test/a2" || got.AvatarPublicID != "a2" || got.CoverPublicID != "c1" {
		t.Fatalf("expected images to persist, got %+v", got)
	}

	bob := newUser(t, s, "bob")
	if err := s.UpdateUserDetails(ctx, alice.ID, "Alice", bob.Email, later); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for a taken email, got %v", err)
	}

	ghost := models.NewID()
	if err := s.UpdateUserDetails(ctx, ghost, "Ghost", "ghost@example.com", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
	if err := s.UpdateUserPassword(ctx, ghost, "x", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user password, got %v", err)
	}
	if _, err := s.UpdateUserImage(ctx, ghost, models.ImageAvatar, "u", "p", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user image, got %v", err)
	}
}

func testRefreshTokens(t *testing.T, s contractStore) {
	ctx := context.Background()
	alice := newUser(t, s, "alice")

	if err := s.SwapRefreshToken(ctx, alice.ID, "", "first"); !errors.Is(err, auth.ErrTokenStale) {
		t.Fatalf("expected stale swap without a stored token, got %v", err)
	}
	if err := s.SetRefreshToken(ctx, alice.ID, "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SwapRefreshToken(ctx, alice.ID, "first", "second"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := s.SwapRefreshToken(ctx, alice.ID, "first", "third"); !errors.Is(err, auth.ErrTokenStale) {
		t.Fatalf("expected reused token to be stale, got %v", err)
	}
	got, _ := s.FindUserByID(ctx, alice.ID)
	if got.RefreshToken != "second" {
		t.Fatalf("expected stored token second, got %q", got.RefreshToken)
	}

	if err := s.ClearRefreshToken(ctx, alice.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.SwapRefreshToken(ctx, alice.ID, "second", "fourth"); !errors.Is(err, auth.ErrTokenStale) {
		t.Fatalf("expected stale after clear, got %v", err)
	}
	if err := s.SetRefreshToken(ctx, models.NewID(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identity, got %v", err)
	}
}

func testVideos(t *testing.T, s contractStore) {
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")

	older := newVideo(t, s, alice.ID, "Cooking pasta", 0, true)
	newer := newVideo(t, s, alice.ID, "Fixing bikes", time.Hour, true)
	draft := newVideo(t, s, alice.ID, "Draft cut", 2*time.Hour, false)

	if err := s.CreateVideo(ctx, models.Video{ID: models.NewID(), OwnerID: models.NewID(), Title: "x", CreatedAt: fixtureClock, UpdatedAt: fixtureClock}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown owner, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementVideoViews(ctx, older.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := s.IncrementVideoViews(ctx, models.NewID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound incrementing missing video, got %v", err)
	}

	page := models.NewPageRequest(1, 10)
	views, total, err := s.ListVideos(ctx, models.VideoFilter{PublishedOnly: true, ViewerID: bob.ID}, page)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(views) != 2 || views[0].ID != newer.ID || views[1].ID != older.ID {
		t.Fatalf("expected published videos newest first, got total=%d %+v", total, views)
	}
	if views[0].OwnerProfile.Username != "alice" {
		t.Fatalf("expected owner profile to be joined, got %+v", views[0].OwnerProfile)
	}

	views, total, _ = s.ListVideos(ctx, models.VideoFilter{PublishedOnly: true, ViewerID: alice.ID}, page)
	if total != 3 || views[0].ID != draft.ID {
		t.Fatalf("expected owner to see the draft, got total=%d", total)
	}

	views, _, _ = s.ListVideos(ctx, models.VideoFilter{SortBy: models.SortViews}, page)
	if views[0].ID != older.ID {
		t.Fatalf("expected most viewed first, got %s", views[0].Title)
	}

	views, total, _ = s.ListVideos(ctx, models.VideoFilter{Query: "PASTA"}, page)
	if total != 1 || views[0].ID != older.ID {
		t.Fatalf("expected case-insensitive match, got total=%d", total)
	}

	_, total, _ = s.ListVideos(ctx, models.VideoFilter{}, models.NewPageRequest(2, 2))
	if total != 3 {
		t.Fatalf("expected total independent of page, got %d", total)
	}

	views, total, err = s.ListVideos(ctx, models.VideoFilter{}, models.NewPageRequest(math.MaxInt, models.MaxLimit))
	if err != nil || len(views) != 0 || total != 3 {
		t.Fatalf("expected an empty page far past the end, got %d items total=%d err=%v", len(views), total, err)
	}

	comment := models.Comment{ID: models.NewID(), VideoID: older.ID, OwnerID: bob.ID, Content: "nice", CreatedAt: fixtureClock, UpdatedAt: fixtureClock}
	if err := s.CreateComment(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	comments, total, err := s.ListVideoComments(ctx, older.ID, page)
	if err != nil || total != 1 || comments[0].OwnerProfile.Username != "bob" {
		t.Fatalf("list comments: %+v %d %v", comments, total, err)
	}

	if err := s.DeleteVideo(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindVideo(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.FindComment(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comments to go with their video, got %v", err)
	}
	if err := s.DeleteVideo(ctx, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func testRelations(t *testing.T, s contractStore) {
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	bob := newUser(t, s, "bob")
	video := newVideo(t, s, alice.ID, "clip", 0, true)
	if err := s.IncrementVideoViews(ctx, video.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}

	like := models.Relation{ActorID: bob.ID, Target: models.Target{Kind: models.TargetVideo, ID: video.ID}, CreatedAt: fixtureClock}
	sub := models.Relation{ActorID: bob.ID, Target: models.Target{Kind: models.TargetChannel, ID: alice.ID}, CreatedAt: fixtureClock}

	for _, rel := range []models.Relation{like, sub} {
		if err := s.CreateRelation(ctx, rel); err != nil {
			t.Fatalf("create %s: %v", rel.Target, err)
		}
		if err := s.CreateRelation(ctx, rel); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict for second %s, got %v", rel.Target, err)
		}
		if ok, err := s.HasRelation(ctx, rel.Key()); err != nil || !ok {
			t.Fatalf("expected %s to exist: %v", rel.Target, err)
		}
	}

	checks := []struct {
		name  string
		count func() (int64, error)
		want  int64
	}{
		{"subscribers", func() (int64, error) { return s.CountSubscribers(ctx, alice.ID) }, 1},
		{"subscriptions", func() (int64, error) { return s.CountSubscriptions(ctx, bob.ID) }, 1},
		{"videos", func() (int64, error) { return s.CountVideos(ctx, alice.ID) }, 1},
		{"views", func() (int64, error) { return s.SumVideoViews(ctx, alice.ID) }, 1},
		{"likes", func() (int64, error) { return s.CountVideoLikes(ctx, alice.ID) }, 1},
		{"empty channel views", func() (int64, error) { return s.SumVideoViews(ctx, bob.ID) }, 0},
	}
	for _, c := range checks {
		got, err := c.count()
		if err != nil || got != c.want {
			t.Fatalf("%s: expected %d, got %d (%v)", c.name, c.want, got, err)
		}
	}

	liked, total, err := s.ListLikedVideos(ctx, bob.ID, models.NewPageRequest(1, 10))
	if err != nil || total != 1 || liked[0].ID != video.ID {
		t.Fatalf("liked videos: %+v %d %v", liked, total, err)
	}
	subscribers, total, err := s.ListSubscribers(ctx, alice.ID, models.NewPageRequest(1, 10))
	if err != nil || total != 1 || subscribers[0].Username != "bob" {
		t.Fatalf("subscribers: %+v %d %v", subscribers, total, err)
	}

	if removed, err := s.DeleteRelation(ctx, like.Key()); err != nil || !removed {
		t.Fatalf("delete like: %v %v", removed, err)
	}
	if removed, err := s.DeleteRelation(ctx, like.Key()); err != nil || removed {
		t.Fatalf("expected second delete to report absence: %v %v", removed, err)
	}

	exists, err := s.TargetExists(ctx, models.Target{Kind: models.TargetTweet, ID: video.ID})
	if err != nil || exists {
		t.Fatalf("expected tweet target to be missing: %v %v", exists, err)
	}
	exists, err = s.TargetExists(ctx, models.Target{Kind: models.TargetChannel, ID: alice.ID})
	if err != nil || !exists {
		t.Fatalf("expected channel target to exist: %v %v", exists, err)
	}

	tweet := models.Tweet{ID: models.NewID(), OwnerID: alice.ID, Content: "hi", CreatedAt: fixtureClock, UpdatedAt: fixtureClock}
	if err := s.CreateTweet(ctx, tweet); err != nil {
		t.Fatalf("create tweet: %v", err)
	}
	tweetLike := models.Relation{ActorID: bob.ID, Target: models.Target{Kind: models.TargetTweet, ID: tweet.ID}, CreatedAt: fixtureClock}
	if err := s.CreateRelation(ctx, tweetLike); err != nil {
		t.Fatalf("like tweet: %v", err)
	}
	if err := s.DeleteTweet(ctx, tweet.ID); err != nil {
		t.Fatalf("delete tweet: %v", err)
	}
	if ok, _ := s.HasRelation(ctx, tweetLike.Key()); ok {
		t.Fatal("expected likes of a deleted tweet to be removed")
	}
}

func testPlaylists(t *testing.T, s contractStore) {
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	first := newVideo(t, s, alice.ID, "first", 0, true)
	second := newVideo(t, s, alice.ID, "second", time.Minute, true)

	playlist := models.Playlist{ID: models.NewID(), OwnerID: alice.ID, Name: "mix", Description: "d", CreatedAt: fixtureClock, UpdatedAt: fixtureClock}
	if err := s.CreatePlaylist(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	for _, id := range []models.ID{second.ID, first.ID, second.ID} {
		if err := s.AddPlaylistVideo(ctx, playlist.ID, id); err != nil {
			t.Fatalf("add video: %v", err)
		}
	}
	videos, err := s.ListPlaylistVideos(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("list playlist videos: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != second.ID || videos[1].ID != first.ID {
		t.Fatalf("expected insertion order without duplicates, got %+v", videos)
	}

	stored, err := s.FindPlaylist(ctx, playlist.ID)
	if err != nil || len(stored.VideoIDs) != 2 {
		t.Fatalf("find playlist: %+v %v", stored, err)
	}

	if removed, err := s.RemovePlaylistVideo(ctx, playlist.ID, second.ID); err != nil || !removed {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if removed, err := s.RemovePlaylistVideo(ctx, playlist.ID, second.ID); err != nil || removed {
		t.Fatalf("expected second remove to report absence: %v %v", removed, err)
	}
	if _, err := s.RemovePlaylistVideo(ctx, models.NewID(), first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown playlist, got %v", err)
	}
	if err := s.AddPlaylistVideo(ctx, playlist.ID, models.NewID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound adding unknown video, got %v", err)
	}
}

func testWatchHistory(t *testing.T, s contractStore) {
	ctx := context.Background()
	alice := newUser(t, s, "alice")
	var videos []models.Video
	for i := 0; i < 3; i++ {
		videos = append(videos, newVideo(t, s, alice.ID, fmt.Sprintf("v%d", i), time.Duration(i)*time.Minute, true))
	}

	for _, v := range []models.Video{videos[0], videos[1], videos[2], videos[0]} {
		if err := s.RecordWatch(ctx, alice.ID, v.ID); err != nil {
			t.Fatalf("record watch: %v", err)
		}
	}
	if err := s.RecordWatch(ctx, alice.ID, models.NewID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	history, total, err := s.ListWatchHistory(ctx, alice.ID, models.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []models.ID{videos[1].ID, videos[2].ID, videos[0].ID}
	if total != 3 || len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", total)
	}
	for i, id := range want {
		if history[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, history[i].ID)
		}
	}
}
