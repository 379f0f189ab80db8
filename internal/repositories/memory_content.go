package repositories

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/vidtube/backend/internal/models"
)

// CreateVideo stores a new video. The owner must exist.
func (s *MemoryStore) CreateVideo(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

// FindVideo loads a video by id.
func (s *MemoryStore) FindVideo(_ context.Context, id models.ID) (models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// UpdateVideo replaces the editable fields of a video.
func (s *MemoryStore) UpdateVideo(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.videos[video.ID]
	if !ok {
		return ErrNotFound
	}
	current.Title = video.Title
	current.Description = video.Description
	current.Thumbnail = video.Thumbnail
	current.ThumbnailPublicID = video.ThumbnailPublicID
	current.IsPublished = video.IsPublished
	current.UpdatedAt = video.UpdatedAt
	s.videos[video.ID] = current
	return nil
}

// DeleteVideo removes a video together with its comments, likes, playlist entries and
// watch history references.
func (s *MemoryStore) DeleteVideo(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[id]; !ok {
		return ErrNotFound
	}
	delete(s.videos, id)

	for commentID, comment := range s.comments {
		if comment.VideoID == id {
			s.deleteCommentLocked(commentID)
		}
	}
	s.dropTargetLocked(models.Target{Kind: models.TargetVideo, ID: id})

	for playlistID, playlist := range s.playlists {
		playlist.VideoIDs = slices.DeleteFunc(slices.Clone(playlist.VideoIDs), func(v models.ID) bool { return v == id })
		s.playlists[playlistID] = playlist
	}
	for userID, user := range s.users {
		user.WatchHistory = slices.DeleteFunc(slices.Clone(user.WatchHistory), func(v models.ID) bool { return v == id })
		s.users[userID] = user
	}
	return nil
}

// IncrementVideoViews adds one to the view counter.
func (s *MemoryStore) IncrementVideoViews(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

// ListVideos returns the filtered, sorted page of videos joined with owner profiles.
func (s *MemoryStore) ListVideos(_ context.Context, filter models.VideoFilter, page models.PageRequest) ([]models.VideoView, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Video
	for _, video := range s.videos {
		if filter.Matches(video) {
			matched = append(matched, video)
		}
	}
	sortVideos(matched, filter.SortBy, filter.Ascending)

	items, total := paginate(matched, page)
	return s.videoViews(items), total, nil
}

func (s *MemoryStore) videoViews(videos []models.Video) []models.VideoView {
	views := make([]models.VideoView, 0, len(videos))
	for _, video := range videos {
		views = append(views, models.VideoView{Video: video, OwnerProfile: s.profile(video.OwnerID)})
	}
	return views
}

func sortVideos(videos []models.Video, by models.VideoSortField, ascending bool) {
	slices.SortFunc(videos, func(a, b models.Video) int {
		var c int
		switch by {
		case models.SortViews:
			c = cmp.Compare(a.Views, b.Views)
		case models.SortTitle:
			c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case models.SortDuration:
			c = cmp.Compare(a.Duration, b.Duration)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if !ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// CreateComment stores a comment. The video and owner must exist.
func (s *MemoryStore) CreateComment(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[comment.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.videos[comment.VideoID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[comment.OwnerID]; !ok {
		return ErrNotFound
	}
	s.comments[comment.ID] = comment
	return nil
}

// FindComment loads a comment by id.
func (s *MemoryStore) FindComment(_ context.Context, id models.ID) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	return comment, nil
}

// UpdateComment replaces the comment content.
func (s *MemoryStore) UpdateComment(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.comments[comment.ID]
	if !ok {
		return ErrNotFound
	}
	current.Content = comment.Content
	current.UpdatedAt = comment.UpdatedAt
	s.comments[comment.ID] = current
	return nil
}

// DeleteComment removes a comment and the likes pointing at it.
func (s *MemoryStore) DeleteComment(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	s.deleteCommentLocked(id)
	return nil
}

func (s *MemoryStore) deleteCommentLocked(id models.ID) {
	delete(s.comments, id)
	s.dropTargetLocked(models.Target{Kind: models.TargetComment, ID: id})
}

// ListVideoComments returns a video's comments newest first with author profiles.
func (s *MemoryStore) ListVideoComments(_ context.Context, videoID models.ID, page models.PageRequest) ([]models.CommentView, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			matched = append(matched, comment)
		}
	}
	newestFirst(matched, func(c models.Comment) (int64, string) { return c.CreatedAt.UnixNano(), c.ID.String() })

	items, total := paginate(matched, page)
	views := make([]models.CommentView, 0, len(items))
	for _, comment := range items {
		views = append(views, models.CommentView{Comment: comment, OwnerProfile: s.profile(comment.OwnerID)})
	}
	return views, total, nil
}

// CreateTweet stores a tweet. The owner must exist.
func (s *MemoryStore) CreateTweet(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tweets[tweet.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.users[tweet.OwnerID]; !ok {
		return ErrNotFound
	}
	s.tweets[tweet.ID] = tweet
	return nil
}

// FindTweet loads a tweet by id.
func (s *MemoryStore) FindTweet(_ context.Context, id models.ID) (models.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, ErrNotFound
	}
	return tweet, nil
}

// UpdateTweet replaces the tweet content.
func (s *MemoryStore) UpdateTweet(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tweets[tweet.ID]
	if !ok {
		return ErrNotFound
	}
	current.Content = tweet.Content
	current.UpdatedAt = tweet.UpdatedAt
	s.tweets[tweet.ID] = current
	return nil
}

// DeleteTweet removes a tweet and the likes pointing at it.
func (s *MemoryStore) DeleteTweet(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tweets[id]; !ok {
		return ErrNotFound
	}
	delete(s.tweets, id)
	s.dropTargetLocked(models.Target{Kind: models.TargetTweet, ID: id})
	return nil
}

// ListUserTweets returns an owner's tweets newest first.
func (s *MemoryStore) ListUserTweets(_ context.Context, ownerID models.ID, page models.PageRequest) ([]models.TweetView, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Tweet
	for _, tweet := range s.tweets {
		if tweet.OwnerID == ownerID {
			matched = append(matched, tweet)
		}
	}
	newestFirst(matched, func(t models.Tweet) (int64, string) { return t.CreatedAt.UnixNano(), t.ID.String() })

	items, total := paginate(matched, page)
	views := make([]models.TweetView, 0, len(items))
	for _, tweet := range items {
		views = append(views, models.TweetView{Tweet: tweet, OwnerProfile: s.profile(tweet.OwnerID)})
	}
	return views, total, nil
}

// CreatePlaylist stores a playlist. The owner must exist.
func (s *MemoryStore) CreatePlaylist(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[playlist.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.users[playlist.OwnerID]; !ok {
		return ErrNotFound
	}
	playlist.VideoIDs = slices.Clone(playlist.VideoIDs)
	s.playlists[playlist.ID] = playlist
	return nil
}

// FindPlaylist loads a playlist with its ordered video references.
func (s *MemoryStore) FindPlaylist(_ context.Context, id models.ID) (models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	playlist.VideoIDs = slices.Clone(playlist.VideoIDs)
	return playlist, nil
}

// UpdatePlaylist replaces name and description.
func (s *MemoryStore) UpdatePlaylist(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.playlists[playlist.ID]
	if !ok {
		return ErrNotFound
	}
	current.Name = playlist.Name
	current.Description = playlist.Description
	current.UpdatedAt = playlist.UpdatedAt
	s.playlists[playlist.ID] = current
	return nil
}

// DeletePlaylist removes a playlist.
func (s *MemoryStore) DeletePlaylist(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

// AddPlaylistVideo appends videoID unless the playlist already holds it.
func (s *MemoryStore) AddPlaylistVideo(_ context.Context, playlistID, videoID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.videos[videoID]; !ok {
		return ErrNotFound
	}
	if playlist.Contains(videoID) {
		return nil
	}
	playlist.VideoIDs = append(slices.Clone(playlist.VideoIDs), videoID)
	s.playlists[playlistID] = playlist
	return nil
}

// RemovePlaylistVideo drops videoID and reports whether it was present.
func (s *MemoryStore) RemovePlaylistVideo(_ context.Context, playlistID, videoID models.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return false, ErrNotFound
	}
	if !playlist.Contains(videoID) {
		return false, nil
	}
	playlist.VideoIDs = slices.DeleteFunc(slices.Clone(playlist.VideoIDs), func(id models.ID) bool { return id == videoID })
	s.playlists[playlistID] = playlist
	return true, nil
}

// ListUserPlaylists returns an owner's playlists newest first, without video details.
func (s *MemoryStore) ListUserPlaylists(_ context.Context, ownerID models.ID, page models.PageRequest) ([]models.PlaylistView, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			playlist.VideoIDs = slices.Clone(playlist.VideoIDs)
			matched = append(matched, playlist)
		}
	}
	newestFirst(matched, func(p models.Playlist) (int64, string) { return p.CreatedAt.UnixNano(), p.ID.String() })

	items, total := paginate(matched, page)
	views := make([]models.PlaylistView, 0, len(items))
	for _, playlist := range items {
		views = append(views, models.PlaylistView{Playlist: playlist, OwnerProfile: s.profile(playlist.OwnerID)})
	}
	return views, total, nil
}

// ListPlaylistVideos returns the playlist's videos in stored order.
func (s *MemoryStore) ListPlaylistVideos(_ context.Context, playlistID models.ID) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	videos := make([]models.Video, 0, len(playlist.VideoIDs))
	for _, id := range playlist.VideoIDs {
		if video, ok := s.videos[id]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}
