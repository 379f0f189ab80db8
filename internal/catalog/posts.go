package catalog

import (
	"context"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/policy"
)

// AddComment leaves a comment on a video.
func (s *Service) AddComment(ctx context.Context, caller, videoID models.ID, content string) (models.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return models.Comment{}, err
	}
	content, ok := required(content)
	if !ok {
		return models.Comment{}, apperr.Validation("content is required")
	}
	if _, err := s.store.FindVideo(ctx, videoID); err != nil {
		return models.Comment{}, lookupError(err, "video")
	}

	now := s.now()
	comment := models.Comment{
		ID:        models.NewID(),
		VideoID:   videoID,
		OwnerID:   caller,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return models.Comment{}, writeError(err, "comment")
	}
	return comment, nil
}

// UpdateComment replaces the content of a comment owned by caller.
func (s *Service) UpdateComment(ctx context.Context, caller, commentID models.ID, content string) (models.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return models.Comment{}, err
	}
	content, ok := required(content)
	if !ok {
		return models.Comment{}, apperr.Validation("content is required")
	}

	comment, err := s.store.FindComment(ctx, commentID)
	if err != nil {
		return models.Comment{}, lookupError(err, "comment")
	}
	if err := policy.RequireOwner(caller, comment, "update this comment"); err != nil {
		return models.Comment{}, err
	}

	comment.Content = content
	comment.UpdatedAt = s.now()
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return models.Comment{}, writeError(err, "comment")
	}
	return comment, nil
}

// DeleteComment removes a comment left on videoID. Both the comment author and the
// video owner may delete it.
func (s *Service) DeleteComment(ctx context.Context, caller, videoID, commentID models.ID) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	comment, err := s.store.FindComment(ctx, commentID)
	if err != nil {
		return lookupError(err, "comment")
	}
	if comment.VideoID != videoID {
		return apperr.NotFound("comment not found")
	}
	video, err := s.store.FindVideo(ctx, videoID)
	if err != nil {
		return lookupError(err, "video")
	}
	if err := policy.CommentDeletion(caller, comment, video); err != nil {
		return err
	}

	if err := s.store.DeleteComment(ctx, comment.ID); err != nil {
		return writeError(err, "comment")
	}
	return nil
}

// CreateTweet posts a tweet on the caller's channel.
func (s *Service) CreateTweet(ctx context.Context, caller models.ID, content string) (models.Tweet, error) {
	if err := requireCaller(caller); err != nil {
		return models.Tweet{}, err
	}
	content, ok := required(content)
	if !ok {
		return models.Tweet{}, apperr.Validation("content is required")
	}

	now := s.now()
	tweet := models.Tweet{ID: models.NewID(), OwnerID: caller, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateTweet(ctx, tweet); err != nil {
		return models.Tweet{}, writeError(err, "tweet")
	}
	return tweet, nil
}

// UpdateTweet replaces the content of a tweet owned by caller.
func (s *Service) UpdateTweet(ctx context.Context, caller, tweetID models.ID, content string) (models.Tweet, error) {
	if err := requireCaller(caller); err != nil {
		return models.Tweet{}, err
	}
	content, ok := required(content)
	if !ok {
		return models.Tweet{}, apperr.Validation("content is required")
	}

	tweet, err := s.store.FindTweet(ctx, tweetID)
	if err != nil {
		return models.Tweet{}, lookupError(err, "tweet")
	}
	if err := policy.RequireOwner(caller, tweet, "update this tweet"); err != nil {
		return models.Tweet{}, err
	}

	tweet.Content = content
	tweet.UpdatedAt = s.now()
	if err := s.store.UpdateTweet(ctx, tweet); err != nil {
		return models.Tweet{}, writeError(err, "tweet")
	}
	return tweet, nil
}

// DeleteTweet removes a tweet owned by caller.
func (s *Service) DeleteTweet(ctx context.Context, caller, tweetID models.ID) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	tweet, err := s.store.FindTweet(ctx, tweetID)
	if err != nil {
		return lookupError(err, "tweet")
	}
	if err := policy.RequireOwner(caller, tweet, "delete this tweet"); err != nil {
		return err
	}
	if err := s.store.DeleteTweet(ctx, tweet.ID); err != nil {
		return writeError(err, "tweet")
	}
	return nil
}
