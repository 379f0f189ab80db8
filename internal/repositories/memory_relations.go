package repositories

import (
	"context"
	"fmt"
	"slices"

	"github.com/vidtube/backend/internal/models"
)

// HasRelation reports whether the (actor, target) edge exists.
func (s *MemoryStore) HasRelation(_ context.Context, key models.RelationKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.relations[key]
	return ok, nil
}

// CreateRelation stores a new edge. A second edge for the same key is a conflict.
func (s *MemoryStore) CreateRelation(_ context.Context, relation models.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[relation.ActorID]; !ok {
		return ErrNotFound
	}
	exists, err := s.targetExistsLocked(relation.Target)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	key := relation.Key()
	if _, ok := s.relations[key]; ok {
		return ErrConflict
	}
	s.relations[key] = relation
	return nil
}

// DeleteRelation removes an edge and reports whether one was present.
func (s *MemoryStore) DeleteRelation(_ context.Context, key models.RelationKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relations[key]; !ok {
		return false, nil
	}
	delete(s.relations, key)
	return true, nil
}

// TargetExists reports whether the entity a relation would point at exists.
func (s *MemoryStore) TargetExists(_ context.Context, target models.Target) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.targetExistsLocked(target)
}

func (s *MemoryStore) targetExistsLocked(target models.Target) (bool, error) {
	var ok bool
	switch target.Kind {
	case models.TargetVideo:
		_, ok = s.videos[target.ID]
	case models.TargetComment:
		_, ok = s.comments[target.ID]
	case models.TargetTweet:
		_, ok = s.tweets[target.ID]
	case models.TargetChannel:
		_, ok = s.users[target.ID]
	default:
		return false, fmt.Errorf("unknown target kind %q", target.Kind)
	}
	return ok, nil
}

// dropTargetLocked removes every edge pointing at target.
func (s *MemoryStore) dropTargetLocked(target models.Target) {
	for key := range s.relations {
		if key.Target == target {
			delete(s.relations, key)
		}
	}
}

// CountSubscribers counts identities subscribed to the channel.
func (s *MemoryStore) CountSubscribers(_ context.Context, channelID models.ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.relations {
		if key.Target.Kind == models.TargetChannel && key.Target.ID == channelID {
			n++
		}
	}
	return n, nil
}

// CountSubscriptions counts channels the identity is subscribed to.
func (s *MemoryStore) CountSubscriptions(_ context.Context, subscriberID models.ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.relations {
		if key.Target.Kind == models.TargetChannel && key.ActorID == subscriberID {
			n++
		}
	}
	return n, nil
}

// CountVideos counts videos owned by the identity.
func (s *MemoryStore) CountVideos(_ context.Context, ownerID models.ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, video := range s.videos {
		if video.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// SumVideoViews totals the view counters of the identity's videos.
func (s *MemoryStore) SumVideoViews(_ context.Context, ownerID models.ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, video := range s.videos {
		if video.OwnerID == ownerID {
			n += video.Views
		}
	}
	return n, nil
}

// CountVideoLikes counts likes on videos owned by the identity.
func (s *MemoryStore) CountVideoLikes(_ context.Context, ownerID models.ID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.relations {
		if key.Target.Kind != models.TargetVideo {
			continue
		}
		if video, ok := s.videos[key.Target.ID]; ok && video.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// ListWatchHistory returns the identity's watched videos in stored order.
func (s *MemoryStore) ListWatchHistory(_ context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	watched := make([]models.Video, 0, len(user.WatchHistory))
	for _, id := range user.WatchHistory {
		if video, ok := s.videos[id]; ok {
			watched = append(watched, video)
		}
	}

	items, total := paginate(watched, page)
	return s.videoViews(items), total, nil
}

// ListLikedVideos returns the videos the identity liked, most recent like first.
func (s *MemoryStore) ListLikedVideos(_ context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes := s.edgesLocked(func(key models.RelationKey) bool {
		return key.ActorID == userID && key.Target.Kind == models.TargetVideo
	})

	liked := make([]models.Video, 0, len(likes))
	for _, like := range likes {
		if video, ok := s.videos[like.Target.ID]; ok {
			liked = append(liked, video)
		}
	}

	items, total := paginate(liked, page)
	return s.videoViews(items), total, nil
}

// ListSubscribers returns the profiles subscribed to the channel, newest first.
func (s *MemoryStore) ListSubscribers(_ context.Context, channelID models.ID, page models.PageRequest) ([]models.Profile, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := s.edgesLocked(func(key models.RelationKey) bool {
		return key.Target.Kind == models.TargetChannel && key.Target.ID == channelID
	})
	items, total := paginate(edges, page)

	profiles := make([]models.Profile, 0, len(items))
	for _, edge := range items {
		profiles = append(profiles, s.profile(edge.ActorID))
	}
	return profiles, total, nil
}

// ListSubscriptions returns the channels the identity subscribes to, newest first.
func (s *MemoryStore) ListSubscriptions(_ context.Context, subscriberID models.ID, page models.PageRequest) ([]models.Profile, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := s.edgesLocked(func(key models.RelationKey) bool {
		return key.Target.Kind == models.TargetChannel && key.ActorID == subscriberID
	})
	items, total := paginate(edges, page)

	profiles := make([]models.Profile, 0, len(items))
	for _, edge := range items {
		profiles = append(profiles, s.profile(edge.Target.ID))
	}
	return profiles, total, nil
}

func (s *MemoryStore) edgesLocked(match func(models.RelationKey) bool) []models.Relation {
	var edges []models.Relation
	for key, relation := range s.relations {
		if match(key) {
			edges = append(edges, relation)
		}
	}
	newestFirst(edges, func(r models.Relation) (int64, string) { return r.CreatedAt.UnixNano(), r.Target.String() + r.ActorID.String() })
	return slices.Clip(edges)
}
