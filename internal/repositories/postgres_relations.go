package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/models"
)

var targetTables = map[models.TargetKind]string{
	models.TargetVideo:   "videos",
	models.TargetComment: "comments",
	models.TargetTweet:   "tweets",
	models.TargetChannel: "users",
}

// HasRelation reports whether the (actor, target) edge exists.
func (s *PostgresStore) HasRelation(ctx context.Context, key models.RelationKey) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var exists bool
	if key.Target.Kind == models.TargetChannel {
		err = conn.QueryRow(ctx, `
            SELECT EXISTS (SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2)
        `, key.ActorID, key.Target.ID).Scan(&exists)
	} else {
		err = conn.QueryRow(ctx, `
            SELECT EXISTS (SELECT 1 FROM likes WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3)
        `, key.ActorID, string(key.Target.Kind), key.Target.ID).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("select relation: %w", err)
	}

	return exists, nil
}

// CreateRelation inserts an edge. The primary key makes a second edge for the same
// key fail with ErrConflict.
func (s *PostgresStore) CreateRelation(ctx context.Context, relation models.Relation) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if relation.Target.Kind == models.TargetChannel {
		_, err = conn.Exec(ctx, `
            INSERT INTO subscriptions (subscriber_id, channel_id, created_at) VALUES ($1, $2, $3)
        `, relation.ActorID, relation.Target.ID, relation.CreatedAt.UTC())
	} else {
		_, err = conn.Exec(ctx, `
            INSERT INTO likes (liked_by, target_kind, target_id, created_at) VALUES ($1, $2, $3, $4)
        `, relation.ActorID, string(relation.Target.Kind), relation.Target.ID, relation.CreatedAt.UTC())
	}
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert relation: %w", err)
	}

	return nil
}

// DeleteRelation removes an edge and reports whether one was present.
func (s *PostgresStore) DeleteRelation(ctx context.Context, key models.RelationKey) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var rows int64
	if key.Target.Kind == models.TargetChannel {
		tag, execErr := conn.Exec(ctx, `
            DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
        `, key.ActorID, key.Target.ID)
		rows, err = tag.RowsAffected(), execErr
	} else {
		tag, execErr := conn.Exec(ctx, `
            DELETE FROM likes WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
        `, key.ActorID, string(key.Target.Kind), key.Target.ID)
		rows, err = tag.RowsAffected(), execErr
	}
	if err != nil {
		return false, fmt.Errorf("delete relation: %w", err)
	}

	return rows > 0, nil
}

// TargetExists reports whether the entity a relation would point at exists.
func (s *PostgresStore) TargetExists(ctx context.Context, target models.Target) (bool, error) {
	table, ok := targetTables[target.Kind]
	if !ok {
		return false, fmt.Errorf("unknown target kind %q", target.Kind)
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, target.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s: %w", target.Kind, err)
	}

	return exists, nil
}

// CountSubscribers counts identities subscribed to the channel.
func (s *PostgresStore) CountSubscribers(ctx context.Context, channelID models.ID) (int64, error) {
	return s.count(ctx, "count subscribers", `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channelID)
}

// CountSubscriptions counts channels the identity is subscribed to.
func (s *PostgresStore) CountSubscriptions(ctx context.Context, subscriberID models.ID) (int64, error) {
	return s.count(ctx, "count subscriptions", `SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID)
}

// CountVideos counts videos owned by the identity.
func (s *PostgresStore) CountVideos(ctx context.Context, ownerID models.ID) (int64, error) {
	return s.count(ctx, "count videos", `SELECT COUNT(*) FROM videos WHERE owner_id = $1`, ownerID)
}

// SumVideoViews totals the view counters of the identity's videos.
func (s *PostgresStore) SumVideoViews(ctx context.Context, ownerID models.ID) (int64, error) {
	return s.count(ctx, "sum video views", `SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1`, ownerID)
}

// CountVideoLikes counts likes on videos owned by the identity.
func (s *PostgresStore) CountVideoLikes(ctx context.Context, ownerID models.ID) (int64, error) {
	return s.count(ctx, "count video likes", `
        SELECT COUNT(l.liked_by)
        FROM videos v
        LEFT JOIN likes l ON l.target_kind = 'video' AND l.target_id = v.id
        WHERE v.owner_id = $1
    `, ownerID)
}

func (s *PostgresStore) count(ctx context.Context, op, sql string, args ...any) (int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var n int64
	if err := conn.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ListWatchHistory returns the identity's watched videos in stored order.
func (s *PostgresStore) ListWatchHistory(ctx context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var (
		exists bool
		total  int64
	)
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE id = $1),
               (SELECT COUNT(*) FROM watch_history WHERE user_id = $1)
    `, userID).Scan(&exists, &total)
	if err != nil {
		return nil, 0, fmt.Errorf("count watch history: %w", err)
	}
	if !exists {
		return nil, 0, ErrNotFound
	}

	views, err := s.collectVideoViews(ctx, conn, `
        SELECT `+videoColumns+`, `+profileColumns+`
        FROM watch_history w
        JOIN videos v ON v.id = w.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE w.user_id = $1
        ORDER BY w.position, w.video_id
        LIMIT $2 OFFSET $3
    `, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListLikedVideos returns the videos the identity liked, most recent like first.
func (s *PostgresStore) ListLikedVideos(ctx context.Context, userID models.ID, page models.PageRequest) ([]models.VideoView, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var total int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        WHERE l.liked_by = $1 AND l.target_kind = 'video'
    `, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count liked videos: %w", err)
	}

	views, err := s.collectVideoViews(ctx, conn, `
        SELECT `+videoColumns+`, `+profileColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND l.target_kind = 'video'
        ORDER BY l.created_at DESC, v.id
        LIMIT $2 OFFSET $3
    `, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListSubscribers returns the profiles subscribed to the channel, newest first.
func (s *PostgresStore) ListSubscribers(ctx context.Context, channelID models.ID, page models.PageRequest) ([]models.Profile, int64, error) {
	return s.listProfiles(ctx, "s.subscriber_id", "s.channel_id", channelID, page)
}

// ListSubscriptions returns the channels the identity subscribes to, newest first.
func (s *PostgresStore) ListSubscriptions(ctx context.Context, subscriberID models.ID, page models.PageRequest) ([]models.Profile, int64, error) {
	return s.listProfiles(ctx, "s.channel_id", "s.subscriber_id", subscriberID, page)
}

func (s *PostgresStore) listProfiles(ctx context.Context, joinColumn, anchorColumn string, anchor models.ID, page models.PageRequest) ([]models.Profile, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions s WHERE `+anchorColumn+` = $1`, anchor).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+profileColumns+`
        FROM subscriptions s
        JOIN users u ON u.id = `+joinColumn+`
        WHERE `+anchorColumn+` = $1
        ORDER BY s.created_at DESC, u.id
        LIMIT $2 OFFSET $3
    `, anchor, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query subscriptions: %w", err)
	}

	profiles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Profile, error) {
		var p models.Profile
		err := row.Scan(profileFields(&p)...)
		return p, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan subscriptions: %w", err)
	}

	return profiles, total, nil
}
