package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/models"
)

const videoColumns = `v.id, v.owner_id, v.title, v.description, v.video_file, v.video_public_id, v.thumbnail,
    v.thumbnail_public_id, v.duration, v.views, v.is_published, v.created_at, v.updated_at`

const profileColumns = `u.id, u.username, u.full_name, u.avatar`

func videoFields(v *models.Video) []any {
	return []any{&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile, &v.VideoPublicID, &v.Thumbnail,
		&v.ThumbnailPublicID, &v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt}
}

func profileFields(p *models.Profile) []any {
	return []any{&p.ID, &p.Username, &p.FullName, &p.Avatar}
}

func scanVideoView(row scanner) (models.VideoView, error) {
	var view models.VideoView
	err := row.Scan(append(videoFields(&view.Video), profileFields(&view.OwnerProfile)...)...)
	return view, err
}

var videoSortColumns = map[models.VideoSortField]string{
	models.SortCreatedAt: "v.created_at",
	models.SortViews:     "v.views",
	models.SortTitle:     "lower(v.title)",
	models.SortDuration:  "v.duration",
}

// CreateVideo stores a new video record.
func (s *PostgresStore) CreateVideo(ctx context.Context, video models.Video) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_file, video_public_id, thumbnail,
            thumbnail_public_id, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.VideoPublicID, video.Thumbnail,
		video.ThumbnailPublicID, video.Duration, video.Views, video.IsPublished, video.CreatedAt.UTC(), video.UpdatedAt.UTC())
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindVideo loads a video by id.
func (s *PostgresStore) FindVideo(ctx context.Context, id models.ID) (models.Video, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return models.Video{}, err
	}
	defer conn.Release()

	var video models.Video
	if err := conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1`, id).Scan(videoFields(&video)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// UpdateVideo modifies the editable fields of a video.
func (s *PostgresStore) UpdateVideo(ctx context.Context, video models.Video) error {
	return s.execOne(ctx, "update video", `
        UPDATE videos
        SET title = $2, description = $3, thumbnail = $4, thumbnail_public_id = $5, is_published = $6, updated_at = $7
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail, video.ThumbnailPublicID, video.IsPublished, video.UpdatedAt.UTC())
}

// IncrementVideoViews adds one to the view counter.
func (s *PostgresStore) IncrementVideoViews(ctx context.Context, id models.ID) error {
	return s.execOne(ctx, "increment video views", `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
}

// DeleteVideo removes a video. Comments, playlist entries and watch history rows
// cascade; likes on the video and its comments are removed in the same transaction.
func (s *PostgresStore) DeleteVideo(ctx context.Context, id models.ID) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            DELETE FROM likes
            WHERE (target_kind = 'video' AND target_id = $1)
               OR (target_kind = 'comment' AND target_id IN (SELECT id FROM comments WHERE video_id = $1))
        `, id); err != nil {
			return fmt.Errorf("delete video likes: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListVideos returns the filtered, sorted page of videos joined with owner profiles.
func (s *PostgresStore) ListVideos(ctx context.Context, filter models.VideoFilter, page models.PageRequest) ([]models.VideoView, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		p := arg(likePattern(q))
		clauses = append(clauses, fmt.Sprintf(`(v.title ILIKE %s ESCAPE '\' OR v.description ILIKE %s ESCAPE '\')`, p, p))
	}
	if !filter.OwnerID.IsZero() {
		clauses = append(clauses, "v.owner_id = "+arg(filter.OwnerID))
	}
	if filter.PublishedOnly {
		if filter.ViewerID.IsZero() {
			clauses = append(clauses, "v.is_published")
		} else {
			clauses = append(clauses, "(v.is_published OR v.owner_id = "+arg(filter.ViewerID)+")")
		}
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	column, ok := videoSortColumns[filter.SortBy]
	if !ok {
		column = videoSortColumns[models.SortCreatedAt]
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
        SELECT %s, %s
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        %s
        ORDER BY %s %s, v.id
        LIMIT %s OFFSET %s
    `, videoColumns, profileColumns, where, column, direction, arg(page.Limit), arg(page.Offset()))

	views, err := s.collectVideoViews(ctx, conn, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *PostgresStore) collectVideoViews(ctx context.Context, conn pgxQuerier, query string, args ...any) ([]models.VideoView, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var views []models.VideoView
	for rows.Next() {
		view, err := scanVideoView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return views, nil
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// likePattern escapes LIKE metacharacters and wraps q for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// CreateComment stores a comment.
func (s *PostgresStore) CreateComment(ctx context.Context, comment models.Comment) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt.UTC(), comment.UpdatedAt.UTC())
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// FindComment loads a comment by id.
func (s *PostgresStore) FindComment(ctx context.Context, id models.ID) (models.Comment, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return models.Comment{}, err
	}
	defer conn.Release()

	var c models.Comment
	err = conn.QueryRow(ctx, `
        SELECT id, video_id, owner_id, content, created_at, updated_at
        FROM comments
        WHERE id = $1
    `, id).Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}

	return c, nil
}

// UpdateComment replaces the comment content.
func (s *PostgresStore) UpdateComment(ctx context.Context, comment models.Comment) error {
	return s.execOne(ctx, "update comment", `
        UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1
    `, comment.ID, comment.Content, comment.UpdatedAt.UTC())
}

// DeleteComment removes a comment and the likes pointing at it.
func (s *PostgresStore) DeleteComment(ctx context.Context, id models.ID) error {
	return s.deleteLikeable(ctx, models.TargetComment, "comments", id)
}

// ListVideoComments returns a video's comments newest first with author profiles.
func (s *PostgresStore) ListVideoComments(ctx context.Context, videoID models.ID, page models.PageRequest) ([]models.CommentView, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT c.id, c.video_id, c.owner_id, c.content, c.created_at, c.updated_at, `+profileColumns+`
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC, c.id
        LIMIT $2 OFFSET $3
    `, videoID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query comments: %w", err)
	}

	views, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CommentView, error) {
		var v models.CommentView
		err := row.Scan(append([]any{&v.ID, &v.VideoID, &v.OwnerID, &v.Content, &v.CreatedAt, &v.UpdatedAt},
			profileFields(&v.OwnerProfile)...)...)
		return v, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan comments: %w", err)
	}

	return views, total, nil
}

// CreateTweet stores a tweet.
func (s *PostgresStore) CreateTweet(ctx context.Context, tweet models.Tweet) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt.UTC(), tweet.UpdatedAt.UTC())
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert tweet: %w", err)
	}

	return nil
}

// FindTweet loads a tweet by id.
func (s *PostgresStore) FindTweet(ctx context.Context, id models.ID) (models.Tweet, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return models.Tweet{}, err
	}
	defer conn.Release()

	var t models.Tweet
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, content, created_at, updated_at FROM tweets WHERE id = $1
    `, id).Scan(&t.ID, &t.OwnerID, &t.Content, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("select tweet: %w", err)
	}

	return t, nil
}

// UpdateTweet replaces the tweet content.
func (s *PostgresStore) UpdateTweet(ctx context.Context, tweet models.Tweet) error {
	return s.execOne(ctx, "update tweet", `
        UPDATE tweets SET content = $2, updated_at = $3 WHERE id = $1
    `, tweet.ID, tweet.Content, tweet.UpdatedAt.UTC())
}

// DeleteTweet removes a tweet and the likes pointing at it.
func (s *PostgresStore) DeleteTweet(ctx context.Context, id models.ID) error {
	return s.deleteLikeable(ctx, models.TargetTweet, "tweets", id)
}

func (s *PostgresStore) deleteLikeable(ctx context.Context, kind models.TargetKind, table string, id models.ID) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target_kind = $1 AND target_id = $2`, string(kind), id); err != nil {
			return fmt.Errorf("delete %s likes: %w", kind, err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListUserTweets returns an owner's tweets newest first.
func (s *PostgresStore) ListUserTweets(ctx context.Context, ownerID models.ID, page models.PageRequest) ([]models.TweetView, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM tweets WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tweets: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT t.id, t.owner_id, t.content, t.created_at, t.updated_at, `+profileColumns+`
        FROM tweets t
        JOIN users u ON u.id = t.owner_id
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC, t.id
        LIMIT $2 OFFSET $3
    `, ownerID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query tweets: %w", err)
	}

	views, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TweetView, error) {
		var v models.TweetView
		err := row.Scan(append([]any{&v.ID, &v.OwnerID, &v.Content, &v.CreatedAt, &v.UpdatedAt},
			profileFields(&v.OwnerProfile)...)...)
		return v, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan tweets: %w", err)
	}

	return views, total, nil
}

// CreatePlaylist stores a playlist without videos.
func (s *PostgresStore) CreatePlaylist(ctx context.Context, playlist models.Playlist) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt.UTC(), playlist.UpdatedAt.UTC())
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

// FindPlaylist loads a playlist with its ordered video references.
func (s *PostgresStore) FindPlaylist(ctx context.Context, id models.ID) (models.Playlist, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	defer conn.Release()

	var p models.Playlist
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, name, description, created_at, updated_at FROM playlists WHERE id = $1
    `, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position, video_id
    `, id)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("query playlist videos: %w", err)
	}
	p.VideoIDs, err = pgx.CollectRows(rows, pgx.RowTo[models.ID])
	if err != nil {
		return models.Playlist{}, fmt.Errorf("scan playlist videos: %w", err)
	}

	return p, nil
}

// UpdatePlaylist replaces name and description.
func (s *PostgresStore) UpdatePlaylist(ctx context.Context, playlist models.Playlist) error {
	return s.execOne(ctx, "update playlist", `
        UPDATE playlists SET name = $2, description = $3, updated_at = $4 WHERE id = $1
    `, playlist.ID, playlist.Name, playlist.Description, playlist.UpdatedAt.UTC())
}

// DeletePlaylist removes a playlist and its entries.
func (s *PostgresStore) DeletePlaylist(ctx context.Context, id models.ID) error {
	return s.execOne(ctx, "delete playlist", `DELETE FROM playlists WHERE id = $1`, id)
}

// AddPlaylistVideo appends videoID unless the playlist already holds it.
func (s *PostgresStore) AddPlaylistVideo(ctx context.Context, playlistID, videoID models.ID) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position)
        SELECT $1::UUID, $2::UUID, COALESCE(MAX(position), 0) + 1
        FROM playlist_videos
        WHERE playlist_id = $1::UUID
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID)
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert playlist video: %w", err)
	}

	return nil
}

// RemovePlaylistVideo drops videoID and reports whether it was present.
func (s *PostgresStore) RemovePlaylistVideo(ctx context.Context, playlistID, videoID models.ID) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return false, fmt.Errorf("delete playlist video: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`, playlistID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check playlist: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// ListUserPlaylists returns an owner's playlists newest first, without video details.
func (s *PostgresStore) ListUserPlaylists(ctx context.Context, ownerID models.ID, page models.PageRequest) ([]models.PlaylistView, int64, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM playlists WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count playlists: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at, `+profileColumns+`
        FROM playlists p
        JOIN users u ON u.id = p.owner_id
        WHERE p.owner_id = $1
        ORDER BY p.created_at DESC, p.id
        LIMIT $2 OFFSET $3
    `, ownerID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query playlists: %w", err)
	}

	views, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PlaylistView, error) {
		var v models.PlaylistView
		err := row.Scan(append([]any{&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt},
			profileFields(&v.OwnerProfile)...)...)
		return v, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan playlists: %w", err)
	}
	if len(views) == 0 {
		return views, total, nil
	}

	ids := make([]string, 0, len(views))
	index := make(map[models.ID]int, len(views))
	for i, v := range views {
		ids = append(ids, v.ID.String())
		index[v.ID] = i
	}

	entries, err := conn.Query(ctx, `
        SELECT playlist_id, video_id
        FROM playlist_videos
        WHERE playlist_id = ANY($1::UUID[])
        ORDER BY playlist_id, position, video_id
    `, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("query playlist videos: %w", err)
	}
	defer entries.Close()

	for entries.Next() {
		var playlistID, videoID models.ID
		if err := entries.Scan(&playlistID, &videoID); err != nil {
			return nil, 0, fmt.Errorf("scan playlist video: %w", err)
		}
		if i, ok := index[playlistID]; ok {
			views[i].VideoIDs = append(views[i].VideoIDs, videoID)
		}
	}
	if err := entries.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return views, total, nil
}

// ListPlaylistVideos returns the playlist's videos in stored order.
func (s *PostgresStore) ListPlaylistVideos(ctx context.Context, playlistID models.ID) ([]models.Video, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`, playlistID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check playlist: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position, pv.video_id
    `, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}

	videos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Video, error) {
		var v models.Video
		err := row.Scan(videoFields(&v)...)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan playlist videos: %w", err)
	}

	return videos, nil
}
