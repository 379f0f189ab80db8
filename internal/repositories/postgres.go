package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresStore provides PostgreSQL-backed persistence for every VidTube entity.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore constructs a store backed by PostgreSQL.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

const identityColumns = `id, username, email, full_name, password_hash, avatar, avatar_public_id,
    cover_image, cover_public_id, COALESCE(refresh_token, ''), created_at, updated_at`

func scanIdentity(row scanner) (models.Identity, error) {
	var user models.Identity
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.Avatar, &user.AvatarPublicID, &user.CoverImage, &user.CoverPublicID, &user.RefreshToken,
		&user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// CreateUser persists a new identity.
func (s *PostgresStore) CreateUser(ctx context.Context, user models.Identity) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar, avatar_public_id,
            cover_image, cover_public_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Username, user.Email, user.FullName, user.PasswordHash, user.Avatar, user.AvatarPublicID,
		user.CoverImage, user.CoverPublicID, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindUserByID loads an identity with its watch history.
func (s *PostgresStore) FindUserByID(ctx context.Context, id models.ID) (models.Identity, error) {
	return s.findUser(ctx, "id = $1", id)
}

// FindUserByUsername loads an identity by its canonical username.
func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (models.Identity, error) {
	return s.findUser(ctx, "username = $1", username)
}

// FindUserByLogin matches either the username or the email; empty values never match.
func (s *PostgresStore) FindUserByLogin(ctx context.Context, username, email string) (models.Identity, error) {
	return s.findUser(ctx, "($1 <> '' AND username = $1) OR ($2 <> '' AND email = lower($2))", username, email)
}

func (s *PostgresStore) findUser(ctx context.Context, where string, args ...any) (models.Identity, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return models.Identity{}, err
	}
	defer conn.Release()

	user, err := scanIdentity(conn.QueryRow(ctx, `SELECT `+identityColumns+` FROM users WHERE `+where+` LIMIT 1`, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("select user: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT video_id FROM watch_history
        WHERE user_id = $1
        ORDER BY position, video_id
    `, user.ID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("query watch history: %w", err)
	}
	user.WatchHistory, err = pgx.CollectRows(rows, pgx.RowTo[models.ID])
	if err != nil {
		return models.Identity{}, fmt.Errorf("scan watch history: %w", err)
	}

	return user, nil
}

// UpdateUserDetails sets the full name and email.
func (s *PostgresStore) UpdateUserDetails(ctx context.Context, id models.ID, fullName, email string, at time.Time) error {
	return s.execOne(ctx, "update user details", `
        UPDATE users SET full_name = $2, email = $3, updated_at = $4 WHERE id = $1
    `, id, fullName, email, at.UTC())
}

// UpdateUserPassword replaces only the password digest.
func (s *PostgresStore) UpdateUserPassword(ctx context.Context, id models.ID, digest string, at time.Time) error {
	return s.execOne(ctx, "update user password", `
        UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, id, digest, at.UTC())
}

var imageColumns = map[models.ProfileImage][2]string{
	models.ImageAvatar: {"avatar", "avatar_public_id"},
	models.ImageCover:  {"cover_image", "cover_public_id"},
}

// UpdateUserImage points image at a new asset and returns the public id it replaced.
// The read and the write share a row lock so concurrent replacements each see the
// value they overwrite.
func (s *PostgresStore) UpdateUserImage(ctx context.Context, id models.ID, image models.ProfileImage, url, publicID string, at time.Time) (string, error) {
	cols, ok := imageColumns[image]
	if !ok {
		return "", fmt.Errorf("unknown profile image %q", image)
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	var previous string
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT `+cols[1]+` FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock user %s: %w", image, err)
		}
		if _, err := tx.Exec(ctx, `
            UPDATE users SET `+cols[0]+` = $2, `+cols[1]+` = $3, updated_at = $4 WHERE id = $1
        `, id, url, publicID, at.UTC()); err != nil {
			return fmt.Errorf("update user %s: %w", image, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// SetRefreshToken overwrites the stored refresh token.
func (s *PostgresStore) SetRefreshToken(ctx context.Context, id models.ID, token string) error {
	return s.execOne(ctx, "set refresh token", `UPDATE users SET refresh_token = $2 WHERE id = $1`, id, token)
}

// ClearRefreshToken removes the stored refresh token.
func (s *PostgresStore) ClearRefreshToken(ctx context.Context, id models.ID) error {
	return s.execOne(ctx, "clear refresh token", `UPDATE users SET refresh_token = NULL WHERE id = $1`, id)
}

// SwapRefreshToken replaces current with next in a single conditional update so
// concurrent rotations of the same token cannot both succeed.
func (s *PostgresStore) SwapRefreshToken(ctx context.Context, id models.ID, current, next string) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, id, current, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrTokenStale
	}

	return nil
}

// RecordWatch moves videoID to the end of the identity's watch history.
func (s *PostgresStore) RecordWatch(ctx context.Context, userID, videoID models.ID) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, position)
        SELECT $1::UUID, $2::UUID, COALESCE(MAX(position), 0) + 1
        FROM watch_history
        WHERE user_id = $1::UUID
        ON CONFLICT (user_id, video_id) DO UPDATE SET position = EXCLUDED.position
    `, userID, videoID)
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("record watch: %w", err)
	}

	return nil
}

// execOne runs a statement that must touch exactly one existing row.
func (s *PostgresStore) execOne(ctx context.Context, op, sql string, args ...any) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var (
	_ auth.RefreshTokenStore = (*PostgresStore)(nil)
	_ auth.IdentityFinder    = (*PostgresStore)(nil)
)
