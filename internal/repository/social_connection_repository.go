package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/ismaelcompsci/postall/internal/models"
)

type SocialConnectionRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialConnection, error)
	GetByKeys(ctx context.Context, id, userID int64, platform string) (*models.SocialConnection, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	ListExpiring(ctx context.Context, until time.Time) ([]*models.SocialConnection, error)
	UpdateTokens(ctx context.Context, id int64, sc *models.SocialConnection) error
	CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type socialConnectionRepository struct {
	db *sql.DB
}

func NewSocialConnectionRepository(db *sql.DB) SocialConnectionRepository {
	return &socialConnectionRepository{db: db}
}

// Upsert inserts a connection, or refreshes its tokens and profile data when a
// row with the same (user_id, platform, platform_user_id) already exists.
func (r *socialConnectionRepository) Upsert(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error) {
	var err error
	var id int64

	var upsertQuery = `
		INSERT INTO social_connections(
			user_id,
			platform,
			platform_user_id,
			platform_username,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			refresh_token_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, platform, platform_user_id) DO UPDATE
		SET
			platform_username = EXCLUDED.platform_username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			refresh_token_expires_at = EXCLUDED.refresh_token_expires_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	if tx != nil {
		err = tx.QueryRowContext(ctx, upsertQuery,
			sc.UserID,
			sc.Platform,
			sc.PlatformUserID,
			sc.PlatformUsername,
			sc.ProfilePictureURL,
			sc.AccessToken,
			sc.RefreshToken,
			sc.TokenExpiresAt,
			sc.RefreshTokenExpiresAt,
		).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, upsertQuery,
			sc.UserID,
			sc.Platform,
			sc.PlatformUserID,
			sc.PlatformUsername,
			sc.ProfilePictureURL,
			sc.AccessToken,
			sc.RefreshToken,
			sc.TokenExpiresAt,
			sc.RefreshTokenExpiresAt,
		).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialConnectionRepository) GetByID(ctx context.Context, id int64) (*models.SocialConnection, error) {
	query := `
		SELECT id, user_id, platform, platform_user_id, platform_username,
			profile_picture_url, access_token, refresh_token, token_expires_at,
			refresh_token_expires_at, created_at, updated_at
		FROM social_connections
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanConnection(row)
}

// GetByKeys looks up exactly one connection matching all three keys; returns
// nil when no row matches.
func (r *socialConnectionRepository) GetByKeys(ctx context.Context, id, userID int64, platform string) (*models.SocialConnection, error) {
	query := `
		SELECT id, user_id, platform, platform_user_id, platform_username,
			profile_picture_url, access_token, refresh_token, token_expires_at,
			refresh_token_expires_at, created_at, updated_at
		FROM social_connections
		WHERE id = $1 AND user_id = $2 AND platform = $3
	`
	row := r.db.QueryRowContext(ctx, query, id, userID, platform)
	return scanConnection(row)
}

func scanConnection(row *sql.Row) (*models.SocialConnection, error) {
	var sc models.SocialConnection
	err := row.Scan(&sc.ID, &sc.UserID, &sc.Platform, &sc.PlatformUserID,
		&sc.PlatformUsername, &sc.ProfilePictureURL, &sc.AccessToken,
		&sc.RefreshToken, &sc.TokenExpiresAt, &sc.RefreshTokenExpiresAt,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &sc, nil
}

func (r *socialConnectionRepository) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	query := `SELECT id, platform, platform_username, profile_picture_url FROM social_connections WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.SocialConnection
	for rows.Next() {
		var sc models.SocialConnection
		err := rows.Scan(&sc.ID, &sc.Platform, &sc.PlatformUsername, &sc.ProfilePictureURL)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, &sc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return connections, nil
}

// ListExpiring returns connections whose access token expires before the given
// time, including the already-expired ones. Connections without a refresh token
// are excluded since they cannot be refreshed.
func (r *socialConnectionRepository) ListExpiring(ctx context.Context, until time.Time) ([]*models.SocialConnection, error) {
	query := `
		SELECT id, user_id, platform, access_token, refresh_token, token_expires_at
		FROM social_connections
		WHERE token_expires_at IS NOT NULL
		AND token_expires_at < $1
		AND refresh_token IS NOT NULL
	`
	rows, err := r.db.QueryContext(ctx, query, until)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.SocialConnection
	for rows.Next() {
		var sc models.SocialConnection
		err := rows.Scan(&sc.ID, &sc.UserID, &sc.Platform, &sc.AccessToken, &sc.RefreshToken, &sc.TokenExpiresAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, &sc)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return connections, nil
}

// UpdateTokens persists refreshed credentials. Empty values keep the stored
// ones so a platform that returns no new refresh token does not clobber it.
func (r *socialConnectionRepository) UpdateTokens(ctx context.Context, id int64, sc *models.SocialConnection) error {
	query := `
		UPDATE social_connections
		SET
			access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = COALESCE($4, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, sc.AccessToken, sc.RefreshToken.String, sc.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; connection may not exist")
		return sql.ErrNoRows
	}
	return nil
}

func (r *socialConnectionRepository) CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error) {
	query := `SELECT 1 FROM social_connections WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, connectionID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *socialConnectionRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_connections WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
