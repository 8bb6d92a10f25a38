package models

import (
	"database/sql"
	"time"
)

// SocialConnection is one stored OAuth credential set linking a user to one
// external platform account. At most one row exists per
// (user_id, platform, platform_user_id); reconnecting upserts the row.
type SocialConnection struct {
	ID                    int64          `db:"id" json:"id"`
	UserID                int64          `db:"user_id" json:"user_id"`
	Platform              string         `db:"platform" json:"platform"`
	PlatformUserID        string         `db:"platform_user_id" json:"platform_user_id"`
	PlatformUsername      string         `db:"platform_username" json:"platform_username"`
	ProfilePictureURL     string         `db:"profile_picture_url" json:"profile_picture_url"`
	AccessToken           string         `db:"access_token" json:"-"`
	RefreshToken          sql.NullString `db:"refresh_token" json:"-"`
	TokenExpiresAt        sql.NullTime   `db:"token_expires_at" json:"token_expires_at"`
	RefreshTokenExpiresAt sql.NullTime   `db:"refresh_token_expires_at" json:"refresh_token_expires_at"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PlatformInstagram = "instagram"
	PlatformTiktok    = "tiktok"
	PlatformYoutube   = "youtube"
)
