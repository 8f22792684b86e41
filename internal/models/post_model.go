package models

import (
	"database/sql"
	"time"
)

// Post is one platform target. A multi-platform publish request fans out
// to one row per platform, each independently creditable.
type Post struct {
	ID             int64          `db:"id" json:"id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Platform       string         `db:"platform" json:"platform"`
	Content        string         `db:"content" json:"content"`
	ImageURL       string         `db:"image_url" json:"image_url"`
	Link           string         `db:"link" json:"link"`
	Status         string         `db:"status" json:"status"`
	ScheduledDate  sql.NullTime   `db:"scheduled_date" json:"scheduled_date"`
	PlatformPostID sql.NullString `db:"platform_post_id" json:"platform_post_id"`
	PostURL        sql.NullString `db:"post_url" json:"post_url"`
	ErrorMessage   sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"

	// PostStatusPublishing is a short-lived claim state between scheduled
	// and posted/failed. It keeps a doubly triggered publish from running
	// twice.
	PostStatusPublishing = "publishing"
)

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformLinkedin  = "linkedin"
)

func IsValidPlatform(p string) bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformTwitter, PlatformLinkedin:
		return true
	}
	return false
}
