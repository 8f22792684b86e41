package models

import (
	"database/sql"
	"time"
)

type AutomationRule struct {
	ID        int64        `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Topic     string       `db:"topic" json:"topic"`
	Platform  string       `db:"platform" json:"platform"`
	Frequency string       `db:"frequency" json:"frequency"`
	Tone      string       `db:"tone" json:"tone"`
	IsActive  bool         `db:"is_active" json:"is_active"`
	LastRunAt sql.NullTime `db:"last_run_at" json:"last_run_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)
