package models

import "time"

// DailyUsage is keyed by (user_id, usage_date). A new date starts a fresh
// row, so counters reset by rollover rather than deletion.
type DailyUsage struct {
	UserID      int64          `db:"user_id" json:"user_id"`
	UsageDate   string         `db:"usage_date" json:"usage_date"` // YYYY-MM-DD
	PostsTotal  int            `db:"posts_total" json:"posts_total"`
	Platforms   map[string]int `db:"platforms" json:"platforms"`
	Generations int            `db:"generations" json:"generations"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

func UsageDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
