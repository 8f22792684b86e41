package models

import (
	"database/sql"
	"time"
)

// JobRecord mirrors what the async system ran, for admin visibility and
// retry. Kind is a closed enum; retry dispatches on it rather than on the
// job's name.
type JobRecord struct {
	ID           string         `db:"id" json:"id"`
	Kind         string         `db:"kind" json:"kind"`
	UserID       int64          `db:"user_id" json:"user_id"`
	Status       string         `db:"status" json:"status"`
	Payload      []byte         `db:"payload" json:"payload"`
	Result       sql.NullString `db:"result" json:"result"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
	RetryCount   int            `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	JobKindScheduledPost  = "scheduled_post"
	JobKindAutomationRule = "automation_rule"
	JobKindCreditCheck    = "credit_check"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)
