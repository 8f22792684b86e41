package transfer

import "github.com/postpilothq/postpilot/internal/models"

type PostCreation struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
	Link     string `json:"link"`
}

type ScheduleRequest struct {
	PostID        int64  `json:"post_id"`
	ScheduledDate string `json:"scheduled_date"` // RFC 3339
}

type ScheduleResponse struct {
	Post             *models.Post `json:"post"`
	CreditsReserved  int          `json:"credits_reserved"`
	CreditsAvailable int          `json:"credits_available"`
	QueuePosition    int          `json:"queue_position"`
	QueueLimit       int          `json:"queue_limit"`
}

type PublishRequest struct {
	Platforms []string `json:"platforms"`
	Content   string   `json:"content"`
	ImageURL  string   `json:"image_url"`
	Link      string   `json:"link"`
}

type PlatformResult struct {
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	PostID         int64  `json:"post_id,omitempty"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	PostURL        string `json:"post_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

const (
	PublishOutcomeSuccess = "success"
	PublishOutcomePartial = "partial"
	PublishOutcomeFailure = "failure"
)

type PublishResponse struct {
	Outcome          string           `json:"outcome"`
	Results          []PlatformResult `json:"results"`
	CreditsDeducted  int              `json:"credits_deducted"`
	CreditsRemaining int              `json:"credits_remaining"`
}
