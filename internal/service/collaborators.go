package service

import (
	"context"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

// PublishContent is what gets pushed to a platform.
type PublishContent struct {
	Text     string
	ImageURL string
	Link     string
}

// PublishResult is one platform's answer to a publish call.
type PublishResult struct {
	PlatformPostID string
	PostURL        string
}

// PlatformPublisher is the external per-platform publishing collaborator.
type PlatformPublisher interface {
	Publish(ctx context.Context, account *models.ConnectedAccount, content PublishContent) (*PublishResult, error)
}

// OAuthToken is the token bundle returned by a platform's code exchange.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// OAuthProfile identifies the external account that authorized us.
type OAuthProfile struct {
	AccountID      string
	AccountName    string
	ProfilePicture string
}

// OAuthProvider is the external OAuth collaborator for connecting
// accounts. RevokeToken is best effort; callers log and swallow errors.
type OAuthProvider interface {
	ExchangeCodeForToken(ctx context.Context, platform, code string) (*OAuthToken, error)
	GetUserProfile(ctx context.Context, platform string, token *OAuthToken) (*OAuthProfile, error)
	RevokeToken(ctx context.Context, platform, accessToken string) error
}

// GenerationParams shape the prompt sent to the AI collaborator.
type GenerationParams struct {
	Topic    string
	Platform string
	Tone     string
	Language string
}

// ContentGenerator is the external AI content collaborator.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, params GenerationParams) (string, error)
}

// JobEmitter hands work to the async job system. Emission is fire and
// forget; the cron sweeps are the delivery backstop.
type JobEmitter interface {
	EmitScheduledPost(ctx context.Context, jobID string, postID int64, runAt time.Time) error
	EmitAutomationRule(ctx context.Context, jobID string, ruleID int64) error
	EmitCreditCheck(ctx context.Context, jobID string) error
}
