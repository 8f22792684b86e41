package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/pkg/utils"
)

// Publisher pushes content to the social platforms over their HTTP APIs.
// It implements service.PlatformPublisher.
type Publisher struct {
	cfg    config.Config
	client *http.Client
}

func NewPublisher(cfg config.Config) *Publisher {
	return &Publisher{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, account *models.ConnectedAccount, content service.PublishContent) (*service.PublishResult, error) {
	token, err := utils.Decrypt(account.AccessToken, []byte(p.cfg.EncryptionKey))
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("unable to decrypt access token: %w", err)
	}

	switch account.Platform {
	case models.PlatformFacebook:
		return p.publishFacebook(ctx, account, token, content)
	case models.PlatformInstagram:
		return p.publishInstagram(ctx, account, token, content)
	case models.PlatformTwitter:
		return p.publishTwitter(ctx, token, content)
	case models.PlatformLinkedin:
		return p.publishLinkedin(ctx, account, token, content)
	}
	return nil, fmt.Errorf("unsupported platform %q", account.Platform)
}

func (p *Publisher) publishFacebook(ctx context.Context, account *models.ConnectedAccount, token string, content service.PublishContent) (*service.PublishResult, error) {
	endpoint := fmt.Sprintf("https://graph.facebook.com/v19.0/%s/feed", account.AccountID)
	data := url.Values{}
	data.Set("message", content.Text)
	data.Set("access_token", token)
	if content.Link != "" {
		data.Set("link", content.Link)
	}
	if content.ImageURL != "" {
		endpoint = fmt.Sprintf("https://graph.facebook.com/v19.0/%s/photos", account.AccountID)
		data.Set("url", content.ImageURL)
		data.Set("caption", content.Text)
	}

	var result struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := p.postForm(ctx, endpoint, data, &result); err != nil {
		return nil, err
	}

	postID := result.PostID
	if postID == "" {
		postID = result.ID
	}
	return &service.PublishResult{
		PlatformPostID: postID,
		PostURL:        fmt.Sprintf("https://www.facebook.com/%s", postID),
	}, nil
}

// publishInstagram is the Graph API two-step: create a media container,
// then publish it. Instagram has no text-only posts, the caller checks
// for an image before we get here.
func (p *Publisher) publishInstagram(ctx context.Context, account *models.ConnectedAccount, token string, content service.PublishContent) (*service.PublishResult, error) {
	containerData := url.Values{}
	containerData.Set("image_url", content.ImageURL)
	containerData.Set("caption", content.Text)
	containerData.Set("access_token", token)

	var container struct {
		ID string `json:"id"`
	}
	containerURL := fmt.Sprintf("https://graph.facebook.com/v19.0/%s/media", account.AccountID)
	if err := p.postForm(ctx, containerURL, containerData, &container); err != nil {
		return nil, err
	}

	publishData := url.Values{}
	publishData.Set("creation_id", container.ID)
	publishData.Set("access_token", token)

	var published struct {
		ID string `json:"id"`
	}
	publishURL := fmt.Sprintf("https://graph.facebook.com/v19.0/%s/media_publish", account.AccountID)
	if err := p.postForm(ctx, publishURL, publishData, &published); err != nil {
		return nil, err
	}

	return &service.PublishResult{
		PlatformPostID: published.ID,
		PostURL:        fmt.Sprintf("https://www.instagram.com/p/%s", published.ID),
	}, nil
}

func (p *Publisher) publishTwitter(ctx context.Context, token string, content service.PublishContent) (*service.PublishResult, error) {
	text := content.Text
	if content.Link != "" {
		text = text + " " + content.Link
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitter.com/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.do(req, &result); err != nil {
		return nil, err
	}

	return &service.PublishResult{
		PlatformPostID: result.Data.ID,
		PostURL:        fmt.Sprintf("https://twitter.com/i/web/status/%s", result.Data.ID),
	}, nil
}

func (p *Publisher) publishLinkedin(ctx context.Context, account *models.ConnectedAccount, token string, content service.PublishContent) (*service.PublishResult, error) {
	payload := map[string]interface{}{
		"author":         fmt.Sprintf("urn:li:person:%s", account.AccountID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": content.Text,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.linkedin.com/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var result struct {
		ID string `json:"id"`
	}
	if err := p.do(req, &result); err != nil {
		return nil, err
	}

	return &service.PublishResult{
		PlatformPostID: result.ID,
		PostURL:        fmt.Sprintf("https://www.linkedin.com/feed/update/%s", result.ID),
	}, nil
}

func (p *Publisher) postForm(ctx context.Context, endpoint string, data url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req, out)
}

func (p *Publisher) do(req *http.Request, out interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("platform request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error decoding platform response: %w", err)
	}
	return nil
}
