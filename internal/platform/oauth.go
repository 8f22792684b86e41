package platform

import (
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
	"golang.org/x/oauth2"
)

// Provider performs the OAuth code exchange, profile fetch and token
// revocation for each platform. It implements service.OAuthProvider.
type Provider struct {
	cfg    config.Config
	client *http.Client
}

func NewProvider(cfg config.Config) *Provider {
	return &Provider{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *Provider) oauthConfig(platform string) (*oauth2.Config, error) {
	switch platform {
	case models.PlatformFacebook:
		return &oauth2.Config{
			ClientID:     p.cfg.FacebookClientID,
			ClientSecret: p.cfg.FacebookClientSecret,
			RedirectURL:  p.cfg.FacebookRedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
			},
		}, nil
	case models.PlatformInstagram:
		return &oauth2.Config{
			ClientID:     p.cfg.InstagramClientID,
			ClientSecret: p.cfg.InstagramClientSecret,
			RedirectURL:  p.cfg.InstagramRedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL: "https://api.instagram.com/oauth/access_token",
			},
		}, nil
	case models.PlatformTwitter:
		return &oauth2.Config{
			ClientID:     p.cfg.TwitterClientID,
			ClientSecret: p.cfg.TwitterClientSecret,
			RedirectURL:  p.cfg.TwitterRedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
		}, nil
	case models.PlatformLinkedin:
		return &oauth2.Config{
			ClientID:     p.cfg.LinkedinClientID,
			ClientSecret: p.cfg.LinkedinClientSecret,
			RedirectURL:  p.cfg.LinkedinRedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported platform %q", platform)
}

func (p *Provider) ExchangeCodeForToken(ctx context.Context, platform, code string) (*service.OAuthToken, error) {
	conf, err := p.oauthConfig(platform)
	if err != nil {
		return nil, err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(60 * 24 * time.Hour)
	}
	return &service.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (p *Provider) GetUserProfile(ctx context.Context, platform string, token *service.OAuthToken) (*service.OAuthProfile, error) {
	switch platform {
	case models.PlatformFacebook:
		return p.facebookProfile(ctx, token.AccessToken)
	case models.PlatformInstagram:
		return p.instagramProfile(ctx, token.AccessToken)
	case models.PlatformTwitter:
		return p.twitterProfile(ctx, token.AccessToken)
	case models.PlatformLinkedin:
		return p.linkedinProfile(ctx, token.AccessToken)
	}
	return nil, fmt.Errorf("unsupported platform %q", platform)
}

func (p *Provider) facebookProfile(ctx context.Context, token string) (*service.OAuthProfile, error) {
	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	endpoint := "https://graph.facebook.com/v19.0/me?fields=id,name,picture&access_token=" + url.QueryEscape(token)
	if err := p.get(ctx, endpoint, "", &info); err != nil {
		return nil, err
	}
	return &service.OAuthProfile{
		AccountID:      info.ID,
		AccountName:    info.Name,
		ProfilePicture: info.Picture.Data.URL,
	}, nil
}

func (p *Provider) instagramProfile(ctx context.Context, token string) (*service.OAuthProfile, error) {
	var info struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	endpoint := "https://graph.instagram.com/me?fields=id,username&access_token=" + url.QueryEscape(token)
	if err := p.get(ctx, endpoint, "", &info); err != nil {
		return nil, err
	}
	return &service.OAuthProfile{
		AccountID:   info.ID,
		AccountName: info.Username,
	}, nil
}

func (p *Provider) twitterProfile(ctx context.Context, token string) (*service.OAuthProfile, error) {
	var info struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	endpoint := "https://api.twitter.com/2/users/me?user.fields=profile_image_url"
	if err := p.get(ctx, endpoint, token, &info); err != nil {
		return nil, err
	}
	return &service.OAuthProfile{
		AccountID:      info.Data.ID,
		AccountName:    info.Data.Name,
		ProfilePicture: info.Data.ProfileImageURL,
	}, nil
}

func (p *Provider) linkedinProfile(ctx context.Context, token string) (*service.OAuthProfile, error) {
	var info struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := p.get(ctx, "https://api.linkedin.com/v2/userinfo", token, &info); err != nil {
		return nil, err
	}
	return &service.OAuthProfile{
		AccountID:      info.Sub,
		AccountName:    info.Name,
		ProfilePicture: info.Picture,
	}, nil
}

func (p *Provider) RevokeToken(ctx context.Context, platform, token string) error {
	var endpoint string
	data := url.Values{}

	switch platform {
	case models.PlatformFacebook, models.PlatformInstagram:
		endpoint = "https://graph.facebook.com/v19.0/me/permissions?access_token=" + url.QueryEscape(token)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return err
		}
		return p.doDiscard(req)
	case models.PlatformTwitter:
		endpoint = "https://api.twitter.com/2/oauth2/revoke"
		data.Set("token", token)
		data.Set("client_id", p.cfg.TwitterClientID)
	case models.PlatformLinkedin:
		endpoint = "https://www.linkedin.com/oauth/v2/revoke"
		data.Set("token", token)
		data.Set("client_id", p.cfg.LinkedinClientID)
		data.Set("client_secret", p.cfg.LinkedinClientSecret)
	default:
		return fmt.Errorf("unsupported platform %q", platform)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.doDiscard(req)
}

func (p *Provider) get(ctx context.Context, endpoint, bearer string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("profile request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error decoding profile response: %w", err)
	}
	return nil
}

func (p *Provider) doDiscard(req *http.Request) error {
	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revocation failed with status %d", resp.StatusCode)
	}
	return nil
}
