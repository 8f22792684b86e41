package service

import (
	"context"
	"fmt"
	"log/slog"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/pkg/utils"
	"golang.org/x/oauth2"
)

type AccountService interface {
	AuthURL(platform, state string) (string, error)
	Connect(ctx context.Context, userID int64, platform, code string) (*models.ConnectedAccount, error)
	List(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	cfg      config.Config
	ar       repository.AccountRepository
	ur       repository.UserRepository
	provider OAuthProvider
}

func NewAccountService(cfg config.Config, ar repository.AccountRepository, ur repository.UserRepository, provider OAuthProvider) AccountService {
	return &accountService{
		cfg:      cfg,
		ar:       ar,
		ur:       ur,
		provider: provider,
	}
}

func (s *accountService) oauthConfig(platform string) (*oauth2.Config, error) {
	switch platform {
	case models.PlatformFacebook:
		return &oauth2.Config{
			ClientID:     s.cfg.FacebookClientID,
			ClientSecret: s.cfg.FacebookClientSecret,
			RedirectURL:  s.cfg.FacebookRedirectURI,
			Scopes:       []string{"pages_manage_posts", "pages_read_engagement"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
				TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
			},
		}, nil
	case models.PlatformInstagram:
		return &oauth2.Config{
			ClientID:     s.cfg.InstagramClientID,
			ClientSecret: s.cfg.InstagramClientSecret,
			RedirectURL:  s.cfg.InstagramRedirectURI,
			Scopes:       []string{"instagram_basic", "instagram_content_publish"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://api.instagram.com/oauth/authorize",
				TokenURL: "https://api.instagram.com/oauth/access_token",
			},
		}, nil
	case models.PlatformTwitter:
		return &oauth2.Config{
			ClientID:     s.cfg.TwitterClientID,
			ClientSecret: s.cfg.TwitterClientSecret,
			RedirectURL:  s.cfg.TwitterRedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://twitter.com/i/oauth2/authorize",
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
		}, nil
	case models.PlatformLinkedin:
		return &oauth2.Config{
			ClientID:     s.cfg.LinkedinClientID,
			ClientSecret: s.cfg.LinkedinClientSecret,
			RedirectURL:  s.cfg.LinkedinRedirectURI,
			Scopes:       []string{"w_member_social", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
				TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, platform)
}

func (s *accountService) AuthURL(platform, state string) (string, error) {
	conf, err := s.oauthConfig(platform)
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Connect exchanges the OAuth code, checks the tier's connection quota and
// stores the account with encrypted tokens.
func (s *accountService) Connect(ctx context.Context, userID int64, platform, code string) (*models.ConnectedAccount, error) {
	if !models.IsValidPlatform(platform) {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, platform)
	}

	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	counts, err := s.ar.CountByPlatform(ctx, userID)
	if err != nil {
		return nil, err
	}
	if check := tier.CanConnect(user.Tier, counts, platform); !check.Allowed {
		return nil, &QuotaError{Category: "connected_accounts", Check: check}
	}

	token, err := s.provider.ExchangeCodeForToken(ctx, platform, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	profile, err := s.provider.GetUserProfile(ctx, platform, token)
	if err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}

	key := []byte(s.cfg.EncryptionKey)
	encAccess, err := utils.Encrypt([]byte(token.AccessToken), key)
	if err != nil {
		return nil, err
	}
	encRefresh := ""
	if token.RefreshToken != "" {
		encRefresh, err = utils.Encrypt([]byte(token.RefreshToken), key)
		if err != nil {
			return nil, err
		}
	}

	account := models.ConnectedAccount{
		UserID:         userID,
		Platform:       platform,
		AccountID:      profile.AccountID,
		AccountName:    profile.AccountName,
		ProfilePicture: profile.ProfilePicture,
		AccessToken:    encAccess,
		RefreshToken:   encRefresh,
		TokenExpiresAt: token.ExpiresAt,
		IsActive:       true,
	}

	id, err := s.ar.Create(ctx, nil, &account)
	if err != nil {
		return nil, err
	}
	account.ID = id
	return &account, nil
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	return s.ar.ListByUserID(ctx, userID)
}

// Disconnect removes the account. Token revocation is best effort: a
// failing revoke call is logged and the disconnection proceeds.
func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	account, exists, err := s.ar.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}
	if account.UserID != userID {
		return ErrNotOwner
	}

	token, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.EncryptionKey))
	if err != nil {
		slog.Info("failed to decrypt token for revocation", "account_id", accountID, "error", err.Error())
	} else if err := s.provider.RevokeToken(ctx, account.Platform, token); err != nil {
		slog.Info("token revocation failed", "account_id", accountID, "platform", account.Platform, "error", err.Error())
	}

	return s.ar.Remove(ctx, accountID)
}
