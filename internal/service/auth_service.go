package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type AuthService interface {
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	cfg config.Config
	ur  repository.UserRepository
}

func NewAuthService(cfg config.Config, ur repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		ur:  ur,
	}
}

// LoginCallback exchanges the Google code and returns the user id,
// creating the user on first login with the free tier's starting credits.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return 0, err
	}

	oauth2Config := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}

	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	userInfo, err := googleUserInfo(oauth2Config.Client(ctx, token))
	if err != nil {
		return 0, err
	}

	user, exists, err := s.ur.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		return 0, err
	}
	if exists {
		return user.ID, nil
	}

	userID, err := s.ur.Create(ctx, nil, &models.User{
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		ProfilePicture: userInfo.Picture,
		Tier:           models.TierFree,
		Credits:        tier.LimitsFor(models.TierFree).MonthlyCredits,
	})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return userID, nil
}

func googleUserInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	response, err := client.Get("https://www.googleapis.com/oauth2/v1/userinfo")
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}
	return &userInfo, nil
}
