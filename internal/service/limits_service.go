package service

import (
	"context"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type LimitsService interface {
	Overview(ctx context.Context, userID int64) (*transfer.LimitsResponse, error)
}

type limitsService struct {
	ur repository.UserRepository
	pr repository.PostRepository
	ar repository.AccountRepository
	rr repository.AutomationRepository
	us repository.UsageRepository
	cs CreditService
}

func NewLimitsService(
	ur repository.UserRepository,
	pr repository.PostRepository,
	ar repository.AccountRepository,
	rr repository.AutomationRepository,
	us repository.UsageRepository,
	cs CreditService) LimitsService {
	return &limitsService{
		ur: ur,
		pr: pr,
		ar: ar,
		rr: rr,
		us: us,
		cs: cs,
	}
}

// creditsStatus reports held credits against the current balance. Unlike
// the tier quotas the limit here is the mutable balance, so a zero
// balance with nothing held reads as idle, not exhausted.
func creditsStatus(balance, reserved int) transfer.LimitStatus {
	st := status(reserved, balance)
	if balance == 0 && reserved == 0 {
		st.IsAtLimit = false
	}
	return st
}

func status(current, limit int) transfer.LimitStatus {
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	pct := 0.0
	if limit > 0 {
		pct = float64(current) / float64(limit) * 100
		if pct > 100 {
			pct = 100
		}
	}
	return transfer.LimitStatus{
		Current:    current,
		Limit:      limit,
		Remaining:  remaining,
		Percentage: pct,
		IsAtLimit:  current >= limit,
	}
}

// Overview reports every quota category against the user's tier so the
// client can render remaining capacity.
func (s *limitsService) Overview(ctx context.Context, userID int64) (*transfer.LimitsResponse, error) {
	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	limits := tier.LimitsFor(user.Tier)

	balance, reserved, err := s.cs.BalanceAndReserved(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.ar.CountByPlatform(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalAccounts := 0
	for _, n := range counts {
		totalAccounts += n
	}

	queueSize, err := s.pr.CountScheduled(ctx, userID)
	if err != nil {
		return nil, err
	}

	usage, err := s.us.GetDay(ctx, userID, models.UsageDate(time.Now()))
	if err != nil {
		return nil, err
	}

	ruleCount, err := s.rr.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	dailyPosts := make(map[string]transfer.LimitStatus, 4)
	for _, platform := range []string{models.PlatformFacebook, models.PlatformInstagram, models.PlatformTwitter, models.PlatformLinkedin} {
		dailyPosts[platform] = status(usage.Platforms[platform], limits.DailyPostsPerPlatform)
	}

	return &transfer.LimitsResponse{
		Tier:              user.Tier,
		Credits:           creditsStatus(balance, reserved),
		ConnectedAccounts: status(totalAccounts, limits.TotalConnectedAccounts),
		Scheduling:        status(queueSize, limits.QueueSize),
		DailyGenerations:  status(usage.Generations, limits.DailyGenerations),
		DailyPosts:        dailyPosts,
		Automation:        status(ruleCount, limits.MaxAutomationRules),
	}, nil
}
