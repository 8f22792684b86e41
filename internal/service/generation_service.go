package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/internal/transfer"
)

const generationCost = 1

type GenerationService interface {
	Generate(ctx context.Context, userID int64, params GenerationParams) (*models.Post, error)
}

type generationService struct {
	ur  repository.UserRepository
	us  repository.UsageRepository
	ps  PostService
	cs  CreditService
	gen ContentGenerator
}

func NewGenerationService(
	ur repository.UserRepository,
	us repository.UsageRepository,
	ps PostService,
	cs CreditService,
	gen ContentGenerator) GenerationService {
	return &generationService{
		ur:  ur,
		us:  us,
		ps:  ps,
		cs:  cs,
		gen: gen,
	}
}

// Generate produces a draft post from the AI collaborator. Every call
// costs one credit once generation succeeds, regardless of the output.
func (s *generationService) Generate(ctx context.Context, userID int64, params GenerationParams) (*models.Post, error) {
	if params.Topic == "" {
		return nil, fmt.Errorf("%w: topic is empty", ErrInvalidInput)
	}
	if !models.IsValidPlatform(params.Platform) {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, params.Platform)
	}

	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	usage, err := s.us.GetDay(ctx, userID, models.UsageDate(time.Now()))
	if err != nil {
		return nil, err
	}
	if check := tier.CanGenerate(user.Tier, usage.Generations); !check.Allowed {
		return nil, &QuotaError{Category: "daily_generations", Check: check}
	}

	balance, reserved, err := s.cs.BalanceAndReserved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if check := tier.HasEnoughCredits(balance, reserved, generationCost); !check.Allowed {
		return nil, &CreditError{Required: generationCost, Available: balance - reserved}
	}

	content, err := s.gen.GenerateContent(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("content generation failed: %w", err)
	}

	if err := s.cs.DeductCredits(ctx, userID, generationCost); err != nil {
		return nil, err
	}

	if err := s.us.IncrementGeneration(ctx, userID, models.UsageDate(time.Now())); err != nil {
		slog.Info("failed to increment generation counter", "user_id", userID, "error", err.Error())
	}

	return s.ps.CreateDraft(ctx, userID, &transfer.PostCreation{
		Platform: params.Platform,
		Content:  content,
	})
}
