package service

import (
	"context"
	"fmt"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
)

// automationLeadTime is how far ahead an automation-generated post is
// scheduled, leaving room for the user to intervene.
const automationLeadTime = time.Hour

type AutomationService interface {
	CreateRule(ctx context.Context, userID int64, rule *models.AutomationRule) (*models.AutomationRule, error)
	ListRules(ctx context.Context, userID int64) ([]*models.AutomationRule, error)
	SetRuleActive(ctx context.Context, userID, ruleID int64, active bool) error
	RemoveRule(ctx context.Context, userID, ruleID int64) error
	ExecuteRule(ctx context.Context, ruleID int64) (string, error)
}

type automationService struct {
	ur repository.UserRepository
	rr repository.AutomationRepository
	gs GenerationService
	ss ScheduleService
}

func NewAutomationService(
	ur repository.UserRepository,
	rr repository.AutomationRepository,
	gs GenerationService,
	ss ScheduleService) AutomationService {
	return &automationService{
		ur: ur,
		rr: rr,
		gs: gs,
		ss: ss,
	}
}

func (s *automationService) CreateRule(ctx context.Context, userID int64, rule *models.AutomationRule) (*models.AutomationRule, error) {
	if rule == nil || rule.Topic == "" {
		return nil, fmt.Errorf("%w: topic is empty", ErrInvalidInput)
	}
	if !models.IsValidPlatform(rule.Platform) {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, rule.Platform)
	}
	if rule.Frequency != models.FrequencyDaily && rule.Frequency != models.FrequencyWeekly {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, rule.Frequency)
	}

	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	count, err := s.rr.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if check := tier.CanAddAutomationRule(user.Tier, count); !check.Allowed {
		return nil, &QuotaError{Category: "automation", Check: check}
	}

	rule.UserID = userID
	rule.IsActive = true
	id, err := s.rr.Create(ctx, rule)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	return rule, nil
}

func (s *automationService) ListRules(ctx context.Context, userID int64) ([]*models.AutomationRule, error) {
	return s.rr.ListByUserID(ctx, userID)
}

func (s *automationService) ownedRule(ctx context.Context, userID, ruleID int64) (*models.AutomationRule, error) {
	rule, exists, err := s.rr.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: rule %d", ErrRuleNotFound, ruleID)
	}
	if rule.UserID != userID {
		return nil, ErrNotOwner
	}
	return rule, nil
}

func (s *automationService) SetRuleActive(ctx context.Context, userID, ruleID int64, active bool) error {
	if _, err := s.ownedRule(ctx, userID, ruleID); err != nil {
		return err
	}
	return s.rr.SetActive(ctx, ruleID, active)
}

func (s *automationService) RemoveRule(ctx context.Context, userID, ruleID int64) error {
	if _, err := s.ownedRule(ctx, userID, ruleID); err != nil {
		return err
	}
	return s.rr.Remove(ctx, ruleID)
}

// ExecuteRule generates content for the rule and schedules it through the
// same orchestrators manual posts use, so every quota and credit check
// applies identically.
func (s *automationService) ExecuteRule(ctx context.Context, ruleID int64) (string, error) {
	rule, exists, err := s.rr.GetByID(ctx, ruleID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: rule %d", ErrRuleNotFound, ruleID)
	}
	if !rule.IsActive {
		return fmt.Sprintf("rule %d is inactive", ruleID), nil
	}

	post, err := s.gs.Generate(ctx, rule.UserID, GenerationParams{
		Topic:    rule.Topic,
		Platform: rule.Platform,
		Tone:     rule.Tone,
	})
	if err != nil {
		return "", fmt.Errorf("rule %d generation: %w", ruleID, err)
	}

	resp, err := s.ss.SchedulePost(ctx, rule.UserID, post.ID, time.Now().Add(automationLeadTime))
	if err != nil {
		return "", fmt.Errorf("rule %d scheduling: %w", ruleID, err)
	}

	if err := s.rr.TouchLastRun(ctx, ruleID, time.Now()); err != nil {
		return "", err
	}
	return fmt.Sprintf("scheduled post %d for %s", resp.Post.ID, rule.Platform), nil
}
