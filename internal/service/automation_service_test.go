package service

import (
	"context"
	"errors"
	"testing"

	"github.com/postpilothq/postpilot/internal/models"
)

func automationFixture(t *testing.T, user *models.User, rules ...*models.AutomationRule) (AutomationService, *fakeAutomationRepo) {
	t.Helper()
	rr := newFakeAutomationRepo(rules...)
	return NewAutomationService(newFakeUserRepo(user), rr, nil, nil), rr
}

func TestSetRuleActive_UnknownRule(t *testing.T) {
	svc, _ := automationFixture(t, &models.User{ID: 1, Tier: models.TierBusiness})

	err := svc.SetRuleActive(context.Background(), 1, 5, false)
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestExecuteRule_UnknownRule(t *testing.T) {
	svc, _ := automationFixture(t, &models.User{ID: 1, Tier: models.TierBusiness})

	if _, err := svc.ExecuteRule(context.Background(), 9); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestRemoveRule_NotOwner(t *testing.T) {
	rule := &models.AutomationRule{
		ID:        5,
		UserID:    2,
		Topic:     "coffee gear",
		Platform:  models.PlatformTwitter,
		Frequency: models.FrequencyDaily,
		IsActive:  true,
	}
	svc, rr := automationFixture(t, &models.User{ID: 1, Tier: models.TierBusiness}, rule)

	if err := svc.RemoveRule(context.Background(), 1, 5); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, ok := rr.rules[5]; !ok {
		t.Fatal("rule must not be removed")
	}
}
