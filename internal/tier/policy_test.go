package tier

import (
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

func TestCanPostBoundary(t *testing.T) {
	limit := LimitsFor(models.TierFree).DailyPostsPerPlatform

	check := CanPost(models.TierFree, models.PlatformFacebook, map[string]int{models.PlatformFacebook: limit - 1})
	if !check.Allowed {
		t.Fatalf("expected allowed at limit-1, got %+v", check)
	}

	check = CanPost(models.TierFree, models.PlatformFacebook, map[string]int{models.PlatformFacebook: limit})
	if check.Allowed {
		t.Fatalf("expected denied at limit, got %+v", check)
	}
	if check.Limit != limit || check.Current != limit {
		t.Fatalf("expected limit=%d current=%d, got %+v", limit, limit, check)
	}
}

func TestCanPostOtherPlatformUnaffected(t *testing.T) {
	breakdown := map[string]int{models.PlatformFacebook: 5}
	if check := CanPost(models.TierFree, models.PlatformTwitter, breakdown); !check.Allowed {
		t.Fatalf("twitter should be unaffected by facebook count: %+v", check)
	}
}

func TestCanSchedule(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		tier      string
		queueSize int
		date      time.Time
		allowed   bool
	}{
		{"ok", models.TierPro, 0, now.AddDate(0, 0, 3), true},
		{"queue full", models.TierFree, 10, now.AddDate(0, 0, 1), false},
		{"past date", models.TierPro, 0, now.Add(-time.Hour), false},
		{"window exceeded", models.TierPro, 0, now.AddDate(0, 0, 40), false},
		{"window edge", models.TierPro, 0, now.AddDate(0, 0, 30).Add(-time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := CanSchedule(tt.tier, tt.queueSize, tt.date, now)
			if check.Allowed != tt.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tt.allowed, check)
			}
		})
	}
}

func TestCanConnect(t *testing.T) {
	counts := map[string]int{models.PlatformFacebook: 1, models.PlatformTwitter: 1}
	if check := CanConnect(models.TierFree, counts, models.PlatformInstagram); check.Allowed {
		t.Fatalf("free tier total limit should deny: %+v", check)
	}

	counts = map[string]int{models.PlatformFacebook: 1}
	if check := CanConnect(models.TierFree, counts, models.PlatformFacebook); check.Allowed {
		t.Fatalf("per-platform limit should deny: %+v", check)
	}
	if check := CanConnect(models.TierFree, counts, models.PlatformTwitter); !check.Allowed {
		t.Fatalf("other platform should be allowed: %+v", check)
	}
}

func TestHasEnoughCredits(t *testing.T) {
	// balance=3 with 2 reserved leaves 1 available; a cost of 2 must fail.
	if check := HasEnoughCredits(3, 2, 2); check.Allowed {
		t.Fatalf("expected denial, got %+v", check)
	}
	if check := HasEnoughCredits(3, 2, 1); !check.Allowed {
		t.Fatalf("expected allowed, got %+v", check)
	}
	if check := HasEnoughCredits(3, 0, 3); !check.Allowed {
		t.Fatalf("expected allowed at exact balance, got %+v", check)
	}
}

func TestCalculatePostCredits(t *testing.T) {
	if got := CalculatePostCredits([]string{models.PlatformFacebook, models.PlatformInstagram}); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := CalculatePostCredits(nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestCanAddAutomationRule(t *testing.T) {
	if check := CanAddAutomationRule(models.TierFree, 0); check.Allowed {
		t.Fatalf("free tier has no automation: %+v", check)
	}
	if check := CanAddAutomationRule(models.TierPro, 5); check.Allowed {
		t.Fatalf("pro tier rule limit should deny: %+v", check)
	}
	if check := CanAddAutomationRule(models.TierPro, 4); !check.Allowed {
		t.Fatalf("expected allowed, got %+v", check)
	}
}

func TestLimitsForUnknownTier(t *testing.T) {
	if got := LimitsFor("enterprise"); got != LimitsFor(models.TierFree) {
		t.Fatalf("unknown tier should fall back to free limits")
	}
}
