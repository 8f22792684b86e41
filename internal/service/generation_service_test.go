package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

func generationFixture(t *testing.T, user *models.User, gen ContentGenerator) (GenerationService, *fakeUsageRepo, *fakeCreditLedger, *fakePostRepo) {
	t.Helper()

	ur := newFakeUserRepo(user)
	us := newFakeUsageRepo()
	pr := newFakePostRepo()
	cs := newFakeCreditLedger(user.Credits)
	svc := NewGenerationService(ur, us, NewPostService(pr), cs, gen)
	return svc, us, cs, pr
}

func TestGenerate_CostsOneCreditAndCreatesDraft(t *testing.T) {
	gen := &fakeGenerator{content: "Fresh ideas for your feed."}
	svc, us, cs, pr := generationFixture(t, &models.User{ID: 1, Tier: models.TierPro, Credits: 5}, gen)

	post, err := svc.Generate(context.Background(), 1, GenerationParams{
		Topic:    "product launch",
		Platform: models.PlatformLinkedin,
	})
	if err != nil {
		t.Fatalf("Generate err=%v", err)
	}

	if post.Status != models.PostStatusDraft || post.Content != gen.content {
		t.Fatalf("unexpected draft: %+v", post)
	}
	if _, ok := pr.posts[post.ID]; !ok {
		t.Fatal("draft not stored")
	}
	if cs.balance != 4 {
		t.Fatalf("expected balance 4, got %d", cs.balance)
	}

	day, _ := us.GetDay(context.Background(), 1, models.UsageDate(time.Now()))
	if day.Generations != 1 {
		t.Fatalf("expected 1 generation counted, got %d", day.Generations)
	}
}

func TestGenerate_DailyQuotaDenied(t *testing.T) {
	gen := &fakeGenerator{content: "unused"}
	svc, us, _, _ := generationFixture(t, &models.User{ID: 1, Tier: models.TierFree, Credits: 5}, gen)

	// Free tier allows 5 generations per day.
	for i := 0; i < 5; i++ {
		if err := us.IncrementGeneration(context.Background(), 1, models.UsageDate(time.Now())); err != nil {
			t.Fatalf("IncrementGeneration err=%v", err)
		}
	}

	_, err := svc.Generate(context.Background(), 1, GenerationParams{
		Topic:    "one too many",
		Platform: models.PlatformFacebook,
	})

	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected QuotaError, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not be called past quota, calls=%d", gen.calls)
	}
}

func TestGenerate_FailedGenerationIsFree(t *testing.T) {
	gen := &fakeGenerator{failWith: errors.New("model unavailable")}
	svc, us, cs, _ := generationFixture(t, &models.User{ID: 1, Tier: models.TierPro, Credits: 5}, gen)

	_, err := svc.Generate(context.Background(), 1, GenerationParams{
		Topic:    "doomed",
		Platform: models.PlatformTwitter,
	})
	if err == nil {
		t.Fatal("expected generation failure")
	}
	if cs.balance != 5 {
		t.Fatalf("failed generation must not charge, balance=%d", cs.balance)
	}

	day, _ := us.GetDay(context.Background(), 1, models.UsageDate(time.Now()))
	if day.Generations != 0 {
		t.Fatalf("failed generation must not count, got %d", day.Generations)
	}
}
