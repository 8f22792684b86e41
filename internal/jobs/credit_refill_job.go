package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/internal/tier"
)

const refillInterval = 30 * 24 * time.Hour

// CreditRefillJob grants each user their tier's monthly credits once per
// billing month. Paid renewals also grant through the subscription
// webhook; MarkRefilled keeps the two paths from stacking.
type CreditRefillJob struct {
	ur repository.UserRepository
	cs service.CreditService
}

func NewCreditRefillJob(ur repository.UserRepository, cs service.CreditService) *CreditRefillJob {
	return &CreditRefillJob{ur: ur, cs: cs}
}

func (j *CreditRefillJob) Run() {
	ctx := context.Background()

	users, err := j.ur.ListDueForRefill(ctx, time.Now().Add(-refillInterval), sweepBatchSize)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, user := range users {
		grant := tier.LimitsFor(user.Tier).MonthlyCredits
		if err := j.cs.AddCredits(ctx, user.ID, grant); err != nil {
			slog.Info("refill failed", "user_id", user.ID, "error", err.Error())
			continue
		}
		if err := j.ur.MarkRefilled(ctx, user.ID, time.Now()); err != nil {
			slog.Info(err.Error())
		}
	}
}
