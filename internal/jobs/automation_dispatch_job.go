package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

// AutomationDispatchJob finds rules that are due and emits one automation
// job each. Execution itself happens on the queue worker so failures land
// in the job log for admin retry.
type AutomationDispatchJob struct {
	rr repository.AutomationRepository
	jr repository.JobRepository
	em service.JobEmitter
}

func NewAutomationDispatchJob(
	rr repository.AutomationRepository,
	jr repository.JobRepository,
	em service.JobEmitter) *AutomationDispatchJob {
	return &AutomationDispatchJob{
		rr: rr,
		jr: jr,
		em: em,
	}
}

func (j *AutomationDispatchJob) Run() {
	ctx := context.Background()

	rules, err := j.rr.ListDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, rule := range rules {
		jobID, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		record := models.JobRecord{
			ID:      jobID,
			Kind:    models.JobKindAutomationRule,
			UserID:  rule.UserID,
			Status:  models.JobStatusPending,
			Payload: []byte(fmt.Sprintf(`{"rule_id":%d}`, rule.ID)),
		}
		if err := j.jr.Create(ctx, &record); err != nil {
			slog.Info(err.Error())
			continue
		}

		if err := j.em.EmitAutomationRule(ctx, jobID, rule.ID); err != nil {
			slog.Error("failed to emit automation job", "rule_id", rule.ID, "error", err)
			if err := j.jr.MarkFailed(ctx, jobID, "event emission failed: "+err.Error()); err != nil {
				slog.Info(err.Error())
			}
		}
	}
}
