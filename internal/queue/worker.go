package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/postpilothq/postpilot/internal/models"
)

// HandleSchedulePostTask fires when a scheduled post comes due. The post
// and the job record are two systems of record kept consistent but not
// transactionally linked: on failure the publish service has already
// failed the post, and the job is marked failed here.
func (w *Worker) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	w.markRunning(ctx, payload.JobID)

	result, err := w.ps.PublishScheduled(ctx, payload.PostID)
	if err != nil {
		slog.Error("scheduled publish failed", "post_id", payload.PostID, "error", err)
		w.markFailed(ctx, payload.JobID, err.Error())
		// The failure is recorded on the post and the job; retry goes
		// through the admin path, not asynq's redelivery.
		return nil
	}

	w.markCompleted(ctx, payload.JobID, result)
	return nil
}

// HandleAutomationRuleTask runs one automation rule through the same
// generation and scheduling paths as a manual post.
func (w *Worker) HandleAutomationRuleTask(ctx context.Context, task *asynq.Task) error {
	var payload AutomationRulePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	w.markRunning(ctx, payload.JobID)

	result, err := w.as.ExecuteRule(ctx, payload.RuleID)
	if err != nil {
		slog.Error("automation rule failed", "rule_id", payload.RuleID, "error", err)
		w.markFailed(ctx, payload.JobID, err.Error())
		return nil
	}

	w.markCompleted(ctx, payload.JobID, result)
	return nil
}

// HandleCreditCheckTask expires overdue reservations and fails the posts
// they were backing.
func (w *Worker) HandleCreditCheckTask(ctx context.Context, task *asynq.Task) error {
	var payload CreditCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	w.markRunning(ctx, payload.JobID)

	released, err := w.ExpireReservations(ctx)
	if err != nil {
		w.markFailed(ctx, payload.JobID, err.Error())
		return nil
	}

	w.markCompleted(ctx, payload.JobID, released)
	return nil
}

// ExpireReservations reclaims overdue credit holds. Posts still sitting
// in the queue after their reservation lapsed are failed so they stop
// occupying queue space.
func (w *Worker) ExpireReservations(ctx context.Context) (string, error) {
	postIDs, err := w.cr.ExpireDue(ctx, time.Now())
	if err != nil {
		return "", err
	}

	for _, postID := range postIDs {
		claimed, err := w.pr.ClaimForPublish(ctx, postID, models.PostStatusScheduled)
		if err != nil {
			slog.Error("failed to claim post for expiry", "post_id", postID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		if err := w.pr.MarkFailed(ctx, postID, "credit reservation expired"); err != nil {
			slog.Error("failed to fail expired post", "post_id", postID, "error", err)
		}
	}

	slog.Info("reservation expiry sweep done", "expired", len(postIDs))
	return fmt.Sprintf("expired %d reservation(s)", len(postIDs)), nil
}

func (w *Worker) markRunning(ctx context.Context, jobID string) {
	if jobID == "" {
		return
	}
	if err := w.jr.MarkRunning(ctx, jobID); err != nil {
		slog.Info("failed to mark job running", "job_id", jobID, "error", err.Error())
	}
}

func (w *Worker) markCompleted(ctx context.Context, jobID, result string) {
	if jobID == "" {
		return
	}
	if err := w.jr.MarkCompleted(ctx, jobID, result); err != nil {
		slog.Info("failed to mark job completed", "job_id", jobID, "error", err.Error())
	}
}

func (w *Worker) markFailed(ctx context.Context, jobID, message string) {
	if jobID == "" {
		return
	}
	if err := w.jr.MarkFailed(ctx, jobID, message); err != nil {
		slog.Info("failed to mark job failed", "job_id", jobID, "error", err.Error())
	}
}

