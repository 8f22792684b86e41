package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Emitter hands tasks to asynq. It satisfies service.JobEmitter so
// services never depend on the transport directly.
type Emitter struct {
	client *asynq.Client
}

func NewEmitter(client *asynq.Client) *Emitter {
	return &Emitter{client: client}
}

func (e *Emitter) enqueue(taskType string, payload any, opts ...asynq.Option) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskType, raw)
	info, err := e.client.Enqueue(task, opts...)
	if err != nil {
		return err
	}
	slog.Info("task enqueued", "type", taskType, "task_id", info.ID)
	return nil
}

func (e *Emitter) EmitScheduledPost(ctx context.Context, jobID string, postID int64, runAt time.Time) error {
	delay := time.Until(runAt)
	if delay < 0 {
		delay = 0
	}
	return e.enqueue(TaskTypeSchedulePost, SchedulePostPayload{JobID: jobID, PostID: postID}, asynq.ProcessIn(delay))
}

func (e *Emitter) EmitAutomationRule(ctx context.Context, jobID string, ruleID int64) error {
	return e.enqueue(TaskTypeAutomationRule, AutomationRulePayload{JobID: jobID, RuleID: ruleID})
}

func (e *Emitter) EmitCreditCheck(ctx context.Context, jobID string) error {
	return e.enqueue(TaskTypeCreditCheck, CreditCheckPayload{JobID: jobID})
}
