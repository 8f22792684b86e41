package queue

import (
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

const (
	TaskTypeSchedulePost   = "schedule:post"
	TaskTypeAutomationRule = "automation:rule"
	TaskTypeCreditCheck    = "credits:check"
)

type SchedulePostPayload struct {
	JobID  string `json:"job_id"`
	PostID int64  `json:"post_id"`
}

type AutomationRulePayload struct {
	JobID  string `json:"job_id"`
	RuleID int64  `json:"rule_id"`
}

type CreditCheckPayload struct {
	JobID string `json:"job_id"`
}

// Worker consumes tasks from the async system and drives them through
// the orchestrators, recording the outcome on the job record.
type Worker struct {
	jr repository.JobRepository
	pr repository.PostRepository
	ps service.PublishService
	as service.AutomationService
	cr repository.CreditRepository
}

func NewWorker(
	jr repository.JobRepository,
	pr repository.PostRepository,
	ps service.PublishService,
	as service.AutomationService,
	cr repository.CreditRepository) *Worker {
	return &Worker{
		jr: jr,
		pr: pr,
		ps: ps,
		as: as,
		cr: cr,
	}
}
