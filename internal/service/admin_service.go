package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

type PlatformStats struct {
	Users         int            `json:"users"`
	PostsByStatus map[string]int `json:"posts_by_status"`
	JobsByStatus  map[string]int `json:"jobs_by_status"`
	Revenue       int            `json:"revenue"`
}

type AdminService interface {
	ListJobs(ctx context.Context, status string, limit int) ([]*models.JobRecord, error)
	RetryJob(ctx context.Context, jobID string) error
	AddCredits(ctx context.Context, userID int64, amount int) error
	DeductCredits(ctx context.Context, userID int64, amount int) error
	UserReservations(ctx context.Context, userID int64) ([]*models.CreditReservation, error)
	Stats(ctx context.Context) (*PlatformStats, error)
}

type adminService struct {
	ur repository.UserRepository
	pr repository.PostRepository
	jr repository.JobRepository
	cr repository.CreditRepository
	sr repository.SubscriptionRepository
	cs CreditService
	em JobEmitter
}

func NewAdminService(
	ur repository.UserRepository,
	pr repository.PostRepository,
	jr repository.JobRepository,
	cr repository.CreditRepository,
	sr repository.SubscriptionRepository,
	cs CreditService,
	em JobEmitter) AdminService {
	return &adminService{
		ur: ur,
		pr: pr,
		jr: jr,
		cr: cr,
		sr: sr,
		cs: cs,
		em: em,
	}
}

func (s *adminService) ListJobs(ctx context.Context, status string, limit int) ([]*models.JobRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.jr.List(ctx, status, limit)
}

// RetryJob re-emits a failed job's original payload. The dispatch is a
// switch on the job's typed kind, so re-emission is deterministic. Retry
// is all or nothing: a failed re-emission reverts the job to failed with
// an annotated error.
func (s *adminService) RetryJob(ctx context.Context, jobID string) error {
	job, exists, err := s.jr.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != models.JobStatusFailed {
		return fmt.Errorf("%w: job is %s", ErrNotRetryable, job.Status)
	}

	if err := s.jr.MarkPendingForRetry(ctx, jobID); err != nil {
		if err == repository.ErrInvalidTransition {
			return ErrNotRetryable
		}
		return err
	}

	if err := s.reemit(ctx, job); err != nil {
		slog.Error("retry re-emission failed", "job_id", jobID, "error", err)
		if markErr := s.jr.MarkFailed(ctx, jobID, "retry re-emission failed: "+err.Error()); markErr != nil {
			slog.Error("failed to revert job status", "job_id", jobID, "error", markErr)
		}
		return fmt.Errorf("retry re-emission failed: %w", err)
	}
	return nil
}

func (s *adminService) reemit(ctx context.Context, job *models.JobRecord) error {
	switch job.Kind {
	case models.JobKindScheduledPost:
		var payload struct {
			PostID int64 `json:"post_id"`
		}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("corrupt payload: %w", err)
		}
		return s.em.EmitScheduledPost(ctx, job.ID, payload.PostID, time.Now())
	case models.JobKindAutomationRule:
		var payload struct {
			RuleID int64 `json:"rule_id"`
		}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("corrupt payload: %w", err)
		}
		return s.em.EmitAutomationRule(ctx, job.ID, payload.RuleID)
	case models.JobKindCreditCheck:
		return s.em.EmitCreditCheck(ctx, job.ID)
	}
	return fmt.Errorf("unknown job kind %q", job.Kind)
}

func (s *adminService) AddCredits(ctx context.Context, userID int64, amount int) error {
	return s.cs.AddCredits(ctx, userID, amount)
}

func (s *adminService) DeductCredits(ctx context.Context, userID int64, amount int) error {
	return s.cs.DeductCredits(ctx, userID, amount)
}

func (s *adminService) UserReservations(ctx context.Context, userID int64) ([]*models.CreditReservation, error) {
	return s.cr.ListByUserID(ctx, userID)
}

func (s *adminService) Stats(ctx context.Context) (*PlatformStats, error) {
	users, err := s.ur.Count(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.pr.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jr.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.sr.SumRevenue(ctx)
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		Users:         users,
		PostsByStatus: posts,
		JobsByStatus:  jobs,
		Revenue:       revenue,
	}, nil
}
