package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/internal/transfer"
)

// reservationGrace is how long past the scheduled date a reservation stays
// consumable before the expiry sweep reclaims it.
const reservationGrace = 24 * time.Hour

type ScheduleService interface {
	SchedulePost(ctx context.Context, userID, postID int64, scheduledDate time.Time) (*transfer.ScheduleResponse, error)
	CancelSchedule(ctx context.Context, userID, postID int64) error
}

type scheduleService struct {
	db *sql.DB
	ur repository.UserRepository
	pr repository.PostRepository
	jr repository.JobRepository
	cs CreditService
	em JobEmitter
}

func NewScheduleService(
	db *sql.DB,
	ur repository.UserRepository,
	pr repository.PostRepository,
	jr repository.JobRepository,
	cs CreditService,
	em JobEmitter) ScheduleService {
	return &scheduleService{
		db: db,
		ur: ur,
		pr: pr,
		jr: jr,
		cs: cs,
		em: em,
	}
}

// SchedulePost validates quota and credits, then reserves credits and
// moves the draft into the queue in one transaction. Event emission
// happens after commit and is best effort; the recovery sweep picks up
// due posts whose event never arrived.
func (s *scheduleService) SchedulePost(ctx context.Context, userID, postID int64, scheduledDate time.Time) (*transfer.ScheduleResponse, error) {
	post, exists, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		return nil, ErrNotOwner
	}
	if post.Status != models.PostStatusDraft {
		return nil, fmt.Errorf("%w: post is %s, only drafts can be scheduled", ErrInvalidInput, post.Status)
	}

	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	queueSize, err := s.pr.CountScheduled(ctx, userID)
	if err != nil {
		return nil, err
	}

	if check := tier.CanSchedule(user.Tier, queueSize, scheduledDate, time.Now()); !check.Allowed {
		return nil, &QuotaError{Category: "scheduling", Check: check}
	}

	cost := tier.CalculatePostCredits([]string{post.Platform})
	balance, reserved, err := s.cs.BalanceAndReserved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if check := tier.HasEnoughCredits(balance, reserved, cost); !check.Allowed {
		return nil, &CreditError{Required: cost, Available: balance - reserved}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	reservation, err := s.cs.Reserve(ctx, tx, userID, postID, cost, scheduledDate.Add(reservationGrace))
	if err != nil {
		if err == repository.ErrInsufficientCredits {
			return nil, &CreditError{Required: cost, Available: balance - reserved}
		}
		return nil, err
	}

	if err := s.pr.MarkScheduled(ctx, tx, postID, scheduledDate); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	post.Status = models.PostStatusScheduled
	post.ScheduledDate = sql.NullTime{Time: scheduledDate, Valid: true}

	s.emitScheduledPost(ctx, userID, postID, scheduledDate)

	return &transfer.ScheduleResponse{
		Post:             post,
		CreditsReserved:  reservation.Amount,
		CreditsAvailable: balance - reserved - reservation.Amount,
		QueuePosition:    queueSize + 1,
		QueueLimit:       tier.LimitsFor(user.Tier).QueueSize,
	}, nil
}

// emitScheduledPost records a job and hands it to the async system. A
// failed emission leaves the job failed for admin retry but never unwinds
// the reservation: the post is correctly scheduled either way.
func (s *scheduleService) emitScheduledPost(ctx context.Context, userID, postID int64, runAt time.Time) {
	jobID, err := gonanoid.New()
	if err != nil {
		slog.Error("failed to generate job id", "error", err)
		return
	}

	payload := fmt.Sprintf(`{"post_id":%d}`, postID)
	job := models.JobRecord{
		ID:      jobID,
		Kind:    models.JobKindScheduledPost,
		UserID:  userID,
		Status:  models.JobStatusPending,
		Payload: []byte(payload),
	}
	if err := s.jr.Create(ctx, &job); err != nil {
		slog.Error("failed to record scheduled-post job", "post_id", postID, "error", err)
		return
	}

	if err := s.em.EmitScheduledPost(ctx, jobID, postID, runAt); err != nil {
		slog.Error("failed to emit scheduled-post event", "post_id", postID, "error", err)
		if err := s.jr.MarkFailed(ctx, jobID, "event emission failed: "+err.Error()); err != nil {
			slog.Error("failed to mark job failed", "job_id", jobID, "error", err)
		}
	}
}

// CancelSchedule releases the reservation and returns the post to draft.
func (s *scheduleService) CancelSchedule(ctx context.Context, userID, postID int64) error {
	post, exists, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrPostNotFound
	}
	if post.UserID != userID {
		return ErrNotOwner
	}
	if post.Status != models.PostStatusScheduled {
		return fmt.Errorf("%w: post is %s, not scheduled", ErrInvalidInput, post.Status)
	}

	claimed, err := s.pr.ClaimForPublish(ctx, postID, models.PostStatusScheduled)
	if err != nil {
		return err
	}
	if !claimed {
		// The queue worker got there first.
		return fmt.Errorf("%w: post is already being published", ErrInvalidInput)
	}

	if err := s.cs.Release(ctx, postID); err != nil {
		// Keep the post claimable: the hold is intact, so returning it to
		// scheduled loses nothing.
		if rerr := s.pr.RevertToScheduled(ctx, postID); rerr != nil {
			slog.Error("failed to revert cancel claim", "post_id", postID, "error", rerr)
		}
		return err
	}
	return s.pr.RevertToDraft(ctx, postID)
}
