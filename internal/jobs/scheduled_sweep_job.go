package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/queue"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

const sweepBatchSize = 50

// ScheduledSweepJob is the delivery backstop: event emission at schedule
// time is best effort, so this sweep re-discovers due posts and drives
// them through the same publish entry point. The claim inside
// PublishScheduled makes the double trigger harmless.
type ScheduledSweepJob struct {
	pr repository.PostRepository
	cr repository.CreditRepository
	ps service.PublishService
	w  *queue.Worker
}

func NewScheduledSweepJob(
	pr repository.PostRepository,
	cr repository.CreditRepository,
	ps service.PublishService,
	w *queue.Worker) *ScheduledSweepJob {
	return &ScheduledSweepJob{
		pr: pr,
		cr: cr,
		ps: ps,
		w:  w,
	}
}

func (j *ScheduledSweepJob) Run() {
	ctx := context.Background()

	posts, err := j.pr.ListDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := j.ps.PublishScheduled(ctx, post.ID); err != nil {
				slog.Info("sweep publish failed", "post_id", post.ID, "error", err.Error())
			}
		}(post)
	}
	wg.Wait()

	if _, err := j.w.ExpireReservations(ctx); err != nil {
		slog.Info(err.Error())
	}
}
