package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/internal/transfer"
)

const publishConcurrency = 10

type PublishService interface {
	PublishNow(ctx context.Context, userID int64, req *transfer.PublishRequest) (*transfer.PublishResponse, error)
	PublishScheduled(ctx context.Context, postID int64) (string, error)
}

type publishService struct {
	ur  repository.UserRepository
	pr  repository.PostRepository
	ar  repository.AccountRepository
	us  repository.UsageRepository
	cs  CreditService
	pub PlatformPublisher
}

func NewPublishService(
	ur repository.UserRepository,
	pr repository.PostRepository,
	ar repository.AccountRepository,
	us repository.UsageRepository,
	cs CreditService,
	pub PlatformPublisher) PublishService {
	return &publishService{
		ur:  ur,
		pr:  pr,
		ar:  ar,
		us:  us,
		cs:  cs,
		pub: pub,
	}
}

// PublishNow fans one publish request out to every requested platform.
// Quota and credit checks run up front; after that each platform succeeds
// or fails on its own, and only successes are charged.
func (s *publishService) PublishNow(ctx context.Context, userID int64, req *transfer.PublishRequest) (*transfer.PublishResponse, error) {
	if req == nil || len(req.Platforms) == 0 {
		return nil, fmt.Errorf("%w: no platforms selected", ErrInvalidInput)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}

	platforms := dedupe(req.Platforms)
	for _, p := range platforms {
		if !models.IsValidPlatform(p) {
			return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, p)
		}
		if p == models.PlatformInstagram && req.ImageURL == "" {
			return nil, fmt.Errorf("%w: instagram posts require an image", ErrInvalidInput)
		}
	}

	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	usage, err := s.us.GetDay(ctx, userID, models.UsageDate(time.Now()))
	if err != nil {
		return nil, err
	}
	for _, p := range platforms {
		if check := tier.CanPost(user.Tier, p, usage.Platforms); !check.Allowed {
			return nil, &QuotaError{Category: "daily_posts", Check: check}
		}
	}

	cost := tier.CalculatePostCredits(platforms)
	balance, reserved, err := s.cs.BalanceAndReserved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if check := tier.HasEnoughCredits(balance, reserved, cost); !check.Allowed {
		return nil, &CreditError{Required: cost, Available: balance - reserved}
	}

	content := PublishContent{Text: req.Content, ImageURL: req.ImageURL, Link: req.Link}

	// One post row per platform: each target is independently creditable.
	posts := make(map[string]int64, len(platforms))
	for _, p := range platforms {
		post := models.Post{
			UserID:   userID,
			Platform: p,
			Content:  req.Content,
			ImageURL: req.ImageURL,
			Link:     req.Link,
			Status:   models.PostStatusDraft,
		}
		id, err := s.pr.Create(ctx, nil, &post)
		if err != nil {
			return nil, err
		}
		posts[p] = id
	}

	results := s.fanOut(ctx, userID, platforms, content)

	deducted := 0
	for i := range results {
		res := &results[i]
		res.PostID = posts[res.Platform]
		if res.Success {
			if err := s.settleSuccess(ctx, userID, res, false); err == nil {
				deducted++
			}
		} else {
			if err := s.pr.MarkFailed(ctx, res.PostID, res.Error); err != nil {
				slog.Error("failed to record post failure", "post_id", res.PostID, "error", err)
			}
		}
	}

	remaining, err := s.cs.GetAvailableCredits(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		remaining = balance - reserved - deducted
	}

	return &transfer.PublishResponse{
		Outcome:          classify(results),
		Results:          results,
		CreditsDeducted:  deducted,
		CreditsRemaining: remaining,
	}, nil
}

// fanOut publishes to every platform concurrently and collects one result
// per platform. A platform's failure never escapes its slot.
func (s *publishService) fanOut(ctx context.Context, userID int64, platforms []string, content PublishContent) []transfer.PlatformResult {
	results := make([]transfer.PlatformResult, len(platforms))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, publishConcurrency)

	for i, platform := range platforms {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, platform string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			results[i] = s.publishOne(ctx, userID, platform, content)
		}(i, platform)
	}

	wg.Wait()
	return results
}

func (s *publishService) publishOne(ctx context.Context, userID int64, platform string, content PublishContent) transfer.PlatformResult {
	result := transfer.PlatformResult{Platform: platform}

	account, exists, err := s.ar.GetActive(ctx, userID, platform)
	if err != nil {
		result.Error = "failed to load connected account"
		return result
	}
	if !exists {
		result.Error = fmt.Sprintf("no connected %s account", platform)
		return result
	}

	res, err := s.pub.Publish(ctx, account, content)
	if err != nil {
		slog.Info("platform publish failed", "platform", platform, "user_id", userID, "error", err.Error())
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.PostURL = res.PostURL
	result.PlatformPostID = res.PlatformPostID
	return result
}

// settleSuccess records the published post and charges exactly one credit
// for it. For scheduled posts the reservation is consumed; for immediate
// posts the balance is deducted directly. The usage counter comes last:
// losing an increment to a crash is tolerable, double-charging is not.
func (s *publishService) settleSuccess(ctx context.Context, userID int64, res *transfer.PlatformResult, scheduled bool) error {
	if err := s.pr.MarkPosted(ctx, res.PostID, res.PlatformPostID, res.PostURL); err != nil {
		slog.Error("failed to mark post published", "post_id", res.PostID, "error", err)
	}

	if scheduled {
		err := s.cs.Consume(ctx, res.PostID)
		if err == repository.ErrNoActiveReservation {
			// Reservation expired before the publish fired; fall back to a
			// direct charge so the publish is not free.
			err = s.cs.DeductCredits(ctx, userID, 1)
		}
		if err != nil {
			slog.Error("failed to charge credit for published post", "post_id", res.PostID, "error", err)
			return err
		}
	} else {
		if err := s.cs.DeductCredits(ctx, userID, 1); err != nil {
			slog.Error("failed to deduct credit", "post_id", res.PostID, "error", err)
			return err
		}
	}

	if err := s.us.IncrementPost(ctx, userID, models.UsageDate(time.Now()), res.Platform); err != nil {
		slog.Info("failed to increment usage counter", "user_id", userID, "error", err.Error())
	}
	return nil
}

// PublishScheduled runs one scheduled post through its platform. The
// claim makes this safe to invoke from both the queue worker and the
// recovery sweep; the loser of the race is a no-op.
func (s *publishService) PublishScheduled(ctx context.Context, postID int64) (string, error) {
	claimed, err := s.pr.ClaimForPublish(ctx, postID, models.PostStatusScheduled)
	if err != nil {
		return "", err
	}
	if !claimed {
		post, exists, err := s.pr.GetByID(ctx, postID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", ErrPostNotFound
		}
		// Already posted, failed, in flight, or never scheduled: nothing
		// to do for this trigger.
		return fmt.Sprintf("post already %s", post.Status), nil
	}

	post, exists, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		// The claim won but the publisher was never reached: undo it so
		// the next trigger or sweep can pick the post up again.
		if rerr := s.pr.RevertToScheduled(ctx, postID); rerr != nil {
			slog.Error("failed to revert publish claim", "post_id", postID, "error", rerr)
		}
		return "", err
	}
	if !exists {
		return "", ErrPostNotFound
	}

	if post.Platform == models.PlatformInstagram && post.ImageURL == "" {
		return "", s.failScheduled(ctx, post, "instagram posts require an image")
	}

	content := PublishContent{Text: post.Content, ImageURL: post.ImageURL, Link: post.Link}
	result := s.publishOne(ctx, post.UserID, post.Platform, content)
	result.PostID = post.ID

	if !result.Success {
		return "", s.failScheduled(ctx, post, result.Error)
	}

	if err := s.settleSuccess(ctx, post.UserID, &result, true); err != nil {
		return "", err
	}
	return fmt.Sprintf("published to %s: %s", post.Platform, result.PostURL), nil
}

// failScheduled records the failure and releases the credit hold. The
// failed platform is never charged.
func (s *publishService) failScheduled(ctx context.Context, post *models.Post, message string) error {
	if err := s.pr.MarkFailed(ctx, post.ID, message); err != nil {
		slog.Error("failed to record post failure", "post_id", post.ID, "error", err)
	}
	if err := s.cs.Release(ctx, post.ID); err != nil {
		slog.Error("failed to release reservation", "post_id", post.ID, "error", err)
	}
	return fmt.Errorf("publish to %s failed: %s", post.Platform, message)
}

func classify(results []transfer.PlatformResult) string {
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	switch succeeded {
	case len(results):
		return transfer.PublishOutcomeSuccess
	case 0:
		return transfer.PublishOutcomeFailure
	default:
		return transfer.PublishOutcomePartial
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
