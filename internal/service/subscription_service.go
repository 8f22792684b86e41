package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/tier"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type SubscriptionService interface {
	HandleSubscription(ctx context.Context, payload *transfer.SubscriptionEvent) error
}

type subscriptionService struct {
	ur repository.UserRepository
	sr repository.SubscriptionRepository
	cs CreditService
}

func NewSubscriptionService(ur repository.UserRepository, sr repository.SubscriptionRepository, cs CreditService) SubscriptionService {
	return &subscriptionService{
		ur: ur,
		sr: sr,
		cs: cs,
	}
}

// HandleSubscription reacts to the payment collaborator's webhook. A paid
// event moves the user onto the event's tier and grants that tier's
// monthly credits; a cancellation drops the user back to free at period
// end handling.
func (s *subscriptionService) HandleSubscription(ctx context.Context, payload *transfer.SubscriptionEvent) error {
	user, exists, err := s.ur.GetByEmail(ctx, payload.Object.Customer.Email)
	if err != nil {
		return fmt.Errorf("fetching user by email failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: no user for %s", ErrUserNotFound, payload.Object.Customer.Email)
	}

	switch payload.EventType {
	case "subscription.paid":
		newTier := payload.Object.Tier
		if newTier != models.TierPro && newTier != models.TierBusiness {
			return fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, newTier)
		}

		sub := models.Subscription{
			UserID:              user.ID,
			SubscriptionID:      payload.Object.ID,
			Tier:                newTier,
			AmountPaid:          payload.Object.AmountPaid,
			SubscriptionEndDate: payload.Object.CurrentPeriodEndDate,
			Status:              payload.Object.Status,
		}
		if err := s.sr.Upsert(ctx, &sub); err != nil {
			return err
		}

		if err := s.ur.UpdateTier(ctx, user.ID, newTier); err != nil {
			return err
		}

		grant := tier.LimitsFor(newTier).MonthlyCredits
		if err := s.cs.AddCredits(ctx, user.ID, grant); err != nil {
			return err
		}
		if err := s.ur.MarkRefilled(ctx, user.ID, time.Now()); err != nil {
			slog.Info(err.Error())
		}
		slog.Info("subscription applied", "user_id", user.ID, "tier", newTier, "credits_granted", grant)

	case "subscription.cancelled":
		if err := s.ur.UpdateTier(ctx, user.ID, models.TierFree); err != nil {
			return err
		}
		slog.Info("subscription cancelled", "user_id", user.ID)
	}

	return nil
}
