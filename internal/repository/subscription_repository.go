package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error)
	Upsert(ctx context.Context, subscription *models.Subscription) error
	SumRevenue(ctx context.Context) (int, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error) {
	var sub models.Subscription
	query := `
		SELECT id, user_id, subscription_id, tier, amount_paid, subscription_end_date, status, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&sub.ID, &sub.UserID, &sub.SubscriptionID, &sub.Tier,
		&sub.AmountPaid, &sub.SubscriptionEndDate, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &sub, true, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, subscription_id, tier, amount_paid, subscription_end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET subscription_id = $2,
			tier = $3,
			amount_paid = subscriptions.amount_paid + $4,
			subscription_end_date = $5,
			status = $6,
			updated_at = $7
	`
	_, err := r.db.ExecContext(ctx, query, subscription.UserID, subscription.SubscriptionID, subscription.Tier,
		subscription.AmountPaid, subscription.SubscriptionEndDate, subscription.Status, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *subscriptionRepository) SumRevenue(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_paid), 0) FROM subscriptions`).Scan(&total)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return total, nil
}
