package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

type UsageRepository interface {
	IncrementPost(ctx context.Context, userID int64, date, platform string) error
	IncrementGeneration(ctx context.Context, userID int64, date string) error
	GetDay(ctx context.Context, userID int64, date string) (*models.DailyUsage, error)
}

type usageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) UsageRepository {
	return &usageRepository{db: db}
}

// IncrementPost bumps the day's total and the platform slot in one upsert.
// Counters are quota hints, not billing truth, so a lost increment after a
// crash is acceptable where a double charge would not be.
func (r *usageRepository) IncrementPost(ctx context.Context, userID int64, date, platform string) error {
	query := `
		INSERT INTO daily_usage (user_id, usage_date, posts_total, platforms, generations, updated_at)
		VALUES ($1, $2, 1, jsonb_build_object($3::text, 1), 0, $4)
		ON CONFLICT (user_id, usage_date) DO UPDATE
		SET posts_total = daily_usage.posts_total + 1,
			platforms = jsonb_set(
				daily_usage.platforms,
				ARRAY[$3::text],
				(COALESCE((daily_usage.platforms ->> $3)::int, 0) + 1)::text::jsonb
			),
			updated_at = $4
	`
	_, err := r.db.ExecContext(ctx, query, userID, date, platform, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *usageRepository) IncrementGeneration(ctx context.Context, userID int64, date string) error {
	query := `
		INSERT INTO daily_usage (user_id, usage_date, posts_total, platforms, generations, updated_at)
		VALUES ($1, $2, 0, '{}'::jsonb, 1, $3)
		ON CONFLICT (user_id, usage_date) DO UPDATE
		SET generations = daily_usage.generations + 1,
			updated_at = $3
	`
	_, err := r.db.ExecContext(ctx, query, userID, date, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// GetDay returns the counters for one day. A missing row is a zeroed day,
// which is how counters reset at date rollover.
func (r *usageRepository) GetDay(ctx context.Context, userID int64, date string) (*models.DailyUsage, error) {
	usage := models.DailyUsage{
		UserID:    userID,
		UsageDate: date,
		Platforms: make(map[string]int),
	}

	var platformsRaw []byte
	query := `
		SELECT posts_total, platforms, generations, updated_at
		FROM daily_usage
		WHERE user_id = $1 AND usage_date = $2
	`
	err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&usage.PostsTotal, &platformsRaw, &usage.Generations, &usage.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return &usage, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if len(platformsRaw) > 0 {
		if err := json.Unmarshal(platformsRaw, &usage.Platforms); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
	}
	return &usage, nil
}
