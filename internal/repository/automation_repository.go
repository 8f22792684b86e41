package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

const automationColumns = `id, user_id, topic, platform, frequency, tone, is_active, last_run_at, created_at, updated_at`

type AutomationRepository interface {
	Create(ctx context.Context, rule *models.AutomationRule) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.AutomationRule, bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.AutomationRule, error)
	CountByUserID(ctx context.Context, userID int64) (int, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutomationRule, error)
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLastRun(ctx context.Context, id int64, at time.Time) error
	Remove(ctx context.Context, id int64) error
}

type automationRepository struct {
	db *sql.DB
}

func NewAutomationRepository(db *sql.DB) AutomationRepository {
	return &automationRepository{db: db}
}

func scanRule(row interface{ Scan(...any) error }) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	err := row.Scan(&rule.ID, &rule.UserID, &rule.Topic, &rule.Platform, &rule.Frequency, &rule.Tone,
		&rule.IsActive, &rule.LastRunAt, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *automationRepository) Create(ctx context.Context, rule *models.AutomationRule) (int64, error) {
	query := `
		INSERT INTO automation_rules (user_id, topic, platform, frequency, tone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, rule.UserID, rule.Topic, rule.Platform, rule.Frequency, rule.Tone, rule.IsActive).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *automationRepository) GetByID(ctx context.Context, id int64) (*models.AutomationRule, bool, error) {
	query := `SELECT ` + automationColumns + ` FROM automation_rules WHERE id = $1`
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return rule, true, nil
}

func (r *automationRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.AutomationRule, error) {
	query := `SELECT ` + automationColumns + ` FROM automation_rules WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var rules []*models.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *automationRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM automation_rules WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

// ListDue returns active rules whose last run is older than their
// frequency interval.
func (r *automationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutomationRule, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automation_rules
		WHERE is_active = TRUE
		AND (
			last_run_at IS NULL
			OR (frequency = 'daily' AND last_run_at <= $1::timestamptz - INTERVAL '1 day')
			OR (frequency = 'weekly' AND last_run_at <= $1::timestamptz - INTERVAL '7 days')
		)
		ORDER BY last_run_at ASC NULLS FIRST
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var rules []*models.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *automationRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE automation_rules SET is_active = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *automationRepository) TouchLastRun(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE automation_rules SET last_run_at = $1, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *automationRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM automation_rules WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
