package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

const jobColumns = `id, kind, user_id, status, payload, result, error_message, retry_count, created_at, updated_at`

type JobRepository interface {
	Create(ctx context.Context, job *models.JobRecord) error
	GetByID(ctx context.Context, id string) (*models.JobRecord, bool, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, result string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	MarkPendingForRetry(ctx context.Context, id string) error
	List(ctx context.Context, status string, limit int) ([]*models.JobRecord, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

func scanJob(row interface{ Scan(...any) error }) (*models.JobRecord, error) {
	var job models.JobRecord
	err := row.Scan(&job.ID, &job.Kind, &job.UserID, &job.Status, &job.Payload, &job.Result,
		&job.ErrorMessage, &job.RetryCount, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) Create(ctx context.Context, job *models.JobRecord) error {
	query := `
		INSERT INTO jobs (id, kind, user_id, status, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, job.ID, job.Kind, job.UserID, job.Status, job.Payload)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*models.JobRecord, bool, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return job, true, nil
}

func (r *jobRepository) MarkRunning(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, models.JobStatusRunning, "", "")
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id, result string) error {
	return r.setStatus(ctx, id, models.JobStatusCompleted, result, "")
}

func (r *jobRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	return r.setStatus(ctx, id, models.JobStatusFailed, "", errorMessage)
}

func (r *jobRepository) setStatus(ctx context.Context, id, status, result, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			result = NULLIF($2, ''),
			error_message = NULLIF($3, ''),
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, result, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPendingForRetry moves a failed job back to pending. The status guard
// makes retry permission a database-level fact, not a read-then-write.
func (r *jobRepository) MarkPendingForRetry(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = NULL, retry_count = retry_count + 1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.JobStatusPending, time.Now(), id, models.JobStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *jobRepository) List(ctx context.Context, status string, limit int) ([]*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if status != "" {
		query += ` LIMIT $2`
	} else {
		query += ` LIMIT $1`
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
