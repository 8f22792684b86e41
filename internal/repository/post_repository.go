package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postpilothq/postpilot/internal/models"
)

const postColumns = `id, user_id, platform, content, image_url, link, status, scheduled_date, platform_post_id, post_url, error_message, created_at, updated_at`

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, bool, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*models.Post, bool, error)
	ListByUserID(ctx context.Context, userID int64, status string) ([]*models.Post, error)
	MarkScheduled(ctx context.Context, tx *sql.Tx, postID int64, scheduledDate time.Time) error
	ClaimForPublish(ctx context.Context, postID int64, fromStatuses ...string) (bool, error)
	MarkPosted(ctx context.Context, postID int64, platformPostID, postURL string) error
	MarkFailed(ctx context.Context, postID int64, errorMessage string) error
	RevertToDraft(ctx context.Context, postID int64) error
	RevertToScheduled(ctx context.Context, postID int64) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	CountScheduled(ctx context.Context, userID int64) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Remove(ctx context.Context, id, userID int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.UserID, &post.Platform, &post.Content, &post.ImageURL, &post.Link,
		&post.Status, &post.ScheduledDate, &post.PlatformPostID, &post.PostURL, &post.ErrorMessage,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, platform, content, image_url, link, status, scheduled_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Platform, post.Content, post.ImageURL, post.Link, post.Status, post.ScheduledDate).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Platform, post.Content, post.ImageURL, post.Link, post.Status, post.ScheduledDate).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, bool, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return post, true, nil
}

func (r *postRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*models.Post, bool, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND user_id = $2`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return post, true, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// MarkScheduled moves a draft into the queue. The status guard keeps the
// transition forward-only; zero rows affected means the post was not a
// draft anymore.
func (r *postRepository) MarkScheduled(ctx context.Context, tx *sql.Tx, postID int64, scheduledDate time.Time) error {
	query := `
		UPDATE posts
		SET status = $1, scheduled_date = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, models.PostStatusScheduled, scheduledDate, time.Now(), postID, models.PostStatusDraft)
	} else {
		result, err = r.db.ExecContext(ctx, query, models.PostStatusScheduled, scheduledDate, time.Now(), postID, models.PostStatusDraft)
	}
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

// ClaimForPublish atomically takes a post into the publishing state. Both
// the queue worker and the recovery sweep call this before touching any
// platform, so a doubly delivered trigger publishes at most once.
func (r *postRepository) ClaimForPublish(ctx context.Context, postID int64, fromStatuses ...string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, error_message = NULL, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now(), postID, pq.Array(fromStatuses))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkPosted(ctx context.Context, postID int64, platformPostID, postURL string) error {
	query := `
		UPDATE posts
		SET status = $1, platform_post_id = $2, post_url = $3, error_message = NULL, updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPosted, platformPostID, postURL, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	query := `
		UPDATE posts
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, errorMessage, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RevertToDraft takes a claimed post out of the queue entirely, clearing
// its scheduled date. Used by schedule cancellation.
func (r *postRepository) RevertToDraft(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1, scheduled_date = NULL, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusDraft, time.Now(), postID, models.PostStatusPublishing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RevertToScheduled undoes a claim when the publisher was never reached,
// leaving the post for the next sweep.
func (r *postRepository) RevertToScheduled(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, time.Now(), postID, models.PostStatusPublishing)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_date IS NOT NULL AND scheduled_date <= $2
		ORDER BY scheduled_date ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CountScheduled(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM posts WHERE user_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, userID, models.PostStatusScheduled).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *postRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
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

func (r *postRepository) Remove(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM posts WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
