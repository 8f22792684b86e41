package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, bool, error)
	Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error)
	UpdateTier(ctx context.Context, userID int64, tier string) error
	AddCredits(ctx context.Context, userID int64, amount int) error
	DeductCredits(ctx context.Context, userID int64, amount int) error
	ListDueForRefill(ctx context.Context, before time.Time, limit int) ([]*models.User, error)
	MarkRefilled(ctx context.Context, userID int64, at time.Time) error
	Count(ctx context.Context) (int, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	var user models.User
	query := "SELECT id, email, name, profile_picture, tier, credits, is_admin FROM users WHERE id = $1"
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &user.ProfilePicture, &user.Tier, &user.Credits, &user.IsAdmin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &user, true, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	var user models.User
	query := "SELECT id, email, name, profile_picture, tier, credits, is_admin FROM users WHERE email = $1"
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name, &user.ProfilePicture, &user.Tier, &user.Credits, &user.IsAdmin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &user, true, nil
}

func (r *userRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	query := `
		INSERT INTO users (email, name, profile_picture, tier, credits, last_refill_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, user.Email, user.Name, user.ProfilePicture, user.Tier, user.Credits, time.Now()).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, user.Email, user.Name, user.ProfilePicture, user.Tier, user.Credits, time.Now()).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *userRepository) UpdateTier(ctx context.Context, userID int64, tier string) error {
	query := `UPDATE users SET tier = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, tier, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *userRepository) AddCredits(ctx context.Context, userID int64, amount int) error {
	query := `UPDATE users SET credits = credits + $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, amount, time.Now(), userID)
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
		return ErrNotFound
	}
	return nil
}

// DeductCredits decrements the balance only when the remainder still
// covers every active reservation: held credits are not deductible. The
// guard lives in the WHERE clause so concurrent deductions cannot race
// past it.
func (r *userRepository) DeductCredits(ctx context.Context, userID int64, amount int) error {
	query := `
		UPDATE users
		SET credits = credits - $1, updated_at = $2
		WHERE id = $3 AND credits - $1 >= (
			SELECT COALESCE(SUM(amount), 0)
			FROM credit_reservations
			WHERE user_id = $3 AND status = $4 AND expires_at > $2
		)
	`
	result, err := r.db.ExecContext(ctx, query, amount, time.Now(), userID, models.ReservationActive)
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
		return ErrInsufficientCredits
	}
	return nil
}

func (r *userRepository) ListDueForRefill(ctx context.Context, before time.Time, limit int) ([]*models.User, error) {
	query := `
		SELECT id, email, name, profile_picture, tier, credits, is_admin
		FROM users
		WHERE last_refill_at <= $1
		ORDER BY last_refill_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.ProfilePicture, &user.Tier, &user.Credits, &user.IsAdmin)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

func (r *userRepository) MarkRefilled(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE users SET last_refill_at = $1, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}
