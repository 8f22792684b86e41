package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

type CreditRepository interface {
	Reserve(ctx context.Context, tx *sql.Tx, userID, postID int64, amount int, expiresAt time.Time) (*models.CreditReservation, error)
	Consume(ctx context.Context, postID int64) error
	Release(ctx context.Context, postID int64) error
	ActiveSum(ctx context.Context, userID int64, now time.Time) (int, error)
	GetByPostID(ctx context.Context, postID int64) (*models.CreditReservation, bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.CreditReservation, error)
	ExpireDue(ctx context.Context, now time.Time) ([]int64, error)
}

type creditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) CreditRepository {
	return &creditRepository{db: db}
}

// Reserve holds amount credits for postID. The user row is locked for the
// duration of the check-and-insert so two concurrent reservations cannot
// both read the same available balance. When tx is nil the method runs in
// its own transaction; otherwise the caller owns the commit.
func (r *creditRepository) Reserve(ctx context.Context, tx *sql.Tx, userID, postID int64, amount int, expiresAt time.Time) (*models.CreditReservation, error) {
	ownTx := tx == nil
	if ownTx {
		var err error
		tx, err = r.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		defer tx.Rollback()
	}

	var balance int
	err := tx.QueryRowContext(ctx, "SELECT credits FROM users WHERE id = $1 FOR UPDATE", userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM credit_reservations WHERE post_id = $1 AND status = $2",
		postID, models.ReservationActive).Scan(&exists)
	if err == nil {
		return nil, ErrDuplicateReservation
	}
	if err != sql.ErrNoRows {
		slog.Info(err.Error())
		return nil, err
	}

	var reserved int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_reservations
		WHERE user_id = $1 AND status = $2 AND expires_at > $3
	`, userID, models.ReservationActive, time.Now()).Scan(&reserved)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if balance-reserved < amount {
		return nil, ErrInsufficientCredits
	}

	reservation := models.CreditReservation{
		UserID:    userID,
		PostID:    postID,
		Amount:    amount,
		Status:    models.ReservationActive,
		ExpiresAt: expiresAt,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO credit_reservations (user_id, post_id, amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, userID, postID, amount, models.ReservationActive, expiresAt).Scan(&reservation.ID, &reservation.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if ownTx {
		if err := tx.Commit(); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
	}
	return &reservation, nil
}

// Consume marks the active reservation consumed and permanently deducts
// its amount from the balance, in one transaction. The deduction carries
// its own floor: if the balance no longer covers the hold, the consume is
// abandoned and the hold released instead of driving the balance negative.
func (r *creditRepository) Consume(ctx context.Context, postID int64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	var userID int64
	var amount int
	err = tx.QueryRowContext(ctx, `
		UPDATE credit_reservations
		SET status = $1, updated_at = $2
		WHERE post_id = $3 AND status = $4
		RETURNING user_id, amount
	`, models.ReservationConsumed, time.Now(), postID, models.ReservationActive).Scan(&userID, &amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNoActiveReservation
		}
		slog.Info(err.Error())
		return err
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE users SET credits = credits - $1, updated_at = $2 WHERE id = $3 AND credits >= $1",
		amount, time.Now(), userID)
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
		if err := tx.Rollback(); err != nil {
			slog.Info(err.Error())
			return err
		}
		if err := r.Release(ctx, postID); err != nil {
			return err
		}
		return ErrInsufficientCredits
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Release marks an active reservation released. The balance was never
// decremented, so there is nothing to refund. Releasing a reservation
// that is not active is a no-op.
func (r *creditRepository) Release(ctx context.Context, postID int64) error {
	query := `
		UPDATE credit_reservations
		SET status = $1, updated_at = $2
		WHERE post_id = $3 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.ReservationReleased, time.Now(), postID, models.ReservationActive)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *creditRepository) ActiveSum(ctx context.Context, userID int64, now time.Time) (int, error) {
	var sum int
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_reservations
		WHERE user_id = $1 AND status = $2 AND expires_at > $3
	`
	err := r.db.QueryRowContext(ctx, query, userID, models.ReservationActive, now).Scan(&sum)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return sum, nil
}

func (r *creditRepository) GetByPostID(ctx context.Context, postID int64) (*models.CreditReservation, bool, error) {
	var res models.CreditReservation
	query := `
		SELECT id, user_id, post_id, amount, status, expires_at, created_at, updated_at
		FROM credit_reservations
		WHERE post_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRowContext(ctx, query, postID).Scan(
		&res.ID, &res.UserID, &res.PostID, &res.Amount, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &res, true, nil
}

func (r *creditRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.CreditReservation, error) {
	query := `
		SELECT id, user_id, post_id, amount, status, expires_at, created_at, updated_at
		FROM credit_reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var reservations []*models.CreditReservation
	for rows.Next() {
		var res models.CreditReservation
		err := rows.Scan(&res.ID, &res.UserID, &res.PostID, &res.Amount, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		reservations = append(reservations, &res)
	}
	return reservations, rows.Err()
}

// ExpireDue flips overdue active reservations to expired and returns the
// posts they were backing so the sweep can fail them.
func (r *creditRepository) ExpireDue(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		UPDATE credit_reservations
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at <= $2
		RETURNING post_id
	`
	rows, err := r.db.QueryContext(ctx, query, models.ReservationExpired, now, models.ReservationActive)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var postIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		postIDs = append(postIDs, id)
	}
	return postIDs, rows.Err()
}
