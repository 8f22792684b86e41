package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/postpilothq/postpilot/internal/models"
)

func TestReserve_HoldsCreditsWithinBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)
	expiresAt := time.Now().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT credits FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(10))
	mock.ExpectQuery(`SELECT 1 FROM credit_reservations WHERE post_id`).
		WithArgs(int64(42), models.ReservationActive).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)`).
		WithArgs(int64(7), models.ReservationActive, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO credit_reservations`).
		WithArgs(int64(7), int64(42), 2, models.ReservationActive, expiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectCommit()

	reservation, err := repo.Reserve(context.Background(), nil, 7, 42, 2, expiresAt)
	if err != nil {
		t.Fatalf("Reserve err=%v", err)
	}
	if reservation.Amount != 2 || reservation.Status != models.ReservationActive {
		t.Fatalf("unexpected reservation: %+v", reservation)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestReserve_InsufficientAvailableCredits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)

	// balance 3, reserved 2: one credit available, two requested.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT credits FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(3))
	mock.ExpectQuery(`SELECT 1 FROM credit_reservations WHERE post_id`).
		WithArgs(int64(42), models.ReservationActive).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)`).
		WithArgs(int64(7), models.ReservationActive, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(2))
	mock.ExpectRollback()

	_, err = repo.Reserve(context.Background(), nil, 7, 42, 2, time.Now().Add(time.Hour))
	if err != ErrInsufficientCredits {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestReserve_RejectsDuplicateActiveReservation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT credits FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(10))
	mock.ExpectQuery(`SELECT 1 FROM credit_reservations WHERE post_id`).
		WithArgs(int64(42), models.ReservationActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err = repo.Reserve(context.Background(), nil, 7, 42, 1, time.Now().Add(time.Hour))
	if err != ErrDuplicateReservation {
		t.Fatalf("expected ErrDuplicateReservation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestConsume_DeductsBalanceOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE credit_reservations`).
		WithArgs(models.ReservationConsumed, sqlmock.AnyArg(), int64(42), models.ReservationActive).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "amount"}).AddRow(int64(7), 1))
	mock.ExpectExec(`UPDATE users SET credits = credits - \$1`).
		WithArgs(1, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Consume(context.Background(), 42); err != nil {
		t.Fatalf("Consume err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestConsume_ShortfallReleasesHold(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)

	// The balance fell below the hold since it was taken; the guarded
	// deduction matches no row and the hold is released instead.
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE credit_reservations`).
		WithArgs(models.ReservationConsumed, sqlmock.AnyArg(), int64(42), models.ReservationActive).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "amount"}).AddRow(int64(7), 2))
	mock.ExpectExec(`UPDATE users SET credits = credits - \$1`).
		WithArgs(2, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectExec(`UPDATE credit_reservations`).
		WithArgs(models.ReservationReleased, sqlmock.AnyArg(), int64(42), models.ReservationActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Consume(context.Background(), 42); err != ErrInsufficientCredits {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestConsume_NoActiveReservation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE credit_reservations`).
		WithArgs(models.ReservationConsumed, sqlmock.AnyArg(), int64(42), models.ReservationActive).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	if err := repo.Consume(context.Background(), 42); err != ErrNoActiveReservation {
		t.Fatalf("expected ErrNoActiveReservation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRelease_IsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)

	// No active row matches: still not an error.
	mock.ExpectExec(`UPDATE credit_reservations`).
		WithArgs(models.ReservationReleased, sqlmock.AnyArg(), int64(42), models.ReservationActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Release(context.Background(), 42); err != nil {
		t.Fatalf("Release err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestExpireDue_ReturnsBackedPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewCreditRepository(db)
	now := time.Now()

	mock.ExpectQuery(`UPDATE credit_reservations`).
		WithArgs(models.ReservationExpired, now, models.ReservationActive).
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(int64(42)).AddRow(int64(43)))

	postIDs, err := repo.ExpireDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpireDue err=%v", err)
	}
	if len(postIDs) != 2 || postIDs[0] != 42 || postIDs[1] != 43 {
		t.Fatalf("unexpected post ids: %v", postIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
