package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/postpilothq/postpilot/internal/models"
)

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("time.Parse: %v", err)
	}
	return parsed
}

func TestClaimForPublish_WinsWhenStatusMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewPostRepository(db)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusPublishing, sqlmock.AnyArg(), int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimForPublish(context.Background(), 42, models.PostStatusScheduled)
	if err != nil {
		t.Fatalf("ClaimForPublish err=%v", err)
	}
	if !claimed {
		t.Fatal("expected claim to succeed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestClaimForPublish_LosesWhenAlreadyClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewPostRepository(db)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusPublishing, sqlmock.AnyArg(), int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimForPublish(context.Background(), 42, models.PostStatusScheduled)
	if err != nil {
		t.Fatalf("ClaimForPublish err=%v", err)
	}
	if claimed {
		t.Fatal("expected claim to lose")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMarkScheduled_OnlyMovesDrafts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewPostRepository(db)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs(models.PostStatusScheduled, sqlmock.AnyArg(), sqlmock.AnyArg(), int64(42), models.PostStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkScheduled(context.Background(), nil, 42, mustParseTime(t, "2026-09-01T10:00:00Z"))
	if err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
