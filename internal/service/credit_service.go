package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

// CreditService is the ledger facade. Available credits are always the
// balance minus outstanding active reservations; nothing else may touch
// the balance.
type CreditService interface {
	GetAvailableCredits(ctx context.Context, userID int64) (int, error)
	BalanceAndReserved(ctx context.Context, userID int64) (balance, reserved int, err error)
	Reserve(ctx context.Context, tx *sql.Tx, userID, postID int64, amount int, expiresAt time.Time) (*models.CreditReservation, error)
	Consume(ctx context.Context, postID int64) error
	Release(ctx context.Context, postID int64) error
	AddCredits(ctx context.Context, userID int64, amount int) error
	DeductCredits(ctx context.Context, userID int64, amount int) error
}

type creditService struct {
	ur repository.UserRepository
	cr repository.CreditRepository
}

func NewCreditService(ur repository.UserRepository, cr repository.CreditRepository) CreditService {
	return &creditService{ur: ur, cr: cr}
}

func (s *creditService) GetAvailableCredits(ctx context.Context, userID int64) (int, error) {
	balance, reserved, err := s.BalanceAndReserved(ctx, userID)
	if err != nil {
		return 0, err
	}
	return balance - reserved, nil
}

func (s *creditService) BalanceAndReserved(ctx context.Context, userID int64) (int, int, error) {
	user, exists, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if !exists {
		return 0, 0, ErrUserNotFound
	}

	reserved, err := s.cr.ActiveSum(ctx, userID, time.Now())
	if err != nil {
		return 0, 0, err
	}
	return user.Credits, reserved, nil
}

func (s *creditService) Reserve(ctx context.Context, tx *sql.Tx, userID, postID int64, amount int, expiresAt time.Time) (*models.CreditReservation, error) {
	return s.cr.Reserve(ctx, tx, userID, postID, amount, expiresAt)
}

func (s *creditService) Consume(ctx context.Context, postID int64) error {
	return s.cr.Consume(ctx, postID)
}

func (s *creditService) Release(ctx context.Context, postID int64) error {
	return s.cr.Release(ctx, postID)
}

func (s *creditService) AddCredits(ctx context.Context, userID int64, amount int) error {
	if amount <= 0 {
		return ErrInvalidInput
	}
	return s.ur.AddCredits(ctx, userID, amount)
}

// DeductCredits charges the balance directly, as the immediate-publish
// path does. Reserved credits stay protected: the repository guard only
// checks the raw balance, so callers that must respect reservations check
// availability first.
func (s *creditService) DeductCredits(ctx context.Context, userID int64, amount int) error {
	if amount <= 0 {
		return ErrInvalidInput
	}
	err := s.ur.DeductCredits(ctx, userID, amount)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
