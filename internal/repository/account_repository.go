package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilothq/postpilot/internal/models"
)

const accountColumns = `id, user_id, platform, account_id, account_name, profile_picture_url, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at`

type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, account *models.ConnectedAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, bool, error)
	GetActive(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	CountByPlatform(ctx context.Context, userID int64) (map[string]int, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func scanAccount(row interface{ Scan(...any) error }) (*models.ConnectedAccount, error) {
	var sa models.ConnectedAccount
	err := row.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName, &sa.ProfilePicture,
		&sa.AccessToken, &sa.RefreshToken, &sa.TokenExpiresAt, &sa.IsActive, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *accountRepository) Create(ctx context.Context, tx *sql.Tx, account *models.ConnectedAccount) (int64, error) {
	query := `
		INSERT INTO connected_accounts (user_id, platform, account_id, account_name, profile_picture_url, access_token, refresh_token, token_expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, account.UserID, account.Platform, account.AccountID, account.AccountName,
			account.ProfilePicture, account.AccessToken, account.RefreshToken, account.TokenExpiresAt).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, account.UserID, account.Platform, account.AccountID, account.AccountName,
			account.ProfilePicture, account.AccessToken, account.RefreshToken, account.TokenExpiresAt).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, bool, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return account, true, nil
}

func (r *accountRepository) GetActive(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, bool, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM connected_accounts
		WHERE user_id = $1 AND platform = $2 AND is_active = TRUE
		ORDER BY created_at ASC
		LIMIT 1
	`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return account, true, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	query := `SELECT id, user_id, platform, account_id, account_name, profile_picture_url, is_active, created_at FROM connected_accounts WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		var sa models.ConnectedAccount
		err := rows.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName, &sa.ProfilePicture, &sa.IsActive, &sa.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) CountByPlatform(ctx context.Context, userID int64) (map[string]int, error) {
	query := `SELECT platform, COUNT(*) FROM connected_accounts WHERE user_id = $1 AND is_active = TRUE GROUP BY platform`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[platform] = count
	}
	return counts, rows.Err()
}

func (r *accountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM connected_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *accountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM connected_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
