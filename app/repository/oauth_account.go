package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/chronosync/chronosync-api/app/entity"
)

const oauthAccountSelectColumns = `id, user_id, provider, provider_account_id, access_token, refresh_token, created_at, updated_at`

type OAuthAccountRepository struct {
	db dbtx
}

func NewOAuthAccountRepository(db dbtx) *OAuthAccountRepository {
	return &OAuthAccountRepository{db: db}
}

func (r *OAuthAccountRepository) Create(ctx context.Context, account *entity.OAuthAccount) error {
	query := `
		INSERT INTO oauth_accounts (user_id, provider, provider_account_id, access_token, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	result, err := r.db.ExecContext(ctx, query,
		account.UserID,
		account.Provider,
		account.ProviderAccountID,
		account.AccessToken,
		account.RefreshToken,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEntry
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = uint64(id)
	return nil
}

// FindByProviderIdentity resolves the (provider, provider_account_id) pair
// to an existing link. Returns nil when the identity has never been seen.
func (r *OAuthAccountRepository) FindByProviderIdentity(ctx context.Context, provider, providerAccountID string) (*entity.OAuthAccount, error) {
	query := `
		SELECT ` + oauthAccountSelectColumns + `
		FROM oauth_accounts WHERE provider = ? AND provider_account_id = ?
	`
	account := &entity.OAuthAccount{}
	err := r.db.QueryRowContext(ctx, query, provider, providerAccountID).Scan(
		&account.ID,
		&account.UserID,
		&account.Provider,
		&account.ProviderAccountID,
		&account.AccessToken,
		&account.RefreshToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *OAuthAccountRepository) ListByUserID(ctx context.Context, userID uint64) ([]entity.OAuthAccount, error) {
	query := `
		SELECT ` + oauthAccountSelectColumns + `
		FROM oauth_accounts WHERE user_id = ? ORDER BY provider
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []entity.OAuthAccount
	for rows.Next() {
		var account entity.OAuthAccount
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Provider,
			&account.ProviderAccountID,
			&account.AccessToken,
			&account.RefreshToken,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
