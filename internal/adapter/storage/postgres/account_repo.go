package postgres

import (
	"context"
	"errors"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, user_id, account_number, routing_number, current_balance, available_balance, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account. Unique violations map to domain.ErrAccountExists
// (user already has one) and domain.ErrAccountNumberTaken.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.AccountNumber, a.RoutingNumber,
		a.CurrentBalance, a.AvailableBalance, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		switch uniqueConstraint(err) {
		case "accounts_user_id_key":
			return domain.ErrAccountExists
		case "accounts_account_number_key":
			return domain.ErrAccountNumberTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByUserID fetches the user's account (non-locking read).
func (r *AccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get account by user id: %w", err)
	}
	return a, nil
}

// GetByUserIDForUpdate fetches the user's account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// UpdateBalances writes both balances within a transaction.
func (r *AccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET current_balance = $1, available_balance = $2, updated_at = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, a.CurrentBalance, a.AvailableBalance, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update account balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", a.ID)
	}
	return nil
}

// scanAccount returns nil, nil when no row matched.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.RoutingNumber,
		&a.CurrentBalance, &a.AvailableBalance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
