package memory

import (
	"context"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository over the memory store.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

// Create inserts a new account, enforcing one account per user and unique numbers.
func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[a.UserID]; ok {
		return domain.ErrAccountExists
	}
	if _, ok := r.store.accountNumbers[a.AccountNumber]; ok {
		return domain.ErrAccountNumberTaken
	}
	r.store.accounts[a.UserID] = *a
	r.store.accountNumbers[a.AccountNumber] = struct{}{}
	return nil
}

// GetByUserID returns a copy of the user's committed account, or nil, nil.
func (r *AccountRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.accounts[userID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetByUserIDForUpdate locks the user's account for the rest of the unit of work.
func (r *AccountRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Account, error) {
	mtx, err := unitOfWork(tx)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, accountLockKey(userID)); err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

// UpdateBalances stages a balance write for commit. The account must be locked.
func (r *AccountRepo) UpdateBalances(_ context.Context, tx pgx.Tx, a *domain.Account) error {
	mtx, err := unitOfWork(tx)
	if err != nil {
		return err
	}
	if _, ok := mtx.held[accountLockKey(a.UserID)]; !ok {
		return fmt.Errorf("update account balances: account %s is not locked", a.ID)
	}

	current, updatedAt := a.CurrentBalance, a.UpdatedAt
	available := a.AvailableBalance
	userID := a.UserID
	return mtx.stage(func(s *Store) {
		stored := s.accounts[userID]
		stored.CurrentBalance = current
		stored.AvailableBalance = available
		stored.UpdatedAt = updatedAt
		s.accounts[userID] = stored
	})
}
