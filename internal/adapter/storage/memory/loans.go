package memory

import (
	"context"
	"slices"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// LoanRepo implements ports.LoanRepository over the memory store.
type LoanRepo struct {
	store *Store
}

// NewLoanRepo creates a new LoanRepo.
func NewLoanRepo(store *Store) *LoanRepo {
	return &LoanRepo{store: store}
}

func (r *LoanRepo) Create(_ context.Context, l *domain.Loan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.loans[l.UserID] = append(r.store.loans[l.UserID], *l)
	return nil
}

// ListByUser returns the user's loans, newest first.
func (r *LoanRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Loan, error) {
	r.store.mu.RLock()
	loans := slices.Clone(r.store.loans[userID])
	r.store.mu.RUnlock()

	slices.SortStableFunc(loans, func(a, b domain.Loan) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return loans, nil
}
