package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository over the memory store.
type TransactionRepo struct {
	store *Store
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Create stages a finalized transaction for commit.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if !t.IsTerminal() {
		return fmt.Errorf("refusing to persist %s transaction %s", t.Status, t.ID)
	}
	mtx, err := unitOfWork(tx)
	if err != nil {
		return err
	}
	row := *t
	row.Metadata = maps.Clone(t.Metadata)
	return mtx.stage(func(s *Store) {
		s.transactions[row.UserID] = append(s.transactions[row.UserID], row)
	})
}

// ListByUser returns the user's transactions, newest first. Equal timestamps
// are ordered by commit order, latest first.
func (r *TransactionRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	r.store.mu.RLock()
	txns := slices.Clone(r.store.transactions[userID])
	r.store.mu.RUnlock()

	slices.Reverse(txns)
	slices.SortStableFunc(txns, func(a, b domain.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	for i := range txns {
		txns[i].Metadata = maps.Clone(txns[i].Metadata)
	}
	return txns, nil
}
