package ports

import (
	"context"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside a unit of work and hold the account lock until it ends.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Account, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// TransactionRepository persists finalized transactions. Rows are insert-only.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// ListByUser returns the user's transactions, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}

// IdempotencyRepository is the durable idempotency log. Entries are written in the
// same unit of work as the transaction they describe.
type IdempotencyRepository interface {
	// Create returns domain.ErrIdempotencyKeyUsed when the user already used the key.
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, userID uuid.UUID, key string) (*domain.IdempotencyLog, error)
	// GetForUpdate reads the entry inside a unit of work and holds the key until it ends.
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, key string) (*domain.IdempotencyLog, error)
}

// CardRepository defines persistence operations for cards.
// Lookups by ID are scoped to the owner; a card owned by someone else is reported as missing.
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Card, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) (*domain.Card, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CardStatus) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Card, error)
}

// CardPurchaseRepository persists the informational purchase history of cards.
type CardPurchaseRepository interface {
	Create(ctx context.Context, purchase *domain.CardPurchase) error
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.CardPurchase, error)
}

// LoanRepository defines persistence operations for loans.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Loan, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
