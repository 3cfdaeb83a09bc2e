package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
// There is no update path: finalized rows are never rewritten.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a finalized transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if !t.IsTerminal() {
		return fmt.Errorf("refusing to persist %s transaction %s", t.Status, t.ID)
	}

	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal transaction metadata: %w", err)
	}

	query := `INSERT INTO transactions (id, user_id, account_id, transaction_type, amount, currency_code,
		status, description, metadata, timestamp, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.UserID, t.AccountID, t.TransactionType, t.Amount, t.CurrencyCode,
		t.Status, t.Description, metadata, t.Timestamp, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByUser returns the user's transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, account_id, transaction_type, amount, currency_code,
		status, description, metadata, timestamp, completed_at
		FROM transactions WHERE user_id = $1 ORDER BY timestamp DESC, seq DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var (
			t        domain.Transaction
			metadata []byte
		)
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.AccountID, &t.TransactionType, &t.Amount, &t.CurrencyCode,
			&t.Status, &t.Description, &metadata, &t.Timestamp, &t.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal transaction metadata: %w", err)
			}
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}
