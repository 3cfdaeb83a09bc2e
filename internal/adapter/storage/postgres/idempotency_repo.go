package postgres

import (
	"context"
	"errors"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const idempotencyColumns = `user_id, key, transaction_id, response_json, created_at`

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts an idempotency log within a database transaction.
// The (user_id, key) primary key rejects a second entry for the same key.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	query := `INSERT INTO idempotency_logs (` + idempotencyColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, log.UserID, log.Key, log.TransactionID, log.ResponseJSON, log.CreatedAt)
	if err != nil {
		if uniqueConstraint(err) == "idempotency_logs_pkey" {
			return domain.ErrIdempotencyKeyUsed
		}
		return fmt.Errorf("insert idempotency log: %w", err)
	}
	return nil
}

// Get fetches the user's idempotency log for key.
func (r *IdempotencyRepo) Get(ctx context.Context, userID uuid.UUID, key string) (*domain.IdempotencyLog, error) {
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_logs WHERE user_id = $1 AND key = $2`

	log, err := scanIdempotencyLog(r.pool.QueryRow(ctx, query, userID, key))
	if err != nil {
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}
	return log, nil
}

// GetForUpdate takes a transaction-scoped advisory lock on the key before reading,
// so a concurrent unit of work with the same key waits even when no row exists yet.
func (r *IdempotencyRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, key string) (*domain.IdempotencyLog, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID.String()+":"+key); err != nil {
		return nil, fmt.Errorf("lock idempotency key: %w", err)
	}

	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_logs WHERE user_id = $1 AND key = $2`

	log, err := scanIdempotencyLog(tx.QueryRow(ctx, query, userID, key))
	if err != nil {
		return nil, fmt.Errorf("get idempotency log for update: %w", err)
	}
	return log, nil
}

// scanIdempotencyLog returns nil, nil when no row matched.
func scanIdempotencyLog(row pgx.Row) (*domain.IdempotencyLog, error) {
	log := &domain.IdempotencyLog{}
	err := row.Scan(&log.UserID, &log.Key, &log.TransactionID, &log.ResponseJSON, &log.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return log, nil
}
