package memory

import (
	"bytes"
	"context"
	"fmt"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type idempotencyKey struct {
	userID uuid.UUID
	key    string
}

// IdempotencyRepo implements ports.IdempotencyRepository over the memory store.
type IdempotencyRepo struct {
	store *Store
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

// Create stages a log entry for commit. The key must be locked by GetForUpdate.
func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	mtx, err := unitOfWork(tx)
	if err != nil {
		return err
	}
	if _, ok := mtx.held[idempotencyLockKey(log.UserID, log.Key)]; !ok {
		return fmt.Errorf("insert idempotency log: key %q is not locked", log.Key)
	}

	k := idempotencyKey{userID: log.UserID, key: log.Key}
	r.store.mu.RLock()
	_, exists := r.store.idempotency[k]
	r.store.mu.RUnlock()
	if exists {
		return domain.ErrIdempotencyKeyUsed
	}

	row := *log
	row.ResponseJSON = bytes.Clone(log.ResponseJSON)
	return mtx.stage(func(s *Store) {
		s.idempotency[k] = row
	})
}

// Get returns the committed entry for the user's key, or nil, nil.
func (r *IdempotencyRepo) Get(_ context.Context, userID uuid.UUID, key string) (*domain.IdempotencyLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	log, ok := r.store.idempotency[idempotencyKey{userID: userID, key: key}]
	if !ok {
		return nil, nil
	}
	log.ResponseJSON = bytes.Clone(log.ResponseJSON)
	return &log, nil
}

// GetForUpdate locks the key for the rest of the unit of work, then reads it.
func (r *IdempotencyRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, key string) (*domain.IdempotencyLog, error) {
	mtx, err := unitOfWork(tx)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, idempotencyLockKey(userID, key)); err != nil {
		return nil, fmt.Errorf("get idempotency log for update: %w", err)
	}
	return r.Get(ctx, userID, key)
}
