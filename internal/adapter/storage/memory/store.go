// Package memory is an in-process ledger store with the same locking contract as
// the PostgreSQL adapter: a unit of work holds per-row locks until it commits or
// rolls back, and staged writes become visible only on commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds all ledger state. The zero value is not usable; call New.
type Store struct {
	mu sync.RWMutex

	accounts       map[uuid.UUID]domain.Account // keyed by user ID
	accountNumbers map[string]struct{}
	transactions   map[uuid.UUID][]domain.Transaction // keyed by user ID
	idempotency    map[idempotencyKey]domain.IdempotencyLog
	cards          map[uuid.UUID]domain.Card
	purchases      map[uuid.UUID][]domain.CardPurchase // keyed by card ID
	loans          map[uuid.UUID][]domain.Loan         // keyed by user ID
	activity       []domain.ActivityEvent

	lockMu sync.Mutex
	locks  map[string]chan struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:       make(map[uuid.UUID]domain.Account),
		accountNumbers: make(map[string]struct{}),
		transactions:   make(map[uuid.UUID][]domain.Transaction),
		idempotency:    make(map[idempotencyKey]domain.IdempotencyLog),
		cards:          make(map[uuid.UUID]domain.Card),
		purchases:      make(map[uuid.UUID][]domain.CardPurchase),
		loans:          make(map[uuid.UUID][]domain.Loan),
		locks:          make(map[string]chan struct{}),
	}
}

// rowLock returns the lock channel for key, creating it on first use.
// A channel with capacity one is held while it contains a token.
func (s *Store) rowLock(key string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Name returns the dependency name.
func (s *Store) Name() string { return "memory" }

// ErrTxClosed is returned when a finished unit of work is used again.
var ErrTxClosed = pgx.ErrTxClosed

// Tx is a unit of work over the store. It satisfies pgx.Tx so the repositories
// share their interfaces with the PostgreSQL adapter; only Commit and Rollback
// are meaningful, the embedded interface is never set.
type Tx struct {
	pgx.Tx

	store  *Store
	held   map[string]chan struct{}
	writes []func(s *Store)
	done   bool
}

// Transactor implements ports.DBTransactor for the memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a new unit of work.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: t.store, held: make(map[string]chan struct{})}, nil
}

// lock acquires the row lock for key, waiting until it is free or ctx ends.
// Locks already held by this unit of work are re-entrant.
func (tx *Tx) lock(ctx context.Context, key string) error {
	if tx.done {
		return ErrTxClosed
	}
	if _, ok := tx.held[key]; ok {
		return nil
	}
	l := tx.store.rowLock(key)
	select {
	case l <- struct{}{}:
		tx.held[key] = l
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
	}
}

func (tx *Tx) stage(write func(s *Store)) error {
	if tx.done {
		return ErrTxClosed
	}
	tx.writes = append(tx.writes, write)
	return nil
}

// Commit applies staged writes atomically and releases every held lock.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		tx.finish()
		return err
	}

	tx.store.mu.Lock()
	for _, w := range tx.writes {
		w(tx.store)
	}
	tx.store.mu.Unlock()

	tx.finish()
	return nil
}

// Rollback discards staged writes and releases every held lock.
// Rolling back a finished unit of work returns ErrTxClosed.
func (tx *Tx) Rollback(context.Context) error {
	if tx.done {
		return ErrTxClosed
	}
	tx.finish()
	return nil
}

func (tx *Tx) finish() {
	tx.done = true
	tx.writes = nil
	for key, l := range tx.held {
		<-l
		delete(tx.held, key)
	}
}

func unitOfWork(tx pgx.Tx) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok || mtx == nil {
		return nil, errors.New("memory store requires a memory unit of work")
	}
	return mtx, nil
}

func accountLockKey(userID uuid.UUID) string { return "account:" + userID.String() }
func cardLockKey(cardID uuid.UUID) string    { return "card:" + cardID.String() }

func idempotencyLockKey(userID uuid.UUID, key string) string {
	return "idem:" + userID.String() + ":" + key
}
