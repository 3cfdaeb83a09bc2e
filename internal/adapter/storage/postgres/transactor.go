package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// unitOfWorkOptions pins the isolation level the row-lock protocol relies on:
// a FOR UPDATE read waits for the holder and then sees its committed balance.
var unitOfWorkOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Transactor implements ports.DBTransactor using pgxpool.Pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new read-committed database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.BeginTx(ctx, unitOfWorkOptions)
}
