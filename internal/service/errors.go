package service

import (
	"context"
	"errors"
	"fmt"

	"banking-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

// lockNotAvailable is the PostgreSQL error code raised when lock_timeout expires.
const lockNotAvailable = "55P03"

// storageError maps a storage failure to the client-facing error.
// A deadline or lock timeout while inside a unit of work is SYS_002; anything else is SYS_001.
func storageError(op string, err error) *apperror.AppError {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if isLockTimeout(err) {
		return apperror.ErrLockTimeout(wrapped)
	}
	return apperror.ErrDatabaseError(wrapped)
}

func isLockTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable
}
