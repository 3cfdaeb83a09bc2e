package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrIdempotencyKeyUsed is returned when a log entry already exists for the key.
var ErrIdempotencyKeyUsed = errors.New("idempotency key already used")

// IdempotencyLog records the transaction a client key produced, so a retry
// replays it instead of posting again. Keys are scoped to the user.
type IdempotencyLog struct {
	UserID        uuid.UUID `json:"user_id"`
	Key           string    `json:"key"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"` // Serialized transaction to replay
	CreatedAt     time.Time `json:"created_at"`
}
