package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"banking-ledger/internal/core/domain"
)

// ActivityRepo writes activity events to the activity_feed table.
// It implements ports.ActivitySink.
type ActivityRepo struct {
	pool Pool
}

// NewActivityRepo creates a PostgreSQL-backed activity sink.
func NewActivityRepo(pool Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// Publish inserts one activity-feed row.
func (r *ActivityRepo) Publish(ctx context.Context, e *domain.ActivityEvent) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO activity_feed (id, user_id, action_type, details, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, string(e.ActionType), details, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Name returns the sink name.
func (r *ActivityRepo) Name() string {
	return "postgresql"
}
