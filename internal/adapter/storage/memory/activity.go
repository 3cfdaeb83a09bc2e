package memory

import (
	"context"

	"banking-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// ActivityFeed is an in-memory activity sink. It implements ports.ActivitySink.
type ActivityFeed struct {
	store *Store
}

// NewActivityFeed creates an activity sink over store.
func NewActivityFeed(store *Store) *ActivityFeed {
	return &ActivityFeed{store: store}
}

// Publish appends the event to the feed.
func (f *ActivityFeed) Publish(_ context.Context, e *domain.ActivityEvent) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.activity = append(f.store.activity, *e)
	return nil
}

// Name returns the sink name.
func (f *ActivityFeed) Name() string {
	return "memory"
}

// ListByUser returns the user's events in publish order.
func (f *ActivityFeed) ListByUser(userID uuid.UUID) []domain.ActivityEvent {
	f.store.mu.RLock()
	defer f.store.mu.RUnlock()

	var events []domain.ActivityEvent
	for _, e := range f.store.activity {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	return events
}
