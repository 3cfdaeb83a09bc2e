package service

import (
	"context"
	"sync"
	"time"

	"banking-ledger/internal/core/domain"
	"banking-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// ActivityService implements ports.ActivityNotifier.
// Delivery runs in its own goroutine after the caller's unit of work has committed,
// so a slow or failing sink never affects the ledger.
type ActivityService struct {
	sinks   []ports.ActivitySink
	timeout time.Duration
	metrics ports.Metrics
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewActivityService creates an activity notifier fanning out to sinks.
// With no sinks, events are only written to the logger.
func NewActivityService(timeout time.Duration, metrics ports.Metrics, log zerolog.Logger, sinks ...ports.ActivitySink) *ActivityService {
	return &ActivityService{
		sinks:   sinks,
		timeout: timeout,
		metrics: metrics,
		log:     log,
	}
}

// Notify records an activity event asynchronously (fire-and-forget).
func (s *ActivityService) Notify(ctx context.Context, event *domain.ActivityEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Detached from the request: it is usually finished before delivery starts.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		s.log.Info().
			Str("event_id", event.ID.String()).
			Str("user_id", event.UserID.String()).
			Str("action", string(event.ActionType)).
			Msg("activity")

		for _, sink := range s.sinks {
			err := sink.Publish(ctx, event)
			s.metrics.IncActivityDelivery(sink.Name(), err)
			if err != nil {
				s.log.Warn().Err(err).
					Str("sink", sink.Name()).
					Str("event_id", event.ID.String()).
					Msg("failed to deliver activity event")
			}
		}
	}()
}

// Wait blocks until all in-flight deliveries have finished.
func (s *ActivityService) Wait() {
	s.wg.Wait()
}
