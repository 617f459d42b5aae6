package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/metrics"
	"github.com/rs/zerolog"
)

// StatusRelayWorker is a background worker that delivers outbox status events
// to every configured publisher. Delivery is at-least-once.
type StatusRelayWorker struct {
	outbox     domain.OutboxRepository
	publishers []domain.StatusEventPublisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	interval   time.Duration
	batchSize  int
	stopCh     chan struct{}
	doneCh     chan struct{}
	mu         sync.Mutex
	running    bool
}

// StatusRelayWorkerConfig holds configuration for the relay worker
type StatusRelayWorkerConfig struct {
	Interval  time.Duration // How often to poll the outbox
	BatchSize int           // Max events per poll
}

// DefaultStatusRelayWorkerConfig returns sensible defaults
func DefaultStatusRelayWorkerConfig() StatusRelayWorkerConfig {
	return StatusRelayWorkerConfig{
		Interval:  2 * time.Second,
		BatchSize: 100,
	}
}

// NewStatusRelayWorker creates a new relay worker
func NewStatusRelayWorker(
	outbox domain.OutboxRepository,
	publishers []domain.StatusEventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config StatusRelayWorkerConfig,
) *StatusRelayWorker {
	defaults := DefaultStatusRelayWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}

	return &StatusRelayWorker{
		outbox:     outbox,
		publishers: publishers,
		metrics:    m,
		logger:     logger.With().Str("component", "status_relay_worker").Logger(),
		interval:   config.Interval,
		batchSize:  config.BatchSize,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins polling the outbox
func (w *StatusRelayWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Int("batch_size", w.batchSize).
		Int("publishers", len(w.publishers)).
		Msg("Starting status relay worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker and waits for the current batch
func (w *StatusRelayWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping status relay worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Status relay worker stopped")
}

func (w *StatusRelayWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.RelayOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.RelayOnce(ctx)
		}
	}
}

func (w *StatusRelayWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// RelayOnce drains pending events in batches until the outbox is empty or a
// batch fails. It returns the number of events published.
func (w *StatusRelayWorker) RelayOnce(ctx context.Context) int {
	total := 0
	for {
		failed := 0
		n, err := w.outbox.ProcessPending(ctx, w.batchSize, func(ctx context.Context, event *domain.StatusEvent) error {
			if err := w.publish(ctx, event); err != nil {
				failed++
				w.logger.Warn().
					Err(err).
					Str("event_id", event.ID.String()).
					Int32("application_id", event.ApplicationID).
					Msg("Failed to publish status event, will retry")
				return err
			}
			return nil
		})
		w.metrics.ObserveOutbox(n, failed)
		total += n
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Error().Err(err).Msg("Failed to process outbox batch")
			}
			return total
		}
		if n < w.batchSize || failed > 0 {
			break
		}
	}

	if total > 0 {
		w.logger.Debug().Int("published", total).Msg("Relayed status events")
	}
	return total
}

// publish delivers to every publisher; all must succeed for the event to be
// marked published.
func (w *StatusRelayWorker) publish(ctx context.Context, event *domain.StatusEvent) error {
	var errs []error
	for _, p := range w.publishers {
		if err := p.PublishStatusEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsRunning returns whether the worker is currently running
func (w *StatusRelayWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
