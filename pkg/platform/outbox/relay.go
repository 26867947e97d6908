package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay polls the store and hands pending entries to the publisher in creation order.
// Delivery is at-least-once: an entry is marked published only after the broker accepts it.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *Metrics
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(store Store, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// Flush publishes one batch and returns how many entries were delivered. It stops at the
// first publish failure so per-card event order is kept.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	entries, err := r.store.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.SetBacklog(len(entries))
	}

	var delivered []Entry
	var publishErr error
	for _, e := range entries {
		if err := r.publisher.Publish(ctx, e); err != nil {
			if r.metrics != nil {
				r.metrics.IncFailures()
			}
			r.logger.WarnContext(ctx, "outbox publish failed",
				"event_type", e.EventType,
				"aggregate_id", e.AggregateID,
				"error", err,
			)
			publishErr = err
			break
		}
		delivered = append(delivered, e)
	}

	if len(delivered) > 0 {
		ids := make([]uuid.UUID, 0, len(delivered))
		for _, e := range delivered {
			ids = append(ids, e.ID)
		}
		if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
			return 0, err
		}
		if r.metrics != nil {
			for range delivered {
				r.metrics.IncPublished()
			}
		}
	}
	return len(delivered), publishErr
}

// LogPublisher logs entries instead of delivering them. Used when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, entry Entry) error {
	p.Logger.InfoContext(ctx, "outbox event",
		"event_type", entry.EventType,
		"aggregate_type", entry.AggregateType,
		"aggregate_id", entry.AggregateID,
		"payload", string(entry.Payload),
	)
	return nil
}
