package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/infrastructure/metrics"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// Relay drains the outbox to the broker. It is the only component
// that talks to the broker on the write side, so a broker outage
// never blocks a business transaction; messages pile up in the outbox
// and drain when the broker returns.
type Relay struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
}

// Publisher delivers one outbox message to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID, correlationID string, body []byte) error
}

// Config for Relay.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int
	Interval   time.Duration
}

// New creates a new Relay.
func New(cfg Config) *Relay {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Relay{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
	}
}

// Start polls the outbox until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("outbox relay started",
		slog.Int("batch_size", r.batchSize),
		slog.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.drain(ctx); err != nil {
		r.logger.Error("error draining outbox on start", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.Error("error draining outbox", slog.String("error", err.Error()))
			}
		}
	}
}

// drain publishes one batch of unsent messages in creation order.
// Delivery and the sent marker are not atomic, so a crash between the
// two republishes the message; the inbox on the consuming side makes
// that harmless.
func (r *Relay) drain(ctx context.Context) error {
	msgs, err := r.outboxRepo.GetUnsent(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := r.publish(ctx, msg); err != nil {
			r.logger.Error("failed to publish outbox message",
				slog.String("message_id", msg.ID),
				slog.String("routing_key", msg.RoutingKey),
				slog.String("error", err.Error()))

			if r.metrics != nil {
				r.metrics.OutboxErrors.Inc()
			}

			// Stop the batch to preserve per-correlation ordering.
			return nil
		}

		if err := r.outboxRepo.MarkSent(ctx, msg.ID, time.Now().UTC()); err != nil {
			r.logger.Error("failed to mark message as sent",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()))
			return nil
		}

		if r.metrics != nil {
			r.metrics.OutboxPublished.Inc()
		}
	}

	return nil
}

func (r *Relay) publish(ctx context.Context, msg *domain.OutboxMessage) error {
	return r.publisher.Publish(ctx, msg.RoutingKey, msg.ID, msg.CorrelationID, msg.Payload)
}

// LogPublisher logs messages instead of delivering them. Used in
// local development without a broker.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the message.
func (p *LogPublisher) Publish(ctx context.Context, routingKey, messageID, correlationID string, body []byte) error {
	p.logger.Info("MESSAGE PUBLISHED",
		slog.String("message_id", messageID),
		slog.String("routing_key", routingKey),
		slog.String("correlation_id", correlationID),
		slog.String("payload", string(body)))

	return nil
}
