package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SagaExpirer drives timed-out sagas through their failure path.
type SagaExpirer interface {
	ExpireDueSagas(ctx context.Context, limit int) (int, error)
}

// OutboxCleaner deletes delivered outbox messages.
type OutboxCleaner interface {
	DeleteSent(ctx context.Context, before time.Time) error
}

// Scheduler runs the background jobs: the expiration sweep that fires
// saga timeout tokens, and the outbox cleanup that trims delivered
// messages past their retention window.
type Scheduler struct {
	cron    *cron.Cron
	expirer SagaExpirer
	cleaner OutboxCleaner
	logger  *slog.Logger

	sweepInterval   time.Duration
	sweepBatchSize  int
	outboxRetention time.Duration
}

// Config for Scheduler.
type Config struct {
	Expirer         SagaExpirer
	Cleaner         OutboxCleaner
	Logger          *slog.Logger
	SweepInterval   time.Duration
	SweepBatchSize  int
	OutboxRetention time.Duration
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = 100
	}
	if cfg.OutboxRetention == 0 {
		cfg.OutboxRetention = 7 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelInfo))

	return &Scheduler{
		cron:            cron.New(cron.WithChain(cron.Recover(cronLogger))),
		expirer:         cfg.Expirer,
		cleaner:         cfg.Cleaner,
		logger:          cfg.Logger,
		sweepInterval:   cfg.SweepInterval,
		sweepBatchSize:  cfg.SweepBatchSize,
		outboxRetention: cfg.OutboxRetention,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc("@every "+s.sweepInterval.String(), s.sweepExpirations); err != nil {
		s.logger.Error("failed to schedule expiration sweep", "error", err)
	} else {
		s.logger.Info("scheduled expiration sweep", "interval", s.sweepInterval.String())
	}

	if _, err := s.cron.AddFunc("@every 1h", s.cleanOutbox); err != nil {
		s.logger.Error("failed to schedule outbox cleanup", "error", err)
	} else {
		s.logger.Info("scheduled outbox cleanup", "retention", s.outboxRetention.String())
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler. The returned context is
// done when running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweepExpirations() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := s.expirer.ExpireDueSagas(ctx, s.sweepBatchSize)
	if err != nil {
		s.logger.Error("expiration sweep failed", "error", err)
		return
	}

	if expired > 0 {
		s.logger.Info("expired timed-out transfers", "count", expired)
	}
}

func (s *Scheduler) cleanOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.outboxRetention)
	if err := s.cleaner.DeleteSent(ctx, cutoff); err != nil {
		s.logger.Error("outbox cleanup failed", "error", err)
	}
}
