package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	httpAdapter "github.com/paymesh/transfersaga/internal/adapter/http"
	"github.com/paymesh/transfersaga/internal/adapter/http/handler"
	httpmiddleware "github.com/paymesh/transfersaga/internal/adapter/http/middleware"
	"github.com/paymesh/transfersaga/internal/adapter/messaging/rabbit"
	postgresRepo "github.com/paymesh/transfersaga/internal/adapter/repository/postgres"
	redisRepo "github.com/paymesh/transfersaga/internal/adapter/repository/redis"
	"github.com/paymesh/transfersaga/internal/adapter/verification"
	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/infrastructure/config"
	"github.com/paymesh/transfersaga/internal/infrastructure/logger"
	"github.com/paymesh/transfersaga/internal/infrastructure/metrics"
	"github.com/paymesh/transfersaga/internal/infrastructure/postgres"
	"github.com/paymesh/transfersaga/internal/infrastructure/redis"
	"github.com/paymesh/transfersaga/internal/infrastructure/relay"
	"github.com/paymesh/transfersaga/internal/infrastructure/scheduler"
	"github.com/paymesh/transfersaga/internal/usecase"
)

const fraudConsumerName = "fraud-engine"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zlog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(cfg, zlog, slogger); err != nil {
		zlog.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, zlog zerolog.Logger, slogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	zlog.Info().Msg("connected to postgres")

	// Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()
	zlog.Info().Msg("connected to redis")

	// RabbitMQ
	publisher, err := rabbit.NewPublisher(cfg.AMQPURL, cfg.Exchange, zlog)
	if err != nil {
		return fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	defer publisher.Close()
	zlog.Info().Str("exchange", cfg.Exchange).Msg("connected to rabbitmq")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	sagaRepo := postgresRepo.NewSagaRepository(pool)
	fraudRuleRepo := postgresRepo.NewFraudRuleRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	inboxRepo := postgresRepo.NewInboxRepository(pool)
	retrier := postgresRepo.NewRetrier()
	idGen := postgresRepo.NewULIDGenerator()

	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	verificationClient := redisRepo.NewCachedVerificationClient(
		verification.NewClient(cfg.VerificationURL, cfg.VerificationTimeout),
		cache,
		cfg.VerificationCacheTTL,
		zlog,
	)

	// Use cases
	sagaUC := usecase.NewSagaUseCase(txManager, sagaRepo, outboxRepo, inboxRepo, idGen, retrier, m, cfg.SagaTimeout)
	ledgerUC := usecase.NewLedgerUseCase(txManager, walletRepo, outboxRepo, inboxRepo, idGen, retrier, m)
	fraudUC := usecase.NewFraudUseCase(fraudRuleRepo, verificationClient, m)

	// Consumers
	if err := startConsumers(ctx, cfg, zlog, m, sagaUC, ledgerUC, fraudUC, publisher); err != nil {
		return err
	}

	// Outbox relay
	outboxRelay := relay.New(relay.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     slogger,
		Metrics:    m,
		BatchSize:  cfg.RelayBatchSize,
		Interval:   cfg.RelayPollInterval,
	})
	go func() {
		if err := outboxRelay.Start(ctx); err != nil && ctx.Err() == nil {
			zlog.Error().Err(err).Msg("outbox relay stopped")
		}
	}()

	// Background jobs
	sched := scheduler.New(scheduler.Config{
		Expirer:         sagaUC,
		Cleaner:         outboxRepo,
		Logger:          slogger,
		SweepInterval:   cfg.SweepInterval,
		SweepBatchSize:  cfg.SweepBatchSize,
		OutboxRetention: cfg.OutboxRetention,
	})
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	// HTTP server
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		TransferHandler:  handler.NewTransferHandler(sagaUC),
		WalletHandler:    handler.NewWalletHandler(ledgerUC),
		FraudRuleHandler: handler.NewFraudRuleHandler(fraudUC),
		HealthHandler:    handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore: idempotencyStore,
		RateLimiter:      httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logging:          httpmiddleware.NewLoggingMiddleware(zlog),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("port", cfg.HTTPPort).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	zlog.Info().Msg("server stopped")

	return nil
}

// startConsumers binds the three queues. Each service has its own
// consumer so a poison message on one queue cannot starve the others.
func startConsumers(
	ctx context.Context,
	cfg *config.Config,
	zlog zerolog.Logger,
	m *metrics.Metrics,
	sagaUC *usecase.SagaUseCase,
	ledgerUC *usecase.LedgerUseCase,
	fraudUC *usecase.FraudUseCase,
	publisher *rabbit.Publisher,
) error {
	sagaConsumer, err := rabbit.NewConsumer(cfg.AMQPURL, cfg.Exchange, usecase.ConsumerSagaOrchestrator, zlog, m)
	if err != nil {
		return fmt.Errorf("creating saga consumer: %w", err)
	}

	err = sagaConsumer.Consume(ctx, usecase.ConsumerSagaOrchestrator, map[string]rabbit.HandlerFunc{
		domain.RouteFraudChecked:       bind(sagaUC.HandleFraudChecked),
		domain.RouteWalletDebited:      bind(sagaUC.HandleWalletDebited),
		domain.RouteWalletDebitFailed:  bind(sagaUC.HandleWalletDebitFailed),
		domain.RouteWalletCredited:     bind(sagaUC.HandleWalletCredited),
		domain.RouteWalletCreditFailed: bind(sagaUC.HandleWalletCreditFailed),
		domain.RouteSenderRefunded:     bind(sagaUC.HandleSenderRefunded),
		domain.RouteRefundFailed:       bind(sagaUC.HandleRefundFailed),
		domain.RouteTransferExpired:    bind(sagaUC.HandleTransferExpired),
	})
	if err != nil {
		return fmt.Errorf("starting saga consumer: %w", err)
	}

	ledgerConsumer, err := rabbit.NewConsumer(cfg.AMQPURL, cfg.Exchange, usecase.ConsumerWalletLedger, zlog, m)
	if err != nil {
		return fmt.Errorf("creating ledger consumer: %w", err)
	}

	err = ledgerConsumer.Consume(ctx, usecase.ConsumerWalletLedger, map[string]rabbit.HandlerFunc{
		domain.RouteDebitWallet:  bind(ledgerUC.HandleDebitCommand),
		domain.RouteCreditWallet: bind(ledgerUC.HandleCreditCommand),
		domain.RouteRefundWallet: bind(ledgerUC.HandleRefundCommand),
	})
	if err != nil {
		return fmt.Errorf("starting ledger consumer: %w", err)
	}

	fraudConsumer, err := rabbit.NewConsumer(cfg.AMQPURL, cfg.Exchange, fraudConsumerName, zlog, m)
	if err != nil {
		return fmt.Errorf("creating fraud consumer: %w", err)
	}

	// The fraud engine is stateless, so its verdicts bypass the outbox
	// and go straight to the broker. The verdict message id is derived
	// from the command's so redeliveries dedup on the saga inbox.
	err = fraudConsumer.Consume(ctx, fraudConsumerName, map[string]rabbit.HandlerFunc{
		domain.RouteCheckFraud: func(ctx context.Context, messageID string, body []byte) error {
			var cmd domain.CheckFraudCommand
			if err := json.Unmarshal(body, &cmd); err != nil {
				zlog.Error().Err(err).Str("message_id", messageID).Msg("dropping malformed fraud command")
				return nil
			}

			event, err := fraudUC.HandleCheckFraudCommand(ctx, cmd)
			if err != nil {
				return err
			}

			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}

			return publisher.Publish(ctx, domain.RouteFraudChecked, messageID+"-verdict", cmd.CorrelationID, payload)
		},
	})
	if err != nil {
		return fmt.Errorf("starting fraud consumer: %w", err)
	}

	return nil
}

// bind adapts a typed message handler to the consumer's byte-level
// contract. Undecodable payloads are dropped; redelivery cannot fix
// them.
func bind[T any](handle func(ctx context.Context, messageID string, msg T) error) rabbit.HandlerFunc {
	return func(ctx context.Context, messageID string, body []byte) error {
		var msg T
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil
		}

		return handle(ctx, messageID, msg)
	}
}
