package usecase

import "time"

const (
	// DefaultTransactionTimeout caps one database transaction so a
	// stuck handler cannot hold row locks indefinitely.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultSagaTimeout is how long a saga waits for a downstream
	// response before the expiration token fires.
	DefaultSagaTimeout = 5 * time.Minute

	// IdempotencyKeyTTL is how long HTTP idempotency keys are cached.
	IdempotencyKeyTTL = 24 * time.Hour

	// VerificationCacheTTL is how long customer verification lookups
	// are cached for the fraud engine.
	VerificationCacheTTL = 10 * time.Minute

	// Consumer ids for inbox deduplication.
	ConsumerSagaOrchestrator = "saga-orchestrator"
	ConsumerWalletLedger     = "wallet-ledger"
)
