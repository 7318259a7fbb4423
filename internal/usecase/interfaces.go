package usecase

import (
	"context"
	"time"

	"github.com/paymesh/transfersaga/internal/domain"
)

// WalletRepository defines data access for wallets. Update performs
// an optimistic version check and returns
// domain.ErrConcurrentModification on a lost race.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.Wallet, error)
	GetByCustomerIDTx(ctx context.Context, tx Transaction, customerID string) (*domain.Wallet, error)
	Update(ctx context.Context, tx Transaction, wallet *domain.Wallet, expectedVersion int64) error
}

// SagaRepository defines data access for transfer sagas.
type SagaRepository interface {
	Create(ctx context.Context, tx Transaction, saga *domain.TransferSaga) error
	GetByCorrelationID(ctx context.Context, correlationID string) (*domain.TransferSaga, error)
	GetByCorrelationIDTx(ctx context.Context, tx Transaction, correlationID string) (*domain.TransferSaga, error)
	Update(ctx context.Context, tx Transaction, saga *domain.TransferSaga) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.TransferSaga, error)
}

// FraudRuleRepository defines read access to fraud rule configuration.
// Rules are administrative data mutated out of band.
type FraudRuleRepository interface {
	ListActive(ctx context.Context) ([]*domain.FraudRule, error)
	List(ctx context.Context, limit, offset int) ([]*domain.FraudRule, error)
}

// OutboxRepository defines data access for outbox messages.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, msg *domain.OutboxMessage) error
	GetUnsent(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	DeleteSent(ctx context.Context, before time.Time) error
}

// InboxRepository records processed message ids per consumer. Record
// returns domain.ErrDuplicateMessage when the (consumer, message)
// pair was already seen.
type InboxRepository interface {
	Record(ctx context.Context, tx Transaction, consumerID, messageID string, receivedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier replays an operation on retryable faults (optimistic
// conflicts, serialization failures) with bounded backoff.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// VerificationClient fetches sender verification data from the
// external customer collaborator.
type VerificationClient interface {
	GetVerificationData(ctx context.Context, customerID string) (*domain.VerificationData, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage for the HTTP edge.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
