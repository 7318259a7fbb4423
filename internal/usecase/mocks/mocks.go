package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// MockWalletRepository is a mock implementation of WalletRepository.
// The default behavior is an in-memory store with optimistic version
// checks, matching the real repository's contract.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet

	CreateFunc            func(ctx context.Context, wallet *domain.Wallet) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Wallet, error)
	GetByIDTxFunc         func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Wallet, error)
	GetByCustomerIDTxFunc func(ctx context.Context, tx usecase.Transaction, customerID string) (*domain.Wallet, error)
	UpdateFunc            func(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet, expectedVersion int64) error
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make(map[string]*domain.Wallet),
	}
}

// Seed stores a wallet directly, bypassing any custom funcs.
func (m *MockWalletRepository) Seed(wallet *domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *wallet
	m.wallets[wallet.ID] = &cp
}

// Stored returns the stored state of a wallet, or nil.
func (m *MockWalletRepository) Stored(id string) *domain.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[id]; ok {
		cp := *w
		return &cp
	}
	return nil
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, wallet)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *wallet
	m.wallets[wallet.ID] = &cp
	return nil
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, domain.ErrWalletNotFound
}

func (m *MockWalletRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Wallet, error) {
	if m.GetByIDTxFunc != nil {
		return m.GetByIDTxFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockWalletRepository) GetByCustomerIDTx(ctx context.Context, tx usecase.Transaction, customerID string) (*domain.Wallet, error) {
	if m.GetByCustomerIDTxFunc != nil {
		return m.GetByCustomerIDTxFunc(ctx, tx, customerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.CustomerID == customerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, domain.ErrWalletNotFound
}

func (m *MockWalletRepository) Update(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet, expectedVersion int64) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, wallet, expectedVersion)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.wallets[wallet.ID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	wallet.Version = expectedVersion + 1
	cp := *wallet
	m.wallets[wallet.ID] = &cp
	return nil
}

// MockSagaRepository is a mock implementation of SagaRepository.
type MockSagaRepository struct {
	mu    sync.RWMutex
	sagas map[string]*domain.TransferSaga

	CreateFunc               func(ctx context.Context, tx usecase.Transaction, saga *domain.TransferSaga) error
	GetByCorrelationIDFunc   func(ctx context.Context, correlationID string) (*domain.TransferSaga, error)
	GetByCorrelationIDTxFunc func(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.TransferSaga, error)
	UpdateFunc               func(ctx context.Context, tx usecase.Transaction, saga *domain.TransferSaga) error
	ListExpiredFunc          func(ctx context.Context, now time.Time, limit int) ([]*domain.TransferSaga, error)
}

func NewMockSagaRepository() *MockSagaRepository {
	return &MockSagaRepository{
		sagas: make(map[string]*domain.TransferSaga),
	}
}

// Seed stores a saga directly.
func (m *MockSagaRepository) Seed(saga *domain.TransferSaga) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *saga
	m.sagas[saga.CorrelationID] = &cp
}

// Stored returns the stored state of a saga, or nil.
func (m *MockSagaRepository) Stored(correlationID string) *domain.TransferSaga {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sagas[correlationID]; ok {
		cp := *s
		return &cp
	}
	return nil
}

func (m *MockSagaRepository) Create(ctx context.Context, tx usecase.Transaction, saga *domain.TransferSaga) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, saga)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sagas[saga.CorrelationID]; ok {
		return domain.ErrSagaAlreadyExists
	}
	cp := *saga
	m.sagas[saga.CorrelationID] = &cp
	return nil
}

func (m *MockSagaRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.TransferSaga, error) {
	if m.GetByCorrelationIDFunc != nil {
		return m.GetByCorrelationIDFunc(ctx, correlationID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sagas[correlationID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrSagaNotFound
}

func (m *MockSagaRepository) GetByCorrelationIDTx(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.TransferSaga, error) {
	if m.GetByCorrelationIDTxFunc != nil {
		return m.GetByCorrelationIDTxFunc(ctx, tx, correlationID)
	}
	return m.GetByCorrelationID(ctx, correlationID)
}

func (m *MockSagaRepository) Update(ctx context.Context, tx usecase.Transaction, saga *domain.TransferSaga) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, saga)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sagas[saga.CorrelationID]; !ok {
		return domain.ErrSagaNotFound
	}
	cp := *saga
	m.sagas[saga.CorrelationID] = &cp
	return nil
}

func (m *MockSagaRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.TransferSaga, error) {
	if m.ListExpiredFunc != nil {
		return m.ListExpiredFunc(ctx, now, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.TransferSaga
	for _, s := range m.sagas {
		if s.CurrentState.IsTerminal() || s.ExpiresAt == nil || s.ExpiresAt.After(now) {
			continue
		}
		cp := *s
		due = append(due, &cp)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

// MockFraudRuleRepository is a mock implementation of FraudRuleRepository.
type MockFraudRuleRepository struct {
	mu    sync.RWMutex
	rules []*domain.FraudRule

	ListActiveFunc func(ctx context.Context) ([]*domain.FraudRule, error)
	ListFunc       func(ctx context.Context, limit, offset int) ([]*domain.FraudRule, error)
}

func NewMockFraudRuleRepository(rules ...*domain.FraudRule) *MockFraudRuleRepository {
	return &MockFraudRuleRepository{rules: rules}
}

func (m *MockFraudRuleRepository) ListActive(ctx context.Context) ([]*domain.FraudRule, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []*domain.FraudRule
	for _, r := range m.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (m *MockFraudRuleRepository) List(ctx context.Context, limit, offset int) ([]*domain.FraudRule, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset >= len(m.rules) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.rules) {
		end = len(m.rules)
	}
	return m.rules[offset:end], nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
// The default behavior collects created messages for assertion.
type MockOutboxRepository struct {
	mu       sync.RWMutex
	messages []*domain.OutboxMessage

	CreateFunc     func(ctx context.Context, tx usecase.Transaction, msg *domain.OutboxMessage) error
	GetUnsentFunc  func(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkSentFunc   func(ctx context.Context, id string, sentAt time.Time) error
	DeleteSentFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Messages returns all messages written so far.
func (m *MockOutboxRepository) Messages() []*domain.OutboxMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.OutboxMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// ByRoutingKey returns messages written for one routing key.
func (m *MockOutboxRepository) ByRoutingKey(key string) []*domain.OutboxMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxMessage
	for _, msg := range m.messages {
		if msg.RoutingKey == key {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, msg *domain.OutboxMessage) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockOutboxRepository) GetUnsent(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	if m.GetUnsentFunc != nil {
		return m.GetUnsentFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var unsent []*domain.OutboxMessage
	for _, msg := range m.messages {
		if !msg.Sent {
			unsent = append(unsent, msg)
			if len(unsent) == limit {
				break
			}
		}
	}
	return unsent, nil
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, id, sentAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.Sent = true
			msg.SentAt = &sentAt
			return nil
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeleteSent(ctx context.Context, before time.Time) error {
	if m.DeleteSentFunc != nil {
		return m.DeleteSentFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if !msg.Sent || msg.SentAt == nil || !msg.SentAt.Before(before) {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

// MockInboxRepository is a mock implementation of InboxRepository with
// real deduplication semantics.
type MockInboxRepository struct {
	mu   sync.Mutex
	seen map[string]bool

	RecordFunc func(ctx context.Context, tx usecase.Transaction, consumerID, messageID string, receivedAt time.Time) error
}

func NewMockInboxRepository() *MockInboxRepository {
	return &MockInboxRepository{seen: make(map[string]bool)}
}

func (m *MockInboxRepository) Record(ctx context.Context, tx usecase.Transaction, consumerID, messageID string, receivedAt time.Time) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, tx, consumerID, messageID, receivedAt)
	}
	m.mu.Lock()
	key := consumerID + "/" + messageID
	if m.seen[key] {
		m.mu.Unlock()
		return domain.ErrDuplicateMessage
	}
	m.seen[key] = true
	m.mu.Unlock()

	// The real repository writes the inbox row inside the handler's
	// transaction, so a rolled-back attempt leaves no record behind.
	if mtx, ok := tx.(*MockTransaction); ok {
		mtx.onRollback(func() {
			m.mu.Lock()
			delete(m.seen, key)
			m.mu.Unlock()
		})
	}
	return nil
}

// MockTransaction is a no-op transaction that replays registered
// rollback hooks when it is rolled back before a commit.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	mu        sync.Mutex
	done      bool
	rollbacks []func()
}

func (m *MockTransaction) onRollback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks = append(m.rollbacks, fn)
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	m.mu.Lock()
	m.done = true
	m.rollbacks = nil
	m.mu.Unlock()

	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

// Rollback after a commit is a no-op, matching pgx semantics in the
// usecases' deferred rollback pattern.
func (m *MockTransaction) Rollback(ctx context.Context) error {
	m.mu.Lock()
	hooks := m.rollbacks
	if m.done {
		hooks = nil
	}
	m.done = true
	m.rollbacks = nil
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockTransactionManager hands out no-op transactions.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockIDGenerator returns sequential deterministic ids.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%04d", m.counter)
}

// MockRetrier replays the operation on retryable errors without
// backoff, up to a small bound.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = operation()
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

func isRetryable(err error) bool {
	return err == domain.ErrConcurrentModification
}

// MockCache is an in-memory cache without expiry.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// MockIdempotencyStore is an in-memory idempotency store.
type MockIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{keys: make(map[string][]byte)}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.keys[key]; ok {
		return true, existing, nil
	}
	m.keys[key] = response
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = response
	return nil
}
