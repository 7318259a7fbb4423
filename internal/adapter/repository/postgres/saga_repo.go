package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// SagaRepository implements usecase.SagaRepository.
type SagaRepository struct {
	pool *pgxpool.Pool
}

// NewSagaRepository creates a new SagaRepository.
func NewSagaRepository(pool *pgxpool.Pool) *SagaRepository {
	return &SagaRepository{pool: pool}
}

const sagaColumns = `correlation_id, transaction_id, current_state,
	sender_customer_id, receiver_customer_id, sender_wallet_id, receiver_wallet_id,
	amount, currency, client_ip_address, failure_reason,
	expiration_token_id, expires_at, created_at, completed_at, updated_at`

// Create inserts a new saga. The correlation id is the primary key,
// so a duplicate start returns domain.ErrSagaAlreadyExists.
func (r *SagaRepository) Create(ctx context.Context, tx usecase.Transaction, saga *domain.TransferSaga) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO transfer_sagas (
			correlation_id, transaction_id, current_state,
			sender_customer_id, receiver_customer_id, sender_wallet_id, receiver_wallet_id,
			amount, currency, client_ip_address, failure_reason,
			expiration_token_id, expires_at, created_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		saga.CorrelationID,
		saga.TransactionID,
		string(saga.CurrentState),
		saga.SenderCustomerID,
		saga.ReceiverCustomerID,
		saga.SenderWalletID,
		saga.ReceiverWalletID,
		decimalToNumeric(saga.Amount.Amount),
		saga.Amount.Currency,
		saga.ClientIPAddress,
		saga.FailureReason,
		saga.ExpirationTokenID,
		saga.ExpiresAt,
		timeToPgTimestamptz(saga.CreatedAt),
		saga.CompletedAt,
		timeToPgTimestamptz(saga.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSagaAlreadyExists
		}

		return err
	}

	return nil
}

// GetByCorrelationID retrieves a saga by correlation ID.
func (r *SagaRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.TransferSaga, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sagaColumns+` FROM transfer_sagas WHERE correlation_id = $1`, correlationID)

	return scanSaga(row)
}

// GetByCorrelationIDTx retrieves a saga with a FOR UPDATE lock.
func (r *SagaRepository) GetByCorrelationIDTx(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.TransferSaga, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx,
		`SELECT `+sagaColumns+` FROM transfer_sagas WHERE correlation_id = $1 FOR UPDATE`, correlationID)

	return scanSaga(row)
}

// Update persists the saga's current state.
func (r *SagaRepository) Update(ctx context.Context, tx usecase.Transaction, saga *domain.TransferSaga) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE transfer_sagas SET
			current_state = $2,
			failure_reason = $3,
			expiration_token_id = $4,
			expires_at = $5,
			completed_at = $6,
			updated_at = $7
		WHERE correlation_id = $1`,
		saga.CorrelationID,
		string(saga.CurrentState),
		saga.FailureReason,
		saga.ExpirationTokenID,
		saga.ExpiresAt,
		saga.CompletedAt,
		timeToPgTimestamptz(saga.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSagaNotFound
	}

	return nil
}

// ListExpired returns non-terminal sagas whose deadline has passed.
func (r *SagaRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.TransferSaga, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sagaColumns+` FROM transfer_sagas
		WHERE expires_at IS NOT NULL
		  AND expires_at <= $1
		  AND current_state NOT IN ('fraud_check_declined', 'completed', 'failed', 'refund_failed')
		ORDER BY expires_at
		LIMIT $2`,
		timeToPgTimestamptz(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sagas []*domain.TransferSaga

	for rows.Next() {
		saga, err := scanSaga(rows)
		if err != nil {
			return nil, err
		}

		sagas = append(sagas, saga)
	}

	return sagas, rows.Err()
}

func scanSaga(row pgx.Row) (*domain.TransferSaga, error) {
	var (
		s         domain.TransferSaga
		state     string
		amount    pgtype.Numeric
		currency  string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&s.CorrelationID,
		&s.TransactionID,
		&state,
		&s.SenderCustomerID,
		&s.ReceiverCustomerID,
		&s.SenderWalletID,
		&s.ReceiverWalletID,
		&amount,
		&currency,
		&s.ClientIPAddress,
		&s.FailureReason,
		&s.ExpirationTokenID,
		&s.ExpiresAt,
		&createdAt,
		&s.CompletedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSagaNotFound
		}

		return nil, err
	}

	s.CurrentState = domain.SagaState(state)
	s.Amount = domain.Money{Amount: numericToDecimal(amount), Currency: currency}
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time

	return &s, nil
}
