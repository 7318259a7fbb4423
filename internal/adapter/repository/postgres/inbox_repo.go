package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// InboxRepository implements usecase.InboxRepository. The primary key
// on (consumer_id, message_id) is what makes at-least-once delivery
// effectively exactly-once: the insert and the business change commit
// in the same transaction.
type InboxRepository struct {
	pool *pgxpool.Pool
}

// NewInboxRepository creates a new InboxRepository.
func NewInboxRepository(pool *pgxpool.Pool) *InboxRepository {
	return &InboxRepository{pool: pool}
}

// Record inserts the processed-message marker. A second delivery hits
// the primary key and returns domain.ErrDuplicateMessage.
func (r *InboxRepository) Record(ctx context.Context, tx usecase.Transaction, consumerID, messageID string, receivedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO inbox_state (consumer_id, message_id, received_at)
		VALUES ($1, $2, $3)`,
		consumerID, messageID, timeToPgTimestamptz(receivedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateMessage
		}

		return err
	}

	return nil
}
