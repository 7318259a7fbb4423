package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Create writes an outbox message within the caller's transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, msg *domain.OutboxMessage) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO outbox_messages (id, correlation_id, routing_key, payload, created_at, sent)
		VALUES ($1, $2, $3, $4, $5, false)`,
		msg.ID,
		msg.CorrelationID,
		msg.RoutingKey,
		msg.Payload,
		timeToPgTimestamptz(msg.CreatedAt),
	)

	return err
}

// GetUnsent retrieves unsent messages in creation order.
func (r *OutboxRepository) GetUnsent(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, correlation_id, routing_key, payload, created_at, sent_at, sent
		FROM outbox_messages
		WHERE NOT sent
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*domain.OutboxMessage

	for rows.Next() {
		var (
			msg       domain.OutboxMessage
			createdAt pgtype.Timestamptz
		)

		err := rows.Scan(&msg.ID, &msg.CorrelationID, &msg.RoutingKey, &msg.Payload, &createdAt, &msg.SentAt, &msg.Sent)
		if err != nil {
			return nil, err
		}

		msg.CreatedAt = createdAt.Time
		msgs = append(msgs, &msg)
	}

	return msgs, rows.Err()
}

// MarkSent marks a message as delivered to the broker.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_messages SET sent = true, sent_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(sentAt))

	return err
}

// DeleteSent removes delivered messages older than the cutoff.
func (r *OutboxRepository) DeleteSent(ctx context.Context, before time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM outbox_messages WHERE sent AND sent_at < $1`,
		timeToPgTimestamptz(before))

	return err
}
