package domain

import "time"

// OutboxMessage is persisted in the same transaction as the state
// change it announces; the relay delivers it to the broker later and
// marks it sent. Delivery is at-least-once, hence inbox dedup on the
// consuming side.
type OutboxMessage struct {
	ID            string
	CorrelationID string
	RoutingKey    string
	Payload       []byte
	CreatedAt     time.Time
	SentAt        *time.Time
	Sent          bool
}

// InboxState records one processed message per consumer. A message id
// seen again by the same consumer is a safe no-op.
type InboxState struct {
	MessageID  string
	ConsumerID string
	ReceivedAt time.Time
}
