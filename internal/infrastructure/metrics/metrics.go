package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Saga metrics
	SagasStarted   prometheus.Counter
	SagasCompleted prometheus.Counter
	SagasFailed    *prometheus.CounterVec
	SagaDuration   prometheus.Histogram
	SagasExpired   prometheus.Counter

	// Fraud metrics
	FraudVerdicts   *prometheus.CounterVec
	FraudRuleDenies *prometheus.CounterVec

	// Wallet metrics
	WalletOperations *prometheus.CounterVec
	TransferAmount   prometheus.Histogram

	// Messaging metrics
	OutboxPublished   prometheus.Counter
	OutboxErrors      prometheus.Counter
	ConsumerMessages  *prometheus.CounterVec
	InboxDuplicates   prometheus.Counter
	ConflictRetries   prometheus.Counter
	DeadLetterEmitted prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		SagasStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_sagas_started_total",
			Help: "Total number of transfer sagas started",
		}),
		SagasCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_sagas_completed_total",
			Help: "Total number of transfer sagas completed successfully",
		}),
		SagasFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfersaga_sagas_failed_total",
				Help: "Total number of transfer sagas ending in a failure state",
			},
			[]string{"state"},
		),
		SagaDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transfersaga_saga_duration_seconds",
			Help:    "Time from saga creation to terminal state",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		}),
		SagasExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_sagas_expired_total",
			Help: "Total number of sagas routed through the timeout path",
		}),
		FraudVerdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfersaga_fraud_verdicts_total",
				Help: "Fraud engine verdicts by outcome",
			},
			[]string{"outcome"},
		),
		FraudRuleDenies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfersaga_fraud_rule_denies_total",
				Help: "Denials by rule kind",
			},
			[]string{"kind"},
		),
		WalletOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfersaga_wallet_operations_total",
				Help: "Wallet ledger operations by type and result",
			},
			[]string{"operation", "result"},
		),
		TransferAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transfersaga_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_outbox_published_total",
			Help: "Outbox messages delivered to the broker",
		}),
		OutboxErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_outbox_errors_total",
			Help: "Outbox relay delivery errors",
		}),
		ConsumerMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfersaga_consumer_messages_total",
				Help: "Messages handled per consumer and result",
			},
			[]string{"consumer", "result"},
		),
		InboxDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_inbox_duplicates_total",
			Help: "Redelivered messages dropped by inbox deduplication",
		}),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_conflict_retries_total",
			Help: "Optimistic concurrency conflicts replayed by the retrier",
		}),
		DeadLetterEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transfersaga_dead_letter_total",
			Help: "Transfers escalated to manual intervention",
		}),
	}
}
