package domain

import "time"

// Routing keys for commands and events on the transfer exchange.
// Every message carries the correlation id so the orchestrator can
// route responses to the right saga instance; wallet-mutating
// commands additionally carry the transaction id for idempotency.
const (
	RouteCheckFraud   = "fraud.check"
	RouteDebitWallet  = "wallet.debit"
	RouteCreditWallet = "wallet.credit"
	RouteRefundWallet = "wallet.refund"

	RouteFraudChecked       = "saga.fraud.checked"
	RouteWalletDebited      = "saga.wallet.debited"
	RouteWalletDebitFailed  = "saga.wallet.debit_failed"
	RouteWalletCredited     = "saga.wallet.credited"
	RouteWalletCreditFailed = "saga.wallet.credit_failed"
	RouteSenderRefunded     = "saga.wallet.refunded"
	RouteRefundFailed       = "saga.wallet.refund_failed"
	RouteTransferExpired    = "saga.transfer.expired"

	RouteTransferCompleted  = "transfer.completed"
	RouteTransferFailed     = "transfer.failed"
	RouteTransferDeadLetter = "transfer.dead_letter"
)

// CheckFraudCommand asks the fraud engine for a verdict.
type CheckFraudCommand struct {
	CorrelationID      string `json:"correlation_id"`
	SenderCustomerID   string `json:"sender_customer_id"`
	ReceiverCustomerID string `json:"receiver_customer_id"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	ClientIPAddress    string `json:"client_ip_address"`
}

// FraudCheckedEvent is the engine's verdict.
type FraudCheckedEvent struct {
	CorrelationID string `json:"correlation_id"`
	Approved      bool   `json:"approved"`
	Reason        string `json:"reason,omitempty"`
}

// DebitWalletCommand debits the sender's wallet.
type DebitWalletCommand struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// CreditWalletCommand credits the receiver's wallet.
type CreditWalletCommand struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// RefundWalletCommand compensates the sender after a failed credit.
// It targets the customer, not the wallet, so the ledger re-resolves
// the customer's wallet at refund time.
type RefundWalletCommand struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// WalletDebitedEvent confirms a successful debit.
type WalletDebitedEvent struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	Balance       string `json:"balance"`
}

// WalletDebitFailedEvent reports a definitive debit failure.
type WalletDebitFailedEvent struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	Reason        string `json:"reason"`
}

// WalletCreditedEvent confirms a successful credit.
type WalletCreditedEvent struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	Balance       string `json:"balance"`
}

// WalletCreditFailedEvent reports a definitive credit failure.
type WalletCreditFailedEvent struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	Reason        string `json:"reason"`
}

// SenderRefundedEvent confirms compensation completed.
type SenderRefundedEvent struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
}

// RefundFailedEvent reports that compensation itself failed
// definitively. The saga escalates instead of retrying forever.
type RefundFailedEvent struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	Reason        string `json:"reason"`
}

// TransferExpiredEvent fires when the scheduled timeout token elapses
// before a definitive response arrives.
type TransferExpiredEvent struct {
	CorrelationID string `json:"correlation_id"`
	TokenID       string `json:"token_id"`
}

// TransferOutcomeEvent is published for external observers when a
// saga reaches a terminal state.
type TransferOutcomeEvent struct {
	CorrelationID string    `json:"correlation_id"`
	State         SagaState `json:"state"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}
