package domain

import "errors"

var (
	// Money errors
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrCurrencyMismatch = errors.New("cannot operate on different currencies")
	ErrInvalidAmount    = errors.New("amount must be positive")

	// Wallet errors
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletNotActive   = errors.New("wallet is not active")
	ErrWalletFrozen      = errors.New("wallet is frozen")
	ErrWalletClosed      = errors.New("wallet is closed")
	ErrWalletDeleted     = errors.New("wallet is deleted")
	ErrInsufficientFunds = errors.New("insufficient available balance")

	// Saga errors
	ErrSagaNotFound      = errors.New("transfer saga not found")
	ErrSagaAlreadyExists = errors.New("transfer saga already exists for correlation id")
	ErrSameWallet        = errors.New("cannot transfer to same wallet")
	ErrSameCustomer      = errors.New("cannot transfer to same customer")

	// ErrStaleSagaEvent marks an event that does not match the saga's
	// expected next step; consumers acknowledge and discard it.
	ErrStaleSagaEvent = errors.New("event does not apply to current saga state")

	// Fraud errors
	ErrRuleNotFound = errors.New("fraud rule not found")

	// ErrConcurrentModification signals an optimistic version conflict.
	// Retryable: reload the aggregate and replay the operation.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Messaging errors
	ErrDuplicateMessage = errors.New("message already processed by consumer")
)
