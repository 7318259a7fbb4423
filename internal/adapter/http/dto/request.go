package dto

import (
	"github.com/shopspring/decimal"

	"github.com/paymesh/transfersaga/internal/usecase"
)

// StartTransferRequest represents a request to start a money transfer.
// The caller supplies the correlation ID; resubmitting the same ID is
// a safe retry, not a second transfer.
type StartTransferRequest struct {
	CorrelationID      string          `json:"correlation_id"`
	SenderCustomerID   string          `json:"sender_customer_id"`
	ReceiverCustomerID string          `json:"receiver_customer_id"`
	SenderWalletID     string          `json:"sender_wallet_id"`
	ReceiverWalletID   string          `json:"receiver_wallet_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	ClientIPAddress    string          `json:"client_ip_address,omitempty"`
}

// ToUseCaseInput converts the request to a use case input.
func (r *StartTransferRequest) ToUseCaseInput() usecase.StartTransferInput {
	return usecase.StartTransferInput{
		CorrelationID:      r.CorrelationID,
		SenderCustomerID:   r.SenderCustomerID,
		ReceiverCustomerID: r.ReceiverCustomerID,
		SenderWalletID:     r.SenderWalletID,
		ReceiverWalletID:   r.ReceiverWalletID,
		Amount:             r.Amount,
		Currency:           r.Currency,
		ClientIPAddress:    r.ClientIPAddress,
	}
}

// CreateWalletRequest represents a request to provision a wallet.
type CreateWalletRequest struct {
	WalletID       string          `json:"wallet_id"`
	CustomerID     string          `json:"customer_id"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// ToUseCaseInput converts the request to a use case input.
func (r *CreateWalletRequest) ToUseCaseInput() usecase.CreateWalletInput {
	return usecase.CreateWalletInput{
		WalletID:       r.WalletID,
		CustomerID:     r.CustomerID,
		Currency:       r.Currency,
		InitialBalance: r.InitialBalance,
	}
}
