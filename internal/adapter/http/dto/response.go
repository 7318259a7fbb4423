package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paymesh/transfersaga/internal/domain"
)

// TransferResponse represents a transfer saga in API responses.
type TransferResponse struct {
	CorrelationID      string          `json:"correlation_id"`
	State              string          `json:"state"`
	SenderCustomerID   string          `json:"sender_customer_id"`
	ReceiverCustomerID string          `json:"receiver_customer_id"`
	SenderWalletID     string          `json:"sender_wallet_id"`
	ReceiverWalletID   string          `json:"receiver_wallet_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	FailureReason      *string         `json:"failure_reason,omitempty"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TransferFromDomain converts a domain saga to a response.
func TransferFromDomain(s *domain.TransferSaga) *TransferResponse {
	return &TransferResponse{
		CorrelationID:      s.CorrelationID,
		State:              string(s.CurrentState),
		SenderCustomerID:   s.SenderCustomerID,
		ReceiverCustomerID: s.ReceiverCustomerID,
		SenderWalletID:     s.SenderWalletID,
		ReceiverWalletID:   s.ReceiverWalletID,
		Amount:             s.Amount.Amount,
		Currency:           s.Amount.Currency,
		FailureReason:      s.FailureReason,
		ExpiresAt:          s.ExpiresAt,
		CreatedAt:          s.CreatedAt,
		CompletedAt:        s.CompletedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Currency         string          `json:"currency"`
	IsActive         bool            `json:"is_active"`
	IsFrozen         bool            `json:"is_frozen"`
	IsClosed         bool            `json:"is_closed"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// WalletFromDomain converts a domain wallet to a response.
func WalletFromDomain(w *domain.Wallet) *WalletResponse {
	return &WalletResponse{
		ID:               w.ID,
		CustomerID:       w.CustomerID,
		Balance:          w.Balance.Amount,
		AvailableBalance: w.AvailableBalance.Amount,
		Currency:         w.Balance.Currency,
		IsActive:         w.IsActive,
		IsFrozen:         w.IsFrozen,
		IsClosed:         w.IsClosed,
		Version:          w.Version,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

// FraudRuleResponse represents a fraud rule in API responses.
type FraudRuleResponse struct {
	ID                string          `json:"id"`
	Kind              string          `json:"kind"`
	Priority          int             `json:"priority"`
	IsActive          bool            `json:"is_active"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	BlockedIP         string          `json:"blocked_ip,omitempty"`
	StartHour         int             `json:"start_hour,omitempty"`
	EndHour           int             `json:"end_hour,omitempty"`
	MinAccountAgeDays int             `json:"min_account_age_days,omitempty"`
	RequiredKYCLevel  int             `json:"required_kyc_level,omitempty"`
	MaxAllowedAmount  decimal.Decimal `json:"max_allowed_amount,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// FraudRuleFromDomain converts a domain fraud rule to a response.
func FraudRuleFromDomain(r *domain.FraudRule) *FraudRuleResponse {
	return &FraudRuleResponse{
		ID:                r.ID,
		Kind:              string(r.Kind),
		Priority:          r.Priority,
		IsActive:          r.IsActive,
		ExpiresAt:         r.ExpiresAt,
		BlockedIP:         r.BlockedIP,
		StartHour:         r.StartHour,
		EndHour:           r.EndHour,
		MinAccountAgeDays: r.MinAccountAgeDays,
		RequiredKYCLevel:  r.RequiredKYCLevel,
		MaxAllowedAmount:  r.MaxAllowedAmount,
		CreatedAt:         r.CreatedAt,
	}
}

// FraudRulesFromDomain converts domain fraud rules to responses.
func FraudRulesFromDomain(rules []*domain.FraudRule) []*FraudRuleResponse {
	result := make([]*FraudRuleResponse, len(rules))
	for i, r := range rules {
		result[i] = FraudRuleFromDomain(r)
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
