package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind identifies one of the fraud rule evaluators.
type RuleKind string

const (
	RuleKindBlockedIP  RuleKind = "blocked_ip"
	RuleKindRiskyHour  RuleKind = "risky_hour"
	RuleKindAccountAge RuleKind = "account_age"
	RuleKindKYCLevel   RuleKind = "kyc_level"
)

// FraudRule is a versioned administrative record configuring one rule
// instance. Rules are mutated out of band and read-only during
// evaluation. Parameter fields are populated per kind; the rest stay
// at their zero value.
type FraudRule struct {
	ID        string
	Kind      RuleKind
	Priority  int
	IsActive  bool
	ExpiresAt *time.Time
	Version   int

	// blocked_ip
	BlockedIP string

	// risky_hour: UTC window, wraps midnight when StartHour > EndHour
	StartHour int
	EndHour   int

	// account_age / kyc_level thresholds
	MinAccountAgeDays int
	RequiredKYCLevel  int
	MaxAllowedAmount  decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Applies reports whether the rule participates in evaluation at now.
func (r *FraudRule) Applies(now time.Time) bool {
	if !r.IsActive {
		return false
	}

	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return false
	}

	return true
}

// InWindow reports whether hour falls in a risky_hour rule's window.
// A window with StartHour > EndHour wraps midnight, e.g. start=22
// end=6 covers 22:00 through 06:59.
func (r *FraudRule) InWindow(hour int) bool {
	if r.StartHour <= r.EndHour {
		return hour >= r.StartHour && hour <= r.EndHour
	}

	return hour >= r.StartHour || hour <= r.EndHour
}

// VerificationData is the sender profile fetched from the external
// customer collaborator for age and KYC checks.
type VerificationData struct {
	CustomerID       string    `json:"customer_id"`
	KYCLevel         int       `json:"kyc_level"`
	AccountCreatedAt time.Time `json:"account_created_at"`
}

// FraudVerdict is the engine's single allow/deny answer.
type FraudVerdict struct {
	Approved bool
	Reason   string
}

// FraudRequest is the input to one engine evaluation.
type FraudRequest struct {
	CorrelationID      string
	SenderCustomerID   string
	ReceiverCustomerID string
	Amount             Money
	ClientIPAddress    string
}
