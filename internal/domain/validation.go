package domain

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency      = errors.New("invalid currency code")
	ErrAmountTooLarge       = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall       = errors.New("amount below minimum allowed")
	ErrInvalidCorrelationID = errors.New("invalid correlation id")
	ErrInvalidIPAddress     = errors.New("invalid ip address")
	ErrInvalidIDFormat      = errors.New("invalid id format")
)

// Validation constants
const (
	MaxTransferAmount = "1000000000" // 1 billion
	MinTransferAmount = "0.01"
	MaxIDLength       = 64
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
}

// NormalizeCurrency upper-cases and validates a currency code.
func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !validCurrencies[code] {
		return "", fmt.Errorf("%w: %s", ErrInvalidCurrency, currency)
	}

	return code, nil
}

// ValidateTransferAmount checks the amount against transfer bounds.
func ValidateTransferAmount(amount decimal.Decimal) error {
	min, _ := decimal.NewFromString(MinTransferAmount)
	max, _ := decimal.NewFromString(MaxTransferAmount)

	if amount.LessThan(min) {
		return fmt.Errorf("%w: minimum is %s", ErrAmountTooSmall, MinTransferAmount)
	}

	if amount.GreaterThan(max) {
		return fmt.Errorf("%w: maximum is %s", ErrAmountTooLarge, MaxTransferAmount)
	}

	return nil
}

// ValidateCorrelationID checks the caller-generated transfer id.
func ValidateCorrelationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCorrelationID, id)
	}

	return nil
}

// ValidateIPAddress checks an optional client ip. Empty is allowed;
// the BlockedIp rule simply never matches.
func ValidateIPAddress(ip string) error {
	if ip == "" {
		return nil
	}

	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: %s", ErrInvalidIPAddress, ip)
	}

	return nil
}

// ValidateID checks an opaque identifier (customer or wallet id).
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return ErrInvalidIDFormat
	}

	return nil
}
