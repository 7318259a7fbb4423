package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		expectError bool
	}{
		{"TRY", "TRY", false},
		{"try", "TRY", false},
		{" usd ", "USD", false},
		{"XXX", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeCurrency(tt.input)

			if tt.expectError {
				if !errors.Is(err, ErrInvalidCurrency) {
					t.Errorf("expected ErrInvalidCurrency, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestValidateTransferAmount(t *testing.T) {
	if err := ValidateTransferAmount(decimal.NewFromInt(40)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := ValidateTransferAmount(decimal.NewFromFloat(0.001)); !errors.Is(err, ErrAmountTooSmall) {
		t.Errorf("expected ErrAmountTooSmall, got %v", err)
	}

	huge, _ := decimal.NewFromString("2000000000")
	if err := ValidateTransferAmount(huge); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidateCorrelationID(t *testing.T) {
	if err := ValidateCorrelationID("0b6cb562-02e0-4b23-b824-61e86f8doops"); err == nil {
		t.Error("expected error for malformed uuid")
	}

	if err := ValidateCorrelationID("0b6cb562-02e0-4b23-b824-61e86f8d1a44"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateIPAddress(t *testing.T) {
	tests := []struct {
		ip          string
		expectError bool
	}{
		{"", false},
		{"192.168.1.10", false},
		{"2001:db8::1", false},
		{"999.1.1.1", true},
		{"not-an-ip", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := ValidateIPAddress(tt.ip)
			if tt.expectError && err == nil {
				t.Error("expected error")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
