package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paymesh/transfersaga/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "wallet not found", err: domain.ErrWalletNotFound, expected: http.StatusNotFound},
		{name: "saga not found", err: domain.ErrSagaNotFound, expected: http.StatusNotFound},
		{name: "saga already exists", err: domain.ErrSagaAlreadyExists, expected: http.StatusConflict},
		{name: "concurrent modification", err: domain.ErrConcurrentModification, expected: http.StatusConflict},
		{name: "wallet frozen", err: domain.ErrWalletFrozen, expected: http.StatusUnprocessableEntity},
		{name: "insufficient funds", err: domain.ErrInsufficientFunds, expected: http.StatusUnprocessableEntity},
		{name: "same wallet", err: domain.ErrSameWallet, expected: http.StatusBadRequest},
		{name: "same customer", err: domain.ErrSameCustomer, expected: http.StatusBadRequest},
		{name: "invalid currency", err: domain.ErrInvalidCurrency, expected: http.StatusBadRequest},
		{name: "amount too small", err: domain.ErrAmountTooSmall, expected: http.StatusBadRequest},
		{name: "invalid ip", err: domain.ErrInvalidIPAddress, expected: http.StatusBadRequest},
		{name: "wrapped sentinel", err: fmt.Errorf("starting transfer: %w", domain.ErrAmountTooLarge), expected: http.StatusBadRequest},
		{name: "unknown error", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapDomainError(tc.err); got != tc.expected {
				t.Fatalf("mapDomainError(%v) = %d, expected %d", tc.err, got, tc.expected)
			}
		})
	}
}

func TestParseIntQuery(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		key      string
		fallback int
		expected int
	}{
		{name: "present", url: "/rules?limit=25", key: "limit", fallback: 50, expected: 25},
		{name: "missing", url: "/rules", key: "limit", fallback: 50, expected: 50},
		{name: "not a number", url: "/rules?limit=abc", key: "limit", fallback: 50, expected: 50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if got := parseIntQuery(req, tc.key, tc.fallback); got != tc.expected {
				t.Fatalf("parseIntQuery = %d, expected %d", got, tc.expected)
			}
		})
	}
}
