package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paymesh/transfersaga/internal/adapter/http/dto"
	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

type walletServiceStub struct {
	createFn   func(ctx context.Context, input usecase.CreateWalletInput) (*domain.Wallet, error)
	getFn      func(ctx context.Context, id string) (*domain.Wallet, error)
	freezeFn   func(ctx context.Context, walletID string) (*domain.Wallet, error)
	unfreezeFn func(ctx context.Context, walletID string) (*domain.Wallet, error)
	closeFn    func(ctx context.Context, walletID string) (*domain.Wallet, error)
}

func (s *walletServiceStub) CreateWallet(ctx context.Context, input usecase.CreateWalletInput) (*domain.Wallet, error) {
	return s.createFn(ctx, input)
}

func (s *walletServiceStub) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	return s.getFn(ctx, id)
}

func (s *walletServiceStub) Freeze(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return s.freezeFn(ctx, walletID)
}

func (s *walletServiceStub) Unfreeze(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return s.unfreezeFn(ctx, walletID)
}

func (s *walletServiceStub) Close(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return s.closeFn(ctx, walletID)
}

func activeWallet() *domain.Wallet {
	return &domain.Wallet{
		ID:               "w-1",
		CustomerID:       "cust-1",
		Balance:          domain.Money{Amount: decimal.NewFromInt(100), Currency: "TRY"},
		AvailableBalance: domain.Money{Amount: decimal.NewFromInt(100), Currency: "TRY"},
		IsActive:         true,
		Version:          1,
	}
}

func TestWalletHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateWalletInput

	h := NewWalletHandler(&walletServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateWalletInput) (*domain.Wallet, error) {
			captured = input
			return activeWallet(), nil
		},
	})

	body, _ := json.Marshal(dto.CreateWalletRequest{
		WalletID:       "w-1",
		CustomerID:     "cust-1",
		Currency:       "TRY",
		InitialBalance: decimal.NewFromInt(100),
	})

	req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	if captured.CustomerID != "cust-1" || captured.Currency != "TRY" {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.WalletResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "w-1" || !resp.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected wallet response: %+v", resp)
	}
}

func TestWalletHandler_Create_InvalidCurrency(t *testing.T) {
	h := NewWalletHandler(&walletServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateWalletInput) (*domain.Wallet, error) {
			return nil, domain.ErrInvalidCurrency
		},
	})

	body, _ := json.Marshal(dto.CreateWalletRequest{WalletID: "w-1", CustomerID: "cust-1", Currency: "XXX"})
	req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWalletHandler_Get_NotFound(t *testing.T) {
	h := NewWalletHandler(&walletServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Wallet, error) {
			return nil, domain.ErrWalletNotFound
		},
	})

	req := chiRequest(http.MethodGet, "/wallets/w-unknown", "id", "w-unknown")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWalletHandler_Freeze_Success(t *testing.T) {
	h := NewWalletHandler(&walletServiceStub{
		freezeFn: func(ctx context.Context, walletID string) (*domain.Wallet, error) {
			w := activeWallet()
			w.IsFrozen = true
			return w, nil
		},
	})

	req := chiRequest(http.MethodPost, "/wallets/w-1/freeze", "id", "w-1")
	rec := httptest.NewRecorder()

	h.Freeze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.WalletResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.IsFrozen {
		t.Fatalf("expected frozen wallet in response")
	}
}

func TestWalletHandler_Close_AlreadyClosed(t *testing.T) {
	h := NewWalletHandler(&walletServiceStub{
		closeFn: func(ctx context.Context, walletID string) (*domain.Wallet, error) {
			return nil, domain.ErrWalletClosed
		},
	})

	req := chiRequest(http.MethodPost, "/wallets/w-1/close", "id", "w-1")
	rec := httptest.NewRecorder()

	h.Close(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
