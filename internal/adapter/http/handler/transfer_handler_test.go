package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/paymesh/transfersaga/internal/adapter/http/dto"
	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

const testCorrelationID = "5f9c2d1e-8b7a-4c3d-9e0f-1a2b3c4d5e6f"

type transferServiceStub struct {
	startFn func(ctx context.Context, input usecase.StartTransferInput) (*domain.TransferSaga, error)
	getFn   func(ctx context.Context, correlationID string) (*domain.TransferSaga, error)
}

func (s *transferServiceStub) StartTransfer(ctx context.Context, input usecase.StartTransferInput) (*domain.TransferSaga, error) {
	return s.startFn(ctx, input)
}

func (s *transferServiceStub) GetTransfer(ctx context.Context, correlationID string) (*domain.TransferSaga, error) {
	return s.getFn(ctx, correlationID)
}

func pendingSaga() *domain.TransferSaga {
	return &domain.TransferSaga{
		CorrelationID:      testCorrelationID,
		CurrentState:       domain.SagaStatePending,
		SenderCustomerID:   "cust-1",
		ReceiverCustomerID: "cust-2",
		SenderWalletID:     "w-1",
		ReceiverWalletID:   "w-2",
		Amount:             domain.Money{Amount: decimal.NewFromInt(60), Currency: "TRY"},
	}
}

func TestTransferHandler_Start_Success(t *testing.T) {
	var captured usecase.StartTransferInput

	h := NewTransferHandler(&transferServiceStub{
		startFn: func(ctx context.Context, input usecase.StartTransferInput) (*domain.TransferSaga, error) {
			captured = input
			return pendingSaga(), nil
		},
	})

	body, _ := json.Marshal(dto.StartTransferRequest{
		CorrelationID:      testCorrelationID,
		SenderCustomerID:   "cust-1",
		ReceiverCustomerID: "cust-2",
		SenderWalletID:     "w-1",
		ReceiverWalletID:   "w-2",
		Amount:             decimal.NewFromInt(60),
		Currency:           "TRY",
		ClientIPAddress:    "203.0.113.7",
	})

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Start(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	if captured.CorrelationID != testCorrelationID || captured.SenderWalletID != "w-1" {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != string(domain.SagaStatePending) {
		t.Fatalf("expected pending state, got %s", resp.State)
	}
}

func TestTransferHandler_Start_InvalidBody(t *testing.T) {
	h := NewTransferHandler(&transferServiceStub{
		startFn: func(ctx context.Context, input usecase.StartTransferInput) (*domain.TransferSaga, error) {
			t.Fatal("StartTransfer should not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	h.Start(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransferHandler_Start_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "duplicate correlation id", err: domain.ErrSagaAlreadyExists, expected: http.StatusConflict},
		{name: "same wallet", err: domain.ErrSameWallet, expected: http.StatusBadRequest},
		{name: "amount too large", err: domain.ErrAmountTooLarge, expected: http.StatusBadRequest},
		{name: "invalid correlation id", err: domain.ErrInvalidCorrelationID, expected: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTransferHandler(&transferServiceStub{
				startFn: func(ctx context.Context, input usecase.StartTransferInput) (*domain.TransferSaga, error) {
					return nil, tc.err
				},
			})

			body, _ := json.Marshal(dto.StartTransferRequest{CorrelationID: testCorrelationID})
			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			h.Start(rec, req)

			if rec.Code != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, rec.Code)
			}
		})
	}
}

func TestTransferHandler_Get_Success(t *testing.T) {
	saga := pendingSaga()
	saga.CurrentState = domain.SagaStateCompleted

	h := NewTransferHandler(&transferServiceStub{
		getFn: func(ctx context.Context, correlationID string) (*domain.TransferSaga, error) {
			if correlationID != testCorrelationID {
				t.Fatalf("unexpected correlation id: %s", correlationID)
			}
			return saga, nil
		},
	})

	req := chiRequest(http.MethodGet, "/transfers/"+testCorrelationID, "id", testCorrelationID)
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != string(domain.SagaStateCompleted) {
		t.Fatalf("expected completed state, got %s", resp.State)
	}
}

func TestTransferHandler_Get_NotFound(t *testing.T) {
	h := NewTransferHandler(&transferServiceStub{
		getFn: func(ctx context.Context, correlationID string) (*domain.TransferSaga, error) {
			return nil, domain.ErrSagaNotFound
		},
	})

	req := chiRequest(http.MethodGet, "/transfers/"+testCorrelationID, "id", testCorrelationID)
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// chiRequest builds a request carrying a chi URL parameter.
func chiRequest(method, target, paramKey, paramValue string) *http.Request {
	req := httptest.NewRequest(method, target, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(paramKey, paramValue)

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
