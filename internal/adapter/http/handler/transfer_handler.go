package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paymesh/transfersaga/internal/adapter/http/dto"
	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// TransferService is the saga-facing surface the handler needs.
type TransferService interface {
	StartTransfer(ctx context.Context, input usecase.StartTransferInput) (*domain.TransferSaga, error)
	GetTransfer(ctx context.Context, correlationID string) (*domain.TransferSaga, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transfers TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transfers TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// Start accepts a transfer and kicks off its saga. The response is
// 202 because the transfer outcome is decided asynchronously; clients
// poll Get or subscribe to the outcome events.
func (h *TransferHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	saga, err := h.transfers.StartTransfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to start transfer", err.Error())

		return
	}

	writeJSON(w, http.StatusAccepted, dto.TransferFromDomain(saga))
}

// Get retrieves a transfer by correlation ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing correlation ID", "")
		return
	}

	saga, err := h.transfers.GetTransfer(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transfer", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(saga))
}
