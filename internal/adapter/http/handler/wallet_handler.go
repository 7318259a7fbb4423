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

// WalletService is the ledger-facing surface the handler needs.
type WalletService interface {
	CreateWallet(ctx context.Context, input usecase.CreateWalletInput) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id string) (*domain.Wallet, error)
	Freeze(ctx context.Context, walletID string) (*domain.Wallet, error)
	Unfreeze(ctx context.Context, walletID string) (*domain.Wallet, error)
	Close(ctx context.Context, walletID string) (*domain.Wallet, error)
}

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	wallets WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Create provisions a new wallet.
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	wallet, err := h.wallets.CreateWallet(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create wallet", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.WalletFromDomain(wallet))
}

// Get retrieves a wallet by ID.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get wallet", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// Freeze suspends mutating operations on a wallet. Credits are still
// accepted while frozen.
func (h *WalletHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.wallets.Freeze, "failed to freeze wallet")
}

// Unfreeze lifts a freeze.
func (h *WalletHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.wallets.Unfreeze, "failed to unfreeze wallet")
}

// Close permanently closes a wallet.
func (h *WalletHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.wallets.Close, "failed to close wallet")
}

func (h *WalletHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, walletID string) (*domain.Wallet, error),
	errMessage string,
) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	wallet, err := op(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, errMessage, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}
