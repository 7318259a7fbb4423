package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
	"github.com/paymesh/transfersaga/internal/usecase/mocks"
)

type ledgerFixture struct {
	uc         *usecase.LedgerUseCase
	walletRepo *mocks.MockWalletRepository
	outbox     *mocks.MockOutboxRepository
	inbox      *mocks.MockInboxRepository
}

func newLedgerFixture() *ledgerFixture {
	walletRepo := mocks.NewMockWalletRepository()
	outbox := mocks.NewMockOutboxRepository()
	inbox := mocks.NewMockInboxRepository()

	uc := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(),
		walletRepo,
		outbox,
		inbox,
		mocks.NewMockIDGenerator(),
		mocks.NewMockRetrier(),
		nil,
	)

	return &ledgerFixture{uc: uc, walletRepo: walletRepo, outbox: outbox, inbox: inbox}
}

func seedWallet(f *ledgerFixture, id, customerID, balance string) {
	f.walletRepo.Seed(&domain.Wallet{
		ID:               id,
		CustomerID:       customerID,
		Balance:          domain.MustMoney(balance, "TRY"),
		AvailableBalance: domain.MustMoney(balance, "TRY"),
		IsActive:         true,
		Version:          1,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	})
}

func TestLedgerUseCase_HandleDebitCommand(t *testing.T) {
	cmd := domain.DebitWalletCommand{
		CorrelationID: "corr-1",
		TransactionID: "tx-1",
		WalletID:      "w-1",
		Amount:        "60",
		Currency:      "TRY",
	}

	t.Run("debits wallet and emits WalletDebited", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wallet := f.walletRepo.Stored("w-1")
		if got := wallet.Balance.Amount.String(); got != "40" {
			t.Errorf("balance = %s, want 40", got)
		}
		if wallet.Version != 2 {
			t.Errorf("version = %d, want 2", wallet.Version)
		}
		if wallet.LastTransactionID == nil || *wallet.LastTransactionID != "tx-1" {
			t.Errorf("last transaction id not recorded")
		}

		events := f.outbox.ByRoutingKey(domain.RouteWalletDebited)
		if len(events) != 1 {
			t.Fatalf("debited events = %d, want 1", len(events))
		}

		var event domain.WalletDebitedEvent
		if err := json.Unmarshal(events[0].Payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Balance != "40" {
			t.Errorf("event balance = %s, want 40", event.Balance)
		}
	})

	t.Run("redelivered message id is dropped by inbox", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("second delivery: %v", err)
		}

		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "40" {
			t.Errorf("balance = %s, want 40 after duplicate delivery", got)
		}
		if n := len(f.outbox.ByRoutingKey(domain.RouteWalletDebited)); n != 1 {
			t.Errorf("debited events = %d, want 1", n)
		}
	})

	t.Run("repeated transaction id reports success without re-applying", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		// New message id, same transaction id: the inbox does not
		// catch it but the wallet's duplicate guard must.
		if err := f.uc.HandleDebitCommand(context.Background(), "msg-2", cmd); err != nil {
			t.Fatalf("second delivery: %v", err)
		}

		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "40" {
			t.Errorf("balance = %s, want 40", got)
		}
		if n := len(f.outbox.ByRoutingKey(domain.RouteWalletDebited)); n != 2 {
			t.Errorf("debited events = %d, want 2 (replay re-reports success)", n)
		}
	})

	t.Run("insufficient funds emits WalletDebitFailed", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "10")

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "10" {
			t.Errorf("balance = %s, want untouched 10", got)
		}

		events := f.outbox.ByRoutingKey(domain.RouteWalletDebitFailed)
		if len(events) != 1 {
			t.Fatalf("failed events = %d, want 1", len(events))
		}

		var event domain.WalletDebitFailedEvent
		if err := json.Unmarshal(events[0].Payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Reason != domain.ErrInsufficientFunds.Error() {
			t.Errorf("reason = %q", event.Reason)
		}
	})

	t.Run("frozen wallet rejects debit", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")
		w := f.walletRepo.Stored("w-1")
		w.IsFrozen = true
		f.walletRepo.Seed(w)

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n := len(f.outbox.ByRoutingKey(domain.RouteWalletDebitFailed)); n != 1 {
			t.Errorf("failed events = %d, want 1", n)
		}
	})

	t.Run("unknown wallet emits WalletDebitFailed", func(t *testing.T) {
		f := newLedgerFixture()

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n := len(f.outbox.ByRoutingKey(domain.RouteWalletDebitFailed)); n != 1 {
			t.Errorf("failed events = %d, want 1", n)
		}
	})

	t.Run("malformed amount emits WalletDebitFailed", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		bad := cmd
		bad.Amount = "sixty"

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", bad); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n := len(f.outbox.ByRoutingKey(domain.RouteWalletDebitFailed)); n != 1 {
			t.Errorf("failed events = %d, want 1", n)
		}
		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "100" {
			t.Errorf("balance = %s, want untouched 100", got)
		}
	})

	t.Run("version conflict is replayed until it wins", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		attempts := 0
		f.walletRepo.UpdateFunc = func(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet, expectedVersion int64) error {
			attempts++
			if attempts == 1 {
				return domain.ErrConcurrentModification
			}
			wallet.Version = expectedVersion + 1
			f.walletRepo.Seed(wallet)
			return nil
		}

		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "40" {
			t.Errorf("balance = %s, want 40", got)
		}

		// The rolled-back first attempt must not count as processed,
		// but the committed second one must: a broker redelivery of
		// the same message id is now a no-op.
		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error on redelivery: %v", err)
		}
		if attempts != 2 {
			t.Errorf("attempts after redelivery = %d, want 2", attempts)
		}
	})
}

func TestLedgerUseCase_HandleCreditCommand(t *testing.T) {
	cmd := domain.CreditWalletCommand{
		CorrelationID: "corr-1",
		TransactionID: "tx-1",
		WalletID:      "w-2",
		Amount:        "60",
		Currency:      "TRY",
	}

	t.Run("credits wallet and emits WalletCredited", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-2", "cust-2", "40")

		if err := f.uc.HandleCreditCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := f.walletRepo.Stored("w-2").Balance.Amount.String(); got != "100" {
			t.Errorf("balance = %s, want 100", got)
		}
		if n := len(f.outbox.ByRoutingKey(domain.RouteWalletCredited)); n != 1 {
			t.Errorf("credited events = %d, want 1", n)
		}
	})

	t.Run("frozen wallet still accepts credit", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-2", "cust-2", "40")
		w := f.walletRepo.Stored("w-2")
		w.IsFrozen = true
		f.walletRepo.Seed(w)

		if err := f.uc.HandleCreditCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := f.walletRepo.Stored("w-2").Balance.Amount.String(); got != "100" {
			t.Errorf("balance = %s, want 100", got)
		}
	})

	t.Run("closed wallet emits WalletCreditFailed", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-2", "cust-2", "40")
		w := f.walletRepo.Stored("w-2")
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		f.walletRepo.Seed(w)

		if err := f.uc.HandleCreditCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events := f.outbox.ByRoutingKey(domain.RouteWalletCreditFailed)
		if len(events) != 1 {
			t.Fatalf("failed events = %d, want 1", len(events))
		}

		var event domain.WalletCreditFailedEvent
		if err := json.Unmarshal(events[0].Payload, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Reason != domain.ErrWalletClosed.Error() {
			t.Errorf("reason = %q", event.Reason)
		}
	})
}

func TestLedgerUseCase_HandleRefundCommand(t *testing.T) {
	cmd := domain.RefundWalletCommand{
		CorrelationID: "corr-1",
		TransactionID: "tx-1-refund",
		CustomerID:    "cust-1",
		Amount:        "60",
		Currency:      "TRY",
	}

	t.Run("refund resolves wallet by customer and credits it", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "40")

		if err := f.uc.HandleRefundCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "100" {
			t.Errorf("balance = %s, want 100", got)
		}
		if n := len(f.outbox.ByRoutingKey(domain.RouteSenderRefunded)); n != 1 {
			t.Errorf("refunded events = %d, want 1", n)
		}
	})

	t.Run("refund after debit uses its own transaction id", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		debit := domain.DebitWalletCommand{
			CorrelationID: "corr-1",
			TransactionID: "tx-1",
			WalletID:      "w-1",
			Amount:        "60",
			Currency:      "TRY",
		}
		if err := f.uc.HandleDebitCommand(context.Background(), "msg-1", debit); err != nil {
			t.Fatalf("debit: %v", err)
		}
		if err := f.uc.HandleRefundCommand(context.Background(), "msg-2", cmd); err != nil {
			t.Fatalf("refund: %v", err)
		}

		// The refund must actually apply, not be swallowed by the
		// wallet's duplicate guard for the earlier debit.
		if got := f.walletRepo.Stored("w-1").Balance.Amount.String(); got != "100" {
			t.Errorf("balance = %s, want 100 after debit and refund", got)
		}
	})

	t.Run("unknown customer emits RefundFailed", func(t *testing.T) {
		f := newLedgerFixture()

		if err := f.uc.HandleRefundCommand(context.Background(), "msg-1", cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		events := f.outbox.ByRoutingKey(domain.RouteRefundFailed)
		if len(events) != 1 {
			t.Fatalf("refund failed events = %d, want 1", len(events))
		}
	})
}

func TestLedgerUseCase_AdminTransitions(t *testing.T) {
	t.Run("freeze then unfreeze", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		w, err := f.uc.Freeze(context.Background(), "w-1")
		if err != nil {
			t.Fatalf("freeze: %v", err)
		}
		if !w.IsFrozen {
			t.Error("wallet not frozen")
		}

		w, err = f.uc.Unfreeze(context.Background(), "w-1")
		if err != nil {
			t.Fatalf("unfreeze: %v", err)
		}
		if w.IsFrozen {
			t.Error("wallet still frozen")
		}
	})

	t.Run("close is terminal", func(t *testing.T) {
		f := newLedgerFixture()
		seedWallet(f, "w-1", "cust-1", "100")

		if _, err := f.uc.Close(context.Background(), "w-1"); err != nil {
			t.Fatalf("close: %v", err)
		}

		if _, err := f.uc.Freeze(context.Background(), "w-1"); !errors.Is(err, domain.ErrWalletClosed) {
			t.Errorf("freeze after close = %v, want ErrWalletClosed", err)
		}
	})

	t.Run("freeze unknown wallet", func(t *testing.T) {
		f := newLedgerFixture()

		if _, err := f.uc.Freeze(context.Background(), "missing"); !errors.Is(err, domain.ErrWalletNotFound) {
			t.Errorf("err = %v, want ErrWalletNotFound", err)
		}
	})
}

func TestLedgerUseCase_CreateWallet(t *testing.T) {
	f := newLedgerFixture()

	w, err := f.uc.CreateWallet(context.Background(), usecase.CreateWalletInput{
		CustomerID:     "cust-1",
		Currency:       "TRY",
		InitialBalance: domain.MustMoney("250", "TRY").Amount,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.ID == "" {
		t.Error("wallet id not generated")
	}
	if !w.IsActive {
		t.Error("wallet not active")
	}
	if got := w.AvailableBalance.Amount.String(); got != "250" {
		t.Errorf("available balance = %s, want 250", got)
	}
}
