package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/infrastructure/metrics"
)

// LedgerUseCase owns wallet state. Every mutating command carries a
// transaction id; applying the command, recording the inbox entry and
// writing the outcome event to the outbox happen in one database
// transaction, so a crash at any point leaves a replayable message
// rather than a half-applied effect.
type LedgerUseCase struct {
	txManager  TransactionManager
	walletRepo WalletRepository
	outboxRepo OutboxRepository
	inboxRepo  InboxRepository
	idGen      IDGenerator
	retrier    Retrier
	metrics    *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	walletRepo WalletRepository,
	outboxRepo OutboxRepository,
	inboxRepo InboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:  txManager,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		inboxRepo:  inboxRepo,
		idGen:      idGen,
		retrier:    retrier,
		metrics:    metrics,
	}
}

// HandleDebitCommand processes a DebitWallet command. Business
// failures are definitive: they are reported back as a
// WalletDebitFailed event and never retried. Optimistic-concurrency
// conflicts roll the whole attempt back and replay it.
func (uc *LedgerUseCase) HandleDebitCommand(ctx context.Context, messageID string, cmd domain.DebitWalletCommand) error {
	amount, err := moneyFromWire(cmd.Amount, cmd.Currency)
	if err != nil {
		return uc.emitStandalone(ctx, messageID, cmd.CorrelationID, domain.RouteWalletDebitFailed, domain.WalletDebitFailedEvent{
			CorrelationID: cmd.CorrelationID,
			TransactionID: cmd.TransactionID,
			WalletID:      cmd.WalletID,
			Reason:        err.Error(),
		})
	}

	return uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		now := time.Now().UTC()

		if err := uc.inboxRepo.Record(txCtx, tx, ConsumerWalletLedger, messageID, now); err != nil {
			if errors.Is(err, domain.ErrDuplicateMessage) {
				uc.countDuplicate()
				return nil
			}

			return err
		}

		wallet, err := uc.walletRepo.GetByIDTx(txCtx, tx, cmd.WalletID)
		if err != nil {
			if errors.Is(err, domain.ErrWalletNotFound) {
				return uc.failDebit(txCtx, tx, cmd, err.Error(), now)
			}

			return err
		}

		// Duplicate-delivery guard: same transaction id means the
		// debit already applied; report success without re-applying.
		if wallet.IsDuplicate(cmd.TransactionID) {
			if err := uc.emit(txCtx, tx, cmd.CorrelationID, domain.RouteWalletDebited, domain.WalletDebitedEvent{
				CorrelationID: cmd.CorrelationID,
				TransactionID: cmd.TransactionID,
				WalletID:      wallet.ID,
				Balance:       wallet.Balance.Amount.String(),
			}, now); err != nil {
				return err
			}

			return tx.Commit(txCtx)
		}

		if err := wallet.ValidateDebit(amount); err != nil {
			return uc.failDebit(txCtx, tx, cmd, err.Error(), now)
		}

		expectedVersion := wallet.Version
		if err := wallet.ApplyDebit(amount, cmd.TransactionID, now); err != nil {
			return uc.failDebit(txCtx, tx, cmd, err.Error(), now)
		}

		if err := uc.walletRepo.Update(txCtx, tx, wallet, expectedVersion); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, cmd.CorrelationID, domain.RouteWalletDebited, domain.WalletDebitedEvent{
			CorrelationID: cmd.CorrelationID,
			TransactionID: cmd.TransactionID,
			WalletID:      wallet.ID,
			Balance:       wallet.Balance.Amount.String(),
		}, now); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		uc.countOp("debit", "success")

		return nil
	})
}

// HandleCreditCommand processes a CreditWallet command. Frozen
// wallets still accept credits; only closed and deleted wallets turn
// the command into a WalletCreditFailed event.
func (uc *LedgerUseCase) HandleCreditCommand(ctx context.Context, messageID string, cmd domain.CreditWalletCommand) error {
	amount, err := moneyFromWire(cmd.Amount, cmd.Currency)
	if err != nil {
		return uc.emitStandalone(ctx, messageID, cmd.CorrelationID, domain.RouteWalletCreditFailed, domain.WalletCreditFailedEvent{
			CorrelationID: cmd.CorrelationID,
			TransactionID: cmd.TransactionID,
			WalletID:      cmd.WalletID,
			Reason:        err.Error(),
		})
	}

	return uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		now := time.Now().UTC()

		if err := uc.inboxRepo.Record(txCtx, tx, ConsumerWalletLedger, messageID, now); err != nil {
			if errors.Is(err, domain.ErrDuplicateMessage) {
				uc.countDuplicate()
				return nil
			}

			return err
		}

		wallet, err := uc.walletRepo.GetByIDTx(txCtx, tx, cmd.WalletID)
		if err != nil {
			if errors.Is(err, domain.ErrWalletNotFound) {
				return uc.failCredit(txCtx, tx, cmd, err.Error(), now)
			}

			return err
		}

		if wallet.IsDuplicate(cmd.TransactionID) {
			if err := uc.emit(txCtx, tx, cmd.CorrelationID, domain.RouteWalletCredited, domain.WalletCreditedEvent{
				CorrelationID: cmd.CorrelationID,
				TransactionID: cmd.TransactionID,
				WalletID:      wallet.ID,
				Balance:       wallet.Balance.Amount.String(),
			}, now); err != nil {
				return err
			}

			return tx.Commit(txCtx)
		}

		if err := wallet.ValidateCredit(amount); err != nil {
			return uc.failCredit(txCtx, tx, cmd, err.Error(), now)
		}

		expectedVersion := wallet.Version
		if err := wallet.ApplyCredit(amount, cmd.TransactionID, now); err != nil {
			return uc.failCredit(txCtx, tx, cmd, err.Error(), now)
		}

		if err := uc.walletRepo.Update(txCtx, tx, wallet, expectedVersion); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, cmd.CorrelationID, domain.RouteWalletCredited, domain.WalletCreditedEvent{
			CorrelationID: cmd.CorrelationID,
			TransactionID: cmd.TransactionID,
			WalletID:      wallet.ID,
			Balance:       wallet.Balance.Amount.String(),
		}, now); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		uc.countOp("credit", "success")

		return nil
	})
}

// HandleRefundCommand compensates the sender after a failed credit.
// The refund targets the customer, re-resolving their wallet, and
// applies credit semantics: a frozen wallet still receives the
// refund. A definitive refund failure becomes a RefundFailed event,
// and the saga escalates instead of retrying forever.
func (uc *LedgerUseCase) HandleRefundCommand(ctx context.Context, messageID string, cmd domain.RefundWalletCommand) error {
	amount, err := moneyFromWire(cmd.Amount, cmd.Currency)
	if err != nil {
		return uc.emitStandalone(ctx, messageID, cmd.CorrelationID, domain.RouteRefundFailed, domain.RefundFailedEvent{
			CorrelationID: cmd.CorrelationID,
			TransactionID: cmd.TransactionID,
			CustomerID:    cmd.CustomerID,
			Reason:        err.Error(),
		})
	}

	return uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		now := time.Now().UTC()

		if err := uc.inboxRepo.Record(txCtx, tx, ConsumerWalletLedger, messageID, now); err != nil {
			if errors.Is(err, domain.ErrDuplicateMessage) {
				uc.countDuplicate()
				return nil
			}

			return err
		}

		wallet, err := uc.walletRepo.GetByCustomerIDTx(txCtx, tx, cmd.CustomerID)
		if err != nil {
			if errors.Is(err, domain.ErrWalletNotFound) {
				return uc.failRefund(txCtx, tx, cmd, err.Error(), now)
			}

			return err
		}

		if wallet.IsDuplicate(cmd.TransactionID) {
			if err := uc.emit(txCtx, tx, cmd.CorrelationID, domain.RouteSenderRefunded, domain.SenderRefundedEvent{
				CorrelationID: cmd.CorrelationID,
				TransactionID: cmd.TransactionID,
				CustomerID:    cmd.CustomerID,
			}, now); err != nil {
				return err
			}

			return tx.Commit(txCtx)
		}

		if err := wallet.ValidateCredit(amount); err != nil {
			return uc.failRefund(txCtx, tx, cmd, err.Error(), now)
		}

		expectedVersion := wallet.Version
		if err := wallet.ApplyCredit(amount, cmd.TransactionID, now); err != nil {
			return uc.failRefund(txCtx, tx, cmd, err.Error(), now)
		}

		if err := uc.walletRepo.Update(txCtx, tx, wallet, expectedVersion); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, cmd.CorrelationID, domain.RouteSenderRefunded, domain.SenderRefundedEvent{
			CorrelationID: cmd.CorrelationID,
			TransactionID: cmd.TransactionID,
			CustomerID:    cmd.CustomerID,
		}, now); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		uc.countOp("refund", "success")

		return nil
	})
}

// CreateWalletInput represents input for onboarding a wallet.
type CreateWalletInput struct {
	WalletID       string
	CustomerID     string
	Currency       string
	InitialBalance decimal.Decimal
}

// CreateWallet provisions a wallet when a customer is onboarded.
func (uc *LedgerUseCase) CreateWallet(ctx context.Context, input CreateWalletInput) (*domain.Wallet, error) {
	if err := domain.ValidateID(input.CustomerID); err != nil {
		return nil, err
	}

	balance, err := domain.NewMoney(input.InitialBalance, input.Currency)
	if err != nil {
		return nil, err
	}

	id := input.WalletID
	if id == "" {
		id = uc.idGen.Generate()
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:               id,
		CustomerID:       input.CustomerID,
		Balance:          balance,
		AvailableBalance: balance,
		IsActive:         true,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	return wallet, nil
}

// GetWallet retrieves a wallet by ID.
func (uc *LedgerUseCase) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	return uc.walletRepo.GetByID(ctx, id)
}

// Freeze blocks outgoing funds on a wallet.
func (uc *LedgerUseCase) Freeze(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return uc.adminTransition(ctx, walletID, func(w *domain.Wallet) error { return w.Freeze() })
}

// Unfreeze lifts a freeze.
func (uc *LedgerUseCase) Unfreeze(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return uc.adminTransition(ctx, walletID, func(w *domain.Wallet) error { return w.Unfreeze() })
}

// Close permanently closes a wallet.
func (uc *LedgerUseCase) Close(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return uc.adminTransition(ctx, walletID, func(w *domain.Wallet) error { return w.Close() })
}

func (uc *LedgerUseCase) adminTransition(ctx context.Context, walletID string, apply func(*domain.Wallet) error) (*domain.Wallet, error) {
	var result *domain.Wallet

	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		wallet, err := uc.walletRepo.GetByIDTx(txCtx, tx, walletID)
		if err != nil {
			return err
		}

		if err := apply(wallet); err != nil {
			return err
		}

		expectedVersion := wallet.Version
		wallet.UpdatedAt = time.Now().UTC()

		if err := uc.walletRepo.Update(txCtx, tx, wallet, expectedVersion); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = wallet

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *LedgerUseCase) failDebit(ctx context.Context, tx Transaction, cmd domain.DebitWalletCommand, reason string, now time.Time) error {
	if err := uc.emit(ctx, tx, cmd.CorrelationID, domain.RouteWalletDebitFailed, domain.WalletDebitFailedEvent{
		CorrelationID: cmd.CorrelationID,
		TransactionID: cmd.TransactionID,
		WalletID:      cmd.WalletID,
		Reason:        reason,
	}, now); err != nil {
		return err
	}

	uc.countOp("debit", "failed")

	return tx.Commit(ctx)
}

func (uc *LedgerUseCase) failCredit(ctx context.Context, tx Transaction, cmd domain.CreditWalletCommand, reason string, now time.Time) error {
	if err := uc.emit(ctx, tx, cmd.CorrelationID, domain.RouteWalletCreditFailed, domain.WalletCreditFailedEvent{
		CorrelationID: cmd.CorrelationID,
		TransactionID: cmd.TransactionID,
		WalletID:      cmd.WalletID,
		Reason:        reason,
	}, now); err != nil {
		return err
	}

	uc.countOp("credit", "failed")

	return tx.Commit(ctx)
}

func (uc *LedgerUseCase) failRefund(ctx context.Context, tx Transaction, cmd domain.RefundWalletCommand, reason string, now time.Time) error {
	if err := uc.emit(ctx, tx, cmd.CorrelationID, domain.RouteRefundFailed, domain.RefundFailedEvent{
		CorrelationID: cmd.CorrelationID,
		TransactionID: cmd.TransactionID,
		CustomerID:    cmd.CustomerID,
		Reason:        reason,
	}, now); err != nil {
		return err
	}

	uc.countOp("refund", "failed")

	return tx.Commit(ctx)
}

// emit writes an outbox message inside the caller's transaction.
func (uc *LedgerUseCase) emit(ctx context.Context, tx Transaction, correlationID, routingKey string, payload any, now time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return uc.outboxRepo.Create(ctx, tx, &domain.OutboxMessage{
		ID:            uc.idGen.Generate(),
		CorrelationID: correlationID,
		RoutingKey:    routingKey,
		Payload:       body,
		CreatedAt:     now,
	})
}

// emitStandalone records the inbox entry and writes one outbox
// message in a fresh transaction. Used for malformed commands that
// fail before any aggregate is touched.
func (uc *LedgerUseCase) emitStandalone(ctx context.Context, messageID, correlationID, routingKey string, payload any) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()

	if err := uc.inboxRepo.Record(txCtx, tx, ConsumerWalletLedger, messageID, now); err != nil {
		if errors.Is(err, domain.ErrDuplicateMessage) {
			return nil
		}

		return err
	}

	if err := uc.emit(txCtx, tx, correlationID, routingKey, payload, now); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

func (uc *LedgerUseCase) countOp(operation, result string) {
	if uc.metrics != nil {
		uc.metrics.WalletOperations.WithLabelValues(operation, result).Inc()
	}
}

func (uc *LedgerUseCase) countDuplicate() {
	if uc.metrics != nil {
		uc.metrics.InboxDuplicates.Inc()
	}
}

func moneyFromWire(amount, currency string) (domain.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Money{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, amount)
	}

	return domain.NewMoney(d, currency)
}
