package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/infrastructure/metrics"
)

// SagaUseCase is the durable per-transfer orchestrator. Each inbound
// event is applied in one transaction: inbox record, state
// transition, and the next outbound command all commit together or
// not at all. The saga never sees transient faults; the messaging
// substrate retries those before anything reaches a handler.
type SagaUseCase struct {
	txManager   TransactionManager
	sagaRepo    SagaRepository
	outboxRepo  OutboxRepository
	inboxRepo   InboxRepository
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
	sagaTimeout time.Duration
}

// NewSagaUseCase creates a new SagaUseCase.
func NewSagaUseCase(
	txManager TransactionManager,
	sagaRepo SagaRepository,
	outboxRepo OutboxRepository,
	inboxRepo InboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
	sagaTimeout time.Duration,
) *SagaUseCase {
	if sagaTimeout <= 0 {
		sagaTimeout = DefaultSagaTimeout
	}

	return &SagaUseCase{
		txManager:   txManager,
		sagaRepo:    sagaRepo,
		outboxRepo:  outboxRepo,
		inboxRepo:   inboxRepo,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     metrics,
		sagaTimeout: sagaTimeout,
	}
}

// StartTransferInput represents a transfer request.
type StartTransferInput struct {
	CorrelationID      string
	SenderCustomerID   string
	ReceiverCustomerID string
	SenderWalletID     string
	ReceiverWalletID   string
	Amount             decimal.Decimal
	Currency           string
	ClientIPAddress    string
}

// Validate rejects malformed input synchronously, before any saga
// exists.
func (i StartTransferInput) Validate() error {
	if err := domain.ValidateCorrelationID(i.CorrelationID); err != nil {
		return err
	}

	for _, id := range []string{i.SenderCustomerID, i.ReceiverCustomerID, i.SenderWalletID, i.ReceiverWalletID} {
		if err := domain.ValidateID(id); err != nil {
			return err
		}
	}

	if i.SenderWalletID == i.ReceiverWalletID {
		return domain.ErrSameWallet
	}

	if i.SenderCustomerID == i.ReceiverCustomerID {
		return domain.ErrSameCustomer
	}

	if err := domain.ValidateTransferAmount(i.Amount); err != nil {
		return err
	}

	return domain.ValidateIPAddress(i.ClientIPAddress)
}

// StartTransfer creates the saga instance and schedules the fraud
// check plus the expiration token in one transaction. The outcome is
// observable only through the persisted saga state.
func (uc *SagaUseCase) StartTransfer(ctx context.Context, input StartTransferInput) (*domain.TransferSaga, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	amount, err := domain.NewMoney(input.Amount, input.Currency)
	if err != nil {
		return nil, err
	}

	var saga *domain.TransferSaga

	err = uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		now := time.Now().UTC()
		token := uc.idGen.Generate()
		expires := now.Add(uc.sagaTimeout)

		saga = &domain.TransferSaga{
			CorrelationID:      input.CorrelationID,
			TransactionID:      uc.idGen.Generate(),
			CurrentState:       domain.SagaStatePending,
			SenderCustomerID:   input.SenderCustomerID,
			ReceiverCustomerID: input.ReceiverCustomerID,
			SenderWalletID:     input.SenderWalletID,
			ReceiverWalletID:   input.ReceiverWalletID,
			Amount:             amount,
			ClientIPAddress:    input.ClientIPAddress,
			ExpirationTokenID:  &token,
			ExpiresAt:          &expires,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		if err := uc.sagaRepo.Create(txCtx, tx, saga); err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, saga.CorrelationID, domain.RouteCheckFraud, domain.CheckFraudCommand{
			CorrelationID:      saga.CorrelationID,
			SenderCustomerID:   saga.SenderCustomerID,
			ReceiverCustomerID: saga.ReceiverCustomerID,
			Amount:             saga.Amount.Amount.String(),
			Currency:           saga.Amount.Currency,
			ClientIPAddress:    saga.ClientIPAddress,
		}, now); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SagasStarted.Inc()
		amt, _ := saga.Amount.Amount.Float64()
		uc.metrics.TransferAmount.Observe(amt)
	}

	return saga, nil
}

// GetTransfer retrieves a saga by correlation id.
func (uc *SagaUseCase) GetTransfer(ctx context.Context, correlationID string) (*domain.TransferSaga, error) {
	return uc.sagaRepo.GetByCorrelationID(ctx, correlationID)
}

// HandleFraudChecked applies the fraud verdict. Approval commands the
// sender debit; decline terminates with no wallet side effects.
func (uc *SagaUseCase) HandleFraudChecked(ctx context.Context, messageID string, event domain.FraudCheckedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if event.Approved {
			if err := saga.ApproveFraud(now); err != nil {
				return err
			}

			return uc.emit(txCtx, tx, saga.CorrelationID, domain.RouteDebitWallet, domain.DebitWalletCommand{
				CorrelationID: saga.CorrelationID,
				TransactionID: saga.TransactionID,
				WalletID:      saga.SenderWalletID,
				Amount:        saga.Amount.Amount.String(),
				Currency:      saga.Amount.Currency,
			}, now)
		}

		if err := saga.DeclineFraud(event.Reason, now); err != nil {
			return err
		}

		uc.countTerminal(saga, now)

		return uc.emitOutcome(txCtx, tx, saga, domain.RouteTransferFailed, now)
	})
}

// HandleWalletDebited commands the receiver credit.
func (uc *SagaUseCase) HandleWalletDebited(ctx context.Context, messageID string, event domain.WalletDebitedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if err := saga.MarkSenderDebited(now); err != nil {
			return err
		}

		return uc.emit(txCtx, tx, saga.CorrelationID, domain.RouteCreditWallet, domain.CreditWalletCommand{
			CorrelationID: saga.CorrelationID,
			TransactionID: saga.TransactionID,
			WalletID:      saga.ReceiverWalletID,
			Amount:        saga.Amount.Amount.String(),
			Currency:      saga.Amount.Currency,
		}, now)
	})
}

// HandleWalletDebitFailed terminates the saga; funds never left the
// sender, so no compensation runs.
func (uc *SagaUseCase) HandleWalletDebitFailed(ctx context.Context, messageID string, event domain.WalletDebitFailedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if err := saga.FailDebit(event.Reason, now); err != nil {
			return err
		}

		uc.countTerminal(saga, now)

		return uc.emitOutcome(txCtx, tx, saga, domain.RouteTransferFailed, now)
	})
}

// HandleWalletCredited completes the transfer.
func (uc *SagaUseCase) HandleWalletCredited(ctx context.Context, messageID string, event domain.WalletCreditedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if err := saga.Complete(now); err != nil {
			return err
		}

		uc.countTerminal(saga, now)

		return uc.emitOutcome(txCtx, tx, saga, domain.RouteTransferCompleted, now)
	})
}

// HandleWalletCreditFailed starts compensation: the sender is
// refunded before the saga is marked failed. The refund carries its
// own idempotency token: the debit already consumed the saga's
// transaction id on the sender wallet, and a reused token would make
// the refund a no-op.
func (uc *SagaUseCase) HandleWalletCreditFailed(ctx context.Context, messageID string, event domain.WalletCreditFailedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if err := saga.BeginRefund(event.Reason, now); err != nil {
			return err
		}

		return uc.emitRefundCommand(txCtx, tx, saga, now)
	})
}

// HandleSenderRefunded confirms compensation and terminates the saga
// as failed with the original credit-failure reason.
func (uc *SagaUseCase) HandleSenderRefunded(ctx context.Context, messageID string, event domain.SenderRefundedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if err := saga.ConfirmRefund(now); err != nil {
			return err
		}

		uc.countTerminal(saga, now)

		return uc.emitOutcome(txCtx, tx, saga, domain.RouteTransferFailed, now)
	})
}

// HandleRefundFailed parks the saga for manual intervention and
// emits a dead-letter event. Never conflated with an ordinary failure.
func (uc *SagaUseCase) HandleRefundFailed(ctx context.Context, messageID string, event domain.RefundFailedEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if err := saga.FailRefund(event.Reason, now); err != nil {
			return err
		}

		uc.countTerminal(saga, now)

		if uc.metrics != nil {
			uc.metrics.DeadLetterEmitted.Inc()
		}

		return uc.emitOutcome(txCtx, tx, saga, domain.RouteTransferDeadLetter, now)
	})
}

// HandleTransferExpired routes a fired timeout token into the failure
// path for the saga's current state. A token superseded by a
// definitive response is discarded.
func (uc *SagaUseCase) HandleTransferExpired(ctx context.Context, messageID string, event domain.TransferExpiredEvent) error {
	return uc.handle(ctx, messageID, event.CorrelationID, func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
		if !saga.HasExpirationToken(event.TokenID) {
			return domain.ErrStaleSagaEvent
		}

		needsRefund, err := saga.Expire(now)
		if err != nil {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.SagasExpired.Inc()
		}

		if needsRefund {
			return uc.emitRefundCommand(txCtx, tx, saga, now)
		}

		uc.countTerminal(saga, now)

		route := domain.RouteTransferFailed
		if saga.CurrentState == domain.SagaStateRefundFailed {
			route = domain.RouteTransferDeadLetter
		}

		return uc.emitOutcome(txCtx, tx, saga, route, now)
	})
}

// ExpireDueSagas is driven by the scheduler. The synthetic message id
// is derived from the expiration token, so the inbox guarantees each
// token fires at most once even across overlapping sweeps.
func (uc *SagaUseCase) ExpireDueSagas(ctx context.Context, limit int) (int, error) {
	now := time.Now().UTC()

	due, err := uc.sagaRepo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0

	for _, saga := range due {
		if saga.ExpirationTokenID == nil {
			continue
		}

		token := *saga.ExpirationTokenID
		err := uc.HandleTransferExpired(ctx, "expire:"+token, domain.TransferExpiredEvent{
			CorrelationID: saga.CorrelationID,
			TokenID:       token,
		})
		if err != nil {
			return expired, err
		}

		expired++
	}

	return expired, nil
}

// handle runs one inbound event through the standard envelope:
// dedup, load, transition, persist, commit. Stale events are
// acknowledged (the inbox record commits) and discarded.
func (uc *SagaUseCase) handle(
	ctx context.Context,
	messageID string,
	correlationID string,
	apply func(txCtx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error,
) error {
	return uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		now := time.Now().UTC()

		if err := uc.inboxRepo.Record(txCtx, tx, ConsumerSagaOrchestrator, messageID, now); err != nil {
			if errors.Is(err, domain.ErrDuplicateMessage) {
				if uc.metrics != nil {
					uc.metrics.InboxDuplicates.Inc()
				}

				return nil
			}

			return err
		}

		saga, err := uc.sagaRepo.GetByCorrelationIDTx(txCtx, tx, correlationID)
		if err != nil {
			if errors.Is(err, domain.ErrSagaNotFound) {
				// Response for a saga this instance never created.
				// Keep the inbox record and drop the message.
				return tx.Commit(txCtx)
			}

			return err
		}

		if err := apply(txCtx, tx, saga, now); err != nil {
			if errors.Is(err, domain.ErrStaleSagaEvent) {
				return tx.Commit(txCtx)
			}

			return err
		}

		if err := uc.sagaRepo.Update(txCtx, tx, saga); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
}

func (uc *SagaUseCase) emitRefundCommand(ctx context.Context, tx Transaction, saga *domain.TransferSaga, now time.Time) error {
	return uc.emit(ctx, tx, saga.CorrelationID, domain.RouteRefundWallet, domain.RefundWalletCommand{
		CorrelationID: saga.CorrelationID,
		TransactionID: saga.TransactionID + "-refund",
		CustomerID:    saga.SenderCustomerID,
		Amount:        saga.Amount.Amount.String(),
		Currency:      saga.Amount.Currency,
	}, now)
}

func (uc *SagaUseCase) emitOutcome(ctx context.Context, tx Transaction, saga *domain.TransferSaga, route string, now time.Time) error {
	reason := ""
	if saga.FailureReason != nil {
		reason = *saga.FailureReason
	}

	return uc.emit(ctx, tx, saga.CorrelationID, route, domain.TransferOutcomeEvent{
		CorrelationID: saga.CorrelationID,
		State:         saga.CurrentState,
		FailureReason: reason,
		Amount:        saga.Amount.Amount.String(),
		Currency:      saga.Amount.Currency,
		OccurredAt:    now,
	}, now)
}

func (uc *SagaUseCase) emit(ctx context.Context, tx Transaction, correlationID, routingKey string, payload any, now time.Time) error {
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

func (uc *SagaUseCase) countTerminal(saga *domain.TransferSaga, now time.Time) {
	if uc.metrics == nil {
		return
	}

	switch saga.CurrentState {
	case domain.SagaStateCompleted:
		uc.metrics.SagasCompleted.Inc()
		uc.metrics.SagaDuration.Observe(now.Sub(saga.CreatedAt).Seconds())
	case domain.SagaStateFraudDeclined, domain.SagaStateFailed, domain.SagaStateRefundFailed:
		uc.metrics.SagasFailed.WithLabelValues(string(saga.CurrentState)).Inc()
	}
}
