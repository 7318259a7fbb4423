package domain

import (
	"time"
)

// SagaState is the transfer saga's current position in its lifecycle.
type SagaState string

const (
	SagaStatePending       SagaState = "pending"
	SagaStateFraudApproved SagaState = "fraud_check_approved"
	SagaStateFraudDeclined SagaState = "fraud_check_declined"
	SagaStateSenderDebited SagaState = "sender_debited"
	SagaStateRefunding     SagaState = "refunding"
	SagaStateCompleted     SagaState = "completed"
	SagaStateFailed        SagaState = "failed"
	// SagaStateRefundFailed is a distinct terminal condition: the
	// compensating refund itself failed definitively and the transfer
	// needs manual intervention.
	SagaStateRefundFailed SagaState = "refund_failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s SagaState) IsTerminal() bool {
	switch s {
	case SagaStateFraudDeclined, SagaStateCompleted, SagaStateFailed, SagaStateRefundFailed:
		return true
	}

	return false
}

// TransferSaga is the durable per-transfer state machine. It is keyed
// by the caller-generated correlation id; TransactionID is a second,
// independent idempotency key stamped on every wallet-mutating
// command so redelivered commands are no-ops.
type TransferSaga struct {
	CorrelationID      string
	TransactionID      string
	CurrentState       SagaState
	SenderCustomerID   string
	ReceiverCustomerID string
	SenderWalletID     string
	ReceiverWalletID   string
	Amount             Money
	ClientIPAddress    string
	FailureReason      *string
	ExpirationTokenID  *string
	ExpiresAt          *time.Time
	CreatedAt          time.Time
	CompletedAt        *time.Time
	UpdatedAt          time.Time
}

// ApproveFraud moves Pending to FraudCheckApproved.
func (s *TransferSaga) ApproveFraud(now time.Time) error {
	if s.CurrentState != SagaStatePending {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateFraudApproved
	s.UpdatedAt = now

	return nil
}

// DeclineFraud terminates a Pending saga with the decline reason.
// No wallet side effects occurred, so no compensation is needed.
func (s *TransferSaga) DeclineFraud(reason string, now time.Time) error {
	if s.CurrentState != SagaStatePending {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateFraudDeclined
	s.FailureReason = &reason
	s.clearExpiration()
	s.UpdatedAt = now

	return nil
}

// MarkSenderDebited moves FraudCheckApproved to SenderDebited.
func (s *TransferSaga) MarkSenderDebited(now time.Time) error {
	if s.CurrentState != SagaStateFraudApproved {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateSenderDebited
	s.UpdatedAt = now

	return nil
}

// FailDebit terminates a FraudCheckApproved saga. Funds never left
// the sender, so no compensation runs.
func (s *TransferSaga) FailDebit(reason string, now time.Time) error {
	if s.CurrentState != SagaStateFraudApproved {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateFailed
	s.FailureReason = &reason
	s.clearExpiration()
	s.UpdatedAt = now

	return nil
}

// Complete moves SenderDebited to Completed and stamps CompletedAt.
func (s *TransferSaga) Complete(now time.Time) error {
	if s.CurrentState != SagaStateSenderDebited {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateCompleted
	s.CompletedAt = &now
	s.clearExpiration()
	s.UpdatedAt = now

	return nil
}

// BeginRefund starts compensation after a failed credit. The credit
// failure reason is recorded now so the eventual Failed state carries
// the original cause, not the refund outcome.
func (s *TransferSaga) BeginRefund(reason string, now time.Time) error {
	if s.CurrentState != SagaStateSenderDebited {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateRefunding
	s.FailureReason = &reason
	s.UpdatedAt = now

	return nil
}

// ConfirmRefund terminates a Refunding saga as Failed. FailureReason
// keeps the original credit-failure reason set by BeginRefund.
func (s *TransferSaga) ConfirmRefund(now time.Time) error {
	if s.CurrentState != SagaStateRefunding {
		return ErrStaleSagaEvent
	}

	s.CurrentState = SagaStateFailed
	s.clearExpiration()
	s.UpdatedAt = now

	return nil
}

// FailRefund parks a Refunding saga in RefundFailed for manual
// intervention. The refund reason is appended to the credit-failure
// reason so both causes survive in the audit trail.
func (s *TransferSaga) FailRefund(reason string, now time.Time) error {
	if s.CurrentState != SagaStateRefunding {
		return ErrStaleSagaEvent
	}

	combined := reason
	if s.FailureReason != nil {
		combined = *s.FailureReason + "; refund failed: " + reason
	}

	s.CurrentState = SagaStateRefundFailed
	s.FailureReason = &combined
	s.clearExpiration()
	s.UpdatedAt = now

	return nil
}

// Expire routes a fired timeout token into the failure path matching
// the current state. It returns whether a compensating refund must be
// commanded (the debit is known to have happened but the credit never
// confirmed). A timeout while already refunding escalates to
// RefundFailed rather than retrying forever.
func (s *TransferSaga) Expire(now time.Time) (needsRefund bool, err error) {
	switch s.CurrentState {
	case SagaStatePending, SagaStateFraudApproved:
		reason := "transfer timed out before completion"
		s.CurrentState = SagaStateFailed
		s.FailureReason = &reason
		s.clearExpiration()
		s.UpdatedAt = now

		return false, nil

	case SagaStateSenderDebited:
		return true, s.BeginRefund("transfer timed out awaiting credit confirmation", now)

	case SagaStateRefunding:
		return false, s.FailRefund("timed out awaiting refund confirmation", now)
	}

	return false, ErrStaleSagaEvent
}

// HasExpirationToken reports whether tokenID is the saga's live
// scheduled-timeout token.
func (s *TransferSaga) HasExpirationToken(tokenID string) bool {
	return s.ExpirationTokenID != nil && *s.ExpirationTokenID == tokenID
}

func (s *TransferSaga) clearExpiration() {
	s.ExpirationTokenID = nil
	s.ExpiresAt = nil
}
