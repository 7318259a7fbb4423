package domain

import (
	"time"
)

// Wallet is the per-customer balance aggregate. Every mutation is
// keyed by a caller-supplied transaction id; replaying the last
// applied transaction id is a no-op so at-least-once delivery of
// debit/credit/refund commands stays safe.
type Wallet struct {
	ID                string
	CustomerID        string
	Balance           Money
	AvailableBalance  Money
	IsActive          bool
	IsFrozen          bool
	IsClosed          bool
	IsDeleted         bool
	LastTransactionID *string
	LastTransactionAt *time.Time
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsDuplicate reports whether transactionID was the most recently
// applied mutating operation.
func (w *Wallet) IsDuplicate(transactionID string) bool {
	return w.LastTransactionID != nil && *w.LastTransactionID == transactionID
}

// ValidateDebit checks lifecycle state and available funds.
// Frozen wallets cannot be debited.
func (w *Wallet) ValidateDebit(amount Money) error {
	if w.IsDeleted {
		return ErrWalletDeleted
	}

	if w.IsClosed {
		return ErrWalletClosed
	}

	if w.IsFrozen {
		return ErrWalletFrozen
	}

	if !w.IsActive {
		return ErrWalletNotActive
	}

	insufficient, err := w.AvailableBalance.LessThan(amount)
	if err != nil {
		return err
	}

	if insufficient {
		return ErrInsufficientFunds
	}

	return nil
}

// ValidateCredit checks lifecycle state. Frozen wallets may still
// receive funds; only closed and deleted wallets reject credits.
func (w *Wallet) ValidateCredit(amount Money) error {
	if w.IsDeleted {
		return ErrWalletDeleted
	}

	if w.IsClosed {
		return ErrWalletClosed
	}

	if _, err := w.Balance.Add(amount); err != nil {
		return err
	}

	return nil
}

// ApplyDebit decreases Balance and AvailableBalance and records the
// transaction id. Callers must run ValidateDebit first.
func (w *Wallet) ApplyDebit(amount Money, transactionID string, now time.Time) error {
	newBalance, err := w.Balance.Sub(amount)
	if err != nil {
		return err
	}

	newAvailable, err := w.AvailableBalance.Sub(amount)
	if err != nil {
		return err
	}

	w.Balance = newBalance
	w.AvailableBalance = newAvailable
	w.recordTransaction(transactionID, now)

	return nil
}

// ApplyCredit increases Balance and AvailableBalance and records the
// transaction id. Callers must run ValidateCredit first.
func (w *Wallet) ApplyCredit(amount Money, transactionID string, now time.Time) error {
	newBalance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}

	newAvailable, err := w.AvailableBalance.Add(amount)
	if err != nil {
		return err
	}

	w.Balance = newBalance
	w.AvailableBalance = newAvailable
	w.recordTransaction(transactionID, now)

	return nil
}

// Freeze blocks outgoing funds. Fails on closed or deleted wallets.
func (w *Wallet) Freeze() error {
	if w.IsDeleted {
		return ErrWalletDeleted
	}

	if w.IsClosed {
		return ErrWalletClosed
	}

	w.IsFrozen = true

	return nil
}

// Unfreeze lifts a freeze.
func (w *Wallet) Unfreeze() error {
	if w.IsDeleted {
		return ErrWalletDeleted
	}

	if w.IsClosed {
		return ErrWalletClosed
	}

	w.IsFrozen = false

	return nil
}

// Close is terminal: a closed wallet accepts no further mutations.
func (w *Wallet) Close() error {
	if w.IsDeleted {
		return ErrWalletDeleted
	}

	if w.IsClosed {
		return ErrWalletClosed
	}

	w.IsClosed = true
	w.IsActive = false

	return nil
}

func (w *Wallet) recordTransaction(transactionID string, now time.Time) {
	w.LastTransactionID = &transactionID
	w.LastTransactionAt = &now
	w.UpdatedAt = now
}
