package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, customer_id, currency, balance, available_balance,
	is_active, is_frozen, is_closed, is_deleted,
	last_transaction_id, last_transaction_at, version, created_at, updated_at`

// Create inserts a new wallet.
func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wallets (
			id, customer_id, currency, balance, available_balance,
			is_active, is_frozen, is_closed, is_deleted,
			last_transaction_id, last_transaction_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		wallet.ID,
		wallet.CustomerID,
		wallet.Balance.Currency,
		decimalToNumeric(wallet.Balance.Amount),
		decimalToNumeric(wallet.AvailableBalance.Amount),
		wallet.IsActive,
		wallet.IsFrozen,
		wallet.IsClosed,
		wallet.IsDeleted,
		wallet.LastTransactionID,
		wallet.LastTransactionAt,
		wallet.Version,
		timeToPgTimestamptz(wallet.CreatedAt),
		timeToPgTimestamptz(wallet.UpdatedAt),
	)

	return err
}

// GetByID retrieves a wallet by ID.
func (r *WalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)

	return scanWallet(row)
}

// GetByIDTx retrieves a wallet by ID with a FOR UPDATE lock.
func (r *WalletRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Wallet, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)

	return scanWallet(row)
}

// GetByCustomerIDTx retrieves a customer's wallet with a FOR UPDATE lock.
func (r *WalletRepository) GetByCustomerIDTx(ctx context.Context, tx usecase.Transaction, customerID string) (*domain.Wallet, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE customer_id = $1 FOR UPDATE`, customerID)

	return scanWallet(row)
}

// Update persists wallet state guarded by an optimistic version
// check. The row must still hold expectedVersion; otherwise the
// caller lost a race and gets domain.ErrConcurrentModification.
func (r *WalletRepository) Update(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet, expectedVersion int64) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE wallets SET
			balance = $2,
			available_balance = $3,
			is_active = $4,
			is_frozen = $5,
			is_closed = $6,
			is_deleted = $7,
			last_transaction_id = $8,
			last_transaction_at = $9,
			version = version + 1,
			updated_at = $10
		WHERE id = $1 AND version = $11`,
		wallet.ID,
		decimalToNumeric(wallet.Balance.Amount),
		decimalToNumeric(wallet.AvailableBalance.Amount),
		wallet.IsActive,
		wallet.IsFrozen,
		wallet.IsClosed,
		wallet.IsDeleted,
		wallet.LastTransactionID,
		wallet.LastTransactionAt,
		timeToPgTimestamptz(wallet.UpdatedAt),
		expectedVersion,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}

	wallet.Version = expectedVersion + 1

	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w         domain.Wallet
		currency  string
		balance   pgtype.Numeric
		available pgtype.Numeric
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&w.ID,
		&w.CustomerID,
		&currency,
		&balance,
		&available,
		&w.IsActive,
		&w.IsFrozen,
		&w.IsClosed,
		&w.IsDeleted,
		&w.LastTransactionID,
		&w.LastTransactionAt,
		&w.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}

		return nil, err
	}

	w.Balance = domain.Money{Amount: numericToDecimal(balance), Currency: currency}
	w.AvailableBalance = domain.Money{Amount: numericToDecimal(available), Currency: currency}
	w.CreatedAt = createdAt.Time
	w.UpdatedAt = updatedAt.Time

	return &w, nil
}
