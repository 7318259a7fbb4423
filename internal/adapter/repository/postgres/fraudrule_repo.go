package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymesh/transfersaga/internal/domain"
)

// FraudRuleRepository implements usecase.FraudRuleRepository. Rules
// are administrative data; this side only reads them.
type FraudRuleRepository struct {
	pool *pgxpool.Pool
}

// NewFraudRuleRepository creates a new FraudRuleRepository.
func NewFraudRuleRepository(pool *pgxpool.Pool) *FraudRuleRepository {
	return &FraudRuleRepository{pool: pool}
}

const fraudRuleColumns = `id, kind, priority, is_active, expires_at, version,
	blocked_ip, start_hour, end_hour,
	min_account_age_days, required_kyc_level, max_allowed_amount,
	created_at, updated_at`

// ListActive returns all currently active rules.
func (r *FraudRuleRepository) ListActive(ctx context.Context) ([]*domain.FraudRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fraudRuleColumns+` FROM fraud_rules
		WHERE is_active AND (expires_at IS NULL OR expires_at > now())
		ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

// List returns rules for the read-side API, including inactive ones.
func (r *FraudRuleRepository) List(ctx context.Context, limit, offset int) ([]*domain.FraudRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fraudRuleColumns+` FROM fraud_rules
		ORDER BY priority, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]*domain.FraudRule, error) {
	var rules []*domain.FraudRule

	for rows.Next() {
		var (
			rule      domain.FraudRule
			kind      string
			maxAmount pgtype.Numeric
			createdAt pgtype.Timestamptz
			updatedAt pgtype.Timestamptz
		)

		err := rows.Scan(
			&rule.ID,
			&kind,
			&rule.Priority,
			&rule.IsActive,
			&rule.ExpiresAt,
			&rule.Version,
			&rule.BlockedIP,
			&rule.StartHour,
			&rule.EndHour,
			&rule.MinAccountAgeDays,
			&rule.RequiredKYCLevel,
			&maxAmount,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}

		rule.Kind = domain.RuleKind(kind)
		rule.MaxAllowedAmount = numericToDecimal(maxAmount)
		rule.CreatedAt = createdAt.Time
		rule.UpdatedAt = updatedAt.Time

		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}
