package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/infrastructure/metrics"
)

// FraudUseCase is the stateless decision engine: a priority-ordered,
// fail-fast pipeline over independent rule evaluators. The first
// denying rule short-circuits the rest, which also skips the external
// verification lookup whenever a cheaper rule already denied.
type FraudUseCase struct {
	ruleRepo     FraudRuleRepository
	verification VerificationClient
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewFraudUseCase creates a new FraudUseCase.
func NewFraudUseCase(ruleRepo FraudRuleRepository, verification VerificationClient, metrics *metrics.Metrics) *FraudUseCase {
	return &FraudUseCase{
		ruleRepo:     ruleRepo,
		verification: verification,
		metrics:      metrics,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine's clock. Used by tests to pin the
// risky-hour window.
func (uc *FraudUseCase) WithClock(now func() time.Time) *FraudUseCase {
	uc.now = now
	return uc
}

// Evaluate runs all applicable rules in ascending priority order and
// returns the single verdict. Rule kinds with no active instance are
// skipped entirely.
func (uc *FraudUseCase) Evaluate(ctx context.Context, req domain.FraudRequest) (*domain.FraudVerdict, error) {
	rules, err := uc.ruleRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now()

	applicable := make([]*domain.FraudRule, 0, len(rules))
	for _, r := range rules {
		if r.Applies(now) {
			applicable = append(applicable, r)
		}
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority < applicable[j].Priority
	})

	// Verification data is fetched at most once, and only when an
	// account-age or kyc-level rule actually needs it.
	var verification *domain.VerificationData
	fetchVerification := func() (*domain.VerificationData, error) {
		if verification != nil {
			return verification, nil
		}

		v, err := uc.verification.GetVerificationData(ctx, req.SenderCustomerID)
		if err != nil {
			return nil, err
		}

		verification = v

		return v, nil
	}

	for _, rule := range applicable {
		reason, err := uc.evaluateRule(rule, req, now, fetchVerification)
		if err != nil {
			return nil, err
		}

		if reason != "" {
			uc.countVerdict("denied", rule.Kind)
			return &domain.FraudVerdict{Approved: false, Reason: reason}, nil
		}
	}

	uc.countVerdict("approved", "")

	return &domain.FraudVerdict{Approved: true}, nil
}

// evaluateRule returns a non-empty deny reason when the rule matches.
func (uc *FraudUseCase) evaluateRule(
	rule *domain.FraudRule,
	req domain.FraudRequest,
	now time.Time,
	fetchVerification func() (*domain.VerificationData, error),
) (string, error) {
	switch rule.Kind {
	case domain.RuleKindBlockedIP:
		if req.ClientIPAddress != "" && req.ClientIPAddress == rule.BlockedIP {
			return "sender ip address is blocked", nil
		}

	case domain.RuleKindRiskyHour:
		if rule.InWindow(now.UTC().Hour()) {
			return fmt.Sprintf("transfers are blocked during risky hours (%02d:00-%02d:59 UTC)",
				rule.StartHour, rule.EndHour), nil
		}

	case domain.RuleKindAccountAge:
		// Amount check first: below the rule's ceiling no lookup runs.
		if !req.Amount.Amount.GreaterThan(rule.MaxAllowedAmount) {
			return "", nil
		}

		v, err := fetchVerification()
		if err != nil {
			return "", err
		}

		ageDays := int(now.Sub(v.AccountCreatedAt).Hours() / 24)
		if ageDays < rule.MinAccountAgeDays {
			return fmt.Sprintf("accounts younger than %d days cannot transfer more than %s",
				rule.MinAccountAgeDays, rule.MaxAllowedAmount), nil
		}

	case domain.RuleKindKYCLevel:
		if !req.Amount.Amount.GreaterThan(rule.MaxAllowedAmount) {
			return "", nil
		}

		v, err := fetchVerification()
		if err != nil {
			return "", err
		}

		if v.KYCLevel < rule.RequiredKYCLevel {
			return fmt.Sprintf("kyc level %d required for amounts over %s",
				rule.RequiredKYCLevel, rule.MaxAllowedAmount), nil
		}
	}

	return "", nil
}

// HandleCheckFraudCommand evaluates one CheckFraud command into a
// verdict event. The engine is stateless, so re-evaluating a
// redelivered command is safe without inbox deduplication.
func (uc *FraudUseCase) HandleCheckFraudCommand(ctx context.Context, cmd domain.CheckFraudCommand) (*domain.FraudCheckedEvent, error) {
	amount, err := moneyFromWire(cmd.Amount, cmd.Currency)
	if err != nil {
		return &domain.FraudCheckedEvent{
			CorrelationID: cmd.CorrelationID,
			Approved:      false,
			Reason:        "malformed transfer amount",
		}, nil
	}

	verdict, err := uc.Evaluate(ctx, domain.FraudRequest{
		CorrelationID:      cmd.CorrelationID,
		SenderCustomerID:   cmd.SenderCustomerID,
		ReceiverCustomerID: cmd.ReceiverCustomerID,
		Amount:             amount,
		ClientIPAddress:    cmd.ClientIPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &domain.FraudCheckedEvent{
		CorrelationID: cmd.CorrelationID,
		Approved:      verdict.Approved,
		Reason:        verdict.Reason,
	}, nil
}

// ListRules exposes rule configuration for the read-side API.
func (uc *FraudUseCase) ListRules(ctx context.Context, limit, offset int) ([]*domain.FraudRule, error) {
	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return uc.ruleRepo.List(ctx, limit, offset)
}

func (uc *FraudUseCase) countVerdict(outcome string, kind domain.RuleKind) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.FraudVerdicts.WithLabelValues(outcome).Inc()

	if kind != "" {
		uc.metrics.FraudRuleDenies.WithLabelValues(string(kind)).Inc()
	}
}
