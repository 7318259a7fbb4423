package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
	"github.com/paymesh/transfersaga/internal/usecase/mocks"
)

func blockedIPRule(ip string) *domain.FraudRule {
	return &domain.FraudRule{
		ID:        "rule-ip",
		Kind:      domain.RuleKindBlockedIP,
		Priority:  1,
		IsActive:  true,
		BlockedIP: ip,
	}
}

func riskyHourRule(start, end int) *domain.FraudRule {
	return &domain.FraudRule{
		ID:        "rule-hour",
		Kind:      domain.RuleKindRiskyHour,
		Priority:  2,
		IsActive:  true,
		StartHour: start,
		EndHour:   end,
	}
}

func accountAgeRule(minDays int, maxAmount string) *domain.FraudRule {
	return &domain.FraudRule{
		ID:                "rule-age",
		Kind:              domain.RuleKindAccountAge,
		Priority:          3,
		IsActive:          true,
		MinAccountAgeDays: minDays,
		MaxAllowedAmount:  decimal.RequireFromString(maxAmount),
	}
}

func kycLevelRule(level int, maxAmount string) *domain.FraudRule {
	return &domain.FraudRule{
		ID:               "rule-kyc",
		Kind:             domain.RuleKindKYCLevel,
		Priority:         4,
		IsActive:         true,
		RequiredKYCLevel: level,
		MaxAllowedAmount: decimal.RequireFromString(maxAmount),
	}
}

func fraudRequest(amount, ip string) domain.FraudRequest {
	return domain.FraudRequest{
		CorrelationID:      "corr-1",
		SenderCustomerID:   "cust-1",
		ReceiverCustomerID: "cust-2",
		Amount:             domain.MustMoney(amount, "TRY"),
		ClientIPAddress:    ip,
	}
}

func TestFraudUseCase_Evaluate(t *testing.T) {
	noon := func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	t.Run("approves when no rule matches", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)

		uc := usecase.NewFraudUseCase(
			mocks.NewMockFraudRuleRepository(blockedIPRule("10.0.0.1"), riskyHourRule(0, 5)),
			verification, nil,
		).WithClock(noon)

		verdict, err := uc.Evaluate(context.Background(), fraudRequest("100", "192.168.1.7"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !verdict.Approved {
			t.Errorf("verdict = denied (%s), want approved", verdict.Reason)
		}
	})

	t.Run("blocked ip denies before kyc lookup runs", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)
		// No EXPECT: any verification call fails the test. The ip rule
		// has lower priority and must short-circuit the pipeline.

		uc := usecase.NewFraudUseCase(
			mocks.NewMockFraudRuleRepository(kycLevelRule(3, "1000"), blockedIPRule("10.0.0.1")),
			verification, nil,
		).WithClock(noon)

		verdict, err := uc.Evaluate(context.Background(), fraudRequest("50000", "10.0.0.1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verdict.Approved {
			t.Fatal("verdict = approved, want denied")
		}
		if verdict.Reason != "sender ip address is blocked" {
			t.Errorf("reason = %q", verdict.Reason)
		}
	})

	t.Run("risky hour window wraps midnight", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)
		repo := mocks.NewMockFraudRuleRepository(riskyHourRule(22, 6))

		tests := []struct {
			name string
			hour int
			want bool
		}{
			{"23:00 inside", 23, false},
			{"02:00 inside", 2, false},
			{"06:30 inside end hour", 6, false},
			{"07:00 outside", 7, true},
			{"21:00 outside", 21, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				uc := usecase.NewFraudUseCase(repo, verification, nil).WithClock(func() time.Time {
					return time.Date(2025, 6, 1, tt.hour, 30, 0, 0, time.UTC)
				})

				verdict, err := uc.Evaluate(context.Background(), fraudRequest("100", ""))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if verdict.Approved != tt.want {
					t.Errorf("approved = %v, want %v (reason %q)", verdict.Approved, tt.want, verdict.Reason)
				}
			})
		}
	})

	t.Run("young account cannot move large amounts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)
		verification.EXPECT().GetVerificationData(gomock.Any(), "cust-1").Return(&domain.VerificationData{
			CustomerID:       "cust-1",
			KYCLevel:         3,
			AccountCreatedAt: noon().Add(-1 * time.Hour),
		}, nil)

		uc := usecase.NewFraudUseCase(
			mocks.NewMockFraudRuleRepository(accountAgeRule(30, "1000")),
			verification, nil,
		).WithClock(noon)

		verdict, err := uc.Evaluate(context.Background(), fraudRequest("50000", ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verdict.Approved {
			t.Fatal("verdict = approved, want denied")
		}
		if !strings.Contains(verdict.Reason, "30 days") {
			t.Errorf("reason = %q", verdict.Reason)
		}
	})

	t.Run("small amount skips verification entirely", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)
		// No EXPECT: amounts at or below the ceiling never fetch.

		uc := usecase.NewFraudUseCase(
			mocks.NewMockFraudRuleRepository(accountAgeRule(30, "1000"), kycLevelRule(3, "1000")),
			verification, nil,
		).WithClock(noon)

		verdict, err := uc.Evaluate(context.Background(), fraudRequest("1000", ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !verdict.Approved {
			t.Errorf("verdict = denied (%s), want approved", verdict.Reason)
		}
	})

	t.Run("verification fetched once across age and kyc rules", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)
		verification.EXPECT().GetVerificationData(gomock.Any(), "cust-1").Return(&domain.VerificationData{
			CustomerID:       "cust-1",
			KYCLevel:         1,
			AccountCreatedAt: noon().AddDate(-1, 0, 0),
		}, nil).Times(1)

		uc := usecase.NewFraudUseCase(
			mocks.NewMockFraudRuleRepository(accountAgeRule(30, "1000"), kycLevelRule(3, "1000")),
			verification, nil,
		).WithClock(noon)

		verdict, err := uc.Evaluate(context.Background(), fraudRequest("50000", ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verdict.Approved {
			t.Fatal("verdict = approved, want kyc denial")
		}
		if !strings.Contains(verdict.Reason, "kyc level 3") {
			t.Errorf("reason = %q", verdict.Reason)
		}
	})

	t.Run("inactive and expired rules are skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		verification := mocks.NewMockVerificationClient(ctrl)

		inactive := blockedIPRule("10.0.0.1")
		inactive.IsActive = false

		past := noon().Add(-time.Hour)
		expired := riskyHourRule(0, 23)
		expired.ExpiresAt = &past

		uc := usecase.NewFraudUseCase(
			mocks.NewMockFraudRuleRepository(inactive, expired),
			verification, nil,
		).WithClock(noon)

		verdict, err := uc.Evaluate(context.Background(), fraudRequest("100", "10.0.0.1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !verdict.Approved {
			t.Errorf("verdict = denied (%s), want approved", verdict.Reason)
		}
	})
}

func TestFraudUseCase_HandleCheckFraudCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	verification := mocks.NewMockVerificationClient(ctrl)

	uc := usecase.NewFraudUseCase(mocks.NewMockFraudRuleRepository(), verification, nil)

	t.Run("malformed amount declines without evaluation", func(t *testing.T) {
		event, err := uc.HandleCheckFraudCommand(context.Background(), domain.CheckFraudCommand{
			CorrelationID: "corr-1",
			Amount:        "not-a-number",
			Currency:      "TRY",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Approved {
			t.Error("approved = true, want declined")
		}
		if event.Reason != "malformed transfer amount" {
			t.Errorf("reason = %q", event.Reason)
		}
	})

	t.Run("valid command carries verdict and correlation id", func(t *testing.T) {
		event, err := uc.HandleCheckFraudCommand(context.Background(), domain.CheckFraudCommand{
			CorrelationID:    "corr-2",
			SenderCustomerID: "cust-1",
			Amount:           "100",
			Currency:         "TRY",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !event.Approved {
			t.Errorf("approved = false (%s), want approved with no rules", event.Reason)
		}
		if event.CorrelationID != "corr-2" {
			t.Errorf("correlation id = %q", event.CorrelationID)
		}
	})
}
