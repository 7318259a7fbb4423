package handler

import (
	"context"
	"net/http"

	"github.com/paymesh/transfersaga/internal/adapter/http/dto"
	"github.com/paymesh/transfersaga/internal/domain"
)

// FraudRuleService exposes the fraud rule configuration.
type FraudRuleService interface {
	ListRules(ctx context.Context, limit, offset int) ([]*domain.FraudRule, error)
}

// FraudRuleHandler handles fraud rule HTTP requests.
type FraudRuleHandler struct {
	rules FraudRuleService
}

// NewFraudRuleHandler creates a new FraudRuleHandler.
func NewFraudRuleHandler(rules FraudRuleService) *FraudRuleHandler {
	return &FraudRuleHandler{rules: rules}
}

// List lists fraud rules ordered by priority.
func (h *FraudRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	rules, err := h.rules.ListRules(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list fraud rules", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.FraudRulesFromDomain(rules))
}
