package service

import (
	"fmt"
	"time"

	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/util"
	"github.com/shopspring/decimal"
)

// CalculationValidator checks a request against its plan before any
// calculation runs and resolves it into an AmortizationInput.
type CalculationValidator struct {
	cfg domain.FinancingConfig
	now func() time.Time
}

// NewCalculationValidator creates a new CalculationValidator
func NewCalculationValidator(cfg domain.FinancingConfig) *CalculationValidator {
	return &CalculationValidator{
		cfg: cfg.Normalize(),
		now: time.Now,
	}
}

// Validate enforces the plan constraints on req. Errors carry enough detail
// for the caller to correct the request.
func (v *CalculationValidator) Validate(plan *domain.FinancingPlan, req domain.CalculationRequest) (*AmortizationInput, error) {
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}
	variant, err := plan.Variant()
	if err != nil {
		return nil, err
	}
	if !req.ProductPrice.IsPositive() {
		return nil, &domain.InvalidPriceError{Price: req.ProductPrice}
	}

	maxTerm := plan.MaxTerm
	if maxTerm > v.cfg.MaxTermMonths {
		maxTerm = v.cfg.MaxTermMonths
	}
	if req.TermMonths < plan.MinTerm || req.TermMonths > maxTerm {
		return nil, &domain.InvalidTermError{Term: req.TermMonths, Min: plan.MinTerm, Max: maxTerm}
	}

	switch p := variant.(type) {
	case domain.ImmediatePlan:
		if _, err := resolveDownPayment(req.ProductPrice, p, req.DownPayment); err != nil {
			return nil, err
		}
	case domain.ProgrammedPlan:
		if req.DownPayment != nil && !req.DownPayment.IsZero() {
			return nil, fmt.Errorf("%w: programmed plans do not take a down payment", domain.ErrInvalidInput)
		}
	}

	start := v.now()
	if req.StartDate != nil {
		start = *req.StartDate
	}

	return &AmortizationInput{
		PlanID:               plan.ID,
		Price:                req.ProductPrice,
		TermMonths:           req.TermMonths,
		AnnualRate:           plan.AnnualInterestRate,
		Variant:              variant,
		DownPayment:          immediateDownPayment(variant, req),
		StartDate:            util.DateOnly(start),
		FirstDueOffsetMonths: v.cfg.FirstDueOffsetMonths,
		MaxTermMonths:        v.cfg.MaxTermMonths,
	}, nil
}

func immediateDownPayment(variant domain.PlanVariant, req domain.CalculationRequest) *decimal.Decimal {
	if variant.Type() != domain.PlanTypeImmediate || req.DownPayment == nil {
		return nil
	}
	dp := *req.DownPayment
	return &dp
}
