package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlanType identifies a loan product family
type PlanType string

const (
	PlanTypeProgrammed PlanType = "programmed"
	PlanTypeImmediate  PlanType = "immediate"
)

var hundredPercent = decimal.NewFromInt(100)

// PlanVariant is the closed set of plan-specific parameters. Only
// ProgrammedPlan and ImmediatePlan implement it.
type PlanVariant interface {
	Type() PlanType
	sealed()
}

// ProgrammedPlan carries the parameters of a programmed purchase: the customer
// contributes monthly until an adjudication threshold is reached.
type ProgrammedPlan struct {
	AdjudicationPercentage decimal.Decimal
}

func (ProgrammedPlan) Type() PlanType { return PlanTypeProgrammed }
func (ProgrammedPlan) sealed()        {}

// ImmediatePlan carries the parameters of an immediate adjudication credit:
// a minimum down payment followed by a standard amortized loan.
type ImmediatePlan struct {
	DownPaymentPercentage decimal.Decimal
}

func (ImmediatePlan) Type() PlanType { return PlanTypeImmediate }
func (ImmediatePlan) sealed()        {}

// FinancingPlan is the definition of a loan product. Plans are edited by staff
// only; calculations read them.
type FinancingPlan struct {
	ID                     int32           `json:"id"`
	Name                   string          `json:"name"`
	Description            string          `json:"description"`
	PlanType               PlanType        `json:"planType"`
	MinTerm                int             `json:"minTerm"`
	MaxTerm                int             `json:"maxTerm"`
	AnnualInterestRate     decimal.Decimal `json:"annualInterestRate"`
	AdjudicationPercentage decimal.Decimal `json:"adjudicationPercentage"`
	DownPaymentPercentage  decimal.Decimal `json:"downPaymentPercentage"`
	IsActive               bool            `json:"isActive"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// Variant returns the plan's tagged parameters. Unknown plan types are
// reported as UnsupportedPlanError.
func (p *FinancingPlan) Variant() (PlanVariant, error) {
	switch p.PlanType {
	case PlanTypeProgrammed:
		return ProgrammedPlan{AdjudicationPercentage: p.AdjudicationPercentage}, nil
	case PlanTypeImmediate:
		return ImmediatePlan{DownPaymentPercentage: p.DownPaymentPercentage}, nil
	default:
		return nil, &UnsupportedPlanError{PlanType: p.PlanType}
	}
}

// TermInBounds reports whether months lies in [MinTerm, MaxTerm]
func (p *FinancingPlan) TermInBounds(months int) bool {
	return months >= p.MinTerm && months <= p.MaxTerm
}

// Validate checks the plan invariants. maxTerm is the configured ceiling.
func (p *FinancingPlan) Validate(maxTerm int) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlanDefinition)
	}
	if len(name) > MaxPlanNameLength {
		return fmt.Errorf("%w: name must be %d characters or less", ErrInvalidPlanDefinition, MaxPlanNameLength)
	}
	if _, err := p.Variant(); err != nil {
		return err
	}
	if p.MinTerm <= 0 {
		return fmt.Errorf("%w: min term must be positive", ErrInvalidPlanDefinition)
	}
	if p.MinTerm > p.MaxTerm {
		return fmt.Errorf("%w: min term %d exceeds max term %d", ErrInvalidPlanDefinition, p.MinTerm, p.MaxTerm)
	}
	if maxTerm > 0 && p.MaxTerm > maxTerm {
		return fmt.Errorf("%w: max term must be at most %d months", ErrInvalidPlanDefinition, maxTerm)
	}
	if p.AnnualInterestRate.IsNegative() {
		return fmt.Errorf("%w: interest rate must not be negative", ErrInvalidPlanDefinition)
	}
	if !isPercentage(p.AdjudicationPercentage) {
		return fmt.Errorf("%w: adjudication percentage must be between 0 and 100", ErrInvalidPlanDefinition)
	}
	if !isPercentage(p.DownPaymentPercentage) {
		return fmt.Errorf("%w: down payment percentage must be between 0 and 100", ErrInvalidPlanDefinition)
	}
	return nil
}

func isPercentage(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(hundredPercent)
}

// PlanRequirement is a document or condition a plan asks of applicants
type PlanRequirement struct {
	ID          int32  `json:"id"`
	PlanID      int32  `json:"planId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsMandatory bool   `json:"isMandatory"`
}

// FinancingPlanRepository defines the interface for plan persistence operations
type FinancingPlanRepository interface {
	GetByID(ctx context.Context, id int32) (*FinancingPlan, error)
	ListActive(ctx context.Context) ([]*FinancingPlan, error)
	Create(ctx context.Context, plan *FinancingPlan) (*FinancingPlan, error)
	Update(ctx context.Context, plan *FinancingPlan) (*FinancingPlan, error)
	ListRequirements(ctx context.Context, planID int32) ([]*PlanRequirement, error)
}
