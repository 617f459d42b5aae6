package service

import (
	"context"
	"strings"

	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// PlanService handles the financing plan catalog
type PlanService struct {
	planRepo domain.FinancingPlanRepository
	cfg      domain.FinancingConfig
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo domain.FinancingPlanRepository, cfg domain.FinancingConfig) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		cfg:      cfg.Normalize(),
	}
}

// PlanInput contains the editable fields of a plan
type PlanInput struct {
	Name                   string
	Description            string
	PlanType               domain.PlanType
	MinTerm                int
	MaxTerm                int
	AnnualInterestRate     decimal.Decimal
	AdjudicationPercentage decimal.Decimal
	DownPaymentPercentage  decimal.Decimal
	IsActive               bool
}

func (in PlanInput) toPlan() *domain.FinancingPlan {
	plan := &domain.FinancingPlan{
		Name:               strings.TrimSpace(in.Name),
		Description:        strings.TrimSpace(in.Description),
		PlanType:           in.PlanType,
		MinTerm:            in.MinTerm,
		MaxTerm:            in.MaxTerm,
		AnnualInterestRate: in.AnnualInterestRate,
		IsActive:           in.IsActive,
	}
	// Only the variant's own percentage is kept
	switch in.PlanType {
	case domain.PlanTypeProgrammed:
		plan.AdjudicationPercentage = in.AdjudicationPercentage
	case domain.PlanTypeImmediate:
		plan.DownPaymentPercentage = in.DownPaymentPercentage
	}
	return plan
}

// ListActive returns the plans customers can calculate against
func (s *PlanService) ListActive(ctx context.Context) ([]*domain.FinancingPlan, error) {
	return s.planRepo.ListActive(ctx)
}

// GetPlan retrieves a plan by ID
func (s *PlanService) GetPlan(ctx context.Context, id int32) (*domain.FinancingPlan, error) {
	return s.planRepo.GetByID(ctx, id)
}

// CreatePlan validates and stores a new plan
func (s *PlanService) CreatePlan(ctx context.Context, input PlanInput) (*domain.FinancingPlan, error) {
	plan := input.toPlan()
	if err := plan.Validate(s.cfg.MaxTermMonths); err != nil {
		return nil, err
	}
	return s.planRepo.Create(ctx, plan)
}

// UpdatePlan replaces the editable fields of an existing plan. Saved
// simulations and applications keep the terms they were computed with.
func (s *PlanService) UpdatePlan(ctx context.Context, id int32, input PlanInput) (*domain.FinancingPlan, error) {
	existing, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	plan := input.toPlan()
	plan.ID = existing.ID
	plan.CreatedAt = existing.CreatedAt
	if err := plan.Validate(s.cfg.MaxTermMonths); err != nil {
		return nil, err
	}
	return s.planRepo.Update(ctx, plan)
}

// ListRequirements returns the requirements of an existing plan
func (s *PlanService) ListRequirements(ctx context.Context, planID int32) ([]*domain.PlanRequirement, error) {
	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.planRepo.ListRequirements(ctx, planID)
}
