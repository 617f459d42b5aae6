package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/metrics"
)

// FinancingService runs calculations and manages saved simulations
type FinancingService struct {
	planRepo       domain.FinancingPlanRepository
	simulationRepo domain.SimulationRepository
	validator      *CalculationValidator
	cfg            domain.FinancingConfig
	metrics        *metrics.Metrics
}

// NewFinancingService creates a new FinancingService
func NewFinancingService(
	planRepo domain.FinancingPlanRepository,
	simulationRepo domain.SimulationRepository,
	cfg domain.FinancingConfig,
	m *metrics.Metrics,
) *FinancingService {
	cfg = cfg.Normalize()
	return &FinancingService{
		planRepo:       planRepo,
		simulationRepo: simulationRepo,
		validator:      NewCalculationValidator(cfg),
		cfg:            cfg,
		metrics:        m,
	}
}

// Calculate validates the request against its plan and computes the schedule
func (s *FinancingService) Calculate(ctx context.Context, req domain.CalculationRequest) (*domain.ScheduleResult, error) {
	plan, err := s.planRepo.GetByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			s.metrics.ObserveCalculation("unknown", metrics.OutcomeRejected)
		}
		return nil, err
	}

	input, err := s.validator.Validate(plan, req)
	if err != nil {
		s.metrics.ObserveCalculation(string(plan.PlanType), metrics.OutcomeRejected)
		return nil, err
	}

	result, err := CalculateSchedule(*input)
	if err != nil {
		s.metrics.ObserveCalculation(string(plan.PlanType), metrics.OutcomeRejected)
		return nil, err
	}
	s.metrics.ObserveCalculation(string(result.PlanType), metrics.OutcomeOK)
	return result, nil
}

// SimulateInput contains input for calculating and saving a simulation
type SimulateInput struct {
	ProductID int32
	Request   domain.CalculationRequest
}

// Simulate recomputes the schedule server-side and saves it for the user
func (s *FinancingService) Simulate(ctx context.Context, userID uuid.UUID, input SimulateInput) (*domain.FinancingSimulation, error) {
	result, err := s.Calculate(ctx, input.Request)
	if err != nil {
		return nil, err
	}
	return s.SaveSimulation(ctx, userID, input.ProductID, result)
}

// SaveSimulation persists a calculated schedule as an immutable simulation
func (s *FinancingService) SaveSimulation(ctx context.Context, userID uuid.UUID, productID int32, result *domain.ScheduleResult) (*domain.FinancingSimulation, error) {
	if result == nil || len(result.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if productID <= 0 {
		return nil, domain.ErrInvalidInput
	}

	sim := domain.NewSimulation(userID, productID, result)
	sim.CreatedAt = time.Now().UTC()

	saved, err := s.simulationRepo.Create(ctx, sim)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSimulationSaved(string(saved.PlanType))
	return saved, nil
}

// GetSimulation returns one of the user's simulations with its schedule lines
func (s *FinancingService) GetSimulation(ctx context.Context, userID uuid.UUID, id int32) (*domain.FinancingSimulation, error) {
	return s.simulationRepo.GetByID(ctx, userID, id)
}

// ListSimulations returns the user's most recent simulations. A non-positive
// limit uses the configured default; limits above the maximum are capped.
func (s *FinancingService) ListSimulations(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.FinancingSimulation, error) {
	if limit <= 0 {
		limit = s.cfg.SimulationListLimit
	}
	if limit > domain.MaxSimulationListLimit {
		limit = domain.MaxSimulationListLimit
	}
	return s.simulationRepo.ListByUser(ctx, userID, limit)
}
