package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancingSimulation is a saved calculation. It is written once and never
// updated; recomputing produces a new simulation.
type FinancingSimulation struct {
	ID                  int32                 `json:"id"`
	UserID              uuid.UUID             `json:"userId"`
	ProductID           int32                 `json:"productId"`
	PlanID              int32                 `json:"planId"`
	PlanType            PlanType              `json:"planType"`
	TermMonths          int                   `json:"termMonths"`
	TotalPrice          decimal.Decimal       `json:"totalPrice"`
	DownPayment         decimal.Decimal       `json:"downPayment"`
	MonthlyPayment      decimal.Decimal       `json:"monthlyPayment"`
	AdjudicationMonth   *int                  `json:"adjudicationMonth,omitempty"`
	AdjudicationPayment *decimal.Decimal      `json:"adjudicationPayment,omitempty"`
	TotalInterest       decimal.Decimal       `json:"totalInterest"`
	TotalAmount         decimal.Decimal       `json:"totalAmount"`
	CreatedAt           time.Time             `json:"createdAt"`
	Lines               []PaymentScheduleLine `json:"lines,omitempty"`
}

// NewSimulation builds an unsaved simulation from a calculation result
func NewSimulation(userID uuid.UUID, productID int32, result *ScheduleResult) *FinancingSimulation {
	lines := make([]PaymentScheduleLine, len(result.Lines))
	copy(lines, result.Lines)

	sim := &FinancingSimulation{
		UserID:         userID,
		ProductID:      productID,
		PlanID:         result.PlanID,
		PlanType:       result.PlanType,
		TermMonths:     result.TermMonths,
		TotalPrice:     result.ProductPrice,
		DownPayment:    result.DownPayment,
		MonthlyPayment: result.MonthlyPayment,
		TotalInterest:  result.TotalInterest,
		TotalAmount:    result.TotalAmount,
		Lines:          lines,
	}
	if result.PlanType == PlanTypeProgrammed {
		sim.DownPayment = decimal.Zero
		if result.AdjudicationMonth != nil {
			month := *result.AdjudicationMonth
			sim.AdjudicationMonth = &month
		}
		if result.AdjudicationPayment != nil {
			payment := *result.AdjudicationPayment
			sim.AdjudicationPayment = &payment
		}
	}
	return sim
}

// SimulationRepository defines the interface for simulation persistence.
// There is deliberately no update or delete.
type SimulationRepository interface {
	// Create inserts the simulation and its schedule lines atomically.
	Create(ctx context.Context, sim *FinancingSimulation) (*FinancingSimulation, error)
	// GetByID returns the simulation with its lines, scoped to the owner.
	GetByID(ctx context.Context, userID uuid.UUID, id int32) (*FinancingSimulation, error)
	// ListByUser returns the user's simulations, most recent first, without lines.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*FinancingSimulation, error)
}
