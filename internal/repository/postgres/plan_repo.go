package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

const planColumns = `id, name, description, plan_type, min_term, max_term, annual_interest_rate,
	adjudication_percentage, down_payment_percentage, is_active, created_at, updated_at`

// FinancingPlanRepository implements domain.FinancingPlanRepository using PostgreSQL
type FinancingPlanRepository struct {
	pool *pgxpool.Pool
}

// NewFinancingPlanRepository creates a new FinancingPlanRepository
func NewFinancingPlanRepository(pool *pgxpool.Pool) *FinancingPlanRepository {
	return &FinancingPlanRepository{pool: pool}
}

// GetByID retrieves a plan by its ID
func (r *FinancingPlanRepository) GetByID(ctx context.Context, id int32) (*domain.FinancingPlan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM financing_plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		return nil, notFound(err, domain.ErrPlanNotFound)
	}
	return plan, nil
}

// ListActive retrieves all active plans ordered by ID
func (r *FinancingPlanRepository) ListActive(ctx context.Context) ([]*domain.FinancingPlan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM financing_plans WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]*domain.FinancingPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// Create inserts a new plan
func (r *FinancingPlanRepository) Create(ctx context.Context, plan *domain.FinancingPlan) (*domain.FinancingPlan, error) {
	n, err := numerics(plan.AnnualInterestRate, plan.AdjudicationPercentage, plan.DownPaymentPercentage)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO financing_plans (name, description, plan_type, min_term, max_term,
			annual_interest_rate, adjudication_percentage, down_payment_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+planColumns,
		plan.Name, plan.Description, string(plan.PlanType), plan.MinTerm, plan.MaxTerm,
		n[0], n[1], n[2], plan.IsActive,
	)
	return scanPlan(row)
}

// Update replaces the editable fields of a plan
func (r *FinancingPlanRepository) Update(ctx context.Context, plan *domain.FinancingPlan) (*domain.FinancingPlan, error) {
	n, err := numerics(plan.AnnualInterestRate, plan.AdjudicationPercentage, plan.DownPaymentPercentage)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE financing_plans
		SET name = $2, description = $3, plan_type = $4, min_term = $5, max_term = $6,
			annual_interest_rate = $7, adjudication_percentage = $8, down_payment_percentage = $9,
			is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+planColumns,
		plan.ID, plan.Name, plan.Description, string(plan.PlanType), plan.MinTerm, plan.MaxTerm,
		n[0], n[1], n[2], plan.IsActive,
	)
	updated, err := scanPlan(row)
	if err != nil {
		return nil, notFound(err, domain.ErrPlanNotFound)
	}
	return updated, nil
}

// ListRequirements retrieves the requirements of a plan
func (r *FinancingPlanRepository) ListRequirements(ctx context.Context, planID int32) ([]*domain.PlanRequirement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, plan_id, name, description, is_mandatory
		FROM plan_requirements
		WHERE plan_id = $1
		ORDER BY id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := make([]*domain.PlanRequirement, 0)
	for rows.Next() {
		var req domain.PlanRequirement
		if err := rows.Scan(&req.ID, &req.PlanID, &req.Name, &req.Description, &req.IsMandatory); err != nil {
			return nil, err
		}
		reqs = append(reqs, &req)
	}
	return reqs, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.FinancingPlan, error) {
	var (
		p                     domain.FinancingPlan
		planType              string
		rate, adjPct, downPct pgtype.Numeric
		minTerm, maxTerm      int32
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &planType, &minTerm, &maxTerm,
		&rate, &adjPct, &downPct, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PlanType = domain.PlanType(planType)
	p.MinTerm = int(minTerm)
	p.MaxTerm = int(maxTerm)
	p.AnnualInterestRate = pgNumericToDecimal(rate)
	p.AdjudicationPercentage = pgNumericToDecimal(adjPct)
	p.DownPaymentPercentage = pgNumericToDecimal(downPct)
	return &p, nil
}
