package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

const simulationColumns = `id, user_id, product_id, plan_id, plan_type, term_months, total_price,
	down_payment, monthly_payment, adjudication_month, adjudication_payment, total_interest,
	total_amount, created_at`

var scheduleLineColumns = []string{
	"simulation_id", "payment_number", "due_date", "principal", "interest",
	"total_payment", "remaining_balance", "is_adjudication",
}

// SimulationRepository implements domain.SimulationRepository using PostgreSQL
type SimulationRepository struct {
	pool *pgxpool.Pool
}

// NewSimulationRepository creates a new SimulationRepository
func NewSimulationRepository(pool *pgxpool.Pool) *SimulationRepository {
	return &SimulationRepository{pool: pool}
}

// Create inserts the simulation header and bulk-copies its schedule lines in
// one transaction
func (r *SimulationRepository) Create(ctx context.Context, sim *domain.FinancingSimulation) (*domain.FinancingSimulation, error) {
	n, err := numerics(sim.TotalPrice, sim.DownPayment, sim.MonthlyPayment, sim.TotalInterest, sim.TotalAmount)
	if err != nil {
		return nil, err
	}
	adjPayment, err := decimalPtrToPgNumeric(sim.AdjudicationPayment)
	if err != nil {
		return nil, err
	}

	var saved *domain.FinancingSimulation
	err = WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO financing_simulations (user_id, product_id, plan_id, plan_type, term_months,
				total_price, down_payment, monthly_payment, adjudication_month, adjudication_payment,
				total_interest, total_amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, NOW()))
			RETURNING `+simulationColumns,
			uuidToPg(sim.UserID), sim.ProductID, sim.PlanID, string(sim.PlanType), sim.TermMonths,
			n[0], n[1], n[2], intPtrToPg(sim.AdjudicationMonth), adjPayment,
			n[3], n[4], nullableTime(sim.CreatedAt),
		)
		header, err := scanSimulation(row)
		if err != nil {
			return err
		}

		rows, err := scheduleLineRows(header.ID, sim.Lines)
		if err != nil {
			return err
		}
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"simulation_schedule_lines"}, scheduleLineColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy schedule lines: %w", err)
		}
		if int(copied) != len(sim.Lines) {
			return fmt.Errorf("copy schedule lines: wrote %d of %d", copied, len(sim.Lines))
		}

		header.Lines = make([]domain.PaymentScheduleLine, len(sim.Lines))
		copy(header.Lines, sim.Lines)
		saved = header
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// GetByID retrieves a simulation with its lines, scoped to the owner
func (r *SimulationRepository) GetByID(ctx context.Context, userID uuid.UUID, id int32) (*domain.FinancingSimulation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+simulationColumns+`
		FROM financing_simulations
		WHERE id = $1 AND user_id = $2`, id, uuidToPg(userID))
	sim, err := scanSimulation(row)
	if err != nil {
		return nil, notFound(err, domain.ErrSimulationNotFound)
	}

	lines, err := r.listLines(ctx, sim.ID)
	if err != nil {
		return nil, err
	}
	sim.Lines = lines
	return sim, nil
}

// ListByUser retrieves the user's most recent simulations without lines
func (r *SimulationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.FinancingSimulation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+simulationColumns+`
		FROM financing_simulations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, uuidToPg(userID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sims := make([]*domain.FinancingSimulation, 0)
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		sims = append(sims, sim)
	}
	return sims, rows.Err()
}

func (r *SimulationRepository) listLines(ctx context.Context, simulationID int32) ([]domain.PaymentScheduleLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_number, due_date, principal, interest, total_payment, remaining_balance, is_adjudication
		FROM simulation_schedule_lines
		WHERE simulation_id = $1
		ORDER BY payment_number`, simulationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.PaymentScheduleLine, 0)
	for rows.Next() {
		var (
			line                               domain.PaymentScheduleLine
			number                             int32
			principal, interest, total, remain pgtype.Numeric
		)
		if err := rows.Scan(&number, &line.DueDate, &principal, &interest, &total, &remain, &line.IsAdjudication); err != nil {
			return nil, err
		}
		line.PaymentNumber = int(number)
		line.Principal = pgNumericToDecimal(principal)
		line.Interest = pgNumericToDecimal(interest)
		line.TotalPayment = pgNumericToDecimal(total)
		line.RemainingBalance = pgNumericToDecimal(remain)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scheduleLineRows(simulationID int32, lines []domain.PaymentScheduleLine) ([][]any, error) {
	rows := make([][]any, 0, len(lines))
	for _, line := range lines {
		n, err := numerics(line.Principal, line.Interest, line.TotalPayment, line.RemainingBalance)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{
			simulationID, int32(line.PaymentNumber), line.DueDate,
			n[0], n[1], n[2], n[3], line.IsAdjudication,
		})
	}
	return rows, nil
}

func scanSimulation(row pgx.Row) (*domain.FinancingSimulation, error) {
	var (
		s                              domain.FinancingSimulation
		userID                         pgtype.UUID
		planType                       string
		term                           int32
		price, down, monthly, interest pgtype.Numeric
		total, adjPayment              pgtype.Numeric
		adjMonth                       pgtype.Int4
	)
	if err := row.Scan(&s.ID, &userID, &s.ProductID, &s.PlanID, &planType, &term, &price,
		&down, &monthly, &adjMonth, &adjPayment, &interest, &total, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.UserID = uuid.UUID(userID.Bytes)
	s.PlanType = domain.PlanType(planType)
	s.TermMonths = int(term)
	s.TotalPrice = pgNumericToDecimal(price)
	s.DownPayment = pgNumericToDecimal(down)
	s.MonthlyPayment = pgNumericToDecimal(monthly)
	s.AdjudicationMonth = pgInt4ToIntPtr(adjMonth)
	s.AdjudicationPayment = pgNumericToDecimalPtr(adjPayment)
	s.TotalInterest = pgNumericToDecimal(interest)
	s.TotalAmount = pgNumericToDecimal(total)
	return &s, nil
}
