package service

import (
	"fmt"
	"time"

	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/money"
	"github.com/llevateloexpress/financing-backend/internal/util"
	"github.com/shopspring/decimal"
)

// AmortizationInput is the fully resolved input of a schedule calculation
type AmortizationInput struct {
	PlanID     int32
	Price      decimal.Decimal
	TermMonths int
	AnnualRate decimal.Decimal
	Variant    domain.PlanVariant

	// DownPayment applies to immediate plans. Nil means the plan minimum.
	DownPayment *decimal.Decimal

	StartDate            time.Time
	FirstDueOffsetMonths int
	// MaxTermMonths caps the schedule length; zero means the default ceiling.
	MaxTermMonths int
}

// CalculateSchedule computes the payment schedule for either plan variant.
// It has no side effects; identical input always yields an identical result.
func CalculateSchedule(in AmortizationInput) (*domain.ScheduleResult, error) {
	if !in.Price.IsPositive() {
		return nil, &domain.InvalidPriceError{Price: in.Price}
	}
	maxTerm := in.MaxTermMonths
	if maxTerm <= 0 {
		maxTerm = domain.DefaultMaxTermMonths
	}
	if in.TermMonths < 1 || in.TermMonths > maxTerm {
		return nil, &domain.InvalidTermError{Term: in.TermMonths, Min: 1, Max: maxTerm}
	}
	if in.AnnualRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate must not be negative", domain.ErrInvalidInput)
	}

	switch v := in.Variant.(type) {
	case domain.ImmediatePlan:
		return calculateImmediate(in, v)
	case domain.ProgrammedPlan:
		return calculateProgrammed(in, v)
	default:
		var planType domain.PlanType
		if v != nil {
			planType = v.Type()
		}
		return nil, &domain.UnsupportedPlanError{PlanType: planType}
	}
}

// MinimumDownPayment is the smallest down payment an immediate plan accepts,
// rounded to cents.
func MinimumDownPayment(price decimal.Decimal, plan domain.ImmediatePlan) decimal.Decimal {
	return money.Round(money.Percent(price, plan.DownPaymentPercentage))
}

// resolveDownPayment applies the plan minimum when no down payment is given
// and rejects amounts below it.
func resolveDownPayment(price decimal.Decimal, plan domain.ImmediatePlan, provided *decimal.Decimal) (decimal.Decimal, error) {
	minimum := MinimumDownPayment(price, plan)
	if provided == nil {
		return minimum, nil
	}
	dp := *provided
	if dp.LessThan(minimum) {
		return decimal.Zero, &domain.InsufficientDownPaymentError{
			Provided:  dp,
			Minimum:   minimum,
			Shortfall: minimum.Sub(dp),
		}
	}
	if dp.GreaterThanOrEqual(price) {
		return decimal.Zero, fmt.Errorf("%w: down payment must be less than the product price", domain.ErrInvalidInput)
	}
	return money.Round(dp), nil
}

// calculateImmediate amortizes price minus down payment with the annuity
// formula. Output amounts follow the rounded balance: each line's principal is
// the drop in rounded balance, so principals sum to the financed amount and
// the last balance is exactly zero.
func calculateImmediate(in AmortizationInput, plan domain.ImmediatePlan) (*domain.ScheduleResult, error) {
	price := money.Round(in.Price)
	downPayment, err := resolveDownPayment(price, plan, in.DownPayment)
	if err != nil {
		return nil, err
	}
	financed := price.Sub(downPayment)
	rate := money.Working(money.MonthlyRate(in.AnnualRate))
	n := in.TermMonths

	payment := annuityPayment(financed, rate, n)

	lines := make([]domain.PaymentScheduleLine, 0, n)
	remaining := financed
	prevBalance := financed
	totalInterest := decimal.Zero
	totalPaid := decimal.Zero

	for i := 1; i <= n; i++ {
		interest := money.Working(remaining.Mul(rate))
		principal := payment.Sub(interest)
		if i == n {
			principal = remaining
		}
		remaining = money.ClampZero(remaining.Sub(principal))

		balance := money.Round(remaining)
		principalOut := prevBalance.Sub(balance)
		interestOut := money.Round(interest)
		line := domain.PaymentScheduleLine{
			PaymentNumber:    i,
			DueDate:          dueDate(in, i),
			Principal:        principalOut,
			Interest:         interestOut,
			TotalPayment:     principalOut.Add(interestOut),
			RemainingBalance: balance,
		}
		lines = append(lines, line)

		prevBalance = balance
		totalInterest = totalInterest.Add(interestOut)
		totalPaid = totalPaid.Add(line.TotalPayment)
	}

	return &domain.ScheduleResult{
		PlanID:             in.PlanID,
		PlanType:           domain.PlanTypeImmediate,
		ProductPrice:       price,
		TermMonths:         n,
		AnnualInterestRate: in.AnnualRate,
		StartDate:          util.DateOnly(in.StartDate),
		DownPayment:        downPayment,
		FinancedAmount:     financed,
		MonthlyPayment:     money.Round(payment),
		TotalInterest:      totalInterest,
		TotalAmount:        downPayment.Add(totalPaid),
		Lines:              lines,
	}, nil
}

// annuityPayment returns the level monthly payment for amount over n months.
// A zero rate splits the amount evenly.
func annuityPayment(amount, rate decimal.Decimal, n int) decimal.Decimal {
	months := decimal.NewFromInt(int64(n))
	if rate.IsZero() {
		return money.Working(amount.Div(months))
	}
	growth := compound(rate, n)
	return money.Working(amount.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))))
}

// compound returns (1+rate)^n at working precision
func compound(rate decimal.Decimal, n int) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(rate)
	result := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		result = money.Working(result.Mul(factor))
	}
	return result
}

// calculateProgrammed models the interest-free accumulation plan. The customer
// contributes adjudication_amount/term each month; on the first month the
// rounded cumulative contribution reaches the adjudication amount, a lump
// payment brings the outlay up to the full price.
func calculateProgrammed(in AmortizationInput, plan domain.ProgrammedPlan) (*domain.ScheduleResult, error) {
	price := money.Round(in.Price)
	adjudicationAmount := money.Round(money.Percent(price, plan.AdjudicationPercentage))
	n := in.TermMonths
	contribution := money.Working(adjudicationAmount.Div(decimal.NewFromInt(int64(n))))

	// rounded cumulative contribution after each month
	cumulative := make([]decimal.Decimal, n+1)
	cumulative[0] = decimal.Zero
	adjudicationMonth := n
	found := false
	for i := 1; i <= n; i++ {
		cumulative[i] = money.Round(contribution.Mul(decimal.NewFromInt(int64(i))))
		if !found && cumulative[i].GreaterThanOrEqual(adjudicationAmount) {
			adjudicationMonth = i
			found = true
		}
	}
	lump := money.ClampZero(price.Sub(cumulative[adjudicationMonth]))

	lines := make([]domain.PaymentScheduleLine, 0, n)
	totalPaid := decimal.Zero
	for i := 1; i <= n; i++ {
		principal := cumulative[i].Sub(cumulative[i-1])
		line := domain.PaymentScheduleLine{
			PaymentNumber:    i,
			DueDate:          dueDate(in, i),
			Principal:        principal,
			Interest:         decimal.Zero,
			TotalPayment:     principal,
			RemainingBalance: money.ClampZero(price.Sub(cumulative[i])),
		}
		if i == adjudicationMonth {
			line.IsAdjudication = true
			line.TotalPayment = principal.Add(lump)
		}
		lines = append(lines, line)
		totalPaid = totalPaid.Add(line.TotalPayment)
	}

	month := adjudicationMonth
	return &domain.ScheduleResult{
		PlanID:              in.PlanID,
		PlanType:            domain.PlanTypeProgrammed,
		ProductPrice:        price,
		TermMonths:          n,
		AnnualInterestRate:  in.AnnualRate,
		StartDate:           util.DateOnly(in.StartDate),
		DownPayment:         decimal.Zero,
		FinancedAmount:      price,
		MonthlyPayment:      money.Round(contribution),
		AdjudicationAmount:  &adjudicationAmount,
		AdjudicationMonth:   &month,
		AdjudicationPayment: &lump,
		TotalInterest:       decimal.Zero,
		TotalAmount:         totalPaid,
		Lines:               lines,
	}, nil
}

func dueDate(in AmortizationInput, paymentNumber int) time.Time {
	return util.AddMonths(util.DateOnly(in.StartDate), in.FirstDueOffsetMonths+paymentNumber-1)
}
