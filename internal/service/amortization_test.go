package service

import (
	"errors"
	"testing"
	"time"

	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleStart = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual.String(), msgAndArgs)
}

func immediateInput(price string, rate string, term int, dpPct string, dp *decimal.Decimal) AmortizationInput {
	return AmortizationInput{
		PlanID:      2,
		Price:       dec(price),
		TermMonths:  term,
		AnnualRate:  dec(rate),
		Variant:     domain.ImmediatePlan{DownPaymentPercentage: dec(dpPct)},
		DownPayment: dp,
		StartDate:   scheduleStart,
	}
}

func programmedInput(price string, pct string, term int) AmortizationInput {
	return AmortizationInput{
		PlanID:     1,
		Price:      dec(price),
		TermMonths: term,
		AnnualRate: decimal.Zero,
		Variant:    domain.ProgrammedPlan{AdjudicationPercentage: dec(pct)},
		StartDate:  scheduleStart,
	}
}

func TestCalculateSchedule_ImmediateExample(t *testing.T) {
	result, err := CalculateSchedule(immediateInput("10000", "12", 12, "30", decPtr("3000")))
	require.NoError(t, err)

	assert.Equal(t, domain.PlanTypeImmediate, result.PlanType)
	assertDecimal(t, "3000", result.DownPayment)
	assertDecimal(t, "7000", result.FinancedAmount)
	assertDecimal(t, "621.94", result.MonthlyPayment)
	require.Len(t, result.Lines, 12)

	first := result.Lines[0]
	assertDecimal(t, "70.00", first.Interest)
	assertDecimal(t, "551.94", first.Principal)
	assertDecimal(t, "621.94", first.TotalPayment)
	assertDecimal(t, "6448.06", first.RemainingBalance)

	last := result.FinalLine()
	assertDecimal(t, "0", last.RemainingBalance)
	assertDecimal(t, "615.78", last.Principal)
	assertDecimal(t, "6.16", last.Interest)

	assertDecimal(t, "463.31", result.TotalInterest)
	assertDecimal(t, "10463.31", result.TotalAmount)
}

func TestCalculateSchedule_ImmediateDefaultsToMinimumDownPayment(t *testing.T) {
	result, err := CalculateSchedule(immediateInput("10000", "12", 12, "30", nil))
	require.NoError(t, err)

	assertDecimal(t, "3000", result.DownPayment)
	assertDecimal(t, "7000", result.FinancedAmount)
}

func TestCalculateSchedule_ImmediateZeroRate(t *testing.T) {
	result, err := CalculateSchedule(immediateInput("1000", "0", 3, "0", nil))
	require.NoError(t, err)

	assertDecimal(t, "333.33", result.MonthlyPayment)
	expected := []struct{ principal, balance string }{
		{"333.33", "666.67"},
		{"333.34", "333.33"},
		{"333.33", "0"},
	}
	for i, e := range expected {
		line := result.Lines[i]
		assertDecimal(t, e.principal, line.Principal, "line %d", i+1)
		assertDecimal(t, e.balance, line.RemainingBalance, "line %d", i+1)
		assertDecimal(t, "0", line.Interest, "line %d", i+1)
	}
	assertDecimal(t, "0", result.TotalInterest)
	assertDecimal(t, "1000", result.TotalAmount)
}

func TestCalculateSchedule_ImmediateLedgerProperties(t *testing.T) {
	tests := []struct {
		price, rate, dpPct string
		term               int
	}{
		{"10000", "12", "30", 12},
		{"23999.99", "18.5", "20", 60},
		{"8750.50", "9.99", "15", 36},
		{"150000", "24", "35", 120},
		{"999.99", "0", "10", 7},
		{"45000", "0.5", "0", 1},
		{"12345.67", "33.3", "50", 48},
	}

	for _, tt := range tests {
		t.Run(tt.price+"/"+tt.rate, func(t *testing.T) {
			result, err := CalculateSchedule(immediateInput(tt.price, tt.rate, tt.term, tt.dpPct, nil))
			require.NoError(t, err)
			require.Len(t, result.Lines, tt.term)

			principal := decimal.Zero
			interest := decimal.Zero
			paid := decimal.Zero
			prev := result.FinancedAmount
			for i, line := range result.Lines {
				assert.Equal(t, i+1, line.PaymentNumber)
				assert.False(t, line.IsAdjudication)
				assert.False(t, line.Principal.IsNegative(), "line %d principal", i+1)
				assert.False(t, line.Interest.IsNegative(), "line %d interest", i+1)
				assert.True(t, line.RemainingBalance.LessThanOrEqual(prev), "line %d balance increased", i+1)
				assert.True(t, line.TotalPayment.Equal(line.Principal.Add(line.Interest)))
				assert.True(t, line.Principal.Equal(line.Principal.Round(2)), "line %d principal not in cents", i+1)
				prev = line.RemainingBalance
				principal = principal.Add(line.Principal)
				interest = interest.Add(line.Interest)
				paid = paid.Add(line.TotalPayment)
			}

			assertDecimal(t, "0", result.FinalLine().RemainingBalance)
			assert.True(t, principal.Equal(result.FinancedAmount), "principal %s != financed %s", principal, result.FinancedAmount)
			assert.True(t, interest.Equal(result.TotalInterest))
			assert.True(t, result.TotalAmount.Equal(result.DownPayment.Add(paid)))
		})
	}
}

func TestCalculateSchedule_ImmediateDownPaymentErrors(t *testing.T) {
	_, err := CalculateSchedule(immediateInput("10000", "12", 12, "30", decPtr("2500")))
	var short *domain.InsufficientDownPaymentError
	require.True(t, errors.As(err, &short))
	assertDecimal(t, "2500", short.Provided)
	assertDecimal(t, "3000", short.Minimum)
	assertDecimal(t, "500", short.Shortfall)

	_, err = CalculateSchedule(immediateInput("10000", "12", 12, "30", decPtr("10000")))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalculateSchedule_ProgrammedExample(t *testing.T) {
	result, err := CalculateSchedule(programmedInput("12000", "45", 24))
	require.NoError(t, err)

	assert.Equal(t, domain.PlanTypeProgrammed, result.PlanType)
	assertDecimal(t, "5400", *result.AdjudicationAmount)
	assertDecimal(t, "225.00", result.MonthlyPayment)
	require.NotNil(t, result.AdjudicationMonth)
	assert.Equal(t, 24, *result.AdjudicationMonth)
	assertDecimal(t, "6600", *result.AdjudicationPayment)
	assertDecimal(t, "0", result.DownPayment)
	assertDecimal(t, "0", result.TotalInterest)
	assertDecimal(t, "12000", result.TotalAmount)

	adjudication := result.AdjudicationLine()
	require.NotNil(t, adjudication)
	assert.Equal(t, 24, adjudication.PaymentNumber)
	assertDecimal(t, "6825", adjudication.TotalPayment)
	assertDecimal(t, "6600", adjudication.RemainingBalance)
	assertDecimal(t, "11775", result.Lines[0].RemainingBalance)
}

func TestCalculateSchedule_ProgrammedRoundingBoundary(t *testing.T) {
	tests := []struct {
		name        string
		price, pct  string
		term        int
		month       int
		lump        string
		firstAmount string
	}{
		// 4500/7 rounds up at working precision
		{"contribution rounds up", "10000", "45", 7, 7, "5500", "642.86"},
		// 1000/3 rounds down; cumulative stays a hair under the threshold
		// until cents rounding reaches it in the final month
		{"contribution rounds down", "1000", "100", 3, 3, "0", "333.33"},
		{"exact division", "12000", "45", 24, 24, "6600", "225.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculateSchedule(programmedInput(tt.price, tt.pct, tt.term))
			require.NoError(t, err)

			flagged := 0
			cumulative := decimal.Zero
			firstReached := 0
			for _, line := range result.Lines {
				cumulative = cumulative.Add(line.Principal)
				if firstReached == 0 && cumulative.GreaterThanOrEqual(*result.AdjudicationAmount) {
					firstReached = line.PaymentNumber
				}
				if line.IsAdjudication {
					flagged++
				}
			}
			assert.Equal(t, 1, flagged)
			assert.Equal(t, tt.month, *result.AdjudicationMonth)
			assert.Equal(t, firstReached, *result.AdjudicationMonth)
			assert.Equal(t, tt.month, result.AdjudicationLine().PaymentNumber)
			assertDecimal(t, tt.lump, *result.AdjudicationPayment)
			assertDecimal(t, tt.firstAmount, result.Lines[0].Principal)
			assertDecimal(t, tt.price, result.TotalAmount)
		})
	}
}

func TestCalculateSchedule_ProgrammedBalanceNonIncreasing(t *testing.T) {
	result, err := CalculateSchedule(programmedInput("31999.99", "37.5", 40))
	require.NoError(t, err)

	prev := result.ProductPrice
	for _, line := range result.Lines {
		assert.True(t, line.RemainingBalance.LessThanOrEqual(prev))
		assertDecimal(t, "0", line.Interest)
		prev = line.RemainingBalance
	}
	final := result.FinalLine()
	cumulative := decimal.Zero
	for _, line := range result.Lines {
		cumulative = cumulative.Add(line.Principal)
	}
	assert.True(t, final.RemainingBalance.Equal(result.ProductPrice.Sub(cumulative)))
}

func TestCalculateSchedule_DueDates(t *testing.T) {
	result, err := CalculateSchedule(programmedInput("1200", "50", 4))
	require.NoError(t, err)

	expected := []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"}
	for i, want := range expected {
		assert.Equal(t, want, result.Lines[i].DueDate.Format("2006-01-02"))
	}

	in := programmedInput("1200", "50", 2)
	in.FirstDueOffsetMonths = 1
	result, err = CalculateSchedule(in)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", result.Lines[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, "2026-03-31", result.Lines[1].DueDate.Format("2006-01-02"))
}

func TestCalculateSchedule_Errors(t *testing.T) {
	price := immediateInput("0", "12", 12, "30", nil)
	_, err := CalculateSchedule(price)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	negative := immediateInput("-5", "12", 12, "30", nil)
	_, err = CalculateSchedule(negative)
	var invalidPrice *domain.InvalidPriceError
	require.True(t, errors.As(err, &invalidPrice))
	assertDecimal(t, "-5", invalidPrice.Price)

	term := immediateInput("1000", "12", 0, "30", nil)
	_, err = CalculateSchedule(term)
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)

	long := immediateInput("1000", "12", 121, "30", nil)
	_, err = CalculateSchedule(long)
	var invalidTerm *domain.InvalidTermError
	require.True(t, errors.As(err, &invalidTerm))
	assert.Equal(t, 120, invalidTerm.Max)

	rate := immediateInput("1000", "-1", 12, "30", nil)
	_, err = CalculateSchedule(rate)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	unknown := immediateInput("1000", "12", 12, "30", nil)
	unknown.Variant = nil
	_, err = CalculateSchedule(unknown)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPlan)
}

func TestCalculateSchedule_Idempotent(t *testing.T) {
	inputs := []AmortizationInput{
		immediateInput("23999.99", "18.5", 60, "20", nil),
		programmedInput("12000", "45", 24),
	}
	for _, in := range inputs {
		first, err := CalculateSchedule(in)
		require.NoError(t, err)
		second, err := CalculateSchedule(in)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}
