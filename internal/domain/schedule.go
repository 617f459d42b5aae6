package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationRequest is the caller's input for a financing calculation.
// DownPayment applies to immediate plans only; nil means the plan minimum.
// StartDate nil means today.
type CalculationRequest struct {
	ProductPrice decimal.Decimal
	PlanID       int32
	TermMonths   int
	DownPayment  *decimal.Decimal
	StartDate    *time.Time
}

// PaymentScheduleLine is one monthly row of a payment schedule
type PaymentScheduleLine struct {
	PaymentNumber    int             `json:"paymentNumber"`
	DueDate          time.Time       `json:"dueDate"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	TotalPayment     decimal.Decimal `json:"totalPayment"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	IsAdjudication   bool            `json:"isAdjudication"`
}

// ScheduleResult is the output of the amortization calculator. All amounts
// are rounded to cents.
type ScheduleResult struct {
	PlanID             int32           `json:"planId"`
	PlanType           PlanType        `json:"planType"`
	ProductPrice       decimal.Decimal `json:"productPrice"`
	TermMonths         int             `json:"termMonths"`
	AnnualInterestRate decimal.Decimal `json:"annualInterestRate"`
	StartDate          time.Time       `json:"startDate"`

	// DownPayment is zero for programmed plans.
	DownPayment    decimal.Decimal `json:"downPayment"`
	FinancedAmount decimal.Decimal `json:"financedAmount"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`

	// Programmed plans only
	AdjudicationAmount  *decimal.Decimal `json:"adjudicationAmount,omitempty"`
	AdjudicationMonth   *int             `json:"adjudicationMonth,omitempty"`
	AdjudicationPayment *decimal.Decimal `json:"adjudicationPayment,omitempty"`

	TotalInterest decimal.Decimal       `json:"totalInterest"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"`
	Lines         []PaymentScheduleLine `json:"lines"`
}

// FinalLine returns the last schedule line, or nil for an empty schedule
func (r *ScheduleResult) FinalLine() *PaymentScheduleLine {
	if len(r.Lines) == 0 {
		return nil
	}
	return &r.Lines[len(r.Lines)-1]
}

// AdjudicationLine returns the line flagged as adjudication, or nil
func (r *ScheduleResult) AdjudicationLine() *PaymentScheduleLine {
	for i := range r.Lines {
		if r.Lines[i].IsAdjudication {
			return &r.Lines[i]
		}
	}
	return nil
}
