package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/middleware"
	"github.com/llevateloexpress/financing-backend/internal/money"
	"github.com/llevateloexpress/financing-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// FinancingHandler handles calculation and simulation HTTP requests
type FinancingHandler struct {
	financingService *service.FinancingService
}

// NewFinancingHandler creates a new FinancingHandler
func NewFinancingHandler(financingService *service.FinancingService) *FinancingHandler {
	return &FinancingHandler{financingService: financingService}
}

// CalculateRequest represents the calculate request body. Amounts are decimal
// strings so no precision is lost in transit.
type CalculateRequest struct {
	ProductPrice string  `json:"productPrice" validate:"required,numeric"`
	PlanID       int32   `json:"planId" validate:"required,gt=0"`
	TermMonths   int     `json:"termMonths" validate:"required,gt=0"`
	DownPayment  *string `json:"downPayment,omitempty" validate:"omitempty,numeric"`
	StartDate    *string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreateSimulationRequest represents the save simulation request body
type CreateSimulationRequest struct {
	CalculateRequest
	ProductID int32 `json:"productId" validate:"required,gt=0"`
}

// ScheduleLineResponse represents one installment in API responses
type ScheduleLineResponse struct {
	PaymentNumber    int    `json:"paymentNumber"`
	DueDate          string `json:"dueDate"`
	Principal        string `json:"principal"`
	Interest         string `json:"interest"`
	TotalPayment     string `json:"totalPayment"`
	RemainingBalance string `json:"remainingBalance"`
	IsAdjudication   bool   `json:"isAdjudication"`
}

// ScheduleResponse represents a calculation result in API responses
type ScheduleResponse struct {
	PlanID              int32                  `json:"planId"`
	PlanType            string                 `json:"planType"`
	ProductPrice        string                 `json:"productPrice"`
	TermMonths          int                    `json:"termMonths"`
	AnnualInterestRate  string                 `json:"annualInterestRate"`
	StartDate           string                 `json:"startDate"`
	DownPayment         string                 `json:"downPayment"`
	FinancedAmount      string                 `json:"financedAmount"`
	MonthlyPayment      string                 `json:"monthlyPayment"`
	AdjudicationAmount  *string                `json:"adjudicationAmount,omitempty"`
	AdjudicationMonth   *int                   `json:"adjudicationMonth,omitempty"`
	AdjudicationPayment *string                `json:"adjudicationPayment,omitempty"`
	TotalInterest       string                 `json:"totalInterest"`
	TotalAmount         string                 `json:"totalAmount"`
	Lines               []ScheduleLineResponse `json:"lines"`
}

// SimulationResponse represents a saved simulation in API responses
type SimulationResponse struct {
	ID                  int32                  `json:"id"`
	ProductID           int32                  `json:"productId"`
	PlanID              int32                  `json:"planId"`
	PlanType            string                 `json:"planType"`
	TermMonths          int                    `json:"termMonths"`
	TotalPrice          string                 `json:"totalPrice"`
	DownPayment         string                 `json:"downPayment"`
	MonthlyPayment      string                 `json:"monthlyPayment"`
	AdjudicationMonth   *int                   `json:"adjudicationMonth,omitempty"`
	AdjudicationPayment *string                `json:"adjudicationPayment,omitempty"`
	TotalInterest       string                 `json:"totalInterest"`
	TotalAmount         string                 `json:"totalAmount"`
	CreatedAt           string                 `json:"createdAt"`
	Lines               []ScheduleLineResponse `json:"lines,omitempty"`
}

// Calculate handles POST /api/v1/financing/calculate
func (h *FinancingHandler) Calculate(c echo.Context) error {
	var req CalculateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	calcReq, fieldErrs := req.toDomain()
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Validation failed", fieldErrs)
	}

	result, err := h.financingService.Calculate(c.Request().Context(), calcReq)
	if err != nil {
		return writeServiceError(c, err, "calculate financing")
	}

	return c.JSON(http.StatusOK, toScheduleResponse(result))
}

// CreateSimulation handles POST /api/v1/simulations. The schedule is always
// recomputed server-side.
func (h *FinancingHandler) CreateSimulation(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateSimulationRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	calcReq, fieldErrs := req.toDomain()
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Validation failed", fieldErrs)
	}

	sim, err := h.financingService.Simulate(c.Request().Context(), userID, service.SimulateInput{
		ProductID: req.ProductID,
		Request:   calcReq,
	})
	if err != nil {
		return writeServiceError(c, err, "save simulation")
	}

	log.Info().Str("user_id", userID.String()).Int32("simulation_id", sim.ID).Str("plan_type", string(sim.PlanType)).Msg("Simulation saved")

	return c.JSON(http.StatusCreated, toSimulationResponse(sim))
}

// GetSimulations handles GET /api/v1/simulations
func (h *FinancingHandler) GetSimulations(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	limit, err := queryLimit(c)
	if err != nil {
		return NewValidationError(c, "Invalid limit", []ValidationError{
			{Field: "limit", Message: "Must be a positive integer"},
		})
	}

	sims, err := h.financingService.ListSimulations(c.Request().Context(), userID, limit)
	if err != nil {
		return writeServiceError(c, err, "get simulations")
	}

	response := make([]SimulationResponse, len(sims))
	for i, sim := range sims {
		response[i] = toSimulationResponse(sim)
	}
	return c.JSON(http.StatusOK, response)
}

// GetSimulation handles GET /api/v1/simulations/:id
func (h *FinancingHandler) GetSimulation(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid simulation ID", nil)
	}

	sim, err := h.financingService.GetSimulation(c.Request().Context(), userID, int32(id))
	if err != nil {
		return writeServiceError(c, err, "get simulation")
	}

	return c.JSON(http.StatusOK, toSimulationResponse(sim))
}

func (r CalculateRequest) toDomain() (domain.CalculationRequest, []ValidationError) {
	var fieldErrs []ValidationError

	price, err := money.Parse(r.ProductPrice)
	if err != nil {
		fieldErrs = append(fieldErrs, ValidationError{Field: "productPrice", Message: "Must be an amount with at most 2 decimal places"})
	}

	req := domain.CalculationRequest{
		ProductPrice: price,
		PlanID:       r.PlanID,
		TermMonths:   r.TermMonths,
	}

	if r.DownPayment != nil {
		dp, err := money.Parse(*r.DownPayment)
		if err != nil {
			fieldErrs = append(fieldErrs, ValidationError{Field: "downPayment", Message: "Must be an amount with at most 2 decimal places"})
		} else {
			req.DownPayment = &dp
		}
	}

	if r.StartDate != nil {
		start, err := time.Parse(dateLayout, *r.StartDate)
		if err != nil {
			fieldErrs = append(fieldErrs, ValidationError{Field: "startDate", Message: "Must be a date in YYYY-MM-DD format"})
		} else {
			req.StartDate = &start
		}
	}

	return req, fieldErrs
}

func toScheduleLines(lines []domain.PaymentScheduleLine) []ScheduleLineResponse {
	out := make([]ScheduleLineResponse, len(lines))
	for i, line := range lines {
		out[i] = ScheduleLineResponse{
			PaymentNumber:    line.PaymentNumber,
			DueDate:          line.DueDate.Format(dateLayout),
			Principal:        money.Format(line.Principal),
			Interest:         money.Format(line.Interest),
			TotalPayment:     money.Format(line.TotalPayment),
			RemainingBalance: money.Format(line.RemainingBalance),
			IsAdjudication:   line.IsAdjudication,
		}
	}
	return out
}

func toScheduleResponse(r *domain.ScheduleResult) ScheduleResponse {
	resp := ScheduleResponse{
		PlanID:              r.PlanID,
		PlanType:            string(r.PlanType),
		ProductPrice:        money.Format(r.ProductPrice),
		TermMonths:          r.TermMonths,
		AnnualInterestRate:  r.AnnualInterestRate.String(),
		StartDate:           r.StartDate.Format(dateLayout),
		DownPayment:         money.Format(r.DownPayment),
		FinancedAmount:      money.Format(r.FinancedAmount),
		MonthlyPayment:      money.Format(r.MonthlyPayment),
		AdjudicationAmount:  formatOptional(r.AdjudicationAmount),
		AdjudicationMonth:   r.AdjudicationMonth,
		AdjudicationPayment: formatOptional(r.AdjudicationPayment),
		TotalInterest:       money.Format(r.TotalInterest),
		TotalAmount:         money.Format(r.TotalAmount),
		Lines:               toScheduleLines(r.Lines),
	}
	return resp
}

func toSimulationResponse(s *domain.FinancingSimulation) SimulationResponse {
	resp := SimulationResponse{
		ID:                  s.ID,
		ProductID:           s.ProductID,
		PlanID:              s.PlanID,
		PlanType:            string(s.PlanType),
		TermMonths:          s.TermMonths,
		TotalPrice:          money.Format(s.TotalPrice),
		DownPayment:         money.Format(s.DownPayment),
		MonthlyPayment:      money.Format(s.MonthlyPayment),
		AdjudicationMonth:   s.AdjudicationMonth,
		AdjudicationPayment: formatOptional(s.AdjudicationPayment),
		TotalInterest:       money.Format(s.TotalInterest),
		TotalAmount:         money.Format(s.TotalAmount),
		CreatedAt:           s.CreatedAt.Format(time.RFC3339),
	}
	if len(s.Lines) > 0 {
		resp.Lines = toScheduleLines(s.Lines)
	}
	return resp
}

func formatOptional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money.Format(*d)
	return &s
}

func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}
