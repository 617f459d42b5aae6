package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/middleware"
	"github.com/llevateloexpress/financing-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PlanHandler handles financing plan catalog HTTP requests
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// PlanRequest represents the create and update plan request body
type PlanRequest struct {
	Name                   string  `json:"name" validate:"required,max=100"`
	Description            string  `json:"description" validate:"max=2000"`
	PlanType               string  `json:"planType" validate:"required,oneof=programmed immediate"`
	MinTerm                int     `json:"minTerm" validate:"required,gt=0"`
	MaxTerm                int     `json:"maxTerm" validate:"required,gt=0"`
	AnnualInterestRate     string  `json:"annualInterestRate" validate:"required,numeric"`
	AdjudicationPercentage *string `json:"adjudicationPercentage,omitempty" validate:"omitempty,numeric"`
	DownPaymentPercentage  *string `json:"downPaymentPercentage,omitempty" validate:"omitempty,numeric"`
	IsActive               *bool   `json:"isActive,omitempty"`
}

// PlanResponse represents a financing plan in API responses
type PlanResponse struct {
	ID                     int32  `json:"id"`
	Name                   string `json:"name"`
	Description            string `json:"description"`
	PlanType               string `json:"planType"`
	MinTerm                int    `json:"minTerm"`
	MaxTerm                int    `json:"maxTerm"`
	AnnualInterestRate     string `json:"annualInterestRate"`
	AdjudicationPercentage string `json:"adjudicationPercentage"`
	DownPaymentPercentage  string `json:"downPaymentPercentage"`
	IsActive               bool   `json:"isActive"`
	CreatedAt              string `json:"createdAt"`
	UpdatedAt              string `json:"updatedAt"`
}

// PlanRequirementResponse represents a plan requirement in API responses
type PlanRequirementResponse struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsMandatory bool   `json:"isMandatory"`
}

// GetPlans handles GET /api/v1/financing/plans
func (h *PlanHandler) GetPlans(c echo.Context) error {
	plans, err := h.planService.ListActive(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err, "get financing plans")
	}

	response := make([]PlanResponse, len(plans))
	for i, plan := range plans {
		response[i] = toPlanResponse(plan)
	}
	return c.JSON(http.StatusOK, response)
}

// GetPlan handles GET /api/v1/financing/plans/:id
func (h *PlanHandler) GetPlan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	plan, err := h.planService.GetPlan(c.Request().Context(), int32(id))
	if err != nil {
		return writeServiceError(c, err, "get financing plan")
	}
	return c.JSON(http.StatusOK, toPlanResponse(plan))
}

// GetRequirements handles GET /api/v1/financing/plans/:id/requirements
func (h *PlanHandler) GetRequirements(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	reqs, err := h.planService.ListRequirements(c.Request().Context(), int32(id))
	if err != nil {
		return writeServiceError(c, err, "get plan requirements")
	}

	response := make([]PlanRequirementResponse, len(reqs))
	for i, r := range reqs {
		response[i] = PlanRequirementResponse{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			IsMandatory: r.IsMandatory,
		}
	}
	return c.JSON(http.StatusOK, response)
}

// CreatePlan handles POST /api/v1/financing/plans (staff)
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	var req PlanRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	input, fieldErrs := req.toInput()
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Validation failed", fieldErrs)
	}

	plan, err := h.planService.CreatePlan(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err, "create financing plan")
	}

	log.Info().Str("user_id", middleware.GetUserID(c).String()).Int32("plan_id", plan.ID).Str("plan_type", string(plan.PlanType)).Msg("Financing plan created")

	return c.JSON(http.StatusCreated, toPlanResponse(plan))
}

// UpdatePlan handles PUT /api/v1/financing/plans/:id (staff)
func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	var req PlanRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	input, fieldErrs := req.toInput()
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Validation failed", fieldErrs)
	}

	plan, err := h.planService.UpdatePlan(c.Request().Context(), int32(id), input)
	if err != nil {
		return writeServiceError(c, err, "update financing plan")
	}

	log.Info().Str("user_id", middleware.GetUserID(c).String()).Int32("plan_id", plan.ID).Msg("Financing plan updated")

	return c.JSON(http.StatusOK, toPlanResponse(plan))
}

func (r PlanRequest) toInput() (service.PlanInput, []ValidationError) {
	var fieldErrs []ValidationError

	parse := func(field string, raw *string) decimal.Decimal {
		if raw == nil {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(*raw)
		if err != nil {
			fieldErrs = append(fieldErrs, ValidationError{Field: field, Message: "Must be a valid decimal number"})
			return decimal.Zero
		}
		return d
	}

	input := service.PlanInput{
		Name:                   r.Name,
		Description:            r.Description,
		PlanType:               domain.PlanType(r.PlanType),
		MinTerm:                r.MinTerm,
		MaxTerm:                r.MaxTerm,
		AnnualInterestRate:     parse("annualInterestRate", &r.AnnualInterestRate),
		AdjudicationPercentage: parse("adjudicationPercentage", r.AdjudicationPercentage),
		DownPaymentPercentage:  parse("downPaymentPercentage", r.DownPaymentPercentage),
		IsActive:               true,
	}
	if r.IsActive != nil {
		input.IsActive = *r.IsActive
	}
	return input, fieldErrs
}

func toPlanResponse(p *domain.FinancingPlan) PlanResponse {
	return PlanResponse{
		ID:                     p.ID,
		Name:                   p.Name,
		Description:            p.Description,
		PlanType:               string(p.PlanType),
		MinTerm:                p.MinTerm,
		MaxTerm:                p.MaxTerm,
		AnnualInterestRate:     p.AnnualInterestRate.String(),
		AdjudicationPercentage: p.AdjudicationPercentage.String(),
		DownPaymentPercentage:  p.DownPaymentPercentage.String(),
		IsActive:               p.IsActive,
		CreatedAt:              p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:              p.UpdatedAt.Format(time.RFC3339),
	}
}
