package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Status     int               `json:"status"`
	Detail     string            `json:"detail,omitempty"`
	Instance   string            `json:"instance,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
	Extensions map[string]any    `json:"extensions,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://llevateloexpress.com/errors/validation"
	ErrorTypeCalculation  = "https://llevateloexpress.com/errors/calculation"
	ErrorTypeTransition   = "https://llevateloexpress.com/errors/transition"
	ErrorTypeNotFound     = "https://llevateloexpress.com/errors/not-found"
	ErrorTypeUnauthorized = "https://llevateloexpress.com/errors/unauthorized"
	ErrorTypeForbidden    = "https://llevateloexpress.com/errors/forbidden"
	ErrorTypeConflict     = "https://llevateloexpress.com/errors/conflict"
	ErrorTypeInternal     = "https://llevateloexpress.com/errors/internal"
)

func problem(c echo.Context, status int, typ, title, detail string) ProblemDetails {
	return ProblemDetails{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	p := problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail)
	p.Errors = errors
	return c.JSON(http.StatusBadRequest, p)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail))
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail))
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return c.JSON(http.StatusForbidden, problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail))
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail))
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail))
}

// NewCalculationError creates a 422 response for a request the plan cannot satisfy
func NewCalculationError(c echo.Context, detail string, field string, extensions map[string]any) error {
	p := problem(c, http.StatusUnprocessableEntity, ErrorTypeCalculation, "Calculation Rejected", detail)
	if field != "" {
		p.Errors = []ValidationError{{Field: field, Message: detail}}
	}
	p.Extensions = extensions
	return c.JSON(http.StatusUnprocessableEntity, p)
}

// NewTransitionError creates a 409 response for a rejected status change
func NewTransitionError(c echo.Context, detail string, extensions map[string]any) error {
	p := problem(c, http.StatusConflict, ErrorTypeTransition, "Transition Rejected", detail)
	p.Extensions = extensions
	return c.JSON(http.StatusConflict, p)
}

// writeServiceError maps domain errors to problem responses. Anything it does
// not recognise is logged and reported as internal.
func writeServiceError(c echo.Context, err error, action string) error {
	var (
		priceErr    *domain.InvalidPriceError
		termErr     *domain.InvalidTermError
		downErr     *domain.InsufficientDownPaymentError
		planErr     *domain.UnsupportedPlanError
		illegalErr  *domain.IllegalTransitionError
		noChangeErr *domain.NoChangeError
	)

	switch {
	case errors.As(err, &priceErr):
		return NewCalculationError(c, "Product price must be positive", "productPrice", nil)
	case errors.As(err, &termErr):
		return NewCalculationError(c, err.Error(), "termMonths", map[string]any{
			"minimum": termErr.Min,
			"maximum": termErr.Max,
		})
	case errors.As(err, &downErr):
		return NewCalculationError(c, "Down payment is below the plan minimum", "downPayment", map[string]any{
			"minimum":   downErr.Minimum.StringFixed(2),
			"shortfall": downErr.Shortfall.StringFixed(2),
		})
	case errors.As(err, &planErr):
		return NewCalculationError(c, err.Error(), "planId", nil)
	case errors.Is(err, domain.ErrPlanInactive):
		return NewCalculationError(c, "Financing plan is not active", "planId", nil)

	case errors.As(err, &illegalErr):
		return NewTransitionError(c, err.Error(), map[string]any{
			"currentStatus": illegalErr.From,
			"allowedNext":   statusList(illegalErr.Allowed),
		})
	case errors.As(err, &noChangeErr):
		return NewTransitionError(c, err.Error(), map[string]any{
			"currentStatus": noChangeErr.Status,
		})
	case errors.Is(err, domain.ErrConcurrentTransition):
		return NewConflictError(c, "Application status changed concurrently, retry the request")
	case errors.Is(err, domain.ErrApplicationNotDraft):
		return NewConflictError(c, "Application can only be edited while in draft")
	case errors.Is(err, domain.ErrMissingRejectionReason):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "rejectionReason", Message: "Rejection reason is required"},
		})
	case errors.Is(err, domain.ErrNoteEmpty):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "body", Message: "Note is required"},
		})

	case errors.Is(err, domain.ErrPlanNotFound):
		return NewNotFoundError(c, "Financing plan not found")
	case errors.Is(err, domain.ErrSimulationNotFound):
		return NewNotFoundError(c, "Simulation not found")
	case errors.Is(err, domain.ErrApplicationNotFound):
		return NewNotFoundError(c, "Application not found")
	case errors.Is(err, domain.ErrNotApplicationOwner):
		return NewForbiddenError(c, "Application belongs to another user")

	case errors.Is(err, domain.ErrInvalidPlanDefinition),
		errors.Is(err, domain.ErrInvalidApplicationTerms),
		errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

func statusList(statuses []domain.ApplicationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
