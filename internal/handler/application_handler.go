package handler

import (
	"context"
	"errors"
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
)

// ApplicationHandler handles the customer's credit application requests
type ApplicationHandler struct {
	applicationService *service.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(applicationService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// CreateApplicationRequest represents the create application request body.
// Either simulationId or the raw terms (planId, amount, termMonths) are given.
type CreateApplicationRequest struct {
	SimulationID *int32  `json:"simulationId,omitempty" validate:"omitempty,gt=0"`
	PlanID       int32   `json:"planId" validate:"gte=0"`
	ProductID    *int32  `json:"productId,omitempty" validate:"omitempty,gt=0"`
	Amount       *string `json:"amount,omitempty" validate:"omitempty,numeric"`
	TermMonths   int     `json:"termMonths" validate:"gte=0"`
	DownPayment  *string `json:"downPayment,omitempty" validate:"omitempty,numeric"`
	Notes        string  `json:"notes" validate:"max=4000"`
}

// UpdateApplicationRequest represents the draft edit request body
type UpdateApplicationRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

// StatusNoteRequest carries the optional note of an owner transition
type StatusNoteRequest struct {
	Note string `json:"note" validate:"max=4000"`
}

// ApplicationResponse represents a credit application in API responses
type ApplicationResponse struct {
	ID              int32    `json:"id"`
	UserID          string   `json:"userId"`
	PlanID          int32    `json:"planId"`
	SimulationID    *int32   `json:"simulationId,omitempty"`
	ProductID       *int32   `json:"productId,omitempty"`
	Status          string   `json:"status"`
	StatusLabel     string   `json:"statusLabel"`
	AllowedNext     []string `json:"allowedNext"`
	Amount          string   `json:"amount"`
	TermMonths      int      `json:"termMonths"`
	MonthlyPayment  string   `json:"monthlyPayment"`
	DownPayment     *string  `json:"downPayment,omitempty"`
	Notes           string   `json:"notes"`
	RejectionReason *string  `json:"rejectionReason,omitempty"`
	SubmittedAt     *string  `json:"submittedAt,omitempty"`
	ApprovedAt      *string  `json:"approvedAt,omitempty"`
	RejectedAt      *string  `json:"rejectedAt,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

// StatusRecordResponse represents one history entry in API responses
type StatusRecordResponse struct {
	ID             int64   `json:"id"`
	ApplicationID  int32   `json:"applicationId"`
	PreviousStatus *string `json:"previousStatus,omitempty"`
	Status         string  `json:"status"`
	StatusLabel    string  `json:"statusLabel"`
	Note           string  `json:"note"`
	ActorID        *string `json:"actorId,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

// CreateApplication handles POST /api/v1/applications
func (h *ApplicationHandler) CreateApplication(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateApplicationRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	input, fieldErrs := req.toInput()
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Validation failed", fieldErrs)
	}

	app, err := h.applicationService.CreateApplication(c.Request().Context(), userID, input)
	if err != nil {
		return writeOwnerError(c, err, "create application")
	}

	log.Info().Str("user_id", userID.String()).Int32("application_id", app.ID).Int32("plan_id", app.PlanID).Msg("Credit application created")

	return c.JSON(http.StatusCreated, toApplicationResponse(app))
}

// GetApplications handles GET /api/v1/applications
func (h *ApplicationHandler) GetApplications(c echo.Context) error {
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

	apps, err := h.applicationService.ListForUser(c.Request().Context(), userID, limit)
	if err != nil {
		return writeOwnerError(c, err, "get applications")
	}
	return c.JSON(http.StatusOK, toApplicationResponses(apps))
}

// GetApplication handles GET /api/v1/applications/:id
func (h *ApplicationHandler) GetApplication(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	app, err := h.applicationService.GetForOwner(c.Request().Context(), userID, id)
	if err != nil {
		return writeOwnerError(c, err, "get application")
	}
	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

// UpdateApplication handles PATCH /api/v1/applications/:id
func (h *ApplicationHandler) UpdateApplication(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req UpdateApplicationRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	app, err := h.applicationService.UpdateDraft(c.Request().Context(), userID, id, req.Notes)
	if err != nil {
		return writeOwnerError(c, err, "update application")
	}
	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

// SubmitApplication handles POST /api/v1/applications/:id/submit
func (h *ApplicationHandler) SubmitApplication(c echo.Context) error {
	return h.ownerTransition(c, "submit application", h.applicationService.Submit)
}

// CancelApplication handles POST /api/v1/applications/:id/cancel
func (h *ApplicationHandler) CancelApplication(c echo.Context) error {
	return h.ownerTransition(c, "cancel application", h.applicationService.Cancel)
}

type ownerTransitionFunc func(ctx context.Context, userID uuid.UUID, applicationID int32, note string) (*domain.ApplicationStatusRecord, error)

func (h *ApplicationHandler) ownerTransition(c echo.Context, action string, fn ownerTransitionFunc) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req StatusNoteRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	record, err := fn(c.Request().Context(), userID, id, req.Note)
	if err != nil {
		return writeOwnerError(c, err, action)
	}

	log.Info().Str("user_id", userID.String()).Int32("application_id", id).Str("status", string(record.Status)).Msg("Application status changed")

	return c.JSON(http.StatusOK, toStatusRecordResponse(record))
}

// GetHistory handles GET /api/v1/applications/:id/history
func (h *ApplicationHandler) GetHistory(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	records, err := h.applicationService.HistoryForOwner(c.Request().Context(), userID, id)
	if err != nil {
		return writeOwnerError(c, err, "get application history")
	}
	return c.JSON(http.StatusOK, toStatusRecordResponses(records))
}

// writeOwnerError hides other users' applications behind a 404
func writeOwnerError(c echo.Context, err error, action string) error {
	if errors.Is(err, domain.ErrNotApplicationOwner) {
		return NewNotFoundError(c, "Application not found")
	}
	return writeServiceError(c, err, action)
}

func (r CreateApplicationRequest) toInput() (service.CreateApplicationInput, []ValidationError) {
	input := service.CreateApplicationInput{
		SimulationID: r.SimulationID,
		PlanID:       r.PlanID,
		ProductID:    r.ProductID,
		TermMonths:   r.TermMonths,
		Notes:        r.Notes,
	}
	if r.SimulationID != nil {
		return input, nil
	}

	var fieldErrs []ValidationError
	if r.PlanID <= 0 {
		fieldErrs = append(fieldErrs, ValidationError{Field: "planId", Message: "Required when simulationId is not given"})
	}
	if r.TermMonths <= 0 {
		fieldErrs = append(fieldErrs, ValidationError{Field: "termMonths", Message: "Required when simulationId is not given"})
	}
	if r.Amount == nil {
		fieldErrs = append(fieldErrs, ValidationError{Field: "amount", Message: "Required when simulationId is not given"})
	} else if amount, err := money.Parse(*r.Amount); err != nil {
		fieldErrs = append(fieldErrs, ValidationError{Field: "amount", Message: "Must be an amount with at most 2 decimal places"})
	} else {
		input.Amount = amount
	}
	if r.DownPayment != nil {
		dp, err := money.Parse(*r.DownPayment)
		if err != nil {
			fieldErrs = append(fieldErrs, ValidationError{Field: "downPayment", Message: "Must be an amount with at most 2 decimal places"})
		} else {
			input.DownPayment = &dp
		}
	}
	return input, fieldErrs
}

func applicationID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toApplicationResponse(a *domain.CreditApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:              a.ID,
		UserID:          a.UserID.String(),
		PlanID:          a.PlanID,
		SimulationID:    a.SimulationID,
		ProductID:       a.ProductID,
		Status:          string(a.Status),
		StatusLabel:     a.Status.Label(),
		AllowedNext:     statusList(a.Status.AllowedNext()),
		Amount:          money.Format(a.Amount),
		TermMonths:      a.TermMonths,
		MonthlyPayment:  money.Format(a.MonthlyPayment),
		DownPayment:     formatOptional(a.DownPayment),
		Notes:           a.Notes,
		RejectionReason: a.RejectionReason,
		SubmittedAt:     formatTime(a.SubmittedAt),
		ApprovedAt:      formatTime(a.ApprovedAt),
		RejectedAt:      formatTime(a.RejectedAt),
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.Format(time.RFC3339),
	}
}

func toApplicationResponses(apps []*domain.CreditApplication) []ApplicationResponse {
	response := make([]ApplicationResponse, len(apps))
	for i, app := range apps {
		response[i] = toApplicationResponse(app)
	}
	return response
}

func toStatusRecordResponse(r *domain.ApplicationStatusRecord) StatusRecordResponse {
	resp := StatusRecordResponse{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Status:        string(r.Status),
		StatusLabel:   r.Status.Label(),
		Note:          r.Note,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.PreviousStatus != nil {
		prev := string(*r.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	if r.ActorID != nil {
		actor := r.ActorID.String()
		resp.ActorID = &actor
	}
	return resp
}

func toStatusRecordResponses(records []*domain.ApplicationStatusRecord) []StatusRecordResponse {
	response := make([]StatusRecordResponse, len(records))
	for i, r := range records {
		response[i] = toStatusRecordResponse(r)
	}
	return response
}
