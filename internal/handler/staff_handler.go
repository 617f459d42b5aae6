package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/middleware"
	"github.com/llevateloexpress/financing-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// StaffHandler handles the review queue. Routes are mounted behind
// middleware.RequireStaff.
type StaffHandler struct {
	applicationService *service.ApplicationService
}

// NewStaffHandler creates a new StaffHandler
func NewStaffHandler(applicationService *service.ApplicationService) *StaffHandler {
	return &StaffHandler{applicationService: applicationService}
}

// TransitionRequest represents the staff status change request body
type TransitionRequest struct {
	Status          string `json:"status" validate:"required"`
	Note            string `json:"note" validate:"max=4000"`
	RejectionReason string `json:"rejectionReason" validate:"max=2000"`
}

// NoteRequest represents the add note request body
type NoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// NoteResponse represents a staff note in API responses
type NoteResponse struct {
	ID            int64  `json:"id"`
	ApplicationID int32  `json:"applicationId"`
	AuthorID      string `json:"authorId"`
	Body          string `json:"body"`
	CreatedAt     string `json:"createdAt"`
}

// GetQueue handles GET /api/v1/staff/applications?status=
func (h *StaffHandler) GetQueue(c echo.Context) error {
	status := domain.StatusSubmitted
	if raw := c.QueryParam("status"); raw != "" {
		parsed, err := domain.ParseApplicationStatus(raw)
		if err != nil {
			return NewValidationError(c, "Invalid status", []ValidationError{
				{Field: "status", Message: "Must be a known application status"},
			})
		}
		status = parsed
	}

	limit, err := queryLimit(c)
	if err != nil {
		return NewValidationError(c, "Invalid limit", []ValidationError{
			{Field: "limit", Message: "Must be a positive integer"},
		})
	}

	apps, err := h.applicationService.ListByStatus(c.Request().Context(), status, limit)
	if err != nil {
		return writeServiceError(c, err, "get review queue")
	}
	return c.JSON(http.StatusOK, toApplicationResponses(apps))
}

// GetApplication handles GET /api/v1/staff/applications/:id
func (h *StaffHandler) GetApplication(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	app, err := h.applicationService.GetApplication(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err, "get application")
	}
	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

// GetHistory handles GET /api/v1/staff/applications/:id/history
func (h *StaffHandler) GetHistory(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	records, err := h.applicationService.History(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err, "get application history")
	}
	return c.JSON(http.StatusOK, toStatusRecordResponses(records))
}

// Transition handles POST /api/v1/staff/applications/:id/transitions
func (h *StaffHandler) Transition(c echo.Context) error {
	actorID := middleware.GetUserID(c)

	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req TransitionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	record, err := h.applicationService.RequestStatusTransition(c.Request().Context(), id, domain.TransitionRequest{
		To:              domain.ApplicationStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		ActorID:         actorID,
		Note:            req.Note,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		return writeServiceError(c, err, "change application status")
	}

	log.Info().Str("actor_id", actorID.String()).Int32("application_id", id).Str("status", string(record.Status)).Msg("Application status changed by staff")

	return c.JSON(http.StatusOK, toStatusRecordResponse(record))
}

// AddNote handles POST /api/v1/staff/applications/:id/notes
func (h *StaffHandler) AddNote(c echo.Context) error {
	authorID := middleware.GetUserID(c)

	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req NoteRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	note, err := h.applicationService.AddNote(c.Request().Context(), id, authorID, req.Body)
	if err != nil {
		return writeServiceError(c, err, "add note")
	}
	return c.JSON(http.StatusCreated, toNoteResponse(note))
}

// GetNotes handles GET /api/v1/staff/applications/:id/notes
func (h *StaffHandler) GetNotes(c echo.Context) error {
	id, err := applicationID(c)
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	notes, err := h.applicationService.ListNotes(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err, "get notes")
	}

	response := make([]NoteResponse, len(notes))
	for i, n := range notes {
		response[i] = toNoteResponse(n)
	}
	return c.JSON(http.StatusOK, response)
}

func toNoteResponse(n *domain.ApplicationNote) NoteResponse {
	return NoteResponse{
		ID:            n.ID,
		ApplicationID: n.ApplicationID,
		AuthorID:      n.AuthorID.String(),
		Body:          n.Body,
		CreatedAt:     n.CreatedAt.Format(time.RFC3339),
	}
}
