package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/metrics"
	"github.com/shopspring/decimal"
)

// Calculator computes a schedule for a request
type Calculator interface {
	Calculate(ctx context.Context, req domain.CalculationRequest) (*domain.ScheduleResult, error)
}

// ApplicationService owns the credit application lifecycle. All status
// changes go through RequestStatusTransition or its Submit and Cancel wrappers.
type ApplicationService struct {
	appRepo        domain.CreditApplicationRepository
	simulationRepo domain.SimulationRepository
	planRepo       domain.FinancingPlanRepository
	calculator     Calculator
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	appRepo domain.CreditApplicationRepository,
	simulationRepo domain.SimulationRepository,
	planRepo domain.FinancingPlanRepository,
	calculator Calculator,
	m *metrics.Metrics,
) *ApplicationService {
	return &ApplicationService{
		appRepo:        appRepo,
		simulationRepo: simulationRepo,
		planRepo:       planRepo,
		calculator:     calculator,
		metrics:        m,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateApplicationInput opens an application either from a saved simulation
// or from raw terms. SimulationID takes precedence when set.
type CreateApplicationInput struct {
	SimulationID *int32

	PlanID      int32
	ProductID   *int32
	Amount      decimal.Decimal
	TermMonths  int
	DownPayment *decimal.Decimal

	Notes string
}

// CreateApplication opens a Draft application for the user
func (s *ApplicationService) CreateApplication(ctx context.Context, userID uuid.UUID, input CreateApplicationInput) (*domain.CreditApplication, error) {
	var (
		terms domain.ApplicationTerms
		err   error
	)
	if input.SimulationID != nil {
		terms, err = s.termsFromSimulation(ctx, userID, *input.SimulationID)
	} else {
		terms, err = s.termsFromRequest(ctx, input)
	}
	if err != nil {
		return nil, err
	}
	terms.Notes = input.Notes

	app, record, err := domain.NewDraftApplication(userID, terms, s.now())
	if err != nil {
		return nil, err
	}
	return s.appRepo.Create(ctx, app, record)
}

func (s *ApplicationService) termsFromSimulation(ctx context.Context, userID uuid.UUID, simulationID int32) (domain.ApplicationTerms, error) {
	sim, err := s.simulationRepo.GetByID(ctx, userID, simulationID)
	if err != nil {
		return domain.ApplicationTerms{}, err
	}
	plan, err := s.planRepo.GetByID(ctx, sim.PlanID)
	if err != nil {
		return domain.ApplicationTerms{}, err
	}
	if !plan.IsActive {
		return domain.ApplicationTerms{}, domain.ErrPlanInactive
	}

	id := sim.ID
	productID := sim.ProductID
	terms := domain.ApplicationTerms{
		PlanID:         sim.PlanID,
		SimulationID:   &id,
		ProductID:      &productID,
		Amount:         sim.TotalPrice,
		TermMonths:     sim.TermMonths,
		MonthlyPayment: sim.MonthlyPayment,
	}
	if sim.PlanType == domain.PlanTypeImmediate {
		dp := sim.DownPayment
		terms.DownPayment = &dp
	}
	return terms, nil
}

// termsFromRequest runs the terms through the calculator so raw applications
// obey the same plan constraints as simulations.
func (s *ApplicationService) termsFromRequest(ctx context.Context, input CreateApplicationInput) (domain.ApplicationTerms, error) {
	result, err := s.calculator.Calculate(ctx, domain.CalculationRequest{
		ProductPrice: input.Amount,
		PlanID:       input.PlanID,
		TermMonths:   input.TermMonths,
		DownPayment:  input.DownPayment,
	})
	if err != nil {
		return domain.ApplicationTerms{}, err
	}

	terms := domain.ApplicationTerms{
		PlanID:         result.PlanID,
		ProductID:      input.ProductID,
		Amount:         result.ProductPrice,
		TermMonths:     result.TermMonths,
		MonthlyPayment: result.MonthlyPayment,
	}
	if result.PlanType == domain.PlanTypeImmediate {
		dp := result.DownPayment
		terms.DownPayment = &dp
	}
	return terms, nil
}

// RequestStatusTransition is the single entry point for status changes. The
// change, its history record and its outbox event are written atomically.
func (s *ApplicationService) RequestStatusTransition(ctx context.Context, applicationID int32, req domain.TransitionRequest) (*domain.ApplicationStatusRecord, error) {
	_, record, err := s.appRepo.Transition(ctx, applicationID, func(app *domain.CreditApplication) (*domain.ApplicationStatusRecord, error) {
		return app.ApplyTransition(req, s.now())
	})
	s.observeTransition(req.To, err)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Submit moves the owner's application from Draft to Submitted
func (s *ApplicationService) Submit(ctx context.Context, userID uuid.UUID, applicationID int32, note string) (*domain.ApplicationStatusRecord, error) {
	req := domain.TransitionRequest{To: domain.StatusSubmitted, ActorID: userID, Note: note}
	_, record, err := s.appRepo.Transition(ctx, applicationID, func(app *domain.CreditApplication) (*domain.ApplicationStatusRecord, error) {
		if app.UserID != userID {
			return nil, domain.ErrNotApplicationOwner
		}
		if app.Status != domain.StatusDraft {
			return nil, &domain.IllegalTransitionError{From: app.Status, To: domain.StatusSubmitted, Allowed: app.Status.AllowedNext()}
		}
		return app.ApplyTransition(req, s.now())
	})
	s.observeTransition(req.To, err)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Cancel withdraws the owner's application. Owners cannot cancel once the
// application reached a terminal status, including Approved.
func (s *ApplicationService) Cancel(ctx context.Context, userID uuid.UUID, applicationID int32, note string) (*domain.ApplicationStatusRecord, error) {
	req := domain.TransitionRequest{To: domain.StatusCancelled, ActorID: userID, Note: note}
	_, record, err := s.appRepo.Transition(ctx, applicationID, func(app *domain.CreditApplication) (*domain.ApplicationStatusRecord, error) {
		if app.UserID != userID {
			return nil, domain.ErrNotApplicationOwner
		}
		if app.Status == domain.StatusCancelled {
			return nil, &domain.NoChangeError{Status: app.Status}
		}
		if app.Status.IsTerminal() {
			return nil, &domain.IllegalTransitionError{From: app.Status, To: domain.StatusCancelled, Allowed: []domain.ApplicationStatus{}}
		}
		return app.ApplyTransition(req, s.now())
	})
	s.observeTransition(req.To, err)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *ApplicationService) observeTransition(to domain.ApplicationStatus, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveTransition(string(to), metrics.OutcomeOK)
	case isCallerError(err):
		s.metrics.ObserveTransition(string(to), metrics.OutcomeRejected)
	default:
		s.metrics.ObserveTransition(string(to), metrics.OutcomeError)
	}
}

// UpdateDraft replaces the notes of the owner's Draft application
func (s *ApplicationService) UpdateDraft(ctx context.Context, userID uuid.UUID, applicationID int32, notes string) (*domain.CreditApplication, error) {
	notes = strings.TrimSpace(notes)
	if len(notes) > domain.MaxNoteLength {
		return nil, fmt.Errorf("%w: notes must be %d characters or less", domain.ErrInvalidInput, domain.MaxNoteLength)
	}

	app, err := s.GetForOwner(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusDraft {
		return nil, domain.ErrApplicationNotDraft
	}
	return s.appRepo.UpdateDraftNotes(ctx, applicationID, notes)
}

// GetApplication retrieves any application by ID
func (s *ApplicationService) GetApplication(ctx context.Context, applicationID int32) (*domain.CreditApplication, error) {
	return s.appRepo.GetByID(ctx, applicationID)
}

// GetForOwner retrieves an application only if it belongs to userID
func (s *ApplicationService) GetForOwner(ctx context.Context, userID uuid.UUID, applicationID int32) (*domain.CreditApplication, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		// Other users' applications are reported as missing
		return nil, domain.ErrApplicationNotFound
	}
	return app, nil
}

// ListForUser returns the user's applications, newest first
func (s *ApplicationService) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.CreditApplication, error) {
	return s.appRepo.ListByUser(ctx, userID, clampApplicationLimit(limit))
}

// ListByStatus returns the staff queue for a status, oldest first
func (s *ApplicationService) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]*domain.CreditApplication, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown application status %q", domain.ErrInvalidInput, status)
	}
	return s.appRepo.ListByStatus(ctx, status, clampApplicationLimit(limit))
}

// History returns the status history of an application, oldest first
func (s *ApplicationService) History(ctx context.Context, applicationID int32) ([]*domain.ApplicationStatusRecord, error) {
	if _, err := s.appRepo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.appRepo.History(ctx, applicationID)
}

// HistoryForOwner returns the history of one of the user's applications
func (s *ApplicationService) HistoryForOwner(ctx context.Context, userID uuid.UUID, applicationID int32) ([]*domain.ApplicationStatusRecord, error) {
	if _, err := s.GetForOwner(ctx, userID, applicationID); err != nil {
		return nil, err
	}
	return s.appRepo.History(ctx, applicationID)
}

// AddNote appends a staff note to an application
func (s *ApplicationService) AddNote(ctx context.Context, applicationID int32, authorID uuid.UUID, body string) (*domain.ApplicationNote, error) {
	note, err := domain.NewApplicationNote(applicationID, authorID, body, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.appRepo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.appRepo.AddNote(ctx, note)
}

// ListNotes returns the staff notes of an application, oldest first
func (s *ApplicationService) ListNotes(ctx context.Context, applicationID int32) ([]*domain.ApplicationNote, error) {
	if _, err := s.appRepo.GetByID(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.appRepo.ListNotes(ctx, applicationID)
}

func clampApplicationLimit(limit int) int {
	if limit <= 0 || limit > domain.DefaultApplicationListLimit {
		return domain.DefaultApplicationListLimit
	}
	return limit
}

// isCallerError reports whether err is a correctable rejection rather than
// an infrastructure failure.
func isCallerError(err error) bool {
	for _, target := range []error{
		domain.ErrIllegalTransition,
		domain.ErrNoChange,
		domain.ErrMissingRejectionReason,
		domain.ErrConcurrentTransition,
		domain.ErrApplicationNotFound,
		domain.ErrNotApplicationOwner,
		domain.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
