package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const creationNote = "Application created"

// CreditApplication is an in-progress loan request. Status is changed only
// through ApplyTransition.
type CreditApplication struct {
	ID              int32             `json:"id"`
	UserID          uuid.UUID         `json:"userId"`
	PlanID          int32             `json:"planId"`
	SimulationID    *int32            `json:"simulationId,omitempty"`
	ProductID       *int32            `json:"productId,omitempty"`
	Status          ApplicationStatus `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	TermMonths      int               `json:"termMonths"`
	MonthlyPayment  decimal.Decimal   `json:"monthlyPayment"`
	DownPayment     *decimal.Decimal  `json:"downPayment,omitempty"`
	Notes           string            `json:"notes"`
	RejectionReason *string           `json:"rejectionReason,omitempty"`
	SubmittedAt     *time.Time        `json:"submittedAt,omitempty"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time        `json:"rejectedAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ApplicationTerms are the financial terms an application is opened with
type ApplicationTerms struct {
	PlanID         int32
	SimulationID   *int32
	ProductID      *int32
	Amount         decimal.Decimal
	TermMonths     int
	MonthlyPayment decimal.Decimal
	DownPayment    *decimal.Decimal
	Notes          string
}

// Validate checks the terms are internally consistent
func (t ApplicationTerms) Validate() error {
	if t.PlanID <= 0 {
		return fmt.Errorf("%w: plan is required", ErrInvalidApplicationTerms)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidApplicationTerms)
	}
	if t.TermMonths <= 0 {
		return fmt.Errorf("%w: term must be positive", ErrInvalidApplicationTerms)
	}
	if !t.MonthlyPayment.IsPositive() {
		return fmt.Errorf("%w: monthly payment must be positive", ErrInvalidApplicationTerms)
	}
	if t.DownPayment != nil && (t.DownPayment.IsNegative() || t.DownPayment.GreaterThanOrEqual(t.Amount)) {
		return fmt.Errorf("%w: down payment must be between 0 and the amount", ErrInvalidApplicationTerms)
	}
	if len(t.Notes) > MaxNoteLength {
		return fmt.Errorf("%w: notes must be %d characters or less", ErrInvalidApplicationTerms, MaxNoteLength)
	}
	return nil
}

// NewDraftApplication opens an application in Draft together with its
// creation history record.
func NewDraftApplication(userID uuid.UUID, terms ApplicationTerms, now time.Time) (*CreditApplication, *ApplicationStatusRecord, error) {
	if err := terms.Validate(); err != nil {
		return nil, nil, err
	}

	app := &CreditApplication{
		UserID:         userID,
		PlanID:         terms.PlanID,
		SimulationID:   terms.SimulationID,
		ProductID:      terms.ProductID,
		Status:         StatusDraft,
		Amount:         terms.Amount,
		TermMonths:     terms.TermMonths,
		MonthlyPayment: terms.MonthlyPayment,
		DownPayment:    terms.DownPayment,
		Notes:          strings.TrimSpace(terms.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	actor := userID
	record := &ApplicationStatusRecord{
		Status:    StatusDraft,
		Note:      creationNote,
		ActorID:   &actor,
		CreatedAt: now,
	}
	return app, record, nil
}

// TransitionRequest asks for a status change on an application
type TransitionRequest struct {
	To              ApplicationStatus
	ActorID         uuid.UUID
	Note            string
	RejectionReason string
}

// ApplyTransition validates and applies a status change, returning the history
// record to append. The application is untouched when an error is returned.
func (a *CreditApplication) ApplyTransition(req TransitionRequest, now time.Time) (*ApplicationStatusRecord, error) {
	from := a.Status
	if req.To == from {
		return nil, &NoChangeError{Status: from}
	}
	if !from.CanTransitionTo(req.To) {
		return nil, &IllegalTransitionError{From: from, To: req.To, Allowed: from.AllowedNext()}
	}

	reason := strings.TrimSpace(req.RejectionReason)
	if req.To == StatusRejected {
		if reason == "" {
			return nil, &MissingRejectionReasonError{}
		}
		if len(reason) > MaxRejectionReasonLength {
			return nil, fmt.Errorf("%w: rejection reason must be %d characters or less", ErrInvalidInput, MaxRejectionReasonLength)
		}
	}
	note := strings.TrimSpace(req.Note)
	if len(note) > MaxNoteLength {
		return nil, fmt.Errorf("%w: note must be %d characters or less", ErrInvalidInput, MaxNoteLength)
	}

	a.Status = req.To
	a.UpdatedAt = now
	switch req.To {
	case StatusSubmitted:
		a.SubmittedAt = &now
	case StatusApproved:
		a.ApprovedAt = &now
	case StatusRejected:
		a.RejectedAt = &now
		a.RejectionReason = &reason
	}

	actor := req.ActorID
	return &ApplicationStatusRecord{
		ApplicationID:  a.ID,
		PreviousStatus: &from,
		Status:         req.To,
		Note:           note,
		ActorID:        &actor,
		CreatedAt:      now,
	}, nil
}

// ApplicationStatusRecord is one entry of the append-only status history
type ApplicationStatusRecord struct {
	ID             int64              `json:"id"`
	ApplicationID  int32              `json:"applicationId"`
	PreviousStatus *ApplicationStatus `json:"previousStatus,omitempty"`
	Status         ApplicationStatus  `json:"status"`
	Note           string             `json:"note"`
	ActorID        *uuid.UUID         `json:"actorId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// ApplicationNote is an internal staff note. Notes are never edited.
type ApplicationNote struct {
	ID            int64     `json:"id"`
	ApplicationID int32     `json:"applicationId"`
	AuthorID      uuid.UUID `json:"authorId"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewApplicationNote validates and builds an unsaved note
func NewApplicationNote(applicationID int32, authorID uuid.UUID, body string, now time.Time) (*ApplicationNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrNoteEmpty
	}
	if len(body) > MaxNoteLength {
		return nil, fmt.Errorf("%w: note must be %d characters or less", ErrInvalidInput, MaxNoteLength)
	}
	return &ApplicationNote{
		ApplicationID: applicationID,
		AuthorID:      authorID,
		Body:          body,
		CreatedAt:     now,
	}, nil
}

// TransitionFunc mutates a locked application and returns the record to append.
// Returning an error aborts the transaction without writing anything.
type TransitionFunc func(app *CreditApplication) (*ApplicationStatusRecord, error)

// CreditApplicationRepository defines the interface for application persistence.
// Every status write also appends history and an outbox event in the same
// transaction.
type CreditApplicationRepository interface {
	Create(ctx context.Context, app *CreditApplication, initial *ApplicationStatusRecord) (*CreditApplication, error)
	GetByID(ctx context.Context, id int32) (*CreditApplication, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*CreditApplication, error)
	ListByStatus(ctx context.Context, status ApplicationStatus, limit int) ([]*CreditApplication, error)
	UpdateDraftNotes(ctx context.Context, id int32, notes string) (*CreditApplication, error)
	// Transition locks the application row, runs fn and persists the result.
	Transition(ctx context.Context, id int32, fn TransitionFunc) (*CreditApplication, *ApplicationStatusRecord, error)
	History(ctx context.Context, id int32) ([]*ApplicationStatusRecord, error)
	AddNote(ctx context.Context, note *ApplicationNote) (*ApplicationNote, error)
	ListNotes(ctx context.Context, applicationID int32) ([]*ApplicationNote, error)
}
