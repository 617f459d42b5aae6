package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUserNotFound = errors.New("user not found")
)

// Calculation errors
var (
	ErrInvalidPrice            = errors.New("product price must be positive")
	ErrInvalidTerm             = errors.New("term is outside the plan bounds")
	ErrInsufficientDownPayment = errors.New("down payment is below the plan minimum")
	ErrUnsupportedPlan         = errors.New("unsupported plan type")
	ErrPlanNotFound            = errors.New("financing plan not found")
	ErrPlanInactive            = errors.New("financing plan is not active")
	ErrInvalidPlanDefinition   = errors.New("invalid financing plan definition")
)

// Lifecycle errors
var (
	ErrIllegalTransition       = errors.New("illegal status transition")
	ErrNoChange                = errors.New("application already has the requested status")
	ErrMissingRejectionReason  = errors.New("rejection reason is required")
	ErrConcurrentTransition    = errors.New("application status changed concurrently")
	ErrApplicationNotFound     = errors.New("credit application not found")
	ErrNotApplicationOwner     = errors.New("application belongs to another user")
	ErrApplicationNotDraft     = errors.New("application can only be edited while in draft")
	ErrInvalidApplicationTerms = errors.New("invalid application terms")
	ErrNoteEmpty               = errors.New("note is required")
	ErrSimulationNotFound      = errors.New("financing simulation not found")
)

// InvalidPriceError reports a non-positive product price.
type InvalidPriceError struct {
	Price decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("%s: got %s", ErrInvalidPrice, e.Price.String())
}

func (e *InvalidPriceError) Is(target error) bool { return target == ErrInvalidPrice }

// InvalidTermError reports a term outside [Min, Max].
type InvalidTermError struct {
	Term int
	Min  int
	Max  int
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("%s: %d months, must be between %d and %d", ErrInvalidTerm, e.Term, e.Min, e.Max)
}

func (e *InvalidTermError) Is(target error) bool { return target == ErrInvalidTerm }

// InsufficientDownPaymentError carries the shortfall so clients can prompt a
// corrected amount.
type InsufficientDownPaymentError struct {
	Provided  decimal.Decimal
	Minimum   decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientDownPaymentError) Error() string {
	return fmt.Sprintf("%s: provided %s, minimum %s, short by %s",
		ErrInsufficientDownPayment, e.Provided.StringFixed(2), e.Minimum.StringFixed(2), e.Shortfall.StringFixed(2))
}

func (e *InsufficientDownPaymentError) Is(target error) bool {
	return target == ErrInsufficientDownPayment
}

// UnsupportedPlanError reports a plan type the calculator does not know.
type UnsupportedPlanError struct {
	PlanType PlanType
}

func (e *UnsupportedPlanError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedPlan, string(e.PlanType))
}

func (e *UnsupportedPlanError) Is(target error) bool { return target == ErrUnsupportedPlan }

// IllegalTransitionError reports a target outside the current state's allowed set.
type IllegalTransitionError struct {
	From    ApplicationStatus
	To      ApplicationStatus
	Allowed []ApplicationStatus
}

func (e *IllegalTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s: %s -> %s (allowed: [%s])", ErrIllegalTransition, e.From, e.To, strings.Join(allowed, ", "))
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// NoChangeError reports a transition to the current status.
type NoChangeError struct {
	Status ApplicationStatus
}

func (e *NoChangeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoChange, e.Status)
}

func (e *NoChangeError) Is(target error) bool { return target == ErrNoChange }

// MissingRejectionReasonError reports a rejection without a reason.
type MissingRejectionReasonError struct{}

func (e *MissingRejectionReasonError) Error() string { return ErrMissingRejectionReason.Error() }

func (e *MissingRejectionReasonError) Is(target error) bool {
	return target == ErrMissingRejectionReason
}

// ConcurrentTransitionConflictError is returned when another writer changed the
// status between read and write. Callers may retry.
type ConcurrentTransitionConflictError struct {
	ApplicationID int32
}

func (e *ConcurrentTransitionConflictError) Error() string {
	return fmt.Sprintf("%s: application %d", ErrConcurrentTransition, e.ApplicationID)
}

func (e *ConcurrentTransitionConflictError) Is(target error) bool {
	return target == ErrConcurrentTransition
}
