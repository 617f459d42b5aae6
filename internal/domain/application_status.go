package domain

import (
	"fmt"
	"strings"
)

// ApplicationStatus is the lifecycle state of a credit application
type ApplicationStatus string

const (
	StatusDraft                  ApplicationStatus = "draft"
	StatusSubmitted              ApplicationStatus = "submitted"
	StatusInReview               ApplicationStatus = "in_review"
	StatusAdditionalInfoRequired ApplicationStatus = "additional_info_required"
	StatusApproved               ApplicationStatus = "approved"
	StatusRejected               ApplicationStatus = "rejected"
	StatusCancelled              ApplicationStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []ApplicationStatus{
	StatusDraft,
	StatusSubmitted,
	StatusInReview,
	StatusAdditionalInfoRequired,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
}

// allowedTransitions is the single source of truth for the lifecycle.
// Approved is terminal for review purposes but may still be cancelled.
var allowedTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:                  {StatusSubmitted, StatusCancelled},
	StatusSubmitted:              {StatusInReview, StatusRejected, StatusCancelled},
	StatusInReview:               {StatusAdditionalInfoRequired, StatusApproved, StatusRejected, StatusCancelled},
	StatusAdditionalInfoRequired: {StatusInReview, StatusRejected, StatusCancelled},
	StatusApproved:               {StatusCancelled},
	StatusRejected:               {},
	StatusCancelled:              {},
}

var statusLabels = map[ApplicationStatus]string{
	StatusDraft:                  "Borrador",
	StatusSubmitted:              "Enviada",
	StatusInReview:               "En revisión",
	StatusAdditionalInfoRequired: "Información adicional requerida",
	StatusApproved:               "Aprobada",
	StatusRejected:               "Rechazada",
	StatusCancelled:              "Cancelada",
}

// ParseApplicationStatus converts a wire value into a known status
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown application status %q", ErrInvalidInput, s)
	}
	return status, nil
}

// IsValid reports whether s is one of the seven lifecycle states
func (s ApplicationStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// AllowedNext returns a copy of the statuses reachable from s
func (s ApplicationStatus) AllowedNext() []ApplicationStatus {
	next := allowedTransitions[s]
	out := make([]ApplicationStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether target is in the allowed set of s
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s closes the review process.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Label returns the customer-facing name of the status
func (s ApplicationStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s ApplicationStatus) String() string { return string(s) }
