package domain

import (
	"testing"
)

func TestApplicationStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   ApplicationStatus
		expected string
	}{
		{"draft", StatusDraft, "draft"},
		{"submitted", StatusSubmitted, "submitted"},
		{"in review", StatusInReview, "in_review"},
		{"additional info required", StatusAdditionalInfoRequired, "additional_info_required"},
		{"approved", StatusApproved, "approved"},
		{"rejected", StatusRejected, "rejected"},
		{"cancelled", StatusCancelled, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.status) != tt.expected {
				t.Errorf("ApplicationStatus %s = %s, want %s", tt.name, tt.status, tt.expected)
			}
		})
	}
}

func TestStatusValuesMatchDatabaseConstraint(t *testing.T) {
	// Must match the CHECK constraint on credit_applications.status
	dbValues := []string{"draft", "submitted", "in_review", "additional_info_required", "approved", "rejected", "cancelled"}
	if len(AllStatuses) != len(dbValues) {
		t.Fatalf("expected %d statuses, got %d", len(dbValues), len(AllStatuses))
	}
	for i, v := range dbValues {
		if string(AllStatuses[i]) != v {
			t.Errorf("AllStatuses[%d] = %s, want %s", i, AllStatuses[i], v)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	expected := map[ApplicationStatus][]ApplicationStatus{
		StatusDraft:                  {StatusSubmitted, StatusCancelled},
		StatusSubmitted:              {StatusInReview, StatusRejected, StatusCancelled},
		StatusInReview:               {StatusAdditionalInfoRequired, StatusApproved, StatusRejected, StatusCancelled},
		StatusAdditionalInfoRequired: {StatusInReview, StatusRejected, StatusCancelled},
		StatusApproved:               {StatusCancelled},
		StatusRejected:               {},
		StatusCancelled:              {},
	}

	for _, from := range AllStatuses {
		allowed := map[ApplicationStatus]bool{}
		for _, s := range expected[from] {
			allowed[s] = true
		}
		for _, to := range AllStatuses {
			if got := from.CanTransitionTo(to); got != allowed[to] {
				t.Errorf("%s -> %s: CanTransitionTo = %v, want %v", from, to, got, allowed[to])
			}
		}
		if len(from.AllowedNext()) != len(expected[from]) {
			t.Errorf("%s: AllowedNext has %d entries, want %d", from, len(from.AllowedNext()), len(expected[from]))
		}
	}
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	next := StatusDraft.AllowedNext()
	next[0] = StatusApproved

	if StatusDraft.CanTransitionTo(StatusApproved) {
		t.Error("mutating AllowedNext result changed the transition table")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[ApplicationStatus]bool{
		StatusApproved:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	}
	for _, s := range AllStatuses {
		if s.IsTerminal() != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), terminal[s])
		}
	}
}

func TestParseApplicationStatus(t *testing.T) {
	status, err := ParseApplicationStatus(" IN_REVIEW ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusInReview {
		t.Errorf("got %s, want %s", status, StatusInReview)
	}

	if _, err := ParseApplicationStatus("pending"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusLabel(t *testing.T) {
	if StatusApproved.Label() != "Aprobada" {
		t.Errorf("Label() = %s, want Aprobada", StatusApproved.Label())
	}
	if ApplicationStatus("unknown").Label() != "unknown" {
		t.Error("unknown status should fall back to its raw value")
	}
}
