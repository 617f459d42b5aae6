package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type applicationFixture struct {
	svc      *ApplicationService
	appRepo  *testutil.MockCreditApplicationRepository
	simRepo  *testutil.MockSimulationRepository
	planRepo *testutil.MockFinancingPlanRepository
	owner    uuid.UUID
	staff    uuid.UUID
}

func setupApplicationService() *applicationFixture {
	planRepo := testutil.NewMockFinancingPlanRepository()
	planRepo.AddPlan(programmedPlan())
	planRepo.AddPlan(immediatePlan())
	simRepo := testutil.NewMockSimulationRepository()
	appRepo := testutil.NewMockCreditApplicationRepository()

	financing := NewFinancingService(planRepo, simRepo, domain.DefaultFinancingConfig(), nil)
	svc := NewApplicationService(appRepo, simRepo, planRepo, financing, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }

	return &applicationFixture{
		svc:      svc,
		appRepo:  appRepo,
		simRepo:  simRepo,
		planRepo: planRepo,
		owner:    uuid.New(),
		staff:    uuid.New(),
	}
}

func (f *applicationFixture) createDraft(t *testing.T) *domain.CreditApplication {
	t.Helper()
	app, err := f.svc.CreateApplication(context.Background(), f.owner, CreateApplicationInput{
		PlanID:     2,
		Amount:     dec("10000"),
		TermMonths: 12,
	})
	require.NoError(t, err)
	return app
}

func (f *applicationFixture) transition(t *testing.T, id int32, to domain.ApplicationStatus) {
	t.Helper()
	_, err := f.svc.RequestStatusTransition(context.Background(), id, domain.TransitionRequest{
		To:              to,
		ActorID:         f.staff,
		RejectionReason: "documents incomplete",
	})
	require.NoError(t, err)
}

func TestCreateApplication_FromRawTerms(t *testing.T) {
	f := setupApplicationService()

	app := f.createDraft(t)

	assert.Equal(t, domain.StatusDraft, app.Status)
	assert.Equal(t, f.owner, app.UserID)
	assertDecimal(t, "10000", app.Amount)
	assertDecimal(t, "621.94", app.MonthlyPayment)
	require.NotNil(t, app.DownPayment)
	assertDecimal(t, "3000", *app.DownPayment)
	assert.Nil(t, app.SimulationID)

	history, err := f.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusDraft, history[0].Status)
	assert.Equal(t, 1, f.appRepo.Outbox.PendingCount())
}

func TestCreateApplication_RawTermsValidatedAgainstPlan(t *testing.T) {
	f := setupApplicationService()

	_, err := f.svc.CreateApplication(context.Background(), f.owner, CreateApplicationInput{
		PlanID:      2,
		Amount:      dec("10000"),
		TermMonths:  12,
		DownPayment: decPtr("1000"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientDownPayment)

	_, err = f.svc.CreateApplication(context.Background(), f.owner, CreateApplicationInput{
		PlanID:     2,
		Amount:     dec("10000"),
		TermMonths: 120,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)
	assert.Empty(t, f.appRepo.Applications)
}

func TestCreateApplication_FromSimulation(t *testing.T) {
	f := setupApplicationService()
	result, err := CalculateSchedule(programmedInput("12000", "45", 24))
	require.NoError(t, err)
	sim, err := f.simRepo.Create(context.Background(), domain.NewSimulation(f.owner, 42, result))
	require.NoError(t, err)

	app, err := f.svc.CreateApplication(context.Background(), f.owner, CreateApplicationInput{
		SimulationID: &sim.ID,
		Notes:        "prefer white",
	})

	require.NoError(t, err)
	require.NotNil(t, app.SimulationID)
	assert.Equal(t, sim.ID, *app.SimulationID)
	require.NotNil(t, app.ProductID)
	assert.Equal(t, int32(42), *app.ProductID)
	assert.Equal(t, int32(1), app.PlanID)
	assertDecimal(t, "12000", app.Amount)
	assertDecimal(t, "225", app.MonthlyPayment)
	assert.Equal(t, 24, app.TermMonths)
	assert.Nil(t, app.DownPayment)
	assert.Equal(t, "prefer white", app.Notes)
}

func TestCreateApplication_FromOtherUsersSimulation(t *testing.T) {
	f := setupApplicationService()
	result, err := CalculateSchedule(programmedInput("12000", "45", 24))
	require.NoError(t, err)
	sim, err := f.simRepo.Create(context.Background(), domain.NewSimulation(uuid.New(), 42, result))
	require.NoError(t, err)

	_, err = f.svc.CreateApplication(context.Background(), f.owner, CreateApplicationInput{SimulationID: &sim.ID})
	assert.ErrorIs(t, err, domain.ErrSimulationNotFound)
}

func TestCreateApplication_FromSimulationOfInactivePlan(t *testing.T) {
	f := setupApplicationService()
	result, err := CalculateSchedule(programmedInput("12000", "45", 24))
	require.NoError(t, err)
	sim, err := f.simRepo.Create(context.Background(), domain.NewSimulation(f.owner, 42, result))
	require.NoError(t, err)
	f.planRepo.Plans[1].IsActive = false

	_, err = f.svc.CreateApplication(context.Background(), f.owner, CreateApplicationInput{SimulationID: &sim.ID})
	assert.ErrorIs(t, err, domain.ErrPlanInactive)
}

func TestRequestStatusTransition_HappyPath(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)

	path := []domain.ApplicationStatus{
		domain.StatusSubmitted,
		domain.StatusInReview,
		domain.StatusAdditionalInfoRequired,
		domain.StatusInReview,
		domain.StatusApproved,
	}
	for _, to := range path {
		f.transition(t, app.ID, to)
	}

	got, err := f.svc.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.NotNil(t, got.SubmittedAt)
	assert.NotNil(t, got.ApprovedAt)

	history, err := f.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	// creation record plus one per transition
	require.Len(t, history, len(path)+1)
	for i, to := range path {
		assert.Equal(t, to, history[i+1].Status)
		assert.Equal(t, f.staff, *history[i+1].ActorID)
	}
	assert.Equal(t, len(path)+1, f.appRepo.Outbox.PendingCount())
}

func TestRequestStatusTransition_FailuresLeaveHistoryUnchanged(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)
	ctx := context.Background()

	_, err := f.svc.RequestStatusTransition(ctx, app.ID, domain.TransitionRequest{To: domain.StatusDraft, ActorID: f.staff})
	assert.ErrorIs(t, err, domain.ErrNoChange)

	_, err = f.svc.RequestStatusTransition(ctx, app.ID, domain.TransitionRequest{To: domain.StatusApproved, ActorID: f.staff})
	var illegal *domain.IllegalTransitionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, domain.StatusDraft, illegal.From)
	assert.Equal(t, []domain.ApplicationStatus{domain.StatusSubmitted, domain.StatusCancelled}, illegal.Allowed)

	f.transition(t, app.ID, domain.StatusSubmitted)
	_, err = f.svc.RequestStatusTransition(ctx, app.ID, domain.TransitionRequest{To: domain.StatusRejected, ActorID: f.staff})
	assert.ErrorIs(t, err, domain.ErrMissingRejectionReason)

	got, err := f.svc.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	history, err := f.svc.History(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRequestStatusTransition_RejectedIsFinal(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)
	f.transition(t, app.ID, domain.StatusSubmitted)
	f.transition(t, app.ID, domain.StatusRejected)

	got, err := f.svc.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "documents incomplete", *got.RejectionReason)
	assert.NotNil(t, got.RejectedAt)

	for _, to := range domain.AllStatuses {
		if to == domain.StatusRejected {
			continue
		}
		_, err := f.svc.RequestStatusTransition(context.Background(), app.ID, domain.TransitionRequest{
			To:              to,
			ActorID:         f.staff,
			RejectionReason: "again",
		})
		assert.ErrorIs(t, err, domain.ErrIllegalTransition, "target %s", to)
	}

	history, err := f.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestRequestStatusTransition_NotFound(t *testing.T) {
	f := setupApplicationService()
	_, err := f.svc.RequestStatusTransition(context.Background(), 404, domain.TransitionRequest{To: domain.StatusSubmitted})
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
}

func TestRequestStatusTransition_ConcurrentConflict(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)
	f.appRepo.TransitionErr = &domain.ConcurrentTransitionConflictError{ApplicationID: app.ID}

	_, err := f.svc.RequestStatusTransition(context.Background(), app.ID, domain.TransitionRequest{To: domain.StatusSubmitted, ActorID: f.owner})

	assert.ErrorIs(t, err, domain.ErrConcurrentTransition)
	got, _ := f.svc.GetApplication(context.Background(), app.ID)
	assert.Equal(t, domain.StatusDraft, got.Status)
}

func TestRequestStatusTransition_ConcurrentRequestsSerialize(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)
	f.transition(t, app.ID, domain.StatusSubmitted)
	f.transition(t, app.ID, domain.StatusInReview)

	// Two reviewers race to decide the same application
	targets := []domain.ApplicationStatus{domain.StatusApproved, domain.StatusRejected}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to domain.ApplicationStatus) {
			defer wg.Done()
			_, errs[i] = f.svc.RequestStatusTransition(context.Background(), app.ID, domain.TransitionRequest{
				To:              to,
				ActorID:         uuid.New(),
				RejectionReason: "risk",
			})
		}(i, to)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	}
	assert.Equal(t, 1, succeeded)

	history, err := f.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestSubmit(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)

	_, err := f.svc.Submit(context.Background(), uuid.New(), app.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotApplicationOwner)

	record, err := f.svc.Submit(context.Background(), f.owner, app.ID, "ready")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, record.Status)
	assert.Equal(t, "ready", record.Note)

	f.transition(t, app.ID, domain.StatusInReview)
	f.transition(t, app.ID, domain.StatusAdditionalInfoRequired)
	_, err = f.svc.Submit(context.Background(), f.owner, app.ID, "")
	var illegal *domain.IllegalTransitionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, domain.StatusAdditionalInfoRequired, illegal.From)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name    string
		path    []domain.ApplicationStatus
		wantErr error
	}{
		{"from draft", nil, nil},
		{"from in review", []domain.ApplicationStatus{domain.StatusSubmitted, domain.StatusInReview}, nil},
		{"from approved", []domain.ApplicationStatus{domain.StatusSubmitted, domain.StatusInReview, domain.StatusApproved}, domain.ErrIllegalTransition},
		{"from rejected", []domain.ApplicationStatus{domain.StatusSubmitted, domain.StatusRejected}, domain.ErrIllegalTransition},
		{"from cancelled", []domain.ApplicationStatus{domain.StatusCancelled}, domain.ErrNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupApplicationService()
			app := f.createDraft(t)
			for _, to := range tt.path {
				f.transition(t, app.ID, to)
			}

			record, err := f.svc.Cancel(context.Background(), f.owner, app.ID, "changed my mind")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, record)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCancelled, record.Status)
		})
	}
}

func TestStaffMayCancelApproved(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)
	for _, to := range []domain.ApplicationStatus{domain.StatusSubmitted, domain.StatusInReview, domain.StatusApproved, domain.StatusCancelled} {
		f.transition(t, app.ID, to)
	}
	got, _ := f.svc.GetApplication(context.Background(), app.ID)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestUpdateDraft(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)

	updated, err := f.svc.UpdateDraft(context.Background(), f.owner, app.ID, "  call after 5pm ")
	require.NoError(t, err)
	assert.Equal(t, "call after 5pm", updated.Notes)

	_, err = f.svc.UpdateDraft(context.Background(), uuid.New(), app.ID, "x")
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)

	_, err = f.svc.Submit(context.Background(), f.owner, app.ID, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateDraft(context.Background(), f.owner, app.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrApplicationNotDraft)
}

func TestListForUserAndByStatus(t *testing.T) {
	f := setupApplicationService()
	first := f.createDraft(t)
	second := f.createDraft(t)
	f.transition(t, second.ID, domain.StatusSubmitted)

	mine, err := f.svc.ListForUser(context.Background(), f.owner, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	others, err := f.svc.ListForUser(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, others)

	drafts, err := f.svc.ListByStatus(context.Background(), domain.StatusDraft, 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, first.ID, drafts[0].ID)

	_, err = f.svc.ListByStatus(context.Background(), "pending", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHistoryForOwner(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)

	history, err := f.svc.HistoryForOwner(context.Background(), f.owner, app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.HistoryForOwner(context.Background(), uuid.New(), app.ID)
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
}

func TestNotes(t *testing.T) {
	f := setupApplicationService()
	app := f.createDraft(t)

	note, err := f.svc.AddNote(context.Background(), app.ID, f.staff, "verified income")
	require.NoError(t, err)
	assert.Equal(t, int64(1), note.ID)

	_, err = f.svc.AddNote(context.Background(), app.ID, f.staff, " ")
	assert.ErrorIs(t, err, domain.ErrNoteEmpty)

	_, err = f.svc.AddNote(context.Background(), 999, f.staff, "lost")
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)

	notes, err := f.svc.ListNotes(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "verified income", notes[0].Body)

	// notes never touch the status history
	history, err := f.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
