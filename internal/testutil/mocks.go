package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[string]*domain.User
	ByID     map[uuid.UUID]*domain.User
	CreateFn func(auth0ID, email string, name *string) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
		ByID:  make(map[uuid.UUID]*domain.User),
	}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// CreateOrGetByAuth0ID creates or retrieves a user by Auth0 ID
func (m *MockUserRepository) CreateOrGetByAuth0ID(ctx context.Context, auth0ID, email string, name *string) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(auth0ID, email, name)
	}
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	user := &domain.User{
		ID:        uuid.New(),
		Auth0ID:   auth0ID,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.AddUser(user)
	return user, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.Auth0ID] = user
	m.ByID[user.ID] = user
}

// MockFinancingPlanRepository is a mock implementation of domain.FinancingPlanRepository
type MockFinancingPlanRepository struct {
	Plans        map[int32]*domain.FinancingPlan
	Requirements map[int32][]*domain.PlanRequirement
	nextID       int32
	GetByIDFn    func(id int32) (*domain.FinancingPlan, error)
}

// NewMockFinancingPlanRepository creates a new MockFinancingPlanRepository
func NewMockFinancingPlanRepository() *MockFinancingPlanRepository {
	return &MockFinancingPlanRepository{
		Plans:        make(map[int32]*domain.FinancingPlan),
		Requirements: make(map[int32][]*domain.PlanRequirement),
		nextID:       1,
	}
}

// AddPlan stores a plan, assigning an ID when it has none (helper for tests)
func (m *MockFinancingPlanRepository) AddPlan(plan *domain.FinancingPlan) *domain.FinancingPlan {
	if plan.ID == 0 {
		plan.ID = m.nextID
	}
	if plan.ID >= m.nextID {
		m.nextID = plan.ID + 1
	}
	m.Plans[plan.ID] = plan
	return plan
}

// GetByID retrieves a plan by ID
func (m *MockFinancingPlanRepository) GetByID(ctx context.Context, id int32) (*domain.FinancingPlan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(id)
	}
	plan, ok := m.Plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

// ListActive returns active plans ordered by ID
func (m *MockFinancingPlanRepository) ListActive(ctx context.Context) ([]*domain.FinancingPlan, error) {
	var result []*domain.FinancingPlan
	for _, p := range m.Plans {
		if p.IsActive {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Create stores a new plan
func (m *MockFinancingPlanRepository) Create(ctx context.Context, plan *domain.FinancingPlan) (*domain.FinancingPlan, error) {
	plan.ID = 0
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = plan.CreatedAt
	return m.AddPlan(plan), nil
}

// Update replaces an existing plan
func (m *MockFinancingPlanRepository) Update(ctx context.Context, plan *domain.FinancingPlan) (*domain.FinancingPlan, error) {
	if _, ok := m.Plans[plan.ID]; !ok {
		return nil, domain.ErrPlanNotFound
	}
	plan.UpdatedAt = time.Now()
	m.Plans[plan.ID] = plan
	return plan, nil
}

// ListRequirements returns the requirements of a plan
func (m *MockFinancingPlanRepository) ListRequirements(ctx context.Context, planID int32) ([]*domain.PlanRequirement, error) {
	return m.Requirements[planID], nil
}

// MockSimulationRepository is a mock implementation of domain.SimulationRepository
type MockSimulationRepository struct {
	Simulations map[int32]*domain.FinancingSimulation
	nextID      int32
	CreateFn    func(sim *domain.FinancingSimulation) (*domain.FinancingSimulation, error)
}

// NewMockSimulationRepository creates a new MockSimulationRepository
func NewMockSimulationRepository() *MockSimulationRepository {
	return &MockSimulationRepository{
		Simulations: make(map[int32]*domain.FinancingSimulation),
		nextID:      1,
	}
}

// Create stores a simulation with its lines
func (m *MockSimulationRepository) Create(ctx context.Context, sim *domain.FinancingSimulation) (*domain.FinancingSimulation, error) {
	if m.CreateFn != nil {
		return m.CreateFn(sim)
	}
	sim.ID = m.nextID
	m.nextID++
	if sim.CreatedAt.IsZero() {
		sim.CreatedAt = time.Now()
	}
	m.Simulations[sim.ID] = sim
	return sim, nil
}

// GetByID retrieves a simulation owned by userID
func (m *MockSimulationRepository) GetByID(ctx context.Context, userID uuid.UUID, id int32) (*domain.FinancingSimulation, error) {
	sim, ok := m.Simulations[id]
	if !ok || sim.UserID != userID {
		return nil, domain.ErrSimulationNotFound
	}
	return sim, nil
}

// ListByUser returns the user's simulations, newest first
func (m *MockSimulationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.FinancingSimulation, error) {
	var result []*domain.FinancingSimulation
	for _, sim := range m.Simulations {
		if sim.UserID == userID {
			result = append(result, sim)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MockCreditApplicationRepository is an in-memory domain.CreditApplicationRepository.
// Transition runs under a mutex, mirroring the row lock of the real
// repository, and records history and outbox events together.
type MockCreditApplicationRepository struct {
	mu            sync.Mutex
	Applications  map[int32]*domain.CreditApplication
	HistoryByApp  map[int32][]*domain.ApplicationStatusRecord
	NotesByApp    map[int32][]*domain.ApplicationNote
	Outbox        *MockOutboxRepository
	nextID        int32
	nextRecordID  int64
	nextNoteID    int64
	TransitionErr error // returned after fn succeeds, before anything is written
}

// NewMockCreditApplicationRepository creates a new MockCreditApplicationRepository
func NewMockCreditApplicationRepository() *MockCreditApplicationRepository {
	return &MockCreditApplicationRepository{
		Applications: make(map[int32]*domain.CreditApplication),
		HistoryByApp: make(map[int32][]*domain.ApplicationStatusRecord),
		NotesByApp:   make(map[int32][]*domain.ApplicationNote),
		Outbox:       NewMockOutboxRepository(),
		nextID:       1,
		nextRecordID: 1,
		nextNoteID:   1,
	}
}

func (m *MockCreditApplicationRepository) appendRecord(app *domain.CreditApplication, record *domain.ApplicationStatusRecord) {
	record.ID = m.nextRecordID
	m.nextRecordID++
	record.ApplicationID = app.ID
	m.HistoryByApp[app.ID] = append(m.HistoryByApp[app.ID], record)
	m.Outbox.Enqueue(domain.NewStatusEvent(app, record))
}

// Create stores a Draft application and its initial record
func (m *MockCreditApplicationRepository) Create(ctx context.Context, app *domain.CreditApplication, initial *domain.ApplicationStatusRecord) (*domain.CreditApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	app.ID = m.nextID
	m.nextID++
	m.Applications[app.ID] = app
	m.appendRecord(app, initial)
	copied := *app
	return &copied, nil
}

// AddApplication stores an application without history (helper for tests)
func (m *MockCreditApplicationRepository) AddApplication(app *domain.CreditApplication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.ID == 0 {
		app.ID = m.nextID
	}
	if app.ID >= m.nextID {
		m.nextID = app.ID + 1
	}
	m.Applications[app.ID] = app
}

// GetByID retrieves an application by ID
func (m *MockCreditApplicationRepository) GetByID(ctx context.Context, id int32) (*domain.CreditApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.Applications[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	copied := *app
	return &copied, nil
}

// ListByUser returns the user's applications, newest first
func (m *MockCreditApplicationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.CreditApplication, error) {
	return m.list(func(a *domain.CreditApplication) bool { return a.UserID == userID }, limit, true), nil
}

// ListByStatus returns applications in a status, oldest first
func (m *MockCreditApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]*domain.CreditApplication, error) {
	return m.list(func(a *domain.CreditApplication) bool { return a.Status == status }, limit, false), nil
}

func (m *MockCreditApplicationRepository) list(keep func(*domain.CreditApplication) bool, limit int, newestFirst bool) []*domain.CreditApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.CreditApplication
	for _, a := range m.Applications {
		if keep(a) {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if newestFirst {
			return result[i].ID > result[j].ID
		}
		return result[i].ID < result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// UpdateDraftNotes replaces notes while the application is in Draft
func (m *MockCreditApplicationRepository) UpdateDraftNotes(ctx context.Context, id int32, notes string) (*domain.CreditApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.Applications[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	if app.Status != domain.StatusDraft {
		return nil, domain.ErrApplicationNotDraft
	}
	app.Notes = notes
	app.UpdatedAt = time.Now()
	copied := *app
	return &copied, nil
}

// Transition applies fn to a copy of the application and commits it only
// when fn succeeds.
func (m *MockCreditApplicationRepository) Transition(ctx context.Context, id int32, fn domain.TransitionFunc) (*domain.CreditApplication, *domain.ApplicationStatusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.Applications[id]
	if !ok {
		return nil, nil, domain.ErrApplicationNotFound
	}
	working := *stored
	record, err := fn(&working)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, fmt.Errorf("transition of application %d produced no history record", id)
	}
	if m.TransitionErr != nil {
		return nil, nil, m.TransitionErr
	}

	*stored = working
	m.appendRecord(stored, record)
	copied := *stored
	return &copied, record, nil
}

// History returns the records of an application in insertion order
func (m *MockCreditApplicationRepository) History(ctx context.Context, id int32) ([]*domain.ApplicationStatusRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.HistoryByApp[id]
	out := make([]*domain.ApplicationStatusRecord, len(records))
	copy(out, records)
	return out, nil
}

// AddNote appends a staff note
func (m *MockCreditApplicationRepository) AddNote(ctx context.Context, note *domain.ApplicationNote) (*domain.ApplicationNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note.ID = m.nextNoteID
	m.nextNoteID++
	m.NotesByApp[note.ApplicationID] = append(m.NotesByApp[note.ApplicationID], note)
	return note, nil
}

// ListNotes returns notes in insertion order
func (m *MockCreditApplicationRepository) ListNotes(ctx context.Context, applicationID int32) ([]*domain.ApplicationNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := m.NotesByApp[applicationID]
	out := make([]*domain.ApplicationNote, len(notes))
	copy(out, notes)
	return out, nil
}

// MockOutboxRepository is an in-memory domain.OutboxRepository
type MockOutboxRepository struct {
	mu        sync.Mutex
	Pending   []*domain.StatusEvent
	Published []*domain.StatusEvent
	ProcessFn func(limit int) error
}

// NewMockOutboxRepository creates a new MockOutboxRepository
func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Enqueue adds a pending event
func (m *MockOutboxRepository) Enqueue(event *domain.StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pending = append(m.Pending, event)
}

// ProcessPending hands up to limit pending events to fn and moves the
// successful ones to Published.
func (m *MockOutboxRepository) ProcessPending(ctx context.Context, limit int, fn domain.StatusEventHandler) (int, error) {
	if m.ProcessFn != nil {
		if err := m.ProcessFn(limit); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := limit
	if n > len(m.Pending) {
		n = len(m.Pending)
	}
	var remaining []*domain.StatusEvent
	published := 0
	for i, event := range m.Pending {
		if i >= n {
			remaining = append(remaining, event)
			continue
		}
		if err := fn(ctx, event); err != nil {
			remaining = append(remaining, event)
			continue
		}
		m.Published = append(m.Published, event)
		published++
	}
	m.Pending = remaining
	return published, nil
}

// PendingCount returns the number of unpublished events
func (m *MockOutboxRepository) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Pending)
}

// MockStatusEventPublisher records published events
type MockStatusEventPublisher struct {
	mu        sync.Mutex
	Events    []*domain.StatusEvent
	PublishFn func(event *domain.StatusEvent) error
}

// NewMockStatusEventPublisher creates a new MockStatusEventPublisher
func NewMockStatusEventPublisher() *MockStatusEventPublisher {
	return &MockStatusEventPublisher{}
}

// PublishStatusEvent records the event unless PublishFn fails
func (m *MockStatusEventPublisher) PublishStatusEvent(ctx context.Context, event *domain.StatusEvent) error {
	if m.PublishFn != nil {
		if err := m.PublishFn(event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Count returns the number of recorded events
func (m *MockStatusEventPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}
