package handler

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/middleware"
	"github.com/llevateloexpress/financing-backend/internal/service"
	"github.com/llevateloexpress/financing-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

// Helper to set up auth context for a resolved user
func setupAuthContext(c echo.Context, user *domain.User) {
	c.SetRequest(c.Request().WithContext(middleware.WithUser(c.Request().Context(), user)))
}

func newCustomer() *domain.User {
	return &domain.User{ID: uuid.New(), Auth0ID: "auth0|customer", Email: "cliente@example.com"}
}

func newStaff() *domain.User {
	return &domain.User{ID: uuid.New(), Auth0ID: "auth0|staff", Email: "staff@example.com", IsStaff: true}
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

// newRequest builds a context for method and target with an optional JSON body
func newRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withParam(c echo.Context, name, value string) {
	c.SetParamNames(name)
	c.SetParamValues(value)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testPlans() *testutil.MockFinancingPlanRepository {
	planRepo := testutil.NewMockFinancingPlanRepository()
	planRepo.AddPlan(&domain.FinancingPlan{
		ID:                     1,
		Name:                   "Compra Programada",
		PlanType:               domain.PlanTypeProgrammed,
		MinTerm:                12,
		MaxTerm:                48,
		AnnualInterestRate:     dec("0"),
		AdjudicationPercentage: dec("45"),
		IsActive:               true,
	})
	planRepo.AddPlan(&domain.FinancingPlan{
		ID:                    2,
		Name:                  "Adjudicación Inmediata",
		PlanType:              domain.PlanTypeImmediate,
		MinTerm:               6,
		MaxTerm:               60,
		AnnualInterestRate:    dec("12"),
		DownPaymentPercentage: dec("30"),
		IsActive:              true,
	})
	return planRepo
}

type testEnv struct {
	planRepo  *testutil.MockFinancingPlanRepository
	simRepo   *testutil.MockSimulationRepository
	appRepo   *testutil.MockCreditApplicationRepository
	financing *service.FinancingService
	plans     *service.PlanService
	apps      *service.ApplicationService
}

func newTestEnv() *testEnv {
	cfg := domain.DefaultFinancingConfig()
	env := &testEnv{
		planRepo: testPlans(),
		simRepo:  testutil.NewMockSimulationRepository(),
		appRepo:  testutil.NewMockCreditApplicationRepository(),
	}
	env.financing = service.NewFinancingService(env.planRepo, env.simRepo, cfg, nil)
	env.plans = service.NewPlanService(env.planRepo, cfg)
	env.apps = service.NewApplicationService(env.appRepo, env.simRepo, env.planRepo, env.financing, nil)
	return env
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem: %v", err)
	}
	return problem
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Fatalf("Expected status %d, got %d: %s", expected, rec.Code, rec.Body.String())
	}
}
