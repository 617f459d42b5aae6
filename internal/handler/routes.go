package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/llevateloexpress/financing-backend/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth        *AuthHandler
	Financing   *FinancingHandler
	Plans       *PlanHandler
	Application *ApplicationHandler
	Staff       *StaffHandler
	WebSocket   *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, calculatorLimiter *middleware.RateLimiter, h Handlers) {
	// API version 1
	api := e.Group("/api/v1")

	// Auth routes (protected)
	auth := api.Group("/auth")
	auth.Use(authMiddleware.Authenticate())
	auth.GET("/me", h.Auth.Me)

	// Financing routes (public)
	financing := api.Group("/financing")
	financing.POST("/calculate", h.Financing.Calculate, middleware.RateLimitMiddleware(calculatorLimiter))
	financing.GET("/plans", h.Plans.GetPlans)
	financing.GET("/plans/:id", h.Plans.GetPlan)
	financing.GET("/plans/:id/requirements", h.Plans.GetRequirements)

	// Plan management (staff)
	staffOnly := []echo.MiddlewareFunc{authMiddleware.Authenticate(), middleware.RequireStaff()}
	financing.POST("/plans", h.Plans.CreatePlan, staffOnly...)
	financing.PUT("/plans/:id", h.Plans.UpdatePlan, staffOnly...)

	// Simulation routes (protected)
	simulations := api.Group("/simulations")
	simulations.Use(authMiddleware.Authenticate())
	simulations.POST("", h.Financing.CreateSimulation)
	simulations.GET("", h.Financing.GetSimulations)
	simulations.GET("/:id", h.Financing.GetSimulation)

	// Application routes (protected, owner only)
	applications := api.Group("/applications")
	applications.Use(authMiddleware.Authenticate())
	applications.POST("", h.Application.CreateApplication)
	applications.GET("", h.Application.GetApplications)
	applications.GET("/:id", h.Application.GetApplication)
	applications.PATCH("/:id", h.Application.UpdateApplication)
	applications.POST("/:id/submit", h.Application.SubmitApplication)
	applications.POST("/:id/cancel", h.Application.CancelApplication)
	applications.GET("/:id/history", h.Application.GetHistory)

	// Review routes (staff)
	staff := api.Group("/staff/applications")
	staff.Use(staffOnly...)
	staff.GET("", h.Staff.GetQueue)
	staff.GET("/:id", h.Staff.GetApplication)
	staff.GET("/:id/history", h.Staff.GetHistory)
	staff.POST("/:id/transitions", h.Staff.Transition)
	staff.POST("/:id/notes", h.Staff.AddNote)
	staff.GET("/:id/notes", h.Staff.GetNotes)

	// WebSocket (token in query string)
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}
}
