package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/llevateloexpress/financing-backend/internal/config"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/llevateloexpress/financing-backend/internal/handler"
	"github.com/llevateloexpress/financing-backend/internal/messaging"
	"github.com/llevateloexpress/financing-backend/internal/metrics"
	"github.com/llevateloexpress/financing-backend/internal/middleware"
	"github.com/llevateloexpress/financing-backend/internal/repository/postgres"
	"github.com/llevateloexpress/financing-backend/internal/service"
	"github.com/llevateloexpress/financing-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Connect to database
	pool, err := postgres.NewPool(context.Background(), postgres.PoolConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	m := metrics.New()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	planRepo := postgres.NewFinancingPlanRepository(pool)
	simulationRepo := postgres.NewSimulationRepository(pool)
	applicationRepo := postgres.NewCreditApplicationRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)

	// Initialize services
	authService := service.NewAuthService(userRepo)
	financingService := service.NewFinancingService(planRepo, simulationRepo, cfg.Financing, m)
	planService := service.NewPlanService(planRepo, cfg.Financing)
	applicationService := service.NewApplicationService(applicationRepo, simulationRepo, planRepo, financingService, m)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	// Real-time status push
	hub := websocket.NewHub()
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket JWT validator")
	}

	publishers := []domain.StatusEventPublisher{websocket.NewStatusPublisher(hub)}
	var kafkaPublisher *messaging.KafkaStatusPublisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher = messaging.NewKafkaStatusPublisher(messaging.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.StatusTopic,
		})
		publishers = append(publishers, kafkaPublisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.StatusTopic).Msg("Kafka status stream enabled")
	}

	// Start the outbox relay
	relayWorker := service.NewStatusRelayWorker(outboxRepo, publishers, m, log.Logger, service.StatusRelayWorkerConfig{
		Interval:  cfg.Outbox.RelayInterval,
		BatchSize: cfg.Outbox.BatchSize,
	})
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	relayWorker.Start(workerCtx)

	calculatorLimiter := middleware.NewRateLimiterWithConfig(cfg.CalculatorRateLimit, cfg.CalculatorBurst)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	e.Use(m.Middleware())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, calculatorLimiter, handler.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Financing:   handler.NewFinancingHandler(financingService),
		Plans:       handler.NewPlanHandler(planService),
		Application: handler.NewApplicationHandler(applicationService),
		Staff:       handler.NewStaffHandler(applicationService),
		WebSocket:   handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins),
	})

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	relayWorker.Stop()
	calculatorLimiter.Stop()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka writer")
		}
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
