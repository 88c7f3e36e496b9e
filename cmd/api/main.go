package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tobenna/symptom-assist/backend/internal/adapters/cache"
	"github.com/tobenna/symptom-assist/backend/internal/adapters/database"
	"github.com/tobenna/symptom-assist/backend/internal/adapters/reports"
	"github.com/tobenna/symptom-assist/backend/internal/adapters/session"
	"github.com/tobenna/symptom-assist/backend/internal/api/handlers"
	"github.com/tobenna/symptom-assist/backend/internal/api/routes"
	"github.com/tobenna/symptom-assist/backend/internal/application/services"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/openai"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/postgres"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/clients/redis"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/observability"
	"github.com/tobenna/symptom-assist/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized successfully")

	// Initialize Redis client. The service degrades to in-process session
	// state and rate limiting when Redis is unavailable.
	var cacheProvider providers.CacheProvider
	var sessionStore providers.SessionStateProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, using in-process session state")
		sessionStore = session.NewMemorySessionStore()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		sessionStore = session.NewRedisSessionStore(redisClient, cfg.Session.UpgradeLockTTL)
		logger.Info().Msg("Redis client initialized successfully")
	}

	// Initialize the completion client
	completionClient, err := openai.NewClient(&cfg.OpenAI)
	if err != nil {
		log.Fatalf("Failed to initialize completion client: %v", err)
	}

	// Initialize adapters
	assessmentAdapter := database.NewAssessmentAdapter(pgClient)
	reportAdapter := database.NewReportAdapter(pgClient)
	userAdapter := database.NewUserAdapter(pgClient)

	pdfRenderer, err := reports.NewPDFRenderer(&cfg.Reports)
	if err != nil {
		log.Fatalf("Failed to initialize PDF renderer: %v", err)
	}

	// Initialize services
	conversationService := services.NewConversationService(
		completionClient,
		sessionStore,
		assessmentAdapter,
		services.NewEntitlementGate(),
		metrics,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	reportService := services.NewReportService(assessmentAdapter, reportAdapter, pdfRenderer)

	// Initialize handlers
	conversationHandler := handlers.NewConversationHandler(conversationService, cacheProvider)
	reportHandler := handlers.NewReportHandler(reportService)
	exportHandler := handlers.NewExportHandler(reportService)

	// Set up routes
	router := routes.NewRouter(
		conversationHandler,
		reportHandler,
		exportHandler,
		userAdapter,
		*logger,
		metrics,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info().Msg("server exited")
}
