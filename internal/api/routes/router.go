package routes

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tobenna/symptom-assist/backend/internal/api/handlers"
	"github.com/tobenna/symptom-assist/backend/internal/api/middleware"
	"github.com/tobenna/symptom-assist/backend/internal/domain/repositories"
	"github.com/tobenna/symptom-assist/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	conversationHandler *handlers.ConversationHandler
	reportHandler       *handlers.ReportHandler
	exportHandler       *handlers.ExportHandler

	users   repositories.UserRepository
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	conversationHandler *handlers.ConversationHandler,
	reportHandler *handlers.ReportHandler,
	exportHandler *handlers.ExportHandler,
	users repositories.UserRepository,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		conversationHandler: conversationHandler,
		reportHandler:       reportHandler,
		exportHandler:       exportHandler,
		users:               users,
		logger:              logger,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Conversation endpoints
	r.mux.Handle("POST /api/conversation/turn", middleware.RequireIdentity(http.HandlerFunc(r.conversationHandler.ProcessTurn)))
	r.mux.Handle("DELETE /api/conversation/lock", middleware.RequireIdentity(http.HandlerFunc(r.conversationHandler.ClearUpgradeLock)))

	// History and report endpoints
	r.mux.Handle("GET /api/assessments", middleware.RequireIdentity(http.HandlerFunc(r.reportHandler.ListAssessments)))
	r.mux.Handle("POST /api/reports", middleware.RequireIdentity(http.HandlerFunc(r.reportHandler.GenerateReport)))
	r.mux.Handle("GET /api/reports/{id}", middleware.RequireIdentity(http.HandlerFunc(r.reportHandler.GetReport)))
	r.mux.Handle("GET /api/export/assessments.csv", middleware.RequireIdentity(http.HandlerFunc(r.exportHandler.ExportAssessments)))

	// Apply middleware in order: CORS -> auth -> logging -> observability
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(r.logger)(handler)
	handler = middleware.AuthMiddleware(r.users)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
