package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/api/handlers"
	"github.com/eshaffer321/itemize-reconcile/internal/api/middleware"
	"github.com/eshaffer321/itemize-reconcile/internal/application/review"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the review HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	review     *review.Service
	pusher     handlers.Pusher
}

// NewServer creates a new API server.
// If reviewService is nil, decision endpoints answer 503; the same holds for
// the push preview when pusher is nil.
func NewServer(cfg Config, repo storage.Repository, reviewService *review.Service, pusher handlers.Pusher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
		review: reviewService,
		pusher: pusher,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		chargesHandler := handlers.NewChargesHandler(s.repo)
		r.Get("/charges", chargesHandler.List)
		r.Get("/charges/{id}", chargesHandler.Get)

		ordersHandler := handlers.NewOrdersHandler(s.repo)
		r.Get("/orders", ordersHandler.List)
		r.Get("/orders/{id}", ordersHandler.Get)

		matchesHandler := handlers.NewMatchesHandler(s.repo)
		r.Get("/matches", matchesHandler.List)

		categoriesHandler := handlers.NewCategoriesHandler(s.repo)
		r.Get("/categories", categoriesHandler.List)

		runsHandler := handlers.NewRunsHandler(s.repo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/runs/{id}/calls", runsHandler.Calls)

		if s.review != nil {
			reviewHandler := handlers.NewReviewHandler(s.repo, s.review)
			r.Get("/charges/{id}/suggestions", reviewHandler.Suggestions)
			r.Post("/charges/{id}/decision", reviewHandler.Decide)
			r.Post("/charges/{id}/split-by-items", reviewHandler.SplitByItems)
			r.Post("/charges/stage", reviewHandler.Stage)
			r.Post("/charges/discard", reviewHandler.Discard)
			r.Post("/charges/requeue", reviewHandler.Requeue)
		} else {
			unavailable := s.unavailable("review")
			r.Get("/charges/{id}/suggestions", unavailable)
			r.Post("/charges/{id}/decision", unavailable)
			r.Post("/charges/{id}/split-by-items", unavailable)
			r.Post("/charges/stage", unavailable)
			r.Post("/charges/discard", unavailable)
			r.Post("/charges/requeue", unavailable)
		}

		if s.pusher != nil {
			pushHandler := handlers.NewPushHandler(s.repo, s.pusher)
			r.Get("/push/preview", pushHandler.Preview)
		} else {
			r.Get("/push/preview", s.unavailable("push"))
		}
	})
}

func (s *Server) unavailable(feature string) http.HandlerFunc {
	base := handlers.NewBase(s.repo)
	return func(w http.ResponseWriter, r *http.Request) {
		base.WriteError(w, http.StatusServiceUnavailable, dto.UnavailableError(feature))
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
