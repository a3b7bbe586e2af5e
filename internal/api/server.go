package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campusgrid/degree-planner/internal/cache"
	"github.com/campusgrid/degree-planner/internal/config"
	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/session"
	"github.com/campusgrid/degree-planner/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	catalog        *curriculum.Loader
	sessions       *session.Manager
	repo           storage.Repository
	cache          *cache.Store
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	catalog *curriculum.Loader,
	sessions *session.Manager,
	repo storage.Repository,
	store *cache.Store,
) *Server {
	s := &Server{
		config:         cfg,
		catalog:        catalog,
		sessions:       sessions,
		repo:           repo,
		cache:          store,
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Program catalogs
		r.Route("/programs", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/", s.handleListPrograms)
			r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/{code}", s.handleGetProgram)
			r.With(s.authMiddleware.RequirePermission("catalog:read")).Get("/{code}/courses/{course}", s.handleGetCourse)
		})

		// Saved plans
		r.Route("/plans", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("plans:read")).Get("/", s.handleListPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("plans:read")).Get("/", s.handleGetPlan)
				r.With(s.authMiddleware.RequirePermission("plans:write")).Delete("/", s.handleDeletePlan)
			})
		})

		// Editing sessions
		r.Route("/sessions", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("sessions:write")).Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("sessions:read")).Get("/", s.handleGetSession)
				r.With(s.authMiddleware.RequirePermission("sessions:write")).Delete("/", s.handleDeleteSession)
				r.With(s.authMiddleware.RequirePermission("sessions:write")).Post("/periods", s.handleAddPeriod)
				r.With(s.authMiddleware.RequirePermission("sessions:write")).Post("/courses", s.handleAddCourse)
				r.With(s.authMiddleware.RequirePermission("sessions:read")).Get("/courses/{course}/removal", s.handlePreviewRemoval)
				r.With(s.authMiddleware.RequirePermission("sessions:write")).Delete("/courses/{course}", s.handleRemoveCourse)
				r.With(s.authMiddleware.RequirePermission("sessions:write")).Post("/courses/{course}/move", s.handleMoveCourse)
				r.With(s.authMiddleware.RequirePermission("sessions:write")).Post("/projection", s.handleGenerateProjection)
				r.With(s.authMiddleware.RequirePermission("plans:write")).Post("/save", s.handleSavePlan)
				r.With(s.authMiddleware.RequirePermission("sessions:read")).Get("/watch", s.handleWatchSession)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
