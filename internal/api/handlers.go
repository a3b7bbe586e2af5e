package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusgrid/degree-planner/internal/curriculum"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "database not reachable")
		return
	}
	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", "cache not reachable")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Program catalog handlers

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.List())
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	program := s.catalog.Get(code)
	if program == nil {
		respondError(w, http.StatusNotFound, "program_not_found", "program not found")
		return
	}

	respondJSON(w, http.StatusOK, program)
}

// handleGetCourse returns a single course plus its parsed prerequisite
// and dependent sets, the two directions the graph model answers.
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	courseCode := chi.URLParam(r, "course")

	graph := s.catalog.Graph(code)
	if graph == nil {
		respondError(w, http.StatusNotFound, "program_not_found", "program not found")
		return
	}

	course, err := graph.Course(courseCode)
	if err != nil {
		respondError(w, http.StatusNotFound, "course_not_found", "course not found in program")
		return
	}

	prereqs, err := graph.PrerequisitesOf(courseCode)
	if err != nil {
		respondError(w, http.StatusNotFound, "course_not_found", "course not found in program")
		return
	}
	dependents, err := graph.DependentsOf(courseCode)
	if err != nil {
		respondError(w, http.StatusNotFound, "course_not_found", "course not found in program")
		return
	}
	requirement, err := graph.Requirement(courseCode)
	if err != nil {
		respondError(w, http.StatusNotFound, "course_not_found", "course not found in program")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"course":        course,
		"prerequisites": prereqs,
		"alternatives":  curriculum.Alternatives(requirement),
		"dependents":    dependents,
	})
}

// Saved plan handlers

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "owner_id query parameter is required")
		return
	}
	programCode := r.URL.Query().Get("program_code")

	plans, err := s.repo.ListPlans(r.Context(), ownerID, programCode)
	if err != nil {
		slog.Error("failed to list plans", "error", err, "owner", ownerID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list plans")
		return
	}

	respondJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	plan, err := s.repo.GetPlan(r.Context(), id)
	if err != nil {
		slog.Error("failed to get plan", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get plan")
		return
	}
	if plan == nil {
		respondError(w, http.StatusNotFound, "plan_not_found", "plan not found")
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.repo.DeletePlan(r.Context(), id); err != nil {
		slog.Error("failed to delete plan", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete plan")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// isNotFound maps curriculum lookup failures for handler error codes.
func isNotFound(err error) bool {
	return errors.Is(err, curriculum.ErrCourseNotFound)
}
