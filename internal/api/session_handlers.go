package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusgrid/degree-planner/internal/models"
	"github.com/campusgrid/degree-planner/internal/planner"
	"github.com/campusgrid/degree-planner/internal/session"
)

// createSessionRequest opens an editing session. Records may be omitted
// when a transcript for the same student and program is already cached.
type createSessionRequest struct {
	ProgramCode   string                 `json:"program_code"`
	StudentID     string                 `json:"student_id"`
	PlanName      string                 `json:"plan_name,omitempty"`
	StartPeriod   string                 `json:"start_period,omitempty"`
	CreditCeiling int                    `json:"credit_ceiling,omitempty"`
	TTLSeconds    int                    `json:"ttl_seconds,omitempty"`
	Records       []models.HistoryRecord `json:"records"`
}

type sessionResponse struct {
	Session models.EditingSession `json:"session"`
	Plan    *models.Plan          `json:"plan"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProgramCode == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "program_code is required")
		return
	}
	if req.StudentID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student_id is required")
		return
	}

	records := req.Records
	if records == nil && s.cache != nil {
		key := s.cache.HistoryKey(req.StudentID, req.ProgramCode)
		if found, err := s.cache.GetJSON(r.Context(), key, &records); err != nil {
			slog.Warn("history cache lookup failed", "error", err, "key", key)
		} else if found {
			slog.Debug("history served from cache", "key", key, "records", len(records))
		}
	}

	var ttl time.Duration
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	sess, err := s.sessions.Create(req.ProgramCode, req.StudentID, records, session.Options{
		PlanName:      req.PlanName,
		StartPeriod:   req.StartPeriod,
		CreditCeiling: req.CreditCeiling,
		TTL:           ttl,
	})
	if err != nil {
		if errors.Is(err, session.ErrProgramNotFound) {
			respondError(w, http.StatusNotFound, "program_not_found", "program not found")
			return
		}
		if errors.Is(err, planner.ErrInvalidPeriodToken) {
			respondError(w, http.StatusBadRequest, "invalid_period_token", err.Error())
			return
		}
		slog.Error("failed to create editing session", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	// Freshly uploaded transcripts go to the cache so a later session
	// for the same student can omit them.
	if req.Records != nil && s.cache != nil {
		key := s.cache.HistoryKey(req.StudentID, req.ProgramCode)
		if err := s.cache.PutJSON(r.Context(), key, req.Records); err != nil {
			slog.Warn("failed to cache history records", "error", err, "key", key)
		}
	}

	respondJSON(w, http.StatusCreated, sessionResponse{Session: sess.Meta(), Plan: sess.Plan()})
}

// getSession resolves the {id} URL param into a live session.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", "editing session not found")
		return nil
	}
	return sess
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess.Meta(), Plan: sess.Plan()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", "editing session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddPeriod(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	label, err := sess.AddPeriod()
	if err != nil {
		if errors.Is(err, planner.ErrInvalidPeriodToken) {
			respondError(w, http.StatusConflict, "invalid_period_token", err.Error())
			return
		}
		slog.Error("failed to add period", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add period")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"label": label,
		"plan":  sess.Plan(),
	})
}

type addCourseRequest struct {
	CourseCode  string `json:"course_code"`
	PeriodIndex int    `json:"period_index"`
}

func (s *Server) handleAddCourse(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	var req addCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CourseCode == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "course_code is required")
		return
	}

	result, err := sess.AddCourse(req.CourseCode, req.PeriodIndex)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "course_not_found", err.Error())
			return
		}
		slog.Error("failed to add course", "error", err, "course", req.CourseCode)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add course")
		return
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]interface{}{
		"result": result,
		"plan":   sess.Plan(),
	})
}

func (s *Server) handlePreviewRemoval(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	courseCode := chi.URLParam(r, "course")
	preview, err := sess.PreviewRemoval(courseCode)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "course_not_found", err.Error())
			return
		}
		slog.Error("failed to preview removal", "error", err, "course", courseCode)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to preview removal")
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

func (s *Server) handleRemoveCourse(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	courseCode := chi.URLParam(r, "course")
	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))

	result, err := sess.CommitRemoval(courseCode, cascade)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "course_not_found", err.Error())
			return
		}
		slog.Error("failed to remove course", "error", err, "course", courseCode)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove course")
		return
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]interface{}{
		"result": result,
		"plan":   sess.Plan(),
	})
}

type moveCourseRequest struct {
	PeriodIndex int `json:"period_index"`
}

func (s *Server) handleMoveCourse(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	courseCode := chi.URLParam(r, "course")

	var req moveCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := sess.MoveCourse(courseCode, req.PeriodIndex)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "course_not_found", err.Error())
			return
		}
		slog.Error("failed to move course", "error", err, "course", courseCode)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to move course")
		return
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]interface{}{
		"result": result,
		"plan":   sess.Plan(),
	})
}

type projectionRequest struct {
	MaxCredits  int    `json:"max_credits,omitempty"`
	StartPeriod string `json:"start_period,omitempty"`
}

func (s *Server) handleGenerateProjection(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	var req projectionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	projection, err := sess.GenerateProjection(req.MaxCredits, req.StartPeriod)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidPeriodToken) {
			respondError(w, http.StatusBadRequest, "invalid_period_token", err.Error())
			return
		}
		if isNotFound(err) {
			respondError(w, http.StatusConflict, "course_not_found", err.Error())
			return
		}
		slog.Error("failed to generate projection", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to generate projection")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"projection": projection,
		"plan":       sess.Plan(),
	})
}

type savePlanRequest struct {
	Name string `json:"name,omitempty"`
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	sess := s.getSession(w, r)
	if sess == nil {
		return
	}

	var req savePlanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	plan := sess.Plan()
	if req.Name != "" {
		plan.Name = req.Name
	}

	if err := s.repo.SavePlan(r.Context(), plan); err != nil {
		slog.Error("failed to save plan", "error", err, "session_id", sess.Meta().ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save plan")
		return
	}
	sess.MarkSaved(plan.ID)

	respondJSON(w, http.StatusCreated, plan)
}
