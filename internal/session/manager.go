// Package session owns live plan-editing sessions. Each session holds
// the single editor allowed to mutate its plan, serializing edits that
// arrive from concurrent request handlers.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/history"
	"github.com/campusgrid/degree-planner/internal/models"
	"github.com/campusgrid/degree-planner/internal/planner"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("editing session not found")
	ErrProgramNotFound = errors.New("program not found in catalog")
)

// Options tunes a new editing session.
type Options struct {
	PlanName      string
	StartPeriod   string
	CreditCeiling int
	TTL           time.Duration
}

// Manager tracks live editing sessions keyed by id. Sessions expire
// after an idle TTL and are reaped by the cleanup worker.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	catalog  *curriculum.Loader
	ttl      time.Duration
	ceiling  int
}

// NewManager creates a session manager over a program catalog. ceiling
// is the advisory per-period credit load used for sessions that do not
// request their own.
func NewManager(catalog *curriculum.Loader, ttl time.Duration, ceiling int) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if ceiling <= 0 {
		ceiling = planner.DefaultCreditCeiling
	}
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  catalog,
		ttl:      ttl,
		ceiling:  ceiling,
	}
}

// Create opens a new editing session for a student and program. The
// transcript records are folded into a history index once, here; the
// session's editor consults that index on every mutation.
func (m *Manager) Create(programCode, studentID string, records []models.HistoryRecord, opts Options) (*Session, error) {
	program := m.catalog.Get(programCode)
	if program == nil {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, programCode)
	}
	graph := m.catalog.Graph(programCode)

	idx := history.Build(records)
	eval := planner.NewEvaluator(graph, idx)

	startPeriod := opts.StartPeriod
	if startPeriod == "" {
		startPeriod = program.Catalog
	}
	planName := opts.PlanName
	if planName == "" {
		planName = "Plan " + startPeriod
	}
	ceiling := opts.CreditCeiling
	if ceiling <= 0 {
		ceiling = m.ceiling
	}

	editor, err := planner.NewEditor(eval, planName, studentID, program.Code, program.Catalog, startPeriod, ceiling)
	if err != nil {
		return nil, err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := time.Now()
	s := &Session{
		meta: models.EditingSession{
			ID:           uuid.New().String(),
			StudentID:    studentID,
			ProgramCode:  program.Code,
			Catalog:      program.Catalog,
			CreatedAt:    now,
			LastActiveAt: now,
			ExpiresAt:    now.Add(ttl),
		},
		ttl:      ttl,
		editor:   editor,
		eval:     eval,
		graph:    graph,
		hist:     idx,
		watchers: make(map[chan Event]struct{}),
	}

	m.mu.Lock()
	m.sessions[s.meta.ID] = s
	m.mu.Unlock()

	slog.Info("editing session created",
		"session_id", s.meta.ID,
		"student", studentID,
		"program", program.Code,
		"catalog", program.Catalog,
	)
	return s, nil
}

// Get returns a session by id and refreshes its idle deadline.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch()
	return s, nil
}

// List returns metadata for all live sessions.
func (m *Manager) List() []models.EditingSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.EditingSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s.Meta())
	}
	return result
}

// Delete closes a session, dropping its watchers.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.close()
	slog.Info("editing session deleted", "session_id", id)
	return nil
}

// GetExpired returns the sessions whose idle TTL has elapsed.
func (m *Manager) GetExpired() []models.EditingSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []models.EditingSession
	for _, s := range m.sessions {
		meta := s.Meta()
		if meta.IsExpired() {
			expired = append(expired, meta)
		}
	}
	return expired
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
