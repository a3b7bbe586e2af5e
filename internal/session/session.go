package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/history"
	"github.com/campusgrid/degree-planner/internal/models"
	"github.com/campusgrid/degree-planner/internal/planner"
)

// Event is a plan-change notification pushed to session watchers.
type Event struct {
	Type       string       `json:"type"` // period_added | course_added | course_removed | course_moved | projection_applied
	CourseCode string       `json:"course_code,omitempty"`
	Period     int          `json:"period,omitempty"`
	Label      string       `json:"label,omitempty"`
	Removed    []string     `json:"removed,omitempty"`
	Warning    string       `json:"warning,omitempty"`
	Plan       *models.Plan `json:"plan"`
}

// Session is one live editing session. Its mutex serializes every
// mutation of the underlying plan; handlers never touch the editor
// directly.
type Session struct {
	mu       sync.Mutex
	meta     models.EditingSession
	ttl      time.Duration
	editor   *planner.Editor
	eval     *planner.Evaluator
	graph    *curriculum.Graph
	hist     *history.Index
	watchers map[chan Event]struct{}
	closed   bool
}

// Meta returns a copy of the session metadata.
func (s *Session) Meta() models.EditingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Plan returns a deep copy of the current plan.
func (s *Session) Plan() *models.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Plan()
}

// History returns the session's transcript index.
func (s *Session) History() *history.Index { return s.hist }

func (s *Session) touch() {
	s.mu.Lock()
	now := time.Now()
	s.meta.LastActiveAt = now
	s.meta.ExpiresAt = now.Add(s.ttl)
	s.mu.Unlock()
}

// MarkSaved records the storage id the finalized plan was persisted under.
func (s *Session) MarkSaved(planID string) {
	s.mu.Lock()
	now := time.Now()
	s.meta.SavedPlanID = planID
	s.meta.SavedAt = &now
	s.mu.Unlock()
}

// AddPeriod appends an empty period to the plan.
func (s *Session) AddPeriod() (string, error) {
	s.mu.Lock()
	label, err := s.editor.AddPeriod()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	plan := s.editor.Plan()
	s.mu.Unlock()

	s.publish(Event{Type: "period_added", Label: label, Period: len(plan.Periods), Plan: plan})
	return label, nil
}

// AddCourse schedules a course in the given 1-based period.
func (s *Session) AddCourse(courseCode string, periodIndex int) (planner.AddResult, error) {
	s.mu.Lock()
	result, err := s.editor.AddCourse(courseCode, periodIndex)
	if err != nil || !result.OK {
		s.mu.Unlock()
		return result, err
	}
	plan := s.editor.Plan()
	s.mu.Unlock()

	ev := Event{Type: "course_added", CourseCode: courseCode, Period: periodIndex, Plan: plan}
	if result.OverCeiling {
		ev.Warning = "period exceeds advisory credit ceiling"
	}
	s.publish(ev)
	return result, nil
}

// PreviewRemoval reports what removing the course would cascade to.
func (s *Session) PreviewRemoval(courseCode string) (planner.RemovalPreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.PreviewRemoval(courseCode)
}

// CommitRemoval removes the course, cascading when confirmed.
func (s *Session) CommitRemoval(courseCode string, confirmCascade bool) (planner.RemovalResult, error) {
	s.mu.Lock()
	result, err := s.editor.CommitRemoval(courseCode, confirmCascade)
	if err != nil || !result.OK {
		s.mu.Unlock()
		return result, err
	}
	plan := s.editor.Plan()
	s.mu.Unlock()

	s.publish(Event{Type: "course_removed", CourseCode: courseCode, Removed: result.Removed, Plan: plan})
	return result, nil
}

// MoveCourse relocates a scheduled course to another period.
func (s *Session) MoveCourse(courseCode string, newPeriodIndex int) (planner.MoveResult, error) {
	s.mu.Lock()
	result, err := s.editor.MoveCourse(courseCode, newPeriodIndex)
	if err != nil || !result.OK {
		s.mu.Unlock()
		return result, err
	}
	plan := s.editor.Plan()
	s.mu.Unlock()

	ev := Event{Type: "course_moved", CourseCode: courseCode, Period: newPeriodIndex, Plan: plan}
	if result.OverCeiling {
		ev.Warning = "period exceeds advisory credit ceiling"
	}
	s.publish(ev)
	return result, nil
}

// GenerateProjection runs the greedy generator over the remaining
// curriculum and replaces the session's plan with the result. Approved
// and in-progress courses are excluded from the level groups and seed
// the generator's placed set, so in-progress work counts as completed
// for prerequisite purposes.
func (s *Session) GenerateProjection(maxCredits int, startPeriod string) (planner.Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if startPeriod == "" {
		startPeriod = s.meta.Catalog
	}
	if maxCredits <= 0 {
		maxCredits = s.editor.CreditCeiling()
	}

	skip := func(code string) bool {
		return s.hist.IsApproved(code) || s.hist.IsInProgress(code)
	}
	groups := s.graph.LevelGroups(skip)

	seed := make(map[string]struct{})
	for _, code := range s.hist.Approved() {
		seed[code] = struct{}{}
	}
	for _, code := range s.hist.InProgress() {
		seed[code] = struct{}{}
	}

	projection, err := planner.Generate(s.graph, groups, maxCredits, startPeriod, seed)
	if err != nil {
		return planner.Projection{}, err
	}

	meta := s.meta
	plan := &models.Plan{
		Name:        "Projection " + startPeriod,
		OwnerID:     meta.StudentID,
		ProgramCode: meta.ProgramCode,
		Catalog:     meta.Catalog,
		Periods:     projection.Periods,
	}
	editor, err := planner.ResumeEditor(s.eval, plan, startPeriod, maxCredits)
	if err != nil {
		return planner.Projection{}, err
	}
	s.editor = editor

	go s.publish(Event{Type: "projection_applied", Plan: plan.Clone()})
	return projection, nil
}

// Subscribe registers a watcher. The returned cancel func must be
// called exactly once; events are dropped, not queued, when a watcher
// falls behind.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			slog.Warn("session watcher lagging, event dropped", "session_id", s.meta.ID, "event", ev.Type)
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
}
