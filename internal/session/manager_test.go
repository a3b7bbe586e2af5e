package session

import (
	"errors"
	"testing"
	"time"

	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/models"
)

func testCatalog(t *testing.T) *curriculum.Loader {
	t.Helper()
	loader := curriculum.NewLoader(curriculum.RequireAll)
	err := loader.Add(&models.Program{
		Code:    "ISIS",
		Name:    "Systems Engineering",
		Catalog: "202410",
		Courses: []models.Course{
			{Code: "ISIS1104", Name: "Logic", Credits: 3, Level: 1},
			{Code: "ISIS1105", Name: "Algorithms", Credits: 3, Level: 2, Requisites: "ISIS1104"},
			{Code: "ISIS2103", Name: "Databases", Credits: 3, Level: 3, Requisites: "ISIS1105"},
		},
	})
	if err != nil {
		t.Fatalf("Add program failed: %v", err)
	}
	return loader
}

func TestCreateAndGetSession(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)

	s, err := m.Create("ISIS", "student-7", nil, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	meta := s.Meta()
	if meta.ID == "" {
		t.Error("session should get an id")
	}
	if meta.ProgramCode != "ISIS" || meta.Catalog != "202410" {
		t.Errorf("meta = %+v, want program ISIS catalog 202410", meta)
	}
	if meta.IsExpired() {
		t.Error("fresh session must not be expired")
	}

	got, err := m.Get(meta.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != s {
		t.Error("Get should return the same session")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestCreateUnknownProgram(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)
	if _, err := m.Create("NOPE", "student-7", nil, Options{}); !errors.Is(err, ErrProgramNotFound) {
		t.Fatalf("err = %v, want ErrProgramNotFound", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)
	if _, err := m.Get("no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteSession(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)
	s, err := m.Create("ISIS", "student-7", nil, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := s.Meta().ID

	if err := m.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session should be gone, err = %v", err)
	}
	if err := m.Delete(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double delete: err = %v, want ErrSessionNotFound", err)
	}
}

func TestExpiredSessions(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)

	stale, err := m.Create("ISIS", "student-1", nil, Options{TTL: time.Nanosecond})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Create("ISIS", "student-2", nil, Options{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	expired := m.GetExpired()
	if len(expired) != 1 {
		t.Fatalf("expired count = %d, want 1", len(expired))
	}
	if expired[0].ID != stale.Meta().ID {
		t.Errorf("expired id = %s, want %s", expired[0].ID, stale.Meta().ID)
	}
}

func TestCreateInheritsManagerCreditCeiling(t *testing.T) {
	loader := curriculum.NewLoader(curriculum.RequireAll)
	err := loader.Add(&models.Program{
		Code:    "ISIS",
		Catalog: "202410",
		Courses: []models.Course{{Code: "ISIS1104", Credits: 20, Level: 1}},
	})
	if err != nil {
		t.Fatalf("Add program failed: %v", err)
	}
	m := NewManager(loader, time.Hour, 18)

	// Session omits its own ceiling, so the manager's applies.
	s, err := m.Create("ISIS", "student-7", nil, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.AddPeriod(); err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}
	result, err := s.AddCourse("ISIS1104", 1)
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if !result.OK || !result.OverCeiling {
		t.Errorf("20 credits should breach the manager's ceiling of 18, got %+v", result)
	}

	// An explicit per-session ceiling still wins.
	s, err = m.Create("ISIS", "student-8", nil, Options{CreditCeiling: 25})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.AddPeriod(); err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}
	result, err = s.AddCourse("ISIS1104", 1)
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if !result.OK || result.OverCeiling {
		t.Errorf("20 credits fits the session's own ceiling of 25, got %+v", result)
	}
}

func TestSessionHistorySeedsEligibility(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)

	records := []models.HistoryRecord{
		{CourseCode: "ISIS1104", Period: "202310", Status: models.StatusApproved},
	}
	s, err := m.Create("ISIS", "student-7", records, Options{StartPeriod: "202510"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := s.AddPeriod(); err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}
	result, err := s.AddCourse("ISIS1105", 1)
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("approved prerequisite should unlock ISIS1105, got %+v", result)
	}
}

func TestSubscribeReceivesMutationEvents(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)
	s, err := m.Create("ISIS", "student-7", nil, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	events, cancel := s.Subscribe()
	defer cancel()

	label, err := s.AddPeriod()
	if err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}
	if _, err := s.AddCourse("ISIS1104", 1); err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}

	ev := <-events
	if ev.Type != "period_added" || ev.Label != label {
		t.Errorf("first event = %+v, want period_added %s", ev, label)
	}
	if ev.Plan == nil || len(ev.Plan.Periods) != 1 {
		t.Errorf("event should carry the updated plan, got %+v", ev.Plan)
	}

	ev = <-events
	if ev.Type != "course_added" || ev.CourseCode != "ISIS1104" {
		t.Errorf("second event = %+v, want course_added ISIS1104", ev)
	}
}

func TestRejectedMutationPublishesNothing(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)
	s, err := m.Create("ISIS", "student-7", nil, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.AddPeriod(); err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}

	events, cancel := s.Subscribe()
	defer cancel()

	result, err := s.AddCourse("ISIS2103", 1) // prerequisite chain unmet
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if result.OK {
		t.Fatal("placement should be rejected")
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected event %+v after rejected mutation", ev)
	default:
	}
}

func TestGenerateProjectionReplacesPlan(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)

	records := []models.HistoryRecord{
		{CourseCode: "ISIS1104", Period: "202310", Status: models.StatusApproved},
	}
	s, err := m.Create("ISIS", "student-7", records, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	projection, err := s.GenerateProjection(0, "202510")
	if err != nil {
		t.Fatalf("GenerateProjection failed: %v", err)
	}
	if len(projection.Unplaced) != 0 {
		t.Errorf("Unplaced = %v, want none", projection.Unplaced)
	}
	// ISIS1104 is approved, so the chain compresses to two periods.
	if len(projection.Periods) != 2 {
		t.Fatalf("period count = %d, want 2: %+v", len(projection.Periods), projection)
	}
	if projection.Periods[0].Label != "202510" || projection.Periods[1].Label != "202520" {
		t.Errorf("labels = %s, %s; want 202510, 202520",
			projection.Periods[0].Label, projection.Periods[1].Label)
	}

	plan := s.Plan()
	if !plan.Contains("ISIS1105") || !plan.Contains("ISIS2103") {
		t.Errorf("projection should become the session plan, got %+v", plan)
	}
	if plan.Contains("ISIS1104") {
		t.Error("approved course must not reappear in the plan")
	}

	// The replaced editor keeps working.
	preview, err := s.PreviewRemoval("ISIS1105")
	if err != nil {
		t.Fatalf("PreviewRemoval failed: %v", err)
	}
	if !preview.InPlan || len(preview.Cascade) != 2 {
		t.Errorf("preview = %+v, want cascade [ISIS1105 ISIS2103]", preview)
	}
}

func TestCancelledWatcherStopsReceiving(t *testing.T) {
	m := NewManager(testCatalog(t), time.Hour, 0)
	s, err := m.Create("ISIS", "student-7", nil, Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	events, cancel := s.Subscribe()
	cancel()

	if _, err := s.AddPeriod(); err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}
	if _, open := <-events; open {
		t.Error("cancelled watcher channel should be closed")
	}
}
