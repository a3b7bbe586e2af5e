package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/history"
	"github.com/campusgrid/degree-planner/internal/models"
)

func newTestEditor(t *testing.T, idx *history.Index, periods int) *Editor {
	t.Helper()
	eval := NewEvaluator(chainGraph(t), idx)
	ed, err := NewEditor(eval, "test plan", "student-1", "ISIS", "202410", "202410", 30)
	if err != nil {
		t.Fatalf("NewEditor failed: %v", err)
	}
	for i := 0; i < periods; i++ {
		if _, err := ed.AddPeriod(); err != nil {
			t.Fatalf("AddPeriod failed: %v", err)
		}
	}
	return ed
}

func mustAdd(t *testing.T, ed *Editor, code string, period int) {
	t.Helper()
	result, err := ed.AddCourse(code, period)
	if err != nil {
		t.Fatalf("AddCourse(%s, %d) failed: %v", code, period, err)
	}
	if !result.OK {
		t.Fatalf("AddCourse(%s, %d) rejected: %+v", code, period, result)
	}
}

func TestNewEditorRejectsBadStartPeriod(t *testing.T) {
	eval := NewEvaluator(chainGraph(t), approvedIndex())
	if _, err := NewEditor(eval, "p", "s", "ISIS", "202410", "202499", 30); !errors.Is(err, ErrInvalidPeriodToken) {
		t.Fatalf("err = %v, want ErrInvalidPeriodToken", err)
	}
}

func TestAddPeriodLabels(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 0)

	want := []string{"202410", "202420", "202510"}
	for _, label := range want {
		got, err := ed.AddPeriod()
		if err != nil {
			t.Fatalf("AddPeriod failed: %v", err)
		}
		if got != label {
			t.Errorf("AddPeriod label = %s, want %s", got, label)
		}
	}
}

func TestAddCourseUniqueness(t *testing.T) {
	ed := newTestEditor(t, approvedIndex("A"), 2)
	mustAdd(t, ed, "B", 1)

	result, err := ed.AddCourse("B", 2)
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if result.OK || result.Reason != ReasonAlreadyScheduled {
		t.Fatalf("duplicate add should be rejected, got %+v", result)
	}

	plan := ed.Plan()
	if plan.CourseCount() != 1 {
		t.Errorf("plan should hold B exactly once, count = %d", plan.CourseCount())
	}
}

func TestAddCoursePeriodOutOfRange(t *testing.T) {
	ed := newTestEditor(t, approvedIndex("A"), 1)

	for _, period := range []int{0, -1, 2} {
		result, err := ed.AddCourse("B", period)
		if err != nil {
			t.Fatalf("AddCourse failed: %v", err)
		}
		if result.OK || result.Reason != ReasonPeriodOutOfRange {
			t.Errorf("period %d should be out of range, got %+v", period, result)
		}
	}
}

func TestAddCourseRejectionLeavesPlanUnchanged(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 1)
	before := ed.Plan()

	result, err := ed.AddCourse("C", 1) // prerequisite B not approved or planned
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if result.OK {
		t.Fatal("C without B should be rejected")
	}
	if !reflect.DeepEqual(before, ed.Plan()) {
		t.Error("rejected add must not change the plan")
	}
}

func TestAddCourseSoftCreditCeiling(t *testing.T) {
	g, err := curriculum.NewGraph([]models.Course{
		{Code: "X", Credits: 20, Level: 1},
		{Code: "Y", Credits: 20, Level: 1},
	})
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	eval := NewEvaluator(g, approvedIndex())
	ed, err := NewEditor(eval, "p", "s", "ISIS", "202410", "202410", 30)
	if err != nil {
		t.Fatalf("NewEditor failed: %v", err)
	}
	if _, err := ed.AddPeriod(); err != nil {
		t.Fatalf("AddPeriod failed: %v", err)
	}

	first, err := ed.AddCourse("X", 1)
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if !first.OK || first.OverCeiling {
		t.Fatalf("first 20 credits should fit under ceiling 30, got %+v", first)
	}

	// Ceiling is advisory: the second placement succeeds but is flagged.
	second, err := ed.AddCourse("Y", 1)
	if err != nil {
		t.Fatalf("AddCourse failed: %v", err)
	}
	if !second.OK {
		t.Fatalf("soft ceiling must not reject the placement, got %+v", second)
	}
	if !second.OverCeiling || second.PeriodCredits != 40 {
		t.Errorf("expected over-ceiling flag at 40 credits, got %+v", second)
	}
}

func TestPreviewRemovalCascade(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 3)
	mustAdd(t, ed, "A", 1)
	mustAdd(t, ed, "B", 2)
	mustAdd(t, ed, "C", 3)

	preview, err := ed.PreviewRemoval("A")
	if err != nil {
		t.Fatalf("PreviewRemoval failed: %v", err)
	}
	if !preview.InPlan {
		t.Fatal("A is in the plan")
	}
	// Transitive: removing A takes B, and removing B takes C.
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(preview.Cascade, want) {
		t.Errorf("Cascade = %v, want %v", preview.Cascade, want)
	}

	// Preview never mutates.
	if ed.Plan().CourseCount() != 3 {
		t.Error("preview must not change the plan")
	}
}

func TestCommitRemovalUnconfirmedIsRejected(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 2)
	mustAdd(t, ed, "A", 1)
	mustAdd(t, ed, "B", 2)
	before := ed.Plan()

	result, err := ed.CommitRemoval("A", false)
	if err != nil {
		t.Fatalf("CommitRemoval failed: %v", err)
	}
	if result.OK {
		t.Fatal("removal with live dependents needs confirmation")
	}
	if result.Reason != ReasonCascadeNotConfirmed {
		t.Errorf("reason = %s, want %s", result.Reason, ReasonCascadeNotConfirmed)
	}
	if !reflect.DeepEqual(result.Blockers, []string{"B"}) {
		t.Errorf("Blockers = %v, want [B]", result.Blockers)
	}
	if !reflect.DeepEqual(before, ed.Plan()) {
		t.Error("rejected removal must leave the plan unchanged")
	}
}

func TestCommitRemovalCascadesToFixedPoint(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 3)
	mustAdd(t, ed, "A", 1)
	mustAdd(t, ed, "B", 2)
	mustAdd(t, ed, "C", 3)

	result, err := ed.CommitRemoval("A", true)
	if err != nil {
		t.Fatalf("CommitRemoval failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("confirmed cascade should succeed, got %+v", result)
	}
	if !reflect.DeepEqual(result.Removed, []string{"A", "B", "C"}) {
		t.Errorf("Removed = %v, want [A B C]", result.Removed)
	}
	if ed.Plan().CourseCount() != 0 {
		t.Errorf("plan should be empty after cascade, count = %d", ed.Plan().CourseCount())
	}

	// Fixed point: removing A again reports course-not-in-plan.
	again, err := ed.CommitRemoval("A", true)
	if err != nil {
		t.Fatalf("CommitRemoval failed: %v", err)
	}
	if again.OK || again.Reason != ReasonCourseNotInPlan {
		t.Errorf("second removal should be a no-op rejection, got %+v", again)
	}
}

func TestCommitRemovalWithoutDependents(t *testing.T) {
	ed := newTestEditor(t, approvedIndex("A"), 1)
	mustAdd(t, ed, "B", 1)

	result, err := ed.CommitRemoval("B", false)
	if err != nil {
		t.Fatalf("CommitRemoval failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("removal without dependents needs no confirmation, got %+v", result)
	}
	if !reflect.DeepEqual(result.Removed, []string{"B"}) {
		t.Errorf("Removed = %v, want [B]", result.Removed)
	}
}

func TestMoveCourseBlockedByDependent(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 3)
	mustAdd(t, ed, "A", 1)
	mustAdd(t, ed, "B", 2)
	before := ed.Plan()

	// B (period 2) would precede its prerequisite A (period 3).
	result, err := ed.MoveCourse("A", 3)
	if err != nil {
		t.Fatalf("MoveCourse failed: %v", err)
	}
	if result.OK {
		t.Fatal("move must be blocked by dependent B")
	}
	if result.Reason != ReasonBlockedByDependents {
		t.Errorf("reason = %s, want %s", result.Reason, ReasonBlockedByDependents)
	}
	if result.Dependents == nil || !reflect.DeepEqual(result.Dependents.BlockingDependents, []string{"B"}) {
		t.Errorf("blocking dependents = %+v, want [B]", result.Dependents)
	}
	if !reflect.DeepEqual(before, ed.Plan()) {
		t.Error("blocked move must leave the plan unchanged")
	}
}

func TestMoveCoursePrerequisiteOrdering(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 3)
	mustAdd(t, ed, "A", 1)
	mustAdd(t, ed, "B", 2)

	// Moving B back to period 1 would tie it with its prerequisite A.
	result, err := ed.MoveCourse("B", 1)
	if err != nil {
		t.Fatalf("MoveCourse failed: %v", err)
	}
	if result.OK {
		t.Fatal("move into the prerequisite's period must fail")
	}
	if result.Reason != ReasonPrerequisiteTooLate {
		t.Errorf("reason = %s, want %s", result.Reason, ReasonPrerequisiteTooLate)
	}

	// Moving B forward is fine.
	result, err = ed.MoveCourse("B", 3)
	if err != nil {
		t.Fatalf("MoveCourse failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("forward move should pass, got %+v", result)
	}
	if idx, _ := ed.Plan().PeriodOf("B"); idx != 3 {
		t.Errorf("B should now sit in period 3, got %d", idx)
	}
}

func TestMoveCourseNotInPlan(t *testing.T) {
	ed := newTestEditor(t, approvedIndex(), 2)

	result, err := ed.MoveCourse("A", 2)
	if err != nil {
		t.Fatalf("MoveCourse failed: %v", err)
	}
	if result.OK || result.Reason != ReasonCourseNotInPlan {
		t.Errorf("moving an unscheduled course should fail, got %+v", result)
	}

	if _, err := ed.MoveCourse("ZZ", 1); !errors.Is(err, curriculum.ErrCourseNotFound) {
		t.Errorf("unknown course: err = %v, want ErrCourseNotFound", err)
	}
}

func TestValidateDetectsDuplicates(t *testing.T) {
	eval := NewEvaluator(chainGraph(t), approvedIndex("A"))
	plan := &models.Plan{Periods: []models.PlanPeriod{
		{Label: "202410", Entries: []models.PlanEntry{{CourseCode: "B", Credits: 5}}},
		{Label: "202420", Entries: []models.PlanEntry{{CourseCode: "B", Credits: 5}}},
	}}
	ed, err := ResumeEditor(eval, plan, "202410", 30)
	if err != nil {
		t.Fatalf("ResumeEditor failed: %v", err)
	}
	if err := ed.Validate(); err == nil {
		t.Error("Validate should reject a duplicated course")
	}
}
