package planner

import (
	"fmt"

	"github.com/campusgrid/degree-planner/internal/models"
)

// DefaultCreditCeiling is the advisory per-period credit load used when
// the caller does not supply one.
const DefaultCreditCeiling = 30

// AddResult is the outcome of an AddCourse mutation. OverCeiling is a
// soft warning: the placement succeeded, but the period now carries
// more credits than the advisory ceiling.
type AddResult struct {
	PlacementResult
	PeriodCredits int  `json:"period_credits"`
	OverCeiling   bool `json:"over_ceiling"`
}

// RemovalPreview reports what a removal would take with it. Cascade is
// the full transitive closure of in-plan dependents, in removal order;
// it is empty when the course has no in-plan dependents.
type RemovalPreview struct {
	CourseCode string   `json:"course_code"`
	InPlan     bool     `json:"in_plan"`
	Cascade    []string `json:"cascade,omitempty"`
}

// RemovalResult is the outcome of a CommitRemoval mutation.
type RemovalResult struct {
	OK      bool     `json:"ok"`
	Reason  Reason   `json:"reason,omitempty"`
	Removed []string `json:"removed,omitempty"`
	// Blockers is populated when the removal was refused because the
	// cascade was not confirmed.
	Blockers []string `json:"blockers,omitempty"`
}

// MoveResult is the outcome of a MoveCourse mutation.
type MoveResult struct {
	OK            bool             `json:"ok"`
	Reason        Reason           `json:"reason,omitempty"`
	Placement     *PlacementResult `json:"placement,omitempty"`
	Dependents    *RemovalCheck    `json:"dependents,omitempty"`
	PeriodCredits int              `json:"period_credits,omitempty"`
	OverCeiling   bool             `json:"over_ceiling,omitempty"`
}

// Editor is the mutable scheduling state of one plan. Every mutation is
// validated through the Evaluator before it is committed; a failed
// validation leaves the plan untouched. The editor is not safe for
// concurrent use; a plan is owned by exactly one editing session.
type Editor struct {
	eval          *Evaluator
	plan          *models.Plan
	startPeriod   string
	creditCeiling int
}

// NewEditor creates an editor over an empty plan. startPeriod labels
// the first period once one is added; it must be a valid period token.
func NewEditor(eval *Evaluator, name, ownerID, programCode, catalog, startPeriod string, creditCeiling int) (*Editor, error) {
	if _, err := NextPeriodToken(startPeriod); err != nil {
		return nil, err
	}
	if creditCeiling <= 0 {
		creditCeiling = DefaultCreditCeiling
	}
	return &Editor{
		eval: eval,
		plan: &models.Plan{
			Name:        name,
			OwnerID:     ownerID,
			ProgramCode: programCode,
			Catalog:     catalog,
		},
		startPeriod:   startPeriod,
		creditCeiling: creditCeiling,
	}, nil
}

// ResumeEditor creates an editor over an existing plan, e.g. one loaded
// from storage. The plan must already satisfy the uniqueness invariant.
func ResumeEditor(eval *Evaluator, plan *models.Plan, startPeriod string, creditCeiling int) (*Editor, error) {
	if _, err := NextPeriodToken(startPeriod); err != nil {
		return nil, err
	}
	if creditCeiling <= 0 {
		creditCeiling = DefaultCreditCeiling
	}
	return &Editor{
		eval:          eval,
		plan:          plan,
		startPeriod:   startPeriod,
		creditCeiling: creditCeiling,
	}, nil
}

// Plan returns a deep copy of the current plan state.
func (ed *Editor) Plan() *models.Plan {
	return ed.plan.Clone()
}

// CreditCeiling returns the advisory per-period credit ceiling.
func (ed *Editor) CreditCeiling() int { return ed.creditCeiling }

// AddPeriod appends an empty period and returns its catalog label. The
// first period takes the editor's start token; later ones advance the
// previous period's label by one term.
func (ed *Editor) AddPeriod() (string, error) {
	label := ed.startPeriod
	if n := len(ed.plan.Periods); n > 0 {
		next, err := NextPeriodToken(ed.plan.Periods[n-1].Label)
		if err != nil {
			return "", err
		}
		label = next
	}
	ed.plan.Periods = append(ed.plan.Periods, models.PlanPeriod{Label: label})
	return label, nil
}

// AddCourse places a course in the 1-based period, validating through
// the evaluator first. On failure nothing is applied and the result
// carries the reason.
func (ed *Editor) AddCourse(courseCode string, periodIndex int) (AddResult, error) {
	if periodIndex < 1 || periodIndex > len(ed.plan.Periods) {
		return AddResult{PlacementResult: PlacementResult{OK: false, Reason: ReasonPeriodOutOfRange}}, nil
	}

	course, err := ed.eval.Graph().Course(courseCode)
	if err != nil {
		return AddResult{}, err
	}

	placement, err := ed.eval.CanPlace(ed.plan, courseCode, periodIndex)
	if err != nil {
		return AddResult{}, err
	}
	if !placement.OK {
		return AddResult{PlacementResult: placement}, nil
	}

	period := &ed.plan.Periods[periodIndex-1]
	period.Entries = append(period.Entries, models.PlanEntry{
		CourseCode: courseCode,
		Credits:    course.Credits,
	})

	total := period.TotalCredits()
	return AddResult{
		PlacementResult: placement,
		PeriodCredits:   total,
		OverCeiling:     total > ed.creditCeiling,
	}, nil
}

// PreviewRemoval computes the transitive closure of in-plan courses
// that removing courseCode would take with it. The plan is not touched.
func (ed *Editor) PreviewRemoval(courseCode string) (RemovalPreview, error) {
	preview := RemovalPreview{CourseCode: courseCode}
	if !ed.plan.Contains(courseCode) {
		return preview, nil
	}
	preview.InPlan = true

	cascade, err := ed.removalClosure(courseCode)
	if err != nil {
		return RemovalPreview{}, err
	}
	preview.Cascade = cascade
	return preview, nil
}

// CommitRemoval removes courseCode from the plan. When in-plan
// dependents exist the removal is refused unless confirmCascade is set,
// in which case the full transitive closure is removed to a fixed
// point: removing a dependent can expose further dependents, so a
// single pass is not enough.
func (ed *Editor) CommitRemoval(courseCode string, confirmCascade bool) (RemovalResult, error) {
	if !ed.plan.Contains(courseCode) {
		if _, err := ed.eval.Graph().Course(courseCode); err != nil {
			return RemovalResult{}, err
		}
		return RemovalResult{OK: false, Reason: ReasonCourseNotInPlan}, nil
	}

	check, err := ed.eval.CanRemove(ed.plan, courseCode)
	if err != nil {
		return RemovalResult{}, err
	}

	if !check.OK && !confirmCascade {
		return RemovalResult{
			OK:       false,
			Reason:   ReasonCascadeNotConfirmed,
			Blockers: check.BlockingDependents,
		}, nil
	}

	cascade, err := ed.removalClosure(courseCode)
	if err != nil {
		return RemovalResult{}, err
	}
	for _, code := range cascade {
		ed.deleteEntry(code)
	}
	return RemovalResult{OK: true, Removed: cascade}, nil
}

// removalClosure returns courseCode plus the transitive closure of its
// in-plan dependents, computed to a fixed point.
func (ed *Editor) removalClosure(courseCode string) ([]string, error) {
	closure := []string{courseCode}
	inClosure := map[string]struct{}{courseCode: {}}

	for i := 0; i < len(closure); i++ {
		dependents, err := ed.eval.Graph().DependentsOf(closure[i])
		if err != nil {
			return nil, err
		}
		for _, dep := range dependents {
			if _, seen := inClosure[dep]; seen {
				continue
			}
			if !ed.plan.Contains(dep) {
				continue
			}
			inClosure[dep] = struct{}{}
			closure = append(closure, dep)
		}
	}
	return closure, nil
}

// MoveCourse relocates a scheduled course to another 1-based period.
// Both directions are validated: the course's prerequisites against the
// new period, and its in-plan dependents against the vacated position.
// Only if both checks pass is the move committed; otherwise the plan is
// left unchanged.
func (ed *Editor) MoveCourse(courseCode string, newPeriodIndex int) (MoveResult, error) {
	if newPeriodIndex < 1 || newPeriodIndex > len(ed.plan.Periods) {
		return MoveResult{OK: false, Reason: ReasonPeriodOutOfRange}, nil
	}

	oldIndex, ok := ed.plan.PeriodOf(courseCode)
	if !ok {
		if _, err := ed.eval.Graph().Course(courseCode); err != nil {
			return MoveResult{}, err
		}
		return MoveResult{OK: false, Reason: ReasonCourseNotInPlan}, nil
	}
	if oldIndex == newPeriodIndex {
		return MoveResult{OK: true, PeriodCredits: ed.plan.Periods[newPeriodIndex-1].TotalCredits()}, nil
	}

	placement, err := ed.eval.checkPrerequisites(ed.plan, courseCode, newPeriodIndex)
	if err != nil {
		return MoveResult{}, err
	}
	if !placement.OK {
		return MoveResult{OK: false, Reason: placement.Reason, Placement: &placement}, nil
	}

	depCheck, err := ed.eval.CanMove(ed.plan, courseCode, newPeriodIndex)
	if err != nil {
		return MoveResult{}, err
	}
	if !depCheck.OK {
		return MoveResult{OK: false, Reason: depCheck.Reason, Dependents: &depCheck}, nil
	}

	entry := ed.deleteEntry(courseCode)
	period := &ed.plan.Periods[newPeriodIndex-1]
	period.Entries = append(period.Entries, entry)

	total := period.TotalCredits()
	return MoveResult{
		OK:            true,
		PeriodCredits: total,
		OverCeiling:   total > ed.creditCeiling,
	}, nil
}

// deleteEntry removes the course's entry from whichever period holds it
// and returns the entry.
func (ed *Editor) deleteEntry(courseCode string) models.PlanEntry {
	for i := range ed.plan.Periods {
		entries := ed.plan.Periods[i].Entries
		for j, e := range entries {
			if e.CourseCode == courseCode {
				ed.plan.Periods[i].Entries = append(entries[:j:j], entries[j+1:]...)
				return e
			}
		}
	}
	return models.PlanEntry{CourseCode: courseCode}
}

// Validate re-checks the whole plan against the uniqueness and ordering
// invariants. It exists for callers resuming an externally stored plan.
func (ed *Editor) Validate() error {
	seen := make(map[string]int)
	for i, period := range ed.plan.Periods {
		for _, e := range period.Entries {
			if prev, dup := seen[e.CourseCode]; dup {
				return fmt.Errorf("course %s scheduled in periods %d and %d", e.CourseCode, prev, i+1)
			}
			seen[e.CourseCode] = i + 1
		}
	}

	for code, idx := range seen {
		placement, err := ed.eval.checkPrerequisites(ed.plan, code, idx)
		if err != nil {
			return err
		}
		if !placement.OK {
			return fmt.Errorf("course %s in period %d violates prerequisite order", code, idx)
		}
	}
	return nil
}
