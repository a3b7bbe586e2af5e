package planner

import (
	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/history"
	"github.com/campusgrid/degree-planner/internal/models"
)

// Reason classifies why a plan mutation was refused.
type Reason string

const (
	ReasonAlreadyScheduled     Reason = "already_scheduled"
	ReasonMissingPrerequisite  Reason = "missing_prerequisite"
	ReasonPrerequisiteTooLate  Reason = "prerequisite_not_yet_completed"
	ReasonBlockedByDependents  Reason = "blocked_by_dependents"
	ReasonPeriodOutOfRange     Reason = "period_out_of_range"
	ReasonCourseNotInPlan      Reason = "course_not_in_plan"
	ReasonCascadeNotConfirmed  Reason = "cascade_not_confirmed"
)

// PlacementResult is the outcome of a CanPlace check. Validation
// failures are values, not errors: only a course code absent from the
// curriculum graph surfaces as an error.
type PlacementResult struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`

	// Missing lists prerequisites neither approved nor in the plan.
	Missing []string `json:"missing,omitempty"`
	// TooLate lists prerequisites scheduled at or after the target
	// period; a prerequisite must finish before the dependent starts,
	// so same-period placement is not allowed.
	TooLate []string `json:"too_late,omitempty"`
}

// RemovalCheck is the outcome of a CanRemoveOrMove check.
type RemovalCheck struct {
	OK                 bool     `json:"ok"`
	Reason             Reason   `json:"reason,omitempty"`
	BlockingDependents []string `json:"blocking_dependents,omitempty"`
}

// Evaluator answers eligibility questions for plan mutations. It is
// pure given the graph, the history index and the plan it is handed;
// it never mutates any of them.
type Evaluator struct {
	graph *curriculum.Graph
	hist  *history.Index
}

// NewEvaluator creates an Evaluator over a prerequisite graph and a
// history index.
func NewEvaluator(graph *curriculum.Graph, hist *history.Index) *Evaluator {
	return &Evaluator{graph: graph, hist: hist}
}

// Graph returns the evaluator's prerequisite graph.
func (e *Evaluator) Graph() *curriculum.Graph { return e.graph }

// History returns the evaluator's history index.
func (e *Evaluator) History() *history.Index { return e.hist }

// CanPlace decides whether courseCode may be placed in targetPeriod
// (1-based). A course already present anywhere in the plan is rejected
// before prerequisites are checked.
func (e *Evaluator) CanPlace(plan *models.Plan, courseCode string, targetPeriod int) (PlacementResult, error) {
	if plan.Contains(courseCode) {
		return PlacementResult{OK: false, Reason: ReasonAlreadyScheduled}, nil
	}
	return e.checkPrerequisites(plan, courseCode, targetPeriod)
}

// checkPrerequisites evaluates the prerequisite requirement of a course
// against approvals and in-plan placements strictly earlier than
// targetPeriod, then classifies any unsatisfied codes.
func (e *Evaluator) checkPrerequisites(plan *models.Plan, courseCode string, targetPeriod int) (PlacementResult, error) {
	have := func(code string) bool {
		if e.hist.IsApproved(code) {
			return true
		}
		idx, ok := plan.PeriodOf(code)
		return ok && idx < targetPeriod
	}

	met, unsatisfied, err := e.graph.RequirementMet(courseCode, have)
	if err != nil {
		return PlacementResult{}, err
	}
	if met {
		return PlacementResult{OK: true}, nil
	}

	result := PlacementResult{OK: false}
	for _, code := range unsatisfied {
		if _, inPlan := plan.PeriodOf(code); inPlan {
			result.TooLate = append(result.TooLate, code)
		} else {
			result.Missing = append(result.Missing, code)
		}
	}
	if len(result.Missing) > 0 {
		result.Reason = ReasonMissingPrerequisite
	} else {
		result.Reason = ReasonPrerequisiteTooLate
	}
	return result, nil
}

// CanRemove decides whether courseCode can be removed outright. Any
// in-plan dependent blocks the removal; the caller decides whether to
// cascade.
func (e *Evaluator) CanRemove(plan *models.Plan, courseCode string) (RemovalCheck, error) {
	dependents, err := e.graph.DependentsOf(courseCode)
	if err != nil {
		return RemovalCheck{}, err
	}

	var blocking []string
	for _, dep := range dependents {
		if plan.Contains(dep) {
			blocking = append(blocking, dep)
		}
	}

	if len(blocking) > 0 {
		return RemovalCheck{OK: false, Reason: ReasonBlockedByDependents, BlockingDependents: blocking}, nil
	}
	return RemovalCheck{OK: true}, nil
}

// CanMove decides whether moving courseCode to newPeriod leaves its
// in-plan dependents correctly ordered. A dependent scheduled at or
// before newPeriod would precede its prerequisite, so it blocks.
func (e *Evaluator) CanMove(plan *models.Plan, courseCode string, newPeriod int) (RemovalCheck, error) {
	dependents, err := e.graph.DependentsOf(courseCode)
	if err != nil {
		return RemovalCheck{}, err
	}

	var blocking []string
	for _, dep := range dependents {
		idx, ok := plan.PeriodOf(dep)
		if ok && idx <= newPeriod {
			blocking = append(blocking, dep)
		}
	}

	if len(blocking) > 0 {
		return RemovalCheck{OK: false, Reason: ReasonBlockedByDependents, BlockingDependents: blocking}, nil
	}
	return RemovalCheck{OK: true}, nil
}
