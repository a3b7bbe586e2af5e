package planner

import (
	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/models"
)

// Projection is the output of the automatic generator: a full
// multi-period plan candidate plus the courses that never became
// eligible (unsatisfiable prerequisites). Unplaced courses are not an
// error; the caller decides whether to surface them.
type Projection struct {
	Periods  []models.PlanPeriod `json:"periods"`
	Unplaced []string            `json:"unplaced,omitempty"`
}

// Generate produces a complete plan in a single greedy forward sweep.
// It is a heuristic, not an optimizer: no backtracking, no
// alternative-plan search, just "earliest feasible period under the
// credit ceiling".
//
// levelGroups supplies the curriculum's level tiers in order; the
// caller is responsible for excluding already-approved and in-progress
// courses from the groups, or for seeding them via placed. Each tier
// opens one period. Courses are tried in first-seen order; a course
// whose credits would push the period past maxCredits is skipped for
// this period but carried forward, as are courses whose prerequisites
// are not yet placed. After the last tier, extra periods are appended
// while carried-over courses keep becoming placeable. Empty periods
// within the tier sweep are emitted: they signal that nothing new was
// unlockable at that ceiling.
func Generate(graph *curriculum.Graph, levelGroups [][]models.Course, maxCredits int, startPeriod string, placed map[string]struct{}) (Projection, error) {
	if maxCredits <= 0 {
		maxCredits = DefaultCreditCeiling
	}
	if _, err := AdvancePeriodToken(startPeriod, 0); err != nil {
		return Projection{}, err
	}

	done := make(map[string]struct{}, len(placed))
	for code := range placed {
		done[code] = struct{}{}
	}

	var pending []models.Course
	inPending := make(map[string]struct{})

	eligible := func(c models.Course) (bool, error) {
		met, _, err := graph.RequirementMet(c.Code, func(code string) bool {
			_, ok := done[code]
			return ok
		})
		return met, err
	}

	var projection Projection

	// fillPeriod packs one period from the candidate list and returns
	// the leftovers plus how many courses it placed. The period label is
	// the start token advanced by the number of periods already emitted.
	fillPeriod := func(candidates []models.Course) (models.PlanPeriod, []models.Course, int, error) {
		label, err := AdvancePeriodToken(startPeriod, len(projection.Periods))
		if err != nil {
			return models.PlanPeriod{}, nil, 0, err
		}
		period := models.PlanPeriod{Label: label}
		credits := 0
		var leftovers []models.Course
		placedHere := 0

		for _, c := range candidates {
			if _, ok := done[c.Code]; ok {
				continue
			}
			ok, err := eligible(c)
			if err != nil {
				return models.PlanPeriod{}, nil, 0, err
			}
			if !ok || credits+c.Credits > maxCredits {
				leftovers = append(leftovers, c)
				continue
			}
			period.Entries = append(period.Entries, models.PlanEntry{
				CourseCode: c.Code,
				Credits:    c.Credits,
			})
			credits += c.Credits
			placedHere++
			// Placement takes effect for the *next* period: courses in
			// the same period cannot satisfy each other's prerequisites.
		}

		// Commit placements after the sweep so same-period courses were
		// not visible to the eligibility checks above.
		for _, e := range period.Entries {
			done[e.CourseCode] = struct{}{}
		}
		return period, leftovers, placedHere, nil
	}

	// One period per supplied level tier, carried-over courses first.
	for _, group := range levelGroups {
		candidates := append(append([]models.Course(nil), pending...), filterNew(group, inPending)...)
		for _, c := range candidates {
			inPending[c.Code] = struct{}{}
		}

		period, leftovers, _, err := fillPeriod(candidates)
		if err != nil {
			return Projection{}, err
		}
		projection.Periods = append(projection.Periods, period)
		pending = leftovers
	}

	// Keep opening periods while leftovers still unlock. A pass that
	// places nothing means the rest is unsatisfiable at this ceiling.
	for len(pending) > 0 {
		period, leftovers, placedHere, err := fillPeriod(pending)
		if err != nil {
			return Projection{}, err
		}
		if placedHere == 0 {
			break
		}
		projection.Periods = append(projection.Periods, period)
		pending = leftovers
	}

	for _, c := range pending {
		projection.Unplaced = append(projection.Unplaced, c.Code)
	}
	return projection, nil
}

// filterNew drops courses already tracked in the pending set, keeping
// first-seen order.
func filterNew(group []models.Course, seen map[string]struct{}) []models.Course {
	var fresh []models.Course
	for _, c := range group {
		if _, ok := seen[c.Code]; ok {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}
