package models

import (
	"time"
)

// PlanEntry is one scheduled placement of a course inside a period.
// Credits are denormalized from the catalog at placement time so a saved
// plan stays readable even if the catalog version moves on.
type PlanEntry struct {
	CourseCode string `json:"course_code"`
	Credits    int    `json:"credits"`
}

// PlanPeriod is one academic term of a plan. Label is the calendar-like
// catalog token ("202410"); the ordinal position of the period inside
// Plan.Periods is what the prerequisite ordering rules operate on.
type PlanPeriod struct {
	Label   string      `json:"label"`
	Entries []PlanEntry `json:"entries"`
}

// TotalCredits returns the credit load of the period.
func (p *PlanPeriod) TotalCredits() int {
	total := 0
	for _, e := range p.Entries {
		total += e.Credits
	}
	return total
}

// Plan is a student's multi-period schedule of remaining coursework.
// A course code appears at most once across all periods.
type Plan struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	OwnerID     string       `json:"owner_id"`
	ProgramCode string       `json:"program_code"`
	Catalog     string       `json:"catalog,omitempty"`
	Periods     []PlanPeriod `json:"periods"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// PeriodOf returns the 1-based period index holding the given course,
// or false if the course is not scheduled anywhere in the plan.
func (p *Plan) PeriodOf(courseCode string) (int, bool) {
	for i, period := range p.Periods {
		for _, e := range period.Entries {
			if e.CourseCode == courseCode {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// Contains reports whether the course is scheduled in any period.
func (p *Plan) Contains(courseCode string) bool {
	_, ok := p.PeriodOf(courseCode)
	return ok
}

// CourseCount returns the number of scheduled courses.
func (p *Plan) CourseCount() int {
	n := 0
	for _, period := range p.Periods {
		n += len(period.Entries)
	}
	return n
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	cp := *p
	cp.Periods = make([]PlanPeriod, len(p.Periods))
	for i, period := range p.Periods {
		cp.Periods[i] = PlanPeriod{
			Label:   period.Label,
			Entries: append([]PlanEntry(nil), period.Entries...),
		}
	}
	return &cp
}
