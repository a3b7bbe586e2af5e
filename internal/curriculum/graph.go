package curriculum

import (
	"errors"
	"fmt"
	"sort"

	"github.com/campusgrid/degree-planner/internal/models"
)

// Common errors
var (
	ErrCourseNotFound = errors.New("course not found in curriculum")
	ErrDuplicateCode  = errors.New("duplicate course code in curriculum")
)

// EvalMode selects how a prerequisite expression is enforced.
type EvalMode int

const (
	// RequireAll flattens the expression and requires every referenced
	// code, treating O the same as Y. This matches the legacy planner
	// behavior and is the default; an OR-prerequisite "A O B" is
	// enforced as both A and B.
	RequireAll EvalMode = iota

	// StrictOR honors the parsed tree, so one satisfied alternative of
	// an O group is enough.
	StrictOR
)

// Graph is the prerequisite graph of one program catalog. It is built
// once from the course list and read-only afterwards.
type Graph struct {
	mode       EvalMode
	order      []string // course codes in catalog order
	courses    map[string]models.Course
	exprs      map[string]Expr
	prereqs    map[string][]string // flattened referenced codes, expression order
	dependents map[string][]string
}

// Option configures graph construction
type Option func(*Graph)

// WithEvalMode sets the prerequisite evaluation mode.
func WithEvalMode(mode EvalMode) Option {
	return func(g *Graph) { g.mode = mode }
}

// NewGraph builds the prerequisite graph for a course list. Requisite
// expressions are parsed here, once; codes referenced by an expression
// but absent from the course list are tolerated at construction time
// and surface as ErrCourseNotFound only when looked up directly.
func NewGraph(courses []models.Course, opts ...Option) (*Graph, error) {
	g := &Graph{
		mode:       RequireAll,
		courses:    make(map[string]models.Course, len(courses)),
		exprs:      make(map[string]Expr, len(courses)),
		prereqs:    make(map[string][]string, len(courses)),
		dependents: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, c := range courses {
		if _, exists := g.courses[c.Code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, c.Code)
		}
		if c.Credits < 0 {
			return nil, fmt.Errorf("course %s has negative credits", c.Code)
		}
		g.courses[c.Code] = c
		g.order = append(g.order, c.Code)

		expr := ParseRequisites(c.Requisites)
		g.exprs[c.Code] = expr
		g.prereqs[c.Code] = expr.Codes()
	}

	// Inverse adjacency, built once. Any referenced code counts as a
	// dependency edge regardless of eval mode, so removal safety stays
	// conservative for OR groups.
	for _, code := range g.order {
		for _, req := range g.prereqs[code] {
			g.dependents[req] = append(g.dependents[req], code)
		}
	}
	for _, deps := range g.dependents {
		sort.Strings(deps)
	}

	return g, nil
}

// Mode returns the prerequisite evaluation mode of the graph.
func (g *Graph) Mode() EvalMode { return g.mode }

// Len returns the number of courses in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Course returns the catalog record for a code.
func (g *Graph) Course(code string) (models.Course, error) {
	c, ok := g.courses[code]
	if !ok {
		return models.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
	}
	return c, nil
}

// Courses returns every course in catalog order.
func (g *Graph) Courses() []models.Course {
	result := make([]models.Course, 0, len(g.order))
	for _, code := range g.order {
		result = append(result, g.courses[code])
	}
	return result
}

// PrerequisitesOf returns the flat list of course codes referenced by
// the requisite expression of the given course, in expression order.
func (g *Graph) PrerequisitesOf(code string) ([]string, error) {
	if _, ok := g.courses[code]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
	}
	return g.prereqs[code], nil
}

// Requirement returns the parsed requisite expression of a course.
func (g *Graph) Requirement(code string) (Expr, error) {
	if _, ok := g.courses[code]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
	}
	return g.exprs[code], nil
}

// RequirementMet evaluates the course's prerequisites against the given
// predicate, honoring the graph's eval mode. The second return value
// lists the codes that kept the requirement from holding.
func (g *Graph) RequirementMet(code string, have func(string) bool) (bool, []string, error) {
	if _, ok := g.courses[code]; !ok {
		return false, nil, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
	}

	if g.mode == StrictOR {
		expr := g.exprs[code]
		if expr.Satisfied(have) {
			return true, nil, nil
		}
		return false, expr.Missing(have), nil
	}

	var missing []string
	for _, req := range g.prereqs[code] {
		if !have(req) {
			missing = append(missing, req)
		}
	}
	return len(missing) == 0, missing, nil
}

// DependentsOf returns the courses whose requisite expression references
// the given course, sorted by code.
func (g *Graph) DependentsOf(code string) ([]string, error) {
	if _, ok := g.courses[code]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
	}
	return g.dependents[code], nil
}

// LevelGroups returns the courses grouped by catalog level in ascending
// level order, preserving catalog order within a level. Courses for
// which skip returns true are left out. The grouping feeds the
// automatic projection generator.
func (g *Graph) LevelGroups(skip func(code string) bool) [][]models.Course {
	byLevel := make(map[int][]models.Course)
	var levels []int
	for _, code := range g.order {
		c := g.courses[code]
		if skip != nil && skip(code) {
			continue
		}
		if _, seen := byLevel[c.Level]; !seen {
			levels = append(levels, c.Level)
		}
		byLevel[c.Level] = append(byLevel[c.Level], c)
	}
	sort.Ints(levels)

	groups := make([][]models.Course, 0, len(levels))
	for _, lvl := range levels {
		groups = append(groups, byLevel[lvl])
	}
	return groups
}
