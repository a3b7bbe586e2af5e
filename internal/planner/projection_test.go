package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/campusgrid/degree-planner/internal/curriculum"
	"github.com/campusgrid/degree-planner/internal/models"
)

func periodCodes(p models.PlanPeriod) []string {
	codes := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		codes = append(codes, e.CourseCode)
	}
	return codes
}

func TestGenerateEmptyCurriculum(t *testing.T) {
	g, err := curriculum.NewGraph(nil)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	projection, err := Generate(g, nil, 30, "202410", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(projection.Periods) != 0 || len(projection.Unplaced) != 0 {
		t.Errorf("empty curriculum should yield an empty projection, got %+v", projection)
	}
}

func TestGenerateRejectsBadStartPeriod(t *testing.T) {
	g, err := curriculum.NewGraph(nil)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	if _, err := Generate(g, nil, 30, "bogus", nil); !errors.Is(err, ErrInvalidPeriodToken) {
		t.Fatalf("err = %v, want ErrInvalidPeriodToken", err)
	}
}

func TestGenerateChainOnePeriodPerTier(t *testing.T) {
	courses := []models.Course{
		{Code: "A", Credits: 5, Level: 1},
		{Code: "B", Credits: 5, Level: 2, Requisites: "A"},
		{Code: "C", Credits: 5, Level: 3, Requisites: "B"},
	}
	g, err := curriculum.NewGraph(courses)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	projection, err := Generate(g, g.LevelGroups(nil), 30, "202410", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	wantLabels := []string{"202410", "202420", "202510"}
	wantCodes := [][]string{{"A"}, {"B"}, {"C"}}
	if len(projection.Periods) != len(wantLabels) {
		t.Fatalf("period count = %d, want %d", len(projection.Periods), len(wantLabels))
	}
	for i, p := range projection.Periods {
		if p.Label != wantLabels[i] {
			t.Errorf("period %d label = %s, want %s", i+1, p.Label, wantLabels[i])
		}
		if got := periodCodes(p); !reflect.DeepEqual(got, wantCodes[i]) {
			t.Errorf("period %d courses = %v, want %v", i+1, got, wantCodes[i])
		}
	}
	if len(projection.Unplaced) != 0 {
		t.Errorf("Unplaced = %v, want none", projection.Unplaced)
	}
}

func TestGenerateCreditCeilingSpillsToNextPeriod(t *testing.T) {
	courses := []models.Course{
		{Code: "A", Credits: 20, Level: 1},
		{Code: "B", Credits: 20, Level: 1},
	}
	g, err := curriculum.NewGraph(courses)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	projection, err := Generate(g, g.LevelGroups(nil), 30, "202410", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// A fills period one to 20 credits; B at 40 would breach the ceiling,
	// so it spills into an extra trailing period.
	if len(projection.Periods) != 2 {
		t.Fatalf("period count = %d, want 2: %+v", len(projection.Periods), projection)
	}
	if got := periodCodes(projection.Periods[0]); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("period 1 = %v, want [A]", got)
	}
	if got := periodCodes(projection.Periods[1]); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("period 2 = %v, want [B]", got)
	}
	if len(projection.Unplaced) != 0 {
		t.Errorf("Unplaced = %v, want none", projection.Unplaced)
	}
}

func TestGenerateNeverExceedsCeiling(t *testing.T) {
	courses := []models.Course{
		{Code: "A", Credits: 12, Level: 1},
		{Code: "B", Credits: 12, Level: 1},
		{Code: "C", Credits: 12, Level: 1},
		{Code: "D", Credits: 3, Level: 1},
	}
	g, err := curriculum.NewGraph(courses)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	projection, err := Generate(g, g.LevelGroups(nil), 30, "202410", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i, p := range projection.Periods {
		if total := p.TotalCredits(); total > 30 {
			t.Errorf("period %d carries %d credits, ceiling is 30", i+1, total)
		}
	}
	if len(projection.Unplaced) != 0 {
		t.Errorf("Unplaced = %v, want none", projection.Unplaced)
	}

	total := 0
	for _, p := range projection.Periods {
		total += len(p.Entries)
	}
	if total != len(courses) {
		t.Errorf("placed %d of %d courses", total, len(courses))
	}
}

func TestGenerateSamePeriodPrerequisiteIsolation(t *testing.T) {
	// A and B share a tier but B requires A, so B must wait one period
	// even though the credits would fit.
	courses := []models.Course{
		{Code: "A", Credits: 5, Level: 1},
		{Code: "B", Credits: 5, Level: 1, Requisites: "A"},
	}
	g, err := curriculum.NewGraph(courses)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	projection, err := Generate(g, g.LevelGroups(nil), 30, "202410", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(projection.Periods) != 2 {
		t.Fatalf("period count = %d, want 2: %+v", len(projection.Periods), projection)
	}
	if got := periodCodes(projection.Periods[0]); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("period 1 = %v, want [A]", got)
	}
	if got := periodCodes(projection.Periods[1]); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("period 2 = %v, want [B]", got)
	}
}

func TestGenerateSeededPlacements(t *testing.T) {
	courses := []models.Course{
		{Code: "A", Credits: 5, Level: 1},
		{Code: "B", Credits: 5, Level: 2, Requisites: "A"},
	}
	g, err := curriculum.NewGraph(courses)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	// A is already approved: the caller drops its tier and seeds it, so
	// B becomes placeable in the very first period.
	placed := map[string]struct{}{"A": {}}
	groups := g.LevelGroups(func(code string) bool { return code == "A" })

	projection, err := Generate(g, groups, 30, "202410", placed)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(projection.Periods) != 1 {
		t.Fatalf("period count = %d, want 1: %+v", len(projection.Periods), projection)
	}
	if got := periodCodes(projection.Periods[0]); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("period 1 = %v, want [B]", got)
	}
}

func TestGenerateUnsatisfiableCourseReportedUnplaced(t *testing.T) {
	// B depends on a course that exists but sits in no supplied tier and
	// is never seeded, so B can never become eligible.
	courses := []models.Course{
		{Code: "A", Credits: 5, Level: 1},
		{Code: "X", Credits: 5, Level: 1},
		{Code: "B", Credits: 5, Level: 2, Requisites: "X"},
	}
	g, err := curriculum.NewGraph(courses)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	groups := [][]models.Course{
		{courses[0]}, // A only
		{courses[2]}, // B, prerequisite X withheld
	}
	projection, err := Generate(g, groups, 30, "202410", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(projection.Unplaced, []string{"B"}) {
		t.Errorf("Unplaced = %v, want [B]", projection.Unplaced)
	}
	for i, p := range projection.Periods {
		for _, code := range periodCodes(p) {
			if code == "B" {
				t.Errorf("B placed in period %d despite missing prerequisite", i+1)
			}
		}
	}
}
