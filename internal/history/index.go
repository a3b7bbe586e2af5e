// Package history derives the scheduling view of a student's transcript:
// which courses are approved, which are in progress, and the latest
// status per course. The index is a pure function of the raw record
// list and is rebuilt rather than mutated.
package history

import (
	"sort"

	"github.com/campusgrid/degree-planner/internal/models"
)

// Entry is the latest known status of one course
type Entry struct {
	Status models.CourseStatus `json:"status"`
	Period string              `json:"period"`
}

// Index is the derived per-course view of a transcript. A course with
// no records is absent from Latest: not yet attempted, not failed.
type Index struct {
	Latest       map[string]Entry
	LatestPeriod string // most recent period across all records
	approved     map[string]struct{}
	inProgress   map[string]struct{}
}

// Build folds the raw record list into an Index. Records are sorted by
// period ascending and folded left to right so the last record for a
// course wins; a later APPROVED always supersedes an earlier FAILED.
// Courses are in progress when their latest record is non-final and
// sits in the most recent period seen.
func Build(records []models.HistoryRecord) *Index {
	idx := &Index{
		Latest:     make(map[string]Entry),
		approved:   make(map[string]struct{}),
		inProgress: make(map[string]struct{}),
	}

	sorted := append([]models.HistoryRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period < sorted[j].Period
	})

	for _, rec := range sorted {
		if rec.CourseCode == "" {
			continue
		}
		idx.Latest[rec.CourseCode] = Entry{Status: rec.Status, Period: rec.Period}
		if rec.Status == models.StatusApproved {
			idx.approved[rec.CourseCode] = struct{}{}
		}
		if rec.Period > idx.LatestPeriod {
			idx.LatestPeriod = rec.Period
		}
	}

	for code, entry := range idx.Latest {
		if entry.Status.IsFinal() {
			continue
		}
		if entry.Period == idx.LatestPeriod {
			idx.inProgress[code] = struct{}{}
		}
	}

	return idx
}

// IsApproved reports whether the course has at least one APPROVED record.
func (idx *Index) IsApproved(code string) bool {
	_, ok := idx.approved[code]
	return ok
}

// IsInProgress reports whether the course has a non-final record in the
// most recent period.
func (idx *Index) IsInProgress(code string) bool {
	_, ok := idx.inProgress[code]
	return ok
}

// Approved returns the approved course codes, sorted.
func (idx *Index) Approved() []string {
	return sortedKeys(idx.approved)
}

// InProgress returns the in-progress course codes, sorted.
func (idx *Index) InProgress() []string {
	return sortedKeys(idx.inProgress)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
