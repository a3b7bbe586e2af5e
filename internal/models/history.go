package models

// CourseStatus represents the outcome of one academic attempt
type CourseStatus string

const (
	StatusApproved  CourseStatus = "APPROVED"
	StatusEnrolled  CourseStatus = "ENROLLED"
	StatusFailed    CourseStatus = "FAILED"
	StatusWithdrawn CourseStatus = "WITHDRAWN"
)

// IsFinal returns true if the attempt can no longer change outcome
func (s CourseStatus) IsFinal() bool {
	return s == StatusApproved || s == StatusFailed || s == StatusWithdrawn
}

// HistoryRecord is one academic attempt of a course by a student.
// RecordID, InscriptionType and Excluded come from the transcript feed
// and are carried through untouched; the scheduling logic ignores them.
type HistoryRecord struct {
	RecordID        string       `json:"record_id,omitempty"`
	CourseCode      string       `json:"course_code"`
	Period          string       `json:"period"` // sortable token, e.g. "202310"
	Status          CourseStatus `json:"status"`
	InscriptionType string       `json:"inscription_type,omitempty"`
	Excluded        bool         `json:"excluded,omitempty"`
}
