package models

import (
	"time"
)

// EditingSession is the metadata of one live plan-editing session.
// A plan is exclusively owned by a single session; concurrent edits of
// the same plan from two sessions are not supported.
type EditingSession struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	ProgramCode  string     `json:"program_code"`
	Catalog      string     `json:"catalog"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	SavedPlanID  string     `json:"saved_plan_id,omitempty"`
	SavedAt      *time.Time `json:"saved_at,omitempty"`
}

// IsExpired checks if the session idle TTL has elapsed
func (s *EditingSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TimeRemaining returns the duration until expiry (0 if already expired)
func (s *EditingSession) TimeRemaining() time.Duration {
	remaining := time.Until(s.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
