package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusgrid/degree-planner/internal/session"
)

// Cleaner handles periodic cleanup of expired editing sessions
type Cleaner struct {
	sessions *session.Manager
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sessions *session.Manager, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		sessions: sessions,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("session cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup finds and closes expired editing sessions
func (c *Cleaner) cleanup() {
	slog.Debug("running session cleanup cycle")

	expired := c.sessions.GetExpired()
	if len(expired) == 0 {
		slog.Debug("no expired sessions found")
		return
	}

	slog.Info("found expired editing sessions", "count", len(expired))

	for _, meta := range expired {
		slog.Info("closing expired editing session",
			"session_id", meta.ID,
			"student", meta.StudentID,
			"program", meta.ProgramCode,
			"expired_at", meta.ExpiresAt,
		)

		if err := c.sessions.Delete(meta.ID); err != nil {
			slog.Error("failed to close expired session",
				"error", err,
				"session_id", meta.ID,
			)
		}
	}
}
