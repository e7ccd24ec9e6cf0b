package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is how often the active signed pre-key is replaced.
const DefaultInterval = 48 * time.Hour

// Scheduler runs a Rotator on a fixed interval.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler schedules r every interval. Errors are reported by the
// Rotator itself and do not stop the schedule.
func NewScheduler(r *Rotator, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("rotation: interval must be positive, got %s", interval)
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		_, _, _ = r.Rotate()
	}); err != nil {
		return nil, fmt.Errorf("rotation: schedule: %w", err)
	}
	return &Scheduler{cron: c}, nil
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule. The returned context is done once a rotation
// already in progress has finished.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
