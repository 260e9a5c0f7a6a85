package server

import (
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/copilot/internal/state"
)

// Scheduler prunes stale plan and chat files from the data directory on a
// cron schedule.
type Scheduler struct {
	Manager    *state.Manager
	CronSpec   string
	RetainDays int
	Stop       chan struct{}
	Logger     *log.Logger

	lastRun time.Time
}

// Start launches the scheduling loop. The loop wakes hourly and runs the
// cleanup when the cron expression has fired since the last run.
func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	if s.CronSpec == "" {
		s.CronSpec = "@daily"
	}
	if s.RetainDays <= 0 {
		s.RetainDays = 30
	}
	s.lastRun = time.Now()

	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

func (s *Scheduler) tick(now time.Time) {
	if !isDue(s.CronSpec, s.lastRun, now) {
		return
	}
	s.lastRun = now
	removed, err := s.Manager.CleanupOldFiles(s.RetainDays)
	if err != nil {
		s.Logger.Printf("cleanup failed: %v", err)
		return
	}
	cleanupRunsTotal.Inc()
	if removed > 0 {
		s.Logger.Printf("cleanup removed %d files older than %d days", removed, s.RetainDays)
	}
}

// isDue reports whether cronSpec has a firing time after last and at or
// before now. A malformed spec never fires.
func isDue(cronSpec string, last, now time.Time) bool {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return false
	}
	next := expr.Next(last)
	return !next.IsZero() && !next.After(now)
}
