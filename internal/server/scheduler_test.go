package server

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/mohammad-safakhou/copilot/internal/state"
)

func TestIsDue(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !isDue("@daily", last, last.Add(24*time.Hour)) {
		t.Fatal("daily spec should fire within a day")
	}
	if isDue("@daily", last, last.Add(30*time.Minute)) {
		t.Fatal("daily spec should not fire within half an hour")
	}
	if isDue("not a cron", last, last.Add(48*time.Hour)) {
		t.Fatal("malformed spec should never fire")
	}
}

func TestSchedulerTickRunsCleanupWhenDue(t *testing.T) {
	mgr, err := state.NewManager(t.TempDir(), 100)
	if err != nil {
		t.Fatalf("state manager: %v", err)
	}
	s := &Scheduler{
		Manager:    mgr,
		CronSpec:   "@hourly",
		RetainDays: 30,
		Logger:     log.New(io.Discard, "", 0),
		lastRun:    time.Now().Add(-2 * time.Hour),
	}

	s.tick(time.Now())
	if time.Since(s.lastRun) > time.Minute {
		t.Fatal("tick should record the cleanup run")
	}

	// Immediately after a run the spec is no longer due.
	last := s.lastRun
	s.tick(time.Now())
	if !s.lastRun.Equal(last) {
		t.Fatal("second tick should be a no-op")
	}
}
