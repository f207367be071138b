package library

import (
	"testing"
	"time"
)

func TestSchedulerNextRun(t *testing.T) {
	mgr := newManager(t)
	s, err := NewScheduler(mgr, "9:30", nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	loc := time.UTC
	before := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	next := s.nextRun(before)
	if want := time.Date(2026, 3, 10, 9, 30, 0, 0, loc); !next.Equal(want) {
		t.Fatalf("nextRun(%v) = %v, want %v", before, next, want)
	}

	// Exactly at the slot: schedule tomorrow, never fire twice.
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, loc)
	next = s.nextRun(at)
	if want := time.Date(2026, 3, 11, 9, 30, 0, 0, loc); !next.Equal(want) {
		t.Fatalf("nextRun(%v) = %v, want %v", at, next, want)
	}

	after := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	next = s.nextRun(after)
	if want := time.Date(2026, 3, 11, 9, 30, 0, 0, loc); !next.Equal(want) {
		t.Fatalf("nextRun(%v) = %v, want %v", after, next, want)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	mgr := newManager(t)
	s, err := NewScheduler(mgr, "23:59", nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.Start()
	s.Start() // idempotent
	s.Stop()
	s.Stop() // idempotent

	// Restartable after a stop.
	s.Start()
	s.Stop()
}

func TestNewSchedulerRejectsBadHour(t *testing.T) {
	mgr := newManager(t)
	if _, err := NewScheduler(mgr, "nine", nil); err == nil {
		t.Fatalf("bad hour accepted")
	}
}
