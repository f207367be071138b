package library

import (
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs the overdue-notification sweep once a day at a fixed
// wall-clock time. It may overlap with the manual admin sweep; both only
// append audit rows, so overlap is harmless.
type Scheduler struct {
	mgr    *Manager
	hour   int
	minute int
	logger *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewScheduler parses hhmm ("HH" or "HH:MM") and returns a stopped
// scheduler.
func NewScheduler(mgr *Manager, hhmm string, logger *slog.Logger) (*Scheduler, error) {
	hour, minute, err := ParseScheduleHour(hhmm)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{mgr: mgr, hour: hour, minute: minute, logger: logger}, nil
}

// Start launches the daily loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.logger.Info("overdue scheduler started",
		"hour", s.hour, "minute", s.minute)
	go s.run(s.stop, s.done)
}

// Stop halts the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		timer := time.NewTimer(time.Until(s.nextRun(time.Now())))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			attempted, sent, err := s.mgr.NotifyOverdue()
			if err != nil {
				s.logger.Error("overdue sweep failed", "error", err)
			} else {
				s.logger.Info("overdue sweep finished", "attempted", attempted, "sent", sent)
			}
		}
	}
}

// nextRun returns the next occurrence of the configured HH:MM after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
