package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"library-backend/pkg/notifications"
)

// Job schedules, local wall-clock time. Both reminder batches run at
// 09:00, the overdue batch at 10:00, matching the library's working day.
const (
	remindersSpec = "0 9 * * *"
	overdueSpec   = "0 10 * * *"
)

// Scheduler drives the daily notification batches on a single background
// cron timeline. One instance per process, owned by the composition root:
// started once, stopped once.
type Scheduler struct {
	dispatcher *notifications.Dispatcher
	logger     *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool

	reminders30Busy atomic.Bool
	reminders5Busy  atomic.Bool
	overdueBusy     atomic.Bool
}

func New(dispatcher *notifications.Dispatcher, logger *zap.Logger) *Scheduler {
	return &Scheduler{dispatcher: dispatcher, logger: logger}
}

// Start registers the three jobs and starts the timer. Calling Start on a
// running scheduler replaces nothing and adds nothing; restarting after
// Stop builds a fresh registration set, never a duplicate one.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	c := cron.New()
	jobs := []struct {
		name string
		spec string
		busy *atomic.Bool
		run  func() (int, error)
	}{
		{"reminders_30_days", remindersSpec, &s.reminders30Busy, s.dispatcher.ProcessReminders30},
		{"reminders_5_days", remindersSpec, &s.reminders5Busy, s.dispatcher.ProcessReminders5},
		{"overdue_notifications", overdueSpec, &s.overdueBusy, s.dispatcher.ProcessOverdue},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.spec, s.wrap(job.name, job.busy, job.run)); err != nil {
			return err
		}
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("notification scheduler started")
	return nil
}

// Stop cancels future firings and waits for any in-flight job to finish.
// Idempotent: stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.running = false
	s.logger.Info("notification scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunAll triggers the full notification run by hand, independent of the
// timers. Used by the manual send-all endpoint and in tests.
func (s *Scheduler) RunAll() notifications.Report {
	return s.dispatcher.ProcessAll()
}

// wrap guards a job so at most one execution of it is in flight at a
// time; an overlapping firing is skipped, not queued.
func (s *Scheduler) wrap(name string, busy *atomic.Bool, run func() (int, error)) func() {
	return func() {
		if !busy.CompareAndSwap(false, true) {
			s.logger.Warn("previous run still in flight, skipping", zap.String("job", name))
			return
		}
		defer busy.Store(false)

		count, err := run()
		if err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Int("sent", count))
	}
}
