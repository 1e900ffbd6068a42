// Package scheduler queues sync runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/tasks"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer accepts tasks for background processing.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

var _ Enqueuer = (*tasks.Client)(nil)

// WindowFunc picks the date window of a run fired on today.
type WindowFunc func(today window.Date) (window.Window, error)

// SyncScheduler fires sync runs on a cron schedule. Each firing resolves
// its window and queues a tasks.SyncRunTask; the task queue does the work.
type SyncScheduler struct {
	queue     Enqueuer
	schedule  string
	windowFor WindowFunc
	now       func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewSyncScheduler creates a new scheduler instance
func NewSyncScheduler(queue Enqueuer, schedule string, windowFor WindowFunc) *SyncScheduler {
	return &SyncScheduler{
		queue:     queue,
		schedule:  schedule,
		windowFor: windowFor,
		now:       time.Now,
		cron:      cron.New(cron.WithParser(parser)),
	}
}

// Start begins firing runs until Stop is called or ctx is done.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.fire(entities.SyncTriggerScheduled); err != nil {
			log.Printf("[SCHEDULER] %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRunTime(s.schedule, s.now())
	log.Printf("[SCHEDULER] Started with schedule '%s' (%s). Next run: %v",
		s.schedule, Describe(s.schedule), next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a firing in progress and stops the scheduler.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	log.Printf("[SCHEDULER] Stopped")
}

// RunNow queues a run immediately and returns the task ID.
func (s *SyncScheduler) RunNow() (string, error) {
	return s.fire(entities.SyncTriggerManual)
}

// IsRunning returns whether the scheduler is active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next run will fire, or nil when stopped.
func (s *SyncScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

func (s *SyncScheduler) fire(trigger entities.SyncTrigger) (string, error) {
	w, err := s.windowFor(window.DateOf(s.now()))
	if err != nil {
		return "", fmt.Errorf("failed to resolve sync window: %w", err)
	}

	id, err := s.queue.Enqueue(tasks.NewSyncRunTask(w, trigger))
	if err != nil {
		return "", err
	}
	log.Printf("[SCHEDULER] Queued %s sync %s for %s", trigger, id, w)
	return id, nil
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// NextRunTime returns when schedule next fires after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Describe returns a human-readable description of a cron schedule.
func Describe(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 6 * * *":
		return "Daily at 06:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	case "0 6 * * 1":
		return "Weekly on Monday at 06:00"
	default:
		return "Custom schedule: " + schedule
	}
}
