// Package scheduler runs named periodic and daily tasks without overlap.
//
// The scheduler is tick-driven: the owner calls Tick with the current time
// and every due task runs sequentially inside that call. A task never runs
// twice concurrently, failures reschedule the task five minutes out, and a
// panicking task is contained — scheduling never halts because one task
// misbehaved.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// retryDelay is applied to a task's next run after a failure.
const retryDelay = 5 * time.Minute

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// timing decides when a task runs next after a successful run at now.
type timing interface {
	firstRun(now time.Time) time.Time
	nextAfter(now time.Time) time.Time
	describe() string
}

// periodic runs every interval.
type periodic struct {
	interval time.Duration
}

func (p periodic) firstRun(now time.Time) time.Time  { return now.Add(p.interval) }
func (p periodic) nextAfter(now time.Time) time.Time { return now.Add(p.interval) }
func (p periodic) describe() string                  { return fmt.Sprintf("every %s", p.interval) }

// daily runs once a day at hour:minute local time.
type daily struct {
	hour, minute int
}

func (d daily) firstRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d daily) nextAfter(now time.Time) time.Time { return now.AddDate(0, 0, 1) }
func (d daily) describe() string                  { return fmt.Sprintf("daily at %02d:%02d", d.hour, d.minute) }

// task is the bookkeeping record for one registered task.
type task struct {
	id      string
	run     TaskFunc
	timing  timing
	nextRun time.Time
	lastRun time.Time
}

// TaskStatus is a read-only snapshot of one task, for inspection.
type TaskStatus struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	NextRun time.Time `json:"nextRun"`
	LastRun time.Time `json:"lastRun,omitzero"`
	Running bool      `json:"running"`
}

// Scheduler owns the registered tasks and the set currently executing.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	order   []string // registration order, for stable Status output
	running map[string]bool
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{
		tasks:   make(map[string]*task),
		running: make(map[string]bool),
	}
}

// RegisterPeriodic schedules fn every interval, first run one interval from
// now.
func (s *Scheduler) RegisterPeriodic(id string, interval time.Duration, fn TaskFunc) {
	s.register(id, periodic{interval: interval}, fn, time.Now())
}

// RegisterDaily schedules fn daily at hour:minute. If that instant is still
// ahead today the first run is today, otherwise tomorrow.
func (s *Scheduler) RegisterDaily(id string, hour, minute int, fn TaskFunc) {
	s.register(id, daily{hour: hour, minute: minute}, fn, time.Now())
}

// registerAt variants with an explicit clock exist for tests.
func (s *Scheduler) registerPeriodicAt(id string, interval time.Duration, fn TaskFunc, now time.Time) {
	s.register(id, periodic{interval: interval}, fn, now)
}

func (s *Scheduler) registerDailyAt(id string, hour, minute int, fn TaskFunc, now time.Time) {
	s.register(id, daily{hour: hour, minute: minute}, fn, now)
}

func (s *Scheduler) register(id string, tm timing, fn TaskFunc, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		s.order = append(s.order, id)
	}
	s.tasks[id] = &task{
		id:      id,
		run:     fn,
		timing:  tm,
		nextRun: tm.firstRun(now),
	}
	log.Printf("[scheduler] Registered task %q (%s), first run %s", id, tm.describe(),
		s.tasks[id].nextRun.Format(time.RFC3339))
}

// Tick runs every due task once, sequentially, in registration order.
// A task already running (from an overlapping Tick) is skipped. Success
// advances next_run from the tick time; failure or panic reschedules the
// task retryDelay out and leaves last_run untouched.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, t := range s.claimDue(now) {
		err := s.invoke(ctx, t)

		s.mu.Lock()
		if err != nil {
			log.Printf("[scheduler] Task %q failed: %v — retrying in %s", t.id, err, retryDelay)
			t.nextRun = now.Add(retryDelay)
		} else {
			t.lastRun = now
			t.nextRun = t.timing.nextAfter(now)
		}
		delete(s.running, t.id)
		s.mu.Unlock()
	}
}

// claimDue atomically selects the due, not-running tasks and marks them
// running, so a racing Tick cannot pick them up again.
func (s *Scheduler) claimDue(now time.Time) []*task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*task
	for _, id := range s.order {
		t := s.tasks[id]
		if s.running[id] || t.nextRun.After(now) {
			continue
		}
		s.running[id] = true
		due = append(due, t)
	}
	return due
}

// invoke runs the task body, converting a panic into an error so one bad
// task cannot take the scheduler down.
func (s *Scheduler) invoke(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", t.id, r)
		}
	}()

	log.Printf("[scheduler] Executing task %q", t.id)
	return t.run(ctx)
}

// Status returns a snapshot of every task in registration order. It has no
// side effects on scheduling.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		out = append(out, TaskStatus{
			ID:      id,
			Kind:    t.timing.describe(),
			NextRun: t.nextRun,
			LastRun: t.lastRun,
			Running: s.running[id],
		})
	}
	return out
}
