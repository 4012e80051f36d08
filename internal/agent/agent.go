// Package agent is the composition root of the job application pipeline.
//
// It wires the two recurring cycles — discover (search → filter → score →
// persist) and apply (read pending → generate letter → submit → record) —
// onto the task scheduler, owns the daily counters, and keeps the process
// alive through bad cycles.
package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobpilot/agent-service/internal/config"
	"jobpilot/agent-service/internal/letter"
	"jobpilot/agent-service/internal/match"
	"jobpilot/agent-service/internal/model"
	"jobpilot/agent-service/internal/notify"
	"jobpilot/agent-service/internal/scheduler"
	"jobpilot/agent-service/internal/source"
)

// Task ids and loop pacing.
const (
	taskDiscover = "job_search"
	taskApply    = "process_applications"
	taskRollup   = "daily_rollup"

	applyBatchSize = 5

	loopInterval = 10 * time.Second
	loopBackoff  = 60 * time.Second
)

// JobStore is the persistence the agent needs. *store.Store satisfies it.
type JobStore interface {
	UpsertJob(ctx context.Context, job model.Job) error
	ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error)
	RecordApplication(ctx context.Context, app model.Application) error
	TransitionJob(ctx context.Context, key string, from, to model.JobStatus) error
	UpsertDailyStats(ctx context.Context, date string, jobsFound, applicationsSent int) error
}

// Searcher is the fan-out search capability. *source.Aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, keywords []string, location, experience string) []model.Job
}

// Submitter mirrors apply.Submitter without importing the default
// implementation.
type Submitter interface {
	Submit(ctx context.Context, job model.Job, art letter.Artifact) (bool, error)
}

// Stats is a snapshot of today's counters.
type Stats struct {
	JobsFoundToday        int `json:"jobsFoundToday"`
	ApplicationsSentToday int `json:"applicationsSentToday"`
}

// Agent orchestrates discovery and application.
type Agent struct {
	cfg       *config.Config
	store     JobStore
	sources   Searcher
	engine    *match.Engine
	generator letter.Generator
	submitter Submitter
	notifier  notify.Notifier
	sched     *scheduler.Scheduler

	// Daily counters. Tasks run sequentially today, but the mutex keeps
	// the counters correct if distinct tasks are ever parallelized.
	mu                    sync.Mutex
	jobsFoundToday        int
	applicationsSentToday int
}

// New wires an Agent from its collaborators.
func New(
	cfg *config.Config,
	store JobStore,
	sources Searcher,
	engine *match.Engine,
	generator letter.Generator,
	submitter Submitter,
	notifier notify.Notifier,
) *Agent {
	return &Agent{
		cfg:       cfg,
		store:     store,
		sources:   sources,
		engine:    engine,
		generator: generator,
		submitter: submitter,
		notifier:  notifier,
		sched:     scheduler.New(),
	}
}

// DiscoverCycle searches every source, filters exclusions, scores the rest
// and persists offers at or above the acceptance threshold. Per-item
// failures are logged and skipped; the cycle itself only fails if nothing
// can proceed at all.
func (a *Agent) DiscoverCycle(ctx context.Context) error {
	log.Println("[agent] Discover cycle started")

	search := a.cfg.Search
	offers := a.sources.Search(ctx, search.Keywords, search.Location, search.ExperienceLevel)

	var accepted, filtered, rejected int
	for _, job := range offers {
		if source.ContainsExcludedKeyword(job.Title, job.Company, job.Description, search.ExcludedKeywords) {
			filtered++
			continue
		}

		job.MatchScore = a.engine.Score(job)
		if job.MatchScore < search.MatchThreshold {
			rejected++
			continue
		}
		job.Status = model.JobDiscovered

		if err := a.store.UpsertJob(ctx, job); err != nil {
			log.Printf("[agent] Upsert failed for %s (%s): %v — continuing", job.Title, job.Key, err)
			continue
		}
		accepted++
	}

	a.mu.Lock()
	a.jobsFoundToday += accepted
	a.mu.Unlock()

	if accepted > 0 {
		a.notifier.Notify(ctx, fmt.Sprintf("Found %d New Jobs", accepted),
			fmt.Sprintf("Discovered %d matching job opportunities.", accepted), "new_jobs")
	}

	log.Printf("[agent] Discover cycle complete — accepted=%d filtered=%d below_threshold=%d",
		accepted, filtered, rejected)
	return nil
}

// ApplyCycle processes a bounded batch of discovered jobs: generate a cover
// letter, submit, record the outcome. It stops early without error once
// the daily cap is reached, and paces submissions with a fixed delay
// between jobs regardless of outcome.
func (a *Agent) ApplyCycle(ctx context.Context) error {
	if a.capReached() {
		log.Println("[agent] Daily application limit reached — skipping apply cycle")
		return nil
	}

	jobs, err := a.store.ListJobs(ctx, model.JobDiscovered, applyBatchSize)
	if err != nil {
		return fmt.Errorf("list discovered jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("[agent] Apply cycle started — %d candidate(s)", len(jobs))

	for i, job := range jobs {
		if a.capReached() {
			log.Println("[agent] Daily application limit reached")
			break
		}

		a.applyToJob(ctx, job)

		// Fixed pacing between jobs, success or not.
		if i < len(jobs)-1 {
			select {
			case <-time.After(a.cfg.Search.ApplicationDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

// applyToJob runs one submission attempt. Any failure routes the job to
// manual review; automatic retry of an application is deliberately not
// supported.
func (a *Agent) applyToJob(ctx context.Context, job model.Job) {
	art, err := a.generator.Generate(ctx, job)
	if err != nil || art == nil {
		if err != nil {
			log.Printf("[agent] Letter generation failed for %s: %v", job.Key, err)
		}
		a.markManualReview(ctx, job)
		return
	}

	ok, err := a.submitter.Submit(ctx, job, *art)
	if err != nil || !ok {
		if err != nil {
			log.Printf("[agent] Submission failed for %s: %v", job.Key, err)
		}
		a.markManualReview(ctx, job)
		return
	}

	if err := a.store.TransitionJob(ctx, job.Key, model.JobDiscovered, model.JobApplied); err != nil {
		log.Printf("[agent] Transition to applied failed for %s: %v", job.Key, err)
		return
	}

	app := model.Application{
		ID:              uuid.NewString(),
		JobKey:          job.Key,
		Status:          model.AppSubmitted,
		CoverLetterPath: art.Path,
		AppliedAt:       time.Now().UTC(),
	}
	if err := a.store.RecordApplication(ctx, app); err != nil {
		log.Printf("[agent] Recording application failed for %s: %v", job.Key, err)
	}

	a.mu.Lock()
	a.applicationsSentToday++
	a.mu.Unlock()

	a.notifier.Notify(ctx, "Application Submitted",
		fmt.Sprintf("Successfully applied to %s at %s", job.Title, job.Company),
		"application_success")
}

func (a *Agent) markManualReview(ctx context.Context, job model.Job) {
	if err := a.store.TransitionJob(ctx, job.Key, model.JobDiscovered, model.JobManualReview); err != nil {
		log.Printf("[agent] Transition to manual_review failed for %s: %v", job.Key, err)
		return
	}
	a.notifier.Notify(ctx, "Manual Review Required",
		fmt.Sprintf("Could not auto-apply to %s at %s", job.Title, job.Company),
		"application_failure")
}

func (a *Agent) capReached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applicationsSentToday >= a.cfg.Search.MaxPerDay
}

// DailyRollup flushes today's counters to the store and resets them.
// When the flush fails the counters survive for the five-minute retry.
func (a *Agent) DailyRollup(ctx context.Context) error {
	a.mu.Lock()
	found, sent := a.jobsFoundToday, a.applicationsSentToday
	a.mu.Unlock()

	date := time.Now().Format("2006-01-02")
	if err := a.store.UpsertDailyStats(ctx, date, found, sent); err != nil {
		return fmt.Errorf("daily rollup: %w", err)
	}

	a.mu.Lock()
	a.jobsFoundToday -= found
	a.applicationsSentToday -= sent
	a.mu.Unlock()

	log.Printf("[agent] Daily rollup complete — found=%d sent=%d", found, sent)
	return nil
}

// TodayStats returns a snapshot of the daily counters.
func (a *Agent) TodayStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		JobsFoundToday:        a.jobsFoundToday,
		ApplicationsSentToday: a.applicationsSentToday,
	}
}

// TaskStatus exposes the scheduler's task snapshot for the HTTP surface.
func (a *Agent) TaskStatus() []scheduler.TaskStatus {
	return a.sched.Status()
}

// Run registers the tasks and drives the scheduler until ctx is cancelled.
// A panic escaping a tick is logged and answered with a longer backoff —
// one bad cycle must never kill the process.
func (a *Agent) Run(ctx context.Context) {
	search := a.cfg.Search
	a.sched.RegisterPeriodic(taskDiscover, search.DiscoverInterval, a.DiscoverCycle)
	a.sched.RegisterPeriodic(taskApply, search.ApplyInterval, a.ApplyCycle)
	a.sched.RegisterDaily(taskRollup, search.RollupHour, search.RollupMinute, a.DailyRollup)

	a.notifier.Notify(ctx, "Job Agent Started",
		"Your job application agent is now running and searching for opportunities.", "startup")

	// Populate the feed immediately instead of waiting a full interval.
	go func() {
		if err := a.DiscoverCycle(ctx); err != nil {
			log.Printf("[agent] Initial discover cycle failed: %v", err)
		}
	}()

	log.Printf("[agent] Main loop started — tick every %s", loopInterval)
	for {
		panicked := a.safeTick(ctx)

		sleep := loopInterval
		if panicked {
			sleep = loopBackoff
		}
		select {
		case <-ctx.Done():
			log.Println("[agent] Stop signal observed — main loop exiting")
			a.notifier.Notify(context.WithoutCancel(ctx), "Job Agent Stopped",
				"Your job application agent has been stopped.", "shutdown")
			return
		case <-time.After(sleep):
		}
	}
}

// safeTick contains any panic escaping the tick dispatch itself.
func (a *Agent) safeTick(ctx context.Context) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] Tick panicked: %v — backing off %s", r, loopBackoff)
			panicked = true
		}
	}()

	a.sched.Tick(ctx, time.Now())
	return false
}
