package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/agent-service/internal/config"
	"jobpilot/agent-service/internal/letter"
	"jobpilot/agent-service/internal/match"
	"jobpilot/agent-service/internal/model"
	"jobpilot/agent-service/internal/notify"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]model.Job
	order     []string
	apps      []model.Application
	stats     map[string][2]int
	upsertErr map[string]error
	listErr   error
	statsErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      make(map[string]model.Job),
		stats:     make(map[string][2]int),
		upsertErr: make(map[string]error),
	}
}

func (f *fakeStore) UpsertJob(_ context.Context, job model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErr[job.Key]; err != nil {
		return err
	}
	if _, exists := f.jobs[job.Key]; !exists {
		f.order = append(f.order, job.Key)
	}
	f.jobs[job.Key] = job
	return nil
}

func (f *fakeStore) ListJobs(_ context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Job
	for _, key := range f.order {
		job := f.jobs[key]
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) RecordApplication(_ context.Context, app model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[app.JobKey]; !ok {
		return errors.New("unknown job key")
	}
	f.apps = append(f.apps, app)
	return nil
}

func (f *fakeStore) TransitionJob(_ context.Context, key string, from, to model.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[key]
	if !ok || job.Status != from {
		return errors.New("not found")
	}
	if !model.CanTransition(from, to) {
		return fmt.Errorf("transition %s → %s is not allowed", from, to)
	}
	job.Status = to
	f.jobs[key] = job
	return nil
}

func (f *fakeStore) UpsertDailyStats(_ context.Context, date string, found, sent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return f.statsErr
	}
	f.stats[date] = [2]int{found, sent}
	return nil
}

func (f *fakeStore) statusCount(status model.JobStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, job := range f.jobs {
		if job.Status == status {
			n++
		}
	}
	return n
}

type fakeSearcher struct {
	offers []model.Job
}

func (f *fakeSearcher) Search(context.Context, []string, string, string) []model.Job {
	return f.offers
}

type fakeGenerator struct {
	art *letter.Artifact
	err error
}

func (f *fakeGenerator) Generate(context.Context, model.Job) (*letter.Artifact, error) {
	return f.art, f.err
}

type fakeSubmitter struct {
	ok      bool
	err     error
	perJob  map[string]bool
	submits []string
}

func (f *fakeSubmitter) Submit(_ context.Context, job model.Job, _ letter.Artifact) (bool, error) {
	f.submits = append(f.submits, job.Key)
	if f.perJob != nil {
		if ok, found := f.perJob[job.Key]; found {
			return ok, nil
		}
	}
	return f.ok, f.err
}

// ── Helpers ────────────────────────────────────────────────────────────────

func testConfig(maxPerDay int) *config.Config {
	return &config.Config{
		Profile: config.Profile{
			ExperienceYears:    1,
			PreferredLocations: []string{"Pune", "Remote"},
			PrimaryTitles:      []string{"java developer", "backend developer"},
			SecondaryTitles:    []string{"developer"},
			NegativeTitles:     []string{"senior", "lead"},
			PrimarySkills:      []string{"java", "spring boot", "spring framework"},
			SecondarySkills:    []string{"rest api", "microservices", "spring security", "mvc"},
			TertiarySkills:     []string{"sql"},
			BonusSkills:        []string{"docker"},
		},
		Search: config.Search{
			Keywords:         []string{"java developer"},
			ExcludedKeywords: []string{"Senior"},
			Location:         "India",
			MatchThreshold:   0.6,
			MaxPerDay:        maxPerDay,
			ApplicationDelay: 0,
		},
	}
}

func newTestAgent(cfg *config.Config, st *fakeStore, search *fakeSearcher, gen *fakeGenerator, sub *fakeSubmitter) *Agent {
	return New(cfg, st, search, match.NewEngine(cfg.Profile), gen, sub, notify.Nop{})
}

func strongOffer(n int) model.Job {
	url := fmt.Sprintf("https://example.com/jobs/%d", n)
	return model.Job{
		Key:            model.JobKey("adzuna", url),
		Title:          "Java Developer",
		Company:        "Acme",
		Location:       "Remote",
		Description:    "java spring boot spring framework rest api microservices spring security mvc",
		ExperienceText: "0-2 years",
		Source:         "adzuna",
		SourceURL:      url,
	}
}

func discoveredJob(n int) model.Job {
	job := strongOffer(n)
	job.Status = model.JobDiscovered
	return job
}

// ── DiscoverCycle ──────────────────────────────────────────────────────────

func TestDiscoverCycle_AcceptsAboveThresholdOnly(t *testing.T) {
	weak := model.Job{
		Key:       model.JobKey("adzuna", "https://example.com/jobs/weak"),
		Title:     "Accountant",
		Location:  "Berlin",
		Source:    "adzuna",
		SourceURL: "https://example.com/jobs/weak",
	}

	st := newFakeStore()
	a := newTestAgent(testConfig(50), st,
		&fakeSearcher{offers: []model.Job{strongOffer(1), weak, strongOffer(2)}},
		&fakeGenerator{}, &fakeSubmitter{})

	require.NoError(t, a.DiscoverCycle(context.Background()))

	assert.Len(t, st.jobs, 2, "only offers at or above the threshold are persisted")
	assert.NotContains(t, st.jobs, weak.Key)
	assert.Equal(t, 2, a.TodayStats().JobsFoundToday)

	for _, job := range st.jobs {
		assert.Equal(t, model.JobDiscovered, job.Status)
		assert.GreaterOrEqual(t, job.MatchScore, 0.6)
	}
}

func TestDiscoverCycle_ExclusionFilterRunsBeforeScoring(t *testing.T) {
	excluded := strongOffer(1)
	excluded.Title = "Senior Java Developer" // strong match otherwise

	st := newFakeStore()
	a := newTestAgent(testConfig(50), st,
		&fakeSearcher{offers: []model.Job{excluded, strongOffer(2)}},
		&fakeGenerator{}, &fakeSubmitter{})

	require.NoError(t, a.DiscoverCycle(context.Background()))

	assert.Len(t, st.jobs, 1)
	assert.NotContains(t, st.jobs, excluded.Key)
	assert.Equal(t, 1, a.TodayStats().JobsFoundToday)
}

// A storage failure for one offer must not lose the rest of the batch.
func TestDiscoverCycle_UpsertFailureIsIsolated(t *testing.T) {
	st := newFakeStore()
	broken := strongOffer(2)
	st.upsertErr[broken.Key] = errors.New("disk full")

	a := newTestAgent(testConfig(50), st,
		&fakeSearcher{offers: []model.Job{strongOffer(1), broken, strongOffer(3)}},
		&fakeGenerator{}, &fakeSubmitter{})

	require.NoError(t, a.DiscoverCycle(context.Background()))

	assert.Len(t, st.jobs, 2)
	assert.Equal(t, 2, a.TodayStats().JobsFoundToday, "failed upsert is not counted as found")
}

func TestDiscoverCycle_ReingestOverwritesScore(t *testing.T) {
	st := newFakeStore()
	offer := strongOffer(1)
	a := newTestAgent(testConfig(50), st,
		&fakeSearcher{offers: []model.Job{offer}}, &fakeGenerator{}, &fakeSubmitter{})

	require.NoError(t, a.DiscoverCycle(context.Background()))
	first := st.jobs[offer.Key].MatchScore

	// The posting text changed upstream; the same key must end up with the
	// new score and still exactly one row.
	changed := offer
	changed.Description = "java spring boot"
	a.sources = &fakeSearcher{offers: []model.Job{changed}}

	require.NoError(t, a.DiscoverCycle(context.Background()))
	require.Len(t, st.jobs, 1)
	assert.NotEqual(t, first, st.jobs[offer.Key].MatchScore)
}

// ── ApplyCycle ─────────────────────────────────────────────────────────────

func TestApplyCycle_HappyPath(t *testing.T) {
	st := newFakeStore()
	for i := 1; i <= 2; i++ {
		require.NoError(t, st.UpsertJob(context.Background(), discoveredJob(i)))
	}

	sub := &fakeSubmitter{ok: true}
	a := newTestAgent(testConfig(50), st, &fakeSearcher{},
		&fakeGenerator{art: &letter.Artifact{Text: "letter", Path: "/tmp/l.txt"}}, sub)

	require.NoError(t, a.ApplyCycle(context.Background()))

	assert.Equal(t, 2, st.statusCount(model.JobApplied))
	require.Len(t, st.apps, 2)
	for _, app := range st.apps {
		assert.Equal(t, model.AppSubmitted, app.Status)
		assert.Equal(t, "/tmp/l.txt", app.CoverLetterPath)
		assert.NotEmpty(t, app.ID)
	}
	assert.Equal(t, 2, a.TodayStats().ApplicationsSentToday)
}

// With a daily cap of 2 and five eligible jobs, at most two submissions
// happen and the remainder stays untouched.
func TestApplyCycle_RespectsDailyCap(t *testing.T) {
	st := newFakeStore()
	for i := 1; i <= 5; i++ {
		require.NoError(t, st.UpsertJob(context.Background(), discoveredJob(i)))
	}

	sub := &fakeSubmitter{ok: true}
	a := newTestAgent(testConfig(2), st, &fakeSearcher{},
		&fakeGenerator{art: &letter.Artifact{Text: "letter", Path: "/tmp/l.txt"}}, sub)

	require.NoError(t, a.ApplyCycle(context.Background()))

	assert.Len(t, sub.submits, 2)
	assert.Equal(t, 2, st.statusCount(model.JobApplied))
	assert.Equal(t, 3, st.statusCount(model.JobDiscovered), "jobs beyond the cap stay untouched")
	assert.Equal(t, 2, a.TodayStats().ApplicationsSentToday)

	// The next cycle under the same cap does nothing at all.
	require.NoError(t, a.ApplyCycle(context.Background()))
	assert.Len(t, sub.submits, 2)
}

// A failed submission routes to manual review with no application row.
func TestApplyCycle_SubmissionFailureGoesToManualReview(t *testing.T) {
	st := newFakeStore()
	good, bad := discoveredJob(1), discoveredJob(2)
	require.NoError(t, st.UpsertJob(context.Background(), good))
	require.NoError(t, st.UpsertJob(context.Background(), bad))

	sub := &fakeSubmitter{ok: true, perJob: map[string]bool{bad.Key: false}}
	a := newTestAgent(testConfig(50), st, &fakeSearcher{},
		&fakeGenerator{art: &letter.Artifact{Text: "letter", Path: "/tmp/l.txt"}}, sub)

	require.NoError(t, a.ApplyCycle(context.Background()))

	assert.Equal(t, model.JobApplied, st.jobs[good.Key].Status)
	assert.Equal(t, model.JobManualReview, st.jobs[bad.Key].Status)
	require.Len(t, st.apps, 1, "no application row for the failed submission")
	assert.Equal(t, good.Key, st.apps[0].JobKey)
	assert.Equal(t, 1, a.TodayStats().ApplicationsSentToday)
}

// A generator that produces nothing also means manual review.
func TestApplyCycle_NoArtifactGoesToManualReview(t *testing.T) {
	st := newFakeStore()
	job := discoveredJob(1)
	require.NoError(t, st.UpsertJob(context.Background(), job))

	sub := &fakeSubmitter{ok: true}
	a := newTestAgent(testConfig(50), st, &fakeSearcher{}, &fakeGenerator{art: nil}, sub)

	require.NoError(t, a.ApplyCycle(context.Background()))

	assert.Equal(t, model.JobManualReview, st.jobs[job.Key].Status)
	assert.Empty(t, sub.submits, "nothing is submitted without an artifact")
	assert.Empty(t, st.apps)
}

// A store read failure surfaces as a task error so the scheduler retries.
func TestApplyCycle_ListFailurePropagates(t *testing.T) {
	st := newFakeStore()
	st.listErr = errors.New("connection refused")

	a := newTestAgent(testConfig(50), st, &fakeSearcher{}, &fakeGenerator{}, &fakeSubmitter{})
	assert.Error(t, a.ApplyCycle(context.Background()))
}

// ── DailyRollup ────────────────────────────────────────────────────────────

func TestDailyRollup_FlushesAndResets(t *testing.T) {
	st := newFakeStore()
	a := newTestAgent(testConfig(50), st,
		&fakeSearcher{offers: []model.Job{strongOffer(1), strongOffer(2)}},
		&fakeGenerator{art: &letter.Artifact{Text: "letter"}}, &fakeSubmitter{ok: true})

	require.NoError(t, a.DiscoverCycle(context.Background()))
	require.NoError(t, a.ApplyCycle(context.Background()))
	require.NoError(t, a.DailyRollup(context.Background()))

	require.Len(t, st.stats, 1)
	for _, counts := range st.stats {
		assert.Equal(t, [2]int{2, 2}, counts)
	}

	stats := a.TodayStats()
	assert.Zero(t, stats.JobsFoundToday)
	assert.Zero(t, stats.ApplicationsSentToday)
}

// When the flush fails the counters must survive for the retry.
func TestDailyRollup_FailureKeepsCounters(t *testing.T) {
	st := newFakeStore()
	st.statsErr = errors.New("connection refused")

	a := newTestAgent(testConfig(50), st,
		&fakeSearcher{offers: []model.Job{strongOffer(1)}},
		&fakeGenerator{}, &fakeSubmitter{})

	require.NoError(t, a.DiscoverCycle(context.Background()))
	require.Error(t, a.DailyRollup(context.Background()))
	assert.Equal(t, 1, a.TodayStats().JobsFoundToday)
}
