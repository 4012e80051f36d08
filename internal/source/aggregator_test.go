package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/agent-service/internal/model"
)

// fakeConnector returns canned jobs or a canned error, optionally after a
// delay to simulate a slow board.
type fakeConnector struct {
	name  string
	jobs  []model.Job
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) Search(ctx context.Context, _ []string, _, _ string) ([]model.Job, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.jobs, f.err
}

func (f *fakeConnector) Details(context.Context, string) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func job(source, url string) model.Job {
	return model.Job{
		Key:       model.JobKey(source, url),
		Title:     "Java Developer",
		Source:    source,
		SourceURL: url,
	}
}

func TestSearch_ConcatenatesAllSources(t *testing.T) {
	a := NewAggregator(
		&fakeConnector{name: "one", jobs: []model.Job{job("one", "https://one/1"), job("one", "https://one/2")}},
		&fakeConnector{name: "two", jobs: []model.Job{job("two", "https://two/1")}},
	)

	got := a.Search(context.Background(), []string{"java"}, "India", "entry_level")
	require.Len(t, got, 3)
}

// One connector failing must not reduce or abort the others' results.
func TestSearch_IsolatesFailures(t *testing.T) {
	a := NewAggregator(
		&fakeConnector{name: "one", jobs: []model.Job{job("one", "https://one/1")}},
		&fakeConnector{name: "broken", err: errors.New("board is down")},
		&fakeConnector{name: "three", jobs: []model.Job{job("three", "https://three/1"), job("three", "https://three/2")}},
	)

	got := a.Search(context.Background(), []string{"java"}, "India", "")

	require.Len(t, got, 3, "union of the two healthy sources")
	sources := map[string]int{}
	for _, j := range got {
		sources[j.Source]++
	}
	assert.Equal(t, map[string]int{"one": 1, "three": 2}, sources)
}

func TestSearch_AllSourcesFailing(t *testing.T) {
	a := NewAggregator(
		&fakeConnector{name: "one", err: errors.New("down")},
		&fakeConnector{name: "two", err: errors.New("also down")},
	)

	got := a.Search(context.Background(), []string{"java"}, "India", "")
	assert.Empty(t, got)
}

// Source-internal order must survive the join.
func TestSearch_PreservesSourceInternalOrder(t *testing.T) {
	jobs := []model.Job{
		job("one", "https://one/a"),
		job("one", "https://one/b"),
		job("one", "https://one/c"),
	}
	a := NewAggregator(
		&fakeConnector{name: "one", jobs: jobs, delay: 10 * time.Millisecond},
		&fakeConnector{name: "two", jobs: []model.Job{job("two", "https://two/a")}},
	)

	got := a.Search(context.Background(), []string{"java"}, "India", "")
	require.Len(t, got, 4)

	var fromOne []string
	for _, j := range got {
		if j.Source == "one" {
			fromOne = append(fromOne, j.SourceURL)
		}
	}
	assert.Equal(t, []string{"https://one/a", "https://one/b", "https://one/c"}, fromOne)
}

// A slow connector delays the join but every connector is invoked
// concurrently, not sequentially.
func TestSearch_FansOutConcurrently(t *testing.T) {
	slow := 80 * time.Millisecond
	connectors := []*fakeConnector{
		{name: "one", delay: slow, jobs: []model.Job{job("one", "https://one/1")}},
		{name: "two", delay: slow, jobs: []model.Job{job("two", "https://two/1")}},
		{name: "three", delay: slow, jobs: []model.Job{job("three", "https://three/1")}},
	}
	a := NewAggregator(connectors[0], connectors[1], connectors[2])

	start := time.Now()
	got := a.Search(context.Background(), []string{"java"}, "India", "")
	elapsed := time.Since(start)

	require.Len(t, got, 3)
	assert.Less(t, elapsed, 3*slow, "three slow connectors should overlap, not serialize")
	for _, c := range connectors {
		assert.EqualValues(t, 1, c.calls.Load())
	}
}

func TestSearch_NoConnectors(t *testing.T) {
	a := NewAggregator()
	assert.Empty(t, a.Search(context.Background(), []string{"java"}, "India", ""))
}
