package source

import (
	"context"
	"log"
	"sync"

	"jobpilot/agent-service/internal/model"
)

// Aggregator fans a search out to all registered connectors concurrently
// and concatenates the successful results. One connector failing is logged
// and discarded; it never reduces or aborts the others' contribution.
type Aggregator struct {
	connectors []Connector
}

// NewAggregator returns an Aggregator over the given connectors.
func NewAggregator(connectors ...Connector) *Aggregator {
	return &Aggregator{connectors: connectors}
}

// Connectors returns the registered connectors.
func (a *Aggregator) Connectors() []Connector { return a.connectors }

// Search queries every connector in parallel with the same parameters and
// joins the results. Order across sources is not guaranteed; order within
// one source is preserved. No dedup happens here — the store's key-based
// upsert handles that.
func (a *Aggregator) Search(ctx context.Context, keywords []string, location, experience string) []model.Job {
	results := make([][]model.Job, len(a.connectors))

	var wg sync.WaitGroup
	for i, c := range a.connectors {
		wg.Add(1)
		go func(i int, c Connector) {
			defer wg.Done()
			jobs, err := c.Search(ctx, keywords, location, experience)
			if err != nil {
				log.Printf("[aggregator] %s search failed: %v — continuing without it", c.Name(), err)
				return
			}
			log.Printf("[aggregator] %s: %d offer(s)", c.Name(), len(jobs))
			results[i] = jobs
		}(i, c)
	}
	wg.Wait()

	var all []model.Job
	for _, jobs := range results {
		all = append(all, jobs...)
	}

	log.Printf("[aggregator] %d offer(s) across %d source(s)", len(all), len(a.connectors))
	return all
}
