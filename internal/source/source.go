// Package source defines the job-board connector capability and the
// aggregator that fans a search out across every registered connector.
package source

import (
	"context"

	"jobpilot/agent-service/internal/model"
)

// Connector is the capability one job board must provide. Implementations
// own all site-specific extraction, pagination and timeout concerns; the
// aggregator only depends on this shape.
type Connector interface {
	// Name identifies the source, e.g. "adzuna". Used for logging and as
	// the source component of the job natural key.
	Name() string

	// Search returns raw job offers for the given keywords and location.
	// The experience hint (e.g. "entry_level") may be ignored by boards
	// that cannot filter on it.
	Search(ctx context.Context, keywords []string, location, experience string) ([]model.Job, error)

	// Details fetches the full posting behind url, filling fields the
	// search listing omitted.
	Details(ctx context.Context, url string) (*model.Job, error)
}
