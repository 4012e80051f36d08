// Package apply performs the external submission step for one job.
//
// The default implementation is an outbox hand-off: the job and its cover
// letter are staged as a bundle on disk for whatever delivery mechanism
// (or human) drains the outbox. Portal-specific automated submission can be
// plugged in behind the same Submitter interface.
package apply

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"jobpilot/agent-service/internal/letter"
	"jobpilot/agent-service/internal/model"
)

// Submitter executes one submission attempt. The boolean reports whether
// the submission went through; false without an error means the job needs
// manual handling.
type Submitter interface {
	Submit(ctx context.Context, job model.Job, art letter.Artifact) (bool, error)
}

// Bundle is the staged shape of one outbox entry.
type Bundle struct {
	ID              string    `json:"id"`
	Job             model.Job `json:"job"`
	CoverLetterPath string    `json:"coverLetterPath"`
	CoverLetter     string    `json:"coverLetter"`
	StagedAt        time.Time `json:"stagedAt"`
}

// Outbox stages application bundles under a directory.
type Outbox struct {
	dir string
}

// NewOutbox returns an Outbox writing under dir.
func NewOutbox(dir string) *Outbox {
	return &Outbox{dir: dir}
}

// Submit implements Submitter. Staging the bundle successfully counts as a
// submitted application; any filesystem failure reports (false, err) and
// the caller routes the job to manual review.
func (o *Outbox) Submit(_ context.Context, job model.Job, art letter.Artifact) (bool, error) {
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return false, fmt.Errorf("outbox: create dir %s: %w", o.dir, err)
	}

	bundle := Bundle{
		ID:              uuid.NewString(),
		Job:             job,
		CoverLetterPath: art.Path,
		CoverLetter:     art.Text,
		StagedAt:        time.Now().UTC(),
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return false, fmt.Errorf("outbox: marshal bundle: %w", err)
	}

	path := filepath.Join(o.dir, bundle.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("outbox: write %s: %w", path, err)
	}

	return true, nil
}
