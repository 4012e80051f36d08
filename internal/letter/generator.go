// Package letter produces the per-job cover letter artifact used when
// submitting an application.
package letter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobpilot/agent-service/internal/config"
	"jobpilot/agent-service/internal/model"
)

// Artifact is one generated cover letter, persisted to disk so the
// submission record can reference it.
type Artifact struct {
	Text string
	Path string
}

// Generator is the generation collaborator the agent depends on.
// Implementations may return (nil, nil) when no usable letter could be
// produced; the agent then routes the job to manual review.
type Generator interface {
	Generate(ctx context.Context, job model.Job) (*Artifact, error)
}

// professionalTemplate is the offline fallback used when the model backend
// is unreachable.
const professionalTemplate = `Dear Hiring Manager,

I am writing to express my strong interest in the %s position at %s.
With %d years of experience in backend development, I am excited about the
opportunity to contribute to your team.

My technical skills include: %s.

I would welcome the opportunity to discuss how my skills can contribute to
your team's success.

Best regards,
%s`

// renderTemplate fills the fallback template from the profile and job.
func renderTemplate(profile config.Profile, job model.Job) string {
	skills := append(append([]string{}, profile.PrimarySkills...), profile.SecondarySkills...)
	company := job.Company
	if company == "" {
		company = "your company"
	}
	return fmt.Sprintf(professionalTemplate,
		job.Title, company, profile.ExperienceYears,
		strings.Join(skills, ", "), profile.Name)
}

// saveArtifact writes the letter under dir and returns its path.
// File name embeds the job key and a timestamp so repeat generations for
// the same job never clobber each other.
func saveArtifact(dir, jobKey, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("letter: create dir %s: %w", dir, err)
	}
	short := jobKey
	if len(short) > 12 {
		short = short[:12]
	}
	path := filepath.Join(dir, fmt.Sprintf("cover_letter_%s_%d.txt", short, time.Now().Unix()))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("letter: write %s: %w", path, err)
	}
	return path, nil
}
