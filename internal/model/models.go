// Package model defines the shared data structures for the agent service.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// Job is a discovered job offer normalised from one of the source boards.
// The natural key (Key) deduplicates re-ingested offers across runs.
type Job struct {
	Key            string    `json:"key"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	Description    string    `json:"description"`
	Requirements   string    `json:"requirements"`
	SalaryRange    string    `json:"salaryRange,omitempty"`
	ExperienceText string    `json:"experienceText,omitempty"`
	PostedDate     string    `json:"postedDate,omitempty"`
	Source         string    `json:"source"`
	SourceURL      string    `json:"sourceUrl"`
	MatchScore     float64   `json:"matchScore"`
	Status         JobStatus `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Application records one submission attempt against a Job.
// Rows are append-only: discovery never touches them.
type Application struct {
	ID                 string            `json:"id"`
	JobKey             string            `json:"jobKey"`
	Status             ApplicationStatus `json:"status"`
	CoverLetterPath    string            `json:"coverLetterPath,omitempty"`
	AppliedAt          time.Time         `json:"appliedAt"`
	ResponseReceivedAt *time.Time        `json:"responseReceivedAt,omitempty"`
	ResponseStatus     string            `json:"responseStatus,omitempty"`
	Notes              string            `json:"notes,omitempty"`
}

// Credential is the plaintext view of a stored per-source credential.
// It only ever exists in memory — the store holds ciphertext.
type Credential struct {
	Source   string
	Username string
	Password string
	Extra    string
}

// DailyStat is one row of the per-day rollup.
type DailyStat struct {
	Date             string `json:"date"` // YYYY-MM-DD
	JobsFound        int    `json:"jobsFound"`
	ApplicationsSent int    `json:"applicationsSent"`
}

// JobKey derives the content-stable natural key for a job: a SHA-256 digest
// of the source name and the normalised source URL. Unlike a runtime hash it
// is identical across process restarts and implementations.
func JobKey(source, rawURL string) string {
	h := sha256.Sum256([]byte(source + "\n" + NormalizeURL(rawURL)))
	return hex.EncodeToString(h[:])
}

// NormalizeURL lowercases the scheme and host, trims whitespace and drops a
// trailing slash so that trivially different spellings of the same offer URL
// hash to the same key. Unparseable input falls back to trimmed lowercase.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(trimmed), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""
	return u.String()
}
