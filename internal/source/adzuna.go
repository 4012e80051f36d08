package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobpilot/agent-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per keyword
	httpTimeout    = 15 * time.Second
)

// Adzuna fetches job offers from the Adzuna public API.
// If AppID or AppKey is empty, Search returns (nil, nil) gracefully — the
// discover cycle simply gets nothing from this source and logs a warning.
type Adzuna struct {
	AppID   string
	AppKey  string
	Country string // "in", "gb", "us", …
	client  *http.Client
}

// NewAdzuna constructs a connector with a shared HTTP client.
func NewAdzuna(appID, appKey, country string) *Adzuna {
	return &Adzuna{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Name implements Connector.
func (a *Adzuna) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Company     adzunaCompany  `json:"company"`
	Location    adzunaLocation `json:"location"`
	SalaryMin   float64        `json:"salary_min"`
	SalaryMax   float64        `json:"salary_max"`
	RedirectURL string         `json:"redirect_url"`
	Created     string         `json:"created"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Search implements Connector. It runs one paged query per keyword and
// normalises listings into model.Job with the natural key precomputed.
// The experience hint is not supported by the Adzuna search API.
func (a *Adzuna) Search(ctx context.Context, keywords []string, location, _ string) ([]model.Job, error) {
	if a.AppID == "" || a.AppKey == "" {
		log.Println("[adzuna] ADZUNA_APP_ID / ADZUNA_APP_KEY not set — skipping source")
		return nil, nil
	}

	var jobs []model.Job
	for _, keyword := range keywords {
		for page := 1; page <= adzunaMaxPages; page++ {
			batch, err := a.fetchPage(ctx, keyword, location, page)
			if err != nil {
				return jobs, fmt.Errorf("keyword %q page %d: %w", keyword, page, err)
			}
			if len(batch) == 0 {
				break // no more results
			}
			jobs = append(jobs, batch...)
			if len(batch) < adzunaPageSize {
				break // last page
			}
		}
	}

	return jobs, nil
}

// Details implements Connector. Adzuna search listings already carry the
// full description, so this re-queries nothing and reports unsupported.
func (a *Adzuna) Details(ctx context.Context, jobURL string) (*model.Job, error) {
	return nil, fmt.Errorf("adzuna: detail extraction not supported for %s", jobURL)
}

func (a *Adzuna) fetchPage(ctx context.Context, keyword, location string, page int) ([]model.Job, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", adzunaBaseURL, a.Country, page)

	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", keyword)
	params.Set("where", location)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	reqURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]model.Job, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		sourceURL := r.RedirectURL
		if sourceURL == "" {
			sourceURL = fmt.Sprintf("adzuna:%s", r.ID)
		}
		jobs = append(jobs, model.Job{
			Key:         model.JobKey(a.Name(), sourceURL),
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			SalaryRange: formatSalary(r.SalaryMin, r.SalaryMax),
			PostedDate:  r.Created,
			Source:      a.Name(),
			SourceURL:   sourceURL,
			Status:      model.JobDiscovered,
		})
	}

	return jobs, nil
}

// formatSalary renders the Adzuna numeric range as the free-text form the
// rest of the system stores.
func formatSalary(min, max float64) string {
	if min == 0 && max == 0 {
		return ""
	}
	parts := make([]string, 0, 2)
	if min > 0 {
		parts = append(parts, strconv.FormatFloat(min, 'f', 0, 64))
	}
	if max > 0 && max != min {
		parts = append(parts, strconv.FormatFloat(max, 'f', 0, 64))
	}
	return strings.Join(parts, "-")
}
