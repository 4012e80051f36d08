package letter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"jobpilot/agent-service/internal/config"
	"jobpilot/agent-service/internal/model"
)

const ollamaTimeout = 60 * time.Second

// OllamaGenerator produces cover letters through a local Ollama instance.
// When the model backend fails it falls back to the static template rather
// than returning nothing — a worse letter still beats a skipped job.
type OllamaGenerator struct {
	baseURL string
	model   string
	profile config.Profile
	dir     string
	client  *http.Client
}

// NewOllamaGenerator constructs a generator writing artifacts under dir.
func NewOllamaGenerator(baseURL, model string, profile config.Profile, dir string) *OllamaGenerator {
	return &OllamaGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		profile: profile,
		dir:     dir,
		client:  &http.Client{Timeout: ollamaTimeout},
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, job model.Job) (*Artifact, error) {
	text, err := g.callOllama(ctx, g.buildPrompt(job))
	if err != nil {
		log.Printf("[letter] Ollama failed (%v) — using template fallback", err)
		text = renderTemplate(g.profile, job)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	path, err := saveArtifact(g.dir, job.Key, text)
	if err != nil {
		return nil, err
	}
	return &Artifact{Text: text, Path: path}, nil
}

// buildPrompt assembles the generation prompt from job and profile.
// Long descriptions are truncated — the model only needs the gist.
func (g *OllamaGenerator) buildPrompt(job model.Job) string {
	skills := append(append([]string{}, g.profile.PrimarySkills...), g.profile.SecondarySkills...)
	return fmt.Sprintf(`Write a professional cover letter for a backend developer position.

Job Details:
- Position: %s
- Company: %s
- Job Description: %s
- Requirements: %s

Candidate Profile:
- Name: %s
- Experience: %d years
- Skills: %s

Requirements:
1. Keep it professional and concise (250-300 words)
2. Highlight relevant backend skills
3. Mention 2-3 key technical skills that match the job requirements
4. End with a call to action

Please write only the cover letter content, no additional text or formatting.`,
		job.Title, job.Company, truncate(job.Description, 500), truncate(job.Requirements, 300),
		g.profile.Name, g.profile.ExperienceYears, strings.Join(skills, ", "))
}

func (g *OllamaGenerator) callOllama(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.7,
			TopP:        0.9,
			NumPredict:  1000,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(body))
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("json unmarshal: %w", err)
	}
	return out.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
