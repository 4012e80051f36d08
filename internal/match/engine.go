// Package match scores job offers against a candidate profile.
//
// The engine is deterministic and side-effect free: the same job and
// profile always produce the same score. Four weighted factors make up the
// final score — title (0.3), skills (0.4), experience (0.2) and
// location (0.1) — each normalised to [0,1] before weighting.
package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"jobpilot/agent-service/internal/config"
	"jobpilot/agent-service/internal/model"
)

// Factor weights. They sum to 1.0.
const (
	titleWeight      = 0.3
	skillsWeight     = 0.4
	experienceWeight = 0.2
	locationWeight   = 0.1
)

// Skill-tier sub-weights, applied within the skills factor. Sum to 1.0.
const (
	primarySubWeight   = 0.4
	secondarySubWeight = 0.3
	tertiarySubWeight  = 0.2
	bonusSubWeight     = 0.1
)

// negativeTitlePenalty multiplies the title score when a seniority term
// appears. Penalty, not rejection.
const negativeTitlePenalty = 0.3

// entryLevelTerms mark a requirement as explicitly entry-level.
var entryLevelTerms = []string{"fresher", "entry level", "0-1", "0-2"}

// experiencePattern extracts "N years" or "N-M years" style requirements.
var experiencePattern = regexp.MustCompile(`(\d+)[-\s]*(\d+)?\s*years?`)

// Engine scores jobs against one candidate profile.
type Engine struct {
	profile config.Profile
}

// NewEngine returns an Engine for the given profile.
func NewEngine(profile config.Profile) *Engine {
	return &Engine{profile: profile}
}

// Score returns the weighted match score for job, clamped to [0,1].
func (e *Engine) Score(job model.Job) float64 {
	score := e.titleScore(job.Title)*titleWeight +
		e.skillsScore(job.Description+" "+job.Requirements)*skillsWeight +
		e.experienceScore(job.ExperienceText)*experienceWeight +
		e.locationScore(job.Location)*locationWeight

	return clamp01(score)
}

// Reasons returns human-readable qualitative notes derived from the factor
// sub-scores. Purely descriptive; it never influences Score.
func (e *Engine) Reasons(job model.Job) []string {
	var reasons []string

	titleScore := e.titleScore(job.Title)
	if titleScore > 0.7 {
		reasons = append(reasons, "Excellent job title match")
	} else if titleScore > 0.4 {
		reasons = append(reasons, "Good job title match")
	}

	skillsScore := e.skillsScore(job.Description + " " + job.Requirements)
	if skillsScore > 0.6 {
		reasons = append(reasons, "Strong skills alignment")
	} else if skillsScore > 0.3 {
		reasons = append(reasons, "Moderate skills match")
	}

	expScore := e.experienceScore(job.ExperienceText)
	if expScore > 0.8 {
		reasons = append(reasons, "Perfect experience level match")
	} else if expScore < 0.3 {
		reasons = append(reasons, "Experience requirements may be too high")
	}

	return reasons
}

// titleScore checks the lower-cased title against the ordered keyword
// tables: a primary hit yields 0.8, otherwise a secondary hit yields 0.6.
// Any negative (seniority) keyword multiplies the result by 0.3.
func (e *Engine) titleScore(title string) float64 {
	lower := strings.ToLower(title)

	score := 0.0
	for _, kw := range e.profile.PrimaryTitles {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score = 0.8
			break
		}
	}
	if score == 0 {
		for _, kw := range e.profile.SecondaryTitles {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score = 0.6
				break
			}
		}
	}

	for _, kw := range e.profile.NegativeTitles {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score *= negativeTitlePenalty
			break
		}
	}

	return score
}

// skillsScore checks the combined description/requirements text against the
// four skill tiers. Each tier contributes min(1, found/total) times its
// sub-weight.
func (e *Engine) skillsScore(text string) float64 {
	lower := strings.ToLower(text)

	tiers := []struct {
		skills    []string
		subWeight float64
	}{
		{e.profile.PrimarySkills, primarySubWeight},
		{e.profile.SecondarySkills, secondarySubWeight},
		{e.profile.TertiarySkills, tertiarySubWeight},
		{e.profile.BonusSkills, bonusSubWeight},
	}

	total := 0.0
	for _, tier := range tiers {
		if len(tier.skills) == 0 {
			continue
		}
		found := 0
		for _, skill := range tier.skills {
			if strings.Contains(lower, strings.ToLower(skill)) {
				found++
			}
		}
		if found > 0 {
			ratio := float64(found) / float64(len(tier.skills))
			if ratio > 1 {
				ratio = 1
			}
			total += ratio * tier.subWeight
		}
	}

	return total
}

// experienceScore compares the job's stated experience requirement to the
// candidate's years. No requirement text is neutral (0.5); an extracted
// range scores 1.0 inside, falling off by 0.2/year below the minimum and
// 0.1/year above the maximum.
func (e *Engine) experienceScore(experienceText string) float64 {
	if experienceText == "" {
		return 0.5
	}

	lower := strings.ToLower(experienceText)
	years := e.profile.ExperienceYears

	for _, term := range entryLevelTerms {
		if strings.Contains(lower, term) {
			if years <= 2 {
				return 1.0
			}
			return 0.3
		}
	}

	m := experiencePattern.FindStringSubmatch(lower)
	if m == nil {
		return 0.5
	}

	minExp, _ := strconv.Atoi(m[1])
	maxExp := minExp + 2 // single number implies a two-year window
	if m[2] != "" {
		maxExp, _ = strconv.Atoi(m[2])
	}

	switch {
	case years >= minExp && years <= maxExp:
		return 1.0
	case years < minExp:
		return clamp01(1.0 - float64(minExp-years)*0.2)
	default:
		return clamp01(1.0 - float64(years-maxExp)*0.1)
	}
}

// locationScore prefers remote and any configured location by substring
// match, case-insensitive. Unknown locations score low but nonzero.
func (e *Engine) locationScore(jobLocation string) float64 {
	if jobLocation == "" {
		return 0.5
	}

	lower := strings.ToLower(jobLocation)

	if strings.Contains(lower, "remote") {
		for _, loc := range e.profile.PreferredLocations {
			if loc == "Remote" {
				return 1.0
			}
		}
	}

	for _, loc := range e.profile.PreferredLocations {
		if strings.Contains(lower, strings.ToLower(loc)) {
			return 1.0
		}
	}

	return 0.2
}

// Explain formats the score and reasons for logging.
func (e *Engine) Explain(job model.Job) string {
	return fmt.Sprintf("%.2f [%s]", e.Score(job), strings.Join(e.Reasons(job), "; "))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
