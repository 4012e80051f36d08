// Package config loads and validates runtime configuration at startup.
// Values come from the environment, optionally seeded from a .env file.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Profile describes the candidate the agent searches and applies on behalf of.
type Profile struct {
	Name               string
	Email              string
	ExperienceYears    int
	PreferredLocations []string

	// Title keyword tables for the match engine.
	PrimaryTitles   []string
	SecondaryTitles []string
	NegativeTitles  []string

	// Skill tiers, strongest first. Tier sub-weights are fixed in the
	// match engine; only the vocabulary is configurable.
	PrimarySkills   []string
	SecondarySkills []string
	TertiarySkills  []string
	BonusSkills     []string
}

// Search holds discovery and application pacing parameters.
type Search struct {
	Keywords         []string
	ExcludedKeywords []string
	Location         string
	ExperienceLevel  string // hint forwarded to connectors, e.g. "entry_level"

	MatchThreshold    float64
	MaxPerDay         int
	ApplicationDelay  time.Duration
	DiscoverInterval  time.Duration
	ApplyInterval     time.Duration
	RollupHour        int
	RollupMinute      int
}

// Config holds all runtime configuration for the agent service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Base64-encoded 32-byte vault key. Empty disables the vault.
	VaultKey string

	OllamaBaseURL string
	OllamaModel   string
	DataDir       string
	OutboxDir     string

	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string

	Profile Profile
	Search  Search
}

// Load reads environment variables and returns a validated Config.
// A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	// Best-effort: absence of .env is the normal production case.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	maxPerDay, err := getenvInt("MAX_APPLICATIONS_PER_DAY", 50)
	if err != nil {
		return nil, err
	}
	expYears, err := getenvInt("EXPERIENCE_YEARS", 1)
	if err != nil {
		return nil, err
	}
	discoverMin, err := getenvInt("DISCOVER_INTERVAL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	applyMin, err := getenvInt("APPLY_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	delaySec, err := getenvInt("APPLICATION_DELAY_SECONDS", 120)
	if err != nil {
		return nil, err
	}
	rollupHour, err := getenvInt("ROLLUP_HOUR", 23)
	if err != nil {
		return nil, err
	}
	rollupMinute, err := getenvInt("ROLLUP_MINUTE", 59)
	if err != nil {
		return nil, err
	}

	threshold := 0.6
	if s := os.Getenv("MATCH_THRESHOLD"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("MATCH_THRESHOLD must be in [0,1], got %q", s)
		}
		threshold = v
	}

	dataDir := getenv("DATA_DIR", "data")

	cfg := &Config{
		Port:        getenv("AGENT_PORT", "8080"),
		DatabaseURL: dbURL,
		RedisURL:    redisURL,
		VaultKey:    os.Getenv("VAULT_KEY"),

		OllamaBaseURL: getenv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getenv("OLLAMA_MODEL", "llama3.2:3b"),
		DataDir:       dataDir,
		OutboxDir:     getenv("OUTBOX_DIR", dataDir+"/outbox"),

		AdzunaAppID:   os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:  os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry: getenv("ADZUNA_COUNTRY", "in"),

		Profile: Profile{
			Name:            getenv("USER_NAME", "Java Developer"),
			Email:           getenv("USER_EMAIL", "developer@example.com"),
			ExperienceYears: expYears,
			PreferredLocations: getenvCSV("PREFERRED_LOCATIONS", []string{
				"Mumbai", "Delhi", "Bangalore", "Hyderabad", "Chennai", "Pune", "Remote",
			}),
			PrimaryTitles: getenvCSV("PRIMARY_TITLES", []string{
				"java developer", "backend developer", "software engineer",
				"java backend", "spring developer", "full stack developer",
			}),
			SecondaryTitles: getenvCSV("SECONDARY_TITLES", []string{
				"software developer", "application developer", "systems engineer",
				"programmer", "developer", "engineer",
			}),
			NegativeTitles: getenvCSV("NEGATIVE_TITLES", []string{
				"senior", "lead", "principal", "architect", "manager",
				"director", "head", "vp", "chief",
			}),
			PrimarySkills: getenvCSV("PRIMARY_SKILLS", []string{
				"java", "spring boot", "spring framework",
			}),
			SecondarySkills: getenvCSV("SECONDARY_SKILLS", []string{
				"rest api", "microservices", "spring security", "mvc",
			}),
			TertiarySkills: getenvCSV("TERTIARY_SKILLS", []string{
				"mysql", "postgresql", "sql", "git", "maven", "gradle",
			}),
			BonusSkills: getenvCSV("BONUS_SKILLS", []string{
				"junit", "hibernate", "redis", "kafka", "docker",
			}),
		},

		Search: Search{
			Keywords: getenvCSV("SEARCH_KEYWORDS", []string{
				"Java Developer", "Backend Developer", "Spring Boot Developer",
			}),
			ExcludedKeywords: getenvCSV("EXCLUDED_KEYWORDS", []string{
				"Senior", "Lead", "Manager", "Architect", "Principal",
			}),
			Location:        getenv("SEARCH_LOCATION", "India"),
			ExperienceLevel: getenv("SEARCH_EXPERIENCE_LEVEL", "entry_level"),

			MatchThreshold:   threshold,
			MaxPerDay:        maxPerDay,
			ApplicationDelay: time.Duration(delaySec) * time.Second,
			DiscoverInterval: time.Duration(discoverMin) * time.Minute,
			ApplyInterval:    time.Duration(applyMin) * time.Minute,
			RollupHour:       rollupHour,
			RollupMinute:     rollupMinute,
		},
	}

	if cfg.Search.RollupHour < 0 || cfg.Search.RollupHour > 23 ||
		cfg.Search.RollupMinute < 0 || cfg.Search.RollupMinute > 59 {
		return nil, fmt.Errorf("ROLLUP_HOUR/ROLLUP_MINUTE out of range: %02d:%02d",
			cfg.Search.RollupHour, cfg.Search.RollupMinute)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}
	return v, nil
}

func getenvCSV(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
