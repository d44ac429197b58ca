// internal/config/config.go
//
// Process configuration read from the environment (after .env loading in main).
// Every key has a default so the server starts with an empty environment;
// scoring calls then fail until an API key is configured.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/wortkunst/internal/game"
	"github.com/robalobadob/wortkunst/internal/scoring"
)

// ArchiveOff disables the SQLite archive when used as ARCHIVE_DSN.
const ArchiveOff = "off"

// Config is the full server configuration.
type Config struct {
	Port         string
	LogLevel     string
	ClientOrigin string

	DefaultProvider string
	MaxConcurrent   int
	LLMTimeout      time.Duration
	Mistral         scoring.Backend
	OpenAI          scoring.Backend
	Anthropic       scoring.Backend

	EndPenaltyPerTile int
	ArchiveDSN        string

	AdminJWTSecret string
	PublicBaseURL  string
}

// Load reads the configuration from the process environment.
func Load() Config {
	return Config{
		Port:         getEnv("PORT", "3008"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "*"),

		DefaultProvider: strings.ToLower(getEnv("LLM_PROVIDER", scoring.KeyMistral)),
		MaxConcurrent:   envInt("CONCURRENT_LLM_REQUESTS", scoring.DefaultMaxConcurrent),
		LLMTimeout:      time.Duration(envInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		Mistral: scoring.Backend{
			URL:    getEnv("MISTRAL_API_URL", "https://api.mistral.ai/v1/chat/completions"),
			APIKey: os.Getenv("MISTRAL_API_KEY"),
			Model:  getEnv("MISTRAL_MODEL", "mistral-large-latest"),
		},
		OpenAI: scoring.Backend{
			URL:    getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Anthropic: scoring.Backend{
			URL:    getEnv("ANTHROPIC_API_URL", "https://api.anthropic.com/v1/messages"),
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		},

		EndPenaltyPerTile: envInt("END_PENALTY_PER_TILE", game.DefaultEndPenaltyPerTile),
		ArchiveDSN:        getEnv("ARCHIVE_DSN", "./data/wortkunst.db"),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		PublicBaseURL:  strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
	}
}

// Catalog builds the provider catalog from the backend settings.
func (c Config) Catalog() *scoring.Catalog {
	return scoring.NewCatalog(c.DefaultProvider,
		scoring.Mistral{Backend: c.Mistral},
		scoring.OpenAI{Backend: c.OpenAI},
		scoring.Anthropic{Backend: c.Anthropic},
	)
}

// ArchiveEnabled reports whether finished games should be archived.
func (c Config) ArchiveEnabled() bool {
	return c.ArchiveDSN != "" && !strings.EqualFold(c.ArchiveDSN, ArchiveOff)
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as a positive integer, falling back to def.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}
