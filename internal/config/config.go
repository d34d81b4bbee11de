// Package config reads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port  int
	Debug bool

	// Database. Empty DatabaseURL switches to the SQLite local store.
	DatabaseURL string
	SQLitePath  string

	// RabbitMQ. Empty disables the async generation queue.
	RabbitMQURL string

	// LLM providers
	DefaultProvider string // gemini, claude, openai
	GeminiAPIKey    string
	GeminiModel     string
	ClaudeAPIKey    string
	ClaudeModel     string
	OpenAIAPIKey    string
	OpenAIModel     string

	// Resilience
	LLMMaxAttempts   int
	LLMRatePerSecond float64

	// GitHub OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string

	// Workspace
	LearningPath     string   // directory of learning content packs
	EnvAllowList     []string // keys exposed through the env gate
	SnapshotInterval int      // seconds
	SnapshotDebounce int      // seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Debug:       getEnvBool("DEBUG", false),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "kiln.db"),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		DefaultProvider: getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ClaudeAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		LLMMaxAttempts:   getEnvInt("LLM_MAX_ATTEMPTS", 3),
		LLMRatePerSecond: getEnvFloat("LLM_RATE_PER_SECOND", 2),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubRedirectURL:  getEnv("GITHUB_REDIRECT_URL", ""),

		LearningPath:     getEnv("LEARNING_PATH", "./learning"),
		EnvAllowList:     getEnvList("ENV_ALLOW_LIST", []string{"WORKSPACE_THEME", "EDITOR_FONT"}),
		SnapshotInterval: getEnvInt("SNAPSHOT_INTERVAL", 10),
		SnapshotDebounce: getEnvInt("SNAPSHOT_DEBOUNCE", 30),
	}

	if cfg.GeminiAPIKey == "" && cfg.ClaudeAPIKey == "" && cfg.OpenAIAPIKey == "" && !cfg.Debug {
		return nil, fmt.Errorf("at least one provider API key must be set")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
