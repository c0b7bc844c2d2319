// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the API server.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Providers     ProvidersConfig
	LLM           LLMConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port               string
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type AuthConfig struct {
	// ShareTokenSecret signs trip share capability tokens.
	ShareTokenSecret string
}

type ProvidersConfig struct {
	// PlacesAPIKey is required; the structured search fan-out cannot run
	// without it.
	PlacesAPIKey  string
	PlacesBaseURL string

	// WebSearchAPIKey is optional; when empty the enrichment pass is skipped.
	WebSearchAPIKey  string
	WebSearchBaseURL string
}

type LLMConfig struct {
	// GeminiAPIKey is optional; when empty ranking is deterministic.
	GeminiAPIKey string
	Model        string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// Load reads configuration from the environment. Required values missing
// from the environment produce an error naming the variable.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "roamplan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			ShareTokenSecret: os.Getenv("SHARE_TOKEN_SECRET"),
		},
		Providers: ProvidersConfig{
			PlacesAPIKey:     os.Getenv("PLACES_API_KEY"),
			PlacesBaseURL:    os.Getenv("PLACES_BASE_URL"),
			WebSearchAPIKey:  os.Getenv("WEB_SEARCH_API_KEY"),
			WebSearchBaseURL: getEnv("WEB_SEARCH_BASE_URL", "https://api.websearch.example.com"),
		},
		LLM: LLMConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		},
	}

	if cfg.Providers.PlacesAPIKey == "" {
		return nil, fmt.Errorf("PLACES_API_KEY is required")
	}
	if cfg.Auth.ShareTokenSecret == "" {
		return nil, fmt.Errorf("SHARE_TOKEN_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
