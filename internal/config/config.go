package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the engine
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Azure Storage configuration (rule documents, idempotency claims, audit)
	StorageAccount    string
	RulesContainer    string
	ClaimsContainer   string
	AuditContainer    string
	UseMemoryBackends bool

	// Platform API (direct messages and public replies)
	PlatformAPIBaseURL string
	PlatformAPIToken   string

	// Outbound email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	// Text generation fallback
	GenerationBaseURL   string
	GenerationAPIKey    string
	GenerationModel     string
	GenerationTimeoutMS int

	// Evaluation policy
	MaxConcurrentRules int
	FirstMatchOnly     bool
	DefaultReply       string

	// Rate limiting (actions per workspace per window)
	RateLimitPerWindow  int
	RateLimitWindowSecs int

	// Time-trigger sweep
	SweepIntervalSecs int
	SweepWorkspaces   []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		StorageAccount:    getEnv("AZURE_STORAGE_ACCOUNT", ""),
		RulesContainer:    getEnv("AZURE_RULES_CONTAINER", "automation-rules"),
		ClaimsContainer:   getEnv("AZURE_CLAIMS_CONTAINER", "dispatch-claims"),
		AuditContainer:    getEnv("AZURE_AUDIT_CONTAINER", "audit-log"),
		UseMemoryBackends: getBoolEnv("USE_MEMORY_BACKENDS", false),

		PlatformAPIBaseURL: getEnv("PLATFORM_API_BASE_URL", ""),
		PlatformAPIToken:   getEnv("PLATFORM_API_TOKEN", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", ""),

		GenerationBaseURL:   getEnv("GENERATION_BASE_URL", "https://api.openai.com"),
		GenerationAPIKey:    getEnv("GENERATION_API_KEY", ""),
		GenerationModel:     getEnv("GENERATION_MODEL", "gpt-4o-mini"),
		GenerationTimeoutMS: getIntEnv("GENERATION_TIMEOUT_MS", 8000),

		MaxConcurrentRules: getIntEnv("MAX_CONCURRENT_RULES", 4),
		FirstMatchOnly:     getBoolEnv("FIRST_MATCH_ONLY", false),
		DefaultReply:       getEnv("DEFAULT_REPLY", "Thanks for reaching out! We'll get back to you shortly."),

		RateLimitPerWindow:  getIntEnv("RATE_LIMIT_PER_WINDOW", 0),
		RateLimitWindowSecs: getIntEnv("RATE_LIMIT_WINDOW_SECONDS", 3600),

		SweepIntervalSecs: getIntEnv("SWEEP_INTERVAL_SECONDS", 60),
		SweepWorkspaces:   getSliceEnv("SWEEP_WORKSPACES", nil),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !c.UseMemoryBackends && c.StorageAccount == "" {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required unless USE_MEMORY_BACKENDS is set")
	}

	if c.SMTPHost != "" {
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD are required when SMTP_HOST is set")
		}
	}

	if c.MaxConcurrentRules < 1 {
		return fmt.Errorf("MAX_CONCURRENT_RULES must be at least 1")
	}

	if c.RateLimitPerWindow > 0 && c.RateLimitWindowSecs < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be at least 1 when rate limiting is enabled")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
