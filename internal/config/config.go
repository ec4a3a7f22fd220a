package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rxguardian/internal/analysis"
	"rxguardian/internal/llm"
	"rxguardian/internal/logger"
)

// DefaultModelCandidates is the preference order used when probing for a model.
var DefaultModelCandidates = []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-3.5-turbo"}

type Config struct {
	// Model provider
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	ModelCandidates []string // probed in order when model selection is enabled
	LLMTimeout      time.Duration
	LLMTemperature  float32
	LLMMaxTokens    int

	// Rate limiting
	RateLimitPerMinute int
	RateLimitPerDay    int

	// HTTP server
	HTTPAddr     string
	MaxBodyBytes int64

	// Batch analysis
	BatchWorkers int

	// Google Cloud (OCR and Sheets)
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	GoogleSheetURL        string
	GoogleSheetWorksheet  string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. It does not require an
// API key; commands that talk to the model call RequireLLM.
func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		ModelCandidates:       parseListEnv("OPENAI_MODEL_CANDIDATES", DefaultModelCandidates),
		LLMTimeout:            time.Duration(parseIntEnv("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		LLMTemperature:        parseFloatEnv("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:          parseIntEnv("LLM_MAX_TOKENS", 4096),
		RateLimitPerMinute:    parseIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitPerDay:       parseIntEnv("RATE_LIMIT_PER_DAY", 1000),
		HTTPAddr:              getEnv("HTTP_ADDR", ":5000"),
		MaxBodyBytes:          int64(parseIntEnv("MAX_BODY_BYTES", 1<<20)),
		BatchWorkers:          parseIntEnv("BATCH_WORKERS", 4),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Analyses"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.RateLimitPerDay < c.RateLimitPerMinute {
		return fmt.Errorf("RATE_LIMIT_PER_DAY (%d) must not be below RATE_LIMIT_PER_MINUTE (%d)", c.RateLimitPerDay, c.RateLimitPerMinute)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers)
	}
	if c.OpenAIModel == "" {
		return fmt.Errorf("OPENAI_MODEL must not be empty")
	}
	return nil
}

// RequireLLM fails when the model provider cannot be reached for lack of credentials.
func (c *Config) RequireLLM() error {
	if c.OpenAIAPIKey == "" {
		return llm.ErrMissingAPIKey
	}
	return nil
}

// OCREnabled reports whether Google credentials are configured explicitly.
func (c *Config) OCREnabled() bool {
	return c.GoogleCredentialsFile != "" || c.GoogleCredentialsJSON != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetLLMConfig returns the model client configuration.
func (c *Config) GetLLMConfig() llm.Config {
	return llm.Config{
		APIKey:      c.OpenAIAPIKey,
		BaseURL:     c.OpenAIBaseURL,
		Model:       c.OpenAIModel,
		Temperature: c.LLMTemperature,
		MaxTokens:   c.LLMMaxTokens,
	}
}

// GetAnalysisConfig returns the analysis service configuration.
func (c *Config) GetAnalysisConfig() analysis.Config {
	return analysis.Config{Timeout: c.LLMTimeout}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func parseListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
