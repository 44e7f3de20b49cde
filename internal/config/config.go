// ABOUTME: Centralized configuration for the RFP response generator
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the generation pipeline
type Config struct {
	// Provider settings
	OpenAIKey        string
	OpenAIModel      string
	DeepSeekKey      string
	DeepSeekModel    string
	DeepSeekBaseURL  string
	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	// Embedding settings
	EmbeddingModel  string
	VectorDimension int

	// Call behavior
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Retrieval settings. GenerationFloor is the strict anti-hallucination
	// floor applied before any content reaches a prompt; DisplayFloor is the
	// looser floor used only for "similar questions" display. They are
	// independent knobs and must never be conflated.
	RetrievalK      int
	GenerationFloor float64
	DisplayFloor    float64

	// Output discipline
	PrimaryWordBudget    int
	RefinementWordBudget int

	// Storage
	DBPath string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("RFP_OPENAI_MODEL", "gpt-4o"),
		DeepSeekKey:      os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:    getEnv("RFP_DEEPSEEK_MODEL", "deepseek-chat"),
		DeepSeekBaseURL:  getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getEnv("RFP_ANTHROPIC_MODEL", "claude-3-7-sonnet-20250219"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),

		EmbeddingModel:  getEnv("RFP_EMBEDDING_MODEL", "text-embedding-3-small"),
		VectorDimension: getEnvInt("VECTOR_DIMENSION", 1536),

		Timeout:    getEnvDuration("RFP_PROVIDER_TIMEOUT", 90*time.Second),
		MaxRetries: getEnvInt("RFP_MAX_RETRIES", 3),
		RetryDelay: getEnvDuration("RFP_RETRY_DELAY", 2*time.Second),

		RetrievalK:      getEnvInt("RFP_RETRIEVAL_K", 5),
		GenerationFloor: getEnvFloat("RFP_GENERATION_FLOOR", 0.90),
		DisplayFloor:    getEnvFloat("RFP_DISPLAY_FLOOR", 0.50),

		PrimaryWordBudget:    getEnvInt("RFP_WORD_BUDGET", 200),
		RefinementWordBudget: getEnvInt("RFP_REFINEMENT_WORD_BUDGET", 80),

		DBPath: os.Getenv("RFP_DB_PATH"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.GenerationFloor < 0 || c.GenerationFloor > 1 {
		return fmt.Errorf("RFP_GENERATION_FLOOR must be 0-1, got %f", c.GenerationFloor)
	}
	if c.DisplayFloor < 0 || c.DisplayFloor > 1 {
		return fmt.Errorf("RFP_DISPLAY_FLOOR must be 0-1, got %f", c.DisplayFloor)
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("RFP_RETRIEVAL_K must be positive, got %d", c.RetrievalK)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("RFP_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("VECTOR_DIMENSION must be positive, got %d", c.VectorDimension)
	}
	if c.PrimaryWordBudget <= 0 || c.RefinementWordBudget <= 0 {
		return fmt.Errorf("word budgets must be positive, got %d/%d", c.PrimaryWordBudget, c.RefinementWordBudget)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
