// Package config loads the client configuration from the environment,
// including an optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gmartinez/chatcli/internal/store"
)

// ErrMissingAPIKey is returned when a command needs the completion API but no
// credential is configured.
var ErrMissingAPIKey = errors.New("completion API key is not configured")

// Defaults for the completion boundary.
const (
	DefaultBaseURL     = "https://api.groq.com/openai"
	DefaultModel       = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 8192
)

// Config is the constructed configuration passed to the store, the completion
// client and the CLI. It replaces any load-time global state: construction
// failures surface as errors from Load.
type Config struct {
	// Completion API boundary.
	APIBaseURL  string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	LLMTimeout  time.Duration

	// Streaming behavior.
	ChunkSize       int
	ShowUsage       bool
	ConfirmContinue bool

	// Storage boundary.
	Store store.Options

	// HTTP server (serve command).
	HTTPPort int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", DefaultBaseURL)
	v.SetDefault("DEFAULT_MODEL", DefaultModel)
	v.SetDefault("DEFAULT_TEMPERATURE", DefaultTemperature)
	v.SetDefault("DEFAULT_MAX_TOKENS", DefaultMaxTokens)
	v.SetDefault("LLM_TIMEOUT_MS", 120000)
	v.SetDefault("CHUNK_SIZE", 30)
	v.SetDefault("SHOW_USAGE", true)
	v.SetDefault("CONFIRM_CONTINUE", false)
	v.SetDefault("HTTP_PORT", 8080)

	v.SetDefault("DB_DRIVER", store.DriverPostgres)
	v.SetDefault("DB_PATH", "chatcli.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "chatuser")
	v.SetDefault("DB_PASSWORD", "chatpass")
	v.SetDefault("DB_NAME", "chatdb")

	cfg := &Config{
		APIBaseURL:      v.GetString("API_BASE_URL"),
		APIKey:          v.GetString("API_KEY"),
		Model:           v.GetString("DEFAULT_MODEL"),
		Temperature:     v.GetFloat64("DEFAULT_TEMPERATURE"),
		MaxTokens:       v.GetInt("DEFAULT_MAX_TOKENS"),
		LLMTimeout:      time.Duration(v.GetInt("LLM_TIMEOUT_MS")) * time.Millisecond,
		ChunkSize:       v.GetInt("CHUNK_SIZE"),
		ShowUsage:       v.GetBool("SHOW_USAGE"),
		ConfirmContinue: v.GetBool("CONFIRM_CONTINUE"),
		HTTPPort:        v.GetInt("HTTP_PORT"),
		Store: store.Options{
			Driver: v.GetString("DB_DRIVER"),
			Path:   v.GetString("DB_PATH"),
			Postgres: store.PostgresConfig{
				Host:     v.GetString("DB_HOST"),
				Port:     v.GetInt("DB_PORT"),
				User:     v.GetString("DB_USER"),
				Password: v.GetString("DB_PASSWORD"),
				Name:     v.GetString("DB_NAME"),
			},
		},
	}

	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return nil, fmt.Errorf("DEFAULT_TEMPERATURE must be within [0, 1], got %v", cfg.Temperature)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	return cfg, nil
}

// RequireAPIKey returns ErrMissingAPIKey when no credential is configured.
// Commands that talk to the completion API call this before connecting.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
