package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// config holds the CLI's configuration loaded from environment variables.
type config struct {
	LogLevel     string
	AnthropicKey string
	Model        string
	MaxRounds    int
}

// loadConfig loads configuration from environment variables, loading a .env
// file first if one is present (silent fail if not found).
func loadConfig() (*config, error) {
	godotenv.Load()

	cfg := &config{
		LogLevel:     getEnvOrDefault("WEAVE_LOG_LEVEL", "info"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:        os.Getenv("WEAVE_MODEL"),
		MaxRounds:    getEnvIntOrDefault("WEAVE_MAX_ROUNDS", 0),
	}

	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
