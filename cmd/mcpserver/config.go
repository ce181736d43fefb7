package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type config struct {
	AnthropicKey string
	WorkflowsDir string
	SessionDir   string
}

func loadConfig() (*config, error) {
	godotenv.Load()

	cfg := &config{
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		WorkflowsDir: getEnvOrDefault("WEAVE_WORKFLOWS_DIR", "."),
		SessionDir:   getEnvOrDefault("WEAVE_SESSION_DIR", "."),
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
