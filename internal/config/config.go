// Package config reads process configuration from the environment.
// Every binary calls the loader it needs at startup; missing required
// values fail fast there instead of deep in a request.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
}

type BotConfig struct {
	DatabaseURL string
	CycleEvery  time.Duration
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPI() (APIConfig, error) {
	cfg := APIConfig{
		Addr:        envDefault("POCKETBANK_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	// PORT wins over POCKETBANK_ADDR so PaaS-style deploys just work.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Addr = ":" + port
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadBot() (BotConfig, error) {
	cycleEvery, err := envDurationDefault("POCKETBANK_BOT_CYCLE_EVERY", 30*time.Second)
	if err != nil {
		return BotConfig{}, err
	}
	cfg := BotConfig{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CycleEvery:  cycleEvery,
		RunOnce:     envBool("POCKETBANK_BOT_RUN_ONCE"),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CycleEvery <= 0 {
		return cfg, fmt.Errorf("POCKETBANK_BOT_CYCLE_EVERY must be positive")
	}
	return cfg, nil
}

func LoadCLI() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("POCKETBANK_API_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDurationDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
