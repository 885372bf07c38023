package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey      string
	GeminiModel       string
	HTTPPort          string
	DatabaseURL       string
	CatalogPath       string
	SpecSheetPath     string
	SessionTTL        time.Duration
	StreamIdleTimeout time.Duration
	// Emphasis multipliers applied to the daily-distance and usage weights.
	// The two delivery modes historically used different values (web ×1,
	// chat ×2), so both stay configurable rather than being unified.
	EmphasisWeb  int
	EmphasisChat int
	Environment  string
}

func Load() (*Config, error) {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "car_advisor.db"),
		CatalogPath:       getEnv("CATALOG_PATH", "data/catalog.json"),
		SpecSheetPath:     getEnv("SPEC_SHEET_PATH", "data/car_specs.txt"),
		SessionTTL:        time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		StreamIdleTimeout: time.Duration(getEnvAsInt("STREAM_IDLE_TIMEOUT_SECONDS", 30)) * time.Second,
		EmphasisWeb:       getEnvAsInt("EMPHASIS_WEB", 1),
		EmphasisChat:      getEnvAsInt("EMPHASIS_CHAT", 2),
		Environment:       getEnv("ENVIRONMENT", "development"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if cfg.EmphasisWeb < 1 || cfg.EmphasisChat < 1 {
		return nil, fmt.Errorf("emphasis multipliers must be positive, got EMPHASIS_WEB=%d EMPHASIS_CHAT=%d",
			cfg.EmphasisWeb, cfg.EmphasisChat)
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
