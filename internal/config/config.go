package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port        int
	Host        string
	Environment string
	DatabaseURL string

	CORSOrigins []string

	// FSRSWeightsPath and SchedulingPolicyPath point at the optional
	// file-backed overlays WeightsPreset/SchedulingPolicy load from; empty
	// means "use the published/built-in defaults".
	FSRSWeightsPath     string
	SchedulingPolicyPath string
}

// Load reads configuration from environment variables. A .env file in the
// working directory, if present, is loaded first so local development
// doesn't require exporting vars by hand; missing .env is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnvAsInt("PORT", 5000),
		Host:        getEnv("HOST", "0.0.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: getEnv("DATABASE_URL", "./data/tunetrees.db"),
		CORSOrigins: []string{
			getEnv("CORS_ORIGIN", "*"),
		},
		FSRSWeightsPath:      getEnv("FSRS_WEIGHTS_PATH", ""),
		SchedulingPolicyPath: getEnv("SCHEDULING_POLICY_PATH", ""),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be 1-65535, got %d", cfg.Port)
	}

	return cfg, nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves environment variable as integer or returns default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsStaging returns true if running in staging mode
func (c *Config) IsStaging() bool {
	return c.Environment == "staging"
}
