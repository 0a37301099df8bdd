// Package config provides configuration management for the cash forecast tool.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Forecast ForecastConfig
	Workbook WorkbookConfig
	Debug    bool
}

// ForecastConfig represents file locations.
type ForecastConfig struct {
	Dir            string
	WorkbookPath   string
	SourcePatterns []string
	GroupsFile     string
	DBPath         string
}

// WorkbookConfig represents locked-workbook retry settings.
type WorkbookConfig struct {
	OpenAttempts int
	OpenDelay    time.Duration
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	attempts, err := parseIntEnv("FORECAST_OPEN_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	delay, err := parseDurationEnv("FORECAST_OPEN_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Forecast: ForecastConfig{
			Dir:            getEnvOrDefault("FORECAST_DIR", "."),
			WorkbookPath:   os.Getenv("FORECAST_WORKBOOK"),
			SourcePatterns: splitList(os.Getenv("FORECAST_SOURCE_PATTERNS")),
			GroupsFile:     os.Getenv("FORECAST_GROUPS_FILE"),
			DBPath:         os.Getenv("FORECAST_DB_PATH"),
		},
		Workbook: WorkbookConfig{
			OpenAttempts: attempts,
			OpenDelay:    delay,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "forecast":
			switch path[1] {
			case "dir":
				value = c.Forecast.Dir
			case "workbook":
				value = c.Forecast.WorkbookPath
			case "groupsFile":
				value = c.Forecast.GroupsFile
			case "dbPath":
				value = c.Forecast.DBPath
			case "sourcePatterns":
				value = strings.Join(c.Forecast.SourcePatterns, ",")
			}
		case "workbook":
			switch path[1] {
			case "openAttempts":
				if c.Workbook.OpenAttempts > 0 {
					value = "set"
				}
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("invalid positive integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
