package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"filmarchive/internal/models"
	"filmarchive/internal/search"
)

type Config struct {
	Port              string
	DatabaseURL       string
	LibraryRoot       string
	SourceRollfilm    string // Scan output drop directory for roll film batches
	SourceSheetfilm   string // Scan output drop directory for sheet film batches
	CacheTTL          time.Duration
	AllowedOrigins    []string
	APIKeys           []string // API keys gating write endpoints (comma-separated)
	ScanWorkers       int
	RateLimitRPS      float64
	RateLimitBurst    int
	SearchUnknownMode search.UnknownFieldMode
	SkipProcessing    bool // Serve-only deployments without source directories mounted
}

// Load reads configuration from environment variables and .env file.
// It loads the .env file if present, then populates the Config struct.
// Returns an error if required configuration is missing.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	mode, err := search.ParseUnknownFieldMode(getEnv("SEARCH_UNKNOWN_FIELDS", "reject"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LibraryRoot:       getEnv("LIBRARY_ROOT", ""),
		SourceRollfilm:    getEnv("SOURCE_ROLLFILM", ""),
		SourceSheetfilm:   getEnv("SOURCE_SHEETFILM", ""),
		CacheTTL:          getDurationEnv("CACHE_TTL", 15*time.Minute),
		AllowedOrigins:    getList("ALLOWED_ORIGINS", []string{"*"}),
		APIKeys:           getList("API_KEYS", []string{}),
		ScanWorkers:       getIntEnv("SCAN_WORKERS", 4),
		RateLimitRPS:      getFloatEnv("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    getIntEnv("RATE_LIMIT_BURST", 20),
		SearchUnknownMode: mode,
		SkipProcessing:    getBoolEnv("SKIP_PROCESSING", false),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.LibraryRoot == "" {
		return fmt.Errorf("LIBRARY_ROOT is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.ScanWorkers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be positive")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive")
	}
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("API_KEYS is required (comma-separated list of API keys)")
	}
	return nil
}

// SourceDirs maps each configured film type to its scan drop directory.
func (c *Config) SourceDirs() map[models.FilmType]string {
	dirs := make(map[models.FilmType]string)
	if c.SourceRollfilm != "" {
		dirs[models.FilmTypeRoll] = c.SourceRollfilm
	}
	if c.SourceSheetfilm != "" {
		dirs[models.FilmTypeSheet] = c.SourceSheetfilm
	}
	return dirs
}

// Retrieves an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// Retrieves a duration from environment variable or returns a default value.
// It supports both time.Duration format (e.g., "10m", "12h") and integer minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

// Retrieves a comma-separated list from environment variable or returns a default value.
func getList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// Retrieves a boolean from environment variable or returns a default value.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Retrieves an integer from environment variable or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Retrieves a float from environment variable or returns a default value.
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
