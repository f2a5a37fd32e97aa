package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Port string

	// Embedding provider
	GeminiAPIKey   string
	EmbedRateLimit int
	EmbedRateWindow time.Duration

	// Catalog store; empty DatabaseURL selects the in-memory store
	DatabaseURL string

	// Metadata provider
	TMDbAPIKey string

	// Admin auth
	AdminJWTSecret string

	// Search tunables
	SearchThreshold float64
	SearchLimit     int

	// Seeding
	SeedDelay time.Duration
	SeedPages int
}

// Load reads configuration from environment variables. Optional values fall
// back to defaults; required values are checked by the Validate methods below
// so that the server and the seeder can each demand only what they use.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		EmbedRateLimit:  getEnvInt("EMBED_RATE_LIMIT", 30),
		EmbedRateWindow: getEnvDuration("EMBED_RATE_WINDOW", 60*time.Second),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		TMDbAPIKey:      os.Getenv("TMDB_API_KEY"),
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
		SearchThreshold: getEnvFloat("SEARCH_THRESHOLD", 0.1),
		SearchLimit:     getEnvInt("SEARCH_LIMIT", 10),
		SeedDelay:       getEnvDuration("SEED_DELAY", 2200*time.Millisecond),
		SeedPages:       getEnvInt("SEED_PAGES", 5),
	}
}

// ValidateServer checks the configuration required to serve requests.
func (c *Config) ValidateServer() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("configuration error: GEMINI_API_KEY is not set")
	}
	if c.TMDbAPIKey == "" {
		return fmt.Errorf("configuration error: TMDB_API_KEY is not set")
	}
	return nil
}

// ValidateSeeder checks the configuration required for a seeding run.
func (c *Config) ValidateSeeder() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("configuration error: GEMINI_API_KEY is not set")
	}
	if c.TMDbAPIKey == "" {
		return fmt.Errorf("configuration error: TMDB_API_KEY is not set")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("configuration error: DATABASE_URL is not set")
	}
	return nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a valid integer, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a valid number, using default %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a valid duration, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
