package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Market data
	FinnhubAPIKey       string
	FinnhubBaseURL      string
	QuoteRequestTimeout time.Duration

	// Dashboard refresh
	WatchlistPollInterval time.Duration
	AlertPollInterval     time.Duration
	SearchDebounce        time.Duration
	SearchCacheTTL        time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "stocktracker"),
		DBPassword: getEnv("DB_PASSWORD", "stocktracker"),
		DBName:     getEnv("DB_NAME", "stocktracker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
	}

	config.JWTExpirationDur = getDuration("JWT_EXPIRES_IN", 24*time.Hour)
	config.QuoteRequestTimeout = getDuration("QUOTE_REQUEST_TIMEOUT", 10*time.Second)
	config.WatchlistPollInterval = getDuration("WATCHLIST_POLL_INTERVAL", 30*time.Second)
	config.AlertPollInterval = getDuration("ALERT_POLL_INTERVAL", 30*time.Second)
	config.SearchDebounce = getDuration("SEARCH_DEBOUNCE", 300*time.Millisecond)
	config.SearchCacheTTL = getDuration("SEARCH_CACHE_TTL", time.Minute)

	if config.FinnhubAPIKey == "" {
		log.Println("Warning: FINNHUB_API_KEY is not set, quotes will be unavailable")
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a positive duration from the environment, falling back
// to defaultValue when the variable is unset or invalid.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
