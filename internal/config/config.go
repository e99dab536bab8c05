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
	Port string
	Env  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Evolution API (WhatsApp gateway)
	EvolutionURL      string
	EvolutionAPIKey   string
	EvolutionInstance string

	// Deploy webhook
	DeploySecret string

	// Cache
	CacheTTL         time.Duration
	CacheSettleDelay time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		EvolutionURL:      getEnv("EVOLUTION_API_URL", ""),
		EvolutionAPIKey:   getEnv("EVOLUTION_API_KEY", ""),
		EvolutionInstance: getEnv("EVOLUTION_INSTANCE", "granafacil"),

		DeploySecret: getEnv("DEPLOY_SECRET", ""),

		CacheTTL:         getDurationEnv("CACHE_TTL", 5*time.Minute),
		CacheSettleDelay: getDurationEnv("CACHE_SETTLE_DELAY", 500*time.Millisecond),
	}

	// Parse JWT expiration duration
	config.JWTExpirationDur = getDurationEnv("JWT_EXPIRES_IN", 24*time.Hour)

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

// getDurationEnv parses a duration environment variable, falling back to
// the default on absence or parse failure.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, value, defaultValue)
		return defaultValue
	}
	return dur
}
