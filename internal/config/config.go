// File: internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	// Store. DatabaseURL selects postgres; otherwise SQLitePath is used.
	DatabaseURL string
	SQLitePath  string

	// Generation backend. An empty key switches the service to echo-only mode.
	AIProvider   string
	AIAPIKey     string
	AIBaseURL    string
	AIModel      string
	AITimeout    time.Duration
	AIMaxRetries int

	RevealDelay time.Duration

	RedisAddr    string
	RedisChannel string

	RateLimitPerMinute int
	DefaultUserID      string
	AllowedOrigins     []string
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        env,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "chats.db"),
		AIProvider:         strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
		AIAPIKey:           firstNonEmpty(getEnv("AI_API_KEY", ""), getEnv("GEMINI_API_KEY", "")),
		AIBaseURL:          getEnv("AI_BASE_URL", ""),
		AIModel:            getEnv("AI_MODEL", "gemini-2.0-flash"),
		AITimeout:          getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		AIMaxRetries:       getEnvAsInt("AI_MAX_RETRIES", 1),
		RevealDelay:        getEnvAsDuration("REVEAL_DELAY", 20*time.Millisecond),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisChannel:       getEnv("REDIS_CHANNEL", "chat:reveal"),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
		DefaultUserID:      getEnv("DEFAULT_USER_ID", "local"),
		AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set in production; falling back to sqlite at", cfg.SQLitePath)
	}

	return cfg
}

// GenerationEnabled reports whether a backend credential is configured.
func (c *Config) GenerationEnabled() bool {
	return strings.TrimSpace(c.AIAPIKey) != ""
}

// IsProduction is true when ENV=production.
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration accepts Go duration strings ("250ms", "1m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil || d < 0 {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}

// getEnvAsList splits a comma-separated env var, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	strValue := getEnv(key, "")
	if strings.TrimSpace(strValue) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(strValue, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
