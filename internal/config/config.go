package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string
	Timezone string

	// Gemini API
	GeminiAPIKey      string
	GeminiAPIEndpoint string // if set, overrides default Gemini API base URL (e.g. http://host.docker.internal:31300/gemini)
	GeminiModelText   string // structured poster text, e.g. gemini-2.5-flash
	GeminiModelImage  string // layout image, e.g. gemini-2.5-flash-image
	GeminiTextBackend string // genai (schema-constrained) or langchain

	// Poster defaults
	DefaultTopic string
	DefaultGrade string

	// Sessions
	SessionTTL   time.Duration
	CookieSecure bool
}

// LoadDotEnv loads variables from path (default .env) into the process environment.
// A missing file is not an error; variables already set are not overridden.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TZ", "Asia/Shanghai"),

		// API_KEY is accepted for compatibility with existing .env files
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelText:   getEnv("GEMINI_MODEL_TEXT", "gemini-2.5-flash"),
		GeminiModelImage:  getEnv("GEMINI_MODEL_IMAGE", "gemini-2.5-flash-image"),
		GeminiTextBackend: getEnv("GEMINI_TEXT_BACKEND", "genai"),

		DefaultTopic: getEnv("DEFAULT_TOPIC", "宪法在我心中"),
		DefaultGrade: getEnv("DEFAULT_GRADE", "初中"),

		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),
	}
}

// Location returns the configured timezone, falling back to UTC when TZ is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("tz", c.Timezone).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
