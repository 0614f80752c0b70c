package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	AuthJWTSecret      string
	CORSAllowedOrigins []string

	GeminiAPIKey  string
	GeminiModelID string
	OpenAIAPIKey  string
	OpenAIModelID string

	MemUBaseURL string
	MemUAPIKey  string
	MemUTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	TranscriptTTL time.Duration

	ArchiveBuffer  int
	ArchiveWorkers int

	ChatRateLimit float64
	ChatRateBurst int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModelID: getEnv("OPENAI_MODEL_ID", "gpt-4o-mini"),

		MemUBaseURL: getEnv("MEMU_BASE_URL", "https://api.memu.so"),
		MemUAPIKey:  getEnv("MEMU_API_KEY", ""),
		MemUTimeout: getEnvAsDuration("MEMU_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		TranscriptTTL: getEnvAsDuration("TRANSCRIPT_TTL", 30*24*time.Hour),

		ArchiveBuffer:  getEnvAsInt("ARCHIVE_BUFFER", 256),
		ArchiveWorkers: getEnvAsInt("ARCHIVE_WORKERS", 2),

		ChatRateLimit: getEnvAsFloat("CHAT_RATE_LIMIT", 2),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
