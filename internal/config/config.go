// Package config loads runtime configuration from the environment. A .env
// file in the working directory is honoured for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	AwardsDir   string
	TokenTTL    time.Duration

	LogLevel  string
	LogFormat string

	RateLimitRPS   int
	RateLimitBurst int
	CORSOrigins    []string
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("HABITD_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      getenv("JWT_SECRET", "dev-secret-change-me"),
		AwardsDir:      getenv("AWARDS_DIR", "assets/awards"),
		TokenTTL:       getDuration("TOKEN_TTL", 7*24*time.Hour),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		RateLimitRPS:   getInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 40),
		CORSOrigins:    splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
