package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port         string
	GeminiAPIKey string
	GeminiModel  string
	LogLevel     string
	AppEnv       string

	// RoomTTL of zero means rooms are kept for the process lifetime.
	RoomTTL time.Duration

	SuggestRate  float64
	SuggestBurst int
}

// Load reads configuration from a .env file (if present) and the
// environment. Every value has a default; nothing is required to start.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         os.Getenv("PORT"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		AppEnv:       os.Getenv("APP_ENV"),
		SuggestRate:  1,
		SuggestBurst: 5,
	}

	if cfg.Port == "" {
		cfg.Port = "4000"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	if v := os.Getenv("ROOM_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl < 0 {
			logrus.Warnf("Invalid ROOM_TTL %q, keeping rooms forever", v)
		} else {
			cfg.RoomTTL = ttl
		}
	}

	if v := os.Getenv("SUGGEST_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil && rate > 0 {
			cfg.SuggestRate = rate
		}
	}
	if v := os.Getenv("SUGGEST_BURST"); v != "" {
		if burst, err := strconv.Atoi(v); err == nil && burst > 0 {
			cfg.SuggestBurst = burst
		}
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL %q, using 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg
}
