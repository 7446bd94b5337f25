package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service. Values are loaded
// from environment variables, with a .env file as a development convenience.
type Config struct {
	// HTTP
	Port string

	// Persistence
	DatabasePath string

	// Gmail credentials (OAuth client secret + cached token, JSON files)
	GmailCredentialsPath string
	GmailTokenPath       string

	// Extraction model
	ModelName string

	// Pipeline tuning
	DisplayCurrency string
	MaxMessages     int
	BatchSize       int
	BatchInterval   time.Duration
	LookbackDays    int
	BodyCharBudget  int

	LogLevel string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; in production values come from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabasePath:         getEnv("DATABASE_PATH", "mailspend.db"),
		GmailCredentialsPath: getEnv("GMAIL_CREDENTIALS_PATH", "client_secret.json"),
		GmailTokenPath:       getEnv("GMAIL_TOKEN_PATH", "token.json"),
		ModelName:            getEnv("MODEL_NAME", "gemini-2.5-flash"),
		DisplayCurrency:      getEnv("DISPLAY_CURRENCY", "USD"),
		MaxMessages:          getEnvInt("MAX_MESSAGES", 50),
		BatchSize:            getEnvInt("BATCH_SIZE", 5),
		BatchInterval:        getEnvDuration("BATCH_INTERVAL", 2*time.Second),
		LookbackDays:         getEnvInt("LOOKBACK_DAYS", 90),
		BodyCharBudget:       getEnvInt("BODY_CHAR_BUDGET", 3000),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("config: BATCH_SIZE must be >= 1, got %d", cfg.BatchSize)
	}
	if cfg.MaxMessages < 1 {
		return nil, fmt.Errorf("config: MAX_MESSAGES must be >= 1, got %d", cfg.MaxMessages)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
