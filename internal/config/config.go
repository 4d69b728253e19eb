package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration. Engine settings are fixed at
// construction time; everything else drives the CLI collaborators.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Outlier scorer
	IsolationForestThreshold float64 `env:"ISOLATION_FOREST_THRESHOLD" envDefault:"0.6"`
	AutoencoderThreshold     float64 `env:"AUTOENCODER_THRESHOLD" envDefault:"0.7"`
	IsolationTrees           int     `env:"ISOLATION_TREES" envDefault:"100"`

	// Graph analyzer
	CycleMaxLength     int     `env:"CYCLE_MAX_LENGTH" envDefault:"5"`
	AmountTolerance    float64 `env:"AMOUNT_TOLERANCE" envDefault:"0.2"`
	ConcentrationSigma float64 `env:"CONCENTRATION_SIGMA" envDefault:"2.5"`

	// Analyzer CLI selection
	ItemID       string  `env:"ITEM_ID" envDefault:"-"`
	VendorID     string  `env:"VENDOR_ID" envDefault:"-"`
	AnnualVolume float64 `env:"ANNUAL_VOLUME" envDefault:"0"`
	HistoryLimit int     `env:"HISTORY_LIMIT" envDefault:"365"`

	// Price feed collaborator
	FeedURL        string `env:"FEED_URL" envDefault:"-"`
	FeedAPIKey     string `env:"FEED_API_KEY" envDefault:"-"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds

	// Database collaborator
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"-"`
	DBName     string `env:"DB_NAME" envDefault:"procurement"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Load initializes configuration from environment variables and validates it.
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Config{
		LogLevel:                 getEnvWithDefault("LOG_LEVEL", "info"),
		IsolationForestThreshold: getEnvFloatWithDefault("ISOLATION_FOREST_THRESHOLD", 0.6),
		AutoencoderThreshold:     getEnvFloatWithDefault("AUTOENCODER_THRESHOLD", 0.7),
		IsolationTrees:           getEnvIntWithDefault("ISOLATION_TREES", 100),
		CycleMaxLength:           getEnvIntWithDefault("CYCLE_MAX_LENGTH", 5),
		AmountTolerance:          getEnvFloatWithDefault("AMOUNT_TOLERANCE", 0.2),
		ConcentrationSigma:       getEnvFloatWithDefault("CONCENTRATION_SIGMA", 2.5),
		ItemID:                   os.Getenv("ITEM_ID"),
		VendorID:                 os.Getenv("VENDOR_ID"),
		AnnualVolume:             getEnvFloatWithDefault("ANNUAL_VOLUME", 0),
		HistoryLimit:             getEnvIntWithDefault("HISTORY_LIMIT", 365),
		FeedURL:                  os.Getenv("FEED_URL"),
		FeedAPIKey:               os.Getenv("FEED_API_KEY"),
		RequestTimeout:           getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		DBHost:                   getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:                   getEnvWithDefault("DB_PORT", "5432"),
		DBUser:                   getEnvWithDefault("DB_USER", "postgres"),
		DBPassword:               os.Getenv("DB_PASSWORD"),
		DBName:                   getEnvWithDefault("DB_NAME", "procurement"),
		DBSSLMode:                getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects invalid engine settings eagerly, before any analysis runs.
func (c *Config) Validate() error {
	if c.IsolationForestThreshold < 0 {
		return fmt.Errorf("ISOLATION_FOREST_THRESHOLD must be non-negative, got %v", c.IsolationForestThreshold)
	}
	if c.AutoencoderThreshold < 0 {
		return fmt.Errorf("AUTOENCODER_THRESHOLD must be non-negative, got %v", c.AutoencoderThreshold)
	}
	if c.IsolationTrees < 0 {
		return fmt.Errorf("ISOLATION_TREES must be non-negative, got %d", c.IsolationTrees)
	}
	if c.CycleMaxLength < 2 {
		return fmt.Errorf("CYCLE_MAX_LENGTH must be at least 2, got %d", c.CycleMaxLength)
	}
	if c.AmountTolerance < 0 {
		return fmt.Errorf("AMOUNT_TOLERANCE must be non-negative, got %v", c.AmountTolerance)
	}
	if c.ConcentrationSigma < 0 {
		return fmt.Errorf("CONCENTRATION_SIGMA must be non-negative, got %v", c.ConcentrationSigma)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must be non-negative, got %d", c.HistoryLimit)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
