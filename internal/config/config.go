// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds server configuration
type Config struct {
	DatabaseURL  string // PostgreSQL connection string (users, portfolio)
	JWTSecret    string // HMAC secret for bearer tokens
	StockAPIKey  string // Market data provider API key
	StockAPIBase string // Market data provider base URL
	ModelBaseURL string // Prediction service base URL
	Port         int
	LogLevel     string
	DevMode      bool
}

// ClientConfig holds configuration for the terminal client.
type ClientConfig struct {
	APIBaseURL string // Server base URL, e.g. http://localhost:5000
	DataDir    string // Directory for the persistent cache store
	LogLevel   string
}

// Load reads server configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		StockAPIKey:  getEnv("STOCK_API_KEY", ""),
		StockAPIBase: getEnv("STOCK_API_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		ModelBaseURL: getEnv("MODEL_BASE_URL", "http://localhost:8000"),
		Port:         getEnvAsInt("PORT", 5000),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadClient reads client configuration from environment variables
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	dataDir := getEnv("TICKERDESK_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tickerdesk")
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &ClientConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:5000"),
		DataDir:    absDataDir,
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	// STOCK_API_KEY stays optional: market routes surface upstream errors without it
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
