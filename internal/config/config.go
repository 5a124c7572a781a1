package config

import (
	"os"
	"strconv"

	"popxf/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Validator ValidatorConfig
	Scan      ScanConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds scan-ledger database settings. URL may be empty, in
// which case persistence is disabled.
type DatabaseConfig struct {
	URL string
}

// ValidatorConfig holds document validation settings
type ValidatorConfig struct {
	AcceptAnySchemaVersion bool
}

// ScanConfig holds parameter-scan settings
type ScanConfig struct {
	Workers int
}

// Load reads configuration from the environment with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("POPXF_PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("POPXF_DATABASE_URL"),
		},
		Validator: ValidatorConfig{
			AcceptAnySchemaVersion: getEnvBool("POPXF_ACCEPT_ANY_SCHEMA", false),
		},
		Scan: ScanConfig{
			Workers: getEnvInt("POPXF_SCAN_WORKERS", 4),
		},
	}
	if cfg.Scan.Workers < 0 {
		return nil, errors.ConfigInvalid("POPXF_SCAN_WORKERS must be >= 0")
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
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
