// Package config loads application settings from the environment and
// resolves scenario definitions from built-ins or YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"

	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/internal/errors"
)

// AppName is the application name used for XDG directory paths.
const AppName = "latenteq"

// Report formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// Config represents the complete application configuration
type Config struct {
	Logging LoggingConfig
	Run     RunConfig
	Archive ArchiveConfig
	Report  ReportConfig
	Server  ServerConfig
}

// LoggingConfig holds structured logging settings
type LoggingConfig struct {
	Level string // debug, info, warn or error
}

// RunConfig holds study run defaults, overridable per command
type RunConfig struct {
	Scenario string
	// Seed and N override the scenario's own defaults when nonzero.
	Seed int64
	N    int
	REML bool
	// Workers bounds concurrent replications.
	Workers int
}

// ArchiveConfig holds the optional study archive settings
type ArchiveConfig struct {
	Enabled bool
	Path    string
}

// ReportConfig holds report rendering settings
type ReportConfig struct {
	Format string
	Output string // file path, empty for stdout
}

// ServerConfig holds the report preview server settings
type ServerConfig struct {
	Addr string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LATENTEQ_LOG_LEVEL", "info"),
		},
		Run: RunConfig{
			Scenario: getEnvOrDefault("LATENTEQ_SCENARIO", model.ScenarioRandomIntercept),
			Seed:     getEnvInt64OrDefault("LATENTEQ_SEED", 0),
			N:        getEnvIntOrDefault("LATENTEQ_N", 0),
			REML:     getEnvBoolOrDefault("LATENTEQ_REML", false),
			Workers:  getEnvIntOrDefault("LATENTEQ_WORKERS", 4),
		},
		Archive: ArchiveConfig{
			Enabled: getEnvBoolOrDefault("LATENTEQ_ARCHIVE", false),
			Path:    getEnvOrDefault("LATENTEQ_ARCHIVE_PATH", DefaultArchivePath()),
		},
		Report: ReportConfig{
			Format: getEnvOrDefault("LATENTEQ_REPORT_FORMAT", FormatMarkdown),
			Output: getEnvOrDefault("LATENTEQ_REPORT_OUTPUT", ""),
		},
		Server: ServerConfig{
			Addr: getEnvOrDefault("LATENTEQ_SERVER_ADDR", ":8080"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks the configuration, returning the first problem found
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}

	switch c.Report.Format {
	case FormatMarkdown, FormatHTML, FormatJSON:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown report format %q", c.Report.Format))
	}

	if c.Run.N < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("sample size override must not be negative, got %d", c.Run.N))
	}
	if c.Run.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("worker count must be at least 1, got %d", c.Run.Workers))
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return errors.ConfigInvalid("archive enabled but no path configured")
	}

	return nil
}

// XDGDataDir returns the XDG data directory for latenteq.
// On Linux: ~/.local/share/latenteq
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultArchivePath returns the default location of the study archive.
func DefaultArchivePath() string {
	return filepath.Join(XDGDataDir(), "studies.db")
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
