// Package config loads application configuration from file and environment
// through viper.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/verkkograph/verkko/pkg/store"
)

// Config holds all configuration for the application.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`

	// Traversal configuration
	Traversal TraversalConfig `mapstructure:"traversal"`

	// Match configuration
	Match MatchConfig `mapstructure:"match"`

	// CircuitBreaker configuration
	CircuitBreaker store.BreakerConfig `mapstructure:"circuit_breaker"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	NoColor bool   `mapstructure:"no_color"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig holds graph store configuration.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"` // memory, badger, postgres, neo4j
	Path     string `mapstructure:"path"`    // badger data directory
	DSN      string `mapstructure:"dsn"`     // postgres connection string
	URI      string `mapstructure:"uri"`     // neo4j bolt URI
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// TraversalConfig bounds traversal operations.
type TraversalConfig struct {
	MaxDepth   int `mapstructure:"max_depth"`
	MaxVisited int `mapstructure:"max_visited"`
}

// MatchConfig holds fuzzy-lookup defaults.
type MatchConfig struct {
	Threshold  float64 `mapstructure:"threshold"`
	MaxResults int     `mapstructure:"max_results"`
}

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ParquetPath string `mapstructure:"parquet_path"`
}

// AlertConfig holds configuration for operator alerting.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Load loads configuration from viper's current state, then applies defaults
// and environment overrides.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

// StoreConfig translates the store section into the store package's form.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend:  store.Backend(c.Store.Backend),
		Path:     c.Store.Path,
		DSN:      c.Store.DSN,
		URI:      c.Store.URI,
		Username: c.Store.Username,
		Password: c.Store.Password,
		Database: c.Store.Database,
	}
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.no_color", false)

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Store defaults
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.path", "./verkko_data")
	viper.SetDefault("store.uri", "bolt://localhost:7687")
	viper.SetDefault("store.username", "")
	viper.SetDefault("store.password", "")
	viper.SetDefault("store.database", "")

	// Traversal defaults
	viper.SetDefault("traversal.max_depth", 3)
	viper.SetDefault("traversal.max_visited", 10000)

	// Match defaults
	viper.SetDefault("match.threshold", 0.3)
	viper.SetDefault("match.max_results", 10)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval_seconds", 60)
	viper.SetDefault("circuit_breaker.timeout_seconds", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Alert defaults
	viper.SetDefault("alert.enabled", false)
	viper.SetDefault("alert.smtp_port", 587)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.verkko/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables.
func overrideWithEnv(config *Config) {
	if level := os.Getenv("VERKKO_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}

	// Store settings
	if backend := os.Getenv("VERKKO_STORE_BACKEND"); backend != "" {
		config.Store.Backend = backend
	}
	if path := os.Getenv("VERKKO_STORE_PATH"); path != "" {
		config.Store.Path = path
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Store.DSN = dsn
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		config.Store.Database = db
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
}
