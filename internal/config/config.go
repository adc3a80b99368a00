// Package config loads and persists taskfed configuration from .taskfed/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete taskfed configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// RegistryPath points at the sources.toml registry, relative to the data root
	RegistryPath string `json:"registryPath" mapstructure:"registryPath"`

	Router    RouterConfig    `json:"router" mapstructure:"router"`
	Aggregate AggregateConfig `json:"aggregate" mapstructure:"aggregate"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// RouterConfig controls single-entity routing behavior
type RouterConfig struct {
	// HealthCheckIntervalMs is the periodic health-check cadence
	HealthCheckIntervalMs int `json:"healthCheckIntervalMs" mapstructure:"healthCheckIntervalMs"`

	// RecheckDelayMs is the out-of-band recheck delay after a source flips unhealthy
	RecheckDelayMs int `json:"recheckDelayMs" mapstructure:"recheckDelayMs"`

	// MaxFailures is the consecutive-failure threshold before a source flips unhealthy
	MaxFailures int `json:"maxFailures" mapstructure:"maxFailures"`

	// OperationTimeoutMs bounds each single-source attempt
	OperationTimeoutMs int `json:"operationTimeoutMs" mapstructure:"operationTimeoutMs"`

	// EnableFallback allows trying further candidates after a failure
	EnableFallback bool `json:"enableFallback" mapstructure:"enableFallback"`
}

// HealthCheckInterval returns the periodic cadence as a duration
func (r RouterConfig) HealthCheckInterval() time.Duration {
	return time.Duration(r.HealthCheckIntervalMs) * time.Millisecond
}

// RecheckDelay returns the fast-recovery recheck delay as a duration
func (r RouterConfig) RecheckDelay() time.Duration {
	return time.Duration(r.RecheckDelayMs) * time.Millisecond
}

// OperationTimeout returns the per-attempt timeout as a duration
func (r RouterConfig) OperationTimeout() time.Duration {
	return time.Duration(r.OperationTimeoutMs) * time.Millisecond
}

// AggregateConfig controls cross-source query behavior
type AggregateConfig struct {
	// ParallelQueries fans source fetches out concurrently
	ParallelQueries bool `json:"parallelQueries" mapstructure:"parallelQueries"`

	// ConflictStrategy picks the canonical copy of a divergent record:
	// latest, priority, manual, merge
	ConflictStrategy string `json:"conflictStrategy" mapstructure:"conflictStrategy"`

	// FetchTimeoutMs bounds each per-source fetch
	FetchTimeoutMs int `json:"fetchTimeoutMs" mapstructure:"fetchTimeoutMs"`
}

// FetchTimeout returns the per-source fetch timeout as a duration
func (a AggregateConfig) FetchTimeout() time.Duration {
	return time.Duration(a.FetchTimeoutMs) * time.Millisecond
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:      1,
		RegistryPath: "sources.toml",
		Router: RouterConfig{
			HealthCheckIntervalMs: 60000,
			RecheckDelayMs:        5000,
			MaxFailures:           3,
			OperationTimeoutMs:    10000,
			EnableFallback:        true,
		},
		Aggregate: AggregateConfig{
			ParallelQueries:  true,
			ConflictStrategy: "priority",
			FetchTimeoutMs:   15000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.taskfed/config.json.
// A missing file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("registryPath", "sources.toml")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".taskfed"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to <root>/.taskfed/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".taskfed")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Router.MaxFailures < 1 {
		return &ConfigError{Field: "router.maxFailures", Message: "must be at least 1"}
	}
	if c.Router.OperationTimeoutMs <= 0 {
		return &ConfigError{Field: "router.operationTimeoutMs", Message: "must be positive"}
	}
	if c.Aggregate.FetchTimeoutMs <= 0 {
		return &ConfigError{Field: "aggregate.fetchTimeoutMs", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
