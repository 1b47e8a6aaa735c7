// Package config loads application configuration from flags, environment
// variables and YAML files via viper.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Twitter   TwitterConfig   `mapstructure:"twitter"`
	RapidAPI  RapidAPIConfig  `mapstructure:"rapidapi"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// CORSOrigins lists allowed origins; empty allows none.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig configures persistent storage.
type DatabaseConfig struct {
	// Path is the SQLite database file. Parent directories are created
	// on first open.
	Path string `mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkflowConfig configures run execution.
type WorkflowConfig struct {
	// RunTimeout bounds one run's execution. Zero disables the deadline.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	// DefinitionsDir is watched for YAML workflow definitions.
	DefinitionsDir string `mapstructure:"definitions_dir"`
}

// SchedulerConfig configures the interval trigger scanner.
type SchedulerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Tick    time.Duration `mapstructure:"tick"`
}

// TwitterConfig holds Twitter API credentials.
type TwitterConfig struct {
	BearerToken string `mapstructure:"bearer_token"`
}

// RapidAPIConfig holds the RapidAPI credential.
type RapidAPIConfig struct {
	Key string `mapstructure:"key"`
}

// Validate checks values a misconfigured deployment would trip over at
// runtime.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Workflow.RunTimeout < 0 {
		return fmt.Errorf("workflow.run_timeout must not be negative")
	}
	if c.Scheduler.Enabled && c.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler.tick must be positive when the scheduler is enabled")
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("log.format must be auto, text or json")
	}
	return nil
}
