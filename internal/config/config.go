// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/intents-registry/pkg/bootstrap"
)

const logPrefix = "config:LoadConfig"

// Config holds intents-registry configuration.
type Config struct {
	// Modules: descriptors are discovered under ModulesDir; module urls are mounted under ServerRoot.
	ServerRoot          string `envconfig:"SERVER_ROOT"`
	ModulesDir          string `envconfig:"MODULES_DIR" default:"modules"`
	ModuleFailurePolicy string `envconfig:"MODULE_FAILURE_POLICY" default:"skip"`

	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"intents-registry"`

	// Subject overrides (empty = commsutil defaults)
	IntentsSubject     string `envconfig:"INTENTS_SUBJECT"`
	ChangeEventSubject string `envconfig:"INTENTS_CHANGE_EVENT_SUBJECT"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"INTENTS_REQUEST_TIMEOUT" default:"25s"`

	// Database mirror (empty DATABASE_URL disables it)
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"4"`
	RunMigrations    bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP ops endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FailurePolicy returns the parsed MODULE_FAILURE_POLICY.
func (c *Config) FailurePolicy() (bootstrap.FailurePolicy, error) {
	return bootstrap.ParseFailurePolicy(c.ModuleFailurePolicy)
}

// MirrorEnabled reports whether registrations are mirrored to Postgres.
func (c *Config) MirrorEnabled() bool {
	return c.DatabaseURL != ""
}

// ValidateForCheck checks required config for loading and registering modules.
func (c *Config) ValidateForCheck() error {
	if c.ServerRoot == "" {
		return fmt.Errorf("%s - SERVER_ROOT is required", logPrefix)
	}
	if !filepath.IsAbs(c.ServerRoot) {
		return fmt.Errorf("%s - SERVER_ROOT must be an absolute path, got %q", logPrefix, c.ServerRoot)
	}
	if c.ModulesDir == "" {
		return fmt.Errorf("%s - MODULES_DIR must not be empty", logPrefix)
	}
	if _, err := c.FailurePolicy(); err != nil {
		return fmt.Errorf("%s - MODULE_FAILURE_POLICY: %w", logPrefix, err)
	}
	return nil
}

// ValidateForServe checks required config when running the registry server.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForCheck(); err != nil {
		return err
	}
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required for serve", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - INTENTS_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	if c.DatabaseMaxConns < 0 {
		return fmt.Errorf("%s - DB_MAX_CONNS must not be negative", logPrefix)
	}
	return nil
}
