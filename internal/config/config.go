// Package config loads the auditor configuration from a YAML file, the
// environment and command-line flags using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/politeness"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/retention"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/server"
)

// EnvPrefix prefixes every environment override, e.g. AUDITOR_SERVER_PORT.
const EnvPrefix = "AUDITOR"

// Config is the full application configuration.
type Config struct {
	Server    server.Config    `mapstructure:"server"    yaml:"server"`
	Logger    logger.Config    `mapstructure:"logger"    yaml:"logger"`
	Fetcher   fetcher.Config   `mapstructure:"fetcher"   yaml:"fetcher"`
	Audit     AuditConfig      `mapstructure:"audit"     yaml:"audit"`
	Database  DatabaseConfig   `mapstructure:"database"  yaml:"database"`
	Retention retention.Config `mapstructure:"retention" yaml:"retention"`
	Rules     RulesConfig      `mapstructure:"rules"     yaml:"rules"`
}

// AuditConfig holds per-job limits applied by the runner.
type AuditConfig struct {
	// MinDelay is the minimum spacing between requests to one host.
	MinDelay time.Duration `mapstructure:"min_delay"   yaml:"min_delay"`
	// JobTimeout caps the duration of one audit.
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// DatabaseConfig selects the report store. An empty DSN keeps reports in memory.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// RulesConfig locates the schema rule table. An empty path uses the built-in table.
type RulesConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Options returns the runner options described by the config.
func (c *Config) Options() audit.Options {
	return audit.Options{
		Fetcher:    c.Fetcher,
		MinDelay:   c.Audit.MinDelay,
		JobTimeout: c.Audit.JobTimeout,
	}
}

// SetDefaults applies default values to every section. Fetcher defaults are
// left to the runner so a negative max_retries still disables retries.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	if c.Audit.MinDelay == 0 {
		c.Audit.MinDelay = politeness.DefaultMinDelay
	}
	if c.Audit.JobTimeout == 0 {
		c.Audit.JobTimeout = audit.DefaultJobTimeout
	}
	c.Retention.SetDefaults()
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger.level %q must be one of debug, info, warn, error", c.Logger.Level)
	}
	if c.Audit.MinDelay < 0 {
		return errors.New("audit.min_delay must not be negative")
	}
	if c.Audit.JobTimeout < 0 {
		return errors.New("audit.job_timeout must not be negative")
	}
	if c.Database.DSN != "" && !strings.HasPrefix(c.Database.DSN, "postgres://") &&
		!strings.HasPrefix(c.Database.DSN, "postgresql://") {
		return errors.New("database.dsn must be a postgres:// URL")
	}
	if c.Retention.Enabled {
		if err := c.Retention.Validate(); err != nil {
			return fmt.Errorf("retention: %w", err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults registered and env
// overrides enabled. Registering every key as a default is what lets
// AutomaticEnv reach nested keys during Unmarshal.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

func setViperDefaults(v *viper.Viper) {
	var d Config
	d.SetDefaults()
	d.Fetcher = d.Fetcher.WithDefaults()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors.enabled", true)
	v.SetDefault("server.cors.allowed_origins", d.Server.CORS.AllowedOrigins)
	v.SetDefault("server.cors.allowed_methods", d.Server.CORS.AllowedMethods)
	v.SetDefault("server.cors.allowed_headers", d.Server.CORS.AllowedHeaders)
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.cors.max_age", d.Server.CORS.MaxAge)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.development", false)
	v.SetDefault("logger.output_paths", d.Logger.OutputPaths)

	v.SetDefault("fetcher.workers", d.Fetcher.Workers)
	v.SetDefault("fetcher.user_agent", d.Fetcher.UserAgent)
	v.SetDefault("fetcher.timeout", d.Fetcher.Timeout)
	v.SetDefault("fetcher.max_retries", d.Fetcher.MaxRetries)
	v.SetDefault("fetcher.max_redirects", d.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_bytes", d.Fetcher.MaxBodyBytes)
	v.SetDefault("fetcher.retry_backoff", d.Fetcher.RetryBackoff)

	v.SetDefault("audit.min_delay", d.Audit.MinDelay)
	v.SetDefault("audit.job_timeout", d.Audit.JobTimeout)

	v.SetDefault("database.dsn", "")

	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.schedule", d.Retention.Schedule)
	v.SetDefault("retention.max_age", d.Retention.MaxAge)

	v.SetDefault("rules.path", "")
}

// Load reads path (when non-empty) into v, then decodes, defaults and
// validates the result. A missing config.yml in the search path is not an
// error; a missing explicit path is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
