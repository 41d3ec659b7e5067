// Package server provides the gin HTTP server, its middleware and
// lifecycle handling for the auditor API.
package server

import (
	"time"
)

// Default timeout values for HTTP server configuration.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultCORSMaxAge      = 12 * time.Hour
)

// Config holds the HTTP server configuration.
type Config struct {
	// Port is the port number to listen on.
	Port int `mapstructure:"port" yaml:"port"`

	// Debug switches gin to debug mode.
	Debug bool `mapstructure:"debug" yaml:"debug"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"     yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// CORS holds the CORS configuration.
	CORS CORSConfig `mapstructure:"cors" yaml:"cors"`

	// ServiceName and ServiceVersion are reported by the health endpoint.
	ServiceName    string `mapstructure:"-" yaml:"-"`
	ServiceVersion string `mapstructure:"-" yaml:"-"`
}

// CORSConfig holds the CORS middleware configuration.
type CORSConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// AllowedOrigins lists origins allowed to call the API. "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	AllowedMethods   []string      `mapstructure:"allowed_methods"   yaml:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"   yaml:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"           yaml:"max_age"`
}

// SetDefaults applies default values to the config where values are not set.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.ServiceName == "" {
		c.ServiceName = "schema-auditor"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}

	c.CORS.SetDefaults()
}

// SetDefaults applies default values to the CORS config where values are not set.
func (c *CORSConfig) SetDefaults() {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
		}
	}
	if c.MaxAge == 0 {
		c.MaxAge = DefaultCORSMaxAge
	}
}
