package fetcher

import "time"

// Default configuration values.
const (
	defaultWorkers      = 10
	defaultUserAgent    = "SchemaAuditor/1.0 (+https://github.com/jonesrussell/north-cloud)"
	defaultTimeout      = 15 * time.Second
	defaultMaxRetries   = 2
	defaultMaxRedirects = 5
	defaultMaxBodyBytes = 10 * 1024 * 1024
	defaultRetryBackoff = 250 * time.Millisecond
)

// Config holds fetcher configuration.
type Config struct {
	Workers      int           `mapstructure:"workers"        yaml:"workers"`
	UserAgent    string        `mapstructure:"user_agent"     yaml:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"        yaml:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"    yaml:"max_retries"`
	MaxRedirects int           `mapstructure:"max_redirects"  yaml:"max_redirects"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"  yaml:"retry_backoff"`
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
// MaxRetries may be set to a negative value to disable retries.
func (c Config) WithDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	return c
}
