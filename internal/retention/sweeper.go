// Package retention evicts finished audit jobs from memory on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

// Defaults for the sweep schedule and job age.
const (
	DefaultSchedule = "*/10 * * * *"
	DefaultMaxAge   = time.Hour
)

// Evictor drops finished jobs older than maxAge and reports how many it dropped.
type Evictor interface {
	Evict(maxAge time.Duration) int
}

// Config configures the sweeper.
type Config struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Schedule string        `mapstructure:"schedule" yaml:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"  yaml:"max_age"`
}

// SetDefaults applies default values where not set.
func (c *Config) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.MaxAge == 0 {
		c.MaxAge = DefaultMaxAge
	}
}

// Validate rejects unparseable schedules and non-positive ages.
func (c *Config) Validate() error {
	if _, err := parser().Parse(c.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", c.Schedule, err)
	}
	if c.MaxAge <= 0 {
		return errors.New("max_age must be positive")
	}
	return nil
}

// Sweeper periodically evicts old jobs.
type Sweeper struct {
	cron    *cron.Cron
	evictor Evictor
	maxAge  time.Duration
	logger  logger.Logger
}

// parser accepts standard five-field expressions and descriptors such as @every 5m.
func parser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// New creates a sweeper. It does not run until Start is called.
func New(cfg Config, evictor Evictor, log logger.Logger) (*Sweeper, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &Sweeper{
		cron:    cron.New(cron.WithParser(parser()), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		evictor: evictor,
		maxAge:  cfg.MaxAge,
		logger:  log,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, func() { s.Sweep() }); err != nil {
		return nil, fmt.Errorf("retention: schedule sweep: %w", err)
	}
	return s, nil
}

// Sweep runs one eviction pass and returns the number of jobs evicted.
func (s *Sweeper) Sweep() int {
	n := s.evictor.Evict(s.maxAge)
	if n > 0 {
		s.logger.Info("Evicted finished audits",
			logger.Int("count", n),
			logger.Duration("max_age", s.maxAge),
		)
	}
	return n
}

// Start begins running sweeps on schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("Retention sweeper started", logger.Duration("max_age", s.maxAge))
}

// Stop stops scheduling sweeps and waits for a running sweep to finish or
// ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
