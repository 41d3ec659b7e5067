package audit

import (
	"time"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/politeness"
)

// DefaultJobTimeout caps the wall-clock duration of one audit.
const DefaultJobTimeout = 10 * time.Minute

// Options configures how jobs are run. They apply to every job a Runner starts.
type Options struct {
	Fetcher    fetcher.Config
	MinDelay   time.Duration
	JobTimeout time.Duration
}

func (o Options) withDefaults() Options {
	o.Fetcher = o.Fetcher.WithDefaults()
	if o.MinDelay <= 0 {
		o.MinDelay = politeness.DefaultMinDelay
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = DefaultJobTimeout
	}
	return o
}
