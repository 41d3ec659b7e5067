// Package domain holds the audit data model shared by every pipeline stage.
package domain

import "time"

// JobStatus is the lifecycle state of a CrawlJob.
type JobStatus string

// Job statuses. A job is terminal once it leaves JobRunning.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Phase is the coarse progress indicator of a running job.
type Phase string

// Job phases, in order.
const (
	PhaseCrawling   Phase = "crawling"
	PhaseExtracting Phase = "extracting"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseScoring    Phase = "scoring"
)

// Audit start bounds.
const (
	MinPages = 1
	MaxPages = 500
	MinDepth = 1
	MaxDepth = 10
)

// JobConfig is the per-audit crawl configuration.
type JobConfig struct {
	MaxPages         int  `json:"max_pages"`
	MaxDepth         int  `json:"max_depth"`
	RespectRobots    bool `json:"respect_robots"`
	FollowSitemap    bool `json:"follow_sitemap"`
	AllowCrossOrigin bool `json:"allow_cross_origin"`
}

// CrawlJob identifies one audit run.
type CrawlJob struct {
	ID         string     `json:"id"`
	RootURL    string     `json:"root_url"`
	Config     JobConfig  `json:"config"`
	Status     JobStatus  `json:"status"`
	Phase      Phase      `json:"phase,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Progress is the externally visible view of a job while it runs.
type Progress struct {
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	Phase        Phase     `json:"phase,omitempty"`
	Percent      int       `json:"percent"`
	PagesFetched int       `json:"pages_fetched"`
	Enqueued     int       `json:"enqueued"`
	Reason       string    `json:"reason,omitempty"`
}

// JobStats counts crawl outcomes for reporting.
type JobStats struct {
	PagesFetched    int            `json:"pages_fetched"`
	FetchErrors     int            `json:"fetch_errors"`
	Enqueued        int            `json:"enqueued"`
	Dropped         map[string]int `json:"dropped,omitempty"`
	RobotsSkipped   int            `json:"robots_skipped"`
	SchemaInstances int            `json:"schema_instances"`
	SitemapURLs     int            `json:"sitemap_urls"`
}
