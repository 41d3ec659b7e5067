package domain

import "time"

// Page is a fetched document. Body is never exported.
type Page struct {
	URL          string    `json:"url"`
	FinalURL     string    `json:"final_url"`
	StatusCode   int       `json:"status"`
	RedirectHops int       `json:"redirect_hops"`
	Depth        int       `json:"depth"`
	FetchedAt    time.Time `json:"fetched_at"`
	ContentType  string    `json:"content_type,omitempty"`
	Title        string    `json:"title,omitempty"`
	SchemaTypes  []string  `json:"schema_types"`
	Body         []byte    `json:"-"`
}

// PageSummary is the per-page inventory row of a report.
type PageSummary struct {
	Page
	Issues int `json:"issues"`
	Score  int `json:"score"`
}

// EntryState is the lifecycle state of a frontier entry.
type EntryState string

// Frontier entry states.
const (
	EntryQueued  EntryState = "queued"
	EntryVisited EntryState = "visited"
	EntrySkipped EntryState = "skipped"
)

// FrontierEntry is one URL known to the frontier.
type FrontierEntry struct {
	URL        string     `json:"url"`
	Key        string     `json:"key"`
	Depth      int        `json:"depth"`
	Parent     string     `json:"parent,omitempty"`
	State      EntryState `json:"state"`
	SkipReason string     `json:"skip_reason,omitempty"`
}
