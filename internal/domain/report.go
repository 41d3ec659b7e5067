package domain

// Report is the export document of a finished job. Downstream renderers treat
// it as read-only.
type Report struct {
	Job             CrawlJob               `json:"job"`
	Scores          ScoreSet               `json:"scores"`
	InitialScores   ScoreSet               `json:"initial_scores"`
	Issues          []Issue                `json:"issues"`
	Pages           []PageSummary          `json:"pages"`
	SchemaInventory []SchemaInventoryEntry `json:"schema_inventory"`
	Roadmap         Roadmap                `json:"roadmap"`
	Stats           JobStats               `json:"stats"`
}

// ReportSummary is the listing row for stored reports.
type ReportSummary struct {
	ID      string    `json:"id"`
	RootURL string    `json:"root_url"`
	Status  JobStatus `json:"status"`
	Pages   int       `json:"pages"`
	Score   int       `json:"score"`
}

// Summary returns the listing row for the report.
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:      r.Job.ID,
		RootURL: r.Job.RootURL,
		Status:  r.Job.Status,
		Pages:   r.Stats.PagesFetched,
		Score:   r.Scores.Overall,
	}
}
