package domain

// Severity grades an issue.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Category groups issues by the stage that found them.
type Category string

// Categories.
const (
	CategorySchema    Category = "schema"
	CategoryOnPage    Category = "onpage"
	CategoryTechnical Category = "technical"
)

// Dimension names the subscore an issue deducts from.
type Dimension string

// Score dimensions.
const (
	DimensionTechnical   Dimension = "technical"
	DimensionOnPage      Dimension = "onpage"
	DimensionSchema      Dimension = "schema"
	DimensionCrawlHealth Dimension = "crawl_health"
	DimensionContent     Dimension = "content"
)

// DefaultDimension maps a category to its subscore when a rule does not override it.
func (c Category) DefaultDimension() Dimension {
	switch c {
	case CategorySchema:
		return DimensionSchema
	case CategoryOnPage:
		return DimensionOnPage
	default:
		return DimensionTechnical
	}
}

// Effort estimates the work needed to fix an issue.
type Effort string

// Effort levels.
const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Rank orders efforts low < medium < high. Unknown efforts sort last.
func (e Effort) Rank() int {
	switch e {
	case EffortLow:
		return 0
	case EffortMedium:
		return 1
	case EffortHigh:
		return 2
	default:
		return 3
	}
}

// Issue is a single deduplicated finding.
type Issue struct {
	ID          string    `json:"id"`
	RuleID      string    `json:"rule_id"`
	Severity    Severity  `json:"severity"`
	Category    Category  `json:"category"`
	Dimension   Dimension `json:"dimension"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Pages       []string  `json:"pages"`
	BaseImpact  int       `json:"base_impact"`
	Impact      int       `json:"impact"`
	Effort      Effort    `json:"effort"`
	Resolved    bool      `json:"resolved"`
}

// ScoreSet is the six-score summary of a job.
type ScoreSet struct {
	Overall     int `json:"overall"`
	Technical   int `json:"technical"`
	OnPage      int `json:"on_page"`
	Schema      int `json:"schema"`
	CrawlHealth int `json:"crawl_health"`
	Content     int `json:"content"`
}

// Get returns the subscore for a dimension.
func (s ScoreSet) Get(d Dimension) int {
	switch d {
	case DimensionTechnical:
		return s.Technical
	case DimensionOnPage:
		return s.OnPage
	case DimensionSchema:
		return s.Schema
	case DimensionCrawlHealth:
		return s.CrawlHealth
	case DimensionContent:
		return s.Content
	default:
		return 0
	}
}

// TaskKind buckets roadmap tasks for presentation.
type TaskKind string

// Task kinds.
const (
	TaskQuickWin  TaskKind = "Quick Win"
	TaskDeveloper TaskKind = "Developer Task"
	TaskContent   TaskKind = "Content Task"
)

// RoadmapTask is a ranked view over an unresolved issue.
type RoadmapTask struct {
	Rank          int      `json:"rank"`
	IssueID       string   `json:"issue_id"`
	Title         string   `json:"title"`
	Impact        int      `json:"impact"`
	Effort        Effort   `json:"effort"`
	Category      Category `json:"category"`
	Kind          TaskKind `json:"kind"`
	EstimatedTime string   `json:"estimated_time"`
	Pages         []string `json:"pages"`
}

// Roadmap is the planner output plus the score projection.
type Roadmap struct {
	Tasks          []RoadmapTask `json:"tasks"`
	PotentialGain  int           `json:"potential_gain"`
	CompletedCount int           `json:"completed_count"`
	ProjectedScore int           `json:"projected_score"`
}
