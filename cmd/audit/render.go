package audit

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	internalaudit "github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// ReportRenderer prints a report as a series of tables.
type ReportRenderer struct {
	out io.Writer
}

// NewReportRenderer creates a ReportRenderer writing to out.
func NewReportRenderer(out io.Writer) *ReportRenderer {
	return &ReportRenderer{out: out}
}

// Render prints the job summary, scores, schema inventory, issues and
// roadmap. severity filters the issue table when non-empty.
func (r *ReportRenderer) Render(report *domain.Report, severity domain.Severity) {
	job := report.Job
	_, _ = fmt.Fprintf(r.out, "Audit %s of %s: %s", job.ID, job.RootURL, job.Status)
	if job.Reason != "" {
		_, _ = fmt.Fprintf(r.out, " (%s)", job.Reason)
	}
	_, _ = fmt.Fprintf(r.out, "\nPages fetched: %d, fetch errors: %d, robots skipped: %d\n\n",
		report.Stats.PagesFetched, report.Stats.FetchErrors, report.Stats.RobotsSkipped)

	r.scores(report.Scores)
	if len(report.SchemaInventory) > 0 {
		r.inventory(report.SchemaInventory)
	}
	r.issues(internalaudit.FilterIssues(report.Issues, severity))
	r.roadmap(report.Roadmap)
}

func (r *ReportRenderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func (r *ReportRenderer) scores(s domain.ScoreSet) {
	t := r.newTable("Scores")
	t.AppendHeader(table.Row{"Overall", "Technical", "On-Page", "Schema", "Crawl Health", "Content"})
	t.AppendRow(table.Row{s.Overall, s.Technical, s.OnPage, s.Schema, s.CrawlHealth, s.Content})
	t.Render()
	_, _ = fmt.Fprintln(r.out)
}

func (r *ReportRenderer) inventory(entries []domain.SchemaInventoryEntry) {
	t := r.newTable("Structured Data")
	t.AppendHeader(table.Row{"Type", "Instances", "Pages", "Status"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Type, e.Count, len(e.Pages), e.Status})
	}
	t.Render()
	_, _ = fmt.Fprintln(r.out)
}

func (r *ReportRenderer) issues(found []domain.Issue) {
	t := r.newTable(fmt.Sprintf("Issues (%d)", len(found)))
	t.AppendHeader(table.Row{"ID", "Severity", "Category", "Title", "Pages", "Impact", "Effort", "Done"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 60},
		{Name: "Severity", Transformer: severityColor},
	})
	for _, issue := range found {
		done := ""
		if issue.Resolved {
			done = "x"
		}
		t.AppendRow(table.Row{
			issue.ID, issue.Severity, issue.Category, issue.Title,
			len(issue.Pages), issue.Impact, issue.Effort, done,
		})
	}
	t.Render()
	_, _ = fmt.Fprintln(r.out)
}

func (r *ReportRenderer) roadmap(rm domain.Roadmap) {
	t := r.newTable("Roadmap")
	t.AppendHeader(table.Row{"#", "Kind", "Title", "Impact", "Effort", "Estimate"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Title", WidthMax: 60}})
	for _, task := range rm.Tasks {
		t.AppendRow(table.Row{task.Rank, task.Kind, task.Title, task.Impact, task.Effort, task.EstimatedTime})
	}
	t.AppendFooter(table.Row{"", "", "Potential gain", rm.PotentialGain, "Projected", rm.ProjectedScore})
	t.Render()
}

func severityColor(val any) string {
	s := fmt.Sprint(val)
	switch domain.Severity(s) {
	case domain.SeverityCritical:
		return text.FgRed.Sprint(s)
	case domain.SeverityWarning:
		return text.FgYellow.Sprint(s)
	default:
		return s
	}
}
