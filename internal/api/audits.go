package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
)

// AuditHandler serves audit jobs and their reports.
type AuditHandler struct {
	manager *audit.Manager
	store   storage.ReportStore
	logger  logger.Logger
}

// NewAuditHandler creates an AuditHandler. store backs the stored-report
// listing and should be the same store the manager saves into.
func NewAuditHandler(manager *audit.Manager, store storage.ReportStore, log logger.Logger) *AuditHandler {
	return &AuditHandler{
		manager: manager,
		store:   store,
		logger:  log,
	}
}

// Start begins a new audit and responds 202 with the job.
func (h *AuditHandler) Start(c *gin.Context) {
	var req audit.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	job, err := h.manager.Start(c.Request.Context(), req)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error(), "field": cfgErr.Field})
			return
		}
		h.logger.Error("Failed to start audit", logger.URL(req.RootURL), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start audit"})
		return
	}

	logger.FromContext(c.Request.Context()).Info("Audit started",
		logger.JobID(job.ID),
		logger.URL(job.RootURL),
	)
	c.JSON(http.StatusAccepted, job)
}

// List returns every job the manager still tracks.
func (h *AuditHandler) List(c *gin.Context) {
	jobs := h.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"audits": jobs,
		"count":  len(jobs),
	})
}

// Get returns the progress of a job.
func (h *AuditHandler) Get(c *gin.Context) {
	progress, err := h.manager.Progress(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (h *AuditHandler) Cancel(c *gin.Context) {
	job, err := h.manager.Cancel(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Report returns the export document.
func (h *AuditHandler) Report(c *gin.Context) {
	report, err := h.manager.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Issues returns the report's issues, optionally filtered by ?severity=.
func (h *AuditHandler) Issues(c *gin.Context) {
	severity := domain.Severity(c.Query("severity"))
	switch severity {
	case "", domain.SeverityCritical, domain.SeverityWarning, domain.SeverityInfo:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity must be one of critical, warning, info"})
		return
	}

	report, err := h.manager.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	found := audit.FilterIssues(report.Issues, severity)
	c.JSON(http.StatusOK, gin.H{
		"issues": found,
		"count":  len(found),
	})
}

// Roadmap returns the ordered task list and the score projection. The
// projected score is based on initial_scores.overall, not current_score.
func (h *AuditHandler) Roadmap(c *gin.Context) {
	report, err := h.manager.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roadmap":        report.Roadmap,
		"current_score":  report.Scores.Overall,
		"initial_scores": report.InitialScores,
	})
}

// Resolve marks an issue done and returns the refreshed roadmap.
func (h *AuditHandler) Resolve(c *gin.Context) {
	jobID := c.Param("id")
	issueID := c.Param("issueId")

	report, err := h.manager.Resolve(c.Request.Context(), jobID, issueID)
	if err != nil {
		h.fail(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("Issue resolved",
		logger.JobID(jobID),
		logger.String("issue_id", issueID),
	)
	c.JSON(http.StatusOK, gin.H{
		"scores":  report.Scores,
		"roadmap": report.Roadmap,
	})
}

// StoredReports lists every persisted report, newest first.
func (h *AuditHandler) StoredReports(c *gin.Context) {
	summaries, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list reports", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": summaries,
		"count":   len(summaries),
	})
}

// DeleteReport removes a persisted report.
func (h *AuditHandler) DeleteReport(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		h.logger.Error("Failed to delete report", logger.JobID(id), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps manager errors onto HTTP responses.
func (h *AuditHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, audit.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit not found"})
	case errors.Is(err, audit.ErrIssueNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
	case errors.Is(err, audit.ErrReportNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "Audit is still running"})
	default:
		h.logger.Error("Audit request failed",
			logger.String("path", c.Request.URL.Path),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
