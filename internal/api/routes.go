// Package api exposes the audit manager and schema tools over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/metrics"
)

// SetupRoutes registers the v1 API on router. m may be nil, in which case
// /metrics is not served.
func SetupRoutes(router *gin.Engine, audits *AuditHandler, schemas *SchemaHandler, m *metrics.Metrics) {
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := router.Group("/api/v1")

	auditRoutes := v1.Group("/audits")
	auditRoutes.POST("", audits.Start)
	auditRoutes.GET("", audits.List)
	auditRoutes.GET("/:id", audits.Get)
	auditRoutes.POST("/:id/cancel", audits.Cancel)
	auditRoutes.GET("/:id/report", audits.Report)
	auditRoutes.GET("/:id/issues", audits.Issues)
	auditRoutes.GET("/:id/roadmap", audits.Roadmap)
	auditRoutes.POST("/:id/issues/:issueId/resolve", audits.Resolve)

	reportRoutes := v1.Group("/reports")
	reportRoutes.GET("", audits.StoredReports)
	reportRoutes.DELETE("/:id", audits.DeleteReport)

	schemaRoutes := v1.Group("/schema")
	schemaRoutes.GET("/types", schemas.Types)
	schemaRoutes.GET("/types/:type", schemas.Type)
	schemaRoutes.POST("/validate", schemas.Validate)
	schemaRoutes.POST("/generate", schemas.Generate)
}
