package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
)

// maxSnippetBytes bounds pasted JSON-LD bodies.
const maxSnippetBytes = 1 << 20

// SchemaHandler serves the rule library and the snippet tools.
type SchemaHandler struct {
	validator *schema.Validator
	logger    logger.Logger
}

// NewSchemaHandler creates a SchemaHandler.
func NewSchemaHandler(validator *schema.Validator, log logger.Logger) *SchemaHandler {
	return &SchemaHandler{validator: validator, logger: log}
}

// Types lists the rule library.
func (h *SchemaHandler) Types(c *gin.Context) {
	rules := h.validator.Table().Library()
	c.JSON(http.StatusOK, gin.H{
		"types": rules,
		"count": len(rules),
	})
}

// Type returns one rule.
func (h *SchemaHandler) Type(c *gin.Context) {
	rule, ok := h.validator.Table().Lookup(c.Param("type"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown schema type"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Validate checks a pasted JSON-LD document. The body is the document itself.
func (h *SchemaHandler) Validate(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnippetBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(body) > maxSnippetBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Snippet too large"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty snippet"})
		return
	}

	c.JSON(http.StatusOK, h.validator.ValidateSnippet(body))
}

type generateRequest struct {
	Type   string         `binding:"required" json:"type"`
	Fields map[string]any `json:"fields"`
}

// Generate builds a JSON-LD document for one type.
func (h *SchemaHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	res, err := h.validator.Generate(req.Type, req.Fields)
	if err != nil {
		if errors.Is(err, schema.ErrUnknownType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to generate schema", logger.String("type", req.Type), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate schema"})
		return
	}
	c.JSON(http.StatusOK, res)
}
