package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bull/legalqa-server/internal/qa"
	"github.com/bull/legalqa-server/internal/translate"
)

// maxBatchQueries caps one batch request so a single caller cannot
// monopolize the pipeline.
const maxBatchQueries = 20

type handler struct {
	service *qa.Service
	logger  *slog.Logger
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Query    string `json:"query" binding:"required"`
	Language string `json:"language"`
	TopK     int    `json:"top_k"`
	// IncludeSources defaults to true when omitted.
	IncludeSources *bool `json:"include_sources"`
}

// BatchRequest is the body of POST /api/v1/ask/batch.
type BatchRequest struct {
	Queries  []string `json:"queries" binding:"required,min=1"`
	Language string   `json:"language"`
}

func (h *handler) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}

	answer := h.service.Ask(c.Request.Context(), req.Query, qa.Options{
		Language:       req.Language,
		TopK:           req.TopK,
		IncludeSources: includeSources,
	})
	c.JSON(http.StatusOK, answer)
}

func (h *handler) askBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "queries are required"})
		return
	}
	if len(req.Queries) > maxBatchQueries {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many queries in one batch"})
		return
	}

	answers := h.service.AskBatch(c.Request.Context(), req.Queries, req.Language)
	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

func (h *handler) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": translate.Supported(),
		"pivot":     translate.Pivot,
	})
}

func (h *handler) documentSummary(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	c.JSON(http.StatusOK, h.service.DocumentSummary(c.Request.Context(), name))
}

func (h *handler) health(c *gin.Context) {
	health := h.service.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if health.Overall != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
