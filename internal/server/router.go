// Package server exposes the answering pipeline over an HTTP JSON API.
package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/bull/legalqa-server/internal/qa"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(service *qa.Service, logger *slog.Logger) *gin.Engine {
	h := &handler{service: service, logger: logger}

	r := gin.New()
	r.Use(RequestLogger(logger), gin.Recovery())

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/ask", h.ask)
		v1.POST("/ask/batch", h.askBatch)
		v1.GET("/languages", h.languages)
		v1.GET("/documents/summary", h.documentSummary)
	}
	return r
}
