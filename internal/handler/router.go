// Package handler exposes the read-only diagnostics surface over HTTP. The
// data core stays a library; nothing here mutates entities.
package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/pkg/logger"
	"github.com/edupanel/attendance-core/pkg/middleware/requestid"
)

// NewRouter assembles the admin routes.
func NewRouter(health *HealthHandler, trail *AuditHandler, zlog *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(zlog))

	r.GET("/health", health.Health)
	r.GET("/metrics", health.Prometheus)
	r.GET("/integrity/preview/:kind/:id", health.PreviewDelete)

	auditGroup := r.Group("/audit")
	auditGroup.GET("", trail.List)
	auditGroup.GET("/stats", trail.Stats)
	auditGroup.GET("/export.csv", trail.ExportCSV)
	auditGroup.GET("/export.pdf", trail.ExportPDF)
	auditGroup.GET("/exports/:token", trail.Download)

	return r
}
