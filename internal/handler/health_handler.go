package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/attendance-core/internal/metrics"
	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/internal/service"
	appErrors "github.com/edupanel/attendance-core/pkg/errors"
	"github.com/edupanel/attendance-core/pkg/response"
)

// HealthHandler exposes the integrity sweep and observability endpoints.
type HealthHandler struct {
	svc     *service.Service
	metrics *metrics.Metrics
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(svc *service.Service, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{svc: svc, metrics: m}
}

// Health runs the full-snapshot integrity sweep and reports its findings.
// The endpoint always answers 200 when the store is reachable; damaged data
// is a report field, not an HTTP failure.
func (h *HealthHandler) Health(c *gin.Context) {
	snap, err := h.svc.LoadSnapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	report := h.svc.PerformIntegrityCheck(snap)
	response.JSON(c, http.StatusOK, report, map[string]interface{}{
		"entities": len(snap.Sectors) + len(snap.Programs) + len(snap.Groups) + len(snap.Students) + len(snap.Absences),
	})
}

// PreviewDelete reports what a cascading delete of the given entity would
// remove, without removing anything.
func (h *HealthHandler) PreviewDelete(c *gin.Context) {
	kind := models.EntityKind(c.Param("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown entity kind"))
		return
	}
	snap, err := h.svc.LoadSnapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.svc.PreviewDelete(kind, c.Param("id"), snap))
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
