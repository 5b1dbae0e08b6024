package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/attendance-core/internal/audit"
	"github.com/edupanel/attendance-core/internal/models"
	appErrors "github.com/edupanel/attendance-core/pkg/errors"
	"github.com/edupanel/attendance-core/pkg/response"
	"github.com/edupanel/attendance-core/pkg/storage"
)

// AuditHandler exposes the audit trail read-only: filtered queries,
// aggregated stats and file exports.
type AuditHandler struct {
	trail   *audit.Logger
	archive *storage.Archive
	signer  *storage.TokenSigner
}

// NewAuditHandler constructs the handler. Archive and signer are optional;
// without them exports are returned inline only.
func NewAuditHandler(trail *audit.Logger, archive *storage.Archive, signer *storage.TokenSigner) *AuditHandler {
	return &AuditHandler{trail: trail, archive: archive, signer: signer}
}

// List returns audit entries, oldest first, filtered by query parameters.
func (h *AuditHandler) List(c *gin.Context) {
	q := models.AuditQuery{
		Actor:      strings.TrimSpace(c.Query("actor")),
		EntityKind: models.EntityKind(strings.TrimSpace(c.Query("entity"))),
		EntityID:   strings.TrimSpace(c.Query("entityId")),
		Action:     strings.TrimSpace(c.Query("action")),
		SessionID:  strings.TrimSpace(c.Query("session")),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
			return
		}
		q.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
			return
		}
		q.To = to
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		q.Limit = limit
	}

	entries, err := h.trail.Query(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// Stats returns aggregated entry counts.
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.trail.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// ExportCSV streams the whole trail as CSV and archives a copy when an
// archive is configured.
func (h *AuditHandler) ExportCSV(c *gin.Context) {
	data, err := h.trail.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serveExport(c, data, "csv", "text/csv")
}

// ExportPDF streams the whole trail as PDF and archives a copy when an
// archive is configured.
func (h *AuditHandler) ExportPDF(c *gin.Context) {
	data, err := h.trail.ExportPDF(c.Request.Context(), "Audit Trail")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serveExport(c, data, "pdf", "application/pdf")
}

// Download serves a previously archived export referenced by a signed token.
func (h *AuditHandler) Download(c *gin.Context) {
	if h.archive == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export archive is not configured"))
		return
	}
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid or expired download token"))
		return
	}
	file, err := h.archive.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck
	c.FileAttachment(file.Name(), strings.TrimPrefix(relPath, "audit/"))
}

func (h *AuditHandler) serveExport(c *gin.Context, data []byte, ext, contentType string) {
	filename := fmt.Sprintf("audit-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	if h.archive != nil && h.signer != nil {
		relPath := "audit/" + filename
		if _, err := h.archive.Save(relPath, data); err == nil {
			if token, expiresAt, err := h.signer.Generate(filename, relPath); err == nil {
				c.Header("X-Export-Token", token)
				c.Header("X-Export-Expires", expiresAt.UTC().Format(time.RFC3339))
			}
		}
	}
	actor := strings.TrimSpace(c.GetHeader("X-Actor"))
	if actor == "" {
		actor = "system"
	}
	h.trail.Log(c.Request.Context(), models.AuditActionExport, "", "", actor, map[string]interface{}{
		"format": ext,
		"file":   filename,
		"bytes":  len(data),
	})
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
