package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/audit"
	"github.com/edupanel/attendance-core/internal/concurrency"
	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/internal/service"
	"github.com/edupanel/attendance-core/internal/validation"
	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/kvstore"
	"github.com/edupanel/attendance-core/pkg/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *audit.Logger, *service.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := kvstore.NewMemory()
	trail := audit.NewLogger(store, "test", config.AuditConfig{MaxEntries: 100}, zap.NewNop())
	locks := concurrency.NewManager(store, "test", config.ConcurrencyConfig{}, zap.NewNop())
	engine := validation.NewEngine(config.AbsenceConfig{
		RollbackWindow:    24 * time.Hour,
		AcademicYearStart: time.September,
		MinDurationHours:  0.5,
		MaxDurationHours:  8,
	}, config.ImportConfig{MaxRows: 100, MaxFileSize: 1 << 20})

	svc := service.New(service.Deps{
		Store:     store,
		Namespace: "test",
		Engine:    engine,
		Audit:     trail,
		Locks:     locks,
	})

	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewTokenSigner("test-secret", time.Hour)

	router := NewRouter(
		NewHealthHandler(svc, nil),
		NewAuditHandler(trail, archive, signer),
		zap.NewNop(),
	)
	return router, trail, svc
}

func TestHealthEndpoint(t *testing.T) {
	router, _, svc := newTestRouter(t)

	res := svc.CreateSector(context.Background(), models.Sector{Name: "Industry"}, models.Snapshot{}, "admin")
	require.True(t, res.Success)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.IntegrityReport `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Healthy)
	assert.Equal(t, float64(1), body.Meta["entities"])
}

func TestAuditListAndStats(t *testing.T) {
	router, trail, _ := newTestRouter(t)
	ctx := context.Background()

	require.NotNil(t, trail.LogCreate(ctx, models.KindStudent, "stu-1", "alice", models.Student{ID: "stu-1"}))
	require.NotNil(t, trail.LogDelete(ctx, models.KindStudent, "stu-1", "bob", models.Student{ID: "stu-1"}, false))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?actor=alice", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []models.AuditEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "alice", list.Data[0].Actor)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Data models.AuditStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Data.Total)
}

func TestAuditListRejectsBadTimestamp(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditExportCSVIssuesToken(t *testing.T) {
	router, trail, _ := newTestRouter(t)

	require.NotNil(t, trail.LogCreate(context.Background(), models.KindSector, "sec-1", "alice", models.Sector{ID: "sec-1"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil)
	req.Header.Set("X-Actor", "alice")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	token := w.Header().Get("X-Export-Token")
	require.NotEmpty(t, token)

	// the export itself lands in the trail
	exports, err := trail.Query(context.Background(), models.AuditQuery{Action: models.AuditActionExport})
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "alice", exports[0].Actor)
	assert.Equal(t, "csv", exports[0].Details["format"])

	// the archived copy is fetchable through the signed token
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit/exports/"+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditDownloadRejectsBadToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit/exports/not-a-token", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewDeleteRejectsUnknownKind(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/integrity/preview/WIDGET/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
