package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/kvstore"
)

func newTestLogger(store kvstore.Store, maxEntries int) *Logger {
	clock := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	return NewLogger(store, "attendance", config.AuditConfig{MaxEntries: maxEntries}, zap.NewNop(),
		WithClock(func() time.Time { return clock }))
}

func TestLogAppendsEntry(t *testing.T) {
	store := kvstore.NewMemory()
	l := newTestLogger(store, 100)

	entry := l.Log(context.Background(), models.AuditActionCreate, models.KindStudent, "stu-1", "admin", nil)
	require.NotNil(t, entry)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "admin", entry.Actor)
	assert.Equal(t, entry.SessionID, l.SessionID())

	entries, err := l.Query(context.Background(), models.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSessionIDIsLazyAndStable(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)
	first := l.SessionID()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, l.SessionID())
}

func TestLogEvictsOldestAboveCap(t *testing.T) {
	store := kvstore.NewMemory()
	l := newTestLogger(store, 3)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NotNil(t, l.Log(ctx, models.AuditActionCreate, models.KindStudent, id, "admin", nil))
	}

	entries, err := l.Query(ctx, models.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].EntityID)
	assert.Equal(t, "d", entries[2].EntityID)
}

func TestLogStorageFailureReturnsNil(t *testing.T) {
	store := kvstore.NewMemory()
	store.FailWrites = true
	l := newTestLogger(store, 100)

	entry := l.Log(context.Background(), models.AuditActionCreate, models.KindStudent, "stu-1", "admin", nil)
	assert.Nil(t, entry)
}

func TestLogUpdateDiffRedactsSensitiveFields(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)

	before := map[string]interface{}{"name": "Old", "email": "old@example.org", "password": "hunter2"}
	after := map[string]interface{}{"name": "New", "email": "old@example.org", "password": "hunter3"}

	entry := l.LogUpdate(context.Background(), models.KindStudent, "stu-1", "admin", before, after)
	require.NotNil(t, entry)

	changes, ok := entry.Details["changes"].(map[string]map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, changes, "name")
	assert.NotContains(t, changes, "email")
	assert.NotContains(t, changes, "password")
}

func TestQueryFilters(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)
	ctx := context.Background()

	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-1", "alice", nil)
	l.Log(ctx, models.AuditActionDelete, models.KindGroup, "grp-1", "bob", nil)
	l.Log(ctx, models.AuditActionUpdate, models.KindStudent, "stu-1", "alice", nil)

	byActor, err := l.Query(ctx, models.AuditQuery{Actor: "alice"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byEntity, err := l.Query(ctx, models.AuditQuery{EntityKind: models.KindGroup, EntityID: "grp-1"})
	require.NoError(t, err)
	assert.Len(t, byEntity, 1)

	byAction, err := l.Query(ctx, models.AuditQuery{Action: models.AuditActionUpdate})
	require.NoError(t, err)
	assert.Len(t, byAction, 1)

	limited, err := l.Query(ctx, models.AuditQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStats(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)
	ctx := context.Background()

	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-1", "alice", nil)
	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-2", "alice", nil)
	l.Log(ctx, models.AuditActionDelete, models.KindGroup, "grp-1", "bob", nil)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByAction[models.AuditActionCreate])
	assert.Equal(t, 2, stats.ByEntity[string(models.KindStudent)])
	assert.Equal(t, 2, stats.ByActor["alice"])
	assert.Equal(t, 3, stats.ByDay["2026-03-10"])
}

func TestPurge(t *testing.T) {
	store := kvstore.NewMemory()
	old := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	clock := old
	l := NewLogger(store, "attendance", config.AuditConfig{MaxEntries: 100}, zap.NewNop(),
		WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-1", "alice", nil)
	clock = recent
	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-2", "alice", nil)
	clock = now

	removed, err := l.Purge(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := l.Query(ctx, models.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stu-2", entries[0].EntityID)
}

func TestClear(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)
	ctx := context.Background()

	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-1", "alice", nil)
	require.NoError(t, l.Clear(ctx))

	entries, err := l.Query(ctx, models.AuditQuery{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportCSVRoundTrip(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)
	ctx := context.Background()

	l.LogCreate(ctx, models.KindStudent, "stu-1", "alice", models.Student{ID: "stu-1", Name: "One"})
	l.LogDelete(ctx, models.KindGroup, "grp-1", "bob", models.Group{ID: "grp-1", Name: "W-A"}, true)

	raw, err := l.ExportCSV(ctx)
	require.NoError(t, err)

	parsed, err := ParseCSV(raw)
	require.NoError(t, err)

	stored, err := l.Query(ctx, models.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, parsed, len(stored))
	for i := range stored {
		assert.Equal(t, stored[i].ID, parsed[i].ID)
		assert.Equal(t, stored[i].Action, parsed[i].Action)
		assert.Equal(t, stored[i].EntityID, parsed[i].EntityID)
		assert.True(t, stored[i].Timestamp.Equal(parsed[i].Timestamp))
	}
}

func TestExportPDFProducesDocument(t *testing.T) {
	l := newTestLogger(kvstore.NewMemory(), 100)
	ctx := context.Background()
	l.Log(ctx, models.AuditActionCreate, models.KindStudent, "stu-1", "alice", nil)

	raw, err := l.ExportPDF(ctx, "audit trail")
	require.NoError(t, err)
	assert.True(t, len(raw) > 0)
	assert.Equal(t, "%PDF", string(raw[:4]))
}
