package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/kvstore"
)

var t0 = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestManager(clock *time.Time, opts ...Option) *Manager {
	opts = append([]Option{WithClock(func() time.Time { return *clock })}, opts...)
	return NewManager(kvstore.NewMemory(), "attendance", config.ConcurrencyConfig{
		LockTimeout:        5 * time.Minute,
		RecentModification: 30 * time.Second,
		MaxRetries:         3,
		RetryBackoff:       time.Millisecond,
	}, zap.NewNop(), opts...)
}

func TestBumpVersionStartsAtOneAndIsMonotonic(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	v1, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Version)
	assert.Equal(t, "alice", v1.LastModifiedBy)

	v2, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Version)

	current, err := m.CurrentVersion(ctx, models.KindStudent, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
}

func TestBumpVersionParallelWritersLoseNothing(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "alice")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	current, err := m.CurrentVersion(ctx, models.KindStudent, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(writers), current)
}

func TestCurrentVersionZeroWhenUntracked(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)

	current, err := m.CurrentVersion(context.Background(), models.KindStudent, "stu-404")
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestCheckConcurrentModificationMismatch(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "alice")
	require.NoError(t, err)
	_, err = m.BumpVersion(ctx, models.KindStudent, "stu-1", "alice")
	require.NoError(t, err)

	conflict, err := m.CheckConcurrentModification(ctx, models.KindStudent, "stu-1", 1, "bob")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictVersionMismatch, conflict.Kind)
	assert.True(t, conflict.Blocking())
	assert.Equal(t, int64(2), conflict.CurrentVersion)
}

func TestCheckConcurrentModificationRecentTouchWarns(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "alice")
	require.NoError(t, err)

	clock = t0.Add(10 * time.Second)
	conflict, err := m.CheckConcurrentModification(ctx, models.KindStudent, "stu-1", 1, "bob")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictRecentModification, conflict.Kind)
	assert.False(t, conflict.Blocking())

	// outside the window the warning disappears
	clock = t0.Add(2 * time.Minute)
	conflict, err = m.CheckConcurrentModification(ctx, models.KindStudent, "stu-1", 1, "bob")
	require.NoError(t, err)
	assert.Nil(t, conflict)

	// the actor's own recent write never warns
	clock = t0.Add(10 * time.Second)
	conflict, err = m.CheckConcurrentModification(ctx, models.KindStudent, "stu-1", 1, "alice")
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestLockLifecycle(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	lock, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userA")
	require.NoError(t, err)
	assert.Equal(t, "userA", lock.Holder)
	assert.Equal(t, t0.Add(5*time.Minute), lock.ExpiresAt)

	// userB is rejected one minute in
	clock = t0.Add(time.Minute)
	_, err = m.AcquireLock(ctx, models.KindGroup, "grp-1", "userB")
	var held *LockHeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, "userA", held.Held.Holder)

	// after expiry userB reclaims transparently
	clock = t0.Add(6 * time.Minute)
	lock, err = m.AcquireLock(ctx, models.KindGroup, "grp-1", "userB")
	require.NoError(t, err)
	assert.Equal(t, "userB", lock.Holder)
}

func TestLockRenewalBySameHolder(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userA")
	require.NoError(t, err)

	clock = t0.Add(2 * time.Minute)
	lock, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userA")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(7*time.Minute), lock.ExpiresAt)
}

func TestReleaseLockOnlyByHolder(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userA")
	require.NoError(t, err)

	err = m.ReleaseLock(ctx, models.KindGroup, "grp-1", "userB")
	var held *LockHeldError
	require.ErrorAs(t, err, &held)

	require.NoError(t, m.ReleaseLock(ctx, models.KindGroup, "grp-1", "userA"))
	live, err := m.IsLocked(ctx, models.KindGroup, "grp-1")
	require.NoError(t, err)
	assert.Nil(t, live)

	// releasing an absent lock is a no-op
	require.NoError(t, m.ReleaseLock(ctx, models.KindGroup, "grp-1", "userA"))
}

func TestCleanupExpiredLocks(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userA")
	require.NoError(t, err)
	_, err = m.AcquireLock(ctx, models.KindStudent, "stu-1", "userB")
	require.NoError(t, err)

	clock = t0.Add(10 * time.Minute)
	removed, err := m.CleanupExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = m.CleanupExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
