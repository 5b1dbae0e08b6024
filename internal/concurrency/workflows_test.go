package concurrency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/attendance-core/internal/models"
	appErrors "github.com/edupanel/attendance-core/pkg/errors"
)

func TestOptimisticSuccessBumpsVersion(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)

	result, version, err := Optimistic(context.Background(), m, models.KindStudent, "stu-1", "alice",
		func(ctx context.Context) (string, error) {
			return "mutated", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "mutated", result)
	assert.Equal(t, int64(1), version.Version)
}

func TestOptimisticRetriesThenSurfacesConflict(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	calls := 0
	_, _, err := Optimistic(ctx, m, models.KindStudent, "stu-1", "alice",
		func(ctx context.Context) (string, error) {
			calls++
			// another session commits between the read and the re-check
			_, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "bob")
			return "", err
		})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrVersionMismatch.Code))
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
}

func TestOptimisticRetriesAreObserved(t *testing.T) {
	clock := t0
	retries := 0
	m := newTestManager(&clock, WithRetryObserver(func() { retries++ }))

	_, _, err := Optimistic(context.Background(), m, models.KindStudent, "stu-1", "alice",
		func(ctx context.Context) (string, error) {
			_, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "bob")
			return "", err
		})
	require.Error(t, err)
	assert.Equal(t, 3, retries)
}

func TestOptimisticRecoversWhenInterferenceStops(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	calls := 0
	result, version, err := Optimistic(ctx, m, models.KindStudent, "stu-1", "alice",
		func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				if _, err := m.BumpVersion(ctx, models.KindStudent, "stu-1", "bob"); err != nil {
					return 0, err
				}
			}
			return calls, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2, result)
	assert.Equal(t, int64(2), version.Version)
}

func TestOptimisticMutationErrorIsNotRetried(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)

	calls := 0
	_, _, err := Optimistic(context.Background(), m, models.KindStudent, "stu-1", "alice",
		func(ctx context.Context) (string, error) {
			calls++
			return "", fmt.Errorf("boom")
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPessimisticHoldsAndReleasesLock(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, version, err := Pessimistic(ctx, m, models.KindGroup, "grp-1", "alice",
		func(ctx context.Context) (string, error) {
			live, err := m.IsLocked(ctx, models.KindGroup, "grp-1")
			require.NoError(t, err)
			require.NotNil(t, live)
			assert.Equal(t, "alice", live.Holder)
			return "done", nil
		})
	require.NoError(t, err)
	assert.Equal(t, int64(1), version.Version)

	live, err := m.IsLocked(ctx, models.KindGroup, "grp-1")
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestPessimisticFailsFastWhenContested(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userB")
	require.NoError(t, err)

	called := false
	_, _, err = Pessimistic(ctx, m, models.KindGroup, "grp-1", "alice",
		func(ctx context.Context) (string, error) {
			called = true
			return "", nil
		})
	var held *LockHeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, "userB", held.Held.Holder)
	assert.False(t, called)
}

func TestPessimisticReleasesLockOnMutationFailure(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, _, err := Pessimistic(ctx, m, models.KindGroup, "grp-1", "alice",
		func(ctx context.Context) (string, error) {
			return "", fmt.Errorf("mutation failed")
		})
	require.Error(t, err)

	live, err := m.IsLocked(ctx, models.KindGroup, "grp-1")
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestPessimisticRespectsLockExpiry(t *testing.T) {
	clock := t0
	m := newTestManager(&clock)
	ctx := context.Background()

	_, err := m.AcquireLock(ctx, models.KindGroup, "grp-1", "userB")
	require.NoError(t, err)

	clock = t0.Add(6 * time.Minute)
	_, _, err = Pessimistic(ctx, m, models.KindGroup, "grp-1", "alice",
		func(ctx context.Context) (string, error) { return "", nil })
	require.NoError(t, err)
}

func TestResolveStrategies(t *testing.T) {
	local := map[string]interface{}{"name": "Local", "email": "local@example.org"}
	remote := map[string]interface{}{"name": "Remote", "group_id": "grp-2"}

	got, err := Resolve(models.ResolutionAcceptLocal, local, remote)
	require.NoError(t, err)
	assert.Equal(t, local, got)

	got, err = Resolve(models.ResolutionAcceptRemote, local, remote)
	require.NoError(t, err)
	assert.Equal(t, remote, got)

	merged, err := Resolve(models.ResolutionMerge, local, remote)
	require.NoError(t, err)
	assert.Equal(t, "Local", merged["name"]) // overlap favors local
	assert.Equal(t, "local@example.org", merged["email"])
	assert.Equal(t, "grp-2", merged["group_id"])

	_, err = Resolve(models.ResolutionManual, local, remote)
	require.Error(t, err)

	_, err = Resolve(models.ResolutionStrategy("NOPE"), local, remote)
	require.Error(t, err)
}
