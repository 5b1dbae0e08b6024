package concurrency

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/models"
	appErrors "github.com/edupanel/attendance-core/pkg/errors"
)

// Optimistic runs the caller's mutation under version comparison. The closure
// may run more than once: after it returns, the version is re-checked, and a
// hard conflict triggers a bounded retry with increasing backoff before
// surfacing a conflict error. On success the version is bumped and returned.
func Optimistic[T any](ctx context.Context, m *Manager, kind models.EntityKind, id, actor string, fn func(ctx context.Context) (T, error)) (T, models.EntityVersion, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		seen, err := m.CurrentVersion(ctx, kind, id)
		if err != nil {
			return zero, models.EntityVersion{}, err
		}

		result, err := fn(ctx)
		if err != nil {
			return zero, models.EntityVersion{}, err
		}

		conflict, err := m.CheckConcurrentModification(ctx, kind, id, seen, actor)
		if err != nil {
			return zero, models.EntityVersion{}, err
		}
		if conflict == nil || !conflict.Blocking() {
			version, err := m.BumpVersion(ctx, kind, id, actor)
			if err != nil {
				return zero, models.EntityVersion{}, err
			}
			return result, version, nil
		}

		if attempt >= m.cfg.MaxRetries {
			return zero, models.EntityVersion{}, appErrors.Wrap(
				fmt.Errorf("%s", conflict.Message),
				appErrors.ErrVersionMismatch.Code,
				appErrors.ErrVersionMismatch.Status,
				fmt.Sprintf("conflict persisted after %d retries", m.cfg.MaxRetries),
			)
		}

		if m.onRetry != nil {
			m.onRetry()
		}
		m.logger.Debug("optimistic retry",
			zap.String("entity", entityKey(kind, id)),
			zap.Int("attempt", attempt+1),
			zap.String("conflict", conflict.Message))

		backoff := m.cfg.RetryBackoff * time.Duration(attempt+1)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, models.EntityVersion{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// Pessimistic runs the caller's mutation under an exclusive advisory lock.
// Acquisition fails fast if another actor holds the lock; there are no
// retries. The lock is released even when the mutation fails.
func Pessimistic[T any](ctx context.Context, m *Manager, kind models.EntityKind, id, actor string, fn func(ctx context.Context) (T, error)) (T, models.EntityVersion, error) {
	var zero T

	if _, err := m.AcquireLock(ctx, kind, id, actor); err != nil {
		return zero, models.EntityVersion{}, err
	}
	defer func() {
		if err := m.ReleaseLock(ctx, kind, id, actor); err != nil {
			m.logger.Warn("lock release failed",
				zap.String("entity", entityKey(kind, id)),
				zap.Error(err))
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		return zero, models.EntityVersion{}, err
	}

	version, err := m.BumpVersion(ctx, kind, id, actor)
	if err != nil {
		return zero, models.EntityVersion{}, err
	}
	return result, version, nil
}

// Resolve executes the caller-chosen conflict resolution strategy over two
// field maps. The manager makes no policy choice itself: MANUAL always comes
// back as an error for the UI to handle.
func Resolve(strategy models.ResolutionStrategy, local, remote map[string]interface{}) (map[string]interface{}, error) {
	switch strategy {
	case models.ResolutionAcceptLocal:
		return local, nil
	case models.ResolutionAcceptRemote:
		return remote, nil
	case models.ResolutionMerge:
		merged := make(map[string]interface{}, len(remote)+len(local))
		for field, value := range remote {
			merged[field] = value
		}
		// overlapping fields favor the local change
		for field, value := range local {
			merged[field] = value
		}
		return merged, nil
	case models.ResolutionManual:
		return nil, appErrors.Clone(appErrors.ErrConflict, "conflict deferred to manual resolution")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resolution strategy %q", strategy))
	}
}
