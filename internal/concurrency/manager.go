// Package concurrency tracks entity versions and advisory locks in the
// persisted store. Multiple UI sessions race against the same store; version
// comparison and locking are the only defenses, so every mutation of the
// version and lock maps goes through the Manager.
package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/kvstore"
)

// LockHeldError is returned when an unexpired lock is held by another actor.
type LockHeldError struct {
	Held models.Lock
}

// Error implements the error interface.
func (e *LockHeldError) Error() string {
	return fmt.Sprintf("locked by %s until %s", e.Held.Holder, e.Held.ExpiresAt.Format(time.RFC3339))
}

// Manager owns the version map and the lock map. A single mutex serializes
// the load-modify-persist sequences so in-process callers cannot interleave.
type Manager struct {
	mu          sync.Mutex
	store       kvstore.Store
	versionsKey string
	locksKey    string
	cfg         config.ConcurrencyConfig
	logger      *zap.Logger
	now         func() time.Time
	onRetry     func()
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRetryObserver registers a callback invoked once per optimistic retry,
// used to feed the retry counter.
func WithRetryObserver(fn func()) Option {
	return func(m *Manager) {
		m.onRetry = fn
	}
}

// NewManager constructs a concurrency manager on top of the store.
func NewManager(store kvstore.Store, namespace string, cfg config.ConcurrencyConfig, zlog *zap.Logger, opts ...Option) *Manager {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Minute
	}
	if cfg.RecentModification <= 0 {
		cfg.RecentModification = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	m := &Manager{
		store:       store,
		versionsKey: kvstore.Key(namespace, "versions"),
		locksKey:    kvstore.Key(namespace, "locks"),
		cfg:         cfg,
		logger:      zlog,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func entityKey(kind models.EntityKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// CurrentVersion returns the stored version of an entity, or zero when the
// entity has never been mutated.
func (m *Manager) CurrentVersion(ctx context.Context, kind models.EntityKind, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions, err := m.loadVersions(ctx)
	if err != nil {
		return 0, err
	}
	return versions[entityKey(kind, id)].Version, nil
}

// BumpVersion increments and stamps the entity version, creating it at 1 on
// first touch. The version never decreases.
func (m *Manager) BumpVersion(ctx context.Context, kind models.EntityKind, id, actor string) (models.EntityVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions, err := m.loadVersions(ctx)
	if err != nil {
		return models.EntityVersion{}, err
	}
	key := entityKey(kind, id)
	next := models.EntityVersion{
		EntityKind:     kind,
		EntityID:       id,
		Version:        versions[key].Version + 1,
		LastModified:   m.now().UTC(),
		LastModifiedBy: actor,
	}
	versions[key] = next
	if err := m.store.Set(ctx, m.versionsKey, versions); err != nil {
		return models.EntityVersion{}, fmt.Errorf("persist versions: %w", err)
	}
	return next, nil
}

// DropVersion forgets the version record of a deleted entity.
func (m *Manager) DropVersion(ctx context.Context, kind models.EntityKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions, err := m.loadVersions(ctx)
	if err != nil {
		return err
	}
	key := entityKey(kind, id)
	if _, ok := versions[key]; !ok {
		return nil
	}
	delete(versions, key)
	if err := m.store.Set(ctx, m.versionsKey, versions); err != nil {
		return fmt.Errorf("persist versions: %w", err)
	}
	return nil
}

// CheckConcurrentModification compares the version the caller last saw with
// the stored one. A mismatch is a hard conflict. Matching versions still warn
// when another actor touched the entity inside the recent-modification
// window; the warning does not block.
func (m *Manager) CheckConcurrentModification(ctx context.Context, kind models.EntityKind, id string, expected int64, actor string) (*models.ConcurrencyConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions, err := m.loadVersions(ctx)
	if err != nil {
		return nil, err
	}
	current := versions[entityKey(kind, id)]
	if current.Version != expected {
		return &models.ConcurrencyConflict{
			Kind:            models.ConflictVersionMismatch,
			EntityKind:      kind,
			EntityID:        id,
			ExpectedVersion: expected,
			CurrentVersion:  current.Version,
			LastModifiedBy:  current.LastModifiedBy,
			Message:         fmt.Sprintf("expected version %d but found %d", expected, current.Version),
		}, nil
	}
	if current.Version > 0 && current.LastModifiedBy != actor &&
		m.now().Sub(current.LastModified) <= m.cfg.RecentModification {
		return &models.ConcurrencyConflict{
			Kind:           models.ConflictRecentModification,
			EntityKind:     kind,
			EntityID:       id,
			CurrentVersion: current.Version,
			LastModifiedBy: current.LastModifiedBy,
			Message:        fmt.Sprintf("%s modified this record moments ago", current.LastModifiedBy),
		}, nil
	}
	return nil, nil
}

// AcquireLock takes the advisory lock for the holder. An unexpired lock held
// by someone else rejects the attempt with a LockHeldError; re-acquiring
// one's own lock renews it; an expired lock is reclaimed transparently.
func (m *Manager) AcquireLock(ctx context.Context, kind models.EntityKind, id, holder string) (*models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	locks, err := m.loadLocks(ctx)
	if err != nil {
		return nil, err
	}
	key := entityKey(kind, id)
	now := m.now().UTC()
	if held, ok := locks[key]; ok && !held.Expired(now) && held.Holder != holder {
		return nil, &LockHeldError{Held: held}
	}
	lock := models.Lock{
		EntityKind: kind,
		EntityID:   id,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(m.cfg.LockTimeout),
	}
	locks[key] = lock
	if err := m.store.Set(ctx, m.locksKey, locks); err != nil {
		return nil, fmt.Errorf("persist locks: %w", err)
	}
	return &lock, nil
}

// ReleaseLock frees the lock. Only its holder may release it; releasing an
// absent lock is a no-op.
func (m *Manager) ReleaseLock(ctx context.Context, kind models.EntityKind, id, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	locks, err := m.loadLocks(ctx)
	if err != nil {
		return err
	}
	key := entityKey(kind, id)
	held, ok := locks[key]
	if !ok {
		return nil
	}
	if held.Holder != holder && !held.Expired(m.now().UTC()) {
		return &LockHeldError{Held: held}
	}
	delete(locks, key)
	if err := m.store.Set(ctx, m.locksKey, locks); err != nil {
		return fmt.Errorf("persist locks: %w", err)
	}
	return nil
}

// IsLocked returns the live lock on the entity, if any.
func (m *Manager) IsLocked(ctx context.Context, kind models.EntityKind, id string) (*models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	locks, err := m.loadLocks(ctx)
	if err != nil {
		return nil, err
	}
	held, ok := locks[entityKey(kind, id)]
	if !ok || held.Expired(m.now().UTC()) {
		return nil, nil
	}
	return &held, nil
}

// CleanupExpiredLocks sweeps every timed-out lock and returns the count
// removed.
func (m *Manager) CleanupExpiredLocks(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	locks, err := m.loadLocks(ctx)
	if err != nil {
		return 0, err
	}
	now := m.now().UTC()
	removed := 0
	for key, lock := range locks {
		if lock.Expired(now) {
			delete(locks, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := m.store.Set(ctx, m.locksKey, locks); err != nil {
		return 0, fmt.Errorf("persist locks: %w", err)
	}
	m.logger.Debug("expired locks reclaimed", zap.Int("count", removed))
	return removed, nil
}

func (m *Manager) loadVersions(ctx context.Context) (map[string]models.EntityVersion, error) {
	versions := make(map[string]models.EntityVersion)
	if err := m.store.Get(ctx, m.versionsKey, &versions); err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, fmt.Errorf("load versions: %w", err)
	}
	return versions, nil
}

func (m *Manager) loadLocks(ctx context.Context) (map[string]models.Lock, error) {
	locks := make(map[string]models.Lock)
	if err := m.store.Get(ctx, m.locksKey, &locks); err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, fmt.Errorf("load locks: %w", err)
	}
	return locks, nil
}
