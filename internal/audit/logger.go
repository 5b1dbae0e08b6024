// Package audit maintains the append-only trail of entity mutations. The log
// is best-effort: a storage failure is reported to the caller as a nil entry
// and never aborts the business operation that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/kvstore"
)

// sensitiveFields are omitted from before/after snapshots in update diffs.
var sensitiveFields = map[string]bool{
	"password":    true,
	"credentials": true,
	"token":       true,
	"secret":      true,
}

// Logger appends immutable entries to a capped, store-backed list.
type Logger struct {
	store      kvstore.Store
	key        string
	maxEntries int
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	sessionID string
}

// Option adjusts logger construction.
type Option func(*Logger)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger constructs an audit logger writing under the given namespace.
func NewLogger(store kvstore.Store, namespace string, cfg config.AuditConfig, zlog *zap.Logger, opts ...Option) *Logger {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	l := &Logger{
		store:      store,
		key:        kvstore.Key(namespace, "audit"),
		maxEntries: maxEntries,
		logger:     zlog,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SessionID returns the persistent session identifier, creating it lazily on
// first use and reusing it for the logger's lifetime.
func (l *Logger) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessionID == "" {
		l.sessionID = uuid.NewString()
	}
	return l.sessionID
}

// Log appends one entry. On storage failure it returns nil: audit is not
// transactional with the mutation it describes.
func (l *Logger) Log(ctx context.Context, action string, kind models.EntityKind, entityID, actor string, details map[string]interface{}) *models.AuditEntry {
	entry := models.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  l.now().UTC(),
		Action:     action,
		EntityKind: kind,
		EntityID:   entityID,
		Actor:      actor,
		Details:    details,
		SessionID:  l.SessionID(),
	}

	entries, err := l.load(ctx)
	if err != nil {
		l.logger.Warn("audit load failed, entry dropped", zap.String("action", action), zap.Error(err))
		return nil
	}
	entries = append(entries, entry)
	if len(entries) > l.maxEntries {
		entries = entries[len(entries)-l.maxEntries:]
	}
	if err := l.store.Set(ctx, l.key, entries); err != nil {
		l.logger.Warn("audit write failed, entry dropped", zap.String("action", action), zap.Error(err))
		return nil
	}
	return &entry
}

// LogCreate records a creation with the new record as snapshot.
func (l *Logger) LogCreate(ctx context.Context, kind models.EntityKind, entityID, actor string, record interface{}) *models.AuditEntry {
	return l.Log(ctx, models.AuditActionCreate, kind, entityID, actor, map[string]interface{}{
		"after": redact(record),
	})
}

// LogUpdate records an update with a field-level diff of the two snapshots.
func (l *Logger) LogUpdate(ctx context.Context, kind models.EntityKind, entityID, actor string, before, after interface{}) *models.AuditEntry {
	return l.Log(ctx, models.AuditActionUpdate, kind, entityID, actor, map[string]interface{}{
		"changes": Diff(before, after),
	})
}

// LogDelete records a deletion with the removed record as snapshot.
func (l *Logger) LogDelete(ctx context.Context, kind models.EntityKind, entityID, actor string, record interface{}, forced bool) *models.AuditEntry {
	details := map[string]interface{}{"before": redact(record)}
	if forced {
		details["forced"] = true
	}
	return l.Log(ctx, models.AuditActionDelete, kind, entityID, actor, details)
}

// LogRollback records an absence rollback.
func (l *Logger) LogRollback(ctx context.Context, entityID, actor string, record interface{}) *models.AuditEntry {
	return l.Log(ctx, models.AuditActionRollback, models.KindAbsence, entityID, actor, map[string]interface{}{
		"before": redact(record),
	})
}

// Diff computes a field-level comparison of two snapshots, omitting sensitive
// fields from both sides. Values are compared through their JSON projection.
func Diff(before, after interface{}) map[string]map[string]interface{} {
	b := redact(before)
	a := redact(after)
	changes := make(map[string]map[string]interface{})
	for field, oldVal := range b {
		newVal, ok := a[field]
		if !ok {
			changes[field] = map[string]interface{}{"from": oldVal, "to": nil}
			continue
		}
		if !jsonEqual(oldVal, newVal) {
			changes[field] = map[string]interface{}{"from": oldVal, "to": newVal}
		}
	}
	for field, newVal := range a {
		if _, ok := b[field]; !ok {
			changes[field] = map[string]interface{}{"from": nil, "to": newVal}
		}
	}
	return changes
}

func redact(record interface{}) map[string]interface{} {
	raw, err := json.Marshal(record)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	for field := range m {
		if sensitiveFields[strings.ToLower(field)] {
			delete(m, field)
		}
	}
	return m
}

func jsonEqual(a, b interface{}) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}

func (l *Logger) load(ctx context.Context) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := l.store.Get(ctx, l.key, &entries); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}
