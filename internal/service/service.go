// Package service is the single write path of the attendance store. Every
// mutation flows through the same pipeline: concurrency check, validation,
// referential integrity, persistence, version bump, audit. Failures are folded
// into the returned MutationResult; the only errors surfaced through it are
// storage outages.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/audit"
	"github.com/edupanel/attendance-core/internal/concurrency"
	"github.com/edupanel/attendance-core/internal/integrity"
	"github.com/edupanel/attendance-core/internal/metrics"
	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/internal/validation"
	"github.com/edupanel/attendance-core/pkg/config"
	appErrors "github.com/edupanel/attendance-core/pkg/errors"
	"github.com/edupanel/attendance-core/pkg/kvstore"
)

// Deps carries the collaborators of the orchestrator. Store, Engine, Audit and
// Locks are required; the rest default sensibly.
type Deps struct {
	Store     kvstore.Store
	Namespace string
	Engine    *validation.Engine
	Checker   *integrity.Checker
	Audit     *audit.Logger
	Locks     *concurrency.Manager
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Imports   config.ImportConfig
	Absences  config.AbsenceConfig
}

// Service orchestrates entity mutations against the persisted snapshot.
type Service struct {
	store       kvstore.Store
	entitiesKey string
	engine      *validation.Engine
	checker     *integrity.Checker
	audit       *audit.Logger
	locks       *concurrency.Manager
	metrics     *metrics.Metrics
	logger      *zap.Logger
	imports     config.ImportConfig
	absences    config.AbsenceConfig
	now         func() time.Time
	newID       func() string
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides identifier generation, used by tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New constructs the orchestrator.
func New(deps Deps, opts ...Option) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Checker == nil {
		deps.Checker = integrity.NewChecker()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	s := &Service{
		store:       deps.Store,
		entitiesKey: kvstore.Key(deps.Namespace, "entities"),
		engine:      deps.Engine,
		checker:     deps.Checker,
		audit:       deps.Audit,
		locks:       deps.Locks,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		imports:     deps.Imports,
		absences:    deps.Absences,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSnapshot reads the persisted entity collections. A store that has never
// been written yields an empty snapshot, not an error.
func (s *Service) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.store.Get(ctx, s.entitiesKey, &snap); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return models.Snapshot{}, nil
		}
		return models.Snapshot{}, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code,
			appErrors.ErrStoreUnavailable.Status, "load entities")
	}
	return snap, nil
}

func (s *Service) persist(ctx context.Context, snap models.Snapshot) error {
	return s.store.Set(ctx, s.entitiesKey, snap)
}

// failure folds field errors into a failed result.
func failure(errs ...models.FieldError) models.MutationResult {
	return models.MutationResult{Success: false, Errors: errs}
}

func notFound(kind models.EntityKind, id string) models.MutationResult {
	return failure(models.FieldError{
		Field:   "id",
		Message: fmt.Sprintf("%s not found", kind),
		Value:   id,
	})
}

// storeFailure reports a persistence outage as a result. The mutation did not
// happen; the caller's snapshot is still authoritative.
func (s *Service) storeFailure(entity, operation string, err error) models.MutationResult {
	s.logger.Error("mutation aborted, store unavailable",
		zap.String("entity", entity),
		zap.String("operation", operation),
		zap.Error(err))
	s.metrics.ObserveMutation(entity, operation, false)
	return failure(models.FieldError{
		Field:   "store",
		Message: appErrors.ErrStoreUnavailable.Message,
	})
}

// checkVersion runs the concurrent-modification check when the caller supplied
// the version it last saw. It returns a blocking result, a warning, or
// neither.
func (s *Service) checkVersion(ctx context.Context, kind models.EntityKind, id string, expected int64, actor string) (*models.MutationResult, string, error) {
	if expected <= 0 || s.locks == nil {
		return nil, "", nil
	}
	conflict, err := s.locks.CheckConcurrentModification(ctx, kind, id, expected, actor)
	if err != nil {
		return nil, "", err
	}
	if conflict == nil {
		return nil, "", nil
	}
	if conflict.Blocking() {
		s.metrics.ObserveVersionConflict()
		res := failure(models.FieldError{
			Field:   "version",
			Message: conflict.Message,
			Value:   conflict.CurrentVersion,
		})
		return &res, "", nil
	}
	return nil, conflict.Message, nil
}

// integrityErrors flattens blocking conflicts into field errors.
func integrityErrors(res integrity.Result) []models.FieldError {
	out := make([]models.FieldError, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		fe := models.FieldError{Field: c.Field, Message: c.Message, Value: c.Value}
		if c.Count > 0 {
			fe.Value = c.Count
		}
		out = append(out, fe)
	}
	return out
}

// finish bumps the version, writes the audit entry and assembles the success
// result. Audit failure degrades to a nil entry, never to a failed mutation.
func (s *Service) finish(ctx context.Context, kind models.EntityKind, id, actor, entity, operation string, data interface{}, entry *models.AuditEntry, warnings []string) models.MutationResult {
	version, err := s.locks.BumpVersion(ctx, kind, id, actor)
	if err != nil {
		return s.storeFailure(entity, operation, err)
	}
	if entry == nil {
		s.metrics.ObserveAuditWriteFailure()
	}
	s.metrics.ObserveMutation(entity, operation, true)
	return models.MutationResult{
		Success:    true,
		Data:       data,
		Warnings:   warnings,
		AuditEntry: entry,
		Version:    version.Version,
	}
}
