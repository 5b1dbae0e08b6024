package service

import (
	"context"

	"github.com/edupanel/attendance-core/internal/models"
)

// CreateStudent enrolls a student into an existing group.
func (s *Service) CreateStudent(ctx context.Context, candidate models.Student, snap models.Snapshot, actor string) models.MutationResult {
	if errs := s.engine.Student(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("student")
		s.metrics.ObserveMutation("student", "create", false)
		return failure(errs...)
	}
	if check := s.checker.CheckStudent(candidate, models.OpCreate, snap); !check.IsValid {
		s.metrics.ObserveMutation("student", "create", false)
		return failure(integrityErrors(check)...)
	}

	now := s.now().UTC()
	candidate.ID = s.newID()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	snap.Students = append(snap.Students, candidate)
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("student", "create", err)
	}
	entry := s.audit.LogCreate(ctx, models.KindStudent, candidate.ID, actor, candidate)
	return s.finish(ctx, models.KindStudent, candidate.ID, actor, "student", "create", candidate, entry, nil)
}

// UpdateStudent rewrites a student record under version control.
func (s *Service) UpdateStudent(ctx context.Context, candidate models.Student, snap models.Snapshot, actor string, expectedVersion int64) models.MutationResult {
	existing := snap.StudentByID(candidate.ID)
	if existing == nil {
		s.metrics.ObserveMutation("student", "update", false)
		return notFound(models.KindStudent, candidate.ID)
	}

	blocked, warning, err := s.checkVersion(ctx, models.KindStudent, candidate.ID, expectedVersion, actor)
	if err != nil {
		return s.storeFailure("student", "update", err)
	}
	if blocked != nil {
		s.metrics.ObserveMutation("student", "update", false)
		return *blocked
	}
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	if errs := s.engine.Student(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("student")
		s.metrics.ObserveMutation("student", "update", false)
		return failure(errs...)
	}
	if check := s.checker.CheckStudent(candidate, models.OpUpdate, snap); !check.IsValid {
		s.metrics.ObserveMutation("student", "update", false)
		return failure(integrityErrors(check)...)
	}

	before := *existing
	candidate.CreatedAt = existing.CreatedAt
	candidate.UpdatedAt = s.now().UTC()
	for i := range snap.Students {
		if snap.Students[i].ID == candidate.ID {
			snap.Students[i] = candidate
		}
	}
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("student", "update", err)
	}
	entry := s.audit.LogUpdate(ctx, models.KindStudent, candidate.ID, actor, before, candidate)
	return s.finish(ctx, models.KindStudent, candidate.ID, actor, "student", "update", candidate, entry, warnings)
}

// DeleteStudent removes a student. Absence records block the deletion unless
// the caller forces it or confirms a cascade.
func (s *Service) DeleteStudent(ctx context.Context, id string, snap models.Snapshot, actor string, opts models.DeleteOptions) models.MutationResult {
	existing := snap.StudentByID(id)
	if existing == nil {
		s.metrics.ObserveMutation("student", "delete", false)
		return notFound(models.KindStudent, id)
	}

	check := s.checker.CheckStudent(*existing, models.OpDelete, snap)
	preview := s.checker.PreviewCascade(models.KindStudent, id, snap)
	blocked, warnings := deleteGuard(check, opts, preview)
	if blocked != nil {
		s.metrics.ObserveMutation("student", "delete", false)
		return *blocked
	}

	cascading := opts.Cascade && !check.IsValid
	if cascading {
		snap = applyCascade(snap, preview)
	}
	snap.Students = keep(snap.Students, func(st models.Student) bool { return st.ID != id })

	result, err := s.deleteUnderLock(ctx, models.KindStudent, id, actor, snap, cascading, preview)
	if err != nil {
		return s.storeFailure("student", "delete", err)
	}
	if !result.Success {
		s.metrics.ObserveMutation("student", "delete", false)
		return result
	}
	return s.finishDelete(ctx, models.KindStudent, id, actor, "student", *existing, opts.Force, warnings)
}
