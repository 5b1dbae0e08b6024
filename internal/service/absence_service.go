package service

import (
	"context"

	"github.com/edupanel/attendance-core/internal/models"
	appErrors "github.com/edupanel/attendance-core/pkg/errors"
)

// RecordAbsence creates an absence record. The recording actor becomes the
// only one allowed to roll it back, and only until the rollback deadline.
func (s *Service) RecordAbsence(ctx context.Context, candidate models.AbsenceRecord, snap models.Snapshot, actor string) models.MutationResult {
	if errs := s.engine.Absence(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("absence")
		s.metrics.ObserveMutation("absence", "create", false)
		return failure(errs...)
	}
	if check := s.checker.CheckAbsence(candidate, models.OpCreate, snap); !check.IsValid {
		s.metrics.ObserveMutation("absence", "create", false)
		return failure(integrityErrors(check)...)
	}

	now := s.now().UTC()
	candidate.ID = s.newID()
	candidate.RecordedBy = actor
	candidate.RecordedAt = now
	candidate.RollbackDeadline = now.Add(s.absences.RollbackWindow)
	candidate.RollbackOpen = true

	snap.Absences = append(snap.Absences, candidate)
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("absence", "create", err)
	}
	entry := s.audit.LogCreate(ctx, models.KindAbsence, candidate.ID, actor, candidate)
	return s.finish(ctx, models.KindAbsence, candidate.ID, actor, "absence", "create", candidate, entry, nil)
}

// UpdateAbsence corrects an absence record under version control. Recording
// metadata and the rollback window are immutable; only the date, duration and
// justification can change.
func (s *Service) UpdateAbsence(ctx context.Context, candidate models.AbsenceRecord, snap models.Snapshot, actor string, expectedVersion int64) models.MutationResult {
	existing := snap.AbsenceByID(candidate.ID)
	if existing == nil {
		s.metrics.ObserveMutation("absence", "update", false)
		return notFound(models.KindAbsence, candidate.ID)
	}

	blocked, warning, err := s.checkVersion(ctx, models.KindAbsence, candidate.ID, expectedVersion, actor)
	if err != nil {
		return s.storeFailure("absence", "update", err)
	}
	if blocked != nil {
		s.metrics.ObserveMutation("absence", "update", false)
		return *blocked
	}
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	candidate.StudentID = existing.StudentID
	candidate.RecordedBy = existing.RecordedBy
	candidate.RecordedAt = existing.RecordedAt
	candidate.RollbackDeadline = existing.RollbackDeadline
	candidate.RollbackOpen = existing.RollbackOpen

	if errs := s.engine.Absence(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("absence")
		s.metrics.ObserveMutation("absence", "update", false)
		return failure(errs...)
	}
	if check := s.checker.CheckAbsence(candidate, models.OpUpdate, snap); !check.IsValid {
		s.metrics.ObserveMutation("absence", "update", false)
		return failure(integrityErrors(check)...)
	}

	before := *existing
	for i := range snap.Absences {
		if snap.Absences[i].ID == candidate.ID {
			snap.Absences[i] = candidate
		}
	}
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("absence", "update", err)
	}
	entry := s.audit.LogUpdate(ctx, models.KindAbsence, candidate.ID, actor, before, candidate)
	return s.finish(ctx, models.KindAbsence, candidate.ID, actor, "absence", "update", candidate, entry, warnings)
}

// DeleteAbsence removes an absence record outright. Unlike rollback this is an
// administrative correction: any actor may do it at any time, and it is
// audited as a deletion.
func (s *Service) DeleteAbsence(ctx context.Context, id string, snap models.Snapshot, actor string) models.MutationResult {
	existing := snap.AbsenceByID(id)
	if existing == nil {
		s.metrics.ObserveMutation("absence", "delete", false)
		return notFound(models.KindAbsence, id)
	}

	snap.Absences = keep(snap.Absences, func(a models.AbsenceRecord) bool { return a.ID != id })
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("absence", "delete", err)
	}
	return s.finishDelete(ctx, models.KindAbsence, id, actor, "absence", *existing, false, nil)
}

// RollbackAbsence undoes a recording mistake. Only the original recorder may
// roll back, and only while the rollback window is open; everything else goes
// through DeleteAbsence.
func (s *Service) RollbackAbsence(ctx context.Context, id string, snap models.Snapshot, actor string) models.MutationResult {
	existing := snap.AbsenceByID(id)
	if existing == nil {
		s.metrics.ObserveMutation("absence", "rollback", false)
		return notFound(models.KindAbsence, id)
	}

	if existing.RecordedBy != actor {
		s.metrics.ObserveMutation("absence", "rollback", false)
		return failure(models.FieldError{
			Field:   "recorded_by",
			Message: appErrors.ErrRollbackForbidden.Message,
			Value:   existing.RecordedBy,
		})
	}
	if !existing.RollbackOpen || s.now().UTC().After(existing.RollbackDeadline) {
		s.metrics.ObserveMutation("absence", "rollback", false)
		return failure(models.FieldError{
			Field:   "rollback_deadline",
			Message: appErrors.ErrRollbackExpired.Message,
			Value:   existing.RollbackDeadline,
		})
	}

	snap.Absences = keep(snap.Absences, func(a models.AbsenceRecord) bool { return a.ID != id })
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("absence", "rollback", err)
	}
	if err := s.locks.DropVersion(ctx, models.KindAbsence, id); err != nil {
		return s.storeFailure("absence", "rollback", err)
	}
	entry := s.audit.LogRollback(ctx, id, actor, *existing)
	if entry == nil {
		s.metrics.ObserveAuditWriteFailure()
	}
	s.metrics.ObserveMutation("absence", "rollback", true)
	return models.MutationResult{
		Success:    true,
		Data:       *existing,
		AuditEntry: entry,
	}
}
