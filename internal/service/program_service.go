package service

import (
	"context"

	"github.com/edupanel/attendance-core/internal/models"
)

// CreateProgram adds a program under an existing sector.
func (s *Service) CreateProgram(ctx context.Context, candidate models.Program, snap models.Snapshot, actor string) models.MutationResult {
	if errs := s.engine.Program(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("program")
		s.metrics.ObserveMutation("program", "create", false)
		return failure(errs...)
	}
	if check := s.checker.CheckProgram(candidate, models.OpCreate, snap); !check.IsValid {
		s.metrics.ObserveMutation("program", "create", false)
		return failure(integrityErrors(check)...)
	}

	now := s.now().UTC()
	candidate.ID = s.newID()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	snap.Programs = append(snap.Programs, candidate)
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("program", "create", err)
	}
	entry := s.audit.LogCreate(ctx, models.KindProgram, candidate.ID, actor, candidate)
	return s.finish(ctx, models.KindProgram, candidate.ID, actor, "program", "create", candidate, entry, nil)
}

// UpdateProgram renames or re-parents a program under version control.
func (s *Service) UpdateProgram(ctx context.Context, candidate models.Program, snap models.Snapshot, actor string, expectedVersion int64) models.MutationResult {
	existing := snap.ProgramByID(candidate.ID)
	if existing == nil {
		s.metrics.ObserveMutation("program", "update", false)
		return notFound(models.KindProgram, candidate.ID)
	}

	blocked, warning, err := s.checkVersion(ctx, models.KindProgram, candidate.ID, expectedVersion, actor)
	if err != nil {
		return s.storeFailure("program", "update", err)
	}
	if blocked != nil {
		s.metrics.ObserveMutation("program", "update", false)
		return *blocked
	}
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	if errs := s.engine.Program(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("program")
		s.metrics.ObserveMutation("program", "update", false)
		return failure(errs...)
	}
	if check := s.checker.CheckProgram(candidate, models.OpUpdate, snap); !check.IsValid {
		s.metrics.ObserveMutation("program", "update", false)
		return failure(integrityErrors(check)...)
	}

	before := *existing
	candidate.CreatedAt = existing.CreatedAt
	candidate.UpdatedAt = s.now().UTC()
	for i := range snap.Programs {
		if snap.Programs[i].ID == candidate.ID {
			snap.Programs[i] = candidate
		}
	}
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("program", "update", err)
	}
	entry := s.audit.LogUpdate(ctx, models.KindProgram, candidate.ID, actor, before, candidate)
	return s.finish(ctx, models.KindProgram, candidate.ID, actor, "program", "update", candidate, entry, warnings)
}

// DeleteProgram removes a program. Dependent groups block the deletion unless
// the caller forces it or confirms a cascade.
func (s *Service) DeleteProgram(ctx context.Context, id string, snap models.Snapshot, actor string, opts models.DeleteOptions) models.MutationResult {
	existing := snap.ProgramByID(id)
	if existing == nil {
		s.metrics.ObserveMutation("program", "delete", false)
		return notFound(models.KindProgram, id)
	}

	check := s.checker.CheckProgram(*existing, models.OpDelete, snap)
	preview := s.checker.PreviewCascade(models.KindProgram, id, snap)
	blocked, warnings := deleteGuard(check, opts, preview)
	if blocked != nil {
		s.metrics.ObserveMutation("program", "delete", false)
		return *blocked
	}

	cascading := opts.Cascade && !check.IsValid
	if cascading {
		snap = applyCascade(snap, preview)
	}
	snap.Programs = keep(snap.Programs, func(p models.Program) bool { return p.ID != id })

	result, err := s.deleteUnderLock(ctx, models.KindProgram, id, actor, snap, cascading, preview)
	if err != nil {
		return s.storeFailure("program", "delete", err)
	}
	if !result.Success {
		s.metrics.ObserveMutation("program", "delete", false)
		return result
	}
	return s.finishDelete(ctx, models.KindProgram, id, actor, "program", *existing, opts.Force, warnings)
}
