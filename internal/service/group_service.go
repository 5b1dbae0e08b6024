package service

import (
	"context"

	"github.com/edupanel/attendance-core/internal/models"
)

// CreateGroup adds a group under an existing program.
func (s *Service) CreateGroup(ctx context.Context, candidate models.Group, snap models.Snapshot, actor string) models.MutationResult {
	if errs := s.engine.Group(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("group")
		s.metrics.ObserveMutation("group", "create", false)
		return failure(errs...)
	}
	if check := s.checker.CheckGroup(candidate, models.OpCreate, snap); !check.IsValid {
		s.metrics.ObserveMutation("group", "create", false)
		return failure(integrityErrors(check)...)
	}

	now := s.now().UTC()
	candidate.ID = s.newID()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	snap.Groups = append(snap.Groups, candidate)
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("group", "create", err)
	}
	entry := s.audit.LogCreate(ctx, models.KindGroup, candidate.ID, actor, candidate)
	return s.finish(ctx, models.KindGroup, candidate.ID, actor, "group", "create", candidate, entry, nil)
}

// UpdateGroup renames or re-parents a group under version control.
func (s *Service) UpdateGroup(ctx context.Context, candidate models.Group, snap models.Snapshot, actor string, expectedVersion int64) models.MutationResult {
	existing := snap.GroupByID(candidate.ID)
	if existing == nil {
		s.metrics.ObserveMutation("group", "update", false)
		return notFound(models.KindGroup, candidate.ID)
	}

	blocked, warning, err := s.checkVersion(ctx, models.KindGroup, candidate.ID, expectedVersion, actor)
	if err != nil {
		return s.storeFailure("group", "update", err)
	}
	if blocked != nil {
		s.metrics.ObserveMutation("group", "update", false)
		return *blocked
	}
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	if errs := s.engine.Group(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("group")
		s.metrics.ObserveMutation("group", "update", false)
		return failure(errs...)
	}
	if check := s.checker.CheckGroup(candidate, models.OpUpdate, snap); !check.IsValid {
		s.metrics.ObserveMutation("group", "update", false)
		return failure(integrityErrors(check)...)
	}

	before := *existing
	candidate.CreatedAt = existing.CreatedAt
	candidate.UpdatedAt = s.now().UTC()
	for i := range snap.Groups {
		if snap.Groups[i].ID == candidate.ID {
			snap.Groups[i] = candidate
		}
	}
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("group", "update", err)
	}
	entry := s.audit.LogUpdate(ctx, models.KindGroup, candidate.ID, actor, before, candidate)
	return s.finish(ctx, models.KindGroup, candidate.ID, actor, "group", "update", candidate, entry, warnings)
}

// DeleteGroup removes a group. Enrolled students block the deletion unless
// the caller forces it or confirms a cascade; a forced delete leaves the
// students orphaned for the next integrity sweep to flag.
func (s *Service) DeleteGroup(ctx context.Context, id string, snap models.Snapshot, actor string, opts models.DeleteOptions) models.MutationResult {
	existing := snap.GroupByID(id)
	if existing == nil {
		s.metrics.ObserveMutation("group", "delete", false)
		return notFound(models.KindGroup, id)
	}

	check := s.checker.CheckGroup(*existing, models.OpDelete, snap)
	preview := s.checker.PreviewCascade(models.KindGroup, id, snap)
	blocked, warnings := deleteGuard(check, opts, preview)
	if blocked != nil {
		s.metrics.ObserveMutation("group", "delete", false)
		return *blocked
	}

	cascading := opts.Cascade && !check.IsValid
	if cascading {
		snap = applyCascade(snap, preview)
	}
	snap.Groups = keep(snap.Groups, func(g models.Group) bool { return g.ID != id })

	result, err := s.deleteUnderLock(ctx, models.KindGroup, id, actor, snap, cascading, preview)
	if err != nil {
		return s.storeFailure("group", "delete", err)
	}
	if !result.Success {
		s.metrics.ObserveMutation("group", "delete", false)
		return result
	}
	return s.finishDelete(ctx, models.KindGroup, id, actor, "group", *existing, opts.Force, warnings)
}
