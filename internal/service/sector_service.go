package service

import (
	"context"

	"github.com/edupanel/attendance-core/internal/models"
)

// CreateSector adds a root sector.
func (s *Service) CreateSector(ctx context.Context, candidate models.Sector, snap models.Snapshot, actor string) models.MutationResult {
	if errs := s.engine.Sector(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("sector")
		s.metrics.ObserveMutation("sector", "create", false)
		return failure(errs...)
	}

	now := s.now().UTC()
	candidate.ID = s.newID()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	snap.Sectors = append(snap.Sectors, candidate)
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("sector", "create", err)
	}
	entry := s.audit.LogCreate(ctx, models.KindSector, candidate.ID, actor, candidate)
	return s.finish(ctx, models.KindSector, candidate.ID, actor, "sector", "create", candidate, entry, nil)
}

// UpdateSector renames a sector under version control.
func (s *Service) UpdateSector(ctx context.Context, candidate models.Sector, snap models.Snapshot, actor string, expectedVersion int64) models.MutationResult {
	existing := snap.SectorByID(candidate.ID)
	if existing == nil {
		s.metrics.ObserveMutation("sector", "update", false)
		return notFound(models.KindSector, candidate.ID)
	}

	blocked, warning, err := s.checkVersion(ctx, models.KindSector, candidate.ID, expectedVersion, actor)
	if err != nil {
		return s.storeFailure("sector", "update", err)
	}
	if blocked != nil {
		s.metrics.ObserveMutation("sector", "update", false)
		return *blocked
	}
	var warnings []string
	if warning != "" {
		warnings = append(warnings, warning)
	}

	if errs := s.engine.Sector(candidate, snap); len(errs) > 0 {
		s.metrics.ObserveValidationFailure("sector")
		s.metrics.ObserveMutation("sector", "update", false)
		return failure(errs...)
	}

	before := *existing
	candidate.CreatedAt = existing.CreatedAt
	candidate.UpdatedAt = s.now().UTC()
	for i := range snap.Sectors {
		if snap.Sectors[i].ID == candidate.ID {
			snap.Sectors[i] = candidate
		}
	}
	if err := s.persist(ctx, snap); err != nil {
		return s.storeFailure("sector", "update", err)
	}
	entry := s.audit.LogUpdate(ctx, models.KindSector, candidate.ID, actor, before, candidate)
	return s.finish(ctx, models.KindSector, candidate.ID, actor, "sector", "update", candidate, entry, warnings)
}

// DeleteSector removes a sector. Dependent programs block the deletion unless
// the caller forces it or confirms a cascade.
func (s *Service) DeleteSector(ctx context.Context, id string, snap models.Snapshot, actor string, opts models.DeleteOptions) models.MutationResult {
	existing := snap.SectorByID(id)
	if existing == nil {
		s.metrics.ObserveMutation("sector", "delete", false)
		return notFound(models.KindSector, id)
	}

	check := s.checker.CheckSector(*existing, models.OpDelete, snap)
	preview := s.checker.PreviewCascade(models.KindSector, id, snap)
	blocked, warnings := deleteGuard(check, opts, preview)
	if blocked != nil {
		s.metrics.ObserveMutation("sector", "delete", false)
		return *blocked
	}

	cascading := opts.Cascade && !check.IsValid
	if cascading {
		snap = applyCascade(snap, preview)
	}
	snap.Sectors = keep(snap.Sectors, func(sec models.Sector) bool { return sec.ID != id })

	result, err := s.deleteUnderLock(ctx, models.KindSector, id, actor, snap, cascading, preview)
	if err != nil {
		return s.storeFailure("sector", "delete", err)
	}
	if !result.Success {
		s.metrics.ObserveMutation("sector", "delete", false)
		return result
	}
	return s.finishDelete(ctx, models.KindSector, id, actor, "sector", *existing, opts.Force, warnings)
}
