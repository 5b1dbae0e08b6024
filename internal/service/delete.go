package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edupanel/attendance-core/internal/concurrency"
	"github.com/edupanel/attendance-core/internal/integrity"
	"github.com/edupanel/attendance-core/internal/models"
)

// deleteGuard applies force and cascade semantics to a delete blocked by
// dependent records. A nil result means the deletion may proceed with the
// returned warnings.
func deleteGuard(res integrity.Result, opts models.DeleteOptions, preview integrity.CascadePreview) (*models.MutationResult, []string) {
	if res.IsValid {
		return nil, nil
	}

	if opts.Cascade {
		if !opts.Confirmed {
			blocked := failure(models.FieldError{
				Field:   "confirmed",
				Message: "cascade deletion requires explicit confirmation",
				Value:   preview.Total(),
			})
			blocked.Warnings = preview.Warnings
			return &blocked, nil
		}
		return nil, preview.Warnings
	}

	if opts.Force {
		warnings := make([]string, 0, len(res.Conflicts))
		for _, c := range res.Conflicts {
			warnings = append(warnings, fmt.Sprintf("%d dependent %s left orphaned", c.Count, c.Field))
		}
		return nil, warnings
	}

	blocked := failure(integrityErrors(res)...)
	return &blocked, nil
}

func keep[T any](items []T, fn func(T) bool) []T {
	out := items[:0:0]
	for _, item := range items {
		if fn(item) {
			out = append(out, item)
		}
	}
	return out
}

// applyCascade removes every record the preview listed from the snapshot.
func applyCascade(snap models.Snapshot, preview integrity.CascadePreview) models.Snapshot {
	programs := idSet(preview.Programs, func(p models.Program) string { return p.ID })
	groups := idSet(preview.Groups, func(g models.Group) string { return g.ID })
	students := idSet(preview.Students, func(st models.Student) string { return st.ID })
	absences := idSet(preview.Absences, func(a models.AbsenceRecord) string { return a.ID })

	snap.Programs = keep(snap.Programs, func(p models.Program) bool { return !programs[p.ID] })
	snap.Groups = keep(snap.Groups, func(g models.Group) bool { return !groups[g.ID] })
	snap.Students = keep(snap.Students, func(st models.Student) bool { return !students[st.ID] })
	snap.Absences = keep(snap.Absences, func(a models.AbsenceRecord) bool { return !absences[a.ID] })
	return snap
}

func idSet[T any](items []T, id func(T) string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[id(item)] = true
	}
	return set
}

// dropCascadeVersions forgets the version records of everything the cascade
// removed. Best effort: a failed drop leaves a stale version entry behind,
// which is harmless for deleted ids.
func (s *Service) dropCascadeVersions(ctx context.Context, preview integrity.CascadePreview) {
	for _, p := range preview.Programs {
		_ = s.locks.DropVersion(ctx, models.KindProgram, p.ID)
	}
	for _, g := range preview.Groups {
		_ = s.locks.DropVersion(ctx, models.KindGroup, g.ID)
	}
	for _, st := range preview.Students {
		_ = s.locks.DropVersion(ctx, models.KindStudent, st.ID)
	}
	for _, a := range preview.Absences {
		_ = s.locks.DropVersion(ctx, models.KindAbsence, a.ID)
	}
}

// deleteUnderLock persists the post-delete snapshot under an exclusive
// advisory lock on the entity being removed, so a session editing the same
// record fails fast instead of writing into a deleted row. A contested lock
// comes back as a failed result, not an error.
func (s *Service) deleteUnderLock(ctx context.Context, kind models.EntityKind, id, actor string, snap models.Snapshot, cascading bool, preview integrity.CascadePreview) (models.MutationResult, error) {
	_, _, err := concurrency.Pessimistic(ctx, s.locks, kind, id, actor, func(ctx context.Context) (struct{}, error) {
		if err := s.persist(ctx, snap); err != nil {
			return struct{}{}, err
		}
		if cascading {
			s.dropCascadeVersions(ctx, preview)
		}
		return struct{}{}, nil
	})
	if err != nil {
		var held *concurrency.LockHeldError
		if errors.As(err, &held) {
			s.metrics.ObserveLockContention()
			return failure(models.FieldError{
				Field:   "lock",
				Message: held.Error(),
				Value:   held.Held.Holder,
			}), nil
		}
		return models.MutationResult{}, err
	}
	return models.MutationResult{Success: true}, nil
}

// finishDelete drops the version record, writes the audit entry and assembles
// the success result.
func (s *Service) finishDelete(ctx context.Context, kind models.EntityKind, id, actor, entity string, removed interface{}, forced bool, warnings []string) models.MutationResult {
	if err := s.locks.DropVersion(ctx, kind, id); err != nil {
		return s.storeFailure(entity, "delete", err)
	}
	entry := s.audit.LogDelete(ctx, kind, id, actor, removed, forced)
	if entry == nil {
		s.metrics.ObserveAuditWriteFailure()
	}
	s.metrics.ObserveMutation(entity, "delete", true)
	return models.MutationResult{
		Success:    true,
		Data:       removed,
		Warnings:   warnings,
		AuditEntry: entry,
	}
}
