package audit

import (
	"context"
	"fmt"

	"github.com/edupanel/attendance-core/internal/models"
)

// Query returns entries matching the filter, oldest first.
func (l *Logger) Query(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	entries, err := l.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	var out []models.AuditEntry
	for _, e := range entries {
		if q.Actor != "" && e.Actor != q.Actor {
			continue
		}
		if q.EntityKind != "" && e.EntityKind != q.EntityKind {
			continue
		}
		if q.EntityID != "" && e.EntityID != q.EntityID {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.SessionID != "" && e.SessionID != q.SessionID {
			continue
		}
		if !q.From.IsZero() && e.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.Timestamp.After(q.To) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Stats aggregates counts by action, entity type, actor and day.
func (l *Logger) Stats(ctx context.Context) (models.AuditStats, error) {
	entries, err := l.load(ctx)
	if err != nil {
		return models.AuditStats{}, fmt.Errorf("audit stats: %w", err)
	}
	stats := models.AuditStats{
		Total:    len(entries),
		ByAction: make(map[string]int),
		ByEntity: make(map[string]int),
		ByActor:  make(map[string]int),
		ByDay:    make(map[string]int),
	}
	for _, e := range entries {
		stats.ByAction[e.Action]++
		stats.ByEntity[string(e.EntityKind)]++
		stats.ByActor[e.Actor]++
		stats.ByDay[e.Timestamp.Format("2006-01-02")]++
	}
	return stats, nil
}

// Purge removes entries older than the given number of days and returns the
// count removed.
func (l *Logger) Purge(ctx context.Context, olderThanDays int) (int, error) {
	entries, err := l.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	cutoff := l.now().UTC().AddDate(0, 0, -olderThanDays)
	kept := entries[:0]
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.store.Set(ctx, l.key, kept); err != nil {
		return 0, fmt.Errorf("persist purged audit log: %w", err)
	}
	return removed, nil
}

// Clear removes the whole log.
func (l *Logger) Clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("clear audit log: %w", err)
	}
	return nil
}
