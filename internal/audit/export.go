package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/export"
)

var exportHeaders = []string{"id", "timestamp", "action", "entity_kind", "entity_id", "actor", "session_id", "details"}

// ExportCSV renders the whole log, oldest first, as delimited tabular text.
func (l *Logger) ExportCSV(ctx context.Context) ([]byte, error) {
	dataset, err := l.dataset(ctx)
	if err != nil {
		return nil, err
	}
	return export.NewCSVExporter().Render(dataset)
}

// ExportPDF renders the whole log as a structured document.
func (l *Logger) ExportPDF(ctx context.Context, title string) ([]byte, error) {
	dataset, err := l.dataset(ctx)
	if err != nil {
		return nil, err
	}
	return export.NewPDFExporter().Render(dataset, title)
}

// ParseCSV reads an ExportCSV payload back into an ordered entry list.
func ParseCSV(data []byte) ([]models.AuditEntry, error) {
	dataset, err := export.NewCSVExporter().Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse audit export: %w", err)
	}
	entries := make([]models.AuditEntry, 0, len(dataset.Rows))
	for i, row := range dataset.Rows {
		ts, err := time.Parse(time.RFC3339Nano, row["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q: %w", i+1, row["timestamp"], err)
		}
		entry := models.AuditEntry{
			ID:         row["id"],
			Timestamp:  ts,
			Action:     row["action"],
			EntityKind: models.EntityKind(row["entity_kind"]),
			EntityID:   row["entity_id"],
			Actor:      row["actor"],
			SessionID:  row["session_id"],
		}
		if raw := row["details"]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &entry.Details); err != nil {
				return nil, fmt.Errorf("row %d: bad details: %w", i+1, err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Logger) dataset(ctx context.Context) (export.Dataset, error) {
	entries, err := l.load(ctx)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("export audit log: %w", err)
	}
	dataset := export.Dataset{Headers: exportHeaders}
	for _, e := range entries {
		row := map[string]string{
			"id":          e.ID,
			"timestamp":   e.Timestamp.Format(time.RFC3339Nano),
			"action":      e.Action,
			"entity_kind": string(e.EntityKind),
			"entity_id":   e.EntityID,
			"actor":       e.Actor,
			"session_id":  e.SessionID,
		}
		if len(e.Details) > 0 {
			raw, err := json.Marshal(e.Details)
			if err != nil {
				return export.Dataset{}, fmt.Errorf("marshal details of %s: %w", e.ID, err)
			}
			row["details"] = string(raw)
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset, nil
}
