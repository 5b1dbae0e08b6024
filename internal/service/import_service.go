package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/importer"
)

// AdmitImportFile checks an upload before its content is read: size ceiling
// and MIME allow-list.
func (s *Service) AdmitImportFile(filename string, size int64, mimeType string) []models.FieldError {
	return s.engine.FileAdmission(filename, size, mimeType)
}

// ProcessImport runs a parsed student roster through structural, per-row and
// cross-row validation, then creates the rows. By default the batch is atomic:
// one bad row rejects everything, and every row is reported as not created.
// With partial import enabled the valid rows land and the bad ones are
// reported alongside.
func (s *Service) ProcessImport(ctx context.Context, sheet importer.Sheet, snap models.Snapshot, actor string) models.ImportResult {
	if errs := s.engine.BatchStructure(sheet.Headers); len(errs) > 0 {
		return models.ImportResult{Success: false, Errors: errs}
	}

	batchErrs, rowErrs := s.engine.Batch(sheet.Rows, snap)
	if len(batchErrs) > 0 {
		return models.ImportResult{Success: false, Errors: batchErrs}
	}

	// Rows that survive field validation still need their group reference
	// resolved against the snapshot.
	for _, row := range sheet.Rows {
		if len(rowErrs[row.Row]) > 0 {
			continue
		}
		if check := s.checker.CheckStudent(row.Student(), models.OpCreate, snap); !check.IsValid {
			rowErrs[row.Row] = append(rowErrs[row.Row], integrityErrors(check)...)
		}
	}

	result := models.ImportResult{Rows: make([]models.RowResult, 0, len(sheet.Rows))}
	atomicReject := len(rowErrs) > 0 && !s.imports.PartialImport

	now := s.now().UTC()
	for _, row := range sheet.Rows {
		rr := models.RowResult{Row: row.Row, Errors: rowErrs[row.Row]}
		if len(rr.Errors) > 0 || atomicReject {
			result.Rows = append(result.Rows, rr)
			if len(rr.Errors) > 0 {
				result.Failed++
			}
			s.metrics.ObserveImportRow(false)
			continue
		}

		student := row.Student()
		student.ID = s.newID()
		student.CreatedAt = now
		student.UpdatedAt = now
		snap.Students = append(snap.Students, student)

		rr.Success = true
		rr.Data = &student
		result.Rows = append(result.Rows, rr)
		result.Created++
		s.metrics.ObserveImportRow(true)
	}

	if atomicReject {
		result.Errors = []models.FieldError{{
			Field:   "rows",
			Message: fmt.Sprintf("import rejected: %d row(s) failed validation", result.Failed),
			Value:   result.Failed,
		}}
		s.logger.Info("import rejected",
			zap.Int("rows", len(sheet.Rows)),
			zap.Int("failed", result.Failed))
		return result
	}

	if result.Created > 0 {
		if err := s.persist(ctx, snap); err != nil {
			s.logger.Error("import aborted, store unavailable", zap.Error(err))
			return models.ImportResult{
				Success: false,
				Rows:    result.Rows,
				Errors:  []models.FieldError{{Field: "store", Message: "persisted store unavailable"}},
			}
		}
		for _, rr := range result.Rows {
			if rr.Success {
				if _, err := s.locks.BumpVersion(ctx, models.KindStudent, rr.Data.ID, actor); err != nil {
					s.logger.Warn("import version bump failed", zap.String("id", rr.Data.ID), zap.Error(err))
				}
			}
		}
	}

	// one bulk entry for the whole batch, not one per row
	result.AuditEntry = s.audit.Log(ctx, models.AuditActionImport, models.KindStudent, "", actor, map[string]interface{}{
		"rows":    len(sheet.Rows),
		"created": result.Created,
		"failed":  result.Failed,
	})
	if result.AuditEntry == nil {
		s.metrics.ObserveAuditWriteFailure()
	}

	result.Success = result.Failed == 0
	s.logger.Info("import processed",
		zap.Int("rows", len(sheet.Rows)),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed))
	return result
}
