package validation

import (
	"fmt"
	"strings"

	"github.com/edupanel/attendance-core/internal/models"
)

// BatchStructure verifies that every required column is present before any
// per-row validation runs. A structural failure rejects the whole batch.
func (e *Engine) BatchStructure(headers []string) []models.FieldError {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}
	var errs []models.FieldError
	for _, col := range models.StudentImportColumns {
		if !present[col] {
			errs = append(errs, models.FieldError{
				Field:   col,
				Message: "required column is missing",
			})
		}
	}
	return errs
}

// Batch validates every row of a student import. Batch-level errors (row cap
// exceeded) come back separately from per-row errors. Duplicates are detected
// both against the snapshot and within the batch itself via per-batch
// uniqueness sets keyed on lowercased code and email.
func (e *Engine) Batch(rows []models.StudentImportRow, snap models.Snapshot) ([]models.FieldError, map[int][]models.FieldError) {
	if e.imports.MaxRows > 0 && len(rows) > e.imports.MaxRows {
		return []models.FieldError{{
			Field:   "rows",
			Message: fmt.Sprintf("batch exceeds the %d row limit", e.imports.MaxRows),
			Value:   len(rows),
		}}, nil
	}

	seenCodes := make(map[string]int, len(rows))
	seenEmails := make(map[string]int, len(rows))
	rowErrs := make(map[int][]models.FieldError)

	for _, row := range rows {
		errs := e.Student(row.Student(), snap)

		code := strings.ToLower(strings.TrimSpace(row.ExternalCode))
		if code != "" {
			if first, ok := seenCodes[code]; ok {
				errs = append(errs, models.FieldError{
					Field:   "externalCode",
					Message: fmt.Sprintf("duplicate within file (first used in row %d)", first),
					Value:   row.ExternalCode,
				})
			} else {
				seenCodes[code] = row.Row
			}
		}

		email := strings.ToLower(strings.TrimSpace(row.Email))
		if email != "" {
			if first, ok := seenEmails[email]; ok {
				errs = append(errs, models.FieldError{
					Field:   "email",
					Message: fmt.Sprintf("duplicate within file (first used in row %d)", first),
					Value:   row.Email,
				})
			} else {
				seenEmails[email] = row.Row
			}
		}

		if len(errs) > 0 {
			rowErrs[row.Row] = errs
		}
	}
	return nil, rowErrs
}

// FileAdmission checks a candidate upload before its content is ever read:
// size ceiling plus a fixed MIME allow-list.
func (e *Engine) FileAdmission(filename string, size int64, mimeType string) []models.FieldError {
	var errs []models.FieldError
	if size > e.imports.MaxFileSize {
		errs = append(errs, models.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("file %s exceeds the %d byte limit", filename, e.imports.MaxFileSize),
			Value:   size,
		})
	}
	allowed := false
	for _, m := range e.imports.AllowedMIMEs {
		if strings.EqualFold(m, mimeType) {
			allowed = true
			break
		}
	}
	if !allowed {
		errs = append(errs, models.FieldError{
			Field:   "file",
			Message: "file type is not allowed",
			Value:   mimeType,
		})
	}
	return errs
}
