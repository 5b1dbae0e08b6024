package validation

import (
	"fmt"
	"time"

	"github.com/edupanel/attendance-core/internal/models"
)

// AcademicYearBounds returns the [start, end) interval of the academic year
// containing the given instant.
func (e *Engine) AcademicYearBounds(at time.Time) (time.Time, time.Time) {
	year := at.Year()
	if at.Month() < e.absences.AcademicYearStart {
		year--
	}
	start := time.Date(year, e.absences.AcademicYearStart, 1, 0, 0, 0, 0, at.Location())
	return start, start.AddDate(1, 0, 0)
}

// Absence validates a candidate absence record against the snapshot. For
// updates, candidate.ID excludes the record itself from the duplicate-date
// check.
func (e *Engine) Absence(candidate models.AbsenceRecord, snap models.Snapshot) []models.FieldError {
	var errs []models.FieldError

	if candidate.StudentID == "" {
		errs = append(errs, models.FieldError{Field: "studentId", Message: "is required"})
	}

	if candidate.Date.IsZero() {
		errs = append(errs, models.FieldError{Field: "date", Message: "is required"})
	} else {
		now := e.now()
		start, end := e.AcademicYearBounds(now)
		switch {
		case candidate.Date.After(now):
			errs = append(errs, models.FieldError{Field: "date", Message: "must not be in the future", Value: candidate.Date})
		case candidate.Date.Before(start) || !candidate.Date.Before(end):
			errs = append(errs, models.FieldError{Field: "date", Message: "must lie within the current academic year", Value: candidate.Date})
		}
	}

	min, max := e.absences.MinDurationHours, e.absences.MaxDurationHours
	if candidate.DurationHours < min || candidate.DurationHours > max {
		errs = append(errs, models.FieldError{
			Field:   "durationHours",
			Message: fmt.Sprintf("must be between %.1f and %.1f hours", min, max),
			Value:   candidate.DurationHours,
		})
	}

	if candidate.StudentID != "" && !candidate.Date.IsZero() {
		if dup := snap.AbsenceOnDate(candidate.StudentID, candidate.Date, candidate.ID); dup != nil {
			errs = append(errs, models.FieldError{
				Field:   "date",
				Message: "an absence is already recorded for this student on this date",
				Value:   candidate.Date,
			})
		}
	}
	return errs
}
