package validation

import (
	"github.com/edupanel/attendance-core/internal/models"
)

var studentFieldNames = map[string]string{
	"ExternalCode":    "externalCode",
	"Name":            "name",
	"Email":           "email",
	"GroupID":         "groupId",
	"DisciplineScore": "disciplineScore",
}

// Student validates a candidate student record against the snapshot. For
// updates, candidate.ID excludes the record itself from uniqueness checks.
func (e *Engine) Student(candidate models.Student, snap models.Snapshot) []models.FieldError {
	errs := e.structErrors(studentFields{
		ExternalCode:    candidate.ExternalCode,
		Name:            candidate.Name,
		Email:           candidate.Email,
		GroupID:         candidate.GroupID,
		DisciplineScore: candidate.DisciplineScore,
	}, studentFieldNames)

	if candidate.ExternalCode != "" {
		if dup := snap.StudentByExternalCode(candidate.ExternalCode, candidate.ID); dup != nil {
			errs = append(errs, models.FieldError{
				Field:   "externalCode",
				Message: "is already used by another student",
				Value:   candidate.ExternalCode,
			})
		}
	}
	if candidate.Email != "" {
		if dup := snap.StudentByEmail(candidate.Email, candidate.ID); dup != nil {
			errs = append(errs, models.FieldError{
				Field:   "email",
				Message: "is already used by another student",
				Value:   candidate.Email,
			})
		}
	}
	return errs
}
