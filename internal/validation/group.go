package validation

import (
	"fmt"
	"strings"

	"github.com/edupanel/attendance-core/internal/models"
)

var groupFieldNames = map[string]string{
	"Name":      "name",
	"ProgramID": "programId",
}

// Group validates a candidate group record. Group names are unique within
// their program only.
func (e *Engine) Group(candidate models.Group, snap models.Snapshot) []models.FieldError {
	errs := e.structErrors(groupFields{
		Name:      candidate.Name,
		ProgramID: candidate.ProgramID,
	}, groupFieldNames)

	if candidate.Name != "" && candidate.ProgramID != "" {
		for _, g := range snap.GroupsInProgram(candidate.ProgramID) {
			if g.ID != candidate.ID && strings.EqualFold(g.Name, candidate.Name) {
				errs = append(errs, models.FieldError{
					Field:   "name",
					Message: "is already used within this program",
					Value:   candidate.Name,
				})
				break
			}
		}
	}
	return errs
}

// GroupDelete checks whether a group can be removed: any assigned student
// blocks the intent.
func (e *Engine) GroupDelete(group models.Group, snap models.Snapshot) []models.FieldError {
	students := snap.StudentsInGroup(group.ID)
	if len(students) == 0 {
		return nil
	}
	return []models.FieldError{{
		Field:   "students",
		Message: fmt.Sprintf("%d student(s) are still assigned to this group", len(students)),
		Value:   len(students),
	}}
}

// Sector validates a candidate sector record.
func (e *Engine) Sector(candidate models.Sector, snap models.Snapshot) []models.FieldError {
	var errs []models.FieldError
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len([]rune(name)) < 2 || len([]rune(name)) > 50 {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be between 2 and 50 characters", Value: candidate.Name})
	}
	for _, sec := range snap.Sectors {
		if sec.ID != candidate.ID && strings.EqualFold(sec.Name, name) {
			errs = append(errs, models.FieldError{Field: "name", Message: "is already used by another sector", Value: candidate.Name})
			break
		}
	}
	return errs
}

// Program validates a candidate program record.
func (e *Engine) Program(candidate models.Program, snap models.Snapshot) []models.FieldError {
	var errs []models.FieldError
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len([]rune(name)) < 2 || len([]rune(name)) > 50 {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be between 2 and 50 characters", Value: candidate.Name})
	}
	if candidate.SectorID == "" {
		errs = append(errs, models.FieldError{Field: "sectorId", Message: "is required"})
	}
	for _, p := range snap.Programs {
		if p.ID != candidate.ID && p.SectorID == candidate.SectorID && strings.EqualFold(p.Name, name) {
			errs = append(errs, models.FieldError{Field: "name", Message: "is already used within this sector", Value: candidate.Name})
			break
		}
	}
	return errs
}
