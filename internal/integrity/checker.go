// Package integrity computes structural conflicts for entity mutations:
// dangling foreign keys on create/update, blocking dependents on delete, and
// read-only cascade previews. Violations are always reported, never silently
// ignored; callers decide whether to abort, force, or cascade.
package integrity

import (
	"fmt"

	"github.com/edupanel/attendance-core/internal/models"
)

// ConflictType classifies a structural conflict.
type ConflictType string

const (
	// MissingReference means a foreign key does not resolve.
	MissingReference ConflictType = "MISSING_REFERENCE"
	// DependentRecords means a deletion is blocked by children.
	DependentRecords ConflictType = "DEPENDENT_RECORDS"
)

// Conflict describes one structural violation.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Field   string       `json:"field"`
	Message string       `json:"message"`
	Value   interface{}  `json:"value,omitempty"`
	Count   int          `json:"count,omitempty"`
}

// Result aggregates the conflicts of one check.
type Result struct {
	EntityKind models.EntityKind `json:"entity_kind"`
	Operation  models.Operation  `json:"operation"`
	Conflicts  []Conflict        `json:"conflicts"`
	IsValid    bool              `json:"is_valid"`
}

// HasBlockingConflicts reports whether any conflict must stop the operation.
// Every structural conflict blocks; the distinction exists so forced deletes
// can downgrade DependentRecords to warnings.
func (r Result) HasBlockingConflicts() bool {
	return len(r.Conflicts) > 0
}

// ByType filters conflicts of one type.
func (r Result) ByType(t ConflictType) []Conflict {
	var out []Conflict
	for _, c := range r.Conflicts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Checker walks the four-level hierarchy. It is stateless.
type Checker struct{}

// NewChecker constructs a checker.
func NewChecker() *Checker {
	return &Checker{}
}

// CheckSector verifies a sector mutation.
func (c *Checker) CheckSector(sector models.Sector, op models.Operation, snap models.Snapshot) Result {
	res := Result{EntityKind: models.KindSector, Operation: op}
	if op == models.OpDelete {
		if n := len(snap.ProgramsInSector(sector.ID)); n > 0 {
			res.Conflicts = append(res.Conflicts, dependents("programs", n))
		}
	}
	res.IsValid = len(res.Conflicts) == 0
	return res
}

// CheckProgram verifies a program mutation. Create/update walks the chain
// upward; delete collects dependents downward.
func (c *Checker) CheckProgram(program models.Program, op models.Operation, snap models.Snapshot) Result {
	res := Result{EntityKind: models.KindProgram, Operation: op}
	switch op {
	case models.OpCreate, models.OpUpdate:
		if snap.SectorByID(program.SectorID) == nil {
			res.Conflicts = append(res.Conflicts, missing("sectorId", program.SectorID))
		}
	case models.OpDelete:
		if n := len(snap.GroupsInProgram(program.ID)); n > 0 {
			res.Conflicts = append(res.Conflicts, dependents("groups", n))
		}
	}
	res.IsValid = len(res.Conflicts) == 0
	return res
}

// CheckGroup verifies a group mutation.
func (c *Checker) CheckGroup(group models.Group, op models.Operation, snap models.Snapshot) Result {
	res := Result{EntityKind: models.KindGroup, Operation: op}
	switch op {
	case models.OpCreate, models.OpUpdate:
		program := snap.ProgramByID(group.ProgramID)
		if program == nil {
			res.Conflicts = append(res.Conflicts, missing("programId", group.ProgramID))
		} else if snap.SectorByID(program.SectorID) == nil {
			res.Conflicts = append(res.Conflicts, missing("program.sectorId", program.SectorID))
		}
	case models.OpDelete:
		if n := len(snap.StudentsInGroup(group.ID)); n > 0 {
			res.Conflicts = append(res.Conflicts, dependents("students", n))
		}
	}
	res.IsValid = len(res.Conflicts) == 0
	return res
}

// CheckStudent verifies a student mutation. The upward walk reports the first
// broken link at every level, not only the immediate parent.
func (c *Checker) CheckStudent(student models.Student, op models.Operation, snap models.Snapshot) Result {
	res := Result{EntityKind: models.KindStudent, Operation: op}
	switch op {
	case models.OpCreate, models.OpUpdate:
		group := snap.GroupByID(student.GroupID)
		if group == nil {
			res.Conflicts = append(res.Conflicts, missing("groupId", student.GroupID))
			break
		}
		program := snap.ProgramByID(group.ProgramID)
		if program == nil {
			res.Conflicts = append(res.Conflicts, missing("group.programId", group.ProgramID))
			break
		}
		if snap.SectorByID(program.SectorID) == nil {
			res.Conflicts = append(res.Conflicts, missing("program.sectorId", program.SectorID))
		}
	case models.OpDelete:
		if n := len(snap.AbsencesOfStudent(student.ID)); n > 0 {
			res.Conflicts = append(res.Conflicts, dependents("absences", n))
		}
	}
	res.IsValid = len(res.Conflicts) == 0
	return res
}

// CheckAbsence verifies an absence mutation. Absences have no dependents.
func (c *Checker) CheckAbsence(absence models.AbsenceRecord, op models.Operation, snap models.Snapshot) Result {
	res := Result{EntityKind: models.KindAbsence, Operation: op}
	if op == models.OpCreate || op == models.OpUpdate {
		if snap.StudentByID(absence.StudentID) == nil {
			res.Conflicts = append(res.Conflicts, missing("studentId", absence.StudentID))
		}
	}
	res.IsValid = len(res.Conflicts) == 0
	return res
}

func missing(field string, value interface{}) Conflict {
	return Conflict{
		Type:    MissingReference,
		Field:   field,
		Message: fmt.Sprintf("%s does not reference an existing record", field),
		Value:   value,
	}
}

func dependents(field string, count int) Conflict {
	return Conflict{
		Type:    DependentRecords,
		Field:   field,
		Message: fmt.Sprintf("%d dependent %s block deletion", count, field),
		Count:   count,
	}
}
