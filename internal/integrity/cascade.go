package integrity

import (
	"fmt"

	"github.com/edupanel/attendance-core/internal/models"
)

// CascadePreview lists everything a deletion would transitively remove. It is
// read-only; the orchestrator uses it to require explicit confirmation before
// cascading deletes.
type CascadePreview struct {
	EntityKind models.EntityKind      `json:"entity_kind"`
	EntityID   string                 `json:"entity_id"`
	Programs   []models.Program       `json:"programs,omitempty"`
	Groups     []models.Group         `json:"groups,omitempty"`
	Students   []models.Student       `json:"students,omitempty"`
	Absences   []models.AbsenceRecord `json:"absences,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// Total counts every record the cascade would remove, excluding the root.
func (p CascadePreview) Total() int {
	return len(p.Programs) + len(p.Groups) + len(p.Students) + len(p.Absences)
}

// PreviewCascade computes the transitive dependent set of one entity.
func (c *Checker) PreviewCascade(kind models.EntityKind, id string, snap models.Snapshot) CascadePreview {
	preview := CascadePreview{EntityKind: kind, EntityID: id}

	switch kind {
	case models.KindSector:
		for _, p := range snap.ProgramsInSector(id) {
			preview.Programs = append(preview.Programs, p)
			c.collectProgram(p.ID, snap, &preview)
		}
	case models.KindProgram:
		c.collectProgram(id, snap, &preview)
	case models.KindGroup:
		c.collectGroup(id, snap, &preview)
	case models.KindStudent:
		preview.Absences = append(preview.Absences, snap.AbsencesOfStudent(id)...)
	case models.KindAbsence:
		// leaf, nothing depends on an absence
	}

	if n := len(preview.Programs); n > 0 {
		preview.Warnings = append(preview.Warnings, fmt.Sprintf("%d program(s) will be removed", n))
	}
	if n := len(preview.Groups); n > 0 {
		preview.Warnings = append(preview.Warnings, fmt.Sprintf("%d group(s) will be removed", n))
	}
	if n := len(preview.Students); n > 0 {
		preview.Warnings = append(preview.Warnings, fmt.Sprintf("%d student(s) will be removed", n))
	}
	if n := len(preview.Absences); n > 0 {
		preview.Warnings = append(preview.Warnings, fmt.Sprintf("%d absence record(s) will be removed", n))
	}
	return preview
}

func (c *Checker) collectProgram(programID string, snap models.Snapshot, preview *CascadePreview) {
	for _, g := range snap.GroupsInProgram(programID) {
		preview.Groups = append(preview.Groups, g)
		c.collectGroup(g.ID, snap, preview)
	}
}

func (c *Checker) collectGroup(groupID string, snap models.Snapshot, preview *CascadePreview) {
	for _, s := range snap.StudentsInGroup(groupID) {
		preview.Students = append(preview.Students, s)
		preview.Absences = append(preview.Absences, snap.AbsencesOfStudent(s.ID)...)
	}
}
