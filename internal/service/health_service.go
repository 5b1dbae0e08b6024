package service

import (
	"fmt"
	"strings"

	"github.com/edupanel/attendance-core/internal/integrity"
	"github.com/edupanel/attendance-core/internal/models"
)

// PreviewDelete reports everything a cascading delete would remove, so the
// caller can ask the user for confirmation before committing to it.
func (s *Service) PreviewDelete(kind models.EntityKind, id string, snap models.Snapshot) integrity.CascadePreview {
	return s.checker.PreviewCascade(kind, id, snap)
}

// PerformIntegrityCheck sweeps the whole snapshot for structural damage:
// orphaned references, duplicate unique fields and stale rollback flags. The
// sweep is read-only and never blocks anything; forced deletes are the usual
// source of its findings.
func (s *Service) PerformIntegrityCheck(snap models.Snapshot) models.IntegrityReport {
	report := models.IntegrityReport{Summary: make(map[string]int)}

	for _, p := range snap.Programs {
		if snap.SectorByID(p.SectorID) == nil {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindProgram,
				EntityID:   p.ID,
				Field:      "sectorId",
				Message:    fmt.Sprintf("program %q references missing sector %s", p.Name, p.SectorID),
			})
			report.Summary["orphaned_programs"]++
		}
	}
	for _, g := range snap.Groups {
		if snap.ProgramByID(g.ProgramID) == nil {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindGroup,
				EntityID:   g.ID,
				Field:      "programId",
				Message:    fmt.Sprintf("group %q references missing program %s", g.Name, g.ProgramID),
			})
			report.Summary["orphaned_groups"]++
		}
	}
	for _, st := range snap.Students {
		if snap.GroupByID(st.GroupID) == nil {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindStudent,
				EntityID:   st.ID,
				Field:      "groupId",
				Message:    fmt.Sprintf("student %q references missing group %s", st.Name, st.GroupID),
			})
			report.Summary["orphaned_students"]++
		}
	}
	for _, a := range snap.Absences {
		if snap.StudentByID(a.StudentID) == nil {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindAbsence,
				EntityID:   a.ID,
				Field:      "studentId",
				Message:    fmt.Sprintf("absence references missing student %s", a.StudentID),
			})
			report.Summary["orphaned_absences"]++
		}
	}

	s.duplicateStudents(snap, &report)
	s.duplicateGroupNames(snap, &report)

	now := s.now().UTC()
	for _, a := range snap.Absences {
		if a.RollbackOpen && now.After(a.RollbackDeadline) {
			report.Warnings = append(report.Warnings, models.IntegrityIssue{
				Severity:   "warning",
				EntityKind: models.KindAbsence,
				EntityID:   a.ID,
				Field:      "rollback_open",
				Message:    "rollback window expired but the record is still flagged rollbackable",
			})
			report.Summary["stale_rollback_flags"]++
		}
	}

	report.Healthy = len(report.Issues) == 0
	return report
}

func (s *Service) duplicateStudents(snap models.Snapshot, report *models.IntegrityReport) {
	codes := make(map[string]string, len(snap.Students))
	emails := make(map[string]string, len(snap.Students))
	for _, st := range snap.Students {
		code := strings.ToLower(strings.TrimSpace(st.ExternalCode))
		if first, ok := codes[code]; ok {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindStudent,
				EntityID:   st.ID,
				Field:      "externalCode",
				Message:    fmt.Sprintf("external code %q already used by student %s", st.ExternalCode, first),
			})
			report.Summary["duplicate_codes"]++
		} else {
			codes[code] = st.ID
		}

		email := strings.ToLower(strings.TrimSpace(st.Email))
		if first, ok := emails[email]; ok {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindStudent,
				EntityID:   st.ID,
				Field:      "email",
				Message:    fmt.Sprintf("email %q already used by student %s", st.Email, first),
			})
			report.Summary["duplicate_emails"]++
		} else {
			emails[email] = st.ID
		}
	}
}

func (s *Service) duplicateGroupNames(snap models.Snapshot, report *models.IntegrityReport) {
	seen := make(map[string]string, len(snap.Groups))
	for _, g := range snap.Groups {
		key := g.ProgramID + "\x00" + strings.ToLower(strings.TrimSpace(g.Name))
		if first, ok := seen[key]; ok {
			report.Issues = append(report.Issues, models.IntegrityIssue{
				Severity:   "error",
				EntityKind: models.KindGroup,
				EntityID:   g.ID,
				Field:      "name",
				Message:    fmt.Sprintf("group name %q already used by group %s in the same program", g.Name, first),
			})
			report.Summary["duplicate_group_names"]++
		} else {
			seen[key] = g.ID
		}
	}
}
