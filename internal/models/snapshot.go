package models

import (
	"strings"
	"time"
)

// Snapshot bundles every entity collection by value. The UI layer passes one
// into each orchestrator call; the core never reads collections from anywhere
// else.
type Snapshot struct {
	Sectors  []Sector        `json:"sectors"`
	Programs []Program       `json:"programs"`
	Groups   []Group         `json:"groups"`
	Students []Student       `json:"students"`
	Absences []AbsenceRecord `json:"absences"`
}

// SectorByID resolves a sector or nil.
func (s Snapshot) SectorByID(id string) *Sector {
	for i := range s.Sectors {
		if s.Sectors[i].ID == id {
			return &s.Sectors[i]
		}
	}
	return nil
}

// ProgramByID resolves a program or nil.
func (s Snapshot) ProgramByID(id string) *Program {
	for i := range s.Programs {
		if s.Programs[i].ID == id {
			return &s.Programs[i]
		}
	}
	return nil
}

// GroupByID resolves a group or nil.
func (s Snapshot) GroupByID(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// StudentByID resolves a student or nil.
func (s Snapshot) StudentByID(id string) *Student {
	for i := range s.Students {
		if s.Students[i].ID == id {
			return &s.Students[i]
		}
	}
	return nil
}

// AbsenceByID resolves an absence record or nil.
func (s Snapshot) AbsenceByID(id string) *AbsenceRecord {
	for i := range s.Absences {
		if s.Absences[i].ID == id {
			return &s.Absences[i]
		}
	}
	return nil
}

// ProgramsInSector returns the programs referencing the sector.
func (s Snapshot) ProgramsInSector(sectorID string) []Program {
	var out []Program
	for _, p := range s.Programs {
		if p.SectorID == sectorID {
			out = append(out, p)
		}
	}
	return out
}

// GroupsInProgram returns the groups referencing the program.
func (s Snapshot) GroupsInProgram(programID string) []Group {
	var out []Group
	for _, g := range s.Groups {
		if g.ProgramID == programID {
			out = append(out, g)
		}
	}
	return out
}

// StudentsInGroup returns the students referencing the group.
func (s Snapshot) StudentsInGroup(groupID string) []Student {
	var out []Student
	for _, st := range s.Students {
		if st.GroupID == groupID {
			out = append(out, st)
		}
	}
	return out
}

// AbsencesOfStudent returns the absence records referencing the student.
func (s Snapshot) AbsencesOfStudent(studentID string) []AbsenceRecord {
	var out []AbsenceRecord
	for _, a := range s.Absences {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out
}

// StudentByExternalCode resolves a student by code, case-insensitively,
// skipping the given id (empty string skips nothing).
func (s Snapshot) StudentByExternalCode(code, excludeID string) *Student {
	for i := range s.Students {
		if s.Students[i].ID == excludeID {
			continue
		}
		if strings.EqualFold(s.Students[i].ExternalCode, code) {
			return &s.Students[i]
		}
	}
	return nil
}

// StudentByEmail resolves a student by email, case-insensitively, skipping
// the given id.
func (s Snapshot) StudentByEmail(email, excludeID string) *Student {
	for i := range s.Students {
		if s.Students[i].ID == excludeID {
			continue
		}
		if strings.EqualFold(s.Students[i].Email, email) {
			return &s.Students[i]
		}
	}
	return nil
}

// AbsenceOnDate resolves an absence for the student on the given calendar
// day, skipping the given id.
func (s Snapshot) AbsenceOnDate(studentID string, date time.Time, excludeID string) *AbsenceRecord {
	y, m, d := date.Date()
	for i := range s.Absences {
		if s.Absences[i].ID == excludeID || s.Absences[i].StudentID != studentID {
			continue
		}
		ay, am, ad := s.Absences[i].Date.Date()
		if ay == y && am == m && ad == d {
			return &s.Absences[i]
		}
	}
	return nil
}
