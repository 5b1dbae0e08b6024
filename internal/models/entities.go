package models

import "time"

// EntityKind identifies a tracked entity type. The set is closed; dispatch on
// it must handle every constant.
type EntityKind string

const (
	KindSector  EntityKind = "SECTOR"
	KindProgram EntityKind = "PROGRAM"
	KindGroup   EntityKind = "GROUP"
	KindStudent EntityKind = "STUDENT"
	KindAbsence EntityKind = "ABSENCE"
)

// Valid returns true when the kind is a supported value.
func (k EntityKind) Valid() bool {
	switch k {
	case KindSector, KindProgram, KindGroup, KindStudent, KindAbsence:
		return true
	default:
		return false
	}
}

// Operation tags a mutation for integrity checking and audit.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Sector is the root of the training hierarchy.
type Sector struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Program belongs to exactly one Sector.
type Program struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SectorID  string    `db:"sector_id" json:"sector_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Group belongs to exactly one Program. Its name is unique within that
// program only.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ProgramID string    `db:"program_id" json:"program_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Student belongs to exactly one Group. ExternalCode and Email are unique
// across all students, compared case-insensitively.
type Student struct {
	ID              string    `db:"id" json:"id"`
	ExternalCode    string    `db:"external_code" json:"external_code"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	GroupID         string    `db:"group_id" json:"group_id"`
	DisciplineScore float64   `db:"discipline_score" json:"discipline_score"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// AbsenceRecord captures one absence for one student on one date. At most one
// record may exist per (student, date).
type AbsenceRecord struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	Date             time.Time `db:"date" json:"date"`
	DurationHours    float64   `db:"duration_hours" json:"duration_hours"`
	Justified        bool      `db:"justified" json:"justified"`
	RecordedBy       string    `db:"recorded_by" json:"recorded_by"`
	RecordedAt       time.Time `db:"recorded_at" json:"recorded_at"`
	RollbackDeadline time.Time `db:"rollback_deadline" json:"rollback_deadline"`
	RollbackOpen     bool      `db:"rollback_open" json:"rollback_open"`
}
