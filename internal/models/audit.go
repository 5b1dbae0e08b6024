package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionCreate   = "CREATE"
	AuditActionUpdate   = "UPDATE"
	AuditActionDelete   = "DELETE"
	AuditActionImport   = "IMPORT"
	AuditActionExport   = "EXPORT"
	AuditActionRollback = "ROLLBACK"
	AuditActionLogin    = "LOGIN"
	AuditActionLogout   = "LOGOUT"
)

// AuditEntry is an immutable record of one state-changing action.
type AuditEntry struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	Action     string                 `json:"action"`
	EntityKind EntityKind             `json:"entity_kind"`
	EntityID   string                 `json:"entity_id"`
	Actor      string                 `json:"actor"`
	Details    map[string]interface{} `json:"details,omitempty"`
	SessionID  string                 `json:"session_id"`
}

// AuditQuery filters audit log reads. Zero values mean "no filter".
type AuditQuery struct {
	Actor      string
	EntityKind EntityKind
	EntityID   string
	Action     string
	SessionID  string
	From       time.Time
	To         time.Time
	Limit      int
}

// AuditStats aggregates entry counts along common axes.
type AuditStats struct {
	Total    int            `json:"total"`
	ByAction map[string]int `json:"by_action"`
	ByEntity map[string]int `json:"by_entity"`
	ByActor  map[string]int `json:"by_actor"`
	ByDay    map[string]int `json:"by_day"`
}
