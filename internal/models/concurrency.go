package models

import "time"

// EntityVersion tracks the monotonic version of one entity instance. Created
// lazily at version 1 on first mutation.
type EntityVersion struct {
	EntityKind     EntityKind `json:"entity_kind"`
	EntityID       string     `json:"entity_id"`
	Version        int64      `json:"version"`
	LastModified   time.Time  `json:"last_modified"`
	LastModifiedBy string     `json:"last_modified_by"`
}

// Lock is an advisory exclusive lock on one entity instance.
type Lock struct {
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   string     `json:"entity_id"`
	Holder     string     `json:"holder"`
	AcquiredAt time.Time  `json:"acquired_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Expired reports whether the lock has timed out at the given instant.
func (l Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// ConflictKind distinguishes concurrency signals.
type ConflictKind string

const (
	// ConflictVersionMismatch is a hard conflict: the caller's expected
	// version no longer matches the stored one.
	ConflictVersionMismatch ConflictKind = "VERSION_MISMATCH"
	// ConflictRecentModification is a soft warning: versions match but
	// another actor touched the entity moments ago.
	ConflictRecentModification ConflictKind = "RECENT_MODIFICATION"
)

// ConcurrencyConflict describes one detected concurrency signal.
type ConcurrencyConflict struct {
	Kind            ConflictKind `json:"kind"`
	EntityKind      EntityKind   `json:"entity_kind"`
	EntityID        string       `json:"entity_id"`
	ExpectedVersion int64        `json:"expected_version,omitempty"`
	CurrentVersion  int64        `json:"current_version"`
	LastModifiedBy  string       `json:"last_modified_by,omitempty"`
	Message         string       `json:"message"`
}

// Blocking reports whether the conflict must stop the mutation.
func (c ConcurrencyConflict) Blocking() bool {
	return c.Kind == ConflictVersionMismatch
}

// ResolutionStrategy selects how a detected conflict is resolved. The
// concurrency manager executes the choice; it never picks one itself.
type ResolutionStrategy string

const (
	ResolutionAcceptLocal  ResolutionStrategy = "ACCEPT_LOCAL"
	ResolutionAcceptRemote ResolutionStrategy = "ACCEPT_REMOTE"
	ResolutionMerge        ResolutionStrategy = "MERGE"
	ResolutionManual       ResolutionStrategy = "MANUAL"
)
