package models

// FieldError tags a validation failure with the offending field and value.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// DeleteOptions modify delete semantics. Force overrides blocking dependents;
// Cascade removes the transitive dependent set; Confirmed acknowledges a
// previously returned cascade preview.
type DeleteOptions struct {
	Force     bool `json:"force"`
	Cascade   bool `json:"cascade"`
	Confirmed bool `json:"confirmed"`
}

// MutationResult is the uniform shape every mutating operation returns.
// Failures are folded in here; errors never escape the orchestrator boundary.
type MutationResult struct {
	Success    bool         `json:"success"`
	Data       interface{}  `json:"data,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	AuditEntry *AuditEntry  `json:"audit_entry,omitempty"`
	Version    int64        `json:"version,omitempty"`
}

// RowResult reports the outcome of one imported row. Row numbers are
// 1-indexed spreadsheet rows, header included (data starts at row 2).
type RowResult struct {
	Row     int          `json:"row"`
	Success bool         `json:"success"`
	Errors  []FieldError `json:"errors,omitempty"`
	Data    *Student     `json:"data,omitempty"`
}

// ImportResult summarises a batch import.
type ImportResult struct {
	Success    bool         `json:"success"`
	Rows       []RowResult  `json:"rows"`
	Created    int          `json:"created"`
	Failed     int          `json:"failed"`
	Errors     []FieldError `json:"errors,omitempty"`
	AuditEntry *AuditEntry  `json:"audit_entry,omitempty"`
}

// IntegrityIssue is one finding of the read-only health sweep.
type IntegrityIssue struct {
	Severity   string     `json:"severity"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   string     `json:"entity_id"`
	Field      string     `json:"field,omitempty"`
	Message    string     `json:"message"`
}

// IntegrityReport is the result of a full-snapshot health sweep. It never
// blocks anything by itself.
type IntegrityReport struct {
	Issues   []IntegrityIssue `json:"issues"`
	Warnings []IntegrityIssue `json:"warnings"`
	Summary  map[string]int   `json:"summary"`
	Healthy  bool             `json:"healthy"`
}
