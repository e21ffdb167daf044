package ir

// NOTE: These are store-internal types, not part of the evaluation IR.

// RunRecord summarises one persisted evaluation run.
type RunRecord struct {
	ID             string `json:"id"`              // UUIDv7, time-ordered
	ReferenceDate  string `json:"reference_date"`  // ISO date
	RuleSetHash    string `json:"rule_set_hash"`   // see RuleSetHash
	EngineVersion  string `json:"engine_version"`
	IRVersion      string `json:"ir_version"`
	RecordCount    int    `json:"record_count"`
	ViolationCount int    `json:"violation_count"`
	AuditCount     int    `json:"audit_count"`
}
