package model

// Version constants for persisted results.
const (
	// SchemaVersion is the RunResult/Audit payload schema version.
	SchemaVersion = "1"

	// EngineVersion is the consolidation engine version.
	EngineVersion = "0.3.0"
)
