package ir

// Version constants for the compiled rule representation and engine.
const (
	// IRVersion is the compiled rule schema version.
	IRVersion = "1"

	// EngineVersion is the vioverse engine version.
	EngineVersion = "0.3.0"
)
