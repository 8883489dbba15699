package ir

// Version constants for the IR schema and compiler.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// CompilerVersion is the agentmark compiler version recorded in the ledger.
	CompilerVersion = "0.3.0"
)
