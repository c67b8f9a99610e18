package ir

// Version constants for the module encoding and the tools.
const (
	// FormatVersion is the bytecode format version written in the header.
	FormatVersion = 1

	// ToolVersion is the modkit tool version.
	ToolVersion = "0.1.0"
)
