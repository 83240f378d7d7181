package helpers

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatAuto  OutputFormat = "auto"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// Global flag names shared by every command.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
	FlagLogJSON  = "log-json"
	FlagFormat   = "format"
	FlagNoColor  = "no-color"
)
