package model

// Shared defaults used by the pipeline and the CLI.
const (
	// ReportCadence is the number of accepted records between periodic reports.
	ReportCadence = 10

	DefaultMaxLineSize = 1024 * 1024 // 1MB
	DefaultAPIAddr     = "127.0.0.1:3000"
	DefaultLogLevel    = "warn"
)
