package history

import "time"

// Outcomes recorded for a job.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

// JobRecord captures one asynchronous encode or decode job.
type JobRecord struct {
	// Database ID (set after insert)
	ID int64

	// Workflow run the job belonged to; empty for standalone commands
	RunID string

	// Job identification
	Kind      string // "encode" or "decode"
	MediaID   string
	RequestID string

	// Local file the job was started from, and the downloaded result if any
	SourcePath string
	OutputPath string

	// Outcome
	Outcome      string
	RemoteStatus string
	ErrorMessage string
	Attempts     int

	// Timing
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
}
