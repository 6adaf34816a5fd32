package scanerrors

import "time"

// Phase of the pipeline where the failure happened.
const (
	PhaseLaunch  = "launch"
	PhaseTimeout = "timeout"
	PhaseParse   = "parse"
	PhasePersist = "persist"
)

// ScanError represents a persisted scan error entry
type ScanError struct {
	ID        int64     `json:"id"`
	ScanID    string    `json:"scan_id"`
	Tool      string    `json:"tool,omitempty"`
	Phase     string    `json:"phase"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
