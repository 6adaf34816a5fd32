package scans

import (
	"context"
	"time"
)

// PersistReceipt reports how many rows a persist call was given and how many
// survived key dedup. submitted - newly_persisted = duplicates skipped.
type PersistReceipt struct {
	Submitted      int `json:"submitted"`
	NewlyPersisted int `json:"newly_persisted"`
}

// Repository port (interface for persistence)
type Repository interface {
	// SaveScan commits the scan row and all its findings in one
	// transaction. Key collisions are skipped, never an error; any other
	// failure rolls back the scan and every row.
	SaveScan(ctx context.Context, s *Scan, rows []Finding) (PersistReceipt, error)

	Get(ctx context.Context, id ScanID) (*Scan, error)
	Latest(ctx context.Context, limit int) ([]*Scan, error)
	Roots(ctx context.Context) ([]string, error)

	// Issues projects the non-metric finding tables for a root; empty root
	// means everything.
	Issues(ctx context.Context, root string) ([]Issue, error)
	Metrics(ctx context.Context, root string) ([]Metric, error)
	CountFindings(ctx context.Context, tool Tool) (int64, error)
}

// Converter port (interface for normalizing one run into a scan row plus
// finding rows). The scan comes back without an ID; the caller assigns it.
type Converter interface {
	Convert(res RunResult, now time.Time) (*Scan, []Finding, error)
}

// Runner port (interface for executing one analyzer). The returned error is
// reserved for configuration problems (unknown tool); launch failures and
// timeouts are reported inside the RunResult.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (RunResult, error)
}

// ArtifactStore port (interface for raw-output archival)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}
