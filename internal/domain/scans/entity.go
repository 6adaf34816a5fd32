package scans

import (
	"fmt"
	"time"
)

// ID type for Scan
type ScanID string

// Tool enum: the closed set of registered analyzers
type Tool string

const (
	ToolBandit  Tool = "bandit"
	ToolMypy    Tool = "mypy"
	ToolRadon   Tool = "radon"
	ToolVulture Tool = "vulture"
	ToolESLint  Tool = "eslint"
)

// Kind enum: category of findings a tool produces
type Kind string

const (
	KindSecurity   Kind = "security"
	KindTypeCheck  Kind = "type-check"
	KindComplexity Kind = "complexity"
	KindDeadCode   Kind = "dead-code"
	KindLint       Kind = "lint"
)

// AllTools returns the registered tool ids in a stable order.
func AllTools() []Tool {
	return []Tool{ToolBandit, ToolMypy, ToolRadon, ToolVulture, ToolESLint}
}

// ParseTool validates a tool id coming from the CLI or the API.
func ParseTool(s string) (Tool, error) {
	for _, t := range AllTools() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Kind maps a tool to its finding category.
func (t Tool) Kind() Kind {
	switch t {
	case ToolBandit:
		return KindSecurity
	case ToolMypy:
		return KindTypeCheck
	case ToolRadon:
		return KindComplexity
	case ToolVulture:
		return KindDeadCode
	default:
		return KindLint
	}
}

// ExitFatal reports whether an exit code means the tool itself broke, as
// opposed to "issues were found". Most analyzers reserve exit 1 for findings
// and 2+ for usage or internal errors; radon exits nonzero only on failure,
// and vulture reports dead code with exit 3.
func (t Tool) ExitFatal(code int) bool {
	if code == 0 {
		return false
	}
	switch t {
	case ToolRadon:
		return true
	case ToolVulture:
		return code != 3 && (code >= 2 || code < 0)
	}
	return code >= 2 || code < 0
}

// Status enum for a persisted scan row
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusTimedOut     Status = "timed_out"
	StatusLaunchFailed Status = "launch_failed"
)

// Aggregate root: one (tool, target) execution. Append-only; never mutated
// after insert.
type Scan struct {
	ID           ScanID    `json:"id"`
	Tool         Tool      `json:"tool"`
	Root         string    `json:"root"`
	TriggeredAt  time.Time `json:"triggered_at"`
	Command      []string  `json:"command"`
	ExitCode     int       `json:"exit_code"`
	DurationMS   int64     `json:"duration_ms"`
	Status       Status    `json:"status"`
	ErrorSummary string    `json:"error_summary,omitempty"`
	ArtifactURL  string    `json:"artifact_url,omitempty"`
}

// Issue is the read-model row used by export and the HTTP surface: one
// normalized issue regardless of which finding table it lives in. Radon
// metric rows are never projected as issues.
type Issue struct {
	Tool     Tool   `json:"tool"`
	Root     string `json:"root"`
	FilePath string `json:"file_path"`
	Line     *int64 `json:"line,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

// Metric is the read-model row for radon metric findings.
type Metric struct {
	Root       string             `json:"root"`
	FilePath   string             `json:"file_path"`
	MetricType string             `json:"metric_type"`
	Values     map[string]float64 `json:"values"`
}
