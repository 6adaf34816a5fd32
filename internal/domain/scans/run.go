package scans

import "time"

// RunState is the terminal state of one subprocess invocation.
type RunState string

const (
	RunCompleted    RunState = "completed"
	RunTimedOut     RunState = "timed_out"
	RunLaunchFailed RunState = "launch_failed"
)

// ExitLaunchFailed is the sentinel exit code recorded when the tool binary
// could not be started at all. Kept negative so it can never collide with a
// real tool exit code.
const ExitLaunchFailed = -127

// RunRequest for Runner
type RunRequest struct {
	Tool    Tool
	Target  string
	Timeout time.Duration
}

// RunResult is the ephemeral record of one subprocess execution. It is
// consumed by the converter and never persisted as-is.
type RunResult struct {
	Tool       Tool
	Cmd        []string
	Dir        string
	State      RunState
	ExitCode   int
	Duration   time.Duration
	Stdout     string
	Stderr     string
	ParsedJSON any // decoded stdout when it looked like JSON, else nil
}

// Failed reports whether the invocation never produced usable output.
// Completed runs proceed to conversion whatever their exit code.
func (r RunResult) Failed() bool {
	return r.State != RunCompleted
}

// ScanStatus maps the run state to the persisted scan status.
func (r RunResult) ScanStatus() Status {
	switch r.State {
	case RunTimedOut:
		return StatusTimedOut
	case RunLaunchFailed:
		return StatusLaunchFailed
	default:
		return StatusCompleted
	}
}
