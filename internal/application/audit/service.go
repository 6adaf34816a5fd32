// Package audit coordinates the full pipeline: run every registered tool
// against a target, normalize the output and persist the results.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/bryanwahyu/codeaudit/internal/application"
	errdomain "github.com/bryanwahyu/codeaudit/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// skipDirs are never treated as workspace projects and never descended
// into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".mypy_cache":  true,
}

// Service implements the audit use-cases.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Repo      domain.Repository
	Errors    errdomain.Repository
	Runner    domain.Runner
	Converter domain.Converter
	Artifacts domain.ArtifactStore // optional; nil disables archival
	Clock     application.Clock
	Log       hclog.Logger

	// Jobs caps concurrent tool subprocesses per root.
	Jobs int
	// Timeout is the per-tool wall-clock budget.
	Timeout time.Duration
	// Tools restricts a run to a subset of the registry; nil means all.
	Tools []domain.Tool
	// StopOnError skips tools that have not started yet once one tool
	// fails fatally. Tools already running always finish.
	StopOnError bool
}

// New wires a service with safe defaults for the optional knobs.
func New(s Service) (*Service, error) {
	if s.Repo == nil || s.Runner == nil || s.Converter == nil {
		return nil, fmt.Errorf("audit service needs repo, runner and converter")
	}
	if s.Clock == nil {
		s.Clock = application.SystemClock{}
	}
	if s.Log == nil {
		s.Log = hclog.NewNullLogger()
	}
	if s.Jobs <= 0 {
		s.Jobs = 4
	}
	return &s, nil
}

// CheckRegistry verifies that the runner and the converter both cover every
// registered tool. Called once at startup; a gap here is a wiring bug, so
// the process should refuse to start.
func CheckRegistry(runnerTools, parserTools []domain.Tool) error {
	covered := func(list []domain.Tool, t domain.Tool) bool {
		for _, c := range list {
			if c == t {
				return true
			}
		}
		return false
	}
	for _, t := range domain.AllTools() {
		if !covered(runnerTools, t) {
			return fmt.Errorf("tool %q has no runner", t)
		}
		if !covered(parserTools, t) {
			return fmt.Errorf("tool %q has no parser", t)
		}
	}
	return nil
}

// ToolOutcome is the per-tool result of one audit pass.
type ToolOutcome struct {
	Tool           domain.Tool   `json:"tool"`
	ScanID         domain.ScanID `json:"scan_id,omitempty"`
	Status         string        `json:"status"`
	Submitted      int           `json:"submitted"`
	NewlyPersisted int           `json:"newly_persisted"`
	Err            string        `json:"error,omitempty"`
}

// StatusSkipped marks tools that never started because an earlier tool
// failed fatally.
const StatusSkipped = "skipped"

// RootReport aggregates one root's outcomes.
type RootReport struct {
	Root     string        `json:"root"`
	Dir      string        `json:"dir"`
	Outcomes []ToolOutcome `json:"outcomes"`
}

// Failed reports whether any tool ended in a fatal state.
func (r RootReport) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Err != "" || o.Status == StatusSkipped {
			return true
		}
	}
	return false
}

// AuditRoot runs the selected tools against one project directory. Tools
// run concurrently up to Jobs. Under StopOnError the first fatal failure
// stops the pipeline and tools that have not started yet are recorded as
// skipped; otherwise every tool runs and the report carries all outcomes.
func (s *Service) AuditRoot(ctx context.Context, dir string) (RootReport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return RootReport{}, err
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		return RootReport{}, fmt.Errorf("target is not a directory: %s", dir)
	}

	tools := s.Tools
	if len(tools) == 0 {
		tools = domain.AllTools()
	}
	report := RootReport{Root: filepath.Base(abs), Dir: abs, Outcomes: make([]ToolOutcome, len(tools))}

	limit := s.Jobs
	if limit > len(tools) {
		limit = len(tools)
	}

	var (
		mu      sync.Mutex
		aborted bool
	)
	guard := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, tool := range tools {
		guard <- struct{}{} // blocks while the pool is full
		mu.Lock()
		stop := aborted
		mu.Unlock()
		if stop {
			report.Outcomes[i] = ToolOutcome{Tool: tool, Status: StatusSkipped}
			<-guard
			continue
		}

		wg.Add(1)
		go func(i int, tool domain.Tool) {
			defer wg.Done()
			defer func() { <-guard }()

			out := s.runTool(ctx, tool, abs)
			if out.Err != "" && s.StopOnError {
				mu.Lock()
				aborted = true
				mu.Unlock()
			}
			report.Outcomes[i] = out
		}(i, tool)
	}
	wg.Wait()

	s.Log.Info("audit finished", "root", report.Root, "failed", report.Failed())
	return report, nil
}

// AuditWorkspace treats every direct subdirectory of dir as a project and
// audits them one after another in name order. Hidden and generated
// directories are ignored.
func (s *Service) AuditWorkspace(ctx context.Context, dir string) ([]RootReport, error) {
	roots, err := DiscoverRoots(dir)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no project directories under %s", dir)
	}

	reports := make([]RootReport, 0, len(roots))
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := s.AuditRoot(ctx, root)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// DiscoverRoots lists the project directories directly under dir, sorted
// by name.
func DiscoverRoots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var roots []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || skipDirs[name] || len(name) > 0 && name[0] == '.' {
			continue
		}
		roots = append(roots, filepath.Join(dir, name))
	}
	sort.Strings(roots)
	return roots, nil
}

// RunTool executes a single tool against a directory, end to end. Used by
// the CLI's single-tool mode.
func (s *Service) RunTool(ctx context.Context, tool domain.Tool, dir string) (ToolOutcome, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ToolOutcome{}, err
	}
	return s.runTool(ctx, tool, abs), nil
}

// runTool is the per-tool pipeline: run, convert, archive, persist. Every
// failure is recorded as a scan-error row on top of whatever the scan row
// itself captures.
func (s *Service) runTool(ctx context.Context, tool domain.Tool, dir string) ToolOutcome {
	id := domain.ScanID(fmt.Sprintf("%s-%s", uuid.New().String(), tool))
	out := ToolOutcome{Tool: tool, ScanID: id}
	now := s.Clock.Now()

	res, err := s.Runner.Run(ctx, domain.RunRequest{Tool: tool, Target: dir, Timeout: s.Timeout})
	if err != nil {
		out.Err = err.Error()
		out.Status = string(domain.StatusLaunchFailed)
		s.recordError(id, tool, errdomain.PhaseLaunch, err.Error())
		return out
	}

	scan, rows, perr := s.Converter.Convert(res, now)
	scan.ID = id
	out.Status = string(scan.Status)

	switch res.State {
	case domain.RunLaunchFailed:
		out.Err = scan.ErrorSummary
		s.recordError(id, tool, errdomain.PhaseLaunch, scan.ErrorSummary)
	case domain.RunTimedOut:
		out.Err = fmt.Sprintf("timed out after %s", res.Duration)
		s.recordError(id, tool, errdomain.PhaseTimeout, out.Err)
	default:
		if perr != nil {
			out.Err = perr.Error()
			s.recordError(id, tool, errdomain.PhaseParse, perr.Error())
		} else if tool.ExitFatal(res.ExitCode) {
			out.Err = fmt.Sprintf("exit code %d: %s", res.ExitCode, scan.ErrorSummary)
		}
	}

	if s.Artifacts != nil && res.Stdout != "" {
		if url, aerr := s.archive(ctx, scan, res.Stdout); aerr != nil {
			s.Log.Warn("artifact upload failed", "tool", tool, "error", aerr)
		} else {
			scan.ArtifactURL = url
		}
	}

	receipt, serr := s.Repo.SaveScan(ctx, scan, rows)
	if serr != nil {
		out.Err = serr.Error()
		s.recordError(id, tool, errdomain.PhasePersist, serr.Error())
		return out
	}
	out.Submitted = receipt.Submitted
	out.NewlyPersisted = receipt.NewlyPersisted

	s.Log.Debug("tool persisted",
		"tool", tool, "scan", id, "status", out.Status,
		"submitted", out.Submitted, "new", out.NewlyPersisted)
	return out
}

// archive stages raw stdout in a temp file and hands it to the artifact
// store, which removes the file after upload.
func (s *Service) archive(ctx context.Context, scan *domain.Scan, stdout string) (string, error) {
	f, err := os.CreateTemp("", fmt.Sprintf("%s-*.out", scan.Tool))
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(stdout); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s.out", scan.Root, scan.Tool, scan.ID)
	return s.Artifacts.UploadAndCleanup(ctx, f.Name(), key)
}

func (s *Service) recordError(id domain.ScanID, tool domain.Tool, phase, msg string) {
	if s.Errors == nil {
		return
	}
	e := &errdomain.ScanError{ScanID: string(id), Tool: string(tool), Phase: phase, Message: msg}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Errors.Save(ctx, e); err != nil {
		s.Log.Warn("scan error not recorded", "scan", id, "phase", phase, "error", err)
	}
}
