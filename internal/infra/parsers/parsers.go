// Package parsers converts heterogeneous tool output into the uniform
// finding schema. Dispatch is a static table from tool id to parser; the
// table is checked for completeness against the runner at startup.
package parsers

import (
	"fmt"
	"time"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// Options tunes conversion without reaching for globals.
type Options struct {
	// Now stamps the scan row; injected so conversion stays deterministic
	// under test.
	Now time.Time
	// MinConfidence drops vulture rows below this percentage. Zero means
	// the default of 50.
	MinConfidence int
}

// DefaultMinConfidence is the vulture confidence cutoff when unset.
const DefaultMinConfidence = 50

// parseFunc turns one run's raw output into finding rows. note carries
// non-fatal diagnostics (e.g. skipped NDJSON lines); a non-nil error means
// the payload shape was wrong and the scan gets zero rows.
type parseFunc func(res domain.RunResult, opt Options) (rows []domain.Finding, note string, err error)

var byTool = map[domain.Tool]parseFunc{
	domain.ToolBandit:  parseBandit,
	domain.ToolMypy:    parseMypy,
	domain.ToolRadon:   parseRadon,
	domain.ToolVulture: parseVulture,
	domain.ToolESLint:  parseEslint,
}

// Supported returns the tools this package can convert.
func Supported() []domain.Tool {
	out := make([]domain.Tool, 0, len(byTool))
	for _, t := range domain.AllTools() {
		if _, ok := byTool[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Convert dispatches a run result to the tool's parser and assembles the
// scan row. A shape error yields the scan with zero rows and the failure
// noted on it; the error is also returned so the caller can record it
// without failing sibling conversions. The scan's ID is left for the
// caller to assign.
func Convert(res domain.RunResult, opt Options) (*domain.Scan, []domain.Finding, error) {
	now := opt.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	scan := &domain.Scan{
		Tool:        res.Tool,
		Root:        rootLabel(res.Dir),
		TriggeredAt: now,
		Command:     res.Cmd,
		ExitCode:    res.ExitCode,
		DurationMS:  res.Duration.Milliseconds(),
		Status:      res.ScanStatus(),
	}

	if res.Failed() {
		scan.ErrorSummary = stderrTail(res.Stderr, 500)
		return scan, nil, nil
	}
	if res.Tool.ExitFatal(res.ExitCode) {
		scan.ErrorSummary = stderrTail(res.Stderr, 500)
	}

	parse, ok := byTool[res.Tool]
	if !ok {
		return scan, nil, fmt.Errorf("no parser registered for tool %q", res.Tool)
	}

	rows, note, err := parse(res, opt)
	if err != nil {
		scan.ErrorSummary = appendSummary(scan.ErrorSummary, "parse: "+err.Error())
		return scan, nil, err
	}
	if note != "" {
		scan.ErrorSummary = appendSummary(scan.ErrorSummary, note)
	}
	return scan, rows, nil
}

// Normalizer adapts Convert to the domain converter port with fixed
// options.
type Normalizer struct {
	MinConfidence int
}

func NewNormalizer(minConfidence int) *Normalizer {
	return &Normalizer{MinConfidence: minConfidence}
}

func (n *Normalizer) Convert(res domain.RunResult, now time.Time) (*domain.Scan, []domain.Finding, error) {
	return Convert(res, Options{Now: now, MinConfidence: n.MinConfidence})
}

func appendSummary(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
