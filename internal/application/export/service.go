// Package export projects persisted findings into the report bundle
// written for downstream consumers.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bryanwahyu/codeaudit/internal/application"
	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// DefaultFileName is the bundle written when the caller gives a directory.
const DefaultFileName = "auditor-findings.json"

type Service struct {
	Repo  domain.Repository
	Clock application.Clock
	Log   hclog.Logger

	// IncludeMetrics adds the complexity section. Metric rows never count
	// toward issue totals either way.
	IncludeMetrics bool
}

// Report is the exported bundle shape.
type Report struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Root        string                    `json:"root,omitempty"`
	Roots       []string                  `json:"roots"`
	TotalIssues int                       `json:"total_issues"`
	Totals      map[string]int            `json:"totals_by_tool"`
	Issues      map[string][]domain.Issue `json:"issues"`
	Metrics     *MetricsSummary           `json:"metrics,omitempty"`
}

// MetricsSummary reports the radon rows plus maintainability statistics
// across all files that have an MI value.
type MetricsSummary struct {
	Files int             `json:"files"`
	MI    *MIStats        `json:"maintainability,omitempty"`
	Rows  []domain.Metric `json:"rows"`
}

type MIStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Build assembles the report, optionally filtered to one root.
func (s *Service) Build(ctx context.Context, root string) (*Report, error) {
	clock := s.Clock
	if clock == nil {
		clock = application.SystemClock{}
	}

	roots, err := s.Repo.Roots(ctx)
	if err != nil {
		return nil, err
	}
	if root != "" && !contains(roots, root) {
		return nil, fmt.Errorf("unknown root %q", root)
	}

	issues, err := s.Repo.Issues(ctx, root)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		GeneratedAt: clock.Now(),
		Root:        root,
		Roots:       roots,
		Totals:      make(map[string]int),
		Issues:      make(map[string][]domain.Issue),
	}
	for _, it := range issues {
		tool := string(it.Tool)
		rep.Issues[tool] = append(rep.Issues[tool], it)
		rep.Totals[tool]++
		rep.TotalIssues++
	}

	if s.IncludeMetrics {
		metrics, err := s.Repo.Metrics(ctx, root)
		if err != nil {
			return nil, err
		}
		rep.Metrics = summarizeMetrics(metrics)
	}
	return rep, nil
}

// Write builds the report and writes it as JSON. A directory destination
// gets the default file name appended.
func (s *Service) Write(ctx context.Context, root, dest string) (string, error) {
	rep, err := s.Build(ctx, root)
	if err != nil {
		return "", err
	}

	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		dest = filepath.Join(dest, DefaultFileName)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	if s.Log != nil {
		s.Log.Info("report written", "path", dest, "issues", rep.TotalIssues)
	}
	return dest, nil
}

func summarizeMetrics(rows []domain.Metric) *MetricsSummary {
	sum := &MetricsSummary{Rows: rows}

	files := make(map[string]bool)
	var mi []float64
	for _, m := range rows {
		files[m.FilePath] = true
		if m.MetricType == "mi" {
			if v, ok := m.Values["mi"]; ok {
				mi = append(mi, v)
			}
		}
	}
	sum.Files = len(files)

	if len(mi) > 0 {
		sort.Float64s(mi)
		sum.MI = &MIStats{
			Mean:   stat.Mean(mi, nil),
			StdDev: stdDev(mi),
			Min:    floats.Min(mi),
			Max:    floats.Max(mi),
		}
	}
	return sum
}

// stdDev is zero for a single sample instead of NaN.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
