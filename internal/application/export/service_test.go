package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

type fakeRepo struct {
	roots   []string
	issues  []domain.Issue
	metrics []domain.Metric
}

func (f *fakeRepo) SaveScan(context.Context, *domain.Scan, []domain.Finding) (domain.PersistReceipt, error) {
	return domain.PersistReceipt{}, nil
}
func (f *fakeRepo) Get(context.Context, domain.ScanID) (*domain.Scan, error) { return nil, nil }
func (f *fakeRepo) Latest(context.Context, int) ([]*domain.Scan, error)      { return nil, nil }
func (f *fakeRepo) Roots(context.Context) ([]string, error)                  { return f.roots, nil }

func (f *fakeRepo) Issues(_ context.Context, root string) ([]domain.Issue, error) {
	if root == "" {
		return f.issues, nil
	}
	var out []domain.Issue
	for _, it := range f.issues {
		if it.Root == root {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeRepo) Metrics(context.Context, string) ([]domain.Metric, error) {
	return f.metrics, nil
}

func (f *fakeRepo) CountFindings(context.Context, domain.Tool) (int64, error) { return 0, nil }

func sampleRepo() *fakeRepo {
	return &fakeRepo{
		roots: []string{"alpha", "beta"},
		issues: []domain.Issue{
			{Tool: domain.ToolBandit, Root: "alpha", FilePath: "a.py", Message: "insecure hash"},
			{Tool: domain.ToolBandit, Root: "beta", FilePath: "b.py", Message: "eval used"},
			{Tool: domain.ToolMypy, Root: "alpha", FilePath: "a.py", Message: "bad type"},
		},
		metrics: []domain.Metric{
			{Root: "alpha", FilePath: "a.py", MetricType: "mi", Values: map[string]float64{"mi": 80}},
			{Root: "alpha", FilePath: "b.py", MetricType: "mi", Values: map[string]float64{"mi": 60}},
			{Root: "alpha", FilePath: "a.py", MetricType: "cc", Values: map[string]float64{"cc_total": 12}},
		},
	}
}

func TestBuildTotals(t *testing.T) {
	svc := &Service{Repo: sampleRepo(), IncludeMetrics: true}

	rep, err := svc.Build(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, rep.TotalIssues)
	assert.Equal(t, 2, rep.Totals["bandit"])
	assert.Equal(t, 1, rep.Totals["mypy"])
	assert.Equal(t, []string{"alpha", "beta"}, rep.Roots)

	require.NotNil(t, rep.Metrics)
	assert.Equal(t, 2, rep.Metrics.Files)
	require.NotNil(t, rep.Metrics.MI)
	assert.InDelta(t, 70.0, rep.Metrics.MI.Mean, 1e-9)
	assert.Equal(t, 60.0, rep.Metrics.MI.Min)
	assert.Equal(t, 80.0, rep.Metrics.MI.Max)
}

func TestBuildMetricsNeverCountAsIssues(t *testing.T) {
	svc := &Service{Repo: sampleRepo(), IncludeMetrics: true}
	rep, err := svc.Build(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, rep.TotalIssues, "metric rows stay out of the totals")
}

func TestBuildExcludeMetrics(t *testing.T) {
	svc := &Service{Repo: sampleRepo(), IncludeMetrics: false}
	rep, err := svc.Build(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, rep.Metrics)
}

func TestBuildRootFilter(t *testing.T) {
	svc := &Service{Repo: sampleRepo()}

	rep, err := svc.Build(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalIssues)
	assert.Equal(t, "alpha", rep.Root)

	_, err = svc.Build(context.Background(), "gamma")
	assert.Error(t, err)
}

func TestWriteBundle(t *testing.T) {
	svc := &Service{Repo: sampleRepo()}
	dir := t.TempDir()

	path, err := svc.Write(context.Background(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rep Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 3, rep.TotalIssues)
	assert.Len(t, rep.Issues["bandit"], 2)
}

func TestSingleMIValueHasZeroStdDev(t *testing.T) {
	repo := sampleRepo()
	repo.metrics = repo.metrics[:1]
	svc := &Service{Repo: repo, IncludeMetrics: true}

	rep, err := svc.Build(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, rep.Metrics.MI)
	assert.Zero(t, rep.Metrics.MI.StdDev)
}
