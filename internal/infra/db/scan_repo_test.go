package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errdomain "github.com/bryanwahyu/codeaudit/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

func testRepo(t *testing.T) (*ScanRepository, *ScanErrorRepository) {
	t.Helper()
	ctx := context.Background()

	conn, dialect, err := Connect(ctx, "sqlite3", filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, Seed(ctx, conn, dialect))
	// re-seeding an existing database must be a no-op
	require.NoError(t, Seed(ctx, conn, dialect))

	return NewScanRepository(conn, dialect), NewScanErrorRepository(conn, dialect)
}

func sampleScan(id, tool, root string) *domain.Scan {
	return &domain.Scan{
		ID:          domain.ScanID(id),
		Tool:        domain.Tool(tool),
		Root:        root,
		TriggeredAt: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Command:     []string{tool, "."},
		ExitCode:    1,
		DurationMS:  420,
		Status:      domain.StatusCompleted,
	}
}

func banditRow(root, path string, line int64, rule string) domain.Finding {
	l := line
	return &domain.BanditFinding{
		Location: domain.Location{FilePath: path, Line: &l},
		Root:     root,
		Rule:     rule,
		Message:  "insecure call",
		Severity: "MEDIUM",
	}
}

func TestSaveScanIdempotent(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	rows := []domain.Finding{
		banditRow("proj", "a.py", 10, "B101"),
		banditRow("proj", "a.py", 20, "B303"),
	}

	receipt, err := repo.SaveScan(ctx, sampleScan("scan-1-bandit", "bandit", "proj"), rows)
	require.NoError(t, err)
	assert.Equal(t, domain.PersistReceipt{Submitted: 2, NewlyPersisted: 2}, receipt)

	// identical findings from a rescan of unchanged code
	receipt, err = repo.SaveScan(ctx, sampleScan("scan-2-bandit", "bandit", "proj"), rows)
	require.NoError(t, err)
	assert.Equal(t, domain.PersistReceipt{Submitted: 2, NewlyPersisted: 0}, receipt)

	n, err := repo.CountFindings(ctx, domain.ToolBandit)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// both scan rows survive; the metadata log is append-only
	scans, err := repo.Latest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, scans, 2)
}

func TestSaveScanInBatchDuplicate(t *testing.T) {
	repo, _ := testRepo(t)

	rows := []domain.Finding{
		banditRow("proj", "a.py", 10, "B101"),
		banditRow("proj", "a.py", 10, "B101"),
	}
	receipt, err := repo.SaveScan(context.Background(), sampleScan("scan-1-bandit", "bandit", "proj"), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Submitted)
	assert.Equal(t, 1, receipt.NewlyPersisted)
}

func TestSaveScanRollsBackOnScanInsertFailure(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	_, err := repo.SaveScan(ctx, sampleScan("scan-1-bandit", "bandit", "proj"),
		[]domain.Finding{banditRow("proj", "a.py", 10, "B101")})
	require.NoError(t, err)

	// duplicate scan id violates the metadata primary key; the new finding
	// rows must not survive the rollback
	_, err = repo.SaveScan(ctx, sampleScan("scan-1-bandit", "bandit", "proj"),
		[]domain.Finding{banditRow("proj", "b.py", 5, "B608")})
	require.Error(t, err)

	n, err := repo.CountFindings(ctx, domain.ToolBandit)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	scan := sampleScan("scan-1-mypy", "mypy", "api")
	scan.ErrorSummary = "skipped 2 unparseable ndjson lines"
	_, err := repo.SaveScan(ctx, scan, nil)
	require.NoError(t, err)

	got, err := repo.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.ID, got.ID)
	assert.Equal(t, domain.ToolMypy, got.Tool)
	assert.Equal(t, []string{"mypy", "."}, got.Command)
	assert.True(t, scan.TriggeredAt.Equal(got.TriggeredAt))
	assert.Equal(t, scan.ErrorSummary, got.ErrorSummary)

	_, err = repo.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestIssuesAndRootFilter(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	line := int64(5)
	conf := int64(80)
	sev := int64(2)
	_, err := repo.SaveScan(ctx, sampleScan("s1-bandit", "bandit", "alpha"), []domain.Finding{
		banditRow("alpha", "a.py", 10, "B101"),
	})
	require.NoError(t, err)
	_, err = repo.SaveScan(ctx, sampleScan("s2-vulture", "vulture", "beta"), []domain.Finding{
		&domain.VultureFinding{
			Location:   domain.Location{FilePath: "b.py", Line: &line},
			Root:       "beta",
			Message:    "unused function 'f'",
			Confidence: &conf,
			Kind:       "unused-function",
		},
	})
	require.NoError(t, err)
	_, err = repo.SaveScan(ctx, sampleScan("s3-eslint", "eslint", "beta"), []domain.Finding{
		&domain.EslintFinding{
			Location: domain.Location{FilePath: "app.ts", Line: &line},
			Root:     "beta", RowType: "issue",
			RuleID: "semi", Severity: &sev, Message: "Missing semicolon.",
		},
		&domain.EslintFinding{
			Location: domain.Location{FilePath: "app.ts"},
			Root:     "beta", RowType: "file",
		},
	})
	require.NoError(t, err)

	all, err := repo.Issues(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3, "file rollup rows are not issues")

	beta, err := repo.Issues(ctx, "beta")
	require.NoError(t, err)
	require.Len(t, beta, 2)
	for _, it := range beta {
		assert.Equal(t, "beta", it.Root)
	}

	var eslintIssue *domain.Issue
	for i := range beta {
		if beta[i].Tool == domain.ToolESLint {
			eslintIssue = &beta[i]
		}
	}
	require.NotNil(t, eslintIssue)
	assert.Equal(t, "error", eslintIssue.Severity)
	assert.Equal(t, "semi", eslintIssue.Rule)

	roots, err := repo.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, roots)
}

func TestMetrics(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	blocks := int64(3)
	total, max, avg, mi := 12.0, 7.0, 4.0, 58.2
	_, err := repo.SaveScan(ctx, sampleScan("s1-radon", "radon", "lib"), []domain.Finding{
		&domain.RadonFinding{
			Location: domain.Location{FilePath: "core.py"},
			Root:     "lib", MetricType: "cc",
			CCBlocks: &blocks, CCTotal: &total, CCMax: &max, CCAvg: &avg, CCWorstRank: "B",
		},
		&domain.RadonFinding{
			Location: domain.Location{FilePath: "core.py"},
			Root:     "lib", MetricType: "mi",
			MI: &mi, MIRank: "B",
		},
	})
	require.NoError(t, err)

	metrics, err := repo.Metrics(ctx, "lib")
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	cc := metrics[0]
	assert.Equal(t, "cc", cc.MetricType)
	assert.Equal(t, 3.0, cc.Values["cc_blocks"])
	assert.Equal(t, 12.0, cc.Values["cc_total"])
	_, hasMI := cc.Values["mi"]
	assert.False(t, hasMI, "null columns stay out of the value map")

	assert.Equal(t, 58.2, metrics[1].Values["mi"])
}

func TestScanErrorRepo(t *testing.T) {
	_, errs := testRepo(t)
	ctx := context.Background()

	require.NoError(t, errs.Save(ctx, &errdomain.ScanError{
		ScanID: "s1-bandit", Tool: "bandit",
		Phase: errdomain.PhaseLaunch, Message: "executable not found",
	}))
	require.NoError(t, errs.Save(ctx, &errdomain.ScanError{
		ScanID: "s1-bandit", Tool: "bandit",
		Phase: errdomain.PhaseTimeout, Message: "timed out after 5m0s",
	}))

	list, err := errs.ListByScan(ctx, "s1-bandit", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, errdomain.PhaseTimeout, list[0].Phase, "newest first")
	assert.False(t, list[0].CreatedAt.IsZero())

	none, err := errs.ListByScan(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
