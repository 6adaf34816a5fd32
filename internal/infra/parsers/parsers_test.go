package parsers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func completed(tool domain.Tool, dir string) domain.RunResult {
	return domain.RunResult{
		Tool:     tool,
		Dir:      dir,
		State:    domain.RunCompleted,
		Duration: 120 * time.Millisecond,
	}
}

func TestParseBandit(t *testing.T) {
	res := completed(domain.ToolBandit, "/work/shop")
	res.ExitCode = 1
	res.ParsedJSON = mustJSON(t, `{
	  "results": [
	    {
	      "filename": "/work/shop/app/crypto.py",
	      "line_number": 14,
	      "line_range": [14, 15],
	      "col_offset": 8,
	      "test_id": "B303",
	      "test_name": "md5",
	      "issue_text": "Use of insecure MD2, MD4, MD5, or SHA1 hash function.",
	      "issue_severity": "MEDIUM",
	      "issue_confidence": "HIGH"
	    }
	  ]
	}`)

	scan, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	f := rows[0].(*domain.BanditFinding)
	assert.Equal(t, "app/crypto.py", f.FilePath)
	assert.Equal(t, "shop", f.Root)
	assert.Equal(t, int64(14), *f.Line)
	assert.Equal(t, int64(15), *f.EndLine)
	assert.Equal(t, int64(8), *f.Col)
	assert.Equal(t, "B303:md5", f.Rule)
	assert.Equal(t, "MEDIUM", f.Severity)

	assert.Equal(t, domain.StatusCompleted, scan.Status)
	assert.Empty(t, scan.ErrorSummary, "exit 1 means findings, not failure")
}

func TestParseBanditBadShape(t *testing.T) {
	res := completed(domain.ToolBandit, "/work/shop")
	res.ParsedJSON = mustJSON(t, `{"errors": []}`)

	scan, rows, err := Convert(res, Options{Now: time.Now()})
	assert.Error(t, err)
	assert.Empty(t, rows)
	assert.Contains(t, scan.ErrorSummary, "parse:")
}

func TestParseMypy(t *testing.T) {
	res := completed(domain.ToolMypy, "/work/api")
	res.ExitCode = 1
	res.Stdout = `{"file": "api/models.py", "line": 42, "column": 5, "message": "Incompatible return value type", "hint": null, "code": "return-value", "severity": "error"}
not json at all
{"file": "api/views.py", "line": 7, "column": 0, "message": "Name \"x\" is not defined", "code": "name-defined", "severity": "error"}`

	scan, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	f := rows[0].(*domain.MypyFinding)
	assert.Equal(t, "api/models.py", f.FilePath)
	assert.Equal(t, int64(42), *f.Line)
	assert.Equal(t, "return-value", f.Code)
	assert.Equal(t, "error", f.Severity)

	assert.Contains(t, scan.ErrorSummary, "skipped 1 unparseable")
}

func TestParseRadon(t *testing.T) {
	res := completed(domain.ToolRadon, "/work/lib")
	res.ParsedJSON = map[string]any{
		"cc": mustJSON(t, `{
		  "lib/core.py": [
		    {"complexity": 4, "rank": "A"},
		    {"complexity": 11, "rank": "C"}
		  ]
		}`),
		"mi":  mustJSON(t, `{"lib/core.py": {"mi": 62.5, "rank": "B"}}`),
		"raw": mustJSON(t, `{"lib/core.py": {"loc": 120, "sloc": 90, "lloc": 80, "comments": 12, "blank": 18}}`),
		"hal": mustJSON(t, `{"lib/core.py": {"total": {"volume": 512.3, "difficulty": 9.1, "effort": 4661.9, "time": 259.0, "bugs": 0.17}}}`),
	}

	_, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byType := map[string]*domain.RadonFinding{}
	for _, r := range rows {
		f := r.(*domain.RadonFinding)
		assert.Equal(t, "lib/core.py", f.FilePath)
		byType[f.MetricType] = f
	}

	cc := byType["cc"]
	require.NotNil(t, cc)
	assert.Equal(t, int64(2), *cc.CCBlocks)
	assert.Equal(t, 15.0, *cc.CCTotal)
	assert.Equal(t, 11.0, *cc.CCMax)
	assert.InDelta(t, 7.5, *cc.CCAvg, 1e-9)
	assert.Equal(t, "C", cc.CCWorstRank)

	require.NotNil(t, byType["mi"])
	assert.Equal(t, 62.5, *byType["mi"].MI)
	assert.Equal(t, "B", byType["mi"].MIRank)

	require.NotNil(t, byType["raw"])
	assert.Equal(t, int64(90), *byType["raw"].RawSLOC)

	require.NotNil(t, byType["hal"])
	assert.Equal(t, 512.3, *byType["hal"].HalVolume)
}

func TestParseVultureConfidenceFilter(t *testing.T) {
	res := completed(domain.ToolVulture, "/work/svc")
	res.ExitCode = 3
	res.Stdout = `svc/util.py:10: unused function 'helper' (60% confidence)
svc/util.py:22: unused variable 'tmp' (40% confidence)
svc/util.py:30: unused attribute 'cache' (50% confidence)
svc/main.py:3: unused import 'os' (90% confidence)`

	scan, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 3, "the 40% row falls under the default cutoff; 50% sits on it and stays")

	f := rows[0].(*domain.VultureFinding)
	assert.Equal(t, "svc/util.py", f.FilePath)
	assert.Equal(t, int64(10), *f.Line)
	assert.Equal(t, int64(60), *f.Confidence)
	assert.Equal(t, "unused-function", f.Kind)

	assert.Equal(t, domain.StatusCompleted, scan.Status)
	assert.Empty(t, scan.ErrorSummary)
}

func TestParseVultureCustomCutoff(t *testing.T) {
	res := completed(domain.ToolVulture, "/work/svc")
	res.Stdout = "svc/a.py:1: unused import 'sys' (40% confidence)"

	_, rows, err := Convert(res, Options{Now: time.Now(), MinConfidence: 30})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParseEslint(t *testing.T) {
	res := completed(domain.ToolESLint, "/work/web")
	res.ExitCode = 1
	res.ParsedJSON = mustJSON(t, `[
	  {
	    "filePath": "/work/web/src/app.ts",
	    "errorCount": 1,
	    "warningCount": 1,
	    "fixableErrorCount": 0,
	    "fixableWarningCount": 1,
	    "messages": [
	      {"ruleId": "no-unused-vars", "severity": 2, "message": "'x' is defined but never used.", "line": 3, "column": 7, "endLine": 3, "endColumn": 8},
	      {"ruleId": "semi", "severity": 1, "message": "Missing semicolon.", "line": 9, "column": 20, "fix": {"range": [100, 100], "text": ";"}}
	    ]
	  },
	  {"filePath": "/work/web/README.md", "errorCount": 0, "warningCount": 0, "messages": []}
	]`)

	_, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 3, "one file row plus two issues; markdown entry skipped")

	file := rows[0].(*domain.EslintFinding)
	assert.Equal(t, "file", file.RowType)
	assert.Equal(t, "src/app.ts", file.FilePath)
	assert.Equal(t, int64(1), *file.ErrorCount)
	assert.Equal(t, int64(1), *file.FixableWarningCount)

	issue := rows[1].(*domain.EslintFinding)
	assert.Equal(t, "issue", issue.RowType)
	assert.Equal(t, "no-unused-vars", issue.RuleID)
	assert.Equal(t, int64(2), *issue.Severity)
	assert.False(t, *issue.Fix)

	fixable := rows[2].(*domain.EslintFinding)
	assert.True(t, *fixable.Fix)
}

func TestConvertTimedOut(t *testing.T) {
	res := domain.RunResult{
		Tool:     domain.ToolMypy,
		Dir:      "/work/api",
		State:    domain.RunTimedOut,
		ExitCode: -1,
		Duration: 5 * time.Second,
		Stderr:   "...\n[TIMEOUT after 5s]",
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	scan, rows, err := Convert(res, Options{Now: now})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, domain.StatusTimedOut, scan.Status)
	assert.Equal(t, -1, scan.ExitCode)
	assert.Equal(t, now, scan.TriggeredAt)
	assert.Contains(t, scan.ErrorSummary, "TIMEOUT")
}

func TestConvertLaunchFailed(t *testing.T) {
	res := domain.RunResult{
		Tool:     domain.ToolBandit,
		Dir:      "/work/api",
		State:    domain.RunLaunchFailed,
		ExitCode: domain.ExitLaunchFailed,
		Stderr:   `exec: "bandit": executable file not found in $PATH`,
	}

	scan, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, domain.StatusLaunchFailed, scan.Status)
	assert.Equal(t, domain.ExitLaunchFailed, scan.ExitCode)
	assert.Contains(t, scan.ErrorSummary, "not found")
}

func TestConvertFatalExit(t *testing.T) {
	res := completed(domain.ToolMypy, "/work/api")
	res.ExitCode = 2
	res.Stderr = "mypy: error: Cannot find config file"

	scan, rows, err := Convert(res, Options{Now: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, domain.StatusCompleted, scan.Status)
	assert.Contains(t, scan.ErrorSummary, "Cannot find config file")
}

func TestStderrTail(t *testing.T) {
	assert.Equal(t, "short", stderrTail("short", 500))
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, stderrTail(string(long), 500), 500)
}

func TestSupportedCoversRegistry(t *testing.T) {
	assert.ElementsMatch(t, domain.AllTools(), Supported())
}
