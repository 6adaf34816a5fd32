package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// swapCommands temporarily replaces a tool's argv table.
func swapCommands(t *testing.T, tool domain.Tool, argvs [][]string) {
	t.Helper()
	orig := commands[tool]
	commands[tool] = argvs
	t.Cleanup(func() { commands[tool] = orig })
}

func TestRunUnknownTool(t *testing.T) {
	r := NewRunner(nil)
	_, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.Tool("pylint"), Target: t.TempDir()})
	assert.Error(t, err)
}

func TestRunCompleted(t *testing.T) {
	swapCommands(t, domain.ToolBandit, [][]string{{"sh", "-c", `echo '{"results": []}'`}})
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.ToolBandit, Target: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, res.State)
	assert.Equal(t, 0, res.ExitCode)
	assert.NotNil(t, res.ParsedJSON, "JSON stdout gets decoded")
	assert.False(t, res.Failed())
}

func TestRunExitCodeReportedVerbatim(t *testing.T) {
	swapCommands(t, domain.ToolVulture, [][]string{{"sh", "-c", "echo found; exit 3"}})
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.ToolVulture, Target: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, res.State, "nonzero exit is still a completed run")
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stdout, "found")
	assert.Nil(t, res.ParsedJSON)
}

func TestRunTimedOut(t *testing.T) {
	swapCommands(t, domain.ToolMypy, [][]string{{"sh", "-c", "sleep 5"}})
	r := NewRunner(nil)

	timeout := 100 * time.Millisecond
	start := time.Now()
	res, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.ToolMypy, Target: t.TempDir(), Timeout: timeout})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second, "process must be killed at the deadline")

	assert.Equal(t, domain.RunTimedOut, res.State)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, timeout, res.Duration, "duration is capped at the timeout")
	assert.Contains(t, res.Stderr, "TIMEOUT")
	assert.True(t, res.Failed())
}

func TestRunLaunchFailed(t *testing.T) {
	swapCommands(t, domain.ToolESLint, [][]string{{"definitely-not-on-path-1f0a"}})
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.ToolESLint, Target: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunLaunchFailed, res.State)
	assert.Equal(t, domain.ExitLaunchFailed, res.ExitCode)
	assert.NotEmpty(t, res.Stderr, "OS error lands in stderr")
	assert.True(t, res.Failed())
}

func TestRunRadonBundle(t *testing.T) {
	swapCommands(t, domain.ToolRadon, [][]string{
		{"sh", "-c", `echo '{"a.py": [{"complexity": 2, "rank": "A"}]}'`},
		{"sh", "-c", `echo '{"a.py": {"mi": 80.1, "rank": "A"}}'`},
		{"sh", "-c", `echo '{"a.py": {"total": {"volume": 10}}}'`},
		{"sh", "-c", `echo '{"a.py": {"loc": 5, "sloc": 4, "lloc": 4, "comments": 0, "blank": 1}}'`},
	})
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.ToolRadon, Target: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, res.State)

	bundle, ok := res.ParsedJSON.(map[string]any)
	require.True(t, ok)
	for _, section := range []string{"cc", "mi", "hal", "raw"} {
		assert.Contains(t, bundle, section)
	}
}

func TestRunRadonFailurePropagates(t *testing.T) {
	swapCommands(t, domain.ToolRadon, [][]string{
		{"sh", "-c", "echo '{}'"},
		{"no-such-radon-subcommand-bin"},
		{"sh", "-c", "echo '{}'"},
		{"sh", "-c", "echo '{}'"},
	})
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), domain.RunRequest{Tool: domain.ToolRadon, Target: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunLaunchFailed, res.State)
	assert.Nil(t, res.ParsedJSON)
}

func TestSupportedCoversRegistry(t *testing.T) {
	assert.ElementsMatch(t, domain.AllTools(), Supported())
}
