package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

// DefaultTimeout is the per-invocation wall-clock budget when the request
// does not set one.
const DefaultTimeout = 5 * time.Minute

// commands maps every registered tool to the argv sequences it needs. All
// tools are driven through a single subprocess except radon, whose four
// metric reports are separate subcommands merged into one bundle.
var commands = map[domain.Tool][][]string{
	domain.ToolBandit:  {{"bandit", "-r", "-f", "json", "-q", "."}},
	domain.ToolMypy:    {{"mypy", "--output", "json", "--no-error-summary", "."}},
	domain.ToolVulture: {{"vulture", "."}},
	domain.ToolESLint:  {{"eslint", "-f", "json", "."}},
	domain.ToolRadon: {
		{"radon", "cc", "-s", "-j", "."},
		{"radon", "mi", "-j", "."},
		{"radon", "hal", "-j", "."},
		{"radon", "raw", "-j", "."},
	},
}

// radonSections names the bundle slot for each radon subcommand, in order.
var radonSections = []string{"cc", "mi", "hal", "raw"}

// Supported returns the tools this runner can execute.
func Supported() []domain.Tool {
	out := make([]domain.Tool, 0, len(commands))
	for _, t := range domain.AllTools() {
		if _, ok := commands[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

type Runner struct {
	log hclog.Logger
}

func NewRunner(log hclog.Logger) *Runner {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Runner{log: log}
}

// Run executes one analyzer against one target under a hard wall-clock
// timeout. Exit codes are reported verbatim; interpreting them is the
// caller's business. No retries.
func (r *Runner) Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error) {
	argvs, ok := commands[req.Tool]
	if !ok {
		return domain.RunResult{}, fmt.Errorf("unsupported tool: %s", req.Tool)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if req.Tool == domain.ToolRadon {
		return r.runRadon(ctx, req.Target, timeout, argvs)
	}

	res := r.runOnce(ctx, req.Tool, argvs[0], req.Target, timeout)
	res.ParsedJSON = tryParseJSON(res.Stdout)
	return res, nil
}

// runRadon drives the four radon subcommands and merges their parsed output
// into one {"cc","mi","hal","raw"} bundle. A timeout or launch failure on
// any subcommand fails the whole invocation.
func (r *Runner) runRadon(ctx context.Context, target string, timeout time.Duration, argvs [][]string) (domain.RunResult, error) {
	bundle := make(map[string]any, len(argvs))
	var stdouts []string
	merged := domain.RunResult{
		Tool: domain.ToolRadon,
		Cmd:  []string{"radon", "cc", "mi", "hal", "raw", "-j", "."},
		Dir:  target,
	}

	start := time.Now()
	for i, argv := range argvs {
		res := r.runOnce(ctx, domain.ToolRadon, argv, target, timeout)
		stdouts = append(stdouts, res.Stdout)
		merged.Stderr += res.Stderr
		if res.State != domain.RunCompleted {
			merged.State = res.State
			merged.ExitCode = res.ExitCode
			merged.Duration = res.Duration
			merged.Stdout = strings.Join(stdouts, "\n\n")
			return merged, nil
		}
		if res.ExitCode != 0 {
			merged.ExitCode = res.ExitCode
		}
		bundle[radonSections[i]] = tryParseJSON(res.Stdout)
	}

	merged.State = domain.RunCompleted
	merged.Duration = time.Since(start)
	merged.Stdout = strings.Join(stdouts, "\n\n")
	merged.ParsedJSON = bundle
	return merged, nil
}

// runOnce is the single-subprocess primitive behind Run. It distinguishes
// three terminal states: Completed (exited, any code, in time), TimedOut
// (killed at the deadline, duration capped at the timeout) and LaunchFailed
// (could not start; sentinel exit code, OS error in stderr).
func (r *Runner) runOnce(ctx context.Context, tool domain.Tool, argv []string, dir string, timeout time.Duration) domain.RunResult {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running tool", "tool", tool, "cmd", strings.Join(argv, " "), "dir", dir)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return domain.RunResult{
			Tool:     tool,
			Cmd:      argv,
			Dir:      dir,
			State:    domain.RunLaunchFailed,
			ExitCode: domain.ExitLaunchFailed,
			Duration: time.Since(start),
			Stderr:   err.Error(),
		}
	}

	err := cmd.Wait()
	duration := time.Since(start)

	res := domain.RunResult{
		Tool:     tool,
		Cmd:      argv,
		Dir:      dir,
		State:    domain.RunCompleted,
		Duration: duration,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.State = domain.RunTimedOut
		res.ExitCode = -1
		res.Duration = timeout
		res.Stderr += fmt.Sprintf("\n[TIMEOUT after %s]", timeout)
		return res
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res
		}
		// started but did not run to a normal exit
		res.State = domain.RunLaunchFailed
		res.ExitCode = domain.ExitLaunchFailed
		res.Stderr += "\n" + err.Error()
		return res
	}
	return res
}

// tryParseJSON decodes stdout when it looks like a JSON document. Parse
// failure is not an error here; the converter decides what a missing
// payload means for the tool at hand.
func tryParseJSON(stdout string) any {
	txt := strings.TrimSpace(stdout)
	if !strings.HasPrefix(txt, "{") && !strings.HasPrefix(txt, "[") {
		return nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(txt), &parsed); err != nil {
		return nil
	}
	return parsed
}
