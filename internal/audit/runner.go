package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Format selects how audit output is interpreted.
type Format string

const (
	// FormatText reads the "Severity:" summary line of human-readable output.
	FormatText Format = "text"
	// FormatJSON reads counts from `<pm> audit --json` output.
	FormatJSON Format = "json"
)

// Status describes how a run ended.
type Status string

const (
	StatusSuccess   Status = "success"    // success sentinel found, nothing parsed
	StatusPassed    Status = "passed"     // parsed, nothing at or above threshold
	StatusFailed    Status = "failed"     // parsed, verdict fails the build
	StatusExecError Status = "exec_error" // audit command could not produce output
)

// Exit codes returned to the calling pipeline.
const (
	ExitOK     = 0
	ExitFailed = 1
)

// DefaultSuccessSentinel marks audit output that reports no known vulnerabilities.
const DefaultSuccessSentinel = "[+] no known vulnerabilities found"

// Result holds the structured outcome of one audit run.
type Result struct {
	Manager         string  `json:"manager,omitempty"`
	Command         string  `json:"command"`
	Status          Status  `json:"status"`
	Verdict         Verdict `json:"verdict"`
	Counts          Counts  `json:"counts"`
	Summary         string  `json:"summary,omitempty"`
	ExitCode        int     `json:"exit_code"`
	CommandExitCode int     `json:"command_exit_code"`
	DurationMs      int     `json:"duration_ms"`
	ExecError       string  `json:"exec_error,omitempty"`
	Output          string  `json:"-"`
}

// JSON returns the result as indented JSON.
func (r *Result) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Options configures a single audit run.
type Options struct {
	Manager          string
	Command          string
	Format           Format
	Thresholds       Thresholds
	SuccessSentinels []string
	// Timeout bounds the audit command; zero means no limit.
	Timeout time.Duration
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes the audit command and decides the gate outcome.
type Runner struct {
	cmd CommandRunner
}

// NewRunner creates a Runner with the given command runner.
func NewRunner(cmd CommandRunner) *Runner {
	return &Runner{cmd: cmd}
}

// Run executes one audit in dir. Failures of the audit command itself are
// reported through Result.Status rather than an error and never fail the gate.
func (r *Runner) Run(ctx context.Context, dir string, opts Options) *Result {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res := &Result{
		Manager:  opts.Manager,
		Command:  opts.Command,
		Verdict:  VerdictNone,
		ExitCode: ExitOK,
	}

	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(ctx, dir, opts.Command)
	res.DurationMs = int(time.Since(start).Milliseconds())
	res.CommandExitCode = exitCode
	res.Output = stdout

	slog.Debug("audit command finished",
		"command", opts.Command, "exit_code", exitCode, "duration_ms", res.DurationMs,
		"stdout_bytes", len(stdout), "stderr_bytes", len(stderr))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Status = StatusExecError
		res.ExecError = fmt.Sprintf("timeout after %s", opts.Timeout)
		return res
	}

	if stdout == "" {
		switch {
		case err != nil:
			res.ExecError = err.Error()
		case exitCode != 0:
			res.ExecError = fmt.Sprintf("command %q exited with status %d", opts.Command, exitCode)
			if msg := strings.TrimSpace(stderr); msg != "" {
				res.ExecError += ": " + msg
			}
		}
		res.Status = StatusPassed
		if res.ExecError != "" {
			res.Status = StatusExecError
		}
		return res
	}

	if containsAny(stdout, opts.SuccessSentinels) {
		res.Status = StatusSuccess
		return res
	}

	switch opts.Format {
	case FormatJSON:
		counts, err := ParseJSON(stdout)
		if err != nil {
			slog.Warn("could not parse audit JSON", "err", err)
			res.Summary = "could not parse audit JSON"
			break
		}
		res.Counts = counts
		res.Summary = jsonSummary(counts)
		res.Verdict = Decide(counts, opts.Thresholds)
	default:
		res.Summary = LastLine(stdout)
		res.Counts, _ = ParseCounts(res.Summary)
		res.Verdict = Evaluate(res.Summary, opts.Thresholds)
	}

	res.Status = StatusPassed
	if res.Verdict.Failed() {
		res.Status = StatusFailed
		res.ExitCode = ExitFailed
	}
	return res
}

// LastLine returns the last non-empty line of output.
func LastLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if line != "" {
			return line
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
