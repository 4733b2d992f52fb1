package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sitesmith/sitesmith/internal/llm"
)

// maxCommandOutput caps captured stdout/stderr per stream.
const maxCommandOutput = 8000

// defaultCommandTimeout bounds a run when the caller gives none.
const defaultCommandTimeout = 20 * time.Second

// allowedCommands is the closed set of interpreters a generated project may
// invoke. Anything else is rejected before exec.
var allowedCommands = map[string]bool{
	"python":  true,
	"python3": true,
	"node":    true,
	"npm":     true,
	"npx":     true,
}

// CommandResult captures one finished command.
type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// CommandRunner executes allow-listed commands with the output directory as
// working directory. Arguments never reference paths outside it.
type CommandRunner struct {
	baseDir string
}

// NewCommandRunner creates a runner working inside baseDir.
func NewCommandRunner(baseDir string) (*CommandRunner, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve command dir: %w", err)
	}
	return &CommandRunner{baseDir: abs}, nil
}

func checkCommandArgs(args []string) error {
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.Contains(a, "..") {
			return fmt.Errorf("argument %q: %w", a, ErrOutsideBase)
		}
		if filepath.IsAbs(a) || strings.Contains(a, ":") {
			return fmt.Errorf("argument %q: %w", a, ErrOutsideBase)
		}
	}
	return nil
}

// Run executes the command with the given arguments inside the output
// directory. A nonzero exit is reported through CommandResult, not an
// error; errors are reserved for rejected input and exec failures.
func (r *CommandRunner) Run(ctx context.Context, command string, args []string, timeout time.Duration) (CommandResult, error) {
	name := strings.ToLower(strings.TrimSpace(command))
	if name == "" {
		return CommandResult{}, fmt.Errorf("command must be non-empty")
	}
	if !allowedCommands[name] {
		return CommandResult{}, fmt.Errorf("command %q is not allowed (allowed: %s)", command, strings.Join(allowedCommandNames(), ", "))
	}
	if err := checkCommandArgs(args); err != nil {
		return CommandResult{}, err
	}
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.baseDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return CommandResult{}, fmt.Errorf("command %s timed out after %s", name, timeout)
	}
	res := CommandResult{
		Stdout: truncateOutput(stdout.String()),
		Stderr: truncateOutput(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return CommandResult{}, fmt.Errorf("run %s: %w", name, err)
	}
	return res, nil
}

func allowedCommandNames() []string {
	names := make([]string, 0, len(allowedCommands))
	for name := range allowedCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncateOutput(s string) string {
	if len(s) > maxCommandOutput {
		return s[:maxCommandOutput] + "\n... (truncated)"
	}
	return s
}

type runCommandArgs struct {
	Command        string   `mapstructure:"command"`
	Args           []string `mapstructure:"args"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// RunCommandTool exposes the runner as a run_command capability.
type RunCommandTool struct {
	Runner *CommandRunner
}

// Definition describes the run_command tool.
func (t *RunCommandTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "run_command",
		Description: "Run an allow-listed command (python, node, npm) inside the generated project's output directory.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{"type": "string", "description": "Command to run (allow-listed interpreter)"},
				"args": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Command arguments; paths must stay relative",
				},
				"timeout_seconds": map[string]any{"type": "integer", "description": "Timeout in seconds (default 20)"},
			},
			"required": []string{"command"},
		},
	}
}

// Invoke runs the command, reporting rejected or failed commands as an
// error status the reasoning service can react to.
func (t *RunCommandTool) Invoke(ctx context.Context, raw map[string]any) (any, error) {
	var args runCommandArgs
	if err := mapstructure.Decode(raw, &args); err != nil {
		return nil, fmt.Errorf("run_command arguments: %w", err)
	}
	timeout := time.Duration(args.TimeoutSeconds) * time.Second
	res, err := t.Runner.Run(ctx, args.Command, args.Args, timeout)
	if err != nil {
		return map[string]any{"status": "error", "message": err.Error()}, nil
	}
	status := "success"
	if res.ExitCode != 0 {
		status = "error"
	}
	return map[string]any{
		"status":    status,
		"exit_code": res.ExitCode,
		"stdout":    res.Stdout,
		"stderr":    res.Stderr,
	}, nil
}
