package tools

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRunnerRejectsUnlistedCommand(t *testing.T) {
	t.Parallel()

	runner, err := NewCommandRunner(t.TempDir())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "rm", []string{"-rf", "x"}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestCommandRunnerRejectsEscapingArgs(t *testing.T) {
	t.Parallel()

	runner, err := NewCommandRunner(t.TempDir())
	require.NoError(t, err)

	cases := []struct {
		name string
		args []string
	}{
		{"traversal", []string{"../secret.py"}},
		{"absolute", []string{"/etc/passwd"}},
		{"drive", []string{"C:\\temp\\x.py"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runner.Run(context.Background(), "python3", tc.args, time.Second)
			assert.ErrorIs(t, err, ErrOutsideBase)
		})
	}
}

func TestCommandRunnerCapturesOutput(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}

	runner, err := NewCommandRunner(t.TempDir())
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), "python3", []string{"-c", "print('hello')"}, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "hello")
}

func TestCommandRunnerReportsNonzeroExit(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}

	runner, err := NewCommandRunner(t.TempDir())
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), "python3", []string{"-c", "raise SystemExit(3)"}, 10*time.Second)
	require.NoError(t, err, "a nonzero exit is a result, not an error")
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunCommandToolDegradesToErrorStatus(t *testing.T) {
	t.Parallel()

	runner, err := NewCommandRunner(t.TempDir())
	require.NoError(t, err)
	tool := &RunCommandTool{Runner: runner}

	out, err := tool.Invoke(context.Background(), map[string]any{"command": "curl"})
	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", result["status"])
}

func TestRunCommandToolDefinition(t *testing.T) {
	t.Parallel()

	tool := &RunCommandTool{}
	def := tool.Definition()
	assert.Equal(t, "run_command", def.Name)
	assert.Contains(t, def.Parameters["required"], "command")
}
