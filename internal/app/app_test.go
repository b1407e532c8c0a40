package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grqg-dev/vibe-code-transcriber/internal/ipc"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecuteHelp(t *testing.T) {
	isolateEnv(t)

	code, stdout, _ := run(t, "--help")
	require.Zero(t, code)
	require.Contains(t, stdout, "Usage:")
	require.Contains(t, stdout, "push-to-talk daemon")
}

func TestExecuteVersion(t *testing.T) {
	isolateEnv(t)

	code, stdout, _ := run(t, "version")
	require.Zero(t, code)
	require.Contains(t, stdout, "transcriber")
	require.Contains(t, stdout, "go=")
}

func TestExecuteUnknownCommand(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := run(t, "bogus")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "unknown command")
	require.Contains(t, stderr, "Usage:")
}

func TestExecuteMissingConfigWarnsAndContinues(t *testing.T) {
	isolateEnv(t)

	code, stdout, stderr := run(t, "status")
	require.Zero(t, code)
	require.Contains(t, stderr, "not found; using defaults")
	require.Contains(t, stdout, "not running")
}

func TestStatusReportsRunningDaemonState(t *testing.T) {
	isolateEnv(t)

	socketPath, err := ipc.RuntimeSocketPath()
	require.NoError(t, err)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	serveCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = ipc.Serve(serveCtx, listener, ipc.HandlerFunc(func(context.Context, ipc.Request) ipc.Response {
			return ipc.Response{OK: true, State: "recording"}
		}))
	}()

	code, stdout, _ := run(t, "status")
	require.Zero(t, code)
	require.Contains(t, stdout, "recording")
}

func TestQuitWithoutDaemonFails(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := run(t, "quit")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "no running transcriber")
}

func TestHistoryDisabled(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := run(t, "history")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "history is disabled")
}

func TestHistoryEnabledEmptyStore(t *testing.T) {
	isolateEnv(t)

	configDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "transcriber")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	configYAML := "history:\n  enabled: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configYAML), 0o600))

	code, stdout, _ := run(t, "history")
	require.Zero(t, code)
	require.Contains(t, stdout, "no transcripts recorded")
}

func TestTryForwardClassification(t *testing.T) {
	isolateEnv(t)

	// No socket file at all: not handled, no error.
	missing := filepath.Join(t.TempDir(), "absent.sock")
	_, handled, err := tryForward(context.Background(), missing, "status")
	require.NoError(t, err)
	require.False(t, handled)

	require.True(t, isSocketMissing(os.ErrNotExist))
	require.True(t, isConnectionRefused(syscall.ECONNREFUSED))
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(errors.New("other")))
}
