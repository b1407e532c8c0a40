// Package delivery applies transcript side effects: clipboard write,
// optional paste injection, and optional clipboard restore.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

// restoreDelay is how long after delivery the prior clipboard contents are
// put back, long enough for the focused application to consume the paste.
const restoreDelay = 500 * time.Millisecond

const commandTimeout = 2 * time.Second

var (
	// ErrClipboardWrite marks a failed clipboard write. Reported, never fatal.
	ErrClipboardWrite = errors.New("clipboard write failed")
	// ErrPastePermission marks denied paste keystroke injection.
	ErrPastePermission = errors.New("paste keystroke injection failed")
)

const (
	// ClipboardGuidance is the remediation hint for clipboard write failures.
	ClipboardGuidance = "install the configured clipboard tool (wl-copy by default) or adjust clipboard.copy_command"
	// PasteGuidance is the remediation hint for paste injection failures.
	PasteGuidance = "grant input-injection permission for the paste tool (wtype by default) or disable auto_paste; the text remains on the clipboard"
)

// commandRunner executes argv with optional stdin input and returns stdout.
type commandRunner func(ctx context.Context, argv []string, input string) (string, error)

// Manager applies delivery side effects for one transcript at a time. The
// clipboard is globally shared; reads and writes are best-effort since other
// processes may mutate it concurrently, so restore is advisory.
type Manager struct {
	cfg    config.Config
	logger *slog.Logger

	run      commandRunner
	schedule func(time.Duration, func())
}

// NewManager constructs a delivery manager from runtime config.
func NewManager(cfg config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		run:      runCommand,
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Deliver writes text to the clipboard, optionally injects a paste
// keystroke, and optionally schedules a restore of the prior clipboard
// contents. Zero-length text short-circuits after the snapshot step with no
// clipboard write and no paste. Each step is independently fault-tolerant;
// the restore always follows the paste attempt, even when the paste failed.
func (m *Manager) Deliver(ctx context.Context, text string) error {
	var snapshot string
	haveSnapshot := false
	if m.cfg.Features.ClipboardRestore && len(m.cfg.Clipboard.ReadArgv) > 0 {
		out, err := m.runWithTimeout(ctx, m.cfg.Clipboard.ReadArgv, "")
		if err != nil {
			m.logWarn("clipboard snapshot read failed", err)
		} else {
			snapshot = out
			haveSnapshot = true
		}
	}

	if text == "" {
		return nil
	}

	if _, err := m.runWithTimeout(ctx, m.cfg.Clipboard.CopyArgv, text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardWrite, err)
	}

	var pasteErr error
	if m.cfg.Features.AutoPaste {
		if _, err := m.runWithTimeout(ctx, m.cfg.Paste.Argv, ""); err != nil {
			pasteErr = fmt.Errorf("%w: %v", ErrPastePermission, err)
			m.logWarn("paste dispatch failed; clipboard remains set", err)
		}
	}

	if haveSnapshot {
		m.scheduleRestore(snapshot)
	}

	return pasteErr
}

// scheduleRestore puts the snapshot back after the restore delay without
// holding the session worker.
func (m *Manager) scheduleRestore(snapshot string) {
	m.schedule(restoreDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if _, err := m.run(ctx, m.cfg.Clipboard.CopyArgv, snapshot); err != nil {
			m.logWarn("clipboard restore failed", err)
		}
	})
}

func (m *Manager) runWithTimeout(ctx context.Context, argv []string, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return m.run(ctx, argv, input)
}

func (m *Manager) logWarn(msg string, err error) {
	if m.logger == nil {
		return
	}
	m.logger.Warn(msg, "error", err.Error())
}

// runCommand executes argv, writing input to stdin and returning stdout.
func runCommand(ctx context.Context, argv []string, input string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return "", fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return "", fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return stdout.String(), nil
}
