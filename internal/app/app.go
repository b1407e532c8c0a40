package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/grqg-dev/vibe-code-transcriber/internal/audio"
	"github.com/grqg-dev/vibe-code-transcriber/internal/cli"
	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
	"github.com/grqg-dev/vibe-code-transcriber/internal/delivery"
	"github.com/grqg-dev/vibe-code-transcriber/internal/doctor"
	"github.com/grqg-dev/vibe-code-transcriber/internal/engine"
	"github.com/grqg-dev/vibe-code-transcriber/internal/feedback"
	"github.com/grqg-dev/vibe-code-transcriber/internal/history"
	"github.com/grqg-dev/vibe-code-transcriber/internal/hotkey"
	"github.com/grqg-dev/vibe-code-transcriber/internal/ipc"
	"github.com/grqg-dev/vibe-code-transcriber/internal/logging"
	"github.com/grqg-dev/vibe-code-transcriber/internal/pipeline"
	"github.com/grqg-dev/vibe-code-transcriber/internal/session"
	"github.com/grqg-dev/vibe-code-transcriber/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("transcriber"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("transcriber"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandDetectKey:
		return r.commandDetectKey(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandQuit:
		return r.forwardOrFail(ctx, "quit")
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfgLoaded.Config, logger)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandDetectKey(ctx context.Context) int {
	if err := hotkey.Detect(ctx, r.Stdout); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "not running")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running transcriber\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if !cfg.History.Enabled {
		fmt.Fprintln(r.Stderr, "history is disabled; set history.enabled in the config")
		return 1
	}

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open history: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, 20)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read history: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no transcripts recorded")
		return 0
	}

	for _, entry := range entries {
		fmt.Fprintf(r.Stdout, "%s (%.1fs) %s\n",
			entry.StartedAt.Local().Format(time.RFC3339),
			float64(entry.DurationMS)/1000,
			entry.Text,
		)
	}
	return 0
}

// commandRun starts the push-to-talk daemon: socket ownership, engine
// preflight, then the hotkey monitor and session controller until quit.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (use %q to stop it)\n", err, "transcriber quit")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	eng, err := engine.NewExec(cfg.Engine)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := eng.CheckModel(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n  %s\n", err, engine.ModelGuidance)
		logger.Error("model preflight failed", "error", err.Error())
		return 1
	}

	if err := audio.Probe(ctx, cfg.Audio.Input, cfg.Audio.Fallback, audio.FormatFromConfig(cfg.Audio)); err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n  %s\n", err, audio.DeviceGuidance)
		logger.Warn("microphone preflight failed", "error", err.Error())
	}

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: history unavailable: %v\n", err)
		logger.Warn("history unavailable", "error", err.Error())
		store = nil
	} else {
		defer func() { _ = store.Close() }()
	}

	transcriber := pipeline.NewTranscriber(cfg, eng, logger)
	deliverer := delivery.NewManager(cfg, logger)
	cues := feedback.NewSink(cfg.Feedback, cfg.Features.AudioFeedback, logger)
	cues.AttachAttenuator(feedback.NewAttenuator(cfg.Volume, logger))
	// A quit mid-recording skips Stopped, so put the output level back on
	// the way out.
	defer cues.Close()

	var recorder session.Recorder
	if store != nil {
		recorder = store
	}
	controller := session.NewController(logger, transcriber, deliverer, cues, recorder, r.Stdout)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Quit cancels the run context as well so an engine invocation in
	// flight is killed instead of holding up shutdown.
	monitor := hotkey.NewMonitor(cfg.Hotkey, logger, func() {
		controller.RequestQuit()
		cancelRun()
	})
	controller.BindKeys(monitor)

	var wg sync.WaitGroup
	wg.Add(2)

	serverErrCh := make(chan error, 1)
	go func() {
		defer wg.Done()
		serverErrCh <- ipc.Serve(runCtx, listener, controller)
	}()
	go func() {
		defer wg.Done()
		if err := monitor.Run(runCtx); err != nil {
			fmt.Fprintf(r.Stderr, "error: hotkey monitor: %v\n", err)
			logger.Error("hotkey monitor failed", "error", err.Error())
			controller.RequestQuit()
		}
	}()

	fmt.Fprintf(r.Stdout, "ready: hold key %d to record, key %d to quit\n",
		cfg.Hotkey.RecordCode, cfg.Hotkey.QuitCode)

	err = controller.Run(runCtx, monitor.Signals())
	cancelRun()
	wg.Wait()

	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
