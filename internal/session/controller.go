package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/grqg-dev/vibe-code-transcriber/internal/audio"
	"github.com/grqg-dev/vibe-code-transcriber/internal/delivery"
	"github.com/grqg-dev/vibe-code-transcriber/internal/engine"
	"github.com/grqg-dev/vibe-code-transcriber/internal/fsm"
	"github.com/grqg-dev/vibe-code-transcriber/internal/hotkey"
	"github.com/grqg-dev/vibe-code-transcriber/internal/ipc"
)

// Controller orchestrates session state transitions and side effects. One
// worker consumes hotkey signals so at most one session and one engine
// invocation are ever in flight; signals arriving while the worker is busy
// are dropped by the monitor, never queued.
type Controller struct {
	logger      *slog.Logger
	transcriber Transcriber
	deliver     Deliverer
	feedback    Feedback
	recorder    Recorder
	keys        KeyState
	echo        io.Writer

	mu    sync.RWMutex
	state fsm.State

	quitOnce sync.Once
	quit     chan struct{}
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	transcriber Transcriber,
	deliverer Deliverer,
	feedback Feedback,
	recorder Recorder,
	echo io.Writer,
) *Controller {
	if transcriber == nil {
		transcriber = PlaceholderTranscriber{}
	}
	if deliverer == nil {
		deliverer = DeliverFunc(func(context.Context, string) error { return nil })
	}
	if feedback == nil {
		feedback = noopFeedback{}
	}
	if echo == nil {
		echo = io.Discard
	}

	return &Controller{
		logger:      logger,
		transcriber: transcriber,
		deliver:     deliverer,
		feedback:    feedback,
		recorder:    recorder,
		echo:        echo,
		state:       fsm.StateIdle,
		quit:        make(chan struct{}),
	}
}

// BindKeys attaches the live key state used to catch a release edge that
// landed while the worker was opening the session. Must be called before Run.
func (c *Controller) BindKeys(keys KeyState) {
	c.keys = keys
}

// State returns the current state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// RequestQuit asks the worker to shut down. Safe to call from any goroutine
// and any number of times.
func (c *Controller) RequestQuit() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// transition applies one event, returning an error for signals that are
// invalid in the current state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// resetIdle forces the state back to idle after a failed start. The stop
// path instead reaches idle through the unconditional processed transition.
func (c *Controller) resetIdle() {
	c.mu.Lock()
	c.state = fsm.StateIdle
	c.mu.Unlock()
}

// Run consumes hotkey signals until quit or context cancellation. A quit
// during an active session aborts it: partial audio is discarded, never
// transcribed, and nothing is delivered.
func (c *Controller) Run(ctx context.Context, signals <-chan hotkey.Signal) error {
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.quit:
			c.shutdown()
			return nil
		case sig, ok := <-signals:
			if !ok {
				c.shutdown()
				return errors.New("hotkey signal channel closed")
			}
			switch sig {
			case hotkey.SignalQuit:
				c.shutdown()
				return nil
			case hotkey.SignalRecordStart:
				c.handleStart(ctx)
				// A tap can release before the session finished opening; the
				// monitor drops that stop edge, so recover it from the key
				// state and seal the session now.
				if c.State() == fsm.StateRecording && c.keys != nil && !c.keys.RecordHeld() {
					c.handleStop(ctx)
				}
			case hotkey.SignalRecordStop:
				c.handleStop(ctx)
			default:
				c.logDebug("unknown signal ignored", "signal", int(sig))
			}
		}
	}
}

// handleStart opens a new recording session from idle; otherwise the signal
// is a duplicate or bounce and is ignored.
func (c *Controller) handleStart(ctx context.Context) {
	if err := c.transition(fsm.EventRecordStart); err != nil {
		c.logDebug("record-start ignored", "state", string(c.State()))
		return
	}

	// Started cue precedes the first captured frame.
	c.feedback.Started(ctx)

	if err := c.transcriber.Start(ctx); err != nil {
		c.reportError(err)
		c.logError("start recording failed", err)
		c.resetIdle()
		return
	}

	c.echof("recording... (release key to stop)")
}

// handleStop seals the active session and runs transcription and delivery,
// then returns to idle regardless of outcome.
func (c *Controller) handleStop(ctx context.Context) {
	if err := c.transition(fsm.EventRecordStop); err != nil {
		c.logDebug("record-stop ignored", "state", string(c.State()))
		return
	}

	// Stopped cue precedes the engine invocation.
	c.feedback.Stopped(ctx)
	c.echof("transcribing...")

	result, err := c.transcriber.StopAndTranscribe(ctx)
	switch {
	case err != nil:
		c.reportError(err)
		c.logError("session failed", err,
			"duration_ms", result.Duration.Milliseconds(),
			"bytes_captured", result.BytesCaptured,
		)
	case strings.TrimSpace(result.Transcript) == "":
		c.echof("stopped recording (%.1fs); no speech detected", result.Duration.Seconds())
		c.logInfo("session empty", result)
	default:
		c.echof("stopped recording (%.1fs)", result.Duration.Seconds())
		c.echof("%s", result.Transcript)
		c.echof("transcribed in %.1fs", result.EngineLatency.Seconds())

		if derr := c.deliver.Deliver(ctx, result.Transcript); derr != nil {
			c.reportError(derr)
			c.logError("delivery failed", derr)
		}
		c.record(ctx, result)
		c.logInfo("session complete", result)
	}

	// Always return to a listenable state.
	_ = c.transition(fsm.EventProcessed)
}

// shutdown aborts any active session and releases pipeline resources.
func (c *Controller) shutdown() {
	if err := c.transcriber.Abort(context.Background()); err != nil {
		c.logError("abort failed", err)
	}
	c.resetIdle()
	c.echof("exiting")
}

// record persists the completed session when a recorder is wired.
func (c *Controller) record(ctx context.Context, result StopResult) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, result); err != nil {
		c.logError("history record failed", err)
	}
}

// Handle serves IPC commands against the running controller.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case "quit":
		c.RequestQuit()
		return ipc.Response{OK: true, State: string(c.State()), Message: "quit requested"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// reportError echoes a component failure with its remediation hint. None of
// these failures terminate the process.
func (c *Controller) reportError(err error) {
	c.echof("error: %v", err)
	if hint := remediation(err); hint != "" {
		c.echof("  %s", hint)
	}
}

// remediation maps component error kinds to actionable user guidance.
func remediation(err error) string {
	switch {
	case errors.Is(err, audio.ErrDevice):
		return audio.DeviceGuidance
	case errors.Is(err, engine.ErrModel):
		return engine.ModelGuidance
	case errors.Is(err, delivery.ErrPastePermission):
		return delivery.PasteGuidance
	case errors.Is(err, delivery.ErrClipboardWrite):
		return delivery.ClipboardGuidance
	default:
		return ""
	}
}

func (c *Controller) echof(format string, args ...any) {
	fmt.Fprintf(c.echo, format+"\n", args...)
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func (c *Controller) logError(msg string, err error, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Error(msg, append([]any{"error", err.Error()}, args...)...)
}

func (c *Controller) logInfo(msg string, result StopResult) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg,
		"session_id", result.SessionID.String(),
		"state", string(c.State()),
		"duration_ms", result.Duration.Milliseconds(),
		"bytes_captured", result.BytesCaptured,
		"engine_latency_ms", result.EngineLatency.Milliseconds(),
		"transcript_length", len(result.Transcript),
		"audio_device", result.AudioDevice,
	)
}
