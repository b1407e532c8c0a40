package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrPipelineUnavailable indicates runtime transcriber wiring is missing.
var ErrPipelineUnavailable = errors.New("audio capture and transcription pipeline not wired")

// StopResult is the transcriber output consumed by the session controller.
type StopResult struct {
	SessionID     uuid.UUID
	Transcript    string
	AudioDevice   string
	StartedAt     time.Time
	Duration      time.Duration
	BytesCaptured int64
	EngineLatency time.Duration
}

// Transcriber abstracts the capture/engine pipeline driven by the controller.
type Transcriber interface {
	Start(context.Context) error
	StopAndTranscribe(context.Context) (StopResult, error)
	Abort(context.Context) error
}

// PlaceholderTranscriber is a no-op placeholder used in tests/fallback wiring.
type PlaceholderTranscriber struct{}

func (PlaceholderTranscriber) Start(context.Context) error {
	return nil
}

func (PlaceholderTranscriber) StopAndTranscribe(context.Context) (StopResult, error) {
	return StopResult{}, ErrPipelineUnavailable
}

func (PlaceholderTranscriber) Abort(context.Context) error {
	return nil
}

// KeyState reports the live record-key state. The monitor drops edges while
// the worker is busy, so after opening a session the controller asks the key
// state whether the release already happened and seals the session itself.
type KeyState interface {
	RecordHeld() bool
}

// Deliverer applies transcript output side effects when a session completes.
type Deliverer interface {
	Deliver(context.Context, string) error
}

// DeliverFunc adapts a function to the Deliverer interface.
type DeliverFunc func(context.Context, string) error

func (f DeliverFunc) Deliver(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Feedback emits best-effort audible cues around session edges.
type Feedback interface {
	Started(context.Context)
	Stopped(context.Context)
}

// noopFeedback preserves session flow when no feedback sink is wired.
type noopFeedback struct{}

func (noopFeedback) Started(context.Context) {}
func (noopFeedback) Stopped(context.Context) {}

// Recorder persists completed session results. Failures are logged, never fatal.
type Recorder interface {
	Record(context.Context, StopResult) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(context.Context, StopResult) error

func (f RecorderFunc) Record(ctx context.Context, res StopResult) error {
	return f(ctx, res)
}
