// Package engine converts sealed session audio into text with a local
// whisper.cpp model.
package engine

import (
	"context"
	"errors"
)

// ErrModel marks a model invocation failure. The underlying cause is
// preserved in the wrapped message; the pipeline continues to the next
// session rather than terminating.
var ErrModel = errors.New("speech model invocation failed")

// ModelGuidance is the remediation hint shown alongside ErrModel.
const ModelGuidance = "verify engine.command points at a whisper.cpp CLI and engine.model_path at a downloaded ggml model"

// Result is the immutable output of one transcription. Silence produces an
// empty Text with a nil error; silence is a valid recognition outcome.
type Result struct {
	Text     string
	Language string
}

// Engine abstracts the local speech model. Implementations are synchronous;
// the session worker blocks for the duration of the call.
type Engine interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, channels int) (Result, error)
}
