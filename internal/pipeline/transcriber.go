// Package pipeline composes audio capture, the transcription engine, and
// transcript normalization into the session transcriber.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/grqg-dev/vibe-code-transcriber/internal/audio"
	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
	"github.com/grqg-dev/vibe-code-transcriber/internal/engine"
	"github.com/grqg-dev/vibe-code-transcriber/internal/session"
	"github.com/grqg-dev/vibe-code-transcriber/internal/transcript"
)

// Transcriber owns one end-to-end capture -> engine -> transcript pipeline
// instance. The controller serializes calls, so only one session is ever
// active.
type Transcriber struct {
	cfg    config.Config
	engine engine.Engine
	logger *slog.Logger

	started   bool
	selection audio.Selection
	capture   *audio.Capture
	sess      *session.Session
}

// NewTranscriber constructs a pipeline transcriber from runtime config.
func NewTranscriber(cfg config.Config, eng engine.Engine, logger *slog.Logger) *Transcriber {
	return &Transcriber{cfg: cfg, engine: eng, logger: logger}
}

// Start resolves the capture device and begins streaming frames into a new
// session.
func (t *Transcriber) Start(ctx context.Context) error {
	if t.started {
		return fmt.Errorf("recording already in progress")
	}

	selection, err := audio.SelectDevice(ctx, t.cfg.Audio.Input, t.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	if selection.Warning != "" {
		t.logWarn(selection.Warning)
	}

	sess := session.New()
	capture, err := audio.StartCapture(ctx, selection.Device, audio.FormatFromConfig(t.cfg.Audio), sess.Append)
	if err != nil {
		return err
	}

	t.selection = selection
	t.capture = capture
	t.sess = sess
	t.started = true
	return nil
}

// StopAndTranscribe seals the active session, runs the engine over the
// captured audio, and normalizes the result.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (session.StopResult, error) {
	if !t.started || t.capture == nil || t.sess == nil {
		return session.StopResult{}, session.ErrPipelineUnavailable
	}

	capture := t.capture
	sess := t.sess
	selection := t.selection
	t.reset()

	_ = capture.Stop()
	sess.Seal()

	pcm := sess.PCM()
	t.writeDebugAudio(pcm)

	result := session.StopResult{
		SessionID:     sess.ID,
		AudioDevice:   describeDevice(selection.Device),
		StartedAt:     sess.StartedAt,
		Duration:      sess.Duration(),
		BytesCaptured: capture.BytesCaptured(),
	}

	engineStart := time.Now()
	engineResult, err := t.engine.Transcribe(ctx, pcm, t.cfg.Audio.SampleRate, t.cfg.Audio.Channels)
	result.EngineLatency = time.Since(engineStart)
	if err != nil {
		return result, fmt.Errorf("transcribe session audio: %w", err)
	}

	result.Transcript = transcript.Normalize(engineResult.Text, transcript.Options{
		TrailingSpace:       t.cfg.Transcript.TrailingSpace,
		CapitalizeSentences: t.cfg.Transcript.CapitalizeSentences,
	})
	return result, nil
}

// Abort stops capture and discards the active session without transcribing.
func (t *Transcriber) Abort(_ context.Context) error {
	capture := t.capture
	sess := t.sess
	t.reset()

	if capture != nil {
		_ = capture.Stop()
	}
	if sess != nil {
		sess.Seal()
	}
	return nil
}

func (t *Transcriber) reset() {
	t.started = false
	t.selection = audio.Selection{}
	t.capture = nil
	t.sess = nil
}

// describeDevice formats device metadata for logs/session results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (t *Transcriber) logWarn(message string) {
	if t.logger == nil {
		return
	}
	t.logger.Warn(message)
}

// writeDebugAudio dumps the session's raw PCM as WAV when debug.audio_dump
// is enabled.
func (t *Transcriber) writeDebugAudio(pcm []byte) {
	if !t.cfg.Debug.AudioDump || len(pcm) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		t.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if err := writeWAV(file, pcm, t.cfg.Audio.SampleRate, t.cfg.Audio.Channels); err != nil {
		t.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

// createDebugFile creates timestamped debug artifacts under
// XDG_STATE_HOME/transcriber/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "transcriber", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns the XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// writeWAV encodes 16-bit little-endian PCM as a WAV file.
func writeWAV(file *os.File, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8))
	}

	encoder := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buffer); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
