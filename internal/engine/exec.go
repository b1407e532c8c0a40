package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

// silencePeak is the int16 amplitude below which a session is treated as
// silence and skipped without invoking the model.
const silencePeak = 512

// Exec runs a whisper.cpp style CLI against a temporary WAV file. One
// invocation at a time; the session pipeline is strictly sequential.
type Exec struct {
	argv      []string
	modelPath string
	language  string

	mu sync.Mutex
}

// NewExec builds an exec engine from runtime config.
func NewExec(cfg config.EngineConfig) (*Exec, error) {
	argv, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command %q: %w", cfg.Command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &Exec{argv: argv, modelPath: cfg.ModelPath, language: cfg.Language}, nil
}

// CheckModel verifies the model weights exist. Called at startup so a
// missing model fails fast before entering the idle state.
func (e *Exec) CheckModel() error {
	if strings.TrimSpace(e.modelPath) == "" {
		return fmt.Errorf("engine.model_path is not set; download a ggml model and point engine.model_path at it")
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return fmt.Errorf("model file %q is not readable: %w", e.modelPath, err)
	}
	return nil
}

// Transcribe encodes pcm as WAV, invokes the model CLI, and parses its JSON
// output. Empty or silent audio returns an empty successful result.
func (e *Exec) Transcribe(ctx context.Context, pcm []byte, sampleRate int, channels int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(pcm) == 0 || isSilence(pcm) {
		return Result{}, nil
	}
	if len(pcm)%2 != 0 {
		return Result{}, fmt.Errorf("%w: pcm payload not sample-aligned", ErrModel)
	}

	file, err := os.CreateTemp("", "transcriber_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("%w: temp file: %v", ErrModel, err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writePCMToWav(file, pcm, sampleRate, channels); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrModel, err)
	}

	args := append([]string{}, e.argv[1:]...)
	args = append(args, "-m", e.modelPath, "-f", file.Name(), "-oj", "--no-prints")
	if e.language != "" {
		args = append(args, "-l", e.language)
	}

	cmd := exec.CommandContext(ctx, e.argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("%w: %v: %s", ErrModel, err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.Bytes()), nil
}

// cliOutput is the whisper.cpp -oj JSON shape.
type cliOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
}

// parseOutput decodes the CLI JSON, falling back to plain stdout text for
// builds that ignore -oj.
func parseOutput(raw []byte) Result {
	var out cliOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{Text: strings.TrimSpace(string(raw))}
	}

	var b strings.Builder
	for _, segment := range out.Transcription {
		b.WriteString(segment.Text)
	}
	return Result{Text: strings.TrimSpace(b.String()), Language: out.Result.Language}
}

// isSilence reports whether every sample stays under the silence threshold.
func isSilence(pcm []byte) bool {
	for i := 0; i+1 < len(pcm); i += 2 {
		// Widen before negating so -32768 keeps its magnitude.
		sample := int32(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if sample < 0 {
			sample = -sample
		}
		if sample >= silencePeak {
			return false
		}
	}
	return true
}

// writePCMToWav encodes 16-bit little-endian PCM into a WAV container.
func writePCMToWav(file *os.File, pcm []byte, sampleRate int, channels int) error {
	buffer := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate}}
	samples := make([]int, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer.Data = samples

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
