package engine

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

func pcmWithPeak(samples int, peak int16) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(peak))
	}
	return out
}

func TestNewExecParsesCommand(t *testing.T) {
	e, err := NewExec(config.EngineConfig{Command: "whisper-cli --threads 4", ModelPath: "/m.bin"})
	require.NoError(t, err)
	require.Equal(t, []string{"whisper-cli", "--threads", "4"}, e.argv)
}

func TestNewExecRejectsBadCommand(t *testing.T) {
	_, err := NewExec(config.EngineConfig{Command: ""})
	require.Error(t, err)

	_, err = NewExec(config.EngineConfig{Command: `whisper-cli "unterminated`})
	require.Error(t, err)
}

func TestCheckModel(t *testing.T) {
	e, err := NewExec(config.EngineConfig{Command: "whisper-cli"})
	require.NoError(t, err)
	require.Error(t, e.CheckModel(), "empty model path must fail fast")

	e.modelPath = filepath.Join(t.TempDir(), "missing.bin")
	require.Error(t, e.CheckModel())

	present := filepath.Join(t.TempDir(), "ggml-base.en.bin")
	require.NoError(t, os.WriteFile(present, []byte("weights"), 0o600))
	e.modelPath = present
	require.NoError(t, e.CheckModel())
}

func TestTranscribeEmptyAndSilentAudioSucceedsWithoutModel(t *testing.T) {
	// Command does not exist on purpose: silence must never reach the CLI.
	e, err := NewExec(config.EngineConfig{Command: "definitely-not-a-binary", ModelPath: "/m.bin"})
	require.NoError(t, err)

	result, err := e.Transcribe(context.Background(), nil, 16000, 1)
	require.NoError(t, err)
	require.Empty(t, result.Text)

	quiet := pcmWithPeak(1600, silencePeak-1)
	result, err = e.Transcribe(context.Background(), quiet, 16000, 1)
	require.NoError(t, err)
	require.Empty(t, result.Text)
}

func TestTranscribeModelFailurePreservesCause(t *testing.T) {
	e, err := NewExec(config.EngineConfig{Command: "definitely-not-a-binary", ModelPath: "/m.bin"})
	require.NoError(t, err)

	loud := pcmWithPeak(1600, 9000)
	_, err = e.Transcribe(context.Background(), loud, 16000, 1)
	require.ErrorIs(t, err, ErrModel)
	require.Contains(t, err.Error(), "definitely-not-a-binary")
}

func TestTranscribeRejectsUnalignedPCM(t *testing.T) {
	e, err := NewExec(config.EngineConfig{Command: "whisper-cli", ModelPath: "/m.bin"})
	require.NoError(t, err)

	_, err = e.Transcribe(context.Background(), []byte{0x7f, 0x7f, 0x7f}, 16000, 1)
	require.ErrorIs(t, err, ErrModel)
	require.Contains(t, err.Error(), "aligned")
}

func TestParseOutputJSONSegments(t *testing.T) {
	raw := []byte(`{"transcription":[{"text":" Hello"},{"text":" world."}],"result":{"language":"en"}}`)
	result := parseOutput(raw)
	require.Equal(t, "Hello world.", result.Text)
	require.Equal(t, "en", result.Language)
}

func TestParseOutputPlainTextFallback(t *testing.T) {
	result := parseOutput([]byte("  plain transcript\n"))
	require.Equal(t, "plain transcript", result.Text)
	require.Empty(t, result.Language)
}

func TestIsSilenceBoundary(t *testing.T) {
	require.True(t, isSilence(pcmWithPeak(10, silencePeak-1)))
	require.False(t, isSilence(pcmWithPeak(10, silencePeak)))

	negative := make([]byte, 4)
	negSample := int16(-silencePeak)
	binary.LittleEndian.PutUint16(negative[0:], uint16(negSample))
	require.False(t, isSilence(negative))

	clipped := make([]byte, 4)
	clippedSample := int16(math.MinInt16)
	binary.LittleEndian.PutUint16(clipped[0:], uint16(clippedSample))
	require.False(t, isSilence(clipped), "full-scale clipped sample is not silence")
}

func TestWritePCMToWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	file, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, writePCMToWav(file, pcmWithPeak(160, 1000), 16000, 1))
	require.NoError(t, file.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(320), "WAV must contain header plus samples")
}
