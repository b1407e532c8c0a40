package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grqg-dev/vibe-code-transcriber/internal/audio"
	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
	"github.com/grqg-dev/vibe-code-transcriber/internal/engine"
	"github.com/grqg-dev/vibe-code-transcriber/internal/session"
)

func TestStopWithoutStartReportsPipelineUnavailable(t *testing.T) {
	tr := NewTranscriber(config.Default(), &engine.Mock{}, nil)

	_, err := tr.StopAndTranscribe(context.Background())
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
}

func TestAbortWithoutStartIsNoop(t *testing.T) {
	tr := NewTranscriber(config.Default(), &engine.Mock{}, nil)
	require.NoError(t, tr.Abort(context.Background()))
}

func TestDescribeDevice(t *testing.T) {
	require.Equal(t, "Built-in Mic (alsa_input.pci)", describeDevice(audio.Device{
		ID:          "alsa_input.pci",
		Description: "Built-in Mic",
	}))
	require.Equal(t, "alsa_input.pci", describeDevice(audio.Device{ID: " alsa_input.pci "}))
	require.Equal(t, "Built-in Mic", describeDevice(audio.Device{Description: "Built-in Mic"}))
}

func TestWriteWAVProducesDecodableHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.wav")
	file, err := os.Create(path)
	require.NoError(t, err)

	pcm := make([]byte, 3200)
	require.NoError(t, writeWAV(file, pcm, 16000, 1))
	require.NoError(t, file.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(raw[0:4]))
	require.Equal(t, "WAVE", string(raw[8:12]))
}

func TestResolveStateDirPrefersXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, dir, got)
}

func TestDebugAudioDumpWritesArtifact(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateDir)

	cfg := config.Default()
	cfg.Debug.AudioDump = true
	tr := NewTranscriber(cfg, &engine.Mock{}, nil)

	tr.writeDebugAudio(make([]byte, 640))

	entries, err := os.ReadDir(filepath.Join(stateDir, "transcriber", "debug"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "audio-")
}

func TestDebugAudioDumpDisabledWritesNothing(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateDir)

	tr := NewTranscriber(config.Default(), &engine.Mock{}, nil)
	tr.writeDebugAudio(make([]byte, 640))

	_, err := os.Stat(filepath.Join(stateDir, "transcriber", "debug"))
	require.True(t, os.IsNotExist(err))
}
