package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "using defaults")
	require.Equal(t, 16000, loaded.Config.Audio.SampleRate)
	require.Equal(t, "whisper-cli", loaded.Config.Engine.Command)
	require.True(t, loaded.Config.Features.AutoPaste)
}

func TestLoadParsesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
engine:
  command: whisper-cli
  model_path: /opt/models/ggml-base.en.bin
  language: en
hotkey:
  record_code: 191
audio:
  sample_rate: 48000
  channels: 2
features:
  auto_paste: false
  clipboard_restore: true
history:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "/opt/models/ggml-base.en.bin", loaded.Config.Engine.ModelPath)
	require.Equal(t, uint16(191), loaded.Config.Hotkey.RecordCode)
	require.Equal(t, 48000, loaded.Config.Audio.SampleRate)
	require.Equal(t, 2, loaded.Config.Audio.Channels)
	require.False(t, loaded.Config.Features.AutoPaste)
	require.True(t, loaded.Config.Features.ClipboardRestore)
	require.True(t, loaded.Config.History.Enabled)
	// untouched keys keep defaults
	require.Equal(t, 1024, loaded.Config.Audio.ChunkSize)
	require.Equal(t, "wl-copy --trim-newline", loaded.Config.Clipboard.CopyCommand)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  model_path: /from/file.bin\n"), 0o600))
	t.Setenv("TRANSCRIBER_MODEL_PATH", "/from/env.bin")
	t.Setenv("TRANSCRIBER_SAMPLE_RATE", "8000")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/from/env.bin", loaded.Config.Engine.ModelPath)
	require.Equal(t, 8000, loaded.Config.Audio.SampleRate)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [oops\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestResolvePathPrefersXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-test/transcriber/config.yaml", path)

	explicit, err := ResolvePath("/etc/transcriber.yaml")
	require.NoError(t, err)
	require.Equal(t, "/etc/transcriber.yaml", explicit)
}
