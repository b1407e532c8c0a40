// Package config resolves, parses, validates, and defaults runtime configuration.
package config

// Config is the fully materialized runtime configuration. It is built once
// at startup and treated as immutable for the process lifetime.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Audio      AudioConfig      `yaml:"audio"`
	Features   FeatureConfig    `yaml:"features"`
	Clipboard  ClipboardConfig  `yaml:"clipboard"`
	Paste      PasteConfig      `yaml:"paste"`
	Feedback   FeedbackConfig   `yaml:"feedback"`
	Volume     VolumeConfig     `yaml:"volume"`
	Transcript TranscriptConfig `yaml:"transcript"`
	History    HistoryConfig    `yaml:"history"`
	Debug      DebugConfig      `yaml:"debug"`
}

// EngineConfig selects the local speech model and the CLI used to run it.
type EngineConfig struct {
	Command   string `yaml:"command" env:"TRANSCRIBER_ENGINE_COMMAND"`
	ModelPath string `yaml:"model_path" env:"TRANSCRIBER_MODEL_PATH"`
	Language  string `yaml:"language" env:"TRANSCRIBER_LANGUAGE"`
}

// HotkeyConfig holds the raw key codes driving the recording state machine.
type HotkeyConfig struct {
	RecordCode uint16 `yaml:"record_code" env:"TRANSCRIBER_RECORD_CODE"`
	QuitCode   uint16 `yaml:"quit_code" env:"TRANSCRIBER_QUIT_CODE"`
}

// AudioConfig controls capture format and input-source selection.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate" env:"TRANSCRIBER_SAMPLE_RATE"`
	Channels   int    `yaml:"channels" env:"TRANSCRIBER_CHANNELS"`
	ChunkSize  int    `yaml:"chunk_size" env:"TRANSCRIBER_CHUNK_SIZE"`
	Input      string `yaml:"input" env:"TRANSCRIBER_AUDIO_INPUT"`
	Fallback   string `yaml:"fallback" env:"TRANSCRIBER_AUDIO_FALLBACK"`
}

// FeatureConfig holds the boolean feature toggles.
type FeatureConfig struct {
	AutoPaste        bool `yaml:"auto_paste" env:"TRANSCRIBER_AUTO_PASTE"`
	AudioFeedback    bool `yaml:"audio_feedback" env:"TRANSCRIBER_AUDIO_FEEDBACK"`
	ClipboardRestore bool `yaml:"clipboard_restore" env:"TRANSCRIBER_CLIPBOARD_RESTORE"`
}

// ClipboardConfig holds the external commands used to read and write the
// system clipboard. Argv forms are materialized during validation.
type ClipboardConfig struct {
	CopyCommand string   `yaml:"copy_command" env:"TRANSCRIBER_CLIPBOARD_COPY"`
	ReadCommand string   `yaml:"read_command" env:"TRANSCRIBER_CLIPBOARD_READ"`
	CopyArgv    []string `yaml:"-"`
	ReadArgv    []string `yaml:"-"`
}

// PasteConfig holds the paste keystroke injection command.
type PasteConfig struct {
	Command string   `yaml:"command" env:"TRANSCRIBER_PASTE_COMMAND"`
	Argv    []string `yaml:"-"`
}

// FeedbackConfig tunes the start/stop cue tones.
type FeedbackConfig struct {
	StartFrequencyHz float64 `yaml:"start_frequency_hz"`
	StopFrequencyHz  float64 `yaml:"stop_frequency_hz"`
}

// VolumeConfig controls output ducking while the microphone is open, so
// speaker audio does not bleed into the capture. The set command receives
// the target percentage as an appended final argument.
type VolumeConfig struct {
	Attenuate        bool     `yaml:"attenuate" env:"TRANSCRIBER_VOLUME_ATTENUATE"`
	AttenuatePercent int      `yaml:"attenuate_percent" env:"TRANSCRIBER_VOLUME_ATTENUATE_PERCENT"`
	GetCommand       string   `yaml:"get_command" env:"TRANSCRIBER_VOLUME_GET"`
	SetCommand       string   `yaml:"set_command" env:"TRANSCRIBER_VOLUME_SET"`
	GetArgv          []string `yaml:"-"`
	SetArgv          []string `yaml:"-"`
}

// TranscriptConfig controls post-engine text normalization.
type TranscriptConfig struct {
	TrailingSpace       bool `yaml:"trailing_space" env:"TRANSCRIBER_TRAILING_SPACE"`
	CapitalizeSentences bool `yaml:"capitalize_sentences" env:"TRANSCRIBER_CAPITALIZE_SENTENCES"`
}

// HistoryConfig controls the optional transcript history store.
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled" env:"TRANSCRIBER_HISTORY_ENABLED"`
	Path       string `yaml:"path" env:"TRANSCRIBER_HISTORY_PATH"`
	MaxEntries int    `yaml:"max_entries"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool `yaml:"audio_dump" env:"TRANSCRIBER_DEBUG_AUDIO_DUMP"`
}

// Warning is a non-fatal parse/validation message surfaced at startup.
type Warning struct {
	Message string
}
