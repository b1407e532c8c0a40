package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Command:  "whisper-cli",
			Language: "en",
		},
		Hotkey: HotkeyConfig{
			// F17 on most layouts. Quit defaults to Escape.
			RecordCode: 176,
			QuitCode:   65307,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			ChunkSize:  1024,
			Input:      "default",
			Fallback:   "default",
		},
		Features: FeatureConfig{
			AutoPaste:        true,
			AudioFeedback:    true,
			ClipboardRestore: false,
		},
		Clipboard: ClipboardConfig{
			CopyCommand: "wl-copy --trim-newline",
			ReadCommand: "wl-paste --no-newline",
		},
		Paste: PasteConfig{
			Command: "wtype -M ctrl -k v -m ctrl",
		},
		Feedback: FeedbackConfig{
			StartFrequencyHz: 800,
			StopFrequencyHz:  600,
		},
		Volume: VolumeConfig{
			Attenuate:        true,
			AttenuatePercent: 10,
			GetCommand:       "pactl get-sink-volume @DEFAULT_SINK@",
			SetCommand:       "pactl set-sink-volume @DEFAULT_SINK@",
		},
		Transcript: TranscriptConfig{
			TrailingSpace:       false,
			CapitalizeSentences: true,
		},
		History: HistoryConfig{
			Enabled:    false,
			MaxEntries: 500,
		},
		Debug: DebugConfig{},
	}
}
