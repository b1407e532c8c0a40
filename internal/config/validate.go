package config

import (
	"errors"
	"fmt"

	shellwords "github.com/mattn/go-shellwords"
)

// Validate normalizes and checks a parsed configuration, materializing argv
// forms of the external command strings. It returns the corrected config,
// non-fatal warnings, and a fatal error when the config is unusable.
func Validate(cfg Config) (Config, []Warning, error) {
	var warnings []Warning

	if cfg.Engine.Command == "" {
		return Config{}, nil, errors.New("engine.command cannot be empty")
	}
	if cfg.Hotkey.RecordCode == 0 {
		return Config{}, nil, errors.New("hotkey.record_code cannot be zero")
	}
	if cfg.Hotkey.QuitCode == cfg.Hotkey.RecordCode {
		return Config{}, nil, errors.New("hotkey.quit_code must differ from hotkey.record_code")
	}

	if cfg.Audio.SampleRate <= 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.sample_rate %d is invalid; using 16000", cfg.Audio.SampleRate)})
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 || cfg.Audio.Channels > 2 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.channels %d is invalid; using mono", cfg.Audio.Channels)})
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize <= 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.chunk_size %d is invalid; using 1024", cfg.Audio.ChunkSize)})
		cfg.Audio.ChunkSize = 1024
	}

	if cfg.Feedback.StartFrequencyHz <= 0 {
		cfg.Feedback.StartFrequencyHz = 800
	}
	if cfg.Feedback.StopFrequencyHz <= 0 {
		cfg.Feedback.StopFrequencyHz = 600
	}

	if cfg.Volume.AttenuatePercent <= 0 || cfg.Volume.AttenuatePercent >= 100 {
		if cfg.Volume.Attenuate {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("volume.attenuate_percent %d is invalid; using 10", cfg.Volume.AttenuatePercent)})
		}
		cfg.Volume.AttenuatePercent = 10
	}

	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = 500
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		path, err := ResolveHistoryPath("")
		if err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("history enabled but no path could be resolved: %v; history disabled", err)})
			cfg.History.Enabled = false
		} else {
			cfg.History.Path = path
		}
	}

	var err error
	if cfg.Clipboard.CopyArgv, err = parseArgv("clipboard.copy_command", cfg.Clipboard.CopyCommand); err != nil {
		return Config{}, nil, err
	}
	if cfg.Clipboard.ReadArgv, err = parseArgv("clipboard.read_command", cfg.Clipboard.ReadCommand); err != nil {
		return Config{}, nil, err
	}
	if len(cfg.Clipboard.CopyArgv) == 0 {
		return Config{}, nil, errors.New("clipboard.copy_command cannot be empty")
	}
	if cfg.Features.ClipboardRestore && len(cfg.Clipboard.ReadArgv) == 0 {
		warnings = append(warnings, Warning{Message: "clipboard_restore enabled but clipboard.read_command is empty; restore disabled"})
		cfg.Features.ClipboardRestore = false
	}

	if cfg.Paste.Argv, err = parseArgv("paste.command", cfg.Paste.Command); err != nil {
		return Config{}, nil, err
	}
	if cfg.Features.AutoPaste && len(cfg.Paste.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "auto_paste enabled but paste.command is empty; auto-paste disabled"})
		cfg.Features.AutoPaste = false
	}

	if cfg.Volume.GetArgv, err = parseArgv("volume.get_command", cfg.Volume.GetCommand); err != nil {
		return Config{}, nil, err
	}
	if cfg.Volume.SetArgv, err = parseArgv("volume.set_command", cfg.Volume.SetCommand); err != nil {
		return Config{}, nil, err
	}
	if cfg.Volume.Attenuate && (len(cfg.Volume.GetArgv) == 0 || len(cfg.Volume.SetArgv) == 0) {
		warnings = append(warnings, Warning{Message: "volume.attenuate enabled but get/set commands are incomplete; attenuation disabled"})
		cfg.Volume.Attenuate = false
	}

	return cfg, warnings, nil
}

// parseArgv splits a command string into argv form; empty strings are allowed.
func parseArgv(field string, raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	argv, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return argv, nil
}
