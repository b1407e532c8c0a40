// Package doctor runs runtime readiness diagnostics for config, the speech
// engine, delivery tools, and audio capture.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/grqg-dev/vibe-code-transcriber/internal/audio"
	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEngineCommand(cfg.Config.Engine))
	checks = append(checks, checkModelFile(cfg.Config.Engine))

	checks = append(checks, checkCommand(cfg.Config.Clipboard.CopyArgv, "clipboard_copy"))
	if cfg.Config.Features.ClipboardRestore {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.ReadArgv, "clipboard_read"))
	}
	if cfg.Config.Features.AutoPaste {
		checks = append(checks, checkCommand(cfg.Config.Paste.Argv, "paste_cmd"))
	}
	if cfg.Config.Volume.Attenuate {
		checks = append(checks, checkCommand(cfg.Config.Volume.SetArgv, "volume_cmd"))
	}

	checks = append(checks, checkAudioSelection(cfg.Config))

	return Report{Checks: checks}
}

// checkEngineCommand validates that the engine binary is runnable.
func checkEngineCommand(cfg config.EngineConfig) Check {
	fields := strings.Fields(cfg.Command)
	if len(fields) == 0 {
		return Check{Name: "engine.command", Pass: false, Message: "engine command is empty"}
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return Check{Name: "engine.command", Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", fields[0])}
	}
	return Check{Name: "engine.command", Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkModelFile validates that the configured model file exists.
func checkModelFile(cfg config.EngineConfig) Check {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return Check{Name: "engine.model", Pass: false, Message: "model_path is empty"}
	}
	info, err := os.Stat(cfg.ModelPath)
	if err != nil {
		return Check{Name: "engine.model", Pass: false, Message: fmt.Sprintf("model not readable: %v", err)}
	}
	if info.IsDir() {
		return Check{Name: "engine.model", Pass: false, Message: fmt.Sprintf("model path %q is a directory", cfg.ModelPath)}
	}
	return Check{Name: "engine.model", Pass: true, Message: fmt.Sprintf("%s (%d bytes)", cfg.ModelPath, info.Size())}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
