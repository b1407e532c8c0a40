package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

const volumeCommandTimeout = 2 * time.Second

// Attenuator ducks the output sink while the microphone is open and puts
// the previous level back when recording stops. Everything is best effort:
// a system without the volume tools just records at full output level.
type Attenuator struct {
	enabled bool
	percent int
	getArgv []string
	setArgv []string
	logger  *slog.Logger

	// run is swappable for tests; defaults to execVolumeCommand.
	run func(ctx context.Context, argv []string) (string, error)

	mu       sync.Mutex
	original int
	ducked   bool
}

// NewAttenuator builds an attenuator from the volume config section.
func NewAttenuator(cfg config.VolumeConfig, logger *slog.Logger) *Attenuator {
	return &Attenuator{
		enabled: cfg.Attenuate && len(cfg.GetArgv) > 0 && len(cfg.SetArgv) > 0,
		percent: cfg.AttenuatePercent,
		getArgv: cfg.GetArgv,
		setArgv: cfg.SetArgv,
		logger:  logger,
		run:     execVolumeCommand,
	}
}

// Duck snapshots the current output level and lowers it to the configured
// fraction. A second Duck before Restore is a no-op so the snapshot always
// holds the pre-recording level.
func (a *Attenuator) Duck(ctx context.Context) {
	if a == nil || !a.enabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ducked {
		return
	}

	out, err := a.run(ctx, a.getArgv)
	if err != nil {
		a.log("read output volume failed", err)
		return
	}
	current, err := parseVolumePercent(out)
	if err != nil {
		a.log("parse output volume failed", err)
		return
	}

	if err := a.setVolume(ctx, current*a.percent/100); err != nil {
		a.log("duck output volume failed", err)
		return
	}
	a.original = current
	a.ducked = true
}

// Restore puts the output level back to its snapshot. Safe to call when
// nothing is ducked.
func (a *Attenuator) Restore(ctx context.Context) {
	if a == nil || !a.enabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ducked {
		return
	}

	if err := a.setVolume(ctx, a.original); err != nil {
		a.log("restore output volume failed", err)
		return
	}
	a.ducked = false
}

func (a *Attenuator) setVolume(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	argv := append(append([]string{}, a.setArgv...), strconv.Itoa(percent)+"%")
	_, err := a.run(ctx, argv)
	return err
}

// parseVolumePercent extracts the first percentage token from pactl-style
// output ("Volume: front-left: 42598 /  65% / -11.22 dB, ...").
func parseVolumePercent(out string) (int, error) {
	for _, field := range strings.Fields(out) {
		if !strings.HasSuffix(field, "%") {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSuffix(field, "%"))
		if err != nil {
			continue
		}
		return value, nil
	}
	return 0, fmt.Errorf("no percentage in volume output %q", strings.TrimSpace(out))
}

func execVolumeCommand(ctx context.Context, argv []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, volumeCommandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w", argv[0], err)
	}
	return string(out), nil
}

func (a *Attenuator) log(message string, err error) {
	if a.logger == nil || err == nil {
		return
	}
	a.logger.Debug(message, "error", err.Error())
}
