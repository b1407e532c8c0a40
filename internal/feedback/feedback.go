// Package feedback plays short audible cues around recording session edges.
package feedback

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

const (
	cueSampleRate = 16000
	cueDuration   = 100 * time.Millisecond
	cueVolume     = 0.18
)

// Sink synthesizes and plays the start/stop cue tones. Playback is
// fire-and-forget: cues never block the capture path, and playback failures
// are logged, never surfaced to the session.
type Sink struct {
	enabled    bool
	logger     *slog.Logger
	attenuator *Attenuator

	startPCM []int16
	stopPCM  []int16

	// playFn is swappable for tests; defaults to Pulse playback.
	playFn func(samples []int16) error

	soundMu sync.Mutex
}

// NewSink builds a cue sink from the feedback config section.
func NewSink(cfg config.FeedbackConfig, enabled bool, logger *slog.Logger) *Sink {
	s := &Sink{
		enabled:  enabled,
		logger:   logger,
		startPCM: synthesizeTone(cfg.StartFrequencyHz, cueDuration, cueVolume),
		stopPCM:  synthesizeTone(cfg.StopFrequencyHz, cueDuration, cueVolume),
	}
	s.playFn = playSynthCue
	return s
}

// AttachAttenuator wires output-volume ducking around the session cues.
// Must be called before the sink is in use.
func (s *Sink) AttachAttenuator(a *Attenuator) {
	s.attenuator = a
}

// Started emits the recording-started cue, then ducks the output so the
// cue itself plays at full level.
func (s *Sink) Started(ctx context.Context) {
	go func() {
		s.playCue(s.startPCM)
		s.attenuator.Duck(ctx)
	}()
}

// Stopped restores the output level and emits the recording-stopped cue.
func (s *Sink) Stopped(ctx context.Context) {
	go func() {
		s.attenuator.Restore(ctx)
		s.playCue(s.stopPCM)
	}()
}

// Close restores the output level when a session left it ducked, for
// shutdown paths that never reach Stopped.
func (s *Sink) Close() {
	s.attenuator.Restore(context.Background())
}

// playCue serializes cue playback.
func (s *Sink) playCue(samples []int16) {
	if !s.enabled || len(samples) == 0 {
		return
	}
	s.soundMu.Lock()
	defer s.soundMu.Unlock()
	if err := s.playFn(samples); err != nil {
		s.log("audio cue failed", err)
	}
}

func (s *Sink) log(message string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Debug(message, "error", err.Error())
}

// playSynthCue streams synthesized samples through a short-lived Pulse
// playback stream.
func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("transcriber"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("transcriber cue"),
	)
	if err != nil {
		return err
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	return stream.Error()
}

// synthesizeTone renders one sine tone with a short attack/release envelope
// to avoid clicks at the cue edges.
func synthesizeTone(frequencyHz float64, duration time.Duration, volume float64) []int16 {
	n := samplesForDuration(duration)
	if n <= 0 || frequencyHz <= 0 || volume <= 0 {
		return nil
	}

	attackRelease := n / 10
	maxRamp := cueSampleRate / 200 // 5ms
	if attackRelease > maxRamp {
		attackRelease = maxRamp
	}
	if attackRelease < 1 {
		attackRelease = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < attackRelease {
			envelope = float64(i) / float64(attackRelease)
		}
		releaseIndex := n - i - 1
		if releaseIndex < attackRelease {
			release := float64(releaseIndex) / float64(attackRelease)
			if release < envelope {
				envelope = release
			}
		}
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * frequencyHz * t)
		pcm[i] = int16(math.Round(sample * volume * envelope * 32767))
	}

	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
