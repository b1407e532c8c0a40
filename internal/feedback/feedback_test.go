package feedback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

func testConfig() config.FeedbackConfig {
	return config.FeedbackConfig{StartFrequencyHz: 800, StopFrequencyHz: 600}
}

func TestSynthesizeToneLengthAndEnvelope(t *testing.T) {
	pcm := synthesizeTone(800, 100*time.Millisecond, 0.18)
	require.Len(t, pcm, 1600)

	// Attack ramp keeps the first sample near silence.
	require.InDelta(t, 0, int(pcm[0]), 1)
	require.InDelta(t, 0, int(pcm[len(pcm)-1]), float64(200))

	peak := int16(0)
	for _, s := range pcm {
		if s > peak {
			peak = s
		}
	}
	require.Greater(t, int(peak), 4000, "tone body must be audible")
	require.Less(t, int(peak), 7000, "tone must respect the volume ceiling")
}

func TestSynthesizeToneDegenerateInputs(t *testing.T) {
	require.Nil(t, synthesizeTone(0, 100*time.Millisecond, 0.18))
	require.Nil(t, synthesizeTone(800, 0, 0.18))
	require.Nil(t, synthesizeTone(800, 100*time.Millisecond, 0))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 1600, samplesForDuration(100*time.Millisecond))
	require.Zero(t, samplesForDuration(0))
	require.Zero(t, samplesForDuration(-time.Second))
}

func TestSinkPlaysDistinctCues(t *testing.T) {
	sink := NewSink(testConfig(), true, nil)

	var mu sync.Mutex
	var played [][]int16
	done := make(chan struct{}, 2)
	sink.playFn = func(samples []int16) error {
		mu.Lock()
		played = append(played, samples)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	sink.Started(context.Background())
	sink.Stopped(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("cue playback did not run")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, played, 2)
	require.NotEqual(t, played[0], played[1], "start and stop cues must be distinguishable")
}

func TestSinkDisabledPlaysNothing(t *testing.T) {
	sink := NewSink(testConfig(), false, nil)

	called := make(chan struct{}, 1)
	sink.playFn = func([]int16) error {
		called <- struct{}{}
		return nil
	}

	sink.Started(context.Background())
	sink.Stopped(context.Background())

	select {
	case <-called:
		t.Fatal("disabled sink must not touch the audio device")
	case <-time.After(50 * time.Millisecond):
	}
}
