// Package hotkey translates global key edges into recording lifecycle signals.
package hotkey

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

// Signal is one logical control edge produced by the monitor.
type Signal int

const (
	SignalRecordStart Signal = iota + 1
	SignalRecordStop
	SignalQuit
)

// String renders the signal for logs.
func (s Signal) String() string {
	switch s {
	case SignalRecordStart:
		return "record-start"
	case SignalRecordStop:
		return "record-stop"
	case SignalQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Monitor owns the system-wide keyboard hook and emits signals on an
// unbuffered channel. It never blocks on the consumer: a signal arriving
// while the session worker is busy is dropped, not queued.
type Monitor struct {
	recordCode uint16
	quitCode   uint16
	logger     *slog.Logger
	onQuit     func()

	signals chan Signal

	mu         sync.Mutex
	recordHeld bool
}

// NewMonitor builds a monitor for the configured record and quit keys.
// onQuit runs synchronously when the quit key is pressed, before the quit
// signal is offered to the consumer, so shutdown is honored even while the
// worker is blocked in transcription.
func NewMonitor(cfg config.HotkeyConfig, logger *slog.Logger, onQuit func()) *Monitor {
	return &Monitor{
		recordCode: cfg.RecordCode,
		quitCode:   cfg.QuitCode,
		logger:     logger,
		onQuit:     onQuit,
		signals:    make(chan Signal),
	}
}

// Signals returns the one-way signal channel consumed by the session worker.
func (m *Monitor) Signals() <-chan Signal {
	return m.signals
}

// RecordHeld reports whether the record key is currently down. The session
// worker checks it after opening a session: a release edge that arrived
// while the worker was away from the channel is dropped by send, so the
// held state is the only place that release survives.
func (m *Monitor) RecordHeld() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordHeld
}

// Run installs the keyboard hook and dispatches events until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	events := hook.Start()
	defer hook.End()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("keyboard hook event stream closed; accessibility/input permission may be missing")
			}
			m.dispatch(ev.Kind, ev.Rawcode)
		}
	}
}

// dispatch translates one raw key edge into a logical signal. Key-repeat
// events while the record key stays held are filtered on the press edge.
func (m *Monitor) dispatch(kind uint8, code uint16) {
	switch kind {
	case hook.KeyDown, hook.KeyHold:
		switch code {
		case m.quitCode:
			if m.onQuit != nil {
				m.onQuit()
			}
			m.send(SignalQuit)
		case m.recordCode:
			if !m.markHeld(true) {
				return
			}
			m.send(SignalRecordStart)
		}
	case hook.KeyUp:
		if code != m.recordCode {
			return
		}
		if !m.markHeld(false) {
			return
		}
		m.send(SignalRecordStop)
	}
}

// markHeld records the record key edge, reporting false when the edge is a
// repeat of the current held state (key-repeat or a stray release).
func (m *Monitor) markHeld(held bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordHeld == held {
		return false
	}
	m.recordHeld = held
	return true
}

// send offers the signal without blocking; a busy consumer drops it.
func (m *Monitor) send(sig Signal) {
	select {
	case m.signals <- sig:
	default:
		if m.logger != nil {
			m.logger.Debug("signal dropped; session worker busy", "signal", sig.String())
		}
	}
}
