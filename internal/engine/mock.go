package engine

import (
	"context"
	"sync"
)

// Mock is a configurable in-memory engine for tests.
type Mock struct {
	Result Result
	Err    error

	mu    sync.Mutex
	calls int
	last  []byte
}

func (m *Mock) Transcribe(_ context.Context, pcm []byte, _ int, _ int) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = append([]byte(nil), pcm...)
	if m.Err != nil {
		return Result{}, m.Err
	}
	return m.Result, nil
}

// Calls returns the number of Transcribe invocations.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPCM returns the audio passed to the most recent invocation.
func (m *Mock) LastPCM() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
