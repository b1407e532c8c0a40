// Package session owns the recording session data model and the controller
// that sequences capture, transcription, and delivery.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one press-to-release recording cycle. Frames are appended only
// by the capture stream while the session is active; Seal makes the session
// immutable and no further mutation is permitted.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	mu      sync.Mutex
	frames  [][]byte
	endedAt time.Time
	sealed  bool
}

// New creates an active session stamped with the current time.
func New() *Session {
	return &Session{ID: uuid.New(), StartedAt: time.Now()}
}

// Append adds one captured PCM frame. Frames arriving after Seal are
// discarded; the stream teardown races its final flush against sealing.
func (s *Session) Append(frame []byte) {
	if len(frame) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.frames = append(s.frames, frame)
}

// Seal marks the session ended. It is idempotent.
func (s *Session) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.sealed = true
	s.endedAt = time.Now()
}

// Sealed reports whether the session has ended.
func (s *Session) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

// Duration is the elapsed recording time, live until sealed.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return s.endedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// FrameCount returns the number of accumulated frames.
func (s *Session) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// PCM returns the accumulated audio as one contiguous byte slice.
func (s *Session) PCM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, frame := range s.frames {
		total += len(frame)
	}
	out := make([]byte, 0, total)
	for _, frame := range s.frames {
		out = append(out, frame...)
	}
	return out
}
