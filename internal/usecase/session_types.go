package usecase

import (
	"time"

	"murmur/internal/domain"
	"murmur/internal/ports"
	"murmur/internal/timer"
)

// session is owned by the dictation loop goroutine; nothing else touches it.
type session struct {
	id        string
	state     domain.SessionState
	audio     ports.AudioSession
	startedAt time.Time

	latestText string
	committed  bool

	// lingering is set once release arms the linger timer.
	lingering bool
	linger    *timer.Handle

	// drained is set when the capture pump has delivered its final chunk.
	drained bool
	endSent bool

	pendingTimeout *timer.Handle
}

func newSession(id string, audio ports.AudioSession, now time.Time) *session {
	return &session{
		id:        id,
		state:     domain.SessionStateRecording,
		audio:     audio,
		startedAt: now,
	}
}

func (s *session) cancelTimers() {
	s.linger.Cancel()
	s.pendingTimeout.Cancel()
}
