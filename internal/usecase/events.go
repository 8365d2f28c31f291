package usecase

import (
	"murmur/internal/domain"
	"murmur/internal/timer"
)

// event is the closed set of inputs to the dictation loop.
type event interface {
	dictationEvent()
}

type pressEvent struct{}

type releaseEvent struct{}

type toggleEvent struct{}

type chunkEvent struct {
	sessionID string
	data      []byte
}

// captureDrainedEvent follows the last chunkEvent of a session.
type captureDrainedEvent struct {
	sessionID string
	err       error
}

type captureStopFailedEvent struct {
	sessionID string
	err       error
}

type lingerElapsedEvent struct {
	handle *timer.Handle
}

type resultEvent struct {
	sessionID string
	result    domain.TranscriptResult
}

type timeoutEvent struct {
	handle *timer.Handle
}

func (pressEvent) dictationEvent()             {}
func (releaseEvent) dictationEvent()           {}
func (toggleEvent) dictationEvent()            {}
func (chunkEvent) dictationEvent()             {}
func (captureDrainedEvent) dictationEvent()    {}
func (captureStopFailedEvent) dictationEvent() {}
func (lingerElapsedEvent) dictationEvent()     {}
func (resultEvent) dictationEvent()            {}
func (timeoutEvent) dictationEvent()           {}
