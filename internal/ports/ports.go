package ports

import (
	"context"
	"io"

	"murmur/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session producing s16le PCM.
// Read returns io.EOF once Stop has flushed the remaining audio.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Transcriber performs one request/response exchange with the remote
// recognition service. wav is a complete audio container.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// TextCommitter delivers final text to whatever has focus.
// An empty string is a valid no-op input.
type TextCommitter interface {
	Commit(ctx context.Context, text string) error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadText(ctx context.Context) (string, error)
	SetText(ctx context.Context, text string) error
}

// Paster sends the platform paste keystroke to the focused window.
type Paster interface {
	Paste(ctx context.Context) error
}

// TriggerSource delivers press/release edges. Start may be called once;
// Stop tears the source down and closes the event channel.
type TriggerSource interface {
	Start(ctx context.Context) (<-chan domain.TriggerEvent, error)
	Stop() error
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// EventSink emits backend state/events to the status indicator.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	FinalTranscript(commit domain.Commit)
	SessionError(code domain.ErrorCode, detail string)
}
