package domain

import "errors"

// SessionState models the push-to-talk lifecycle.
type SessionState string

const (
	SessionStateIdle           SessionState = "idle"
	SessionStateRecording      SessionState = "recording"
	SessionStateAwaitingResult SessionState = "awaiting_result"
	SessionStateCommitted      SessionState = "committed"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady              SessionStateReason = "ready"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonCaptureUnavailable SessionStateReason = "capture_unavailable"
	SessionReasonTranscribing       SessionStateReason = "transcribing"
	SessionReasonTranscriptCommit   SessionStateReason = "transcript_committed"
	SessionReasonEmptyCommit        SessionStateReason = "empty_commit"
	SessionReasonTimeoutCommit      SessionStateReason = "timeout_commit"
	SessionReasonTranscriptionError SessionStateReason = "transcription_failed"
	SessionReasonShutdown           SessionStateReason = "shutdown"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup            ErrorCode = "startup"
	ErrorCodeCaptureUnavailable ErrorCode = "capture_unavailable"
	ErrorCodeAudioStop          ErrorCode = "audio_stop"
	ErrorCodeAudioStream        ErrorCode = "audio_stream"
	ErrorCodeTransport          ErrorCode = "transport"
	ErrorCodeRules              ErrorCode = "rules"
	ErrorCodeInjection          ErrorCode = "injection"
	ErrorCodeTrigger            ErrorCode = "trigger"
)

// CommitPath records which event won the race to commit a session.
type CommitPath string

const (
	CommitPathResult      CommitPath = "result"
	CommitPathEmptyResult CommitPath = "empty_result"
	CommitPathError       CommitPath = "error"
	CommitPathTimeout     CommitPath = "timeout"
)

var (
	// ErrCaptureUnavailable means the audio source could not be started.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
	// ErrTransport covers network failures and malformed service responses.
	ErrTransport = errors.New("transcription transport error")
)

// TranscriptResult is the single outcome of one transcription request.
// Err is set for transport failures; Text may be empty for a valid result.
type TranscriptResult struct {
	Text string
	Err  error
}

// Empty reports whether the result carries no usable text.
func (r TranscriptResult) Empty() bool {
	return r.Err != nil || r.Text == ""
}

// TriggerEvent is an abstract press/release edge from a trigger source.
type TriggerEvent struct {
	Pressed bool
}

// Commit is the terminal record of a session, delivered to event sinks.
type Commit struct {
	SessionID string     `json:"sessionId"`
	Path      CommitPath `json:"path"`
	Raw       string     `json:"raw"`
	Final     string     `json:"final"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Message   string       `json:"message,omitempty"`
}
