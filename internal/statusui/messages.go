package statusui

import "murmur/internal/domain"

// StateMsg reports a session state transition.
type StateMsg struct {
	State  domain.SessionState
	Reason domain.SessionStateReason
}

// CommitMsg carries the terminal record of a session.
type CommitMsg struct {
	Commit domain.Commit
}

// ErrorMsg reports a non-fatal backend error.
type ErrorMsg struct {
	Code   domain.ErrorCode
	Detail string
}

// ReasonMessage is the human-readable text for a state transition reason.
func ReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Recording"
	case domain.SessionReasonCaptureUnavailable:
		return "Microphone unavailable"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonTranscriptCommit:
		return "Transcript inserted"
	case domain.SessionReasonEmptyCommit:
		return "Nothing recognized"
	case domain.SessionReasonTimeoutCommit:
		return "No transcript in time"
	case domain.SessionReasonTranscriptionError:
		return "Transcription failed"
	case domain.SessionReasonShutdown:
		return "Shutting down"
	default:
		return ""
	}
}

// ErrorMessage is the headline for an error code. Unknown codes fall back to
// detail.
func ErrorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCaptureUnavailable:
		return "Audio capture unavailable"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio capture issue"
	case domain.ErrorCodeTransport:
		return "Transcription service error"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeInjection:
		return "Text insertion failed"
	case domain.ErrorCodeTrigger:
		return "Trigger error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
