package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"murmur/internal/domain"
	"murmur/internal/observe"
	"murmur/internal/ports"
	"murmur/internal/timer"
)

var (
	// ErrStopped is returned when a trigger is sent after Run has exited.
	ErrStopped = errors.New("dictation loop stopped")
	// ErrAlreadyRunning is returned by a second concurrent call to Run.
	ErrAlreadyRunning = errors.New("dictation loop already running")
)

const (
	defaultLinger          = 100 * time.Millisecond
	defaultFallbackTimeout = 10 * time.Second
	inboxSize              = 64
)

// Config controls push-to-talk session behavior.
type Config struct {
	Audio           ports.AudioConfig
	ChunkSize       int
	Linger          time.Duration
	FallbackTimeout time.Duration
}

// Deps groups the collaborators of a Dictation.
type Deps struct {
	Capture   ports.AudioCapture
	Gateway   *Gateway
	Timers    *timer.Service
	Rules     ports.RulesEngine
	Committer ports.TextCommitter
	Events    ports.EventSink
	Metrics   *observe.Metrics
	Logger    *slog.Logger
	// NewID defaults to uuid.NewString.
	NewID func() string
}

// Dictation is the push-to-talk session state machine. All session state is
// owned by the goroutine running Run; triggers, audio chunks, transcription
// results and timer expiries reach it as events on a single inbox.
type Dictation struct {
	capture   ports.AudioCapture
	gateway   *Gateway
	timers    *timer.Service
	finalizer transcriptFinalizer
	events    ports.EventSink
	metrics   *observe.Metrics
	logger    *slog.Logger
	newID     func() string
	cfg       Config

	inbox   chan event
	done    chan struct{}
	running atomic.Bool

	// current is only read and written by the loop goroutine.
	current *session

	statusMu sync.Mutex
	status   domain.Status
}

func NewDictation(deps Deps, cfg Config) *Dictation {
	if cfg.ChunkSize < minChunkSize {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Linger <= 0 {
		cfg.Linger = defaultLinger
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = defaultFallbackTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timers == nil {
		deps.Timers = timer.New(nil)
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Dictation{
		capture:   deps.Capture,
		gateway:   deps.Gateway,
		timers:    deps.Timers,
		finalizer: newTranscriptFinalizer(deps.Rules, deps.Committer, deps.Events, deps.Logger),
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		newID:     deps.NewID,
		cfg:       cfg,
		inbox:     make(chan event, inboxSize),
		done:      make(chan struct{}),
		status:    domain.Status{State: domain.SessionStateIdle},
	}
}

// Press reports a trigger press.
func (d *Dictation) Press() error { return d.send(pressEvent{}) }

// Release reports a trigger release.
func (d *Dictation) Release() error { return d.send(releaseEvent{}) }

// Toggle starts a session when idle and ends the recording otherwise.
func (d *Dictation) Toggle() error { return d.send(toggleEvent{}) }

// Status returns a snapshot of the current session state.
func (d *Dictation) Status() domain.Status {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	return d.status
}

// Done is closed once Run has returned.
func (d *Dictation) Done() <-chan struct{} {
	return d.done
}

// Run processes events until ctx is cancelled. An active session is
// abandoned without a commit on shutdown.
func (d *Dictation) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(d.done)

	d.logger.Info("dictation loop started")
	d.setStatus(domain.SessionStateIdle, "", domain.SessionReasonReady)

	for {
		select {
		case <-ctx.Done():
			d.shutdown(context.WithoutCancel(ctx))
			d.logger.Info("dictation loop stopped")
			return nil
		case ev := <-d.inbox:
			d.handle(ctx, ev)
		}
	}
}

func (d *Dictation) send(ev event) error {
	if !d.post(ev) {
		return ErrStopped
	}
	return nil
}

// post enqueues ev for the loop. It reports false once the loop has exited.
func (d *Dictation) post(ev event) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.inbox <- ev:
		return true
	case <-d.done:
		return false
	}
}

func (d *Dictation) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case pressEvent:
		d.onPress(ctx)
	case releaseEvent:
		d.onRelease(ctx)
	case toggleEvent:
		d.onToggle(ctx)
	case chunkEvent:
		d.onChunk(ev)
	case captureDrainedEvent:
		d.onCaptureDrained(ctx, ev)
	case captureStopFailedEvent:
		if s := d.current; s != nil && s.id == ev.sessionID {
			d.events.SessionError(domain.ErrorCodeAudioStop, fmt.Sprintf("failed to stop audio capture cleanly: %v", ev.err))
		}
	case lingerElapsedEvent:
		d.onLingerElapsed(ctx, ev)
	case resultEvent:
		d.onResult(ctx, ev)
	case timeoutEvent:
		d.onTimeout(ctx, ev)
	default:
		d.logger.Error("unknown dictation event", "event", fmt.Sprintf("%T", ev))
	}
}

func (d *Dictation) onPress(ctx context.Context) {
	if s := d.current; s != nil {
		d.logger.Debug("ignoring press: session already active", "session_id", s.id, "state", s.state)
		d.metrics.TriggerIgnored(ctx, "press")
		return
	}

	audioSession, err := d.capture.Start(ctx, d.cfg.Audio)
	if err != nil {
		d.logger.Warn("audio capture unavailable", "err", err)
		d.metrics.CaptureFailed(ctx)
		d.events.SessionError(domain.ErrorCodeCaptureUnavailable, err.Error())
		d.setStatus(domain.SessionStateIdle, "", domain.SessionReasonCaptureUnavailable)
		return
	}

	s := newSession(d.newID(), audioSession, d.timers.Clock().Now())
	d.current = s
	d.gateway.Begin()
	d.metrics.SessionStarted(ctx)

	go d.pump(s.id, audioSession)

	d.logger.Info("recording started", "session_id", s.id)
	d.setStatus(domain.SessionStateRecording, s.id, domain.SessionReasonRecordingStarted)
}

func (d *Dictation) pump(sessionID string, audio ports.AudioSession) {
	err := pumpAudioChunks(audio, d.cfg.ChunkSize, func(chunk []byte) bool {
		return d.post(chunkEvent{sessionID: sessionID, data: chunk})
	})
	_ = audio.Close()
	d.post(captureDrainedEvent{sessionID: sessionID, err: err})
}

func (d *Dictation) onRelease(ctx context.Context) {
	s := d.current
	if s == nil || s.state != domain.SessionStateRecording || s.lingering {
		d.logger.Debug("ignoring release: no recording session")
		d.metrics.TriggerIgnored(ctx, "release")
		return
	}

	s.lingering = true
	s.linger = d.timers.ArmOnce(d.cfg.Linger, func(h *timer.Handle) {
		d.post(lingerElapsedEvent{handle: h})
	})
}

func (d *Dictation) onToggle(ctx context.Context) {
	s := d.current
	switch {
	case s == nil:
		d.onPress(ctx)
	case s.state == domain.SessionStateRecording && !s.lingering:
		d.onRelease(ctx)
	default:
		d.logger.Debug("ignoring toggle while awaiting result", "session_id", s.id)
		d.metrics.TriggerIgnored(ctx, "toggle")
	}
}

func (d *Dictation) onChunk(ev chunkEvent) {
	s := d.current
	if s == nil || s.id != ev.sessionID || s.endSent {
		return
	}
	d.gateway.Submit(ev.data)
}

func (d *Dictation) onCaptureDrained(ctx context.Context, ev captureDrainedEvent) {
	s := d.current
	if s == nil || s.id != ev.sessionID {
		return
	}
	s.drained = true
	if ev.err != nil {
		d.logger.Warn("audio capture ended with error", "session_id", s.id, "err", ev.err)
		d.events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", ev.err))
	}
	if s.state == domain.SessionStateAwaitingResult {
		d.endAudio(ctx, s)
	}
}

func (d *Dictation) onLingerElapsed(ctx context.Context, ev lingerElapsedEvent) {
	s := d.current
	if s == nil || s.linger != ev.handle || s.state != domain.SessionStateRecording {
		return
	}

	s.state = domain.SessionStateAwaitingResult
	sessionID := s.id
	audioSession := s.audio
	go func() {
		if err := audioSession.Stop(); err != nil {
			d.post(captureStopFailedEvent{sessionID: sessionID, err: err})
		}
	}()

	s.pendingTimeout = d.timers.ArmOnce(d.cfg.FallbackTimeout, func(h *timer.Handle) {
		d.post(timeoutEvent{handle: h})
	})

	d.logger.Info("recording stopped; awaiting transcript", "session_id", s.id)
	d.setStatus(domain.SessionStateAwaitingResult, s.id, domain.SessionReasonTranscribing)

	if s.drained {
		d.endAudio(ctx, s)
	}
}

// endAudio sends the end-of-audio marker once every chunk of s has been
// forwarded.
func (d *Dictation) endAudio(ctx context.Context, s *session) {
	if s.endSent {
		return
	}
	s.endSent = true
	sessionID := s.id
	d.gateway.End(ctx, func(result domain.TranscriptResult) {
		d.post(resultEvent{sessionID: sessionID, result: result})
	})
}

func (d *Dictation) onResult(ctx context.Context, ev resultEvent) {
	s := d.current
	if s == nil || s.id != ev.sessionID || s.committed || s.state != domain.SessionStateAwaitingResult {
		d.logger.Debug("ignoring late transcription result", "session_id", ev.sessionID)
		return
	}

	switch {
	case ev.result.Err != nil:
		d.events.SessionError(domain.ErrorCodeTransport, ev.result.Err.Error())
		d.commit(ctx, s, s.latestText, domain.CommitPathError, domain.SessionReasonTranscriptionError)
	case ev.result.Text == "":
		d.commit(ctx, s, s.latestText, domain.CommitPathEmptyResult, domain.SessionReasonEmptyCommit)
	default:
		s.latestText = ev.result.Text
		d.commit(ctx, s, s.latestText, domain.CommitPathResult, domain.SessionReasonTranscriptCommit)
	}
}

func (d *Dictation) onTimeout(ctx context.Context, ev timeoutEvent) {
	s := d.current
	if s == nil || s.pendingTimeout != ev.handle || s.committed {
		return
	}
	d.logger.Warn("no transcript before fallback timeout", "session_id", s.id, "timeout", d.cfg.FallbackTimeout)
	d.commit(ctx, s, s.latestText, domain.CommitPathTimeout, domain.SessionReasonTimeoutCommit)
}

func (d *Dictation) commit(ctx context.Context, s *session, text string, path domain.CommitPath, reason domain.SessionStateReason) {
	if s.committed {
		return
	}
	s.committed = true
	s.cancelTimers()
	s.state = domain.SessionStateCommitted
	d.setStatus(domain.SessionStateCommitted, s.id, reason)

	d.finalizer.Finalize(ctx, s.id, path, text)

	elapsed := d.timers.Clock().Since(s.startedAt)
	d.metrics.SessionCommitted(ctx, path, text == "", elapsed)
	d.logger.Info("session committed", "session_id", s.id, "path", path, "chars", len(text), "elapsed", elapsed)

	d.current = nil
	d.setStatus(domain.SessionStateIdle, "", domain.SessionReasonReady)
}

func (d *Dictation) shutdown(ctx context.Context) {
	s := d.current
	if s == nil {
		return
	}
	d.current = nil
	s.cancelTimers()
	d.gateway.Discard()
	if err := s.audio.Stop(); err != nil {
		d.logger.Warn("failed to stop audio capture on shutdown", "session_id", s.id, "err", err)
	}
	d.metrics.SessionAbandoned(ctx)
	d.logger.Info("session abandoned on shutdown", "session_id", s.id, "state", s.state)
	d.setStatus(domain.SessionStateIdle, "", domain.SessionReasonShutdown)
}

func (d *Dictation) setStatus(state domain.SessionState, sessionID string, reason domain.SessionStateReason) {
	d.statusMu.Lock()
	d.status = domain.Status{
		State:     state,
		Active:    state != domain.SessionStateIdle,
		SessionID: sessionID,
		Message:   string(reason),
	}
	d.statusMu.Unlock()

	d.events.SessionStateChanged(state, reason)
}
