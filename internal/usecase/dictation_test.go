package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"murmur/internal/domain"
	"murmur/internal/ports"
	"murmur/internal/providers/asrhttp"
	"murmur/internal/timer"
)

const (
	testLinger   = 100 * time.Millisecond
	testFallback = 10 * time.Second
	testChunk    = 3200
	waitFor      = 2 * time.Second
)

type harness struct {
	d         *Dictation
	clock     *clockwork.FakeClock
	capture   *fakeAudioCapture
	committer *fakeCommitter
	events    *fakeEventSink
	gateway   *Gateway
	cancel    context.CancelFunc
}

func newHarness(t *testing.T, capture *fakeAudioCapture, transcriber ports.Transcriber, rules ports.RulesEngine) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := NewGateway(transcriber, nil, clock, logger, GatewayConfig{})
	committer := &fakeCommitter{}
	events := &fakeEventSink{}
	if rules == nil {
		rules = &fakeRules{}
	}

	d := NewDictation(Deps{
		Capture:   capture,
		Gateway:   gateway,
		Timers:    timer.New(clock),
		Rules:     rules,
		Committer: committer,
		Events:    events,
		Logger:    logger,
	}, Config{ChunkSize: testChunk, Linger: testLinger, FallbackTimeout: testFallback})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-d.Done()
	})

	return &harness{d: d, clock: clock, capture: capture, committer: committer, events: events, gateway: gateway, cancel: cancel}
}

// finishRecording releases the trigger, lets the linger elapse and waits
// until the session is awaiting its transcript with the fallback armed.
func (h *harness) finishRecording(t *testing.T, awaiting int) {
	t.Helper()
	if err := h.d.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("linger timer was not armed: %v", err)
	}
	h.clock.Advance(testLinger)
	h.events.waitForState(t, domain.SessionStateAwaitingResult, awaiting)
}

func TestDictationEndToEndCommitsTranscript(t *testing.T) {
	t.Parallel()

	uploads := make(chan int, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		uploads <- len(data)
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"hello world"}`)
	}))
	t.Cleanup(server.Close)

	chunk := make([]byte, testChunk)
	audio := newFakeAudioSession([][]byte{chunk, chunk, chunk}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, asrhttp.NewClient(asrhttp.Config{Endpoint: server.URL}), nil)

	if err := h.d.Press(); err != nil {
		t.Fatalf("press failed: %v", err)
	}
	h.events.waitForState(t, domain.SessionStateRecording, 1)
	h.finishRecording(t, 1)

	h.committer.waitForCommits(t, 1)
	if got := h.committer.snapshot(); got[0] != "hello world" {
		t.Fatalf("unexpected commit: %q", got[0])
	}
	if size := <-uploads; size != 3*testChunk+44 {
		t.Fatalf("unexpected upload size: %d", size)
	}

	// The fallback timer must have been cancelled, not merely outrun.
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 0); err != nil {
		t.Fatalf("timers still armed after commit: %v", err)
	}
	h.clock.Advance(2 * testFallback)
	h.committer.expectCount(t, 1)

	h.events.waitForState(t, domain.SessionStateIdle, 2)
	if status := h.d.Status(); status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("expected idle status, got %+v", status)
	}

	finals := h.events.snapshotFinals()
	if len(finals) != 1 || finals[0].Path != domain.CommitPathResult || finals[0].Final != "hello world" {
		t.Fatalf("unexpected final transcript events: %+v", finals)
	}
	if audio.stopCount() == 0 {
		t.Fatalf("expected capture to be stopped")
	}
}

func TestDictationZeroAudioCommitsEmptyWithoutRequest(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{}
	audio := newFakeAudioSession(nil, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, nil)

	if err := h.d.Press(); err != nil {
		t.Fatalf("press failed: %v", err)
	}
	h.finishRecording(t, 1)

	h.committer.waitForCommits(t, 1)
	if got := h.committer.snapshot(); got[0] != "" {
		t.Fatalf("expected empty commit, got %q", got[0])
	}
	if transcriber.callCount() != 0 {
		t.Fatalf("expected no transcription request, got %d", transcriber.callCount())
	}

	states := h.events.snapshotStates()
	if !containsReason(states, domain.SessionReasonEmptyCommit) {
		t.Fatalf("expected empty commit reason, got %+v", states)
	}
}

func TestDictationTimeoutCommitsAtFallbackDuration(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{results: make(chan string)}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, nil)

	if err := h.d.Press(); err != nil {
		t.Fatalf("press failed: %v", err)
	}
	h.finishRecording(t, 1)
	transcriber.waitForCalls(t, 1)

	h.clock.Advance(testFallback - time.Millisecond)
	h.committer.expectCount(t, 0)

	h.clock.Advance(time.Millisecond)
	h.committer.waitForCommits(t, 1)
	if got := h.committer.snapshot(); got[0] != "" {
		t.Fatalf("expected empty timeout commit, got %q", got[0])
	}

	finals := h.events.snapshotFinals()
	if len(finals) != 1 || finals[0].Path != domain.CommitPathTimeout {
		t.Fatalf("expected timeout commit path, got %+v", finals)
	}
	if !containsReason(h.events.snapshotStates(), domain.SessionReasonTimeoutCommit) {
		t.Fatalf("expected timeout reason")
	}
}

func TestDictationLateResultAfterTimeoutIsIgnored(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{results: make(chan string, 1)}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, nil)

	_ = h.d.Press()
	h.finishRecording(t, 1)
	transcriber.waitForCalls(t, 1)

	h.clock.Advance(testFallback)
	h.committer.waitForCommits(t, 1)

	transcriber.results <- "too late"
	h.committer.expectCount(t, 1)
	if got := h.committer.snapshot(); got[0] != "" {
		t.Fatalf("late result leaked into commit: %q", got[0])
	}
}

func TestDictationResultAndTimeoutRaceCommitsOnce(t *testing.T) {
	t.Parallel()

	const rounds = 10
	sessions := make([]*fakeAudioSession, rounds)
	for i := range sessions {
		sessions[i] = newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	}
	transcriber := &fakeTranscriber{results: make(chan string, rounds)}
	h := newHarness(t, &fakeAudioCapture{sessions: sessions}, transcriber, nil)

	for i := 0; i < rounds; i++ {
		if err := h.d.Press(); err != nil {
			t.Fatalf("press failed: %v", err)
		}
		h.finishRecording(t, i+1)
		transcriber.waitForCalls(t, i+1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			transcriber.results <- "text"
		}()
		go func() {
			defer wg.Done()
			h.clock.Advance(testFallback)
		}()
		wg.Wait()

		h.committer.waitForCommits(t, i+1)
		h.events.waitForState(t, domain.SessionStateIdle, i+2)
	}

	h.committer.expectCount(t, rounds)
	if h.capture.startCount() != rounds {
		t.Fatalf("expected %d sessions, got %d", rounds, h.capture.startCount())
	}
}

func TestDictationSequentialSessionsCommitOnceEach(t *testing.T) {
	t.Parallel()

	const rounds = 3
	sessions := make([]*fakeAudioSession, rounds)
	for i := range sessions {
		sessions[i] = newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	}
	transcriber := &fakeTranscriber{text: "ok"}
	h := newHarness(t, &fakeAudioCapture{sessions: sessions}, transcriber, nil)

	for i := 0; i < rounds; i++ {
		_ = h.d.Press()
		h.finishRecording(t, i+1)
		h.committer.waitForCommits(t, i+1)
		h.events.waitForState(t, domain.SessionStateIdle, i+2)
	}

	h.committer.expectCount(t, rounds)
	ids := map[string]bool{}
	for _, final := range h.events.snapshotFinals() {
		ids[final.SessionID] = true
	}
	if len(ids) != rounds {
		t.Fatalf("expected distinct session ids, got %v", ids)
	}
}

func TestDictationIgnoresDoubleTriggers(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{results: make(chan string, 1)}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio, newFakeAudioSession(nil, nil)}}, transcriber, nil)

	_ = h.d.Press()
	_ = h.d.Press()
	h.finishRecording(t, 1)

	_ = h.d.Press()
	_ = h.d.Toggle()
	_ = h.d.Release()
	transcriber.waitForCalls(t, 1)
	transcriber.results <- "only once"

	h.committer.waitForCommits(t, 1)
	h.events.waitForState(t, domain.SessionStateIdle, 2)
	h.committer.expectCount(t, 1)

	if h.capture.startCount() != 1 {
		t.Fatalf("expected a single capture session, got %d", h.capture.startCount())
	}
	if got := h.events.countState(domain.SessionStateRecording); got != 1 {
		t.Fatalf("expected one recording transition, got %d", got)
	}
}

func TestDictationReleaseWhileIdleIsIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeAudioCapture{}, &fakeTranscriber{}, nil)

	if err := h.d.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	h.committer.expectCount(t, 0)
	if h.capture.startCount() != 0 {
		t.Fatalf("release must not start capture")
	}
	if status := h.d.Status(); status.State != domain.SessionStateIdle {
		t.Fatalf("unexpected state: %s", status.State)
	}
}

func TestDictationCaptureUnavailableStaysIdle(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{err: domain.ErrCaptureUnavailable}
	h := newHarness(t, capture, &fakeTranscriber{}, nil)

	_ = h.d.Press()
	h.events.waitForReason(t, domain.SessionReasonCaptureUnavailable)

	if status := h.d.Status(); status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("expected idle status, got %+v", status)
	}
	errs := h.events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeCaptureUnavailable {
		t.Fatalf("expected capture error, got %+v", errs)
	}
	if h.events.countState(domain.SessionStateRecording) != 0 {
		t.Fatalf("no session should have been created")
	}
	h.committer.expectCount(t, 0)
}

func TestDictationTransportErrorCommitsEmpty(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{err: errors.New("connection refused")}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, nil)

	_ = h.d.Press()
	h.finishRecording(t, 1)
	h.committer.waitForCommits(t, 1)

	if got := h.committer.snapshot(); got[0] != "" {
		t.Fatalf("expected empty commit, got %q", got[0])
	}
	errs := h.events.snapshotErrors()
	if len(errs) == 0 || errs[0].code != domain.ErrorCodeTransport {
		t.Fatalf("expected transport error, got %+v", errs)
	}
	finals := h.events.snapshotFinals()
	if len(finals) != 1 || finals[0].Path != domain.CommitPathError {
		t.Fatalf("expected error commit path, got %+v", finals)
	}
}

func TestDictationSubmitsTrailingAudioBeforeEnd(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "tail"}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, make([]byte, 1000))
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, nil)

	_ = h.d.Press()
	h.finishRecording(t, 1)
	h.committer.waitForCommits(t, 1)

	wavs := transcriber.snapshotWAVs()
	if len(wavs) != 1 || len(wavs[0]) != testChunk+1000+44 {
		t.Fatalf("expected trailing audio in upload, got sizes %v", sizes(wavs))
	}
}

func TestDictationAppliesRulesBeforeCommit(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "hello"}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, &fakeRules{transform: "HELLO"})

	_ = h.d.Press()
	h.finishRecording(t, 1)
	h.committer.waitForCommits(t, 1)

	if got := h.committer.snapshot(); got[0] != "HELLO" {
		t.Fatalf("expected transformed commit, got %q", got[0])
	}
	finals := h.events.snapshotFinals()
	if finals[0].Raw != "hello" || finals[0].Final != "HELLO" {
		t.Fatalf("unexpected final event: %+v", finals[0])
	}
}

func TestDictationToggleDrivesSession(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "toggled"}
	audio := newFakeAudioSession([][]byte{make([]byte, testChunk)}, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, transcriber, nil)

	if err := h.d.Toggle(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	h.events.waitForState(t, domain.SessionStateRecording, 1)

	if err := h.d.Toggle(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("linger timer was not armed: %v", err)
	}
	h.clock.Advance(testLinger)

	h.committer.waitForCommits(t, 1)
	if got := h.committer.snapshot(); got[0] != "toggled" {
		t.Fatalf("unexpected commit: %q", got[0])
	}
}

func TestDictationShutdownAbandonsSession(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession(nil, nil)
	h := newHarness(t, &fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, &fakeTranscriber{}, nil)

	_ = h.d.Press()
	h.events.waitForState(t, domain.SessionStateRecording, 1)

	h.cancel()
	select {
	case <-h.d.Done():
	case <-time.After(waitFor):
		t.Fatalf("loop did not stop")
	}

	if audio.stopCount() == 0 {
		t.Fatalf("expected capture to be stopped on shutdown")
	}
	h.committer.expectCount(t, 0)
	if !containsReason(h.events.snapshotStates(), domain.SessionReasonShutdown) {
		t.Fatalf("expected shutdown reason")
	}
	if err := h.d.Press(); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDictationRunTwiceFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeAudioCapture{}, &fakeTranscriber{}, nil)
	h.events.waitForState(t, domain.SessionStateIdle, 1)

	if err := h.d.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func containsReason(states []stateEvent, reason domain.SessionStateReason) bool {
	for _, s := range states {
		if s.reason == reason {
			return true
		}
	}
	return false
}

func sizes(wavs [][]byte) []int {
	out := make([]int, len(wavs))
	for i, w := range wavs {
		out[i] = len(w)
	}
	return out
}

func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf(format, args...)
}

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []*fakeAudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

func (f *fakeAudioCapture) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAudioSession yields chunks, then blocks until Stop, then yields tail
// and EOF.
type fakeAudioSession struct {
	mu         sync.Mutex
	chunks     [][]byte
	tail       []byte
	stopped    chan struct{}
	stopOnce   sync.Once
	stopCalls  int
	closeCalls int
	stopErr    error
}

func newFakeAudioSession(chunks [][]byte, tail []byte) *fakeAudioSession {
	return &fakeAudioSession{chunks: chunks, tail: tail, stopped: make(chan struct{})}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.chunks) > 0 {
		n := copy(p, f.chunks[0])
		if n < len(f.chunks[0]) {
			f.chunks[0] = f.chunks[0][n:]
		} else {
			f.chunks = f.chunks[1:]
		}
		f.mu.Unlock()
		return n, nil
	}
	f.mu.Unlock()

	<-f.stopped

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tail) > 0 {
		n := copy(p, f.tail)
		f.tail = f.tail[n:]
		return n, nil
	}
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	return f.Stop()
}

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return f.stopErr
}

func (f *fakeAudioSession) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

// fakeTranscriber answers with text/err, or with the next value sent on
// results when that channel is set.
type fakeTranscriber struct {
	mu      sync.Mutex
	wavs    [][]byte
	text    string
	err     error
	results chan string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	f.mu.Lock()
	f.wavs = append(f.wavs, wav)
	f.mu.Unlock()

	if f.results != nil {
		select {
		case text := <-f.results:
			return text, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.wavs)
}

func (f *fakeTranscriber) snapshotWAVs() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.wavs))
	copy(out, f.wavs)
	return out
}

func (f *fakeTranscriber) waitForCalls(t *testing.T, n int) {
	t.Helper()
	eventually(t, func() bool { return f.callCount() >= n }, "expected %d transcription calls, got %d", n, f.callCount())
}

type fakeRules struct {
	transform string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}

type fakeCommitter struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeCommitter) Commit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeCommitter) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func (f *fakeCommitter) waitForCommits(t *testing.T, n int) {
	t.Helper()
	eventually(t, func() bool { return len(f.snapshot()) >= n }, "expected %d commits, got %d", n, len(f.snapshot()))
}

// expectCount asserts the commit count stays at n for a short settle period.
func (f *fakeCommitter) expectCount(t *testing.T, n int) {
	t.Helper()
	time.Sleep(30 * time.Millisecond)
	if got := len(f.snapshot()); got != n {
		t.Fatalf("expected %d commits, got %d", n, got)
	}
}

type fakeEventSink struct {
	mu sync.Mutex

	states []stateEvent
	finals []domain.Commit
	errors []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) FinalTranscript(commit domain.Commit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, commit)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotFinals() []domain.Commit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Commit, len(f.finals))
	copy(out, f.finals)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) countState(state domain.SessionState) int {
	count := 0
	for _, s := range f.snapshotStates() {
		if s.state == state {
			count++
		}
	}
	return count
}

func (f *fakeEventSink) waitForState(t *testing.T, state domain.SessionState, n int) {
	t.Helper()
	eventually(t, func() bool { return f.countState(state) >= n }, "expected %d %s transitions, got %d", n, state, f.countState(state))
}

func (f *fakeEventSink) waitForReason(t *testing.T, reason domain.SessionStateReason) {
	t.Helper()
	eventually(t, func() bool { return containsReason(f.snapshotStates(), reason) }, "expected reason %s", reason)
}
