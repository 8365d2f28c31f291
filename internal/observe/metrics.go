// Package observe records dictation metrics through the OpenTelemetry
// Metrics API and can expose them on a Prometheus scrape endpoint.
//
// Tests should build [Metrics] with [NewMetrics] over a meter provider backed
// by a manual reader. A nil *Metrics is valid and records nothing.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"murmur/internal/domain"
)

const meterName = "murmur"

// Metrics holds the metric instruments used by the dictation core.
type Metrics struct {
	// SessionsStarted counts presses that created a session.
	SessionsStarted metric.Int64Counter

	// Commits counts terminal commits. Attributes: path, empty.
	Commits metric.Int64Counter

	// TriggersIgnored counts presses and releases dropped by the state guard.
	TriggersIgnored metric.Int64Counter

	// CaptureFailures counts presses that could not start audio capture.
	CaptureFailures metric.Int64Counter

	// TranscriptionRequests counts gateway requests. Attribute: status.
	TranscriptionRequests metric.Int64Counter

	// TranscriptionDuration tracks remote request latency.
	TranscriptionDuration metric.Float64Histogram

	// SessionDuration tracks press-to-commit latency.
	SessionDuration metric.Float64Histogram

	// AudioBytes records the PCM size of each submitted utterance.
	AudioBytes metric.Int64Histogram

	// ActiveSessions is 1 while a session exists.
	ActiveSessions metric.Int64UpDownCounter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsStarted, err = m.Int64Counter("murmur.sessions.started",
		metric.WithDescription("Dictation sessions created by a trigger press."),
	); err != nil {
		return nil, err
	}
	if met.Commits, err = m.Int64Counter("murmur.commits",
		metric.WithDescription("Sessions committed, by winning path."),
	); err != nil {
		return nil, err
	}
	if met.TriggersIgnored, err = m.Int64Counter("murmur.triggers.ignored",
		metric.WithDescription("Trigger edges ignored because of the session state."),
	); err != nil {
		return nil, err
	}
	if met.CaptureFailures, err = m.Int64Counter("murmur.capture.failures",
		metric.WithDescription("Presses whose audio capture could not start."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionRequests, err = m.Int64Counter("murmur.transcription.requests",
		metric.WithDescription("Transcription gateway requests, by status."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("murmur.transcription.duration",
		metric.WithDescription("Latency of the remote transcription request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("murmur.session.duration",
		metric.WithDescription("Time from press to commit."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudioBytes, err = m.Int64Histogram("murmur.audio.bytes",
		metric.WithDescription("PCM bytes submitted per utterance."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("murmur.sessions.active",
		metric.WithDescription("Sessions currently recording or awaiting a result."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsStarted.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
}

func (m *Metrics) SessionCommitted(ctx context.Context, path domain.CommitPath, empty bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Commits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", string(path)),
		attribute.Bool("empty", empty),
	))
	m.ActiveSessions.Add(ctx, -1)
	m.SessionDuration.Record(ctx, elapsed.Seconds())
}

// SessionAbandoned balances ActiveSessions for sessions dropped at shutdown.
func (m *Metrics) SessionAbandoned(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

func (m *Metrics) TriggerIgnored(ctx context.Context, edge string) {
	if m == nil {
		return
	}
	m.TriggersIgnored.Add(ctx, 1, metric.WithAttributes(attribute.String("edge", edge)))
}

func (m *Metrics) CaptureFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.CaptureFailures.Add(ctx, 1)
}

// TranscriptionFinished records one gateway request. status is "ok",
// "empty", "error" or "skipped" (no audio, no network call).
func (m *Metrics) TranscriptionFinished(ctx context.Context, status string, pcmBytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.AudioBytes.Record(ctx, int64(pcmBytes))
	if status != "skipped" {
		m.TranscriptionDuration.Record(ctx, elapsed.Seconds())
	}
}
