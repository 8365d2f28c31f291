package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"murmur/internal/audio"
	"murmur/internal/domain"
	"murmur/internal/observe"
	"murmur/internal/ports"
)

const defaultRequestTimeout = 30 * time.Second

// GatewayConfig controls how buffered audio is packaged and sent.
type GatewayConfig struct {
	Format         audio.PCMFormat
	RequestTimeout time.Duration
}

// Gateway accumulates one utterance of PCM and exchanges it for a single
// transcript. It holds no reference to the session that drives it: results
// go to the deliver callback passed to End.
type Gateway struct {
	transcriber ports.Transcriber
	metrics     *observe.Metrics
	clock       clockwork.Clock
	logger      *slog.Logger
	cfg         GatewayConfig

	mu         sync.Mutex
	buf        bytes.Buffer
	generation uint64
	ended      bool
}

func NewGateway(transcriber ports.Transcriber, metrics *observe.Metrics, clock clockwork.Clock, logger *slog.Logger, cfg GatewayConfig) *Gateway {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		transcriber: transcriber,
		metrics:     metrics,
		clock:       clock,
		logger:      logger,
		cfg:         cfg,
	}
}

// Begin clears buffered audio and invalidates any request still in flight.
func (g *Gateway) Begin() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

// Discard drops the current utterance without sending it.
func (g *Gateway) Discard() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
	g.ended = true
}

func (g *Gateway) reset() {
	g.buf.Reset()
	g.generation++
	g.ended = false
}

// Submit appends a chunk. Chunks arriving after End are dropped.
func (g *Gateway) Submit(chunk []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ended {
		return
	}
	g.buf.Write(chunk)
}

// Buffered reports the number of PCM bytes accumulated since Begin.
func (g *Gateway) Buffered() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Len()
}

// End seals the utterance and resolves it exactly once through deliver,
// always from another goroutine. With no audio it resolves to an empty
// result without touching the network. A later Begin suppresses delivery.
// Calling End twice for the same utterance is a no-op.
func (g *Gateway) End(ctx context.Context, deliver func(domain.TranscriptResult)) {
	g.mu.Lock()
	if g.ended {
		g.mu.Unlock()
		return
	}
	g.ended = true
	generation := g.generation
	pcm := bytes.Clone(g.buf.Bytes())
	g.buf.Reset()
	g.mu.Unlock()

	if len(pcm) == 0 {
		g.metrics.TranscriptionFinished(ctx, "skipped", 0, 0)
		go g.resolve(generation, domain.TranscriptResult{}, deliver)
		return
	}

	wav := audio.EncodeWAV(pcm, g.cfg.Format)
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()

		started := g.clock.Now()
		text, err := g.transcriber.Transcribe(reqCtx, wav)
		elapsed := g.clock.Since(started)

		status := "ok"
		switch {
		case err != nil:
			status = "error"
			g.logger.Warn("transcription request failed", "err", err, "pcm_bytes", len(pcm))
		case text == "":
			status = "empty"
		}
		g.metrics.TranscriptionFinished(ctx, status, len(pcm), elapsed)

		g.resolve(generation, domain.TranscriptResult{Text: text, Err: err}, deliver)
	}()
}

func (g *Gateway) resolve(generation uint64, result domain.TranscriptResult, deliver func(domain.TranscriptResult)) {
	g.mu.Lock()
	stale := generation != g.generation
	g.mu.Unlock()
	if stale {
		g.logger.Debug("dropping superseded transcription result")
		return
	}
	deliver(result)
}
