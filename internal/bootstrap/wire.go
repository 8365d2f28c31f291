package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"murmur/internal/audio"
	"murmur/internal/config"
	"murmur/internal/inject"
	"murmur/internal/observe"
	"murmur/internal/ports"
	"murmur/internal/providers/asrhttp"
	"murmur/internal/rules"
	"murmur/internal/timer"
	"murmur/internal/trigger"
	"murmur/internal/usecase"
)

// Options overrides platform adapters. Nil fields get the system default.
type Options struct {
	Events    ports.EventSink
	Capture   ports.AudioCapture
	Clipboard ports.Clipboard
	Paster    ports.Paster
	Trigger   ports.TriggerSource

	Clock         clockwork.Clock
	MeterProvider metric.MeterProvider
	Logger        *slog.Logger
}

// Services is the assembled runtime graph.
type Services struct {
	Dictation *usecase.Dictation
	Gateway   *usecase.Gateway
	Committer *inject.Committer
	// Trigger is nil when no hotkey is configured.
	Trigger ports.TriggerSource
	Metrics *observe.Metrics
	Config  config.Config
}

// Build wires all backend dependencies for cfg.
func Build(ctx context.Context, cfg config.Config, opts Options) (Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return Services{}, fmt.Errorf("create metrics: %w", err)
	}

	rulesEngine, err := rules.Load(cfg.Commit.RulesPath, cfg.Commit.RuleIterationLimit)
	if err != nil {
		return Services{}, err
	}
	logger.Info("rules loaded", "path", cfg.Commit.RulesPath, "count", rulesEngine.Len())

	clipboard := opts.Clipboard
	if clipboard == nil {
		system, err := inject.NewSystemClipboard()
		if err != nil {
			return Services{}, err
		}
		clipboard = system
	}

	paster := opts.Paster
	if paster == nil {
		keyboard, err := inject.NewKeyboardPaster(ctx, cfg.Commit.PasteModifier)
		if err != nil {
			return Services{}, err
		}
		paster = keyboard
	}

	triggerSource := opts.Trigger
	if triggerSource == nil && cfg.Trigger.Key != "" {
		hook, err := trigger.NewHook(cfg.Trigger.Key, logger)
		if err != nil {
			return Services{}, err
		}
		triggerSource = hook
	}

	capture := opts.Capture
	if capture == nil {
		capture = audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand)
	}

	committer := inject.NewCommitter(clipboard, paster, clock, logger, cfg.Commit.RestoreDelay)

	gateway := usecase.NewGateway(
		asrhttp.NewClient(asrhttp.Config{
			Endpoint: cfg.ASR.Endpoint,
			Language: cfg.ASR.Language,
			APIKey:   cfg.ASR.APIKey,
			Model:    cfg.ASR.Model,
			Timeout:  cfg.ASR.RequestTimeout,
		}),
		metrics,
		clock,
		logger,
		usecase.GatewayConfig{
			Format: audio.PCMFormat{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
			},
			RequestTimeout: cfg.ASR.RequestTimeout,
		},
	)

	dictation := usecase.NewDictation(
		usecase.Deps{
			Capture:   capture,
			Gateway:   gateway,
			Timers:    timer.New(clock),
			Rules:     rulesEngine,
			Committer: committer,
			Events:    opts.Events,
			Metrics:   metrics,
			Logger:    logger,
		},
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize:       cfg.Audio.ChunkSize,
			Linger:          cfg.Session.Linger,
			FallbackTimeout: cfg.Session.FallbackTimeout,
		},
	)

	return Services{
		Dictation: dictation,
		Gateway:   gateway,
		Committer: committer,
		Trigger:   triggerSource,
		Metrics:   metrics,
		Config:    cfg,
	}, nil
}
