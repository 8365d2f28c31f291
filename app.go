package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"murmur/internal/bootstrap"
	"murmur/internal/config"
	"murmur/internal/domain"
	"murmur/internal/observe"
	"murmur/internal/ports"
	"murmur/internal/statusui"
	"murmur/internal/trigger"
)

// App is the daemon root. It owns the service graph and fans session events
// out to the log and, when enabled, the terminal status indicator.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	ui     *statusui.UI

	meterProvider  metric.MeterProvider
	metricsHandler http.Handler

	// build is replaced in tests.
	build func(ctx context.Context, cfg config.Config, opts bootstrap.Options) (bootstrap.Services, error)
}

// AppOption customises an App.
type AppOption func(*App)

// WithStatusUI attaches the terminal status indicator.
func WithStatusUI(ui *statusui.UI) AppOption {
	return func(a *App) { a.ui = ui }
}

// WithMetrics exports instruments through mp and serves handler on the
// configured metrics address.
func WithMetrics(mp metric.MeterProvider, handler http.Handler) AppOption {
	return func(a *App) {
		a.meterProvider = mp
		a.metricsHandler = handler
	}
}

func NewApp(cfg config.Config, logger *slog.Logger, opts ...AppOption) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger, build: bootstrap.Build}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run builds the service graph and blocks until ctx ends, the status UI is
// quit, or a component fails.
func (a *App) Run(ctx context.Context) error {
	sink := a.eventSink()

	services, err := a.build(ctx, a.cfg, bootstrap.Options{
		Events:        sink,
		MeterProvider: a.meterProvider,
		Logger:        a.logger,
	})
	if err != nil {
		sink.SessionError(domain.ErrorCodeStartup, err.Error())
		return fmt.Errorf("build services: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return services.Dictation.Run(gctx)
	})

	if services.Trigger != nil {
		g.Go(func() error {
			err := trigger.Forward(gctx, services.Trigger, services.Dictation, a.logger)
			if err == nil {
				return nil
			}
			sink.SessionError(domain.ErrorCodeTrigger, err.Error())
			if a.ui != nil {
				// The status UI can still toggle sessions.
				return nil
			}
			return err
		})
	} else if a.ui == nil {
		a.logger.Warn("no trigger key configured and no status UI; sessions cannot be started")
	}

	if a.metricsHandler != nil && a.cfg.Metrics.ListenAddr != "" {
		g.Go(func() error {
			a.logger.Info("metrics listening", "addr", a.cfg.Metrics.ListenAddr)
			return observe.Serve(gctx, a.cfg.Metrics.ListenAddr, a.metricsHandler)
		})
	}

	if a.ui != nil {
		g.Go(func() error {
			defer cancel()
			return a.ui.Run(gctx, services.Dictation.Toggle)
		})
	}

	runErr := g.Wait()

	// Put the user's clipboard back before exiting.
	if err := services.Committer.Flush(context.Background()); err != nil {
		a.logger.Warn("failed to restore clipboard on shutdown", "err", err)
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (a *App) eventSink() ports.EventSink {
	sinks := fanout{logSink{logger: a.logger}}
	if a.ui != nil {
		sinks = append(sinks, a.ui)
	}
	return sinks
}

// logSink reports session events through slog.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.logger.Info("session state changed",
		"state", state,
		"reason", reason,
		"message", statusui.ReasonMessage(reason),
	)
}

func (s logSink) FinalTranscript(commit domain.Commit) {
	s.logger.Info("final transcript",
		"session_id", commit.SessionID,
		"path", commit.Path,
		"raw", commit.Raw,
		"final", commit.Final,
	)
}

func (s logSink) SessionError(code domain.ErrorCode, detail string) {
	s.logger.Error(statusui.ErrorMessage(code, detail),
		"code", code,
		"detail", detail,
	)
}

// fanout delivers each event to every sink in order.
type fanout []ports.EventSink

func (f fanout) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	for _, sink := range f {
		sink.SessionStateChanged(state, reason)
	}
}

func (f fanout) FinalTranscript(commit domain.Commit) {
	for _, sink := range f {
		sink.FinalTranscript(commit)
	}
}

func (f fanout) SessionError(code domain.ErrorCode, detail string) {
	for _, sink := range f {
		sink.SessionError(code, detail)
	}
}
