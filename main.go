// Command murmur is a push-to-talk dictation daemon: hold the hotkey, speak,
// release, and the recognized text is pasted into the focused window.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"murmur/internal/config"
	"murmur/internal/observe"
	"murmur/internal/statusui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	withUI := flag.Bool("tui", false, "show the terminal status indicator")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "murmur: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Log, !*withUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "murmur: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("murmur starting",
		"version", version,
		"config", *configPath,
		"endpoint", cfg.ASR.Endpoint,
		"language", cfg.ASR.Language,
		"trigger_key", cfg.Trigger.Key,
		"rules", cfg.Commit.RulesPath,
	)

	provider, err := observe.InitProvider(version)
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []AppOption{WithMetrics(provider.MeterProvider, provider.Handler)}
	if *withUI {
		opts = append(opts, WithStatusUI(statusui.New()))
	}

	if err := NewApp(cfg, logger, opts...).Run(ctx); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
