package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"murmur/internal/ports"
)

// Target receives press/release edges.
type Target interface {
	Press() error
	Release() error
}

// Forward starts src and relays its edges to target until ctx ends or the
// source closes its channel. src is always stopped before Forward returns.
func Forward(ctx context.Context, src ports.TriggerSource, target Target, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	events, err := src.Start(ctx)
	if err != nil {
		return fmt.Errorf("start trigger source: %w", err)
	}
	defer func() {
		if err := src.Stop(); err != nil {
			logger.Warn("failed to stop trigger source", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			var err error
			if ev.Pressed {
				err = target.Press()
			} else {
				err = target.Release()
			}
			if err != nil {
				return fmt.Errorf("forward trigger edge: %w", err)
			}
		}
	}
}
