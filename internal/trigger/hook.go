package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"murmur/internal/domain"
)

const DefaultKey = "f9"

var (
	ErrUnknownKey     = errors.New("unknown trigger key")
	ErrAlreadyStarted = errors.New("trigger source already started")
)

// Hook is a process-wide global keyboard hook watching one key. Only one
// Hook may be started per process.
type Hook struct {
	key    string
	code   uint16
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

func NewHook(key string, logger *slog.Logger) (*Hook, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = DefaultKey
	}
	code, ok := hook.Keycode[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{key: key, code: code, logger: logger}, nil
}

// Start installs the hook. The returned channel is closed after Stop or when
// ctx ends.
func (h *Hook) Start(ctx context.Context) (<-chan domain.TriggerEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil, ErrAlreadyStarted
	}
	h.started = true
	h.stop = make(chan struct{})
	h.done = make(chan struct{})

	raw := hook.Start()
	out := make(chan domain.TriggerEvent, 8)
	h.logger.Info("global key hook installed", "key", h.key)

	go func() {
		defer close(h.done)
		defer close(out)
		defer hook.End()

		var edges EdgeDetector
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case ev, ok := <-raw:
				if !ok {
					return
				}
				if ev.Keycode != h.code {
					continue
				}
				var down bool
				switch ev.Kind {
				case hook.KeyDown, hook.KeyHold:
					down = true
				case hook.KeyUp:
					down = false
				default:
					continue
				}
				edge, changed := edges.Feed(down)
				if !changed {
					continue
				}
				select {
				case out <- edge:
				case <-ctx.Done():
					return
				case <-h.stop:
					return
				}
			}
		}
	}()

	return out, nil
}

// Stop removes the hook and waits for the event goroutine to exit.
func (h *Hook) Stop() error {
	h.mu.Lock()
	if !h.started || h.stop == nil {
		h.mu.Unlock()
		return nil
	}
	stop, done := h.stop, h.done
	h.stop = nil
	h.mu.Unlock()

	close(stop)
	<-done
	h.logger.Info("global key hook removed", "key", h.key)
	return nil
}
