// Package inject delivers committed text to the focused application by
// borrowing the system clipboard and sending the paste keystroke.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"murmur/internal/ports"
)

const DefaultRestoreDelay = 100 * time.Millisecond

// Committer implements ports.TextCommitter. The clipboard is treated as a
// borrowed resource: its content is saved before the first write and put
// back RestoreDelay after the last commit, on success and failure alike.
type Committer struct {
	clipboard    ports.Clipboard
	paster       ports.Paster
	clock        clockwork.Clock
	logger       *slog.Logger
	restoreDelay time.Duration

	mu       sync.Mutex
	holding  bool
	saved    string
	savedOK  bool
	restore  clockwork.Timer
	restoreN uint64
}

func NewCommitter(clipboard ports.Clipboard, paster ports.Paster, clock clockwork.Clock, logger *slog.Logger, restoreDelay time.Duration) *Committer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if restoreDelay <= 0 {
		restoreDelay = DefaultRestoreDelay
	}
	return &Committer{
		clipboard:    clipboard,
		paster:       paster,
		clock:        clock,
		logger:       logger,
		restoreDelay: restoreDelay,
	}
}

// Commit pastes text into the focused window. Empty text still goes through
// the save and restore cycle but nothing is written or pasted.
func (c *Committer) Commit(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holding {
		// The clipboard still holds our previous text; keep the first original.
		c.restore.Stop()
	} else {
		original, err := c.clipboard.ReadText(ctx)
		if err != nil {
			c.logger.Warn("could not read clipboard; it will not be restored", "err", err)
		}
		c.holding = true
		c.saved = original
		c.savedOK = err == nil
	}
	defer c.scheduleRestore()

	if text == "" {
		return nil
	}
	if err := c.clipboard.SetText(ctx, text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := c.paster.Paste(ctx); err != nil {
		return fmt.Errorf("send paste keystroke: %w", err)
	}
	return nil
}

// Flush restores the saved clipboard content immediately if a restore is
// pending.
func (c *Committer) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holding {
		c.restore.Stop()
	}
	return c.restoreLocked(ctx)
}

func (c *Committer) scheduleRestore() {
	c.restoreN++
	n := c.restoreN
	c.restore = c.clock.AfterFunc(c.restoreDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if n != c.restoreN {
			return
		}
		if err := c.restoreLocked(context.Background()); err != nil {
			c.logger.Warn("failed to restore clipboard", "err", err)
		}
	})
}

func (c *Committer) restoreLocked(ctx context.Context) error {
	if !c.holding {
		return nil
	}
	c.holding = false
	c.restoreN++
	saved, ok := c.saved, c.savedOK
	c.saved = ""
	if !ok {
		return nil
	}
	if err := c.clipboard.SetText(ctx, saved); err != nil {
		return fmt.Errorf("restore clipboard: %w", err)
	}
	return nil
}
