package inject

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// linuxWarmup is how long the kernel needs to register the virtual uinput
// keyboard before it accepts events.
const linuxWarmup = 2 * time.Second

// Paste modifiers accepted by NewKeyboardPaster.
const (
	ModifierAuto  = "auto"
	ModifierCtrl  = "ctrl"
	ModifierSuper = "super"
)

// KeyboardPaster implements ports.Paster by synthesizing Ctrl+V (Cmd+V on
// macOS).
type KeyboardPaster struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// NewKeyboardPaster creates the virtual keyboard. On Linux this blocks for
// the uinput warmup unless ctx ends first.
func NewKeyboardPaster(ctx context.Context, modifier string) (*KeyboardPaster, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}

	if runtime.GOOS == "linux" {
		t := time.NewTimer(linuxWarmup)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	switch resolveModifier(modifier, runtime.GOOS) {
	case ModifierSuper:
		kb.HasSuper(true)
	default:
		kb.HasCTRL(true)
	}
	kb.SetKeys(keybd_event.VK_V)
	return &KeyboardPaster{kb: kb}, nil
}

func (p *KeyboardPaster) Paste(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kb.Launching()
}

func resolveModifier(modifier, goos string) string {
	switch strings.ToLower(strings.TrimSpace(modifier)) {
	case ModifierCtrl:
		return ModifierCtrl
	case ModifierSuper, "cmd":
		return ModifierSuper
	}
	if goos == "darwin" {
		return ModifierSuper
	}
	return ModifierCtrl
}
