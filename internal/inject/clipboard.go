package inject

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported means no clipboard utility was found (on Linux,
// one of xclip, xsel or wl-clipboard is required).
var ErrClipboardUnsupported = errors.New("system clipboard unsupported")

// SystemClipboard implements ports.Clipboard with the OS clipboard.
type SystemClipboard struct{}

func NewSystemClipboard() (*SystemClipboard, error) {
	if clipboard.Unsupported {
		return nil, ErrClipboardUnsupported
	}
	return &SystemClipboard{}, nil
}

func (SystemClipboard) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return clipboard.ReadAll()
}

func (SystemClipboard) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return clipboard.WriteAll(text)
}
