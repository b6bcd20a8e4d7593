// Package output delivers detected and translated text to its consumers.
package output

import (
	"log/slog"

	"github.com/atotto/clipboard"
)

// Channel receives pipeline output. Implementations must not block.
type Channel interface {
	SendText(text string, isTranslation bool)
	ClearTexts()
}

// Fanout forwards to every channel in order.
type Fanout []Channel

func (f Fanout) SendText(text string, isTranslation bool) {
	for _, c := range f {
		c.SendText(text, isTranslation)
	}
}

func (f Fanout) ClearTexts() {
	for _, c := range f {
		c.ClearTexts()
	}
}

// Clipboard copies every translation to the system clipboard.
type Clipboard struct {
	write func(string) error
}

// NewClipboard returns a sink backed by the system clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{write: clipboard.WriteAll}
}

func (c *Clipboard) SendText(text string, isTranslation bool) {
	if !isTranslation || text == "" || clipboard.Unsupported {
		return
	}
	if err := c.write(text); err != nil {
		slog.Warn("clipboard write failed", "error", err)
	}
}

// ClearTexts leaves the clipboard untouched.
func (c *Clipboard) ClearTexts() {}
