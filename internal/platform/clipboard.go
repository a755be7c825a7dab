package platform

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrNoClipboard is returned when no system clipboard utility is available.
var ErrNoClipboard = errors.New("clipboard unavailable")

// ClipboardContent carries every representation the clipboard offered.
type ClipboardContent struct {
	Plain string
	HTML  string
}

type Clipboard interface {
	Read(ctx context.Context) (ClipboardContent, error)
	Write(ctx context.Context, text string) error
}

// SystemClipboard uses the OS clipboard. It only exposes plain text.
type SystemClipboard struct{}

func (SystemClipboard) Read(context.Context) (ClipboardContent, error) {
	if clipboard.Unsupported {
		return ClipboardContent{}, ErrNoClipboard
	}
	s, err := clipboard.ReadAll()
	if err != nil {
		return ClipboardContent{}, err
	}
	return ClipboardContent{Plain: s}, nil
}

func (SystemClipboard) Write(_ context.Context, text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard is an in-process clipboard.
type MemoryClipboard struct {
	mu      sync.Mutex
	content ClipboardContent
}

func (c *MemoryClipboard) Set(content ClipboardContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = content
}

func (c *MemoryClipboard) Read(context.Context) (ClipboardContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (c *MemoryClipboard) Write(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = ClipboardContent{Plain: text}
	return nil
}
