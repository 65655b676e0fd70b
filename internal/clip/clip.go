// Package clip provides a unified interface to the system clipboard.
//
// Three backends are available, tried in this order by New:
//
//	native    golang.design/x/clipboard: text + PNG, native change events
//	cli       github.com/atotto/clipboard: text only via xclip/xsel/wl-clipboard, polled
//	headless  no-op, for containers and CI
//
// Memory is an in-process backend used by tests and by "--backend memory".
//
// Rich text is only captured by backends that report HTML. Neither system
// library exposes an HTML format, so native and cli captures are plain text
// or images, and rich entries are written back through their plain form.
package clip

import (
	"fmt"
	"log/slog"
)

// Payload is one snapshot of the clipboard. Any combination of fields may be
// set; an all-empty payload means the clipboard holds nothing we understand.
type Payload struct {
	HTML  string // rich text markup
	Text  string // plain text
	Image []byte // encoded raster image, PNG when written by us
}

// Empty reports whether the payload carries no supported format.
func (p Payload) Empty() bool {
	return p.HTML == "" && p.Text == "" && len(p.Image) == 0
}

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents. A clipboard holding only
	// unsupported formats yields an empty Payload and a nil error.
	Read() (Payload, error)

	// Write replaces the clipboard contents. Backends write every format
	// they support and silently skip the rest.
	Write(p Payload) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. Signals may be spurious or coalesced; the caller should Read
	// when it receives one. The channel is never closed.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// Kind names a backend selection.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindNative Kind = "native"
	KindCLI    Kind = "cli"
	KindMemory Kind = "memory"
)

// New returns the backend for kind. KindAuto falls back from native to cli
// to headless, logging why each step was skipped.
func New(kind Kind) (Backend, error) {
	switch kind {
	case KindNative:
		return newNative()
	case KindCLI:
		return newCommandLine()
	case KindMemory:
		return NewMemory(), nil
	case KindAuto, "":
		b, err := newNative()
		if err == nil {
			return b, nil
		}
		slog.Warn("native clipboard unavailable", "err", err)

		b, err = newCommandLine()
		if err == nil {
			return b, nil
		}
		slog.Warn("command-line clipboard unavailable, running headless", "err", err)
		return newHeadless(), nil
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q", kind)
	}
}

// notify performs a non-blocking send; one pending signal is enough.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
