package clip

import (
	"context"
	"fmt"

	"golang.design/x/clipboard"
)

type nativeBackend struct {
	watchCh chan struct{}
	cancel  context.CancelFunc
}

// newNative initialises golang.design/x/clipboard. Init is called here rather
// than in init() so that CLI sub-commands that never touch the clipboard
// don't fail on headless systems.
func newNative() (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard init: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &nativeBackend{
		watchCh: make(chan struct{}, 1),
		cancel:  cancel,
	}
	go b.forward(clipboard.Watch(ctx, clipboard.FmtText))
	go b.forward(clipboard.Watch(ctx, clipboard.FmtImage))
	return b, nil
}

func (b *nativeBackend) Name() string { return "native (golang.design/x/clipboard)" }

func (b *nativeBackend) forward(ch <-chan []byte) {
	for range ch {
		notify(b.watchCh)
	}
}

// Read never reports HTML: the underlying library only exposes UTF-8 text
// and PNG images.
func (b *nativeBackend) Read() (Payload, error) {
	var p Payload
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		p.Text = string(text)
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		p.Image = img
	}
	return p, nil
}

func (b *nativeBackend) Write(p Payload) error {
	switch {
	case len(p.Image) > 0:
		clipboard.Write(clipboard.FmtImage, p.Image)
	case p.Text != "":
		clipboard.Write(clipboard.FmtText, []byte(p.Text))
	default:
		return fmt.Errorf("nothing to write")
	}
	return nil
}

func (b *nativeBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *nativeBackend) Close()                 { b.cancel() }
