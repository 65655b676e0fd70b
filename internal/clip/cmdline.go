package clip

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
)

const cliPollInterval = 500 * time.Millisecond

// cliBackend shells out to xclip, xsel, wl-clipboard, pbcopy or the Windows
// API through atotto/clipboard. Text only.
type cliBackend struct {
	watchCh  chan struct{}
	done     chan struct{}
	lastText string
}

func newCommandLine() (Backend, error) {
	if clipboard.Unsupported {
		return nil, errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("initial read: %w", err)
	}
	b := &cliBackend{
		watchCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		lastText: text,
	}
	go b.poll()
	return b, nil
}

func (b *cliBackend) Name() string { return "cli (atotto/clipboard, poll)" }

func (b *cliBackend) poll() {
	t := time.NewTicker(cliPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text, err := clipboard.ReadAll()
			if err != nil {
				slog.Debug("clipboard poll failed", "err", err)
				continue
			}
			if text != b.lastText {
				b.lastText = text
				notify(b.watchCh)
			}
		}
	}
}

func (b *cliBackend) Read() (Payload, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return Payload{}, fmt.Errorf("read clipboard: %w", err)
	}
	return Payload{Text: text}, nil
}

func (b *cliBackend) Write(p Payload) error {
	if p.Text == "" {
		return errors.New("cli backend can only write text")
	}
	return clipboard.WriteAll(p.Text)
}

func (b *cliBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *cliBackend) Close()                 { close(b.done) }
