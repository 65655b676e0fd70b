// Package command is the single entry point for everything that changes the
// clipboard history. UI front-ends and the clipboard watcher submit typed
// commands; a Dispatcher executes them one at a time on its own goroutine,
// so the history never sees concurrent mutation.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipstack/internal/capture"
	"go.klb.dev/clipstack/internal/clip"
	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/richtext"
)

// Command is one of the concrete command types below.
type Command interface{ command() }

type (
	// ClipboardChanged is raised by the clipboard watcher.
	ClipboardChanged struct{}
	// Copy puts an entry back on the system clipboard without reordering.
	Copy struct{ ID history.ID }
	// Delete removes an entry.
	Delete struct{ ID history.ID }
	// Edit replaces an entry with edited rich text and promotes it.
	Edit struct {
		ID      history.ID
		Content string
	}
	// Clear empties the history.
	Clear struct{}
	// List returns the history, most recent first.
	List struct{}
	// Get returns one entry.
	Get struct{ ID history.ID }
	// Status reports daemon state.
	Status struct{}
)

func (ClipboardChanged) command() {}
func (Copy) command()             {}
func (Delete) command()           {}
func (Edit) command()             {}
func (Clear) command()            {}
func (List) command()             {}
func (Get) command()              {}
func (Status) command()           {}

// Info is the payload of a Status reply.
type Info struct {
	Backend    string    `json:"backend"`
	Entries    int       `json:"entries"`
	StartedAt  time.Time `json:"started_at"`
	LastStatus string    `json:"last_status,omitempty"`
}

// Reply is the result of a command. Only the fields relevant to the command
// are set.
type Reply struct {
	Message string
	Entry   *history.Entry
	Entries []history.Entry
	Info    *Info
}

type request struct {
	ctx   context.Context
	cmd   Command
	reply chan result
}

type result struct {
	reply Reply
	err   error
}

// Dispatcher owns the history, the capture handler and the clipboard backend.
type Dispatcher struct {
	store   *history.Store
	backend clip.Backend
	handler *capture.Handler
	reqCh   chan request
	started time.Time

	mu         sync.Mutex
	lastStatus string
}

// New returns a Dispatcher. Call Run to start processing.
func New(store *history.Store, backend clip.Backend) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		backend: backend,
		reqCh:   make(chan request),
		started: time.Now(),
	}
	d.handler = capture.New(store, backend, d.setStatus)
	return d
}

// Run executes commands and clipboard notifications until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("dispatcher started", "backend", d.backend.Name())
	d.setStatus("Monitoring clipboard...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.backend.Watch():
			_, _ = d.Execute(ctx, ClipboardChanged{})
		case req := <-d.reqCh:
			reply, err := d.Execute(req.ctx, req.cmd)
			req.reply <- result{reply, err}
		}
	}
}

// Do submits cmd to the Run loop and waits for its reply.
func (d *Dispatcher) Do(ctx context.Context, cmd Command) (Reply, error) {
	req := request{ctx: ctx, cmd: cmd, reply: make(chan result, 1)}
	select {
	case d.reqCh <- req:
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.reply, res.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Execute runs cmd on the calling goroutine. The caller is responsible for
// serialisation; inside the daemon only Run calls it.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (Reply, error) {
	switch c := cmd.(type) {
	case ClipboardChanged:
		res, err := d.handler.Handle(ctx)
		if err != nil || res.Ignored || res.Echo {
			return Reply{}, err
		}
		return Reply{Entry: &res.Entry}, nil

	case Copy:
		return d.copy(ctx, c.ID)

	case Delete:
		if err := d.store.Remove(c.ID); err != nil {
			return Reply{}, d.contractViolation(ctx, "delete", c.ID, err)
		}
		slog.InfoContext(ctx, "entry deleted", "id", c.ID)
		return d.ok("Item deleted from history"), nil

	case Edit:
		return d.edit(ctx, c.ID, c.Content)

	case Clear:
		n := d.store.Clear()
		slog.InfoContext(ctx, "history cleared", "dropped", n)
		return d.ok("History cleared"), nil

	case List:
		return Reply{Entries: d.store.Entries()}, nil

	case Get:
		e, ok := d.store.Get(c.ID)
		if !ok {
			return Reply{}, fmt.Errorf("get %d: %w", c.ID, history.ErrNotFound)
		}
		return Reply{Entry: &e}, nil

	case Status:
		return Reply{Info: &Info{
			Backend:    d.backend.Name(),
			Entries:    d.store.Len(),
			StartedAt:  d.started,
			LastStatus: d.LastStatus(),
		}}, nil

	default:
		return Reply{}, fmt.Errorf("unknown command %T", cmd)
	}
}

// LastStatus returns the most recent user-facing status message.
func (d *Dispatcher) LastStatus() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastStatus
}

// copy writes the entry to the clipboard. History order is left alone and
// the resulting change notification is swallowed as an echo.
func (d *Dispatcher) copy(ctx context.Context, id history.ID) (Reply, error) {
	e, ok := d.store.Get(id)
	if !ok {
		return Reply{}, d.contractViolation(ctx, "copy", id, history.ErrNotFound)
	}
	p := Payload(e)
	d.handler.ExpectEcho(p)
	if err := d.backend.Write(p); err != nil {
		d.setStatus("Error: " + err.Error())
		return Reply{}, fmt.Errorf("write clipboard: %w", err)
	}
	slog.InfoContext(ctx, "entry copied to clipboard", "id", id, "type", e.Type)
	return d.ok("Item copied to clipboard"), nil
}

// edit applies a confirmed edit: the entry becomes Text, moves to the top
// and its new content is placed on the clipboard. The edited document is
// HTML when the entry was rich text or an image, plain text otherwise.
func (d *Dispatcher) edit(ctx context.Context, id history.ID, content string) (Reply, error) {
	if content == "" {
		return Reply{}, errors.New("edit: empty content")
	}
	old, ok := d.store.Get(id)
	if !ok {
		return Reply{}, d.contractViolation(ctx, "edit", id, history.ErrNotFound)
	}
	e, err := d.store.PromoteAndEdit(id, []byte(content), history.Text, richtext.DocumentIsHTML(old))
	if err != nil {
		return Reply{}, d.contractViolation(ctx, "edit", id, err)
	}
	slog.InfoContext(ctx, "entry edited", "id", id, "bytes", len(e.Content))

	p := Payload(e)
	d.handler.ExpectEcho(p)
	if err := d.backend.Write(p); err != nil {
		slog.WarnContext(ctx, "edited entry not placed on clipboard", "id", id, "err", err)
		r := d.ok("Item edited, but the clipboard could not be updated: " + err.Error())
		r.Entry = &e
		return r, nil
	}
	r := d.ok("Item edited successfully, moved to top, and set as current clipboard content")
	r.Entry = &e
	return r, nil
}

func (d *Dispatcher) contractViolation(ctx context.Context, op string, id history.ID, err error) error {
	slog.ErrorContext(ctx, "command references unknown entry", "op", op, "id", id)
	return fmt.Errorf("%s %d: %w", op, id, err)
}

func (d *Dispatcher) ok(msg string) Reply {
	d.setStatus(msg)
	return Reply{Message: msg}
}

func (d *Dispatcher) setStatus(msg string) {
	d.mu.Lock()
	d.lastStatus = msg
	d.mu.Unlock()
}

// Payload converts an entry to what gets written to the clipboard: rich text
// in both HTML and plain form, plain text verbatim, images as PNG.
func Payload(e history.Entry) clip.Payload {
	if e.Type == history.Image {
		return clip.Payload{Image: e.Content}
	}
	html, plain := richtext.Forms(e)
	return clip.Payload{HTML: html, Text: plain}
}
