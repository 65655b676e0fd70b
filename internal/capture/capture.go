// Package capture turns clipboard-change notifications into history updates.
//
// Each notification reads the clipboard exactly once and classifies the
// payload, first match wins:
//
//  1. rich text (HTML)   -> Text, rich representation
//  2. plain text         -> Text, plain representation
//  3. image              -> Image, re-encoded as PNG so equal pictures compare equal
//  4. anything else      -> ignored
//
// Read and decode failures are reported through the status callback and the
// event is dropped; the history is never left half-updated.
package capture

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go.klb.dev/clipstack/internal/clip"
	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/preview"
)

// StatusFunc receives short user-facing status messages.
type StatusFunc func(msg string)

// Result describes what a single Handle call did.
type Result struct {
	Entry    history.Entry
	Ignored  bool // nothing we understand was on the clipboard
	Echo     bool // the payload was our own write and was skipped
	Promoted bool // an existing entry was moved to the top
}

// Handler applies the history's insert/promote policy to clipboard changes.
type Handler struct {
	store   *history.Store
	backend clip.Backend
	status  StatusFunc

	// echo holds the digests of every representation of our last write.
	// Backends that cannot read back every format (HTML written, plain
	// read) still match one of them.
	mu   sync.Mutex
	echo map[[sha256.Size]byte]struct{}
}

// New returns a Handler. status may be nil.
func New(store *history.Store, backend clip.Backend, status StatusFunc) *Handler {
	if status == nil {
		status = func(string) {}
	}
	return &Handler{store: store, backend: backend, status: status}
}

// Handle reads the clipboard once and records what it finds. The returned
// error is informational: it has already been reported through the status
// callback and the history is unchanged.
func (h *Handler) Handle(ctx context.Context) (Result, error) {
	p, err := h.backend.Read()
	if err != nil {
		return Result{}, h.fail("read clipboard", err)
	}

	obs, ok, err := Classify(p)
	if err != nil {
		return Result{}, h.fail("decode clipboard image", err)
	}
	if !ok {
		slog.DebugContext(ctx, "clipboard change ignored, no supported format")
		return Result{Ignored: true}, nil
	}

	if h.consumeEcho(obs.Content) {
		slog.DebugContext(ctx, "clipboard change is our own write, skipping")
		return Result{Echo: true}, nil
	}

	before := h.store.Len()
	e := h.store.Upsert(obs.Content, obs.Type, obs.Rich)
	res := Result{Entry: e, Promoted: h.store.Len() == before}

	logEntry(ctx, "clipboard captured", e, res.Promoted)
	return res, nil
}

// logEntry logs a capture at INFO (id, type, size) and a preview at DEBUG.
func logEntry(ctx context.Context, event string, e history.Entry, promoted bool) {
	slog.InfoContext(ctx, event,
		"id", e.ID,
		"type", e.Type,
		"bytes", len(e.Content),
		"promoted", promoted,
	)
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}
	slog.DebugContext(ctx, "clipboard entry", "id", e.ID, "preview", preview.Text(e))
}

// ExpectEcho tells the handler that p is about to be written to the
// clipboard by us, so the next observation of the same content is skipped.
func (h *Handler) ExpectEcho(p clip.Payload) {
	set := make(map[[sha256.Size]byte]struct{}, 3)
	if p.HTML != "" {
		set[sha256.Sum256([]byte(p.HTML))] = struct{}{}
	}
	if p.Text != "" {
		set[sha256.Sum256([]byte(p.Text))] = struct{}{}
	}
	if len(p.Image) > 0 {
		if img, err := NormalizeImage(p.Image); err == nil {
			set[sha256.Sum256(img)] = struct{}{}
		}
	}
	h.mu.Lock()
	h.echo = set
	h.mu.Unlock()
}

// consumeEcho reports whether content matches the pending echo. The echo
// stays armed while the clipboard keeps showing our write (backends may
// notify more than once per write) and is cleared by the first different
// payload.
func (h *Handler) consumeEcho(content []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.echo) == 0 {
		return false
	}
	if _, ok := h.echo[sha256.Sum256(content)]; ok {
		return true
	}
	h.echo = nil
	return false
}

func (h *Handler) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	slog.Warn("clipboard event dropped", "err", err)
	h.status("Error: " + err.Error())
	return err
}

// Observation is the representation chosen for one clipboard payload.
type Observation struct {
	Content []byte
	Type    history.ContentType
	Rich    bool // Content came from the HTML slot
}

// Classify picks the representation to record for p. ok is false when p
// holds nothing supported.
func Classify(p clip.Payload) (obs Observation, ok bool, err error) {
	switch {
	case p.HTML != "":
		return Observation{Content: []byte(p.HTML), Type: history.Text, Rich: true}, true, nil
	case p.Text != "":
		return Observation{Content: []byte(p.Text), Type: history.Text}, true, nil
	case len(p.Image) > 0:
		b, err := NormalizeImage(p.Image)
		if err != nil {
			return Observation{}, false, err
		}
		return Observation{Content: b, Type: history.Image}, true, nil
	default:
		return Observation{}, false, nil
	}
}

// NormalizeImage decodes any supported raster format and re-encodes it as
// PNG with default settings. The encoder is deterministic, so the same
// pixels always produce the same bytes.
func NormalizeImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
