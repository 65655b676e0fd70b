package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipstack/internal/clip"
	"go.klb.dev/clipstack/internal/history"
)

func checker() image.Image {
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.SetColorIndex(x, y, uint8((x+y)%2))
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

type harness struct {
	store    *history.Store
	mem      *clip.Memory
	h        *Handler
	statuses []string
}

func newHarness() *harness {
	hs := &harness{store: history.New(), mem: clip.NewMemory()}
	hs.h = New(hs.store, hs.mem, func(msg string) { hs.statuses = append(hs.statuses, msg) })
	return hs
}

func (hs *harness) observe(t *testing.T, p clip.Payload) Result {
	t.Helper()
	hs.mem.Set(p)
	res, err := hs.h.Handle(context.Background())
	require.NoError(t, err)
	return res
}

func TestClassifyPriority(t *testing.T) {
	t.Parallel()
	img := encodePNG(t, checker())

	tests := []struct {
		name    string
		p       clip.Payload
		want    string
		typ     history.ContentType
		rich    bool
		wantOK  bool
		checkFn func(t *testing.T, content []byte)
	}{
		{
			name:   "rich wins over plain and image",
			p:      clip.Payload{HTML: "<b>x</b>", Text: "x", Image: img},
			want:   "<b>x</b>",
			typ:    history.Text,
			rich:   true,
			wantOK: true,
		},
		{
			name:   "plain wins over image",
			p:      clip.Payload{Text: "x", Image: img},
			want:   "x",
			typ:    history.Text,
			wantOK: true,
		},
		{
			name:   "image only",
			p:      clip.Payload{Image: img},
			typ:    history.Image,
			wantOK: true,
			checkFn: func(t *testing.T, content []byte) {
				norm, err := NormalizeImage(img)
				require.NoError(t, err)
				assert.Equal(t, norm, content)
			},
		},
		{
			name: "nothing supported",
			p:    clip.Payload{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obs, ok, err := Classify(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.typ, obs.Type)
			assert.Equal(t, tt.rich, obs.Rich)
			if tt.checkFn != nil {
				tt.checkFn(t, obs.Content)
			} else if tt.want != "" {
				assert.Equal(t, tt.want, string(obs.Content))
			}
		})
	}
}

func TestNormalizeImageStableAcrossFormats(t *testing.T) {
	t.Parallel()

	fromGIF, err := NormalizeImage(encodeGIF(t, checker()))
	require.NoError(t, err)
	again, err := NormalizeImage(encodeGIF(t, checker()))
	require.NoError(t, err)
	assert.Equal(t, fromGIF, again)

	_, err = png.Decode(bytes.NewReader(fromGIF))
	assert.NoError(t, err)
}

func TestHandleRecordsAndPromotes(t *testing.T) {
	t.Parallel()
	hs := newHarness()
	img := encodePNG(t, checker())

	first := hs.observe(t, clip.Payload{Text: "hello"})
	assert.False(t, first.Promoted)
	hs.observe(t, clip.Payload{Image: img})
	again := hs.observe(t, clip.Payload{Text: "hello"})

	assert.True(t, again.Promoted)
	assert.Equal(t, first.Entry.ID, again.Entry.ID)

	entries := hs.store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", string(entries[0].Content))
	assert.Equal(t, history.Image, entries[1].Type)
}

func TestHandleKeepsAngleBracketsPlain(t *testing.T) {
	t.Parallel()
	hs := newHarness()

	res := hs.observe(t, clip.Payload{Text: "var v Vec<String> = x"})
	assert.False(t, res.Entry.Rich)
	assert.Equal(t, "var v Vec<String> = x", string(res.Entry.Content))

	res = hs.observe(t, clip.Payload{HTML: "<p>List<b>Item</b></p>", Text: "ListItem"})
	assert.True(t, res.Entry.Rich)
}

func TestHandleSpuriousNotificationsIdempotent(t *testing.T) {
	t.Parallel()
	hs := newHarness()

	hs.observe(t, clip.Payload{Text: "same"})
	for range 3 {
		_, err := hs.h.Handle(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, hs.store.Len())
}

func TestHandleUnsupportedFormatIgnored(t *testing.T) {
	t.Parallel()
	hs := newHarness()
	hs.observe(t, clip.Payload{Text: "keep"})

	// A file-list copy shows up as a payload with no supported format.
	res := hs.observe(t, clip.Payload{})
	assert.True(t, res.Ignored)
	assert.Equal(t, 1, hs.store.Len())
	assert.Empty(t, hs.statuses)
}

func TestHandleReadErrorDropsEvent(t *testing.T) {
	t.Parallel()
	hs := newHarness()
	hs.observe(t, clip.Payload{Text: "keep"})

	hs.mem.FailReads(errors.New("display gone"))
	_, err := hs.h.Handle(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, hs.store.Len())
	require.Len(t, hs.statuses, 1)
	assert.Contains(t, hs.statuses[0], "display gone")
}

func TestHandleMalformedImageDropsEvent(t *testing.T) {
	t.Parallel()
	hs := newHarness()

	hs.mem.Set(clip.Payload{Image: []byte("definitely not a png")})
	_, err := hs.h.Handle(context.Background())
	require.Error(t, err)

	assert.Equal(t, 0, hs.store.Len())
	require.Len(t, hs.statuses, 1)
	assert.Contains(t, hs.statuses[0], "Error:")
}

func TestExpectEchoSuppressesOwnWrite(t *testing.T) {
	t.Parallel()
	hs := newHarness()

	old := hs.observe(t, clip.Payload{Text: "old"})
	hs.observe(t, clip.Payload{Text: "new"})

	hs.h.ExpectEcho(clip.Payload{Text: "old"})
	res := hs.observe(t, clip.Payload{Text: "old"})
	assert.True(t, res.Echo)
	res = hs.observe(t, clip.Payload{Text: "old"})
	assert.True(t, res.Echo, "repeated notifications for our write stay suppressed")

	top, _ := hs.store.Top()
	assert.Equal(t, "new", string(top.Content))

	// A different copy disarms the echo; copying "old" again then promotes it.
	hs.observe(t, clip.Payload{Text: "third"})
	res = hs.observe(t, clip.Payload{Text: "old"})
	assert.False(t, res.Echo)
	assert.Equal(t, old.Entry.ID, res.Entry.ID)
}

func TestExpectEchoMatchesAnyRepresentation(t *testing.T) {
	t.Parallel()
	hs := newHarness()
	hs.observe(t, clip.Payload{HTML: "<b>bold</b>"})

	// Backends that cannot read HTML hand back only the plain form.
	hs.h.ExpectEcho(clip.Payload{HTML: "<b>bold</b>", Text: "bold"})
	res := hs.observe(t, clip.Payload{Text: "bold"})

	assert.True(t, res.Echo)
	assert.Equal(t, 1, hs.store.Len())
}
