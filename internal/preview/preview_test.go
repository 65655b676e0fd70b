package preview

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipstack/internal/history"
)

func TestTextCollapsesAndTruncates(t *testing.T) {
	t.Parallel()

	short := history.Entry{Type: history.Text, Content: []byte("one\ntwo\t three")}
	assert.Equal(t, "one two three", Text(short))

	long := history.Entry{Type: history.Text, Content: []byte(strings.Repeat("x", 100))}
	got := Text(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, Width, len(got))
}

func TestTextRendersMarkup(t *testing.T) {
	t.Parallel()

	e := history.Entry{Type: history.Text, Rich: true, Content: []byte("<p>hello <b>there</b></p>")}
	assert.Equal(t, "hello there", Text(e))
}

func TestTextPlainIsVerbatim(t *testing.T) {
	t.Parallel()

	e := history.Entry{Type: history.Text, Content: []byte("List<Item> items")}
	assert.Equal(t, "List<Item> items", Text(e))
}

func TestTextImage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 5))))

	got := Text(history.Entry{Type: history.Image, Content: buf.Bytes()})
	assert.True(t, strings.HasPrefix(got, "[Image 4x5, "), got)

	got = Text(history.Entry{Type: history.Image, Content: []byte("junk")})
	assert.Equal(t, "[Image, 4 B]", got)
}

func TestLine(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 8, 9, 10, 0, time.Local)
	got := Line(history.Entry{Type: history.Text, Content: []byte("hi"), Timestamp: ts})
	assert.Equal(t, "08:09:10: hi", got)
}

func TestAge(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Equal(t, "3 minutes ago", Age(now.Add(-3*time.Minute), now))
}
