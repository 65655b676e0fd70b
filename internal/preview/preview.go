// Package preview renders one-line summaries of history entries for list views.
package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/richtext"
)

// Width is the number of display columns a text preview is truncated to.
const Width = 40

// Text returns the plain-text preview of an entry: newlines collapsed to
// spaces and truncated to Width display columns with a trailing "...".
// Images render as "[Image WxH, size]".
func Text(e history.Entry) string {
	if e.Type == history.Image {
		return imageLabel(e.Content)
	}
	plain := strings.Join(strings.Fields(richtext.Plain(e)), " ")
	return runewidth.Truncate(plain, Width, "...")
}

// Line returns "HH:MM:SS: preview" in local time.
func Line(e history.Entry) string {
	return fmt.Sprintf("%s: %s", e.Timestamp.Local().Format(time.TimeOnly), Text(e))
}

// Age renders t relative to now, e.g. "3 minutes ago".
func Age(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

func imageLabel(data []byte) string {
	size := humanize.Bytes(uint64(len(data)))
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Sprintf("[Image, %s]", size)
	}
	return fmt.Sprintf("[Image %dx%d, %s]", cfg.Width, cfg.Height, size)
}
