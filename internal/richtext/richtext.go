// Package richtext converts between clipboard entries and the rich-text (HTML)
// documents handed to an editor or written to the clipboard's HTML slot.
//
// Whether text is rich is never guessed from its content: it is the Rich flag
// recorded on the entry when it was captured or edited.
package richtext

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/png" // DecodeConfig for embedded images
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go.klb.dev/clipstack/internal/history"
)

var conv = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// ToPlain renders an HTML document as plain text: markup is dropped, block
// elements start new lines and whitespace collapses outside <pre>. Images
// become their alt text, or "[image]".
func ToPlain(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}
	var w plainWriter
	w.walk(root)
	return strings.TrimSpace(string(w.buf))
}

// ToMarkdown renders an HTML document as CommonMark.
func ToMarkdown(doc string) (string, error) {
	md, err := conv.ConvertString(doc)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Plain returns the plain-text form of a text entry. Plain entries are
// returned verbatim.
func Plain(e history.Entry) string {
	if e.Rich {
		return ToPlain(string(e.Content))
	}
	return string(e.Content)
}

// Forms returns the HTML and plain-text forms to put on the clipboard for a
// text entry. Plain entries have no HTML form.
func Forms(e history.Entry) (htmlForm, plain string) {
	if e.Rich {
		return string(e.Content), Plain(e)
	}
	return "", string(e.Content)
}

// ImageDocument wraps PNG bytes in an HTML document that embeds the image as
// a data URI, sized to the image's own dimensions.
func ImageDocument(png []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return "", fmt.Errorf("decode image header: %w", err)
	}
	return fmt.Sprintf(
		"<html><body><img src=\"data:image/png;base64,%s\" width=\"%d\" height=\"%d\"></body></html>",
		base64.StdEncoding.EncodeToString(png), cfg.Width, cfg.Height,
	), nil
}

// DocumentIsHTML reports whether the edit document of e is HTML. Images and
// rich text are; plain text is edited as plain text.
func DocumentIsHTML(e history.Entry) bool {
	return e.Type == history.Image || e.Rich
}

// Document returns the editable rendering of e. Text entries are returned as
// stored; images become an embedded reference.
func Document(e history.Entry) (string, error) {
	switch e.Type {
	case history.Image:
		return ImageDocument(e.Content)
	default:
		return string(e.Content), nil
	}
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true,
	atom.Blockquote: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Tr: true, atom.Ul: true,
}

var skippedElements = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
}

type plainWriter struct {
	buf []byte
	pre int
}

func (w *plainWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		switch {
		case skippedElements[n.DataAtom]:
			return
		case n.DataAtom == atom.Br:
			w.trimSpace()
			w.buf = append(w.buf, '\n')
			return
		case n.DataAtom == atom.Img:
			w.space()
			w.buf = append(w.buf, imageText(n)...)
			return
		case n.DataAtom == atom.Td, n.DataAtom == atom.Th:
			w.space()
		case n.DataAtom == atom.Pre:
			w.pre++
			defer func() { w.pre-- }()
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		w.newline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.newline()
	}
}

func (w *plainWriter) text(s string) {
	if w.pre > 0 {
		w.buf = append(w.buf, s...)
		return
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			w.space()
		}
		return
	}
	first, _ := utf8.DecodeRuneInString(s)
	if unicode.IsSpace(first) {
		w.space()
	}
	w.buf = append(w.buf, strings.Join(words, " ")...)
	last, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsSpace(last) {
		w.space()
	}
}

// space separates inline runs; never at the start of a line.
func (w *plainWriter) space() {
	if n := len(w.buf); n > 0 && w.buf[n-1] != ' ' && w.buf[n-1] != '\n' {
		w.buf = append(w.buf, ' ')
	}
}

func (w *plainWriter) newline() {
	w.trimSpace()
	if n := len(w.buf); n > 0 && w.buf[n-1] != '\n' {
		w.buf = append(w.buf, '\n')
	}
}

func (w *plainWriter) trimSpace() {
	w.buf = bytes.TrimRight(w.buf, " ")
}

func imageText(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "alt" && strings.TrimSpace(a.Val) != "" {
			return strings.TrimSpace(a.Val)
		}
	}
	return "[image]"
}
