// Package view collects the scripts and <html> attributes that render hooks
// register for a page and splices them into the rendered document.
package view

import (
	"bytes"
	"errors"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Position selects where a registered script is emitted.
type Position int

const (
	// PosHead places the script right before </head>.
	PosHead Position = iota
	// PosBegin places the script right after <body>.
	PosBegin
	// PosEnd places the script right before </body>.
	PosEnd
)

// View accumulates page decorations between the before- and after-render hooks.
// A View belongs to one request and is not safe for concurrent use.
type View struct {
	scripts map[Position][]string
	seen    map[string]struct{}
	attrs   map[string]string
}

// New returns an empty View.
func New() *View {
	return &View{
		scripts: make(map[Position][]string),
		seen:    make(map[string]struct{}),
		attrs:   make(map[string]string),
	}
}

// RegisterJS queues js at pos. Registering the same snippet twice is a no-op.
func (v *View) RegisterJS(js string, pos Position) {
	js = strings.TrimSpace(js)
	if js == "" {
		return
	}
	if _, ok := v.seen[js]; ok {
		return
	}
	v.seen[js] = struct{}{}
	v.scripts[pos] = append(v.scripts[pos], js)
}

// SetHTMLAttr sets an attribute on the document's <html> element, replacing
// any value the page already carries.
func (v *View) SetHTMLAttr(key, value string) {
	v.attrs[strings.ToLower(key)] = value
}

// HTMLAttr returns a previously set attribute.
func (v *View) HTMLAttr(key string) (string, bool) {
	val, ok := v.attrs[strings.ToLower(key)]
	return val, ok
}

// Scripts returns the snippets queued at pos.
func (v *View) Scripts(pos Position) []string {
	return append([]string(nil), v.scripts[pos]...)
}

// Empty reports whether there is nothing to inject.
func (v *View) Empty() bool {
	return len(v.attrs) == 0 && len(v.seen) == 0
}

// Render copies page through the tokenizer, rewriting the <html> start tag and
// inserting scripts at their positions. Everything else, including an
// unterminated trailing tag, is emitted byte for byte. Scripts whose anchor tag is missing are appended at the end.
func (v *View) Render(page []byte) ([]byte, error) {
	if v.Empty() {
		return page, nil
	}

	var out bytes.Buffer
	out.Grow(len(page) + 512)

	placed := make(map[Position]bool, 3)
	consumed := 0
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				// A tag left open at EOF is never tokenized.
				out.Write(page[consumed:])
				break
			}
			return nil, z.Err()
		}

		raw := z.Raw()
		consumed += len(raw)
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			// TagName lowercases the shared buffer in place.
			raw = bytes.Clone(raw)
			name, _ := z.TagName()
			switch string(name) {
			case "html":
				if len(v.attrs) > 0 {
					out.WriteString(v.rewriteHTMLTag(raw))
					continue
				}
			case "body":
				out.Write(raw)
				v.writeScripts(&out, PosBegin)
				placed[PosBegin] = true
				continue
			}
		case html.EndTagToken:
			raw = bytes.Clone(raw)
			name, _ := z.TagName()
			switch string(name) {
			case "head":
				v.writeScripts(&out, PosHead)
				placed[PosHead] = true
			case "body":
				v.writeScripts(&out, PosEnd)
				placed[PosEnd] = true
			}
		}
		out.Write(raw)
	}

	for _, pos := range []Position{PosHead, PosBegin, PosEnd} {
		if !placed[pos] {
			v.writeScripts(&out, pos)
		}
	}
	return out.Bytes(), nil
}

// rewriteHTMLTag re-tokenizes the raw start tag so attribute parsing does not
// disturb the outer tokenizer.
func (v *View) rewriteHTMLTag(raw []byte) string {
	tok := html.NewTokenizer(bytes.NewReader(raw))
	tok.Next()
	t := tok.Token()

	attrs := make([]html.Attribute, 0, len(t.Attr)+len(v.attrs))
	for _, attr := range t.Attr {
		if _, override := v.attrs[attr.Key]; override {
			continue
		}
		attrs = append(attrs, attr)
	}
	keys := make([]string, 0, len(v.attrs))
	for key := range v.attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, html.Attribute{Key: key, Val: v.attrs[key]})
	}
	t.Attr = attrs
	return t.String()
}

func (v *View) writeScripts(out *bytes.Buffer, pos Position) {
	for _, js := range v.scripts[pos] {
		out.WriteString("<script>\n")
		out.WriteString(js)
		out.WriteString("\n</script>")
	}
}
