// Package dom holds the document snapshot handle the engines work against.
// A Document is either parsed from HTML or imported from a tree captured in a
// live page, and it never refers back to the page it came from.
package dom

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"webagent/internal/domain/entity"
)

// Layout is what the rendering engine knew about a node at capture time.
// Zero values mean unknown.
type Layout struct {
	Box        *entity.BoundingBox
	Display    string
	Visibility string
	Opacity    *float64
	Occluded   bool
}

type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is a snapshot of one page. Reads are not synchronized with the
// mutation helpers in mutate.go, callers must not mix them concurrently.
type Document struct {
	root     *html.Node
	layout   map[*html.Node]Layout
	viewport *Viewport

	mu        sync.Mutex
	url       string
	title     string
	capturing bool
	records   []entity.MutationRecord
}

func newDocument(root *html.Node, url string) *Document {
	return &Document{
		root:   root,
		layout: make(map[*html.Node]Layout),
		url:    url,
	}
}

func (d *Document) Root() *html.Node { return d.root }

func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}

// Viewport returns nil when the snapshot carries no geometry.
func (d *Document) Viewport() *Viewport { return d.viewport }

func (d *Document) SetViewport(v Viewport) { d.viewport = &v }

func (d *Document) Layout(n *html.Node) (Layout, bool) {
	l, ok := d.layout[n]
	return l, ok
}

func (d *Document) SetLayout(n *html.Node, l Layout) {
	d.layout[n] = l
}

// Snapshot makes a Document its own snapshot source.
func (d *Document) Snapshot(context.Context) (*Document, error) {
	return d, nil
}

// Body returns <body>, or the root element if there is none.
func (d *Document) Body() *html.Node {
	if b := FirstElement(d.root, "body"); b != nil {
		return b
	}
	return FirstElement(d.root, "html")
}

// Rendered reports whether n and all of its ancestors take part in rendering:
// no hidden attribute, no display:none, opacity above zero, and an effective
// visibility other than hidden.
func (d *Document) Rendered(n *html.Node) bool {
	visibilityDecided := false
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if HasAttr(cur, "hidden") {
			return false
		}
		st := d.style(cur)
		if st.display == "none" {
			return false
		}
		if st.opacity != nil && *st.opacity <= 0 {
			return false
		}
		if !visibilityDecided && st.visibility != "" {
			if st.visibility == "hidden" || st.visibility == "collapse" {
				return false
			}
			visibilityDecided = true
		}
	}
	return true
}

type computed struct {
	display    string
	visibility string
	opacity    *float64
}

// style merges captured layout with the inline style attribute. Captured
// values win.
func (d *Document) style(n *html.Node) computed {
	inline := parseInlineStyle(Attr(n, "style"))
	c := computed{
		display:    inline["display"],
		visibility: inline["visibility"],
	}
	if raw, ok := inline["opacity"]; ok {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			c.opacity = &f
		}
	}
	if l, ok := d.layout[n]; ok {
		if l.Display != "" {
			c.display = l.Display
		}
		if l.Visibility != "" {
			c.visibility = l.Visibility
		}
		if l.Opacity != nil {
			c.opacity = l.Opacity
		}
	}
	return c
}

func parseInlineStyle(style string) map[string]string {
	out := map[string]string{}
	if style == "" {
		return out
	}
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(v)
	}
	return out
}

// SelfHidden is Rendered restricted to n itself.
func (d *Document) SelfHidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if HasAttr(n, "hidden") {
		return true
	}
	st := d.style(n)
	if st.display == "none" || st.visibility == "hidden" || st.visibility == "collapse" {
		return true
	}
	return st.opacity != nil && *st.opacity <= 0
}

var nonRendering = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true, "i": true, "kbd": true, "label": true,
	"mark": true, "s": true, "small": true, "span": true, "strong": true, "sub": true, "sup": true, "u": true,
}

// NonRendering reports tags whose content never reaches the screen.
func NonRendering(n *html.Node) bool {
	return n.Type == html.ElementNode && nonRendering[n.Data]
}

// TextContent is the collapsed text of n without non-rendering or hidden
// descendants. Block boundaries become spaces.
func (d *Document) TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
			return
		case html.ElementNode:
			if c != n && (NonRendering(c) || d.SelfHidden(c)) {
				return
			}
		}
		block := c.Type == html.ElementNode && !inlineTags[c.Data]
		if block {
			sb.WriteByte(' ')
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			sb.WriteByte(' ')
		}
	}
	walk(n)
	return CollapseSpace(sb.String())
}
